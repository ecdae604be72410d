package dolarapi

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "cryptospread/internal/httpx"
    "cryptospread/internal/source"
)

const cotizacionesPayload = `[
    {"moneda":"USD","casa":"oficial","nombre":"Dólar","compra":3930.5,"venta":3955.25},
    {"moneda":"EUR","casa":"oficial","nombre":"Euro","compra":4280,"venta":4310}
]`

func testSource(t *testing.T, payload string) *Source {
    t.Helper()
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _, _ = w.Write([]byte(payload))
    }))
    t.Cleanup(srv.Close)
    return New(Config{Endpoint: srv.URL}, httpx.New(5*time.Second))
}

func TestQuote_USDRowServesStablecoins(t *testing.T) {
    s := testSource(t, cotizacionesPayload)

    for _, asset := range []string{"usdt", "usdc"} {
        frag, err := s.Quote(context.Background(), asset)
        if err != nil {
            t.Fatalf("%s: unexpected error: %v", asset, err)
        }
        if !frag.Direct() {
            t.Fatalf("%s: reference rates are direct fiat: %+v", asset, frag)
        }
        if *frag.BuyFiat != 3955.25 || *frag.SellFiat != 3930.5 {
            t.Fatalf("%s: venta is the buy side: %+v", asset, frag)
        }
    }
}

func TestQuote_EURRowServesEuroc(t *testing.T) {
    s := testSource(t, cotizacionesPayload)

    frag, err := s.Quote(context.Background(), "euroc")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if *frag.BuyFiat != 4310.0 || *frag.SellFiat != 4280.0 {
        t.Fatalf("unexpected prices: %+v", frag)
    }
}

func TestQuote_UnpeggedAsset(t *testing.T) {
    s := testSource(t, cotizacionesPayload)

    _, err := s.Quote(context.Background(), "btc")
    if !errors.Is(err, source.ErrNoData) {
        t.Fatalf("want ErrNoData for non-pegged asset, got %v", err)
    }
}

func TestQuote_ZeroBuyRejected(t *testing.T) {
    s := testSource(t, `[{"moneda":"USD","compra":3930,"venta":0}]`)

    _, err := s.Quote(context.Background(), "usdt")
    if !errors.Is(err, source.ErrNoData) {
        t.Fatalf("want ErrNoData for zero venta, got %v", err)
    }
}
