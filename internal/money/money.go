package money

import (
    "encoding/json"
    "math"
    "strconv"
    "strings"
)

// Sentinel is the literal operators enter when a price is not determined.
const Sentinel = "N.D."

// Value is either a numeric amount or the "not determined" sentinel.
// Arithmetic is total: any operation touching an undetermined value
// yields an undetermined value, never zero and never an error.
type Value struct {
    num float64
    ok  bool
}

func Number(f float64) Value { return Value{num: f, ok: true} }

func Undetermined() Value { return Value{} }

// Parse builds a Value from an operator-entered field: numbers pass
// through, numeric strings are parsed, everything else (including the
// explicit sentinel) is undetermined.
func Parse(v any) Value {
    switch x := v.(type) {
    case float64:
        return Number(x)
    case int:
        return Number(float64(x))
    case json.Number:
        if f, err := x.Float64(); err == nil { return Number(f) }
        return Undetermined()
    case string:
        return parseString(x)
    }
    return Undetermined()
}

func parseString(s string) Value {
    s = strings.TrimSpace(s)
    if s == "" || strings.EqualFold(s, Sentinel) {
        return Undetermined()
    }
    if f, err := strconv.ParseFloat(s, 64); err == nil {
        return Number(f)
    }
    return Undetermined()
}

func (v Value) IsUndetermined() bool { return !v.ok }

// Float returns the numeric amount; ok is false for the sentinel.
func (v Value) Float() (float64, bool) { return v.num, v.ok }

func (v Value) Mul(o Value) Value {
    if !v.ok || !o.ok { return Undetermined() }
    return Number(v.num * o.num)
}

func (v Value) Div(o Value) Value {
    if !v.ok || !o.ok || o.num == 0 { return Undetermined() }
    return Number(v.num / o.num)
}

// Round2 rounds a numeric value to two decimals; the sentinel passes through.
func (v Value) Round2() Value {
    if !v.ok { return v }
    return Number(math.Round(v.num*100) / 100)
}

func (v Value) MarshalJSON() ([]byte, error) {
    if !v.ok {
        return json.Marshal(Sentinel)
    }
    if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
        return json.Marshal(Sentinel)
    }
    return json.Marshal(v.num)
}

func (v *Value) UnmarshalJSON(b []byte) error {
    var raw any
    dec := json.NewDecoder(strings.NewReader(string(b)))
    dec.UseNumber()
    if err := dec.Decode(&raw); err != nil {
        *v = Undetermined()
        return nil
    }
    *v = Parse(raw)
    return nil
}
