package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"cryptospread/internal/market"
	"cryptospread/internal/store"
)

// Store implements the store interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ store.QuoteStore = (*Store)(nil)
var _ store.PlatformStore = (*Store)(nil)

// Open connects to PostgreSQL, verifies the connection and ensures the
// schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle without schema management.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS crypto_prices (
			exchange TEXT, coin TEXT,
			buy_cop DOUBLE PRECISION, sell_cop DOUBLE PRECISION,
			buy_usd DOUBLE PRECISION, sell_usd DOUBLE PRECISION,
			spread DOUBLE PRECISION, direct_cop BOOLEAN, usd_bridge TEXT,
			PRIMARY KEY (exchange, coin)
		)`,
		`CREATE TABLE IF NOT EXISTS stablecoin_prices (
			exchange TEXT, coin TEXT,
			buy_cop DOUBLE PRECISION, sell_cop DOUBLE PRECISION,
			buy_usd DOUBLE PRECISION, sell_usd DOUBLE PRECISION,
			spread DOUBLE PRECISION, direct_cop BOOLEAN, usd_bridge TEXT,
			PRIMARY KEY (exchange, coin)
		)`,
		`CREATE TABLE IF NOT EXISTS platform_info (
			id TEXT PRIMARY KEY, name TEXT, category TEXT, logo_url TEXT,
			funding TEXT, trading TEXT, withdraw TEXT,
			deposit_networks TEXT, withdraw_networks TEXT,
			manual_prices TEXT, is_manual BOOLEAN, is_active BOOLEAN,
			last_updated TIMESTAMPTZ
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func tableFor(class market.Class) string {
	if class == market.Stable {
		return "stablecoin_prices"
	}
	return "crypto_prices"
}

// --- QuoteStore -------------------------------------------------------------

func (s *Store) UpsertQuote(ctx context.Context, class market.Class, q market.Quote) error {
	query := fmt.Sprintf(`
		INSERT INTO %s
		(exchange, coin, buy_cop, sell_cop, buy_usd, sell_usd, spread, direct_cop, usd_bridge)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (exchange, coin) DO UPDATE SET
			buy_cop = EXCLUDED.buy_cop,
			sell_cop = EXCLUDED.sell_cop,
			buy_usd = EXCLUDED.buy_usd,
			sell_usd = EXCLUDED.sell_usd,
			spread = EXCLUDED.spread,
			direct_cop = EXCLUDED.direct_cop,
			usd_bridge = EXCLUDED.usd_bridge
	`, tableFor(class))

	_, err := s.db.ExecContext(ctx, query,
		q.SourceID, q.Asset, q.BuyFiat, q.SellFiat,
		q.BuyUSD, q.SellUSD, q.SpreadPct, q.DirectFiat, q.BridgeUsed)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", q.SourceID, q.Asset, err)
	}
	return nil
}

func (s *Store) ListQuotes(ctx context.Context, class market.Class, asset market.Asset) ([]market.Quote, error) {
	query := fmt.Sprintf(`
		SELECT exchange, coin, buy_cop, sell_cop, buy_usd, sell_usd, spread, direct_cop, usd_bridge
		FROM %s
		WHERE coin = $1
		ORDER BY exchange
	`, tableFor(class))

	rows, err := s.db.QueryContext(ctx, query, strings.ToLower(asset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Quote
	for rows.Next() {
		var q market.Quote
		if err := rows.Scan(&q.SourceID, &q.Asset, &q.BuyFiat, &q.SellFiat,
			&q.BuyUSD, &q.SellUSD, &q.SpreadPct, &q.DirectFiat, &q.BridgeUsed); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// --- PlatformStore ----------------------------------------------------------

func (s *Store) UpsertPlatform(ctx context.Context, p market.PlatformProfile) error {
	p.ID = strings.ToLower(p.ID)
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now().UTC()
	}

	pricesJSON, err := json.Marshal(p.ManualPrices)
	if err != nil {
		return fmt.Errorf("marshal manual prices: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO platform_info
		(id, name, category, logo_url, funding, trading, withdraw,
		 deposit_networks, withdraw_networks, manual_prices, is_manual, is_active, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category,
			logo_url = EXCLUDED.logo_url, funding = EXCLUDED.funding,
			trading = EXCLUDED.trading, withdraw = EXCLUDED.withdraw,
			deposit_networks = EXCLUDED.deposit_networks,
			withdraw_networks = EXCLUDED.withdraw_networks,
			manual_prices = EXCLUDED.manual_prices,
			is_manual = EXCLUDED.is_manual, is_active = EXCLUDED.is_active,
			last_updated = EXCLUDED.last_updated
	`, p.ID, p.Name, p.Category, p.LogoURL, p.Funding, p.Trading, p.Withdraw,
		p.DepositNetworks, p.WithdrawNetworks, string(pricesJSON),
		p.IsManual, p.IsActive, p.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert platform %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetPlatform(ctx context.Context, id string) (market.PlatformProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, logo_url, funding, trading, withdraw,
		       deposit_networks, withdraw_networks, manual_prices, is_manual, is_active, last_updated
		FROM platform_info
		WHERE id = $1
	`, strings.ToLower(id))

	p, err := scanPlatform(row)
	if err == sql.ErrNoRows {
		return market.PlatformProfile{}, store.ErrNotFound
	}
	return p, err
}

func (s *Store) ListPlatforms(ctx context.Context, includeInactive bool) ([]market.PlatformProfile, error) {
	query := `
		SELECT id, name, category, logo_url, funding, trading, withdraw,
		       deposit_networks, withdraw_networks, manual_prices, is_manual, is_active, last_updated
		FROM platform_info
	`
	if !includeInactive {
		query += " WHERE is_active = true"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.PlatformProfile
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePlatform(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM platform_info WHERE id = $1
	`, strings.ToLower(id))
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlatform(row scanner) (market.PlatformProfile, error) {
	var (
		p         market.PlatformProfile
		pricesRaw sql.NullString
		updated   sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.LogoURL, &p.Funding,
		&p.Trading, &p.Withdraw, &p.DepositNetworks, &p.WithdrawNetworks,
		&pricesRaw, &p.IsManual, &p.IsActive, &updated); err != nil {
		return market.PlatformProfile{}, err
	}
	if pricesRaw.Valid && pricesRaw.String != "" {
		_ = json.Unmarshal([]byte(pricesRaw.String), &p.ManualPrices)
	}
	if p.ManualPrices == nil {
		p.ManualPrices = map[string]market.ManualEntry{}
	}
	if updated.Valid {
		p.LastUpdated = updated.Time
	}
	return p, nil
}
