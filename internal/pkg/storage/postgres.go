// Package storage provides the persistence layer: PostgreSQL for accounts,
// matches and orders, Redis as a read mirror of the in-memory snapshot store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Melekhin/betdesk/internal/pkg/config"
	"github.com/Melekhin/betdesk/internal/pkg/models"
	"github.com/Melekhin/betdesk/internal/selection"
)

// Ensure PostgresStore satisfies the selection engine's sources.
var _ selection.AccountSource = (*PostgresStore)(nil)
var _ selection.LedgerSource = (*PostgresStore)(nil)

// PostgresStore reads accounts, matches and orders from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and ensures the schema exists.
func NewPostgresStore(cfg *config.PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL store initialized")
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id SERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		group_id BIGINT NOT NULL DEFAULT 0,
		username VARCHAR(100) NOT NULL,
		original_username VARCHAR(100) NOT NULL DEFAULT '',
		discount DECIMAL(6, 4) NOT NULL DEFAULT 1,
		stop_profit_limit DECIMAL(14, 2) NOT NULL DEFAULT 0,
		online BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS matches (
		id SERIAL PRIMARY KEY,
		external_id VARCHAR(100) NOT NULL UNIQUE,
		sport VARCHAR(50) NOT NULL,
		league VARCHAR(300) NOT NULL DEFAULT '',
		home_team VARCHAR(300) NOT NULL DEFAULT '',
		away_team VARCHAR(300) NOT NULL DEFAULT '',
		kickoff TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		match_id BIGINT NOT NULL REFERENCES matches(id),
		username VARCHAR(100) NOT NULL,
		original_username VARCHAR(100) NOT NULL DEFAULT '',
		amount DECIMAL(14, 2) NOT NULL,
		profit DECIMAL(14, 2) NOT NULL DEFAULT 0,
		cancelled BOOLEAN NOT NULL DEFAULT FALSE,
		settled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		settled_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
	CREATE INDEX IF NOT EXISTS idx_orders_user_account ON orders(user_id, account_id);
	CREATE INDEX IF NOT EXISTS idx_orders_match ON orders(user_id, match_id);
	CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_orders_settled_at ON orders(settled_at DESC);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// AccountsForUser returns every wagering account owned by the user.
func (s *PostgresStore) AccountsForUser(ctx context.Context, userID int64) ([]models.WageringAccount, error) {
	query := `
	SELECT id, user_id, group_id, username, original_username,
	       discount, stop_profit_limit, online
	FROM accounts
	WHERE user_id = $1
	ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.WageringAccount
	for rows.Next() {
		var a models.WageringAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.GroupID, &a.Username, &a.OriginalUsername,
			&a.Discount, &a.StopProfitLimit, &a.Online); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// InternalMatchID resolves an external match id to the internal row id.
// Returns 0 when the match has never been recorded.
func (s *PostgresStore) InternalMatchID(ctx context.Context, externalID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM matches WHERE external_id = $1`, externalID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve match id: %w", err)
	}
	return id, nil
}

// OrdersForMatch returns the user's non-cancelled orders on a match.
func (s *PostgresStore) OrdersForMatch(ctx context.Context, userID, matchID int64) ([]models.OrderRecord, error) {
	query := `
	SELECT id, account_id, username, original_username, amount, cancelled, created_at
	FROM orders
	WHERE user_id = $1 AND match_id = $2 AND cancelled = FALSE
	`

	rows, err := s.db.QueryContext(ctx, query, userID, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match orders: %w", err)
	}
	defer rows.Close()

	var orders []models.OrderRecord
	for rows.Next() {
		var o models.OrderRecord
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Username, &o.OriginalUsername,
			&o.Amount, &o.Cancelled, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// StakesSince sums non-cancelled stakes per account since the boundary.
func (s *PostgresStore) StakesSince(ctx context.Context, userID int64, accountIDs []int64, since time.Time) (map[int64]float64, error) {
	query := `
	SELECT account_id, COALESCE(SUM(amount), 0)
	FROM orders
	WHERE user_id = $1 AND account_id = ANY($2)
	  AND cancelled = FALSE AND created_at >= $3
	GROUP BY account_id
	`
	return s.sumByAccount(ctx, query, userID, accountIDs, since)
}

// ProfitSince sums settled profit per account since the boundary.
func (s *PostgresStore) ProfitSince(ctx context.Context, userID int64, accountIDs []int64, since time.Time) (map[int64]float64, error) {
	query := `
	SELECT account_id, COALESCE(SUM(profit), 0)
	FROM orders
	WHERE user_id = $1 AND account_id = ANY($2)
	  AND cancelled = FALSE AND settled = TRUE AND settled_at >= $3
	GROUP BY account_id
	`
	return s.sumByAccount(ctx, query, userID, accountIDs, since)
}

func (s *PostgresStore) sumByAccount(ctx context.Context, query string, userID int64, accountIDs []int64, since time.Time) (map[int64]float64, error) {
	rows, err := s.db.QueryContext(ctx, query, userID, pq.Array(accountIDs), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	sums := make(map[int64]float64, len(accountIDs))
	for rows.Next() {
		var id int64
		var sum float64
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		sums[id] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregates: %w", err)
	}

	return sums, nil
}

// UpsertMatch records a polled match so later orders can reference it by the
// internal id. Existing rows keep their id; metadata is refreshed in place.
func (s *PostgresStore) UpsertMatch(ctx context.Context, m *models.MatchSnapshot) error {
	query := `
	INSERT INTO matches (external_id, sport, league, home_team, away_team, kickoff)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (external_id) DO UPDATE SET
		league = EXCLUDED.league,
		home_team = EXCLUDED.home_team,
		away_team = EXCLUDED.away_team,
		kickoff = EXCLUDED.kickoff
	`

	var kickoff sql.NullTime
	if !m.Kickoff.IsZero() {
		kickoff = sql.NullTime{Time: m.Kickoff, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		m.MatchID, m.Sport, m.League, m.HomeTeam, m.AwayTeam, kickoff)
	if err != nil {
		return fmt.Errorf("failed to upsert match: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
