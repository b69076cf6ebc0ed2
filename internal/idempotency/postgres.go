package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the Postgres store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresStore claims IDs by inserting into processed_payment_intents. The
// primary key makes the insert the atomic claim.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Claim(ctx context.Context, id string) (bool, error) {
	query := `
		INSERT INTO processed_payment_intents (payment_intent_id, processed_at)
		VALUES ($1, NOW())
		ON CONFLICT (payment_intent_id) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim payment intent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM processed_payment_intents WHERE processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune payment intents: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Name() string { return "postgres" }
