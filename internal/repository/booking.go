package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/pkg/crypto"
)

// MaxListLimit caps admin listings.
const MaxListLimit = 200

// BookingRepository stores confirmed bookings.
type BookingRepository interface {
	// Create inserts b. A second booking for the same PaymentIntent is ignored.
	Create(ctx context.Context, b *domain.Booking) error
	// FindByPaymentIntent returns nil, nil when there is no booking.
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Booking, error)
	// List returns the newest bookings first.
	List(ctx context.Context, limit int) ([]domain.Booking, error)
}

// DB is the subset of *pgxpool.Pool the booking repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBookingRepository persists bookings with the customer contact
// details sealed into a single column.
type PostgresBookingRepository struct {
	db     DB
	sealer crypto.Sealer
}

func NewPostgresBookingRepository(db DB, sealer crypto.Sealer) *PostgresBookingRepository {
	if sealer == nil {
		sealer = crypto.Plain{}
	}
	return &PostgresBookingRepository{db: db, sealer: sealer}
}

func (r *PostgresBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	customer, err := r.sealer.Seal(b.Customer)
	if err != nil {
		return fmt.Errorf("failed to seal customer: %w", err)
	}
	query := `
		INSERT INTO bookings (id, payment_intent_id, destination, plan_name, days, adults, children, passengers,
			travel_date, amount_cents, currency, display_currency, language, status, customer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (payment_intent_id) DO NOTHING
	`
	_, err = r.db.Exec(ctx, query,
		b.ID, b.PaymentIntentID, b.Destination, b.PlanName, b.Days, b.Adults, b.Children, b.Passengers,
		b.TravelDate, b.AmountCents, b.Currency, b.DisplayCurrency, b.Language, b.Status, customer, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

const bookingColumns = `id, payment_intent_id, destination, plan_name, days, adults, children, passengers,
	travel_date, amount_cents, currency, display_currency, language, status, customer, created_at`

func (r *PostgresBookingRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_intent_id = $1`, paymentIntentID)
	b, err := r.scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return b, nil
}

func (r *PostgresBookingRepository) List(ctx context.Context, limit int) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *PostgresBookingRepository) scan(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var customer string
	err := row.Scan(
		&b.ID, &b.PaymentIntentID, &b.Destination, &b.PlanName, &b.Days, &b.Adults, &b.Children, &b.Passengers,
		&b.TravelDate, &b.AmountCents, &b.Currency, &b.DisplayCurrency, &b.Language, &b.Status, &customer, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := r.sealer.Open(customer, &b.Customer); err != nil {
		return nil, fmt.Errorf("failed to open customer for %s: %w", b.PaymentIntentID, err)
	}
	return &b, nil
}

// MemoryBookingRepository keeps bookings in process memory.
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]domain.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{bookings: make(map[string]domain.Booking)}
}

func (r *MemoryBookingRepository) Create(_ context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.PaymentIntentID]; ok {
		return nil
	}
	r.bookings[b.PaymentIntentID] = *b
	return nil
}

func (r *MemoryBookingRepository) FindByPaymentIntent(_ context.Context, paymentIntentID string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[paymentIntentID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *MemoryBookingRepository) List(_ context.Context, limit int) ([]domain.Booking, error) {
	r.mu.RLock()
	out := make([]domain.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
