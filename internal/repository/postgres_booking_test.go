package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpoguide/backend/pkg/crypto"
)

// fakeBookingDB keeps inserted argument lists as rows and serves them back in
// the same order, so a column order mismatch between INSERT and SELECT shows
// up as a scan failure or a wrong field.
type fakeBookingDB struct {
	mu      sync.Mutex
	rows    [][]any
	inserts []string
	err     error
}

func (f *fakeBookingDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, sql)
	for _, row := range f.rows {
		if row[1] == args[1] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
	}
	f.rows = append(f.rows, append([]any(nil), args...))
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeBookingDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if f.err != nil {
		return &fakeRow{err: f.err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row[1] == args[0] {
			return &fakeRow{values: row}
		}
	}
	return &fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeBookingDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	rows := append([][]any(nil), f.rows...)
	f.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		return rows[i][15].(time.Time).After(rows[j][15].(time.Time))
	})
	if limit := args[0].(int); len(rows) > limit {
		rows = rows[:limit]
	}
	return &fakeRows{rows: rows, pos: -1}, nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

func assign(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		val := reflect.ValueOf(v)
		if !val.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan column %d: cannot assign %s to %s", i, val.Type(), target.Type())
		}
		target.Set(val)
	}
	return nil
}

type fakeRows struct {
	rows [][]any
	pos  int
}

func (r *fakeRows) Close() {}
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte { return nil }
func (r *fakeRows) Conn() *pgx.Conn { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error { return assign(r.rows[r.pos], dest) }

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.pos], nil }

func testSealer(t *testing.T) crypto.Sealer {
	t.Helper()
	s, err := crypto.NewSealer("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return s
}

func TestPostgresBookingRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := &fakeBookingDB{}
	repo := NewPostgresBookingRepository(db, testSealer(t))

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := booking("pi_1", t0)
	in.Destination = "paris"
	in.TravelDate = "2026-03-11"
	in.DisplayCurrency = "EUR"
	in.Language = "fr"
	require.NoError(t, repo.Create(ctx, in))

	require.Len(t, db.rows, 1)
	stored := db.rows[0]
	assert.Equal(t, "pi_1", stored[1])
	assert.Equal(t, int64(39700), stored[9])
	sealed, ok := stored[14].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(sealed, "aes:"))
	assert.NotContains(t, sealed, "ana@example.com")

	got, err := repo.FindByPaymentIntent(ctx, "pi_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *in, *got)
}

func TestPostgresBookingRepository_ColumnsMatchInsert(t *testing.T) {
	db := &fakeBookingDB{}
	repo := NewPostgresBookingRepository(db, nil)
	require.NoError(t, repo.Create(context.Background(), booking("pi_1", time.Now())))

	m := regexp.MustCompile(`INSERT INTO bookings \(([^)]*)\)`).FindStringSubmatch(db.inserts[0])
	require.Len(t, m, 2)
	assert.Equal(t, strings.Fields(bookingColumns), strings.Fields(m[1]))
}

func TestPostgresBookingRepository_DuplicateIgnored(t *testing.T) {
	ctx := context.Background()
	db := &fakeBookingDB{}
	repo := NewPostgresBookingRepository(db, nil)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, booking("pi_1", t0)))
	dup := booking("pi_1", t0.Add(time.Hour))
	dup.PlanName = "changed"
	require.NoError(t, repo.Create(ctx, dup))

	got, err := repo.FindByPaymentIntent(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "Paris - 2 Days", got.PlanName)
}

func TestPostgresBookingRepository_NotFound(t *testing.T) {
	repo := NewPostgresBookingRepository(&fakeBookingDB{}, nil)

	got, err := repo.FindByPaymentIntent(context.Background(), "pi_404")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresBookingRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresBookingRepository(&fakeBookingDB{}, testSealer(t))
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, booking(fmt.Sprintf("pi_%d", i), t0.Add(time.Duration(i)*time.Hour))))
	}

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pi_2", list[0].PaymentIntentID)
	assert.Equal(t, "pi_1", list[1].PaymentIntentID)
	assert.Equal(t, "ana@example.com", list[0].Customer.Email)
}

func TestPostgresBookingRepository_Errors(t *testing.T) {
	ctx := context.Background()
	down := errors.New("connection refused")
	repo := NewPostgresBookingRepository(&fakeBookingDB{err: down}, nil)

	assert.ErrorIs(t, repo.Create(ctx, booking("pi_1", time.Now())), down)
	_, err := repo.FindByPaymentIntent(ctx, "pi_1")
	assert.ErrorIs(t, err, down)
	_, err = repo.List(ctx, 10)
	assert.ErrorIs(t, err, down)
}

func TestPostgresBookingRepository_UnreadableCustomer(t *testing.T) {
	ctx := context.Background()
	db := &fakeBookingDB{}
	require.NoError(t, NewPostgresBookingRepository(db, testSealer(t)).Create(ctx, booking("pi_1", time.Now())))

	// Encrypted rows cannot be opened without the key.
	_, err := NewPostgresBookingRepository(db, nil).FindByPaymentIntent(ctx, "pi_1")
	assert.ErrorContains(t, err, "pi_1")
}
