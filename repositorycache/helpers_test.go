package repositorycache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/phucquyet1202/EtaxiBE/cache"
	"github.com/phucquyet1202/EtaxiBE/query"
)

// Trip is the record type used across the package tests.
type Trip struct {
	ID       int64   `json:"id" bun:"id,pk,autoincrement"`
	DriverID int64   `json:"driverId" bun:"driver_id"`
	Status   string  `json:"status" bun:"status"`
	Fare     float64 `json:"fare" bun:"fare"`
}

var errWriteFailed = errors.New("write failed")

// fakeModel is an in-memory Model[*Trip] that counts calls per method.
type fakeModel struct {
	mu       sync.Mutex
	calls    map[string]int
	trips    []*Trip
	readErr  error
	writeErr error
}

func newFakeModel(trips ...*Trip) *fakeModel {
	return &fakeModel{calls: map[string]int{}, trips: trips}
}

func (m *fakeModel) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
}

func (m *fakeModel) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *fakeModel) snapshot() []*Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Trip, len(m.trips))
	copy(out, m.trips)
	return out
}

func (m *fakeModel) FindMany(ctx context.Context, args query.Args) ([]*Trip, error) {
	m.record("FindMany")
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.snapshot(), nil
}

func (m *fakeModel) FindFirst(ctx context.Context, args query.Args) (*Trip, error) {
	m.record("FindFirst")
	if m.readErr != nil {
		return nil, m.readErr
	}
	trips := m.snapshot()
	if len(trips) == 0 {
		return nil, nil
	}
	return trips[0], nil
}

func (m *fakeModel) FindUnique(ctx context.Context, args query.Args) (*Trip, error) {
	m.record("FindUnique")
	if m.readErr != nil {
		return nil, m.readErr
	}
	for _, t := range m.snapshot() {
		if fmt.Sprint(t.ID) == fmt.Sprint(args.Where["id"]) {
			return t, nil
		}
	}
	return nil, nil
}

func (m *fakeModel) Count(ctx context.Context, args query.Args) (int, error) {
	m.record("Count")
	if m.readErr != nil {
		return 0, m.readErr
	}
	return len(m.snapshot()), nil
}

func (m *fakeModel) Aggregate(ctx context.Context, args query.AggregateArgs) (query.Row, error) {
	m.record("Aggregate")
	if m.readErr != nil {
		return nil, m.readErr
	}
	var sum float64
	trips := m.snapshot()
	for _, t := range trips {
		sum += t.Fare
	}
	return query.Row{query.AggCount: len(trips), query.AggSum: map[string]any{"fare": sum}}, nil
}

func (m *fakeModel) GroupBy(ctx context.Context, args query.GroupByArgs) ([]query.Row, error) {
	m.record("GroupBy")
	if m.readErr != nil {
		return nil, m.readErr
	}
	counts := map[int64]int{}
	var order []int64
	for _, t := range m.snapshot() {
		if _, seen := counts[t.DriverID]; !seen {
			order = append(order, t.DriverID)
		}
		counts[t.DriverID]++
	}
	rows := make([]query.Row, 0, len(order))
	for _, id := range order {
		rows = append(rows, query.Row{"driver_id": id, query.AggCount: counts[id]})
	}
	return rows, nil
}

func (m *fakeModel) write(method string) error {
	m.record(method)
	return m.writeErr
}

func (m *fakeModel) Create(ctx context.Context, record *Trip) (*Trip, error) {
	if err := m.write("Create"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = append(m.trips, record)
	return record, nil
}

func (m *fakeModel) CreateMany(ctx context.Context, records []*Trip) ([]*Trip, error) {
	if err := m.write("CreateMany"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = append(m.trips, records...)
	return records, nil
}

func (m *fakeModel) Update(ctx context.Context, record *Trip) (*Trip, error) {
	if err := m.write("Update"); err != nil {
		return nil, err
	}
	return record, nil
}

func (m *fakeModel) UpdateMany(ctx context.Context, records []*Trip) ([]*Trip, error) {
	if err := m.write("UpdateMany"); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *fakeModel) Upsert(ctx context.Context, record *Trip) (*Trip, error) {
	if err := m.write("Upsert"); err != nil {
		return nil, err
	}
	return record, nil
}

func (m *fakeModel) Delete(ctx context.Context, record *Trip) error {
	return m.write("Delete")
}

func (m *fakeModel) DeleteMany(ctx context.Context, args query.Args) error {
	return m.write("DeleteMany")
}

func newTestCache(t *testing.T) cache.CacheService {
	t.Helper()
	store, err := cache.NewMemoryStore(cache.DefaultMemoryConfig())
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	svc, err := cache.NewCacheService(store, cache.DefaultConfig(), cache.WithLogger(logger))
	require.NoError(t, err)
	return svc
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedTrips(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `CREATE TABLE trips (id INTEGER PRIMARY KEY, driver_id INTEGER, status TEXT, fare REAL)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO trips (id, driver_id, status, fare) VALUES
		(1, 7, 'done', 10.5),
		(2, 7, 'done', 4.5),
		(3, 8, 'done', 20),
		(4, 8, 'active', 3)`)
	require.NoError(t, err)
}
