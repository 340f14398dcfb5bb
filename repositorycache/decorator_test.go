package repositorycache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phucquyet1202/EtaxiBE/cache"
	"github.com/phucquyet1202/EtaxiBE/query"
)

func activeTrips() query.Args {
	return query.Args{Where: query.Where{"status": "active"}}.WithTake(10)
}

func TestNew(t *testing.T) {
	base := newFakeModel()
	cached := New[*Trip]("Trip", base, newTestCache(t))

	assert.Equal(t, "Trip", cached.Resource())
	assert.Same(t, base, cached.Base().(*fakeModel))
}

func TestCachedModel_ReadsAreCachedPerOperation(t *testing.T) {
	base := newFakeModel(&Trip{ID: 1, DriverID: 7, Status: "active", Fare: 12})
	cached := New[*Trip]("trip", base, newTestCache(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		trips, err := cached.FindMany(ctx, "u42", activeTrips())
		require.NoError(t, err)
		require.Len(t, trips, 1)
		assert.Equal(t, int64(1), trips[0].ID)

		first, err := cached.FindFirst(ctx, "u42", activeTrips())
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.ID)

		unique, err := cached.FindUnique(ctx, "u42", query.Args{Where: query.Where{"id": 1}})
		require.NoError(t, err)
		assert.Equal(t, 12.0, unique.Fare)

		n, err := cached.Count(ctx, "u42", activeTrips())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	for _, method := range []string{"FindMany", "FindFirst", "FindUnique", "Count"} {
		assert.Equal(t, 1, base.count(method), method)
	}
}

func TestCachedModel_AggregatesAreCached(t *testing.T) {
	base := newFakeModel(&Trip{ID: 1, DriverID: 7, Fare: 10}, &Trip{ID: 2, DriverID: 7, Fare: 5})
	cached := New[*Trip]("trip", base, newTestCache(t))
	ctx := context.Background()

	args := query.AggregateArgs{Count: true, Sum: []string{"fare"}}
	fresh, err := cached.Aggregate(ctx, "", args)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh[query.AggCount])

	hit, err := cached.Aggregate(ctx, "", args)
	require.NoError(t, err)
	assert.Equal(t, float64(2), hit[query.AggCount])
	assert.Equal(t, map[string]any{"fare": float64(15)}, hit[query.AggSum])
	assert.Equal(t, 1, base.count("Aggregate"))

	_, err = cached.Aggregate(ctx, "", query.AggregateArgs{Count: true})
	require.NoError(t, err)
	assert.Equal(t, 2, base.count("Aggregate"), "a different aggregate selection is a different entry")

	groupArgs := query.GroupByArgs{AggregateArgs: query.AggregateArgs{Count: true}, By: []string{"driver_id"}}
	for i := 0; i < 2; i++ {
		rows, err := cached.GroupBy(ctx, "", groupArgs)
		require.NoError(t, err)
		require.Len(t, rows, 1)
	}
	assert.Equal(t, 1, base.count("GroupBy"))
}

func TestCachedModel_IdentitySeparatesEntries(t *testing.T) {
	base := newFakeModel(&Trip{ID: 1})
	cached := New[*Trip]("trip", base, newTestCache(t))
	ctx := context.Background()

	_, _ = cached.FindMany(ctx, "u1", activeTrips())
	_, _ = cached.FindMany(ctx, "u2", activeTrips())
	_, _ = cached.FindMany(ctx, "", activeTrips())
	_, _ = cached.FindMany(ctx, "u1", activeTrips())

	assert.Equal(t, 3, base.count("FindMany"))
}

func TestCachedModel_NotFoundIsCached(t *testing.T) {
	base := newFakeModel()
	cached := New[*Trip]("trip", base, newTestCache(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := cached.FindUnique(ctx, "u1", query.Args{Where: query.Where{"id": 99}})
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, 1, base.count("FindUnique"))
}

func TestCachedModel_ReadErrorsPropagateAndAreNotCached(t *testing.T) {
	base := newFakeModel()
	base.readErr = errors.New("connection refused")
	svc := newTestCache(t)
	cached := New[*Trip]("trip", base, svc)
	ctx := context.Background()

	_, err := cached.FindMany(ctx, "u1", activeTrips())
	assert.ErrorIs(t, err, base.readErr)

	base.readErr = nil
	_, err = cached.FindMany(ctx, "u1", activeTrips())
	require.NoError(t, err)
	assert.Equal(t, 2, base.count("FindMany"))
	assert.Equal(t, int64(1), svc.Stats().Sets)
}

func TestCachedModel_Bypass(t *testing.T) {
	base := newFakeModel(&Trip{ID: 1})
	svc := newTestCache(t)
	cached := New[*Trip]("trip", base, svc)
	ctx := context.Background()

	withTx := activeTrips().WithTx(newTestDB(t))
	_, _ = cached.FindMany(ctx, "u1", withTx)
	_, _ = cached.FindMany(ctx, "u1", withTx)

	bypass := WithoutCache(ctx)
	_, _ = cached.Count(bypass, "u1", activeTrips())
	_, _ = cached.Count(bypass, "u1", activeTrips())

	_, _ = cached.Count(ctx, "u1", activeTrips(), cache.Disabled())

	assert.Equal(t, 2, base.count("FindMany"))
	assert.Equal(t, 3, base.count("Count"))
	assert.Equal(t, cache.Stats{}, svc.Stats())
}

func TestCachedModel_CreateInvalidatesResource(t *testing.T) {
	base := newFakeModel(&Trip{ID: 1, Status: "active"})
	svc := newTestCache(t)
	cached := New[*Trip]("Trip", base, svc)
	ctx := context.Background()

	first, err := cached.FindMany(ctx, "u42", activeTrips())
	require.NoError(t, err)
	assert.Len(t, first, 1)
	_, _ = cached.FindMany(ctx, "u42", activeTrips())
	assert.Equal(t, 1, base.count("FindMany"))

	_, err = cached.Create(ctx, &Trip{ID: 2, Status: "active"})
	require.NoError(t, err)

	refreshed, err := cached.FindMany(ctx, "u42", activeTrips())
	require.NoError(t, err)
	assert.Len(t, refreshed, 2)
	assert.Equal(t, 2, base.count("FindMany"))
	assert.Equal(t, int64(1), svc.Stats().Deletes)
}

func TestCachedModel_EveryWriteInvalidates(t *testing.T) {
	writes := map[string]func(c *CachedModel[*Trip]) error{
		"Create": func(c *CachedModel[*Trip]) error {
			_, err := c.Create(context.Background(), &Trip{ID: 5})
			return err
		},
		"CreateMany": func(c *CachedModel[*Trip]) error {
			_, err := c.CreateMany(context.Background(), []*Trip{{ID: 5}})
			return err
		},
		"Update": func(c *CachedModel[*Trip]) error {
			_, err := c.Update(context.Background(), &Trip{ID: 1})
			return err
		},
		"UpdateMany": func(c *CachedModel[*Trip]) error {
			_, err := c.UpdateMany(context.Background(), []*Trip{{ID: 1}})
			return err
		},
		"Upsert": func(c *CachedModel[*Trip]) error {
			_, err := c.Upsert(context.Background(), &Trip{ID: 1})
			return err
		},
		"Delete": func(c *CachedModel[*Trip]) error {
			return c.Delete(context.Background(), &Trip{ID: 1})
		},
		"DeleteMany": func(c *CachedModel[*Trip]) error {
			return c.DeleteMany(context.Background(), query.Args{Where: query.Where{"status": "done"}})
		},
	}

	for name, write := range writes {
		t.Run(name, func(t *testing.T) {
			base := newFakeModel(&Trip{ID: 1})
			cached := New[*Trip]("trip", base, newTestCache(t))
			ctx := context.Background()

			_, _ = cached.Count(ctx, "u1", query.Args{})
			require.NoError(t, write(cached))
			_, _ = cached.Count(ctx, "u1", query.Args{})

			assert.Equal(t, 2, base.count("Count"))
		})

		t.Run(name+" failure keeps cache", func(t *testing.T) {
			base := newFakeModel(&Trip{ID: 1})
			base.writeErr = errWriteFailed
			svc := newTestCache(t)
			cached := New[*Trip]("trip", base, svc)
			ctx := context.Background()

			_, _ = cached.Count(ctx, "u1", query.Args{})
			assert.ErrorIs(t, write(cached), errWriteFailed)
			_, _ = cached.Count(ctx, "u1", query.Args{})

			assert.Equal(t, 1, base.count("Count"))
			assert.Equal(t, int64(0), svc.Stats().Deletes)
		})
	}
}

func TestCachedModel_WithInvalidatePattern(t *testing.T) {
	base := newFakeModel(&Trip{ID: 1})
	cached := New[*Trip]("trip", base, newTestCache(t))
	ctx := context.Background()

	_, _ = cached.FindMany(ctx, "u1", activeTrips())
	_, _ = cached.Count(ctx, "u1", activeTrips())

	_, err := cached.Update(ctx, &Trip{ID: 1}, WithInvalidatePattern("cache:trip:count:*"))
	require.NoError(t, err)

	_, _ = cached.FindMany(ctx, "u1", activeTrips())
	_, _ = cached.Count(ctx, "u1", activeTrips())

	assert.Equal(t, 1, base.count("FindMany"), "findMany entry is outside the pattern")
	assert.Equal(t, 2, base.count("Count"))
}

func TestCachedModel_InvalidationIsScopedToResource(t *testing.T) {
	svc := newTestCache(t)
	trips := New[*Trip]("trip", newFakeModel(&Trip{ID: 1}), svc)
	driversBase := newFakeModel(&Trip{ID: 9})
	drivers := New[*Trip]("driver", driversBase, svc)
	ctx := context.Background()

	_, _ = drivers.Count(ctx, "u1", query.Args{})
	_, err := trips.Create(ctx, &Trip{ID: 2})
	require.NoError(t, err)
	_, _ = drivers.Count(ctx, "u1", query.Args{})

	assert.Equal(t, 1, driversBase.count("Count"))
}
