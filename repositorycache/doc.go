// Package repositorycache adds cache-aside reads and write invalidation to
// data-access models.
//
// # Overview
//
// A Model[T] is the read and write surface of one resource (findMany,
// findFirst, findUnique, count, aggregate, groupBy and the usual writes).
// CachedModel[T] decorates a Model: reads are served from a cache.CacheService
// keyed by resource, operation, caller identity and arguments, and every
// successful write drops the resource's cached reads.
//
// RepositoryModel[T] adapts a go-repository-bun repository to Model.
// Aggregates and groupings run as bun queries against the resource's table,
// the snake_case plural of its name unless WithTable says otherwise.
//
// # Basic Usage
//
//	facade := repositorycache.NewFacade(svc, db)
//	trips, err := repositorycache.Register[*Trip](facade, "Trip",
//		repositorycache.NewRepositoryModel("Trip", tripRepo, db))
//
//	active, err := trips.FindMany(ctx, userID, query.Args{
//		Where: query.Where{"status": "active"},
//	})
//
// Pass cache options per call, e.g. cache.WithTTL or cache.Disabled, after
// the arguments. WithoutCache(ctx) skips the cache for everything run with
// that context.
//
// # Transactions
//
// Reads carrying args.Tx, or made with a context from Facade.RunInTx, go
// straight to the model. Writes inside RunInTx queue their invalidations and
// apply them once the transaction commits; a rollback discards them.
//
// # Invalidation
//
// By default a write removes every key under {prefix}:{resource}:*.
// WithInvalidatePattern narrows that to a glob. Facade.InvalidateModel and
// Facade.InvalidateAll do the same on demand.
package repositorycache
