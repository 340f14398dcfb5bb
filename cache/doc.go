// Package cache implements cache-aside reads over a key-value store.
//
// # Overview
//
// The package exports a CacheService and the pieces it is built from:
//
//   - Store: the key-value backend (Redis in production, sturdyc in-process)
//   - KeyDeriver: builds stable keys from a Lookup and the call Options
//   - Codec: encodes cached values (JSON by default, MessagePack optional)
//
// # Keys
//
// Keys have the form
//
//	{prefix}:{resource}:{operation}:{identity}[:{digest}]
//
// The resource is lower-cased and the identity defaults to "guest". The digest
// is an xxhash of the canonical form of the relevant arguments (where, skip,
// take, cursor, orderBy, select, include, distinct). Map keys are sorted
// before hashing, so two argument sets that differ only in key order share a
// cache entry. Lookups without relevant arguments get no digest segment.
//
// # Basic Usage
//
//	store := cache.NewRedisStore(redisClient)
//	svc, err := cache.NewCacheService(store, cache.DefaultConfig())
//
//	trips, err := cache.GetOrSet(ctx, svc, cache.Lookup{
//		Resource:  "trip",
//		Operation: "findMany",
//		Identity:  userID,
//		Args:      args,
//	}, func(ctx context.Context) ([]Trip, error) {
//		return repo.FindMany(ctx, args)
//	})
//
// # Failure Handling
//
// The cache is an optimisation. Store failures are logged and counted in
// Stats.Errors; reads degrade to a fallback call and writes to a no-op. Only
// errors from the fallback itself reach the caller, and they are never cached.
//
// # Invalidation
//
// Invalidate removes keys by glob pattern, by default every key of a resource
// under the configured prefix. The repositorycache package calls it after
// successful writes.
package cache
