// Package rediset builds lazily evaluated set-algebra expressions over sets
// and sorted sets held in a key-value store with native set types (Redis).
//
// Components:
//   - Set / SortedSet: leaf nodes wrapping a user-named key. The source of
//     truth; mutated directly with Add/Remove.
//   - Union / Intersection / Difference: operation nodes. Derived data cached
//     in the store under a key hashed from the operation and its children.
//   - Store: the backing store (store/redis, store/memory).
//
// Building a tree never touches the store. Reading a node (Size, Contains,
// Members, Range...) first makes sure its result is materialized: the tree
// is walked bottom-up, and any operation whose cached result is still live
// stops the descent. A missing result is computed server-side from its
// children and stored with the node's TTL. Reads may therefore write.
//
// Keys:
//
//	<prefix>:<name>                   - leaf sets (verbatim)
//	<prefix>:rediset:<digest>         - operation results
//	<prefix>:rediset:cached:<digest>  - live-cache markers
//
// Example:
//
//	rs, _ := rediset.New(rediset.Options{Store: st, KeyPrefix: "app"})
//	both, _ := rs.Intersection("nirvana", "foo_fighters", rediset.CacheFor(time.Minute))
//	members, err := both.Members(ctx)
package rediset
