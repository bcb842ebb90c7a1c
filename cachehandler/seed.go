package cachehandler

import (
	"context"
	"sort"

	"github.com/cacheql/gqlcache/decompose"
	"github.com/cacheql/gqlcache/graphql"
	"github.com/cacheql/gqlcache/jsonvalue"
)

// seedCache writes every compressed hint back into the cache. Each hint's
// value is split along the cacheable chains beneath its field, deepest
// first, so parametered subtrees land under their own deep keys and are
// removed from their ancestors before those are stored. PRIVATE hints go
// under the user-scoped key; anonymous requests drop them. Insert failures
// only cost hit rate, so they are logged and swallowed.
func (h *Handler) seedCache(ctx context.Context, hints []decompose.Entry, op *graphql.Operation, variables map[string]interface{}, userID string) {
	for _, entry := range hints {
		if len(entry.Hint.Path) == 0 {
			continue
		}
		ancestors, field, ok := op.Traverse(entry.Hint.Path)
		if !ok {
			continue
		}

		for _, pair := range cacheValues(ancestors, field, variables, entry.Value) {
			key := pair.key
			if entry.Hint.Scope == graphql.ScopePrivate {
				if userID == "" {
					continue
				}
				key = privateCacheKey(userID, key)
			}
			if err := h.Cache.Insert(ctx, key, entry.Hint.MaxAge, pair.value); err != nil {
				h.Log.Warn("cache insert failed", "key", key, "error", err)
			}
		}
	}
}

type keyedValue struct {
	key   string
	value interface{}
}

// cacheValues splits a hint's value into (cache key, payload) pairs. The
// value arrives as a skeleton rooted at the top of the response; each
// chain's subtree is extracted destructively, deepest chains first, so no
// payload is stored twice. Payloads are de-aliased before storage: cache
// contents are keyed by field names, never by client-chosen aliases.
func cacheValues(ancestors []*graphql.Field, field *graphql.Field, variables map[string]interface{}, value interface{}) []keyedValue {
	chains := seedChains(ancestors, field)
	sort.SliceStable(chains, func(i, j int) bool { return len(chains[i]) > len(chains[j]) })

	var pairs []keyedValue
	for _, chain := range chains {
		path := make([]string, len(chain))
		for i, f := range chain {
			path[i] = f.ResponseKey()
		}
		extracted, ok := jsonvalue.ExtractMut(value, path)
		if !ok {
			continue
		}
		dealiasValue(extracted, chain[len(chain)-1])
		pairs = append(pairs, keyedValue{key: chainCacheKey(chain, variables), value: extracted})
	}
	return pairs
}

// seedChains enumerates the chains to store for one hinted field: every
// chain (from the top-level field down) ending in a parametered field at or
// below the hinted field, plus the bare top-level field whenever the hinted
// field itself carries no arguments.
func seedChains(ancestors []*graphql.Field, field *graphql.Field) [][]*graphql.Field {
	var chains [][]*graphql.Field
	stack := append(append([]*graphql.Field(nil), ancestors...), field)

	var walk func(f *graphql.Field)
	walk = func(f *graphql.Field) {
		if f.HasParameters() {
			chains = append(chains, append([]*graphql.Field(nil), stack...))
		}
		if len(chains) == 0 {
			chains = append(chains, []*graphql.Field{stack[0]})
		}
		for _, sub := range f.SubFields {
			stack = append(stack, sub)
			walk(sub)
			stack = stack[:len(stack)-1]
		}
	}
	walk(field)

	return chains
}

// dealiasValue rewrites the response keys inside value to the underlying
// field names, following the field's selection. Arrays distribute over
// their elements.
func dealiasValue(value interface{}, field *graphql.Field) {
	switch v := value.(type) {
	case map[string]interface{}:
		for _, sub := range field.SubFields {
			subValue, ok := v[sub.ResponseKey()]
			if !ok {
				continue
			}
			dealiasValue(subValue, sub)
			if sub.ResponseKey() != sub.Name {
				delete(v, sub.ResponseKey())
				v[sub.Name] = subValue
			}
		}
	case []interface{}:
		for _, item := range v {
			dealiasValue(item, field)
		}
	}
}
