// Package cachehandler orchestrates query execution against the shared
// cache: it splits an incoming query into the part answerable from cached
// entries and a residual operation, forwards only the residual upstream,
// seeds the cache from the response's cache-control hints, and merges both
// result sets into the final response.
package cachehandler

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cacheql/gqlcache/decompose"
	"github.com/cacheql/gqlcache/graphql"
	"github.com/cacheql/gqlcache/graphqlerr"
	"github.com/cacheql/gqlcache/jsonvalue"
	"github.com/cacheql/gqlcache/logger"
	"github.com/cacheql/gqlcache/ttlcache"
	"golang.org/x/sync/errgroup"
)

// Forwarder sends an operation upstream and returns the raw response body.
// The operation and variables travel back with it so the handler can
// re-traverse the exact query that produced the response.
type Forwarder func(ctx context.Context, op *graphql.Operation, variables map[string]interface{}) ([]byte, *graphql.Operation, map[string]interface{}, error)

// Handler executes operations against a cache and an upstream forwarder.
type Handler struct {
	Cache ttlcache.Cache
	Log   logger.Logger
}

// Result is the outcome of one execution.
type Result struct {
	// Response is the JSON value to serve, shaped {"data": ...} for
	// queries and verbatim upstream output for pass-through operations.
	Response interface{}
	// Forwarded reports whether the upstream was consulted.
	Forwarded bool
}

// Execute runs one operation. Mutations and subscriptions pass through
// untouched; queries are answered from the cache as far as possible, with
// only the residual forwarded. userID scopes PRIVATE cache entries; empty
// means anonymous.
func (h *Handler) Execute(
	ctx context.Context,
	op *graphql.Operation,
	fragments map[string]*graphql.FragmentDefinition,
	variables map[string]interface{},
	userID string,
	forward Forwarder,
) (*Result, error) {
	if op.Type != graphql.OperationQuery {
		body, _, _, err := forward(ctx, op, variables)
		if err != nil {
			return nil, graphqlerr.Wrap(graphqlerr.KindUpstream, err, "forwarding %s", op.Type)
		}
		var response interface{}
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, graphqlerr.Wrap(graphqlerr.KindUpstream, err, "decoding %s response", op.Type)
		}
		return &Result{Response: response, Forwarded: true}, nil
	}

	expanded, err := graphql.ExpandOperation(op, fragments)
	if err != nil {
		return nil, err
	}

	cached := h.lookupCandidates(ctx, expanded, variables, userID)

	cachedResult := map[string]interface{}{}
	var residualFields []*graphql.Field
	for _, field := range expanded.SubFields {
		residual, fromCache := matchFieldWithCache(field, variables, cached)
		if residual != nil {
			residualFields = append(residualFields, residual)
		}
		if fromCache != nil {
			cachedResult[field.ResponseKey()] = fromCache
		}
	}

	if len(residualFields) == 0 {
		return &Result{Response: map[string]interface{}{"data": cachedResult}}, nil
	}

	residualOp := (&graphql.Operation{
		Type:      expanded.Type,
		Name:      expanded.Name,
		Variables: expanded.Variables,
		SubFields: residualFields,
	}).Deduplicate()

	body, sentOp, sentVariables, err := forward(ctx, residualOp, variables)
	if err != nil {
		return nil, graphqlerr.Wrap(graphqlerr.KindUpstream, err, "forwarding residual query")
	}

	response, err := decompose.Parse(body)
	if err != nil {
		return nil, graphqlerr.Wrap(graphqlerr.KindUpstream, err, "decomposing upstream response")
	}

	data, hints := response.CompressHints()
	h.seedCache(ctx, hints, sentOp, sentVariables, userID)

	// The response must reflect the client's alias choices even where
	// deduplication collapsed fields before forwarding; cached values win
	// on overlap because their tree shape is at least as complete.
	realiased := realiasData(data, residualFields, sentOp.SubFields)
	merged := jsonvalue.Merge(realiased, cachedResult)
	return &Result{Response: map[string]interface{}{"data": merged}, Forwarded: true}, nil
}

// lookupCandidates enumerates every cacheable sub-path of the operation,
// fetches all candidate keys (and their private variants) concurrently,
// and merges each key's payloads into one value: public first, then
// private, so private data wins on overlap.
func (h *Handler) lookupCandidates(ctx context.Context, op *graphql.Operation, variables map[string]interface{}, userID string) map[string]interface{} {
	var keys []string
	seen := map[string]bool{}
	for _, field := range op.SubFields {
		for _, chain := range cacheableChains(field) {
			key := chainCacheKey(chain, variables)
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	if len(keys) == 0 {
		return nil
	}

	fetch := keys
	if userID != "" {
		fetch = make([]string, 0, 2*len(keys))
		for _, key := range keys {
			fetch = append(fetch, key, privateCacheKey(userID, key))
		}
	}

	payloads := h.fetch(ctx, fetch)

	merged := map[string]interface{}{}
	for _, key := range keys {
		value, ok := foldPayloads(nil, payloads[key], false)
		if userID != "" {
			value, ok = foldPayloads(value, payloads[privateCacheKey(userID, key)], ok)
		}
		if ok {
			merged[key] = value
		}
	}
	return merged
}

func foldPayloads(value interface{}, payloads []interface{}, have bool) (interface{}, bool) {
	for _, p := range payloads {
		if !have {
			value, have = p, true
			continue
		}
		value = jsonvalue.Merge(value, p)
	}
	return value, have
}

// fetch issues all cache reads for a request. Backends that can pipeline
// answer in one round trip; otherwise the keys are fetched concurrently.
// Read failures degrade to misses.
func (h *Handler) fetch(ctx context.Context, keys []string) map[string][]interface{} {
	if mg, ok := h.Cache.(ttlcache.MultiGetter); ok {
		results, err := mg.GetMulti(ctx, keys)
		if err != nil {
			h.Log.Warn("cache read failed, treating as miss", "keys", len(keys), "error", err)
			return nil
		}
		return results
	}

	results := make([][]interface{}, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			values, err := h.Cache.Get(gctx, key)
			if err != nil {
				h.Log.Warn("cache read failed, treating as miss", "key", key, "error", err)
				return nil
			}
			results[i] = values
			return nil
		})
	}
	_ = g.Wait()

	merged := make(map[string][]interface{}, len(keys))
	for i, key := range keys {
		if len(results[i]) > 0 {
			merged[key] = results[i]
		}
	}
	return merged
}

// cacheableChains enumerates the cacheable sub-paths of a top-level field:
// the field itself, plus every root-to-field chain ending in a field that
// carries arguments.
func cacheableChains(field *graphql.Field) [][]*graphql.Field {
	chains := [][]*graphql.Field{{field}}
	stack := []*graphql.Field{field}
	for _, sub := range field.SubFields {
		walkParametered(sub, &stack, &chains)
	}
	return chains
}

func walkParametered(field *graphql.Field, stack *[]*graphql.Field, chains *[][]*graphql.Field) {
	*stack = append(*stack, field)
	if field.HasParameters() {
		*chains = append(*chains, append([]*graphql.Field(nil), *stack...))
	}
	for _, sub := range field.SubFields {
		walkParametered(sub, stack, chains)
	}
	*stack = (*stack)[:len(*stack)-1]
}

// matchFieldWithCache splits one top-level field into the subfields the
// merged cache value satisfies and a residual copy of the rest.
func matchFieldWithCache(field *graphql.Field, variables map[string]interface{}, cached map[string]interface{}) (*graphql.Field, interface{}) {
	key := fieldCacheKey(field, variables)
	var root interface{}
	if v, ok := cached[key]; ok {
		root = jsonvalue.Copy(v)
	}
	return matchFieldRecursive([]string{key}, field, variables, root, cached)
}

// matchFieldRecursive walks field against its cached value. stack holds
// the cache keys of the chain down to field, so parametered subfields can
// be resolved against their own deep cache entries.
func matchFieldRecursive(stack []string, field *graphql.Field, variables map[string]interface{}, cachedValue interface{}, cached map[string]interface{}) (*graphql.Field, interface{}) {
	if field.IsLeaf() {
		if compatibleLeafValue(cachedValue) {
			return nil, cachedValue
		}
		return field.Clone(), nil
	}

	cacheMap, _ := cachedValue.(map[string]interface{})

	// Parameterless subfields sharing a name must clone the cached value
	// instead of consuming it, so every alias of the same field sees it.
	nameCount := map[string]int{}
	for _, sub := range field.SubFields {
		if !sub.HasParameters() {
			nameCount[sub.Name]++
		}
	}

	valueFromCache := map[string]interface{}{}
	var residualSubfields []*graphql.Field

	for _, sub := range field.SubFields {
		var fromCache interface{}

		if sub.HasParameters() {
			deepKey := strings.Join(stack, "+") + "+" + fieldCacheKey(sub, variables)
			if v, ok := cached[deepKey]; ok {
				fromCache = jsonvalue.Copy(v)
			}
		} else if cacheMap != nil {
			if nameCount[sub.Name] > 1 {
				nameCount[sub.Name]--
				if v, ok := cacheMap[sub.Name]; ok {
					fromCache = jsonvalue.Copy(v)
				}
			} else if v, ok := cacheMap[sub.Name]; ok {
				fromCache = v
				delete(cacheMap, sub.Name)
			}
		}

		residual, value := matchFieldRecursive(append(stack, fieldCacheKey(sub, variables)), sub, variables, fromCache, cached)
		if residual != nil {
			residualSubfields = append(residualSubfields, residual)
		}
		if value != nil {
			valueFromCache[sub.ResponseKey()] = value
		}
	}

	var residual *graphql.Field
	if len(residualSubfields) > 0 {
		clone := field.Clone()
		clone.SubFields = residualSubfields
		residual = clone
	}
	if len(valueFromCache) == 0 {
		return residual, nil
	}
	return residual, valueFromCache
}

// compatibleLeafValue accepts the JSON shapes a leaf selection can carry:
// scalars, or arrays whose elements are not objects.
func compatibleLeafValue(v interface{}) bool {
	switch v := v.(type) {
	case string, bool, float64, json.Number:
		return true
	case []interface{}:
		if len(v) == 0 {
			return false
		}
		_, isObject := v[0].(map[string]interface{})
		return !isObject
	default:
		return false
	}
}
