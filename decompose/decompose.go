// Package decompose parses an upstream GraphQL response together with its
// Apollo-style cacheControl extension and compresses the per-path hints
// into independently cacheable (value, hint) records.
//
// Compression walks the hints in lexicographic path order through a stack,
// so every hint is visited after its ancestors. Missing scope or max-age is
// inherited from the nearest ancestor still on the stack; a hint whose
// effective (scope, max-age) matches an entry already on the stack folds
// its value into that entry instead of producing a record of its own,
// which cuts cache write amplification without changing coverage.
package decompose

import (
	"encoding/json"
	"sort"

	"github.com/cacheql/gqlcache/graphql"
	"github.com/cacheql/gqlcache/jsonvalue"
	"github.com/samsarahq/go/oops"
)

// Entry pairs a compressed hint with the response subtree it governs. The
// value is a skeleton object rooted at the top of the response, so it stays
// addressable by the hint's own path.
type Entry struct {
	Value interface{}
	Hint  graphql.CacheHint
}

// Response is a decoded upstream GraphQL response.
type Response struct {
	Data       interface{}
	Errors     interface{}
	Extensions *Extensions
}

// Extensions carries the cacheControl block; other extension keys are
// ignored.
type Extensions struct {
	CacheControl *CacheControl `json:"cacheControl"`
}

// CacheControl is the Apollo cache-control extension payload.
type CacheControl struct {
	Version int       `json:"version"`
	Hints   []HintDto `json:"hints"`
}

// HintDto is the wire shape of a single hint, before inheritance fills in
// missing fields.
type HintDto struct {
	Path   []string `json:"path"`
	MaxAge *uint16  `json:"maxAge"`
	Scope  *string  `json:"scope"`
}

// Parse decodes raw upstream response bytes.
func Parse(raw []byte) (*Response, error) {
	var wire struct {
		Data       interface{} `json:"data"`
		Errors     interface{} `json:"errors"`
		Extensions *Extensions `json:"extensions"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, oops.Wrapf(err, "decoding upstream response")
	}
	return &Response{Data: wire.Data, Errors: wire.Errors, Extensions: wire.Extensions}, nil
}

// CompressHints returns the response data together with the compressed
// hint records. The data itself is returned unmodified; hinted subtrees are
// copied out, with each descendant hint's subtree removed from its
// ancestor's copy so no value is recorded twice. Hints whose paths do not
// resolve in the data are dropped.
func (r *Response) CompressHints() (interface{}, []Entry) {
	if r.Extensions == nil || r.Extensions.CacheControl == nil || len(r.Extensions.CacheControl.Hints) == 0 {
		return r.Data, nil
	}

	hints := append([]HintDto(nil), r.Extensions.CacheControl.Hints...)
	sort.SliceStable(hints, func(i, j int) bool { return lessPath(hints[i].Path, hints[j].Path) })

	var compressed []Entry
	var stack []Entry

	for _, hint := range hints {
		scope, maxAge, flushed := popToAncestor(&stack, hint.Path)
		compressed = append(compressed, flushed...)

		value, ok := jsonvalue.Extract(r.Data, hint.Path)
		if !ok {
			continue
		}

		if hint.Scope != nil {
			scope = scopeFromWire(*hint.Scope)
		}
		if hint.MaxAge != nil {
			maxAge = *hint.MaxAge
		}

		pushFolding(&stack, value, graphql.CacheHint{Path: hint.Path, MaxAge: maxAge, Scope: scope})
	}

	for _, entry := range stack {
		if entry.Value != nil {
			compressed = append(compressed, entry)
		}
	}

	return r.Data, compressed
}

// popToAncestor pops stack entries until the top is an ancestor of path,
// returning the inherited (scope, maxAge) from that ancestor plus the
// popped entries that carry a real value, in pop order. Entries that remain
// ancestors have the new hint's subtree removed from their partial value so
// it is not counted twice.
func popToAncestor(stack *[]Entry, path []string) (graphql.CacheScope, uint16, []Entry) {
	var flushed []Entry
	for len(*stack) > 0 {
		top := (*stack)[len(*stack)-1]
		if isPrefix(top.Hint.Path, path) {
			for i := range *stack {
				if (*stack)[i].Value != nil {
					(*stack)[i].Value = jsonvalue.RemoveField((*stack)[i].Value, path)
				}
			}
			return top.Hint.Scope, top.Hint.MaxAge, flushed
		}
		*stack = (*stack)[:len(*stack)-1]
		if top.Value != nil {
			flushed = append(flushed, top)
		}
	}
	return graphql.ScopePublic, 0, flushed
}

// pushFolding pushes (value, hint), folding the value into an existing
// stack entry with identical scope and max-age. A nil-valued sentinel keeps
// the stack depth aligned with the hint hierarchy either way.
func pushFolding(stack *[]Entry, value interface{}, hint graphql.CacheHint) {
	for i := len(*stack) - 1; i >= 0; i-- {
		if (*stack)[i].Hint.MaxAge == hint.MaxAge && (*stack)[i].Hint.Scope == hint.Scope {
			(*stack)[i].Value = jsonvalue.Merge((*stack)[i].Value, value)
			*stack = append(*stack, Entry{Value: nil, Hint: hint})
			return
		}
	}
	*stack = append(*stack, Entry{Value: value, Hint: hint})
}

func scopeFromWire(s string) graphql.CacheScope {
	if s == "PRIVATE" {
		return graphql.ScopePrivate
	}
	return graphql.ScopePublic
}

func isPrefix(prefix, path []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if prefix[i] != path[i] {
			return false
		}
	}
	return true
}

func lessPath(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
