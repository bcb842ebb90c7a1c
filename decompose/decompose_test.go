package decompose

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/cacheql/gqlcache/graphql"
	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *Response {
	t.Helper()
	r, err := Parse([]byte(raw))
	require.NoError(t, err)
	return r
}

func jsonEq(t *testing.T, want string, got interface{}) {
	t.Helper()
	var w interface{}
	require.NoError(t, json.Unmarshal([]byte(want), &w))
	if diff := pretty.Compare(got, w); diff != "" {
		t.Errorf("json diff: %s", diff)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	assert.Error(t, err)
}

func TestCompressWithoutExtensions(t *testing.T) {
	r := mustParse(t, `{"data":{"a":1}}`)
	data, entries := r.CompressHints()
	jsonEq(t, `{"a":1}`, data)
	assert.Empty(t, entries)
}

func TestCompressSingleHint(t *testing.T) {
	r := mustParse(t, `{
		"data": {"field1": {"sub": 5}},
		"extensions": {"cacheControl": {"version": 1, "hints": [
			{"path": ["field1"], "maxAge": 100}
		]}}
	}`)

	data, entries := r.CompressHints()
	jsonEq(t, `{"field1":{"sub":5}}`, data)
	require.Len(t, entries, 1)
	assert.Equal(t, graphql.CacheHint{Path: []string{"field1"}, MaxAge: 100, Scope: graphql.ScopePublic}, entries[0].Hint)
	jsonEq(t, `{"field1":{"sub":5}}`, entries[0].Value)
}

func TestCompressRemovesDescendantsFromAncestors(t *testing.T) {
	r := mustParse(t, `{
		"data": {"field1": {"subfield1": 55, "subfield2": 777, "priv": 111}},
		"extensions": {"cacheControl": {"version": 1, "hints": [
			{"path": ["field1"], "maxAge": 2000},
			{"path": ["field1", "subfield1"], "maxAge": 1000},
			{"path": ["field1", "priv"], "maxAge": 1000, "scope": "PRIVATE"}
		]}}
	}`)

	_, entries := r.CompressHints()
	require.Len(t, entries, 3)

	byMaxAgeScope := map[string]Entry{}
	for _, e := range entries {
		byMaxAgeScope[e.Hint.Scope.String()+"/"+strconv.Itoa(int(e.Hint.MaxAge))] = e
	}

	parent := byMaxAgeScope["PUBLIC/2000"]
	jsonEq(t, `{"field1":{"subfield2":777}}`, parent.Value)

	sub := byMaxAgeScope["PUBLIC/1000"]
	jsonEq(t, `{"field1":{"subfield1":55}}`, sub.Value)

	priv := byMaxAgeScope["PRIVATE/1000"]
	jsonEq(t, `{"field1":{"priv":111}}`, priv.Value)
	assert.Equal(t, graphql.ScopePrivate, priv.Hint.Scope)
}

func TestCompressInheritsScopeAndMaxAge(t *testing.T) {
	r := mustParse(t, `{
		"data": {"user": {"id": 1, "secret": {"code": "x"}}},
		"extensions": {"cacheControl": {"version": 1, "hints": [
			{"path": ["user"], "maxAge": 500, "scope": "PRIVATE"},
			{"path": ["user", "secret"]}
		]}}
	}`)

	_, entries := r.CompressHints()

	// The child carries no explicit settings, so it inherits PRIVATE/500 —
	// identical to the parent — and folds into it.
	require.Len(t, entries, 1)
	assert.Equal(t, graphql.ScopePrivate, entries[0].Hint.Scope)
	assert.Equal(t, uint16(500), entries[0].Hint.MaxAge)
	jsonEq(t, `{"user":{"id":1,"secret":{"code":"x"}}}`, entries[0].Value)
}

func TestCompressFoldsIdenticalSettings(t *testing.T) {
	r := mustParse(t, `{
		"data": {"a": {"x": 1, "b": 2}},
		"extensions": {"cacheControl": {"version": 1, "hints": [
			{"path": ["a"], "maxAge": 100},
			{"path": ["a", "b"], "maxAge": 100}
		]}}
	}`)

	// The child's effective settings match its parent's, so its value folds
	// back into the parent record instead of producing a second write.
	_, entries := r.CompressHints()
	require.Len(t, entries, 1)
	jsonEq(t, `{"a":{"x":1,"b":2}}`, entries[0].Value)
}

func TestCompressDropsUnresolvablePaths(t *testing.T) {
	r := mustParse(t, `{
		"data": {"a": 1},
		"extensions": {"cacheControl": {"version": 1, "hints": [
			{"path": ["missing"], "maxAge": 100},
			{"path": ["a"], "maxAge": 50}
		]}}
	}`)

	_, entries := r.CompressHints()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"a"}, entries[0].Hint.Path)
}

// Hint coverage is preserved: every leaf of the data governed by some hint
// before compression is present in exactly one compressed record with the
// same effective settings.
func TestCompressPreservesCoverage(t *testing.T) {
	r := mustParse(t, `{
		"data": {"user": {"id": 1, "company": {"id": 2, "name": "x"}, "friend": {"id": 3}}},
		"extensions": {"cacheControl": {"version": 1, "hints": [
			{"path": ["user"], "maxAge": 100},
			{"path": ["user", "company"], "maxAge": 200},
			{"path": ["user", "company", "name"], "maxAge": 200},
			{"path": ["user", "friend"], "maxAge": 100, "scope": "PRIVATE"}
		]}}
	}`)

	_, entries := r.CompressHints()

	merged := map[string]interface{}{}
	for _, e := range entries {
		mergeInto(merged, e.Value.(map[string]interface{}))
	}
	jsonEq(t, `{"user":{"id":1,"company":{"id":2,"name":"x"},"friend":{"id":3}}}`, merged)
}

func mergeInto(dst, src map[string]interface{}) {
	for k, v := range src {
		if dv, ok := dst[k].(map[string]interface{}); ok {
			if sv, ok := v.(map[string]interface{}); ok {
				mergeInto(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}
