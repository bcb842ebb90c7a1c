package cachehandler

import (
	"encoding/json"
	"strings"

	"github.com/cacheql/gqlcache/graphql"
)

// Cache keys are a deterministic function of a field's name, its argument
// values after variable substitution, and its ancestor chain. Aliases
// never appear in a key, object-literal entries render sorted by name, and
// a bound variable renders by its value, not its name, so alias choice and
// variable naming cannot change which entries a query touches. Arguments
// render in the order written, and a bound variable's value carries a VAR
// prefix, so it does not share a key with the same value written as a
// literal.

// fieldCacheKey renders a single field's key: the bare name, or
// name_arg1<v1>_arg2<v2>... with each value rendered injectively.
func fieldCacheKey(f *graphql.Field, variables map[string]interface{}) string {
	if !f.HasParameters() {
		return f.Name
	}
	var b strings.Builder
	b.WriteString(f.Name)
	for _, p := range f.Parameters {
		b.WriteByte('_')
		b.WriteString(p.Name)
		b.WriteString(renderKeyValue(p.Value, variables))
	}
	return b.String()
}

func renderKeyValue(v graphql.ParameterValue, variables map[string]interface{}) string {
	switch v.Kind {
	case graphql.ValueNil:
		return "NIL"
	case graphql.ValueScalar:
		return v.Scalar
	case graphql.ValueVariable:
		return "VAR" + canonicalJSON(variables[v.Variable])
	case graphql.ValueObject:
		return "OBJ" + v.CanonicalString()
	case graphql.ValueList:
		return "LST" + v.CanonicalString()
	}
	return ""
}

// canonicalJSON renders a bound variable value deterministically:
// encoding/json sorts object keys, so semantically equal values always
// produce the same bytes.
func canonicalJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// chainCacheKey joins a root-to-field chain into a deep key.
func chainCacheKey(chain []*graphql.Field, variables map[string]interface{}) string {
	parts := make([]string, len(chain))
	for i, f := range chain {
		parts[i] = fieldCacheKey(f, variables)
	}
	return strings.Join(parts, "+")
}

// privateCacheKey scopes a key to one user.
func privateCacheKey(userID, key string) string {
	return userID + key
}
