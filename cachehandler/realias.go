package cachehandler

import "github.com/cacheql/gqlcache/graphql"

// Deduplication can collapse two aliases of the same field into one
// representative before the residual query is forwarded, so the upstream
// response carries only the representative's response key. realiasData
// re-expands the data onto the client's original selection: every original
// field reads its value from its representative and emits it under its own
// response key.
func realiasData(data interface{}, original, deduplicated []*graphql.Field) interface{} {
	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return data
	}
	out := map[string]interface{}{}
	for _, field := range original {
		rep := findSame(deduplicated, field)
		if rep == nil {
			continue
		}
		value, ok := dataMap[rep.ResponseKey()]
		if !ok {
			continue
		}
		out[field.ResponseKey()] = realiasValue(value, field, rep)
	}
	return out
}

func realiasValue(value interface{}, field, rep *graphql.Field) interface{} {
	if len(field.SubFields) == 0 {
		return value
	}
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(field.SubFields))
		for _, sub := range field.SubFields {
			subRep := findSame(rep.SubFields, sub)
			if subRep == nil {
				continue
			}
			subValue, ok := v[subRep.ResponseKey()]
			if !ok {
				continue
			}
			out[sub.ResponseKey()] = realiasValue(subValue, sub, subRep)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = realiasValue(item, field, rep)
		}
		return out
	default:
		return value
	}
}

func findSame(fields []*graphql.Field, target *graphql.Field) *graphql.Field {
	for _, f := range fields {
		if graphql.SameField(f, target) {
			return f
		}
	}
	return nil
}
