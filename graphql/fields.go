package graphql

// Field identity, merging and traversal. Two named fields are "the same"
// when their names match and their parameter multisets are equal; aliases
// never participate in identity. Merging collapses each equivalence class
// under that relation into one field whose subfields are merged
// recursively.

// SameField reports whether two fields select the same data: equal names
// and equal parameter multisets under structural value equality. Fragment
// spreads are never the same as anything.
func SameField(a, b *Field) bool {
	if a.Kind != FieldNamed || b.Kind != FieldNamed {
		return false
	}
	if a.Name != b.Name || len(a.Parameters) != len(b.Parameters) {
		return false
	}
	for _, pa := range a.Parameters {
		found := false
		for _, pb := range b.Parameters {
			if pa.Name == pb.Name && pa.Value.Equal(pb.Value) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MergeSubfields collapses duplicate fields in a selection set. The first
// occurrence of each equivalence class keeps its position; later
// occurrences fold their subfields into it. The result shares no slices
// with the input.
func MergeSubfields(fields []*Field) []*Field {
	var merged []*Field
	for _, field := range fields {
		target := -1
		for i, existing := range merged {
			if SameField(existing, field) {
				target = i
				break
			}
		}
		if target == -1 {
			clone := field.Clone()
			clone.SubFields = MergeSubfields(field.SubFields)
			merged = append(merged, clone)
			continue
		}
		combined := append(append([]*Field{}, merged[target].SubFields...), field.SubFields...)
		merged[target].SubFields = MergeSubfields(combined)
	}
	return merged
}

// Deduplicate merges the operation's top-level fields and restricts its
// variable list to names still referenced by some argument.
func (op *Operation) Deduplicate() *Operation {
	merged := MergeSubfields(op.SubFields)

	referenced := map[string]bool{}
	collectVariables(merged, referenced)

	var variables []Variable
	for _, v := range op.Variables {
		if referenced[v.Name] {
			variables = append(variables, v)
		}
	}

	return &Operation{
		Type:      op.Type,
		Name:      op.Name,
		Variables: variables,
		SubFields: merged,
	}
}

func collectVariables(fields []*Field, into map[string]bool) {
	for _, f := range fields {
		for _, p := range f.Parameters {
			collectValueVariables(p.Value, into)
		}
		collectVariables(f.SubFields, into)
	}
}

func collectValueVariables(v ParameterValue, into map[string]bool) {
	switch v.Kind {
	case ValueVariable:
		into[v.Variable] = true
	case ValueObject:
		for _, entry := range v.Object {
			collectValueVariables(entry.Value, into)
		}
	case ValueList:
		for _, item := range v.List {
			collectValueVariables(item, into)
		}
	}
}

// Traverse descends the operation tree following response keys. It returns
// the chain of ancestor fields above the match and the matched field
// itself; ok is false when the path does not resolve.
func (op *Operation) Traverse(path []string) (ancestors []*Field, leaf *Field, ok bool) {
	if len(path) == 0 {
		return nil, nil, false
	}
	for _, f := range op.SubFields {
		if f.Kind != FieldNamed || f.ResponseKey() != path[0] {
			continue
		}
		if ancestors, leaf, ok := f.traverse(path[1:]); ok {
			return ancestors, leaf, true
		}
	}
	return nil, nil, false
}

func (f *Field) traverse(path []string) ([]*Field, *Field, bool) {
	if len(path) == 0 {
		return nil, f, true
	}
	if f.Kind != FieldNamed {
		return nil, nil, false
	}
	for _, sub := range f.SubFields {
		if sub.Kind != FieldNamed || sub.ResponseKey() != path[0] {
			continue
		}
		if ancestors, leaf, ok := sub.traverse(path[1:]); ok {
			return append([]*Field{f}, ancestors...), leaf, true
		}
	}
	return nil, nil, false
}
