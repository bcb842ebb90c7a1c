package graphql

// ExpandOperation returns an equivalent operation with every fragment
// spread replaced by the fields of its definition, recursively. A stack of
// currently-expanding fragments guards against cycles; fragment identity on
// the stack is by name.
func ExpandOperation(op *Operation, fragments map[string]*FragmentDefinition) (*Operation, error) {
	if len(fragments) == 0 {
		if err := checkNoSpreads(op.SubFields); err != nil {
			return nil, err
		}
		return op, nil
	}

	var newFields []*Field
	for _, field := range op.SubFields {
		expanded, err := expandField(field, fragments, nil)
		if err != nil {
			return nil, err
		}
		newFields = append(newFields, expanded...)
	}

	return &Operation{
		Type:      op.Type,
		Name:      op.Name,
		Variables: op.Variables,
		SubFields: newFields,
	}, nil
}

func expandField(field *Field, fragments map[string]*FragmentDefinition, stack []string) ([]*Field, error) {
	if field.Kind == FieldFragmentSpread {
		fragment, ok := fragments[field.FragmentName]
		if !ok {
			return nil, newFragmentError("unresolved fragment %q", field.FragmentName)
		}
		for _, name := range stack {
			if name == fragment.Name {
				return nil, newFragmentError("recursive fragment structure at %q", fragment.Name)
			}
		}

		stack = append(stack, fragment.Name)
		var result []*Field
		for _, fragmentField := range fragment.SubFields {
			expanded, err := expandField(fragmentField, fragments, stack)
			if err != nil {
				return nil, err
			}
			result = append(result, expanded...)
		}
		return result, nil
	}

	var newSubFields []*Field
	for _, sub := range field.SubFields {
		expanded, err := expandField(sub, fragments, stack)
		if err != nil {
			return nil, err
		}
		newSubFields = append(newSubFields, expanded...)
	}

	return []*Field{newNamedField(field.Alias, field.Name, field.Parameters, newSubFields)}, nil
}

// checkNoSpreads rejects spreads that can never resolve because the
// document defines no fragments at all.
func checkNoSpreads(fields []*Field) error {
	for _, f := range fields {
		if f.Kind == FieldFragmentSpread {
			return newFragmentError("unresolved fragment %q", f.FragmentName)
		}
		if err := checkNoSpreads(f.SubFields); err != nil {
			return err
		}
	}
	return nil
}
