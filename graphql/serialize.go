package graphql

import (
	"sort"
	"strings"
)

// Serialization back to wire form. Field order and argument order are
// preserved, so parse → serialize round-trips to a semantically identical
// query (whitespace and insignificant commas aside).

// SerializeOperation emits a single operation with no fragment definitions.
func SerializeOperation(op *Operation) string {
	var b strings.Builder
	writeOperation(&b, op, false)
	return b.String()
}

// SerializeDocument emits an operation followed by the given fragment
// definitions. Shorthand form is used iff the operation is a query with no
// name and no variables and no fragments accompany it.
func SerializeDocument(op *Operation, fragments []*FragmentDefinition) string {
	var b strings.Builder
	writeOperation(&b, op, len(fragments) > 0)
	for _, frag := range fragments {
		b.WriteByte(' ')
		writeFragmentDefinition(&b, frag)
	}
	return b.String()
}

func writeOperation(b *strings.Builder, op *Operation, disableShorthand bool) {
	if op.Type != OperationQuery || len(op.Variables) > 0 || op.Name != "" || disableShorthand {
		b.WriteString(op.Type.String())
	}
	if op.Name != "" {
		b.WriteByte(' ')
		b.WriteString(op.Name)
	}

	if len(op.Variables) > 0 {
		b.WriteByte('(')
		for i := range op.Variables {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeVariable(b, &op.Variables[i])
		}
		b.WriteByte(')')
	}

	b.WriteByte('{')
	writeFields(b, op.SubFields)
	b.WriteByte('}')
}

func writeFragmentDefinition(b *strings.Builder, frag *FragmentDefinition) {
	b.WriteString("fragment ")
	b.WriteString(frag.Name)
	b.WriteString(" on ")
	b.WriteString(frag.Type)
	b.WriteByte('{')
	writeFields(b, frag.SubFields)
	b.WriteByte('}')
}

func writeFields(b *strings.Builder, fields []*Field) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeField(b, f)
	}
}

func writeField(b *strings.Builder, f *Field) {
	if f.Kind == FieldFragmentSpread {
		b.WriteString("...")
		b.WriteString(f.FragmentName)
		return
	}

	if f.Alias != "" {
		b.WriteString(f.Alias)
		b.WriteByte(':')
	}
	b.WriteString(f.Name)

	if len(f.Parameters) > 0 {
		b.WriteByte('(')
		for i := range f.Parameters {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(f.Parameters[i].Name)
			b.WriteByte(':')
			writeParameterValue(b, f.Parameters[i].Value)
		}
		b.WriteByte(')')
	}

	if len(f.SubFields) > 0 {
		b.WriteByte('{')
		writeFields(b, f.SubFields)
		b.WriteByte('}')
	}
}

func writeVariable(b *strings.Builder, v *Variable) {
	b.WriteByte('$')
	b.WriteString(v.Name)
	b.WriteByte(':')
	b.WriteString(v.Type)
	if v.DefaultValue != nil {
		b.WriteByte('=')
		writeParameterValue(b, *v.DefaultValue)
	}
}

func writeParameterValue(b *strings.Builder, v ParameterValue) {
	switch v.Kind {
	case ValueScalar:
		b.WriteString(v.Scalar)
	case ValueVariable:
		b.WriteByte('$')
		b.WriteString(v.Variable)
	case ValueNil:
		b.WriteString("null")
	case ValueObject:
		b.WriteByte('{')
		for i, entry := range v.Object {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(entry.Name)
			b.WriteByte(':')
			writeParameterValue(b, entry.Value)
		}
		b.WriteByte('}')
	case ValueList:
		b.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeParameterValue(b, item)
		}
		b.WriteByte(']')
	}
}

// CanonicalString renders the value as a deterministic, injective string of
// its semantic shape: object entries are sorted by name, lists keep their
// order. Cache keys use this so that two spellings of the same argument
// value hash identically.
func (v ParameterValue) CanonicalString() string {
	var b strings.Builder
	writeCanonicalValue(&b, v)
	return b.String()
}

func writeCanonicalValue(b *strings.Builder, v ParameterValue) {
	switch v.Kind {
	case ValueScalar:
		b.WriteString(v.Scalar)
	case ValueVariable:
		b.WriteByte('$')
		b.WriteString(v.Variable)
	case ValueNil:
		b.WriteString("null")
	case ValueObject:
		entries := append([]ObjectEntry(nil), v.Object...)
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		b.WriteByte('{')
		for i, entry := range entries {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(entry.Name)
			b.WriteByte(':')
			writeCanonicalValue(b, entry.Value)
		}
		b.WriteByte('}')
	case ValueList:
		b.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonicalValue(b, item)
		}
		b.WriteByte(']')
	}
}
