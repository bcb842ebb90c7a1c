package graphql

import "sort"

// OperationType distinguishes query/mutation/subscription documents.
type OperationType int

const (
	OperationQuery OperationType = iota
	OperationMutation
	OperationSubscription
)

func (t OperationType) String() string {
	switch t {
	case OperationMutation:
		return "mutation"
	case OperationSubscription:
		return "subscription"
	default:
		return "query"
	}
}

// ValueKind tags the variant carried by a ParameterValue.
type ValueKind int

const (
	ValueNil ValueKind = iota
	ValueScalar
	ValueVariable
	ValueObject
	ValueList
)

// ParameterValue is a tagged union over the five argument-value shapes the
// parser recognizes: an absent value, a literal scalar token, a variable
// reference, an input object, or a list.
type ParameterValue struct {
	Kind     ValueKind
	Scalar   string
	Variable string
	Object   []ObjectEntry
	List     []ParameterValue
}

// ObjectEntry is one name/value pair inside an input object literal.
type ObjectEntry struct {
	Name  string
	Value ParameterValue
}

// Equal reports whether two values are structurally identical: same kind,
// same literal text or variable name, same object/list contents recursively.
// It does not resolve variables against any environment; it is the building
// block for same_field's parameter-multiset comparison, which runs once per
// request against a single, fixed set of bound variables.
func (v ParameterValue) Equal(other ParameterValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueNil:
		return true
	case ValueScalar:
		return v.Scalar == other.Scalar
	case ValueVariable:
		return v.Variable == other.Variable
	case ValueObject:
		if len(v.Object) != len(other.Object) {
			return false
		}
		for i := range v.Object {
			if v.Object[i].Name != other.Object[i].Name || !v.Object[i].Value.Equal(other.Object[i].Value) {
				return false
			}
		}
		return true
	case ValueList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Parameter is a single bound argument, e.g. `id: 5` or `filter: {active: true}`.
type Parameter struct {
	Name  string
	Value ParameterValue
}

// Variable is one declared operation variable, e.g. `$id: Int!`.
type Variable struct {
	Name         string
	Type         string
	DefaultValue *ParameterValue
}

// FieldKind distinguishes an ordinary selected field from a fragment spread.
type FieldKind int

const (
	FieldNamed FieldKind = iota
	FieldFragmentSpread
)

// Field is one entry in a selection set: either a named field (with an
// optional alias, arguments and subfields) or a `...name` fragment spread.
type Field struct {
	Kind FieldKind

	Alias      string
	Name       string
	Parameters []Parameter
	SubFields  []*Field

	FragmentName string
}

func newNamedField(alias, name string, parameters []Parameter, subFields []*Field) *Field {
	return &Field{Kind: FieldNamed, Alias: alias, Name: name, Parameters: parameters, SubFields: subFields}
}

func newFragmentSpread(name string) *Field {
	return &Field{Kind: FieldFragmentSpread, FragmentName: name}
}

// ResponseKey returns the key this field occupies in the JSON response:
// its alias if it has one, else its name.
func (f *Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// HasParameters reports whether the field carries any arguments.
func (f *Field) HasParameters() bool {
	return len(f.Parameters) > 0
}

// IsLeaf reports whether the field has no subfields (a scalar selection).
func (f *Field) IsLeaf() bool {
	return f.Kind == FieldNamed && len(f.SubFields) == 0
}

// Clone returns a deep copy of the field, used when building residual
// fields and merged selections without mutating the original.
func (f *Field) Clone() *Field {
	if f == nil {
		return nil
	}
	clone := *f
	clone.Parameters = append([]Parameter(nil), f.Parameters...)
	clone.SubFields = make([]*Field, len(f.SubFields))
	for i, sf := range f.SubFields {
		clone.SubFields[i] = sf.Clone()
	}
	return &clone
}

// FragmentDefinition is a top-level `fragment Name on Type { ... }` block.
type FragmentDefinition struct {
	Name      string
	Type      string
	SubFields []*Field
}

// Operation is one query/mutation/subscription definition, after parsing
// but before fragment expansion.
type Operation struct {
	Type      OperationType
	Name      string
	Variables []Variable
	SubFields []*Field
}

// Document is the result of parsing a full request body: one or more
// operations plus zero or more fragment definitions, keyed by name for
// fragment expansion.
type Document struct {
	Operations []*Operation
	Fragments  map[string]*FragmentDefinition
}

// SelectOperation picks the operation executed for a request. With a name
// it must match a named operation; without one the document must contain
// exactly one operation.
func (d *Document) SelectOperation(name string) (*Operation, error) {
	if name == "" {
		if len(d.Operations) != 1 {
			return nil, newParseError("operationName is required when the document defines %d operations", len(d.Operations))
		}
		return d.Operations[0], nil
	}
	for _, op := range d.Operations {
		if op.Name == name {
			return op, nil
		}
	}
	return nil, newParseError("no operation named %q", name)
}

// FragmentList returns the document's fragment definitions in a stable
// order, for serialization.
func (d *Document) FragmentList() []*FragmentDefinition {
	if len(d.Fragments) == 0 {
		return nil
	}
	names := make([]string, 0, len(d.Fragments))
	for name := range d.Fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	fragments := make([]*FragmentDefinition, 0, len(names))
	for _, name := range names {
		fragments = append(fragments, d.Fragments[name])
	}
	return fragments
}

// CacheScope is the visibility of a cached value: shared across all users,
// or scoped to the requesting user.
type CacheScope int

const (
	ScopePublic CacheScope = iota
	ScopePrivate
)

func (s CacheScope) String() string {
	if s == ScopePrivate {
		return "PRIVATE"
	}
	return "PUBLIC"
}

// CacheHint is one compressed `@cacheControl` directive result: a response
// path together with the scope and max-age that govern it.
type CacheHint struct {
	Path   []string
	MaxAge uint16
	Scope  CacheScope
}
