package graphql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandInlinesFragments(t *testing.T) {
	doc, err := Parse("query TheQuery { users{ ...userFragment surname friends {...userFragment} } } fragment userFragment on User { id name }")
	require.NoError(t, err)

	op, err := ExpandOperation(doc.Operations[0], doc.Fragments)
	require.NoError(t, err)

	users := op.SubFields[0]
	require.Len(t, users.SubFields, 4)
	assert.Equal(t, "id", users.SubFields[0].Name)
	assert.Equal(t, "name", users.SubFields[1].Name)
	assert.Equal(t, "surname", users.SubFields[2].Name)

	friends := users.SubFields[3]
	require.Len(t, friends.SubFields, 2)
	assert.Equal(t, "id", friends.SubFields[0].Name)
	assert.Equal(t, "name", friends.SubFields[1].Name)

	assertNoSpreads(t, op.SubFields)
}

func assertNoSpreads(t *testing.T, fields []*Field) {
	t.Helper()
	for _, f := range fields {
		require.Equal(t, FieldNamed, f.Kind)
		assertNoSpreads(t, f.SubFields)
	}
}

func TestExpandNestedFragments(t *testing.T) {
	doc, err := Parse("{a{...outer}} fragment outer on T{x ...inner} fragment inner on T{y}")
	require.NoError(t, err)

	op, err := ExpandOperation(doc.Operations[0], doc.Fragments)
	require.NoError(t, err)

	a := op.SubFields[0]
	require.Len(t, a.SubFields, 2)
	assert.Equal(t, "x", a.SubFields[0].Name)
	assert.Equal(t, "y", a.SubFields[1].Name)
}

func TestExpandUnresolvedFragment(t *testing.T) {
	doc, err := Parse("{a{...missing}} fragment other on T{x}")
	require.NoError(t, err)

	_, err = ExpandOperation(doc.Operations[0], doc.Fragments)
	var fragErr *FragmentResolutionError
	require.ErrorAs(t, err, &fragErr)
}

func TestExpandUnresolvedFragmentWithoutDefinitions(t *testing.T) {
	doc, err := Parse("{a{...missing}}")
	require.NoError(t, err)

	_, err = ExpandOperation(doc.Operations[0], doc.Fragments)
	var fragErr *FragmentResolutionError
	require.ErrorAs(t, err, &fragErr)
}

func TestExpandRecursiveFragment(t *testing.T) {
	doc, err := Parse("{a{...f1}} fragment f1 on T{x ...f2} fragment f2 on T{...f1}")
	require.NoError(t, err)

	_, err = ExpandOperation(doc.Operations[0], doc.Fragments)
	var fragErr *FragmentResolutionError
	require.ErrorAs(t, err, &fragErr)
	assert.Contains(t, err.Error(), "recursive")
}

func TestExpandSelfRecursiveFragment(t *testing.T) {
	doc, err := Parse("{a{...f}} fragment f on T{...f}")
	require.NoError(t, err)

	_, err = ExpandOperation(doc.Operations[0], doc.Fragments)
	assert.Error(t, err)
}
