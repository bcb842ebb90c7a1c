package graphql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Round-trip: serialize(parse(q)) reproduces q exactly for queries written
// in canonical whitespace.
func TestSerializeRoundTrip(t *testing.T) {
	for _, query := range []string{
		"{field1}",
		"{field1 field2}",
		"{field1{subfield1 subfield2} field2}",
		"{field1(p1:1){subfield1(p2:2) subfield2} field2}",
		`mutation{addUser(id:"123" name:"the name")}`,
		"{launch(id:109){id site mission{name}}}",
		"query($launchId:Int!){launch(id:$launchId){id site mission{name}}}",
		"query TheQuery($p1:Int=10){alias1:field1(id:$p1){id name}}",
		"{field1(p1:{v1:1 v2:[2 3]})}",
		"subscription{tick{at}}",
	} {
		doc, err := Parse(query)
		require.NoError(t, err, query)
		got := SerializeDocument(doc.Operations[0], doc.FragmentList())
		assert.Equal(t, query, got)
	}
}

func TestSerializeAppendsFragments(t *testing.T) {
	query := `query{getUser(id:"123"){...frag}} fragment frag on user{id name}`
	doc, err := Parse(query)
	require.NoError(t, err)
	got := SerializeDocument(doc.Operations[0], doc.FragmentList())
	assert.Equal(t, query, got)
}

// A query accompanied by fragments loses shorthand even when it has no
// variables, so the document stays parseable.
func TestSerializeDisablesShorthandWithFragments(t *testing.T) {
	doc, err := Parse("{a{...f}} fragment f on T{x}")
	require.NoError(t, err)
	got := SerializeDocument(doc.Operations[0], doc.FragmentList())
	assert.Equal(t, "query{a{...f}} fragment f on T{x}", got)
}

func TestSerializeOperationShorthand(t *testing.T) {
	doc, err := Parse("{a b}")
	require.NoError(t, err)
	assert.Equal(t, "{a b}", SerializeOperation(doc.Operations[0]))
}

func TestCanonicalStringSortsObjectKeys(t *testing.T) {
	a := parseSingle(t, "{f(p:{b:2 a:1})}").SubFields[0].Parameters[0].Value
	b := parseSingle(t, "{f(p:{a:1 b:2})}").SubFields[0].Parameters[0].Value
	assert.Equal(t, a.CanonicalString(), b.CanonicalString())
	assert.Equal(t, "{a:1,b:2}", a.CanonicalString())

	lst := parseSingle(t, "{f(p:[3 1 2])}").SubFields[0].Parameters[0].Value
	assert.Equal(t, "[3,1,2]", lst.CanonicalString())
}
