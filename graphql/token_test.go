package graphql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeBreakersAndNames(t *testing.T) {
	assert.Equal(t,
		[]string{"{", "field1", "(", "p1", ":", "1", ")", "{", "sub", "}", "}"},
		tokenize("{ field1 ( p1 : 1 ) { sub } }"))
}

func TestTokenizeCommasInsignificant(t *testing.T) {
	assert.Equal(t,
		[]string{"{", "a", "b", "c", "}"},
		tokenize("{a, b,,, c}"))
}

func TestTokenizeTightPunctuation(t *testing.T) {
	assert.Equal(t,
		[]string{"{", "alias", ":", "field", "(", "id", ":", "13", ")", "}"},
		tokenize("{alias:field(id:13)}"))
}

func TestTokenizeDots(t *testing.T) {
	assert.Equal(t, []string{"...", "frag", "}"}, tokenize("...frag}"))
	assert.Equal(t, []string{".", "a", "}"}, tokenize(". a}"))
	assert.Equal(t, []string{"..", "a", "}"}, tokenize(".. a}"))
	assert.Equal(t, []string{"...", "...", "a", "}"}, tokenize("......a}"))
}

func TestTokenizeStrings(t *testing.T) {
	assert.Equal(t,
		[]string{"(", "p", ":", `"a b,c{d"`, ")"},
		tokenize(`(p:"a b,c{d")`))
}

func TestTokenizeEscapedQuote(t *testing.T) {
	assert.Equal(t,
		[]string{"(", "p", ":", `"a \" b"`, ")"},
		tokenize(`(p:"a \" b")`))
}

func TestTokenizeVariablesAndDefaults(t *testing.T) {
	assert.Equal(t,
		[]string{"(", "$", "x", ":", "Int!", "=", "10", ")"},
		tokenize("($x: Int! = 10)"))
}

// A trailing partial token with no closing breaker is dropped; every valid
// document ends in a brace, so nothing real is lost.
func TestTokenizeDanglingTokenDropped(t *testing.T) {
	assert.Equal(t, []string{"{", "field", "}"}, tokenize("{field} trailing"))
	assert.Equal(t, []string{"{"}, tokenize("{field"))
}

func TestTokenizeEmptyInput(t *testing.T) {
	assert.Empty(t, tokenize("   ,  "))
	assert.Empty(t, tokenize(""))
}
