package graphql

import "unicode/utf8"

// tokenizer produces a lazy sequence of tokens from a raw query string.
// Every token it returns is a substring of the source, so the hot path
// allocates nothing per token.
type tokenizer struct {
	slice    string
	inQuotes bool
	escaping bool
	done     bool
}

func newTokenizer(src string) *tokenizer {
	return &tokenizer{slice: skipInsignificant(src)}
}

func isBreaker(r rune) bool {
	switch r {
	case '{', '}', '(', ')', '[', ']', ':', '=', '$', '.':
		return true
	}
	return false
}

func isInsignificant(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func skipInsignificant(s string) string {
	for len(s) > 0 {
		r, w := utf8.DecodeRuneInString(s)
		if !isInsignificant(r) {
			break
		}
		s = s[w:]
	}
	return s
}

// next returns the next token and true, or ("", false) once the stream is
// exhausted. A trailing token with no following breaker or insignificant
// character is dropped rather than emitted; every well-formed operation
// document ends in a closing brace, so this never loses real content.
func (t *tokenizer) next() (string, bool) {
	if t.done {
		return "", false
	}

	s := t.slice
	start := 0
	i := 0
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])

		switch {
		case !t.inQuotes && (isBreaker(r) || isInsignificant(r)):
			if i > start {
				tok := s[start:i]
				t.slice = s[i:]
				return tok, true
			}
			if r == '.' {
				return t.consumeDots(s, i)
			}
			if !isInsignificant(r) {
				tok := s[i : i+w]
				t.slice = s[i+w:]
				return tok, true
			}
			start = i + w
			i = start
			continue
		case r == '\\':
			t.escaping = true
			i += w
		case r == '"' && !t.escaping:
			t.inQuotes = !t.inQuotes
			i += w
		default:
			t.escaping = false
			i += w
		}
	}

	t.done = true
	return "", false
}

// consumeDots disambiguates ".", ".." and "...", the only multi-character
// breaker tokens.
func (t *tokenizer) consumeDots(s string, i int) (string, bool) {
	rest := s[i+1:]
	r2, w2 := utf8.DecodeRuneInString(rest)
	if r2 != '.' {
		t.slice = rest
		return ".", true
	}

	rest2 := rest[w2:]
	r3, w3 := utf8.DecodeRuneInString(rest2)
	if r3 != '.' {
		t.slice = rest2
		return "..", true
	}

	t.slice = rest2[w3:]
	return "...", true
}

func tokenize(src string) []string {
	t := newTokenizer(src)
	var toks []string
	for {
		tok, ok := t.next()
		if !ok {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}
