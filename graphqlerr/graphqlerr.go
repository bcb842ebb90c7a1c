// Package graphqlerr classifies failures into the kinds the request
// boundary cares about: what is surfaced to the client, what degrades to a
// cache miss, and what is fatal at startup.
package graphqlerr

import (
	"errors"

	"github.com/cacheql/gqlcache/graphql"
	"github.com/samsarahq/go/oops"
)

// Kind is the failure class of an error.
type Kind int

const (
	// KindUpstream covers transport failures and malformed upstream JSON.
	// It is the default class for unrecognized errors crossing the request
	// boundary.
	KindUpstream Kind = iota
	// KindParse is a lexical or grammatical failure in the query.
	KindParse
	// KindFragment is an unresolved or recursive fragment.
	KindFragment
	// KindCache is a cache backend failure; never surfaced to clients.
	KindCache
	// KindAuth is an invalid bearer token; the request proceeds anonymously.
	KindAuth
	// KindConfig is missing or invalid configuration; fatal at startup.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindFragment:
		return "fragment"
	case KindCache:
		return "cache"
	case KindAuth:
		return "auth"
	case KindConfig:
		return "config"
	default:
		return "upstream"
	}
}

// Error pairs an underlying error with its kind.
type Error struct {
	kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }
func (e *Error) Kind() Kind    { return e.kind }

// Wrap annotates err with a kind and a message.
func Wrap(kind Kind, err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: oops.Wrapf(err, format, a...)}
}

// New creates a fresh error of the given kind.
func New(kind Kind, format string, a ...interface{}) error {
	return &Error{kind: kind, err: oops.Errorf(format, a...)}
}

// KindOf classifies an arbitrary error, recognizing the typed errors of
// the query parser alongside explicitly wrapped kinds.
func KindOf(err error) Kind {
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.kind
	}
	var parseErr *graphql.ParseError
	if errors.As(err, &parseErr) {
		return KindParse
	}
	var fragErr *graphql.FragmentResolutionError
	if errors.As(err, &fragErr) {
		return KindFragment
	}
	return KindUpstream
}
