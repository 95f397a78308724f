// Package apperr defines the error kinds shared across the retrieval
// pipeline: NotFound, Invariant, External, Cancelled, and Storage, each
// wrapping an underlying cause so callers can branch on kind without
// parsing message strings.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it (e.g. the
// HTTP front door mapping to status codes).
type Kind int

const (
	// KindUnknown is the zero value; never intentionally returned.
	KindUnknown Kind = iota
	// KindNotFound indicates a missing primary entity or a get-by-id miss
	// that the caller explicitly asked to be surfaced as an error (plain
	// lookups return an absent result, not an error; see store package).
	KindNotFound
	// KindInvariant indicates a project-name collision or an otherwise
	// impossible state transition (e.g. upsert racing with itself).
	KindInvariant
	// KindExternal indicates an external provider (embedding, completion)
	// was unreachable or returned something unparsable.
	KindExternal
	// KindCancelled indicates cooperative cancellation between pipeline
	// steps.
	KindCancelled
	// KindStorage indicates a persistence-layer failure surfaced as-is.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant"
	case KindExternal:
		return "external"
	case KindCancelled:
		return "cancelled"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch with
// errors.As without parsing message strings.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op with the given kind and cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound wraps err (which may be nil) as a KindNotFound error.
func NotFound(op string, err error) *Error { return New(KindNotFound, op, err) }

// Invariant wraps err as a KindInvariant error.
func Invariant(op string, err error) *Error { return New(KindInvariant, op, err) }

// External wraps err as a KindExternal error.
func External(op string, err error) *Error { return New(KindExternal, op, err) }

// Storage wraps err as a KindStorage error.
func Storage(op string, err error) *Error { return New(KindStorage, op, err) }

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// FromContext converts ctx.Err() into a KindCancelled *Error when ctx has
// been cancelled or has exceeded its deadline, otherwise returns nil.
func FromContext(op string, ctx context.Context) *Error {
	if err := ctx.Err(); err != nil {
		return New(KindCancelled, op, err)
	}
	return nil
}

// ErrPrimaryMissing is returned by the resolver's merge operation when the
// primary entity cannot be loaded.
var ErrPrimaryMissing = errors.New("primary entity missing")
