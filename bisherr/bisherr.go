// Package bisherr defines the compiler's error kinds. All Bish errors are
// fatal: the first one detected aborts compilation, so these types exist
// to carry a uniform, greppable diagnostic shape (kind, position, message)
// rather than to support recovery.
package bisherr

import (
	"fmt"

	"github.com/tdenniston/bish/ir"
	"github.com/tdenniston/bish/token"
)

// Kind tags which stage raised an error.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindType
	KindLink
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "lex error"
	case KindParse:
		return "parse error"
	case KindType:
		return "type error"
	case KindLink:
		return "link error"
	case KindInternal:
		return "internal error"
	default:
		return "error"
	}
}

// Error is the single error type all compiler stages return; Kind
// selects the diagnostic category and Pos/Msg carry the offending
// location and description. Wrapped carries an underlying cause for
// errors.Is/errors.As, when one exists.
type Error struct {
	Kind    Kind
	Pos     token.Position
	Msg     string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Pos.Path == "" && e.Pos.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Pos, e.Msg)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Lex builds a lex-stage error at pos.
func Lex(pos token.Position, format string, args ...interface{}) error {
	return &Error{Kind: KindLex, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Parse builds a parse-stage error at pos.
func Parse(pos token.Position, format string, args ...interface{}) error {
	return &Error{Kind: KindParse, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Type builds a type-stage error carrying the offending node's debug info.
func Type(n ir.Node, format string, args ...interface{}) error {
	d := n.Debug()
	return &Error{
		Kind: KindType,
		Pos:  token.Position{Path: d.Path, Line: d.Line},
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Link builds a link-stage error, optionally wrapping an underlying cause
// (e.g. a filesystem error from afs).
func Link(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindLink, Msg: fmt.Sprintf(format, args...), Wrapped: cause}
}

// Internal builds an internal-invariant-failure error: reaching this
// indicates a compiler bug, not a user mistake.
func Internal(format string, args ...interface{}) error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...)}
}

// Assert panics with an Internal error if cond is false. Used at points
// the design treats as invariants rather than recoverable conditions,
// e.g. a pass observing a node shape an earlier pass should have ruled
// out.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(Internal(format, args...))
	}
}
