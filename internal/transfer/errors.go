package transfer

import (
	"errors"
	"fmt"

	"shieldxfer/internal/chain"
)

// ErrNotFound is returned by Wallet lookups for an alias the wallet does not
// hold under the requested kind.
var ErrNotFound = errors.New("alias not found")

// ErrorKind classifies pipeline failures. Every kind is terminal for the request.
type ErrorKind int

const (
	UnknownAlias ErrorKind = iota + 1
	MalformedIdentity
	DenominationQueryFailed
	BuildFailed
	IncompleteSigningSet
	SubmissionRejected
	SubmissionNetworkError
)

var errorKindNames = map[ErrorKind]string{
	UnknownAlias:            "unknown alias",
	MalformedIdentity:       "malformed identity",
	DenominationQueryFailed: "denomination query failed",
	BuildFailed:             "build failed",
	IncompleteSigningSet:    "incomplete signing set",
	SubmissionRejected:      "submission rejected",
	SubmissionNetworkError:  "submission network error",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Error is the error type returned by every stage of the pipeline.
type Error struct {
	Kind  ErrorKind
	Alias string           // set for UnknownAlias and MalformedIdentity
	Code  chain.ResultCode // set for SubmissionRejected
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	switch {
	case e.Alias != "":
		msg += fmt.Sprintf(" %q", e.Alias)
	case e.Kind == SubmissionRejected:
		msg += fmt.Sprintf(" with code %s", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func aliasError(kind ErrorKind, alias string, err error) *Error {
	return &Error{Kind: kind, Alias: alias, Err: err}
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the *Error in err's chain, or zero.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsSubmissionError reports whether err arose after the transaction left the
// process. Such requests printed an outcome and did not fail locally.
func IsSubmissionError(err error) bool {
	k := KindOf(err)
	return k == SubmissionRejected || k == SubmissionNetworkError
}
