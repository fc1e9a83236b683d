package assetresolv

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies bridge errors
type Kind int

// Error kinds
const (
	KindUnknown Kind = iota

	// An entity-only operation was given an identifier that is not an entity reference
	KindClassificationMismatch

	// The backend does not declare a capability an operation needs
	KindCapability

	// The backend reported the entity reference as malformed
	KindMalformedReference

	// The backend could not resolve an otherwise well formed reference
	KindResolution

	// The backend could not be reached or initialized
	KindBackendUnavailable

	// A write was attempted against an entity reference
	KindWriteNotSupported
)

var kindNames = map[Kind]string{
	KindUnknown:                "unknown",
	KindClassificationMismatch: "classificationMismatch",
	KindCapability:             "capability",
	KindMalformedReference:     "malformedReference",
	KindResolution:             "resolution",
	KindBackendUnavailable:     "backendUnavailable",
	KindWriteNotSupported:      "writeNotSupported",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error is an error returned by a bridge operation
type Error struct {
	Kind       Kind
	Op         string // operation that failed, e.g. _Resolve
	Identifier string
	Err        error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Identifier, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in the chain of err, or
// KindUnknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind tells whether any *Error in the chain of err has the given kind
func IsKind(err error, k Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == k {
			return true
		}
		err = e.Err
	}
	return false
}

// ErrorFromBatch converts a per-element backend failure into a bridge error
func ErrorFromBatch(op, id string, be *BatchElementError) *Error {
	kind := KindResolution
	if be.Code == CodeMalformedEntityReference {
		kind = KindMalformedReference
	}
	return &Error{Kind: kind, Op: op, Identifier: id, Err: be}
}
