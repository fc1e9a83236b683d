package assetresolv

import (
	"context"
	"fmt"
	"time"
)

// Backend is the asset management API a bridge delegates entity references to.
//
// Implementations must be safe for concurrent use.
type Backend interface {

	// Identifier names the backend, e.g. org.openassetio.examples.manager.bal
	Identifier() string

	// Scheme is the reserved scheme of entity references owned by this backend,
	// e.g. "bal" for references like bal:///name
	Scheme() string

	// HasCapability asks whether the backend supports the given capability.
	// An error means the backend could not be queried at all.
	HasCapability(ctx context.Context, c Capability) (bool, error)

	// Resolve resolves a batch of entity references.  The returned slice
	// is parallel to refs;  individual failures are reported in the Err field
	// of the corresponding element, and an error is returned only if the
	// request as a whole could not be serviced.
	Resolve(ctx context.Context, refs []string) ([]BatchResult, error)
}

// Entity is the data a backend returns for a successfully resolved reference.
type Entity struct {
	Location string // path or file:// URL
	ModTime  time.Time
	Info     Info
}

// BatchResult is one element of a batch resolution.  Exactly one of
// Entity or Err is meaningful.
type BatchResult struct {
	Entity Entity
	Err    *BatchElementError
}

// ErrorCode classifies a per-element batch failure
type ErrorCode int

// Batch element error codes
const (
	CodeUnknown ErrorCode = iota
	CodeInvalidEntityReference
	CodeMalformedEntityReference
	CodeEntityAccessError
	CodeEntityResolutionError
)

var codeNames = map[ErrorCode]string{
	CodeUnknown:                  "unknown",
	CodeInvalidEntityReference:   "invalidEntityReference",
	CodeMalformedEntityReference: "malformedEntityReference",
	CodeEntityAccessError:        "entityAccessError",
	CodeEntityResolutionError:    "entityResolutionError",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return codeNames[CodeUnknown]
}

// BatchElementError is a failure isolated to a single element of a batch
type BatchElementError struct {
	Code    ErrorCode
	Message string
}

func (e *BatchElementError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
