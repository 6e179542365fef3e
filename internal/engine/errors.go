package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/nqm/internal/model"
)

var (
	// ErrEndpointFailure matches every *EndpointError.
	ErrEndpointFailure = errors.New("endpoint failure")

	// ErrUnknownEndpoint is returned when a request names no configured endpoint.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrUnknownGraph is returned when a request names no configured graph.
	ErrUnknownGraph = errors.New("unknown graph")

	// ErrUnsupportedLanguage is returned for endpoints not speaking SPARQL.
	ErrUnsupportedLanguage = errors.New("unsupported query language")
)

// EndpointError is a failed execution attempt.
//
// Raw is the payload as received (HTTP body or transport error); Filtered and
// Category are derived from it by the error classifier. Stats is the record
// persisted for the attempt.
type EndpointError struct {
	Endpoint string
	Category model.ErrorCategory
	Raw      string
	Filtered string
	Stats    model.QueryStats
}

// Error implements the error interface.
func (e *EndpointError) Error() string {
	return fmt.Sprintf("%s: endpoint %s: %s", e.Category, e.Endpoint, e.Filtered)
}

// Is makes errors.Is(err, ErrEndpointFailure) hold.
func (e *EndpointError) Is(target error) bool {
	return target == ErrEndpointFailure
}

// CategoryOf returns the category of an endpoint failure anywhere in err's
// chain.
func CategoryOf(err error) (model.ErrorCategory, bool) {
	var ee *EndpointError
	if errors.As(err, &ee) {
		return ee.Category, true
	}
	return "", false
}

// IsTimeout returns true if err is an endpoint failure of category Timeout.
// Uses errors.As to handle wrapped errors.
func IsTimeout(err error) bool {
	c, ok := CategoryOf(err)
	return ok && c == model.CategoryTimeout
}
