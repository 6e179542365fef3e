package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory is the closed taxonomy of execution failures.
type ErrorCategory string

const (
	CategoryTimeout               ErrorCategory = "Timeout"
	CategorySyntaxError           ErrorCategory = "SyntaxError"
	CategoryConnectionError       ErrorCategory = "ConnectionError"
	CategoryAuthorizationError    ErrorCategory = "AuthorizationError"
	CategoryServiceUnavailable    ErrorCategory = "ServiceUnavailable"
	CategoryTooManyRequests       ErrorCategory = "TooManyRequests"
	CategoryBadGateway            ErrorCategory = "BadGateway"
	CategoryEndpointInternalError ErrorCategory = "EndpointInternalError"
	CategoryOther                 ErrorCategory = "Other"
)

// Categories lists every category in classification priority order.
var Categories = []ErrorCategory{
	CategoryTimeout,
	CategorySyntaxError,
	CategoryConnectionError,
	CategoryAuthorizationError,
	CategoryServiceUnavailable,
	CategoryTooManyRequests,
	CategoryBadGateway,
	CategoryEndpointInternalError,
	CategoryOther,
}

// Outcome is the result part of a QueryStats. It is implemented only by
// Success and Failure.
type Outcome interface {
	outcome()
}

// Success is the outcome of an execution that returned rows.
type Success struct {
	Records int
}

// Failure is the outcome of an execution the endpoint rejected or that
// never completed.
type Failure struct {
	Category ErrorCategory
	Raw      string
	Filtered string
}

func (Success) outcome() {}
func (Failure) outcome() {}

// QueryStats is one execution attempt.
type QueryStats struct {
	StatsID      string
	QueryID      string
	EndpointName string
	Context      string
	Timestamp    time.Time
	DurationMS   int64
	Outcome      Outcome
}

// Records returns the row count and true on success.
func (s QueryStats) Records() (int, bool) {
	if ok, is := s.Outcome.(Success); is {
		return ok.Records, true
	}
	return 0, false
}

// Failure returns the failure and true when the attempt failed.
func (s QueryStats) Failure() (Failure, bool) {
	f, ok := s.Outcome.(Failure)
	return f, ok
}

// Validate checks that exactly one of a row count or a raw error message is
// present.
func (s QueryStats) Validate() error {
	if s.StatsID == "" {
		return errors.New("stats: missing stats_id")
	}
	if s.QueryID == "" {
		return errors.New("stats: missing query_id")
	}
	switch o := s.Outcome.(type) {
	case Success:
		if o.Records < 0 {
			return fmt.Errorf("stats %s: negative record count %d", s.StatsID, o.Records)
		}
	case Failure:
		if o.Raw == "" {
			return fmt.Errorf("stats %s: failure without raw error message", s.StatsID)
		}
		if o.Category == "" {
			return fmt.Errorf("stats %s: failure without category", s.StatsID)
		}
	default:
		return fmt.Errorf("stats %s: missing outcome", s.StatsID)
	}
	return nil
}
