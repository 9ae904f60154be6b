package youtube

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// Reasons carried in error.errors[0].reason that mean the quota is spent.
const (
	reasonQuotaExceeded      = "quotaExceeded"
	reasonDailyLimitExceeded = "dailyLimitExceeded"

	// ReasonLocalBudget marks a request refused by the local quota budget
	// before it was sent.
	ReasonLocalBudget = "localBudgetExhausted"
)

// TransportError is a failure to reach the API or an HTTP failure whose body
// carried no API error object.
type TransportError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("youtube %s: transport error (http %d): %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("youtube %s: transport error: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// QuotaExceededError means no quota is left for the current period. It is
// never retried.
type QuotaExceededError struct {
	Operation string
	Reason    string
	Message   string
	Err       error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("youtube %s: quota exceeded (%s): %s", e.Operation, e.Reason, e.Message)
}

func (e *QuotaExceededError) Unwrap() error { return e.Err }

// APIError is any other error the API reported in its response body.
type APIError struct {
	Operation  string
	StatusCode int
	Reason     string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube %s: api error %d (%s): %s", e.Operation, e.StatusCode, e.Reason, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// classifyError maps a client library error onto the hunter's taxonomy.
func classifyError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &TransportError{Operation: operation, Err: err}
	}

	if len(gerr.Errors) == 0 || gerr.Errors[0].Reason == "" {
		return &TransportError{Operation: operation, StatusCode: gerr.Code, Err: err}
	}

	item := gerr.Errors[0]
	message := item.Message
	if message == "" {
		message = gerr.Message
	}

	switch item.Reason {
	case reasonQuotaExceeded, reasonDailyLimitExceeded:
		return &QuotaExceededError{Operation: operation, Reason: item.Reason, Message: message, Err: err}
	default:
		return &APIError{
			Operation:  operation,
			StatusCode: gerr.Code,
			Reason:     item.Reason,
			Message:    message,
			Err:        err,
		}
	}
}

// IsQuotaExceeded reports whether err is or wraps a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var target *QuotaExceededError
	return errors.As(err, &target)
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsAPIError reports whether err is or wraps an APIError.
func IsAPIError(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}
