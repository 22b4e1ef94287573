package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-watch/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type StockWatchError struct {
	Message string
	Cause   error
}

func (e *StockWatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StockWatchError) Unwrap() error {
	return e.Cause
}

// Distinct wrappers so callers can tell failure classes apart with errors.As
type NetworkError struct{ StockWatchError }
type DataSourceError struct{ StockWatchError }
type DatabaseError struct{ StockWatchError }

func NewNetworkError(msg string, cause error) error {
	return &NetworkError{StockWatchError{Message: msg, Cause: cause}}
}

func NewDataSourceError(msg string, cause error) error {
	return &DataSourceError{StockWatchError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{StockWatchError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to attempts times, doubling baseDelay between
// tries. It stops early when ctx is done.
func RetryWithBackoff(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}

	return lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler counts consecutive failures of a long-running task.
type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Handle logs err with its context and bumps the failure counter.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	e.ErrorCount++
	e.Logger.Error("Error in %s (consecutive: %d): %v", context, e.ErrorCount, err)
}

// -----------------------------------------------------------------------------

// Recover converts a panic inside fn into an error.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StockWatchError{Message: fmt.Sprintf("recovered panic: %v", r)}
		}
	}()
	return fn()
}
