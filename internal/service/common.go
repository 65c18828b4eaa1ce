package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
)

// Business rule errors shared by several services.
var (
	ErrInvalidState      = errors.New("action not allowed in the current state")
	ErrNotEditable       = errors.New("submitted documents cannot be edited")
	ErrScheduleConflict  = errors.New("schedule conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCapacityExceeded  = errors.New("class capacity exceeded")
	ErrRetryExhausted    = errors.New("maximum retry attempts reached")
)

// ValidationError reports a business rule failure on one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// stateError wraps ErrInvalidState with a message naming the offending state.
func stateError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Clock returns the current time in the school timezone.
type Clock func() time.Time

// SystemClock returns a Clock reading the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

func (c Clock) today() model.Date {
	return model.DateOf(c())
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// warnings collects non-blocking messages for a record.
type warnings []string

func (w *warnings) add(format string, args ...interface{}) {
	*w = append(*w, fmt.Sprintf(format, args...))
}

func requireDate(field string, d model.Date) error {
	if d.IsZero() {
		return invalid(field, "is required")
	}
	return nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func datePtr(d model.Date) *model.Date { return &d }
