package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConflict signals a storage-level concurrency conflict (counter or stock
// row contention). The whole operation may be retried from scratch.
var ErrConflict = errors.New("concurrent update conflict")

// FieldViolation describes a single invalid input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level input violations. No side effects have
// occurred when one is returned.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validation builds a single-field ValidationError.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Violations: []FieldViolation{{Field: field, Message: message}}}
}

// Add appends another violation and returns the error for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: message})
	return e
}

// NotFoundError signals a missing referenced entity (customer, product, invoice).
type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Ref)
}

// NotFound builds a NotFoundError for the given entity and reference.
func NotFound(entity, ref string) *NotFoundError {
	return &NotFoundError{Entity: entity, Ref: ref}
}

// InsufficientStockError signals a movement that would drive stock negative.
// The movement was not recorded and stock is unchanged.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInsufficientStock reports whether err is (or wraps) an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var is *InsufficientStockError
	return errors.As(err, &is)
}
