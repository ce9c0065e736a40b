package store

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence failure")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field string, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConflictError reports a lost race against a concurrent writer, typically a
// duplicate invoice number or a serialization failure. The operation is safe
// to retry from the start.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: conflict", e.Op)
	}
	return fmt.Sprintf("%s: conflict: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConflict}
	}
	return []error{ErrConflict, e.Err}
}

type NotFoundError struct {
	Entity string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NotFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: key}
}

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "authentication required"
	}
	return e.Reason
}

func (e *AuthenticationError) Unwrap() error { return ErrUnauthenticated }
