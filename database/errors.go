package database

import (
	"fmt"
)

// DBError represents a database operation error with context
type DBError struct {
	Operation string
	Err       error
}

// Error implements the error interface
func (e *DBError) Error() string {
	return fmt.Sprintf("database error in %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *DBError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	Key      interface{}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%s not found: %v", e.Resource, e.Key)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// WrapDBError wraps a database error with operation context
func WrapDBError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &DBError{
		Operation: operation,
		Err:       err,
	}
}

// NewNotFoundError creates a new NotFoundError for the given resource key
func NewNotFoundError(resource string, key interface{}) error {
	return &NotFoundError{
		Resource: resource,
		Key:      key,
	}
}
