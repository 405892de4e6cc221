package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the component boundary it crossed.
type Kind uint8

const (
	// KindUnknown is returned for errors that carry no classification.
	KindUnknown Kind = iota
	// KindValidation marks malformed input (idempotency key, recipient address, request fields).
	KindValidation
	// KindStorage marks a failure talking to the database.
	KindStorage
	// KindTransport marks a failure of the outbound email transport.
	KindTransport
)

// String returns the lowercase name of the kind, suitable for log attributes and metric labels.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Kind implements kinded.
func (e *ValidationError) Kind() Kind { return KindValidation }

// Is makes a ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// StorageError reports a failed database operation. Op names the statement, e.g. "dequeue task".
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Kind implements kinded.
func (e *StorageError) Kind() Kind { return KindStorage }

// TransportError reports a failed email send. StatusCode is zero when no HTTP response was received.
type TransportError struct {
	Recipient  string
	StatusCode int
	Code       int64
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: send to %s: status %d (code %d): %v", e.Recipient, e.StatusCode, e.Code, e.Err)
	}
	return fmt.Sprintf("transport: send to %s: %v", e.Recipient, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Kind implements kinded.
func (e *TransportError) Kind() Kind { return KindTransport }

type kinded interface {
	Kind() Kind
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NewStorageError wraps err as a StorageError. A nil err returns nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}
