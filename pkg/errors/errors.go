package custom_error

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input before any lock is taken.
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

func NewValidationError(format string, v ...any) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, v...)}
}

// NotFoundError marks an absent ledger row. Callers handle it locally;
// it is never fatal for batch operations.
type NotFoundError struct {
	resource string
	key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.resource, e.key)
}

func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{resource: resource, key: key}
}

// LockContentionError marks a row that is currently locked by another
// writer. The caller should surface it as retryable, never read around it.
type LockContentionError struct {
	key string
}

func (e *LockContentionError) Error() string {
	return fmt.Sprintf("row is locked by a concurrent operation: %s", e.key)
}

func NewLockContentionError(key string) *LockContentionError {
	return &LockContentionError{key: key}
}

// PlanNotFoundError marks an unknown, consumed or cancelled import plan
// token.
type PlanNotFoundError struct {
	token string
}

func (e *PlanNotFoundError) Error() string {
	return fmt.Sprintf("import plan not found or expired: %s", e.token)
}

func NewPlanNotFoundError(token string) *PlanNotFoundError {
	return &PlanNotFoundError{token: token}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsLockContention(err error) bool {
	var lc *LockContentionError
	return errors.As(err, &lc)
}

func IsPlanNotFound(err error) bool {
	var pn *PlanNotFoundError
	return errors.As(err, &pn)
}
