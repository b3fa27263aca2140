package services

import (
	"context"
	"errors"
	"fmt"

	"stockledger/internal/repositories"

	"github.com/lib/pq"
)

// --- Error taxonomy ---
// Every error returned by a service wraps exactly one of these classes.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// Specific failures, each wrapping one class so handlers can map with errors.Is.
var (
	ErrMissingFields        = fmt.Errorf("%w: missing fields", ErrValidation)
	ErrSameWarehouse        = fmt.Errorf("%w: same warehouse", ErrValidation)
	ErrItemNotFound         = fmt.Errorf("%w: item not found", ErrNotFound)
	ErrSourceItemNotFound   = fmt.Errorf("%w: source item not found", ErrNotFound)
	ErrWarehouseNotFound    = fmt.Errorf("%w: warehouse not found", ErrNotFound)
	ErrSupplierNotFound     = fmt.Errorf("%w: supplier not found", ErrNotFound)
	ErrCategoryNotFound     = fmt.Errorf("%w: category not found", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrInsufficientQuantity = fmt.Errorf("%w: insufficient quantity", ErrConflict)
	ErrSKUConflict          = fmt.Errorf("%w: sku already exists in warehouse", ErrConflict)
	ErrWarehouseInUse       = fmt.Errorf("%w: warehouse still holds items", ErrConflict)
	ErrWarehouseInactive    = fmt.Errorf("%w: warehouse is inactive", ErrConflict)
	ErrCategoryExists       = fmt.Errorf("%w: category already exists", ErrConflict)
	ErrUsernameExists       = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrUserInactive         = errors.New("user account is inactive")
	ErrWarehouseOutOfScope  = fmt.Errorf("%w: warehouse outside caller scope", ErrForbidden)
)

// StorageError is an I/O failure against the persistence layer. Step names the
// point of a multi-step operation that failed, for manual reconciliation.
type StorageError struct {
	Op   string
	Step string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("storage error during %s (step: %s): %v", e.Op, e.Step, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the whole operation may succeed.
func (e *StorageError) Retryable() bool { return IsRetryable(e.Err) }

func storageErr(op, step string, err error) error {
	return &StorageError{Op: op, Step: step, Err: err}
}

// retryable PostgreSQL error codes and classes.
var retryableCodes = map[pq.ErrorCode]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled (statement timeout)
}

// IsRetryable classifies errors into transient (timeouts, lost connections,
// serialization conflicts) and fatal ones.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrForbidden) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var rc *retryableConflict
	if errors.As(err, &rc) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return retryableCodes[pqErr.Code] || pqErr.Code.Class() == "08"
	}
	return false
}

// isNotFound reports a repository miss.
func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}
