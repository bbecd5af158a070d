package chainstate

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("chainstate: not found")
	ErrInvalidInput  = errors.New("chainstate: invalid input")
	ErrNotAuthorized = errors.New("chainstate: not authorized")
	ErrNotStarted    = errors.New("chainstate: engine not started")

	// Batch scheduler errors
	ErrBatchNotFound        = errors.New("chainstate: batch not found")
	ErrBatchFinalized       = errors.New("chainstate: batch already executed or canceled")
	ErrInvalidExecutionTime = errors.New("chainstate: execution height not in the future")
	ErrInvalidBatch         = errors.New("chainstate: empty or mismatched batch lines")
	ErrBatchTooLarge        = errors.New("chainstate: batch exceeds transfer line cap")
	ErrInvalidAmount        = errors.New("chainstate: zero or overflowing amount")
	ErrExecutionTooEarly    = errors.New("chainstate: batch execution height not reached")
	ErrInsufficientBalance  = errors.New("chainstate: insufficient balance")
	ErrTransferFailed       = errors.New("chainstate: ledger transfer failed")

	// Rate-limited store errors
	ErrInvalidValue        = errors.New("chainstate: value must be positive")
	ErrDailyLimitExceeded  = errors.New("chainstate: daily update limit exceeded")
	ErrUpdateBatchTooLarge = errors.New("chainstate: update batch exceeds cap")
	ErrUserNotFound        = errors.New("chainstate: user record not found")
	ErrUserFrozen          = errors.New("chainstate: user is frozen")
	ErrInsufficientPayment = errors.New("chainstate: insufficient balance for fee")
	ErrInvalidDuration     = errors.New("chainstate: invalid subscription duration")
	ErrInvalidDailyLimit   = errors.New("chainstate: custom daily limit out of range")
	ErrBackupNotFound      = errors.New("chainstate: backup not found")
	ErrGrantNotFound       = errors.New("chainstate: access grant not found")
	ErrGrantExpired        = errors.New("chainstate: access grant expired")

	// Governance errors
	ErrContractPaused = errors.New("chainstate: contract is paused")
	ErrEmergencyMode  = errors.New("chainstate: emergency mode active")
	ErrNotOwner       = errors.New("chainstate: caller is not the contract owner")

	// Store errors
	ErrStoreNotReady     = errors.New("chainstate: store not ready")
	ErrStoreClosed       = errors.New("chainstate: store is closed")
	ErrTransactionFailed = errors.New("chainstate: transaction failed")
	ErrMigrationFailed   = errors.New("chainstate: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("chainstate: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error reports an absent entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrBatchNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrBackupNotFound) ||
		errors.Is(err, ErrGrantNotFound)
}

// IsAuthorization returns true if the error reports a missing privilege
// or ownership.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrGrantExpired) ||
		errors.Is(err, ErrUserFrozen)
}

// IsQuotaError returns true if the error is related to quotas or caps.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrDailyLimitExceeded) ||
		errors.Is(err, ErrBatchTooLarge) ||
		errors.Is(err, ErrUpdateBatchTooLarge)
}

// IsPaused returns true if the error reports a global pause or emergency
// stop. Operations failing this way can be retried after an owner resumes
// the contract.
func IsPaused(err error) bool {
	return errors.Is(err, ErrContractPaused) ||
		errors.Is(err, ErrEmergencyMode)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried without changing its inputs.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
