package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Settlement errors
	ErrAlreadyPaid       = errors.New("payment already completed")
	ErrPaymentCanceled   = errors.New("payment cancelled")
	ErrNotPrepared       = errors.New("payment has no prepare marker")
	ErrPrepareConflict   = errors.New("payment prepared for another transaction")
	ErrInvalidTransition = errors.New("invalid payment status transition")
)
