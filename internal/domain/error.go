package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidPackage      = errors.New("unknown credit package")
	ErrInvalidCredential   = errors.New("invalid webhook credential")
	ErrNoMatchableOrder    = errors.New("no matchable pending order")
	ErrAmountMismatch      = errors.New("transferred amount below order amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOrderNotPending     = errors.New("order is not pending")

	// Infrastructure errors surfaced by the storage layer
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
