// internal/router/errors.go
package router

import "errors"

var (
	// ErrTransferFailed is returned when an underlying token movement is
	// rejected. Reserves are never mutated in that case.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrInvalidAmount is returned for zero-value trades.
	ErrInvalidAmount = errors.New("invalid amount")
)
