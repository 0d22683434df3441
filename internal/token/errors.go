// internal/token/errors.go
package token

import "errors"

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's balance.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrInsufficientAllowance is returned when transferFrom exceeds the approved amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrZeroAddress is returned when an operation names the zero address.
	ErrZeroAddress = errors.New("zero address")

	// ErrAssetNotFound is returned when no ledger exists for the requested asset.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrAssetExists is returned when registering a ledger under a taken address.
	ErrAssetExists = errors.New("asset already registered")
)
