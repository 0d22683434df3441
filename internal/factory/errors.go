// internal/factory/errors.go
package factory

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the role an operation requires.
	ErrUnauthorized = errors.New("caller lacks required role")

	// ErrPairExists is returned when a pair already exists for the ordered (token, asset) pair.
	ErrPairExists = errors.New("pair already exists")

	// ErrPairNotFound is returned when no pair exists for the requested pair of assets.
	ErrPairNotFound = errors.New("pair not found")

	// ErrInvalidTax is returned when a tax rate is outside [0, 10000) bps.
	ErrInvalidTax = errors.New("invalid tax rate")
)
