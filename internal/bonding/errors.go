// internal/bonding/errors.go
package bonding

import "errors"

var (
	// ErrInsufficientLaunchAmount is returned when the launch purchase does
	// not cover the launch fee.
	ErrInsufficientLaunchAmount = errors.New("purchase amount below launch fee")

	// ErrTokenNotTrading is returned for trades against a token that is not
	// (or no longer) trading on the curve.
	ErrTokenNotTrading = errors.New("token not trading")

	// ErrExceedsMaxTx is returned when a single trade would move more than
	// the configured percentage of total supply.
	ErrExceedsMaxTx = errors.New("exceeds maxTx")

	// ErrTokenNotFound is returned for operations on an unknown token.
	ErrTokenNotFound = errors.New("token not found")

	// ErrBaseAssetMismatch is returned when a trade names a base asset other
	// than the one the token launched against.
	ErrBaseAssetMismatch = errors.New("base asset mismatch")

	// ErrGraduationFailed wraps any failure during the drain/seed/flag-flip
	// sequence. The triggering trade is rolled back with it.
	ErrGraduationFailed = errors.New("graduation failed")

	// ErrInvalidParam is returned for out-of-range administrative parameters.
	ErrInvalidParam = errors.New("invalid parameter")
)
