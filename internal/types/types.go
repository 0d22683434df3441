// internal/types/types.go
package types

import (
	"fmt"

	"github.com/google/uuid"
)

// Address identifies an account on the launchpad ledger: a trader, a token,
// a pair's custody account, a vault, or the orchestrator itself.
type Address string

// ZeroAddress is the absence of an identity. Transfers to or from it are
// rejected by the token ledger.
const ZeroAddress Address = ""

// NewAddress mints a fresh unique address with a readable prefix,
// e.g. "token:4f9a1c2e".
func NewAddress(prefix string) Address {
	return Address(fmt.Sprintf("%s:%s", prefix, uuid.NewString()[:8]))
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}

// Side labels the direction of a curve trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)
