// internal/amm/adapter.go

// Package amm is the narrow surface to the external decentralized exchange a
// graduated token moves to. The launchpad only ever creates a pool and seeds
// it once; swap behavior on the external exchange is not this system's
// concern.
package amm

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// PoolID identifies a pool on the external exchange.
type PoolID string

// Adapter creates and seeds liquidity pools on an already-deployed exchange.
//
// CreatePool returns the pool id and the custody address the seed amounts
// must be transferred to before AddLiquidity is called. It must be
// idempotent: creating an already-existing pair returns the existing pool,
// so an aborted graduation can run again. Implementations must make
// AddLiquidity fail if the custody balances do not cover the declared
// amounts.
type Adapter interface {
	CreatePool(ctx context.Context, tokenA, tokenB types.Address) (PoolID, types.Address, error)
	AddLiquidity(ctx context.Context, id PoolID, amountA, amountB *uint256.Int) error
}
