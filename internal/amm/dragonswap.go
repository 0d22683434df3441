// internal/amm/dragonswap.go
package amm

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/jugheadddd/launchpad-contracts/internal/token"
	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// Dragonswap is an in-memory constant-product exchange implementing Adapter.
// The daemon and the tests use it to verify that graduation seeds real
// liquidity and that the seeded pool quotes a price continuous with the
// curve's final price.
type Dragonswap struct {
	logger  *zap.Logger
	ledgers token.Resolver

	mu    sync.RWMutex
	pools map[PoolID]*pool
}

type pool struct {
	tokenA   types.Address
	tokenB   types.Address
	custody  types.Address
	reserveA uint256.Int
	reserveB uint256.Int
}

// NewDragonswap creates an empty exchange backed by the given ledgers.
func NewDragonswap(logger *zap.Logger, ledgers token.Resolver) *Dragonswap {
	return &Dragonswap{
		logger:  logger.Named("dragonswap"),
		ledgers: ledgers,
		pools:   make(map[PoolID]*pool),
	}
}

// CreatePool registers a pool for the unordered (tokenA, tokenB) pair and
// returns its custody address. Idempotent: an existing pair returns the
// existing pool.
func (d *Dragonswap) CreatePool(_ context.Context, tokenA, tokenB types.Address) (PoolID, types.Address, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, p := range d.pools {
		if (p.tokenA == tokenA && p.tokenB == tokenB) || (p.tokenA == tokenB && p.tokenB == tokenA) {
			return id, p.custody, nil
		}
	}
	custody := types.NewAddress("dspool")
	id := PoolID(custody.String())
	d.pools[id] = &pool{tokenA: tokenA, tokenB: tokenB, custody: custody}
	d.logger.Info("Pool created",
		zap.String("pool", string(id)),
		zap.String("token_a", tokenA.String()),
		zap.String("token_b", tokenB.String()))
	return id, custody, nil
}

// AddLiquidity records the seed reserves after verifying the custody account
// actually holds them.
func (d *Dragonswap) AddLiquidity(_ context.Context, id PoolID, amountA, amountB *uint256.Int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pools[id]
	if !ok {
		return fmt.Errorf("unknown pool: %s", id)
	}

	ledgerA, err := d.ledgers.Ledger(p.tokenA)
	if err != nil {
		return err
	}
	ledgerB, err := d.ledgers.Ledger(p.tokenB)
	if err != nil {
		return err
	}
	if ledgerA.BalanceOf(p.custody).Lt(amountA) || ledgerB.BalanceOf(p.custody).Lt(amountB) {
		return fmt.Errorf("pool %s custody not funded for declared liquidity", id)
	}

	p.reserveA.Add(&p.reserveA, amountA)
	p.reserveB.Add(&p.reserveB, amountB)
	d.logger.Info("Liquidity added",
		zap.String("pool", string(id)),
		zap.String("amount_a", amountA.Dec()),
		zap.String("amount_b", amountB.Dec()))
	return nil
}

// Pool looks up the pool id for an unordered (tokenA, tokenB) pair.
func (d *Dragonswap) Pool(tokenA, tokenB types.Address) (PoolID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for id, p := range d.pools {
		if (p.tokenA == tokenA && p.tokenB == tokenB) || (p.tokenA == tokenB && p.tokenB == tokenA) {
			return id, nil
		}
	}
	return "", fmt.Errorf("no pool for %s/%s", tokenA, tokenB)
}

// Reserves returns copies of a pool's reserves in (tokenA, tokenB) order.
func (d *Dragonswap) Reserves(id PoolID) (*uint256.Int, *uint256.Int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.pools[id]
	if !ok {
		return nil, nil, fmt.Errorf("unknown pool: %s", id)
	}
	return new(uint256.Int).Set(&p.reserveA), new(uint256.Int).Set(&p.reserveB), nil
}

// GetAmountOut quotes a plain constant-product swap on a pool. Used to check
// price continuity after graduation.
func (d *Dragonswap) GetAmountOut(id PoolID, tokenIn types.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.pools[id]
	if !ok {
		return nil, fmt.Errorf("unknown pool: %s", id)
	}
	reserveIn, reserveOut := &p.reserveA, &p.reserveB
	switch tokenIn {
	case p.tokenA:
	case p.tokenB:
		reserveIn, reserveOut = &p.reserveB, &p.reserveA
	default:
		return nil, fmt.Errorf("token %s not in pool %s", tokenIn, id)
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, fmt.Errorf("pool %s has no liquidity", id)
	}
	out := new(uint256.Int).Mul(reserveOut, amountIn)
	return out.Div(out, new(uint256.Int).Add(reserveIn, amountIn)), nil
}
