// internal/pair/pair.go

// Package pair implements the synthetic pair: the per-token curve ledger
// holding the virtual reserves used for pricing and the custody account the
// real balances sit under. Reserves are only ever mutated by the execution
// router; the factory hands the pair out and everything else reads.
package pair

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// Pair is the curve ledger for one (token, base asset) pair.
type Pair struct {
	token   types.Address
	asset   types.Address
	custody types.Address

	mu           sync.RWMutex
	tokenReserve uint256.Int
	assetReserve uint256.Int
}

// New creates a pair with zero reserves and a fresh custody address.
func New(token, asset types.Address) *Pair {
	return &Pair{
		token:   token,
		asset:   asset,
		custody: types.NewAddress("pair"),
	}
}

// Token is the launched token's address.
func (p *Pair) Token() types.Address { return p.token }

// Asset is the base asset's address.
func (p *Pair) Asset() types.Address { return p.asset }

// Custody is the account the pair's real balances are held under.
func (p *Pair) Custody() types.Address { return p.custody }

// Reserves returns copies of the virtual reserves (token, asset).
func (p *Pair) Reserves() (*uint256.Int, *uint256.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(uint256.Int).Set(&p.tokenReserve), new(uint256.Int).Set(&p.assetReserve)
}

// Seed sets the opening reserves at launch: the full token issuance and the
// launch fee as the initial asset reserve.
func (p *Pair) Seed(tokenAmount, assetAmount *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenReserve.Set(tokenAmount)
	p.assetReserve.Set(assetAmount)
}

// ApplyBuy moves the reserves for an executed buy: the asset reserve absorbs
// the post-tax input, the token reserve releases the output.
func (p *Pair) ApplyBuy(netIn, amountOut *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assetReserve.Add(&p.assetReserve, netIn)
	p.tokenReserve.Sub(&p.tokenReserve, amountOut)
}

// ApplySell moves the reserves for an executed sell: the token reserve absorbs
// the input, the asset reserve releases the gross (pre-tax) output.
func (p *Pair) ApplySell(amountIn, grossOut *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenReserve.Add(&p.tokenReserve, amountIn)
	p.assetReserve.Sub(&p.assetReserve, grossOut)
}

// Drain zeroes both reserves and returns their previous values. Called once,
// at graduation.
func (p *Pair) Drain() (tokenReserve, assetReserve *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tokenReserve = new(uint256.Int).Set(&p.tokenReserve)
	assetReserve = new(uint256.Int).Set(&p.assetReserve)
	p.tokenReserve.Clear()
	p.assetReserve.Clear()
	return tokenReserve, assetReserve
}

// Restore reinstates reserves after a failed graduation rollback.
func (p *Pair) Restore(tokenReserve, assetReserve *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenReserve.Set(tokenReserve)
	p.assetReserve.Set(assetReserve)
}
