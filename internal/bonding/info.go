// internal/bonding/info.go
package bonding

import (
	"github.com/holiman/uint256"

	"github.com/jugheadddd/launchpad-contracts/internal/curve"
	"github.com/jugheadddd/launchpad-contracts/internal/pair"
	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// Data is the derived snapshot of a token's market state. It is recomputed
// from the curve ledger on every mutating call and is never independently
// writable.
type Data struct {
	Name      string
	Symbol    string
	Supply    *uint256.Int // total issuance
	Price     *uint256.Int // spot price, 1e18-scaled
	MarketCap *uint256.Int
	Volume    *uint256.Int // cumulative post-tax input
}

// Info is the orchestrator's record for one launched token.
//
// (Trading, TradingOnDragonswap) starts at (true, false) and ends at
// (false, true); both false only transiently inside a graduation attempt.
type Info struct {
	Creator   types.Address
	Token     types.Address
	Pair      types.Address
	BaseAsset types.Address

	// NativeBase marks tokens launched against the wrapped native coin.
	NativeBase bool

	Trading             bool
	TradingOnDragonswap bool

	// LaunchSupply is the issuance fixed at launch; later admin changes to
	// the initial-supply parameter do not touch it.
	LaunchSupply *uint256.Int

	Data Data

	ledger *pairRef
}

// pairRef keeps the live curve ledger handle out of the copied Info.
type pairRef struct {
	p *pair.Pair
}

// refresh recomputes the derived market data from the current reserves.
func (i *Info) refresh(multiplier uint64) {
	tokenReserve, assetReserve := i.ledger.p.Reserves()
	i.Data.Supply = new(uint256.Int).Set(i.LaunchSupply)
	i.Data.Price = curve.SpotPrice(tokenReserve, assetReserve, multiplier)
	cap := new(uint256.Int).Mul(i.Data.Price, i.LaunchSupply)
	i.Data.MarketCap = cap.Div(cap, curve.PriceScale)
}

// snapshot returns a detached copy safe to hand to callers.
func (i *Info) snapshot() Info {
	out := *i
	out.ledger = nil
	out.LaunchSupply = new(uint256.Int).Set(i.LaunchSupply)
	out.Data.Supply = new(uint256.Int).Set(i.Data.Supply)
	out.Data.Price = new(uint256.Int).Set(i.Data.Price)
	out.Data.MarketCap = new(uint256.Int).Set(i.Data.MarketCap)
	out.Data.Volume = new(uint256.Int).Set(i.Data.Volume)
	return out
}
