// internal/curve/curve.go

// Package curve holds the bonding-curve pricing math. Every quote the
// launchpad produces — buys, sells, max-input caps, spot prices — comes from
// this package, so the execution path and the limit checks can never disagree
// about the formula.
//
// The curve is an asymmetric constant product: in each direction the
// counter-asset reserve is scaled by a fixed multiplier, which steepens the
// early price without requiring seed liquidity. All arithmetic is integer
// with truncation; taxes are basis points out of 10000.
package curve

import (
	"errors"

	"github.com/holiman/uint256"
)

// BpsDenom is the basis-point denominator: 10000 bps = 100%.
const BpsDenom = 10_000

// PriceScale is the fixed-point scale for spot prices (18 decimals).
var PriceScale = uint256.MustFromDecimal("1000000000000000000")

// ErrInsufficientLiquidity is returned when a quote would meet or exceed the
// reserve it draws from (the curve asymptote).
var ErrInsufficientLiquidity = errors.New("insufficient liquidity")

// NetAfterTax returns amount reduced by taxBps, truncated.
func NetAfterTax(amount *uint256.Int, taxBps uint16) *uint256.Int {
	keep := uint256.NewInt(uint64(BpsDenom - taxBps))
	net := new(uint256.Int).Mul(amount, keep)
	return net.Div(net, uint256.NewInt(BpsDenom))
}

// AmountOutForBuy quotes the token output for an asset input. Tax is taken
// from the input before the curve applies:
//
//	netIn = amountIn * (1 - buyTaxBps/10000)
//	out   = tokenReserve * netIn / (netIn + multiplier*assetReserve)
//
// It returns both the output and the post-tax input the reserves will absorb.
func AmountOutForBuy(amountIn, tokenReserve, assetReserve *uint256.Int, multiplier uint64, buyTaxBps uint16) (out, netIn *uint256.Int, err error) {
	netIn = NetAfterTax(amountIn, buyTaxBps)

	scaledAsset := new(uint256.Int).Mul(assetReserve, uint256.NewInt(multiplier))
	denom := new(uint256.Int).Add(netIn, scaledAsset)
	if denom.IsZero() {
		return nil, nil, ErrInsufficientLiquidity
	}

	out = new(uint256.Int).Mul(tokenReserve, netIn)
	out.Div(out, denom)
	if !out.Lt(tokenReserve) {
		return nil, nil, ErrInsufficientLiquidity
	}
	return out, netIn, nil
}

// AmountOutForSell quotes the asset output for a token input. Tax is taken
// from the output after the curve applies:
//
//	gross = assetReserve * amountIn / (amountIn + multiplier*tokenReserve)
//	out   = gross * (1 - sellTaxBps/10000)
//
// It returns both the post-tax output and the gross amount the reserves lose.
func AmountOutForSell(amountIn, tokenReserve, assetReserve *uint256.Int, multiplier uint64, sellTaxBps uint16) (out, grossOut *uint256.Int, err error) {
	scaledToken := new(uint256.Int).Mul(tokenReserve, uint256.NewInt(multiplier))
	denom := new(uint256.Int).Add(amountIn, scaledToken)
	if denom.IsZero() {
		return nil, nil, ErrInsufficientLiquidity
	}

	grossOut = new(uint256.Int).Mul(assetReserve, amountIn)
	grossOut.Div(grossOut, denom)
	if !grossOut.Lt(assetReserve) {
		return nil, nil, ErrInsufficientLiquidity
	}
	out = NetAfterTax(grossOut, sellTaxBps)
	return out, grossOut, nil
}

// MaxBuyInput inverts the buy formula: the largest pre-tax asset input whose
// token output does not exceed maxTokensOut at the given reserves. The bound
// is tight under integer truncation — the returned input passes, one unit
// more does not.
//
// When maxTokensOut already covers the whole token reserve the cap is not the
// binding limit (the asymptote is) and the maximum representable amount is
// returned.
func MaxBuyInput(tokenReserve, assetReserve, maxTokensOut *uint256.Int, multiplier uint64, buyTaxBps uint16) *uint256.Int {
	outPlusOne := new(uint256.Int).AddUint64(maxTokensOut, 1)
	if !outPlusOne.Lt(tokenReserve) {
		return new(uint256.Int).SetAllOne()
	}

	// Largest netIn with floor(T*netIn/(netIn+m*A)) <= maxOut:
	// netIn*(T - maxOut - 1) < (maxOut+1)*m*A.
	scaledAsset := new(uint256.Int).Mul(assetReserve, uint256.NewInt(multiplier))
	num := new(uint256.Int).Mul(outPlusOne, scaledAsset)
	if num.IsZero() {
		return uint256.NewInt(0)
	}
	den := new(uint256.Int).Sub(tokenReserve, outPlusOne)
	maxNet := num.SubUint64(num, 1)
	maxNet.Div(maxNet, den)

	// Largest amountIn with floor(amountIn*(B-t)/B) <= maxNet.
	keep := uint256.NewInt(uint64(BpsDenom - buyTaxBps))
	in := new(uint256.Int).AddUint64(maxNet, 1)
	in.Mul(in, uint256.NewInt(BpsDenom))
	in.SubUint64(in, 1)
	return in.Div(in, keep)
}

// SpotPrice is the marginal asset price of one token at the given reserves,
// scaled by PriceScale: multiplier * assetReserve * 1e18 / tokenReserve.
func SpotPrice(tokenReserve, assetReserve *uint256.Int, multiplier uint64) *uint256.Int {
	if tokenReserve.IsZero() {
		return uint256.NewInt(0)
	}
	p := new(uint256.Int).Mul(assetReserve, uint256.NewInt(multiplier))
	p.Mul(p, PriceScale)
	return p.Div(p, tokenReserve)
}
