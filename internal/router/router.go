// internal/router/router.go

// Package router executes swaps against a pair's curve ledger. It is the only
// component that moves funds into or out of pair custody, and it mutates
// reserves strictly after every underlying transfer has succeeded. On any
// transfer failure the completed transfers are unwound, so a failed swap
// leaves no side effects.
package router

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/jugheadddd/launchpad-contracts/internal/curve"
	"github.com/jugheadddd/launchpad-contracts/internal/factory"
	"github.com/jugheadddd/launchpad-contracts/internal/pair"
	"github.com/jugheadddd/launchpad-contracts/internal/token"
	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// TradeResult reports an executed swap, with enough state captured to reverse
// it during a graduation rollback.
type TradeResult struct {
	AmountIn  *uint256.Int // what the trader paid
	NetIn     *uint256.Int // post-tax input absorbed by reserves (buys)
	GrossOut  *uint256.Int // pre-tax output released by reserves (sells)
	Tax       *uint256.Int // amount credited to the tax vault
	AmountOut *uint256.Int // what the trader received

	PrevTokenReserve *uint256.Int
	PrevAssetReserve *uint256.Int
	TokenReserve     *uint256.Int
	AssetReserve     *uint256.Int
}

// DrainResult reports a graduation drain.
type DrainResult struct {
	TokenAmount      *uint256.Int
	AssetAmount      *uint256.Int
	PrevTokenReserve *uint256.Int
	PrevAssetReserve *uint256.Int
}

// Router prices and executes swaps. It holds no state of its own beyond its
// identity and its collaborators.
type Router struct {
	logger  *zap.Logger
	addr    types.Address
	factory *factory.Factory
	ledgers token.Resolver
}

// New creates a router and registers it with the factory as the swap executor.
func New(logger *zap.Logger, f *factory.Factory, ledgers token.Resolver, admin types.Address) (*Router, error) {
	r := &Router{
		logger:  logger.Named("router"),
		addr:    types.NewAddress("router"),
		factory: f,
		ledgers: ledgers,
	}
	if err := f.SetRouter(admin, r.addr); err != nil {
		return nil, err
	}
	return r, nil
}

// Address is the router's identity.
func (r *Router) Address() types.Address { return r.addr }

// Buy swaps amountIn of the pair's base asset for tokens on behalf of trader.
// The executor must hold the swap-executor role; the trader must have approved
// the executor for amountIn.
func (r *Router) Buy(executor, trader types.Address, p *pair.Pair, amountIn *uint256.Int) (*TradeResult, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrInvalidAmount
	}
	if !r.factory.HasRole(factory.RoleExecutor, executor) {
		return nil, fmt.Errorf("%w: %s executing buy", factory.ErrUnauthorized, executor)
	}
	assetLedger, tokenLedger, err := r.resolve(p)
	if err != nil {
		return nil, err
	}

	tokenReserve, assetReserve := p.Reserves()
	tax := r.factory.Tax()
	out, netIn, err := curve.AmountOutForBuy(amountIn, tokenReserve, assetReserve, r.factory.Multiplier(), tax.BuyTaxBps)
	if err != nil {
		return nil, err
	}
	taxAmount := new(uint256.Int).Sub(amountIn, netIn)

	// Transfer choreography with unwind on failure. Reserves move last.
	var undo []func()
	fail := func(step string, cause error) (*TradeResult, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrTransferFailed, step, cause)
	}

	if err := assetLedger.TransferFrom(trader, executor, p.Custody(), amountIn); err != nil {
		return fail("asset in", err)
	}
	undo = append(undo, func() { _ = assetLedger.Transfer(p.Custody(), trader, amountIn) })

	if !taxAmount.IsZero() {
		if err := assetLedger.Transfer(p.Custody(), tax.Vault, taxAmount); err != nil {
			return fail("tax credit", err)
		}
		undo = append(undo, func() { _ = assetLedger.Transfer(tax.Vault, p.Custody(), taxAmount) })
	}

	if err := tokenLedger.Transfer(p.Custody(), trader, out); err != nil {
		return fail("token out", err)
	}

	p.ApplyBuy(netIn, out)
	newTokenReserve, newAssetReserve := p.Reserves()

	r.logger.Debug("Buy executed",
		zap.String("token", p.Token().String()),
		zap.String("trader", trader.String()),
		zap.String("amount_in", amountIn.Dec()),
		zap.String("amount_out", out.Dec()))

	return &TradeResult{
		AmountIn:         new(uint256.Int).Set(amountIn),
		NetIn:            netIn,
		Tax:              taxAmount,
		AmountOut:        out,
		PrevTokenReserve: tokenReserve,
		PrevAssetReserve: assetReserve,
		TokenReserve:     newTokenReserve,
		AssetReserve:     newAssetReserve,
	}, nil
}

// Sell swaps amountIn tokens for the pair's base asset on behalf of trader.
func (r *Router) Sell(executor, trader types.Address, p *pair.Pair, amountIn *uint256.Int) (*TradeResult, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrInvalidAmount
	}
	if !r.factory.HasRole(factory.RoleExecutor, executor) {
		return nil, fmt.Errorf("%w: %s executing sell", factory.ErrUnauthorized, executor)
	}
	assetLedger, tokenLedger, err := r.resolve(p)
	if err != nil {
		return nil, err
	}

	tokenReserve, assetReserve := p.Reserves()
	tax := r.factory.Tax()
	out, grossOut, err := curve.AmountOutForSell(amountIn, tokenReserve, assetReserve, r.factory.Multiplier(), tax.SellTaxBps)
	if err != nil {
		return nil, err
	}
	taxAmount := new(uint256.Int).Sub(grossOut, out)

	var undo []func()
	fail := func(step string, cause error) (*TradeResult, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrTransferFailed, step, cause)
	}

	if err := tokenLedger.TransferFrom(trader, executor, p.Custody(), amountIn); err != nil {
		return fail("token in", err)
	}
	undo = append(undo, func() { _ = tokenLedger.Transfer(p.Custody(), trader, amountIn) })

	if !taxAmount.IsZero() {
		if err := assetLedger.Transfer(p.Custody(), tax.Vault, taxAmount); err != nil {
			return fail("tax credit", err)
		}
		undo = append(undo, func() { _ = assetLedger.Transfer(tax.Vault, p.Custody(), taxAmount) })
	}

	if err := assetLedger.Transfer(p.Custody(), trader, out); err != nil {
		return fail("asset out", err)
	}

	p.ApplySell(amountIn, grossOut)
	newTokenReserve, newAssetReserve := p.Reserves()

	r.logger.Debug("Sell executed",
		zap.String("token", p.Token().String()),
		zap.String("trader", trader.String()),
		zap.String("amount_in", amountIn.Dec()),
		zap.String("amount_out", out.Dec()))

	return &TradeResult{
		AmountIn:         new(uint256.Int).Set(amountIn),
		GrossOut:         grossOut,
		Tax:              taxAmount,
		AmountOut:        out,
		PrevTokenReserve: tokenReserve,
		PrevAssetReserve: assetReserve,
		TokenReserve:     newTokenReserve,
		AssetReserve:     newAssetReserve,
	}, nil
}

// UndoBuy reverses a completed buy during a graduation rollback: funds flow
// back and reserves are restored to their pre-trade values.
func (r *Router) UndoBuy(executor, trader types.Address, p *pair.Pair, res *TradeResult) error {
	if !r.factory.HasRole(factory.RoleExecutor, executor) {
		return fmt.Errorf("%w: %s undoing buy", factory.ErrUnauthorized, executor)
	}
	assetLedger, tokenLedger, err := r.resolve(p)
	if err != nil {
		return err
	}
	tax := r.factory.Tax()
	if err := tokenLedger.Transfer(trader, p.Custody(), res.AmountOut); err != nil {
		return fmt.Errorf("%w: undo token out: %v", ErrTransferFailed, err)
	}
	if !res.Tax.IsZero() {
		if err := assetLedger.Transfer(tax.Vault, p.Custody(), res.Tax); err != nil {
			return fmt.Errorf("%w: undo tax credit: %v", ErrTransferFailed, err)
		}
	}
	if err := assetLedger.Transfer(p.Custody(), trader, res.AmountIn); err != nil {
		return fmt.Errorf("%w: undo asset in: %v", ErrTransferFailed, err)
	}
	p.Restore(res.PrevTokenReserve, res.PrevAssetReserve)
	return nil
}

// UndoSell reverses a completed sell during a graduation rollback.
func (r *Router) UndoSell(executor, trader types.Address, p *pair.Pair, res *TradeResult) error {
	if !r.factory.HasRole(factory.RoleExecutor, executor) {
		return fmt.Errorf("%w: %s undoing sell", factory.ErrUnauthorized, executor)
	}
	assetLedger, tokenLedger, err := r.resolve(p)
	if err != nil {
		return err
	}
	tax := r.factory.Tax()
	if err := assetLedger.Transfer(trader, p.Custody(), res.AmountOut); err != nil {
		return fmt.Errorf("%w: undo asset out: %v", ErrTransferFailed, err)
	}
	if !res.Tax.IsZero() {
		if err := assetLedger.Transfer(tax.Vault, p.Custody(), res.Tax); err != nil {
			return fmt.Errorf("%w: undo tax credit: %v", ErrTransferFailed, err)
		}
	}
	if err := tokenLedger.Transfer(p.Custody(), trader, res.AmountIn); err != nil {
		return fmt.Errorf("%w: undo token in: %v", ErrTransferFailed, err)
	}
	p.Restore(res.PrevTokenReserve, res.PrevAssetReserve)
	return nil
}

// Drain withdraws all real custody (token and asset) from the pair to the
// recipient and zeroes the virtual reserves. Called once, at graduation.
func (r *Router) Drain(executor types.Address, p *pair.Pair, to types.Address) (*DrainResult, error) {
	if !r.factory.HasRole(factory.RoleExecutor, executor) {
		return nil, fmt.Errorf("%w: %s draining pair", factory.ErrUnauthorized, executor)
	}
	assetLedger, tokenLedger, err := r.resolve(p)
	if err != nil {
		return nil, err
	}

	tokenAmount := tokenLedger.BalanceOf(p.Custody())
	assetAmount := assetLedger.BalanceOf(p.Custody())

	if err := tokenLedger.Transfer(p.Custody(), to, tokenAmount); err != nil {
		return nil, fmt.Errorf("%w: drain token: %v", ErrTransferFailed, err)
	}
	if err := assetLedger.Transfer(p.Custody(), to, assetAmount); err != nil {
		_ = tokenLedger.Transfer(to, p.Custody(), tokenAmount)
		return nil, fmt.Errorf("%w: drain asset: %v", ErrTransferFailed, err)
	}

	prevToken, prevAsset := p.Drain()

	r.logger.Info("Pair drained",
		zap.String("token", p.Token().String()),
		zap.String("token_amount", tokenAmount.Dec()),
		zap.String("asset_amount", assetAmount.Dec()))

	return &DrainResult{
		TokenAmount:      tokenAmount,
		AssetAmount:      assetAmount,
		PrevTokenReserve: prevToken,
		PrevAssetReserve: prevAsset,
	}, nil
}

// UndoDrain returns drained custody from the holder to the pair and restores
// the reserves.
func (r *Router) UndoDrain(executor, holder types.Address, p *pair.Pair, res *DrainResult) error {
	if !r.factory.HasRole(factory.RoleExecutor, executor) {
		return fmt.Errorf("%w: %s undoing drain", factory.ErrUnauthorized, executor)
	}
	assetLedger, tokenLedger, err := r.resolve(p)
	if err != nil {
		return err
	}
	if err := tokenLedger.Transfer(holder, p.Custody(), res.TokenAmount); err != nil {
		return fmt.Errorf("%w: undo drain token: %v", ErrTransferFailed, err)
	}
	if err := assetLedger.Transfer(holder, p.Custody(), res.AssetAmount); err != nil {
		return fmt.Errorf("%w: undo drain asset: %v", ErrTransferFailed, err)
	}
	p.Restore(res.PrevTokenReserve, res.PrevAssetReserve)
	return nil
}

// GetAmountOut quotes a swap without executing it. The direction is inferred
// from which ordered pair exists: (tokenOut, tokenIn) means tokenIn is the
// base asset (a buy), (tokenIn, tokenOut) means tokenIn is the launched token
// (a sell).
func (r *Router) GetAmountOut(tokenIn, tokenOut types.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	tax := r.factory.Tax()
	if p, err := r.factory.Pair(tokenOut, tokenIn); err == nil {
		tokenReserve, assetReserve := p.Reserves()
		out, _, err := curve.AmountOutForBuy(amountIn, tokenReserve, assetReserve, r.factory.Multiplier(), tax.BuyTaxBps)
		return out, err
	}
	p, err := r.factory.Pair(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	tokenReserve, assetReserve := p.Reserves()
	out, _, err := curve.AmountOutForSell(amountIn, tokenReserve, assetReserve, r.factory.Multiplier(), tax.SellTaxBps)
	return out, err
}

func (r *Router) resolve(p *pair.Pair) (assetLedger, tokenLedger token.Ledger, err error) {
	assetLedger, err = r.ledgers.Ledger(p.Asset())
	if err != nil {
		return nil, nil, err
	}
	tokenLedger, err = r.ledgers.Ledger(p.Token())
	if err != nil {
		return nil, nil, err
	}
	return assetLedger, tokenLedger, nil
}
