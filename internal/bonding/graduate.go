// internal/bonding/graduate.go
package bonding

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/jugheadddd/launchpad-contracts/internal/curve"
	"github.com/jugheadddd/launchpad-contracts/internal/events"
)

// maybeGraduate checks the graduation condition after a trade: once the real
// base-asset custody held for the token reaches the applicable threshold, the
// token graduates within the same operation. On graduation it returns the
// event for the caller to publish once the whole trade has committed; no
// event leaves this package for an operation that later unwinds.
func (b *Bonding) maybeGraduate(ctx context.Context, info *Info, params Params) (*events.TokenGraduatedEvent, error) {
	if !info.Trading || info.TradingOnDragonswap {
		return nil, nil
	}
	threshold := params.AssetGradThreshold
	if info.NativeBase {
		threshold = params.NativeGradThreshold
	}
	assetLedger, err := b.bank.Ledger(info.BaseAsset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraduationFailed, err)
	}
	if assetLedger.BalanceOf(info.Pair).Lt(threshold) {
		return nil, nil
	}
	return b.graduate(ctx, info, params)
}

// graduate runs the one-way transition off the curve: drain the pair, take
// the graduation tax, create and seed the external pool, flip the flags.
// Every step is journaled with its inverse; a failure anywhere unwinds the
// journal and returns ErrGraduationFailed, leaving the token trading with
// reserves unchanged. The caller then unwinds the triggering trade as well.
func (b *Bonding) graduate(ctx context.Context, info *Info, params Params) (*events.TokenGraduatedEvent, error) {
	p := info.ledger.p
	assetLedger, err := b.bank.Ledger(info.BaseAsset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraduationFailed, err)
	}
	tokenLedger, err := b.bank.Ledger(info.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraduationFailed, err)
	}

	var undo []func()
	fail := func(step string, cause error) (*events.TokenGraduatedEvent, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		b.logger.Error("Graduation aborted",
			zap.String("token", info.Token.String()),
			zap.String("step", step),
			zap.Error(cause))
		return nil, fmt.Errorf("%w: %s: %v", ErrGraduationFailed, step, cause)
	}

	// (false, false) is the transient in-transition state; unwinding
	// restores (true, false).
	info.Trading = false
	undo = append(undo, func() { info.Trading = true })

	drainRes, err := b.router.Drain(b.addr, p, b.addr)
	if err != nil {
		return fail("drain", err)
	}
	undo = append(undo, func() { _ = b.router.UndoDrain(b.addr, b.addr, p, drainRes) })

	taxCfg := b.factory.Tax()
	taxAmount := new(uint256.Int).Mul(drainRes.AssetAmount, uint256.NewInt(uint64(params.DragonswapTaxBps)))
	taxAmount.Div(taxAmount, uint256.NewInt(curve.BpsDenom))
	if !taxAmount.IsZero() {
		if err := assetLedger.Transfer(b.addr, taxCfg.Vault, taxAmount); err != nil {
			return fail("graduation tax", err)
		}
		undo = append(undo, func() { _ = assetLedger.Transfer(taxCfg.Vault, b.addr, taxAmount) })
	}
	seedAsset := new(uint256.Int).Sub(drainRes.AssetAmount, taxAmount)

	poolID, poolCustody, err := b.dex.CreatePool(ctx, info.Token, info.BaseAsset)
	if err != nil {
		return fail("create pool", err)
	}

	if err := tokenLedger.Transfer(b.addr, poolCustody, drainRes.TokenAmount); err != nil {
		return fail("seed token", err)
	}
	undo = append(undo, func() { _ = tokenLedger.Transfer(poolCustody, b.addr, drainRes.TokenAmount) })

	if err := assetLedger.Transfer(b.addr, poolCustody, seedAsset); err != nil {
		return fail("seed asset", err)
	}
	undo = append(undo, func() { _ = assetLedger.Transfer(poolCustody, b.addr, seedAsset) })

	if err := b.dex.AddLiquidity(ctx, poolID, drainRes.TokenAmount, seedAsset); err != nil {
		return fail("add liquidity", err)
	}

	info.TradingOnDragonswap = true
	info.refresh(b.factory.Multiplier())

	b.logger.Info("Token graduated",
		zap.String("token", info.Token.String()),
		zap.String("pool", string(poolID)),
		zap.String("token_seeded", drainRes.TokenAmount.Dec()),
		zap.String("asset_seeded", seedAsset.Dec()))

	return &events.TokenGraduatedEvent{
		BaseEvent:   events.Now(events.TokenGraduated),
		Token:       info.Token,
		Pool:        string(poolID),
		TokenSeeded: drainRes.TokenAmount.Dec(),
		AssetSeeded: seedAsset.Dec(),
	}, nil
}
