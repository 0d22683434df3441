// internal/bonding/bonding.go

// Package bonding is the launchpad's public entry point: it launches tokens,
// drives buys and sells through the execution router, maintains per-token
// market snapshots, and runs the one-way graduation to the external exchange.
//
// Every operation on one token executes as a single indivisible unit: it
// either completes with all side effects or fails with none.
package bonding

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/jugheadddd/launchpad-contracts/internal/amm"
	"github.com/jugheadddd/launchpad-contracts/internal/curve"
	"github.com/jugheadddd/launchpad-contracts/internal/events"
	"github.com/jugheadddd/launchpad-contracts/internal/factory"
	"github.com/jugheadddd/launchpad-contracts/internal/pair"
	"github.com/jugheadddd/launchpad-contracts/internal/router"
	"github.com/jugheadddd/launchpad-contracts/internal/token"
	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// Params are the global launch parameters. All amounts are 18-decimal
// fixed-point integers; MaxTxPercent is a whole percentage of total supply.
type Params struct {
	InitialSupply       *uint256.Int
	AssetLaunchFee      *uint256.Int
	NativeLaunchFee     *uint256.Int
	MaxTxPercent        uint64
	NativeGradThreshold *uint256.Int
	AssetGradThreshold  *uint256.Int
	DragonswapTaxBps    uint16
}

func (p Params) validate() error {
	if p.InitialSupply == nil || p.InitialSupply.IsZero() {
		return fmt.Errorf("%w: initial supply must be positive", ErrInvalidParam)
	}
	if p.MaxTxPercent == 0 || p.MaxTxPercent > 100 {
		return fmt.Errorf("%w: maxTx %d%% out of (0,100]", ErrInvalidParam, p.MaxTxPercent)
	}
	if p.DragonswapTaxBps >= curve.BpsDenom {
		return fmt.Errorf("%w: dragonswap tax %d bps", ErrInvalidParam, p.DragonswapTaxBps)
	}
	if p.AssetLaunchFee == nil || p.NativeLaunchFee == nil ||
		p.NativeGradThreshold == nil || p.AssetGradThreshold == nil {
		return fmt.Errorf("%w: missing amount parameter", ErrInvalidParam)
	}
	return nil
}

// Bonding is the orchestrator.
type Bonding struct {
	logger  *zap.Logger
	addr    types.Address
	factory *factory.Factory
	router  *router.Router
	bank    *token.Bank
	wrapper *token.Wrapper
	dex     amm.Adapter
	bus     *events.Bus

	mu     sync.RWMutex
	params Params
	infos  map[types.Address]*Info
	order  []types.Address
	locks  map[types.Address]*sync.Mutex
}

// New creates the orchestrator. The admin must grant it the creator role on
// the factory before the first launch; the router's executor role is implied
// through the orchestrator's own identity, which the admin also grants.
func New(
	logger *zap.Logger,
	f *factory.Factory,
	r *router.Router,
	bank *token.Bank,
	wrapper *token.Wrapper,
	dex amm.Adapter,
	bus *events.Bus,
	params Params,
) (*Bonding, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Bonding{
		logger:  logger.Named("bonding"),
		addr:    types.NewAddress("bonding"),
		factory: f,
		router:  r,
		bank:    bank,
		wrapper: wrapper,
		dex:     dex,
		bus:     bus,
		params:  params,
		infos:   make(map[types.Address]*Info),
		locks:   make(map[types.Address]*sync.Mutex),
	}, nil
}

// Address is the orchestrator's identity, to be granted the creator and
// executor roles.
func (b *Bonding) Address() types.Address { return b.addr }

// Launch creates a token trading against baseAsset. purchaseAmount must cover
// the launch fee, which seeds the pair's opening asset reserve; any remainder
// is immediately spent on a first buy, subject to the max-tx cap. The caller
// must have approved the orchestrator for purchaseAmount.
func (b *Bonding) Launch(ctx context.Context, caller types.Address, name, symbol string, baseAsset types.Address, purchaseAmount *uint256.Int) (*Info, error) {
	b.mu.RLock()
	params := b.params
	b.mu.RUnlock()
	return b.launch(ctx, caller, name, symbol, baseAsset, purchaseAmount, params.AssetLaunchFee, false, params)
}

// LaunchWithNative launches a token trading against the wrapped native coin,
// funding the purchase from the caller's attached native value.
func (b *Bonding) LaunchWithNative(ctx context.Context, caller types.Address, name, symbol string, value *uint256.Int) (*Info, error) {
	b.mu.RLock()
	params := b.params
	b.mu.RUnlock()
	if err := b.wrapNative(caller, value); err != nil {
		return nil, err
	}
	info, err := b.launch(ctx, caller, name, symbol, b.wrapper.Address(), value, params.NativeLaunchFee, true, params)
	if err != nil {
		// Return the attached value to native units.
		_ = b.unwrapNative(caller, value)
		return nil, err
	}
	return info, nil
}

func (b *Bonding) launch(ctx context.Context, caller types.Address, name, symbol string, baseAsset types.Address, purchaseAmount, launchFee *uint256.Int, native bool, params Params) (*Info, error) {
	if purchaseAmount == nil || purchaseAmount.Lt(launchFee) {
		return nil, fmt.Errorf("%w: %s < fee %s", ErrInsufficientLaunchAmount,
			amountDec(purchaseAmount), launchFee.Dec())
	}
	assetLedger, err := b.bank.Ledger(baseAsset)
	if err != nil {
		return nil, err
	}

	// Reject everything rejectable before any state moves: funding and the
	// max-tx cap on the embedded first buy are both checkable upfront.
	if assetLedger.BalanceOf(caller).Lt(purchaseAmount) ||
		assetLedger.Allowance(caller, b.addr).Lt(purchaseAmount) {
		return nil, fmt.Errorf("%w: launch funding not approved", router.ErrTransferFailed)
	}
	// Allowance at entry; any excess over purchaseAmount stays the caller's,
	// and a failed launch restores the full entry value.
	entryAllowance := assetLedger.Allowance(caller, b.addr)
	remainder := new(uint256.Int).Sub(purchaseAmount, launchFee)
	if !remainder.IsZero() {
		tax := b.factory.Tax()
		out, _, err := curve.AmountOutForBuy(remainder, params.InitialSupply, launchFee, b.factory.Multiplier(), tax.BuyTaxBps)
		if err != nil {
			return nil, err
		}
		maxTokens := new(uint256.Int).Mul(params.InitialSupply, uint256.NewInt(params.MaxTxPercent))
		maxTokens.Div(maxTokens, uint256.NewInt(100))
		if maxTokens.Lt(out) {
			return nil, fmt.Errorf("%w: %s tokens out at launch", ErrExceedsMaxTx, out.Dec())
		}
	}

	tokenAddr, tokenLedger, err := b.bank.Deploy(name, symbol)
	if err != nil {
		return nil, err
	}
	p, err := b.factory.CreatePair(b.addr, tokenAddr, baseAsset)
	if err != nil {
		return nil, err
	}

	// The full issuance starts in curve custody; the launch fee becomes the
	// opening asset reserve.
	if err := tokenLedger.Mint(p.Custody(), params.InitialSupply); err != nil {
		return nil, err
	}
	if err := assetLedger.TransferFrom(caller, b.addr, p.Custody(), purchaseAmount); err != nil {
		return nil, fmt.Errorf("%w: launch funding: %v", router.ErrTransferFailed, err)
	}
	p.Seed(params.InitialSupply, launchFee)

	info := &Info{
		Creator:      caller,
		Token:        tokenAddr,
		Pair:         p.Custody(),
		BaseAsset:    baseAsset,
		NativeBase:   native,
		Trading:      true,
		LaunchSupply: new(uint256.Int).Set(params.InitialSupply),
		Data: Data{
			Name:   name,
			Symbol: symbol,
			Volume: uint256.NewInt(0),
		},
		ledger: &pairRef{p: p},
	}
	info.refresh(b.factory.Multiplier())

	// The remainder above the fee is custodied by the pair but not yet part
	// of any reserve; run it through the curve as the creator's first buy.
	if !remainder.IsZero() {
		// Funds already sit in custody; pull them back out so the regular
		// buy choreography (and its rollback) applies unchanged.
		if err := assetLedger.Transfer(p.Custody(), caller, remainder); err != nil {
			return nil, fmt.Errorf("%w: launch buy funding: %v", router.ErrTransferFailed, err)
		}
		// Top the allowance back up for the embedded buy without clobbering
		// any excess the caller pre-approved beyond purchaseAmount.
		topped := new(uint256.Int).Sub(entryAllowance, purchaseAmount)
		topped.Add(topped, remainder)
		if err := assetLedger.Approve(caller, b.addr, topped); err != nil {
			return nil, err
		}
		if _, err := b.executeBuy(ctx, caller, info, p, remainder, params); err != nil {
			// Unwind the launch itself: fee back to the caller, the pair and
			// the token ledger gone as if never created.
			if txErr := assetLedger.Transfer(p.Custody(), caller, launchFee); txErr != nil {
				b.logger.Error("Launch rollback failed", zap.Error(txErr))
			}
			p.Drain()
			_ = b.factory.RemovePair(b.addr, tokenAddr, baseAsset)
			b.bank.Remove(tokenAddr)
			_ = assetLedger.Approve(caller, b.addr, entryAllowance)
			return nil, err
		}
	}

	// Snapshot before the token becomes visible to other goroutines; after
	// registration only the per-token lock makes reads of info safe.
	snap := info.snapshot()

	b.mu.Lock()
	b.infos[tokenAddr] = info
	b.order = append(b.order, tokenAddr)
	b.locks[tokenAddr] = &sync.Mutex{}
	b.mu.Unlock()

	b.logger.Info("Token launched",
		zap.String("token", tokenAddr.String()),
		zap.String("pair", p.Custody().String()),
		zap.String("creator", caller.String()),
		zap.String("purchase", purchaseAmount.Dec()),
		zap.Bool("native", native))

	b.publish(&events.TokenLaunchedEvent{
		BaseEvent:      events.Now(events.TokenLaunched),
		Token:          tokenAddr,
		Pair:           p.Custody(),
		Creator:        caller,
		BaseAsset:      baseAsset,
		Name:           name,
		Symbol:         symbol,
		Supply:         params.InitialSupply.Dec(),
		PurchaseAmount: purchaseAmount.Dec(),
	})
	b.publish(&events.PairCreatedEvent{
		BaseEvent: events.Now(events.PairCreated),
		Token:     tokenAddr,
		BaseAsset: baseAsset,
		Pair:      p.Custody(),
	})

	return &snap, nil
}

// Buy swaps amountIn of the token's base asset for tokens. The caller must
// have approved the orchestrator for amountIn.
func (b *Bonding) Buy(ctx context.Context, caller types.Address, amountIn *uint256.Int, tokenAddr, baseAsset types.Address) (*uint256.Int, error) {
	info, lock, params, err := b.acquire(tokenAddr)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	if info.BaseAsset != baseAsset {
		return nil, fmt.Errorf("%w: token trades against %s", ErrBaseAssetMismatch, info.BaseAsset)
	}
	res, err := b.executeBuy(ctx, caller, info, info.ledger.p, amountIn, params)
	if err != nil {
		return nil, err
	}
	return res.AmountOut, nil
}

// BuyWithNative buys with attached native value, wrapping it first.
func (b *Bonding) BuyWithNative(ctx context.Context, caller types.Address, tokenAddr types.Address, value *uint256.Int) (*uint256.Int, error) {
	if err := b.wrapNative(caller, value); err != nil {
		return nil, err
	}
	out, err := b.Buy(ctx, caller, value, tokenAddr, b.wrapper.Address())
	if err != nil {
		_ = b.unwrapNative(caller, value)
		return nil, err
	}
	return out, nil
}

// Sell swaps amountIn tokens back into the base asset. The caller must hold
// and have approved at least amountIn.
func (b *Bonding) Sell(ctx context.Context, caller types.Address, amountIn *uint256.Int, tokenAddr, baseAsset types.Address) (*uint256.Int, error) {
	info, lock, params, err := b.acquire(tokenAddr)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	if info.BaseAsset != baseAsset {
		return nil, fmt.Errorf("%w: token trades against %s", ErrBaseAssetMismatch, info.BaseAsset)
	}
	if !info.Trading {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotTrading, tokenAddr)
	}
	if amountIn != nil && maxTxTokens(params, info).Lt(amountIn) {
		return nil, fmt.Errorf("%w: selling %s tokens", ErrExceedsMaxTx, amountIn.Dec())
	}

	res, err := b.router.Sell(b.addr, caller, info.ledger.p, amountIn)
	if err != nil {
		return nil, err
	}

	info.Data.Volume.Add(info.Data.Volume, res.AmountOut)
	info.refresh(b.factory.Multiplier())
	price := info.Data.Price.Dec()

	// A lowered threshold can make an already-large reserve graduate on its
	// next trade evaluation, whichever direction that trade goes.
	gradEvent, err := b.maybeGraduate(ctx, info, params)
	if err != nil {
		if undoErr := b.router.UndoSell(b.addr, caller, info.ledger.p, res); undoErr != nil {
			b.logger.Error("Sell rollback failed", zap.Error(undoErr))
		}
		info.Data.Volume.Sub(info.Data.Volume, res.AmountOut)
		info.refresh(b.factory.Multiplier())
		return nil, err
	}

	b.publish(&events.TradeExecutedEvent{
		BaseEvent: events.Now(events.TradeExecuted),
		Token:     tokenAddr,
		Trader:    caller,
		Side:      types.SideSell,
		AmountIn:  res.AmountIn.Dec(),
		AmountOut: res.AmountOut.Dec(),
		Price:     price,
	})
	if gradEvent != nil {
		b.publish(gradEvent)
	}
	return res.AmountOut, nil
}

// SellWithNative sells and unwraps the proceeds back to native units.
func (b *Bonding) SellWithNative(ctx context.Context, caller types.Address, amountIn *uint256.Int, tokenAddr types.Address) (*uint256.Int, error) {
	out, err := b.Sell(ctx, caller, amountIn, tokenAddr, b.wrapper.Address())
	if err != nil {
		return nil, err
	}
	if err := b.unwrapNative(caller, out); err != nil {
		return nil, err
	}
	return out, nil
}

// executeBuy runs the buy choreography for an already-resolved token: cap
// check, swap, snapshot update, then graduation evaluation. A graduation
// failure unwinds the buy.
func (b *Bonding) executeBuy(ctx context.Context, caller types.Address, info *Info, p *pair.Pair, amountIn *uint256.Int, params Params) (*router.TradeResult, error) {
	if !info.Trading {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotTrading, info.Token)
	}

	tokenReserve, assetReserve := p.Reserves()
	tax := b.factory.Tax()
	out, _, err := curve.AmountOutForBuy(amountIn, tokenReserve, assetReserve, b.factory.Multiplier(), tax.BuyTaxBps)
	if err != nil {
		return nil, err
	}
	if maxTxTokens(params, info).Lt(out) {
		return nil, fmt.Errorf("%w: %s tokens out", ErrExceedsMaxTx, out.Dec())
	}

	res, err := b.router.Buy(b.addr, caller, p, amountIn)
	if err != nil {
		return nil, err
	}

	info.Data.Volume.Add(info.Data.Volume, res.NetIn)
	info.refresh(b.factory.Multiplier())
	price := info.Data.Price.Dec()

	gradEvent, err := b.maybeGraduate(ctx, info, params)
	if err != nil {
		if undoErr := b.router.UndoBuy(b.addr, caller, p, res); undoErr != nil {
			b.logger.Error("Buy rollback failed", zap.Error(undoErr))
		}
		info.Data.Volume.Sub(info.Data.Volume, res.NetIn)
		info.refresh(b.factory.Multiplier())
		return nil, err
	}

	// Published only once the whole operation, graduation included, has
	// committed; a rolled-back trade must leave no observable trace.
	b.publish(&events.TradeExecutedEvent{
		BaseEvent: events.Now(events.TradeExecuted),
		Token:     info.Token,
		Trader:    caller,
		Side:      types.SideBuy,
		AmountIn:  res.AmountIn.Dec(),
		AmountOut: res.AmountOut.Dec(),
		Price:     price,
	})
	if gradEvent != nil {
		b.publish(gradEvent)
	}
	return res, nil
}

// MaxBuyInput returns the largest base-asset input a single buy of this token
// accepts under the max-tx cap at current reserves. Submitting exactly this
// value succeeds; one unit more fails.
func (b *Bonding) MaxBuyInput(tokenAddr types.Address) (*uint256.Int, error) {
	info, lock, params, err := b.acquire(tokenAddr)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()
	if !info.Trading {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotTrading, tokenAddr)
	}
	tokenReserve, assetReserve := info.ledger.p.Reserves()
	tax := b.factory.Tax()
	return curve.MaxBuyInput(tokenReserve, assetReserve, maxTxTokens(params, info), b.factory.Multiplier(), tax.BuyTaxBps), nil
}

// MaxLaunchInput returns the largest purchase amount a launch accepts: the
// launch fee plus the largest first buy the max-tx cap allows at the opening
// reserves.
func (b *Bonding) MaxLaunchInput(native bool) *uint256.Int {
	b.mu.RLock()
	params := b.params
	b.mu.RUnlock()

	fee := params.AssetLaunchFee
	if native {
		fee = params.NativeLaunchFee
	}
	maxTokens := new(uint256.Int).Mul(params.InitialSupply, uint256.NewInt(params.MaxTxPercent))
	maxTokens.Div(maxTokens, uint256.NewInt(100))
	tax := b.factory.Tax()
	maxBuy := curve.MaxBuyInput(params.InitialSupply, fee, maxTokens, b.factory.Multiplier(), tax.BuyTaxBps)
	return maxBuy.Add(maxBuy, fee)
}

// TokenInfo returns a detached copy of the token's record. It takes the
// per-token lock: trades mutate the record's amounts in place, so an unlocked
// copy could observe a half-updated snapshot.
func (b *Bonding) TokenInfo(tokenAddr types.Address) (Info, error) {
	info, lock, _, err := b.acquire(tokenAddr)
	if err != nil {
		return Info{}, err
	}
	lock.Lock()
	defer lock.Unlock()
	return info.snapshot(), nil
}

// TokenAt returns the address of the i-th launched token, in launch order.
func (b *Bonding) TokenAt(i int) (types.Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i < 0 || i >= len(b.order) {
		return types.ZeroAddress, fmt.Errorf("%w: index %d", ErrTokenNotFound, i)
	}
	return b.order[i], nil
}

// TokenCount returns the number of launched tokens.
func (b *Bonding) TokenCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// SetInitialSupply changes the issuance for future launches. Admin only.
func (b *Bonding) SetInitialSupply(caller types.Address, supply *uint256.Int) error {
	return b.setParam(caller, func(p *Params) error {
		if supply == nil || supply.IsZero() {
			return fmt.Errorf("%w: initial supply must be positive", ErrInvalidParam)
		}
		p.InitialSupply = new(uint256.Int).Set(supply)
		return nil
	})
}

// SetNativeGradThreshold changes the graduation threshold for native-based
// tokens. Admin only; applies on each token's next trade evaluation.
func (b *Bonding) SetNativeGradThreshold(caller types.Address, threshold *uint256.Int) error {
	return b.setParam(caller, func(p *Params) error {
		if threshold == nil {
			return fmt.Errorf("%w: nil threshold", ErrInvalidParam)
		}
		p.NativeGradThreshold = new(uint256.Int).Set(threshold)
		return nil
	})
}

// SetAssetGradThreshold changes the graduation threshold for asset-based
// tokens. Admin only; applies on each token's next trade evaluation.
func (b *Bonding) SetAssetGradThreshold(caller types.Address, threshold *uint256.Int) error {
	return b.setParam(caller, func(p *Params) error {
		if threshold == nil {
			return fmt.Errorf("%w: nil threshold", ErrInvalidParam)
		}
		p.AssetGradThreshold = new(uint256.Int).Set(threshold)
		return nil
	})
}

// SetMaxTx changes the max-tx percentage. Admin only.
func (b *Bonding) SetMaxTx(caller types.Address, percent uint64) error {
	return b.setParam(caller, func(p *Params) error {
		if percent == 0 || percent > 100 {
			return fmt.Errorf("%w: maxTx %d%% out of (0,100]", ErrInvalidParam, percent)
		}
		p.MaxTxPercent = percent
		return nil
	})
}

func (b *Bonding) setParam(caller types.Address, apply func(*Params) error) error {
	if !b.factory.HasRole(factory.RoleAdmin, caller) {
		return fmt.Errorf("%w: %s setting launch parameter", factory.ErrUnauthorized, caller)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return apply(&b.params)
}

func (b *Bonding) acquire(tokenAddr types.Address) (*Info, *sync.Mutex, Params, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info, ok := b.infos[tokenAddr]
	if !ok {
		return nil, nil, Params{}, fmt.Errorf("%w: %s", ErrTokenNotFound, tokenAddr)
	}
	return info, b.locks[tokenAddr], b.params, nil
}

func (b *Bonding) wrapNative(caller types.Address, value *uint256.Int) error {
	if err := b.wrapper.Deposit(caller, value); err != nil {
		return err
	}
	// Attaching native value is the approval.
	return b.wrapper.Token().Approve(caller, b.addr, value)
}

func (b *Bonding) unwrapNative(caller types.Address, value *uint256.Int) error {
	return b.wrapper.Withdraw(caller, value)
}

func (b *Bonding) publish(event events.Event) {
	if b.bus == nil {
		return
	}
	_ = b.bus.Publish(event)
}

// maxTxTokens is the per-trade token ceiling: MaxTxPercent of the supply
// fixed at launch.
func maxTxTokens(params Params, info *Info) *uint256.Int {
	m := new(uint256.Int).Mul(info.LaunchSupply, uint256.NewInt(params.MaxTxPercent))
	return m.Div(m, uint256.NewInt(100))
}

func amountDec(a *uint256.Int) string {
	if a == nil {
		return "0"
	}
	return a.Dec()
}
