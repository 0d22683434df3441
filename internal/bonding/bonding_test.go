// internal/bonding/bonding_test.go
package bonding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jugheadddd/launchpad-contracts/internal/amm"
	"github.com/jugheadddd/launchpad-contracts/internal/curve"
	"github.com/jugheadddd/launchpad-contracts/internal/events"
	"github.com/jugheadddd/launchpad-contracts/internal/factory"
	"github.com/jugheadddd/launchpad-contracts/internal/router"
	"github.com/jugheadddd/launchpad-contracts/internal/token"
	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), curve.PriceScale)
}

func defaultParams() Params {
	return Params{
		InitialSupply:       e18(1_000_000_000),
		AssetLaunchFee:      e18(10),
		NativeLaunchFee:     e18(10),
		MaxTxPercent:        5,
		NativeGradThreshold: e18(1_000_000),
		AssetGradThreshold:  e18(1_000_000),
		DragonswapTaxBps:    100,
	}
}

type fixture struct {
	admin types.Address
	vault types.Address
	alice types.Address
	bob   types.Address

	bank    *token.Bank
	native  *token.NativeBank
	wrapper *token.Wrapper
	factory *factory.Factory
	router  *router.Router
	dex     *amm.Dragonswap
	bonding *Bonding

	usdc       types.Address
	usdcLedger token.Ledger
}

func newFixture(t *testing.T, params Params, dex amm.Adapter) *fixture {
	return newFixtureWithBus(t, params, dex, nil)
}

func newFixtureWithBus(t *testing.T, params Params, dex amm.Adapter, bus *events.Bus) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	fx := &fixture{
		admin: types.NewAddress("admin"),
		vault: types.NewAddress("vault"),
		alice: types.NewAddress("alice"),
		bob:   types.NewAddress("bob"),
	}

	var err error
	fx.factory, err = factory.New(logger, fx.admin, factory.TaxConfig{
		BuyTaxBps:  100,
		SellTaxBps: 100,
		Vault:      fx.vault,
	}, 5)
	require.NoError(t, err)

	fx.bank = token.NewBank(logger)
	fx.router, err = router.New(logger, fx.factory, fx.bank, fx.admin)
	require.NoError(t, err)

	fx.native = token.NewNativeBank()
	fx.wrapper, err = token.NewWrapper(fx.bank, fx.native, "Wrapped SEI", "WSEI")
	require.NoError(t, err)

	if dex == nil {
		fx.dex = amm.NewDragonswap(logger, fx.bank)
		dex = fx.dex
	}
	fx.bonding, err = New(logger, fx.factory, fx.router, fx.bank, fx.wrapper, dex, bus, params)
	require.NoError(t, err)

	require.NoError(t, fx.factory.GrantRole(fx.admin, factory.RoleCreator, fx.bonding.Address()))
	require.NoError(t, fx.factory.GrantRole(fx.admin, factory.RoleExecutor, fx.bonding.Address()))

	usdc := token.NewToken("USD Coin", "USDC")
	fx.usdc = types.NewAddress("usdc")
	require.NoError(t, fx.bank.Register(fx.usdc, usdc))
	require.NoError(t, usdc.Mint(fx.alice, e18(1_000_000)))
	require.NoError(t, usdc.Mint(fx.bob, e18(1_000_000)))
	fx.usdcLedger = usdc

	return fx
}

// launch funds and approves the purchase, then launches a token for alice.
func (fx *fixture) launch(t *testing.T, purchase *uint256.Int) *Info {
	t.Helper()
	require.NoError(t, fx.usdcLedger.Approve(fx.alice, fx.bonding.Address(), purchase))
	info, err := fx.bonding.Launch(context.Background(), fx.alice, "Dragon", "DRG", fx.usdc, purchase)
	require.NoError(t, err)
	return info
}

func TestLaunchFeeSeedsOpeningReserves(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)

	info := fx.launch(t, params.AssetLaunchFee)

	tokenLedger, err := fx.bank.Ledger(info.Token)
	require.NoError(t, err)

	// Purchase equal to the fee buys nothing; the fee is the opening reserve.
	assert.True(t, tokenLedger.BalanceOf(fx.alice).IsZero())
	assert.Equal(t, params.InitialSupply, tokenLedger.BalanceOf(info.Pair))
	assert.Equal(t, params.AssetLaunchFee, fx.usdcLedger.BalanceOf(info.Pair))

	p, err := fx.factory.Pair(info.Token, fx.usdc)
	require.NoError(t, err)
	tokenReserve, assetReserve := p.Reserves()
	assert.Equal(t, params.InitialSupply, tokenReserve)
	assert.Equal(t, params.AssetLaunchFee, assetReserve)

	assert.True(t, info.Trading)
	assert.False(t, info.TradingOnDragonswap)
	assert.True(t, info.Data.Volume.IsZero())
	assert.Equal(t, "Dragon", info.Data.Name)
	assert.Equal(t, 1, fx.bonding.TokenCount())
}

func TestLaunchWithFirstBuy(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)

	purchase := e18(15)
	remainder := e18(5)
	tax := fx.factory.Tax()
	wantOut, wantNet, err := curve.AmountOutForBuy(remainder, params.InitialSupply,
		params.AssetLaunchFee, fx.factory.Multiplier(), tax.BuyTaxBps)
	require.NoError(t, err)

	info := fx.launch(t, purchase)

	tokenLedger, err := fx.bank.Ledger(info.Token)
	require.NoError(t, err)
	assert.Equal(t, wantOut, tokenLedger.BalanceOf(fx.alice))
	assert.Equal(t, wantNet, info.Data.Volume)

	p, err := fx.factory.Pair(info.Token, fx.usdc)
	require.NoError(t, err)
	tokenReserve, assetReserve := p.Reserves()
	assert.Equal(t, new(uint256.Int).Sub(params.InitialSupply, wantOut), tokenReserve)
	assert.Equal(t, new(uint256.Int).Add(params.AssetLaunchFee, wantNet), assetReserve)

	// The buy tax on the first buy lands in the vault.
	assert.Equal(t, new(uint256.Int).Sub(remainder, wantNet), fx.usdcLedger.BalanceOf(fx.vault))
}

func TestLaunchBelowFee(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)

	_, err := fx.bonding.Launch(context.Background(), fx.alice, "Dragon", "DRG", fx.usdc, e18(1))
	require.ErrorIs(t, err, ErrInsufficientLaunchAmount)
	assert.Equal(t, 0, fx.bonding.TokenCount())
}

func TestLaunchWithoutApproval(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)

	_, err := fx.bonding.Launch(context.Background(), fx.alice, "Dragon", "DRG", fx.usdc, params.AssetLaunchFee)
	require.ErrorIs(t, err, router.ErrTransferFailed)
	assert.Equal(t, 0, fx.bonding.TokenCount())
	assert.Equal(t, e18(1_000_000), fx.usdcLedger.BalanceOf(fx.alice))
}

func TestLaunchFirstBuyExceedsMaxTx(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)

	// A purchase this large would take far more than 5% of supply.
	purchase := e18(100)
	require.NoError(t, fx.usdcLedger.Approve(fx.alice, fx.bonding.Address(), purchase))
	_, err := fx.bonding.Launch(context.Background(), fx.alice, "Dragon", "DRG", fx.usdc, purchase)
	require.ErrorIs(t, err, ErrExceedsMaxTx)

	// Nothing moved: no token, no fee taken.
	assert.Equal(t, 0, fx.bonding.TokenCount())
	assert.Equal(t, e18(1_000_000), fx.usdcLedger.BalanceOf(fx.alice))
	assert.True(t, fx.usdcLedger.BalanceOf(fx.vault).IsZero())
}

func TestMaxLaunchInputIsTight(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)

	max := fx.bonding.MaxLaunchInput(false)
	require.NoError(t, fx.usdcLedger.Approve(fx.alice, fx.bonding.Address(), max))
	_, err := fx.bonding.Launch(context.Background(), fx.alice, "Dragon", "DRG", fx.usdc, max)
	require.NoError(t, err)

	over := new(uint256.Int).AddUint64(max, 1)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), over))
	_, err = fx.bonding.Launch(context.Background(), fx.bob, "Wyvern", "WYV", fx.usdc, over)
	require.ErrorIs(t, err, ErrExceedsMaxTx)
}

func TestBuySellRoundTrip(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)
	info := fx.launch(t, params.AssetLaunchFee)
	ctx := context.Background()

	tokenLedger, err := fx.bank.Ledger(info.Token)
	require.NoError(t, err)
	bobAssetBefore := new(uint256.Int).Set(fx.usdcLedger.BalanceOf(fx.bob))

	amountIn := e18(2)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), amountIn))
	out, err := fx.bonding.Buy(ctx, fx.bob, amountIn, info.Token, fx.usdc)
	require.NoError(t, err)
	require.False(t, out.IsZero())
	assert.Equal(t, out, tokenLedger.BalanceOf(fx.bob))

	// Issuance is conserved: trader holdings plus curve custody.
	total := new(uint256.Int).Add(tokenLedger.BalanceOf(fx.bob), tokenLedger.BalanceOf(info.Pair))
	assert.Equal(t, params.InitialSupply, total)

	require.NoError(t, tokenLedger.Approve(fx.bob, fx.bonding.Address(), out))
	proceeds, err := fx.bonding.Sell(ctx, fx.bob, out, info.Token, fx.usdc)
	require.NoError(t, err)
	assert.True(t, tokenLedger.BalanceOf(fx.bob).IsZero())
	assert.Equal(t, params.InitialSupply, tokenLedger.BalanceOf(info.Pair))

	// Round-tripping through both taxes always loses value.
	bobAssetAfter := fx.usdcLedger.BalanceOf(fx.bob)
	assert.True(t, bobAssetAfter.Lt(bobAssetBefore))
	spent := new(uint256.Int).Sub(bobAssetBefore, bobAssetAfter)
	assert.Equal(t, new(uint256.Int).Sub(amountIn, proceeds), spent)
	assert.False(t, fx.usdcLedger.BalanceOf(fx.vault).IsZero())

	// Volume accrued on both legs.
	updated, err := fx.bonding.TokenInfo(info.Token)
	require.NoError(t, err)
	assert.False(t, updated.Data.Volume.IsZero())
}

func TestMaxBuyInputIsTight(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)
	info := fx.launch(t, params.AssetLaunchFee)
	ctx := context.Background()

	max, err := fx.bonding.MaxBuyInput(info.Token)
	require.NoError(t, err)

	over := new(uint256.Int).AddUint64(max, 1)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), over))
	_, err = fx.bonding.Buy(ctx, fx.bob, over, info.Token, fx.usdc)
	require.ErrorIs(t, err, ErrExceedsMaxTx)

	// The cap is exact: one unit less goes through.
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), max))
	_, err = fx.bonding.Buy(ctx, fx.bob, max, info.Token, fx.usdc)
	require.NoError(t, err)
}

func TestSellExceedsMaxTx(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)
	info := fx.launch(t, params.AssetLaunchFee)

	cap := new(uint256.Int).Mul(params.InitialSupply, uint256.NewInt(params.MaxTxPercent))
	cap.Div(cap, uint256.NewInt(100))
	over := cap.AddUint64(cap, 1)

	_, err := fx.bonding.Sell(context.Background(), fx.bob, over, info.Token, fx.usdc)
	require.ErrorIs(t, err, ErrExceedsMaxTx)
}

func TestUnknownToken(t *testing.T) {
	fx := newFixture(t, defaultParams(), nil)

	_, err := fx.bonding.Buy(context.Background(), fx.bob, e18(1), types.NewAddress("ghost"), fx.usdc)
	require.ErrorIs(t, err, ErrTokenNotFound)
	_, err = fx.bonding.TokenInfo(types.NewAddress("ghost"))
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestBaseAssetMismatch(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)
	info := fx.launch(t, params.AssetLaunchFee)

	_, err := fx.bonding.Buy(context.Background(), fx.bob, e18(1), info.Token, fx.wrapper.Address())
	require.ErrorIs(t, err, ErrBaseAssetMismatch)
}

func TestTokenEnumeration(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)

	first := fx.launch(t, params.AssetLaunchFee)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), params.AssetLaunchFee))
	second, err := fx.bonding.Launch(context.Background(), fx.bob, "Wyvern", "WYV", fx.usdc, params.AssetLaunchFee)
	require.NoError(t, err)

	require.Equal(t, 2, fx.bonding.TokenCount())
	at0, err := fx.bonding.TokenAt(0)
	require.NoError(t, err)
	assert.Equal(t, first.Token, at0)
	at1, err := fx.bonding.TokenAt(1)
	require.NoError(t, err)
	assert.Equal(t, second.Token, at1)

	_, err = fx.bonding.TokenAt(2)
	require.ErrorIs(t, err, ErrTokenNotFound)
	_, err = fx.bonding.TokenAt(-1)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func gradParams() Params {
	p := defaultParams()
	p.MaxTxPercent = 50
	p.AssetGradThreshold = e18(15)
	p.NativeGradThreshold = e18(15)
	return p
}

func TestGraduation(t *testing.T) {
	params := gradParams()
	fx := newFixture(t, params, nil)
	info := fx.launch(t, params.AssetLaunchFee)
	ctx := context.Background()

	tokenLedger, err := fx.bank.Ledger(info.Token)
	require.NoError(t, err)

	// One buy pushes real custody past the threshold and graduates the token
	// within the same call.
	amountIn := e18(10)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), amountIn))
	out, err := fx.bonding.Buy(ctx, fx.bob, amountIn, info.Token, fx.usdc)
	require.NoError(t, err)

	updated, err := fx.bonding.TokenInfo(info.Token)
	require.NoError(t, err)
	assert.False(t, updated.Trading)
	assert.True(t, updated.TradingOnDragonswap)

	// Curve custody is drained to exactly zero on both sides.
	assert.True(t, tokenLedger.BalanceOf(info.Pair).IsZero())
	assert.True(t, fx.usdcLedger.BalanceOf(info.Pair).IsZero())
	p, err := fx.factory.Pair(info.Token, fx.usdc)
	require.NoError(t, err)
	tokenReserve, assetReserve := p.Reserves()
	assert.True(t, tokenReserve.IsZero())
	assert.True(t, assetReserve.IsZero())

	// The pool holds the drained custody less the graduation tax.
	poolID, err := fx.dex.Pool(info.Token, fx.usdc)
	require.NoError(t, err)
	poolToken, poolAsset, err := fx.dex.Reserves(poolID)
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).Sub(params.InitialSupply, out), poolToken)

	buyTax := new(uint256.Int).Mul(amountIn, uint256.NewInt(100))
	buyTax.Div(buyTax, uint256.NewInt(curve.BpsDenom))
	netIn := new(uint256.Int).Sub(amountIn, buyTax)
	drainedAsset := new(uint256.Int).Add(params.AssetLaunchFee, netIn)
	gradTax := new(uint256.Int).Mul(drainedAsset, uint256.NewInt(uint64(params.DragonswapTaxBps)))
	gradTax.Div(gradTax, uint256.NewInt(curve.BpsDenom))
	assert.Equal(t, new(uint256.Int).Sub(drainedAsset, gradTax), poolAsset)

	// Vault collected the buy tax and the graduation tax.
	assert.Equal(t, new(uint256.Int).Add(buyTax, gradTax), fx.usdcLedger.BalanceOf(fx.vault))

	// The transition is terminal.
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), e18(1)))
	_, err = fx.bonding.Buy(ctx, fx.bob, e18(1), info.Token, fx.usdc)
	require.ErrorIs(t, err, ErrTokenNotTrading)
	require.NoError(t, tokenLedger.Approve(fx.bob, fx.bonding.Address(), out))
	_, err = fx.bonding.Sell(ctx, fx.bob, out, info.Token, fx.usdc)
	require.ErrorIs(t, err, ErrTokenNotTrading)
}

func TestGraduationOnSell(t *testing.T) {
	params := gradParams()
	fx := newFixture(t, params, nil)
	ctx := context.Background()

	// Stay just under the threshold on the buy, then lower the threshold so
	// the next trade, a sell, triggers graduation.
	info := fx.launch(t, params.AssetLaunchFee)
	amountIn := e18(4)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), amountIn))
	out, err := fx.bonding.Buy(ctx, fx.bob, amountIn, info.Token, fx.usdc)
	require.NoError(t, err)

	updated, err := fx.bonding.TokenInfo(info.Token)
	require.NoError(t, err)
	require.True(t, updated.Trading)

	require.NoError(t, fx.bonding.SetAssetGradThreshold(fx.admin, e18(10)))

	tokenLedger, err := fx.bank.Ledger(info.Token)
	require.NoError(t, err)
	require.NoError(t, tokenLedger.Approve(fx.bob, fx.bonding.Address(), out))
	_, err = fx.bonding.Sell(ctx, fx.bob, out, info.Token, fx.usdc)
	require.NoError(t, err)

	updated, err = fx.bonding.TokenInfo(info.Token)
	require.NoError(t, err)
	assert.True(t, updated.TradingOnDragonswap)
}

// brokenDex accepts pool creation but fails every liquidity add.
type brokenDex struct{}

func (brokenDex) CreatePool(context.Context, types.Address, types.Address) (amm.PoolID, types.Address, error) {
	return "dragonswap:broken", types.NewAddress("pool"), nil
}

func (brokenDex) AddLiquidity(context.Context, amm.PoolID, *uint256.Int, *uint256.Int) error {
	return errors.New("pool manager unavailable")
}

func TestGraduationFailureUnwindsTrade(t *testing.T) {
	params := gradParams()
	fx := newFixture(t, params, brokenDex{})
	info := fx.launch(t, params.AssetLaunchFee)
	ctx := context.Background()

	tokenLedger, err := fx.bank.Ledger(info.Token)
	require.NoError(t, err)
	p, err := fx.factory.Pair(info.Token, fx.usdc)
	require.NoError(t, err)

	bobAsset := new(uint256.Int).Set(fx.usdcLedger.BalanceOf(fx.bob))
	custodyToken := new(uint256.Int).Set(tokenLedger.BalanceOf(info.Pair))
	custodyAsset := new(uint256.Int).Set(fx.usdcLedger.BalanceOf(info.Pair))
	reserveToken, reserveAsset := p.Reserves()

	amountIn := e18(10)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), amountIn))
	_, err = fx.bonding.Buy(ctx, fx.bob, amountIn, info.Token, fx.usdc)
	require.ErrorIs(t, err, ErrGraduationFailed)

	// The triggering buy is unwound with the graduation: balances, custody,
	// reserves, flags, and volume are all as before the call.
	assert.Equal(t, bobAsset, fx.usdcLedger.BalanceOf(fx.bob))
	assert.True(t, tokenLedger.BalanceOf(fx.bob).IsZero())
	assert.True(t, fx.usdcLedger.BalanceOf(fx.vault).IsZero())
	assert.Equal(t, custodyToken, tokenLedger.BalanceOf(info.Pair))
	assert.Equal(t, custodyAsset, fx.usdcLedger.BalanceOf(info.Pair))
	gotToken, gotAsset := p.Reserves()
	assert.Equal(t, reserveToken, gotToken)
	assert.Equal(t, reserveAsset, gotAsset)

	updated, err := fx.bonding.TokenInfo(info.Token)
	require.NoError(t, err)
	assert.True(t, updated.Trading)
	assert.False(t, updated.TradingOnDragonswap)
	assert.True(t, updated.Data.Volume.IsZero())

	// Trading keeps working once the threshold no longer bites.
	require.NoError(t, fx.bonding.SetAssetGradThreshold(fx.admin, e18(1_000_000)))
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), amountIn))
	_, err = fx.bonding.Buy(ctx, fx.bob, amountIn, info.Token, fx.usdc)
	require.NoError(t, err)
}

// eventLog collects bus deliveries in order.
type eventLog struct {
	mu    sync.Mutex
	types []events.EventType
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, e.Type())
	return nil
}

func (l *eventLog) count(typ events.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, got := range l.types {
		if got == typ {
			n++
		}
	}
	return n
}

func TestRolledBackTradePublishesNothing(t *testing.T) {
	params := gradParams()
	ctx := context.Background()

	bus := events.NewBus(zaptest.NewLogger(t), 16)
	log := &eventLog{}
	bus.SubscribeFunc(events.TradeExecuted, log.record)
	bus.SubscribeFunc(events.TokenGraduated, log.record)

	fx := newFixtureWithBus(t, params, brokenDex{}, bus)
	info := fx.launch(t, params.AssetLaunchFee)

	amountIn := e18(10)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), amountIn))
	_, err := fx.bonding.Buy(ctx, fx.bob, amountIn, info.Token, fx.usdc)
	require.ErrorIs(t, err, ErrGraduationFailed)

	// Flush the bus: the unwound buy must have left no trace on it.
	require.NoError(t, bus.Shutdown(ctx))
	assert.Zero(t, log.count(events.TradeExecuted))
	assert.Zero(t, log.count(events.TokenGraduated))
}

func TestGraduatingTradePublishesTradeThenGraduation(t *testing.T) {
	params := gradParams()
	ctx := context.Background()

	bus := events.NewBus(zaptest.NewLogger(t), 16)
	log := &eventLog{}
	bus.SubscribeFunc(events.TradeExecuted, log.record)
	bus.SubscribeFunc(events.TokenGraduated, log.record)

	fx := newFixtureWithBus(t, params, nil, bus)
	info := fx.launch(t, params.AssetLaunchFee)

	amountIn := e18(10)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), amountIn))
	_, err := fx.bonding.Buy(ctx, fx.bob, amountIn, info.Token, fx.usdc)
	require.NoError(t, err)

	require.NoError(t, bus.Shutdown(ctx))
	assert.Equal(t,
		[]events.EventType{events.TradeExecuted, events.TokenGraduated},
		log.types)
}

func TestTokenInfoConcurrentWithTrades(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)
	info := fx.launch(t, params.AssetLaunchFee)
	ctx := context.Background()

	const buys = 25
	total := e18(buys)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), total))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < buys; i++ {
			_, err := fx.bonding.Buy(ctx, fx.bob, e18(1), info.Token, fx.usdc)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < buys; i++ {
			snap, err := fx.bonding.TokenInfo(info.Token)
			assert.NoError(t, err)
			assert.NotNil(t, snap.Data.Price)
			_, err = fx.bonding.MaxBuyInput(info.Token)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	final, err := fx.bonding.TokenInfo(info.Token)
	require.NoError(t, err)
	assert.False(t, final.Data.Volume.IsZero())
}

func TestLaunchPreservesExcessAllowance(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)
	ctx := context.Background()

	excess := e18(5)
	purchase := new(uint256.Int).Add(params.AssetLaunchFee, e18(10))
	approved := new(uint256.Int).Add(purchase, excess)
	require.NoError(t, fx.usdcLedger.Approve(fx.alice, fx.bonding.Address(), approved))

	_, err := fx.bonding.Launch(ctx, fx.alice, "Dragon", "DRG", fx.usdc, purchase)
	require.NoError(t, err)

	// Only purchaseAmount is consumed; the pre-approved excess survives.
	assert.Equal(t, excess, fx.usdcLedger.Allowance(fx.alice, fx.bonding.Address()))
}

func TestFailedLaunchRestoresAllowance(t *testing.T) {
	params := gradParams()
	fx := newFixture(t, params, brokenDex{})
	ctx := context.Background()

	excess := e18(5)
	// Enough above the fee that the embedded first buy crosses the threshold
	// and hits the broken pool seeding.
	purchase := new(uint256.Int).Add(params.AssetLaunchFee, e18(10))
	approved := new(uint256.Int).Add(purchase, excess)
	require.NoError(t, fx.usdcLedger.Approve(fx.alice, fx.bonding.Address(), approved))

	_, err := fx.bonding.Launch(ctx, fx.alice, "Dragon", "DRG", fx.usdc, purchase)
	require.ErrorIs(t, err, ErrGraduationFailed)

	assert.Equal(t, approved, fx.usdcLedger.Allowance(fx.alice, fx.bonding.Address()))
}

func TestMaxBuyInputAfterGraduation(t *testing.T) {
	params := gradParams()
	fx := newFixture(t, params, nil)
	info := fx.launch(t, params.AssetLaunchFee)
	ctx := context.Background()

	amountIn := e18(10)
	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), amountIn))
	_, err := fx.bonding.Buy(ctx, fx.bob, amountIn, info.Token, fx.usdc)
	require.NoError(t, err)

	_, err = fx.bonding.MaxBuyInput(info.Token)
	require.ErrorIs(t, err, ErrTokenNotTrading)
}

func TestNativeLaunchBuySell(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)
	ctx := context.Background()

	fx.native.Credit(fx.alice, e18(100))
	fx.native.Credit(fx.bob, e18(100))

	info, err := fx.bonding.LaunchWithNative(ctx, fx.alice, "Dragon", "DRG", params.NativeLaunchFee)
	require.NoError(t, err)
	assert.True(t, info.NativeBase)
	assert.Equal(t, fx.wrapper.Address(), info.BaseAsset)
	assert.Equal(t, e18(90), fx.native.BalanceOf(fx.alice))

	value := e18(2)
	out, err := fx.bonding.BuyWithNative(ctx, fx.bob, info.Token, value)
	require.NoError(t, err)
	require.False(t, out.IsZero())
	assert.Equal(t, e18(98), fx.native.BalanceOf(fx.bob))

	tokenLedger, err := fx.bank.Ledger(info.Token)
	require.NoError(t, err)
	require.NoError(t, tokenLedger.Approve(fx.bob, fx.bonding.Address(), out))
	proceeds, err := fx.bonding.SellWithNative(ctx, fx.bob, out, info.Token)
	require.NoError(t, err)

	// Proceeds come back in native units; no wrapped dust is left behind.
	want := new(uint256.Int).Add(e18(98), proceeds)
	assert.Equal(t, want, fx.native.BalanceOf(fx.bob))
	assert.True(t, fx.wrapper.Token().BalanceOf(fx.bob).IsZero())
}

func TestNativeLaunchFailureRefunds(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)

	fx.native.Credit(fx.alice, e18(5))
	_, err := fx.bonding.LaunchWithNative(context.Background(), fx.alice, "Dragon", "DRG", e18(5))
	require.ErrorIs(t, err, ErrInsufficientLaunchAmount)
	assert.Equal(t, e18(5), fx.native.BalanceOf(fx.alice))
}

func TestParamSettersRequireAdmin(t *testing.T) {
	fx := newFixture(t, defaultParams(), nil)

	require.ErrorIs(t, fx.bonding.SetMaxTx(fx.alice, 10), factory.ErrUnauthorized)
	require.ErrorIs(t, fx.bonding.SetInitialSupply(fx.alice, e18(1)), factory.ErrUnauthorized)
	require.ErrorIs(t, fx.bonding.SetAssetGradThreshold(fx.alice, e18(1)), factory.ErrUnauthorized)
	require.ErrorIs(t, fx.bonding.SetNativeGradThreshold(fx.alice, e18(1)), factory.ErrUnauthorized)
}

func TestParamSettersValidate(t *testing.T) {
	fx := newFixture(t, defaultParams(), nil)

	require.ErrorIs(t, fx.bonding.SetMaxTx(fx.admin, 0), ErrInvalidParam)
	require.ErrorIs(t, fx.bonding.SetMaxTx(fx.admin, 101), ErrInvalidParam)
	require.ErrorIs(t, fx.bonding.SetInitialSupply(fx.admin, uint256.NewInt(0)), ErrInvalidParam)
	require.NoError(t, fx.bonding.SetMaxTx(fx.admin, 10))
}

func TestSetInitialSupplyAppliesToNextLaunch(t *testing.T) {
	params := defaultParams()
	fx := newFixture(t, params, nil)

	first := fx.launch(t, params.AssetLaunchFee)
	require.NoError(t, fx.bonding.SetInitialSupply(fx.admin, e18(2_000_000_000)))

	require.NoError(t, fx.usdcLedger.Approve(fx.bob, fx.bonding.Address(), params.AssetLaunchFee))
	second, err := fx.bonding.Launch(context.Background(), fx.bob, "Wyvern", "WYV", fx.usdc, params.AssetLaunchFee)
	require.NoError(t, err)

	// The earlier token's launch-time supply is untouched.
	assert.Equal(t, e18(1_000_000_000), first.LaunchSupply)
	assert.Equal(t, e18(2_000_000_000), second.LaunchSupply)

	firstNow, err := fx.bonding.TokenInfo(first.Token)
	require.NoError(t, err)
	assert.Equal(t, e18(1_000_000_000), firstNow.LaunchSupply)
}

func TestInvalidParams(t *testing.T) {
	logger := zaptest.NewLogger(t)
	admin := types.NewAddress("admin")
	f, err := factory.New(logger, admin, factory.TaxConfig{Vault: types.NewAddress("vault")}, 5)
	require.NoError(t, err)
	bank := token.NewBank(logger)
	r, err := router.New(logger, f, bank, admin)
	require.NoError(t, err)
	native := token.NewNativeBank()
	w, err := token.NewWrapper(bank, native, "Wrapped SEI", "WSEI")
	require.NoError(t, err)
	dex := amm.NewDragonswap(logger, bank)

	bad := defaultParams()
	bad.MaxTxPercent = 0
	_, err = New(logger, f, r, bank, w, dex, nil, bad)
	require.ErrorIs(t, err, ErrInvalidParam)

	bad = defaultParams()
	bad.InitialSupply = nil
	_, err = New(logger, f, r, bank, w, dex, nil, bad)
	require.ErrorIs(t, err, ErrInvalidParam)

	bad = defaultParams()
	bad.DragonswapTaxBps = 10_000
	_, err = New(logger, f, r, bank, w, dex, nil, bad)
	require.ErrorIs(t, err, ErrInvalidParam)
}
