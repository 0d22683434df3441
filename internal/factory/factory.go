// internal/factory/factory.go

// Package factory is the pair registry and access-control table. It creates
// and indexes curve ledgers, owns the trade tax configuration and the curve
// multiplier, and decides who may create pairs, execute swaps, or administer
// parameters.
package factory

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jugheadddd/launchpad-contracts/internal/curve"
	"github.com/jugheadddd/launchpad-contracts/internal/pair"
	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// Role is a capability in the access-control table.
type Role string

const (
	// RoleAdmin may change taxes, the router binding, and role memberships.
	RoleAdmin Role = "admin"
	// RoleCreator may create pairs.
	RoleCreator Role = "creator"
	// RoleExecutor may execute swaps against a pair's reserves.
	RoleExecutor Role = "executor"
)

type pairKey struct {
	token types.Address
	asset types.Address
}

// TaxConfig is the global trade tax configuration.
type TaxConfig struct {
	BuyTaxBps  uint16
	SellTaxBps uint16
	Vault      types.Address
}

// Factory owns pairs, roles, taxes, and the multiplier.
type Factory struct {
	logger *zap.Logger

	mu         sync.RWMutex
	pairs      map[pairKey]*pair.Pair
	roles      map[Role]map[types.Address]struct{}
	tax        TaxConfig
	multiplier uint64
	router     types.Address
}

// New creates a factory. The owner receives the admin role.
func New(logger *zap.Logger, owner types.Address, tax TaxConfig, multiplier uint64) (*Factory, error) {
	if tax.BuyTaxBps >= curve.BpsDenom || tax.SellTaxBps >= curve.BpsDenom {
		return nil, fmt.Errorf("%w: buy %d bps, sell %d bps", ErrInvalidTax, tax.BuyTaxBps, tax.SellTaxBps)
	}
	if multiplier == 0 {
		return nil, fmt.Errorf("multiplier must be positive")
	}
	f := &Factory{
		logger:     logger.Named("factory"),
		pairs:      make(map[pairKey]*pair.Pair),
		roles:      make(map[Role]map[types.Address]struct{}),
		tax:        tax,
		multiplier: multiplier,
	}
	f.grant(RoleAdmin, owner)
	return f, nil
}

// HasRole reports whether who holds role.
func (f *Factory) HasRole(role Role, who types.Address) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.roles[role][who]
	return ok
}

// GrantRole adds who to role. Admin only.
func (f *Factory) GrantRole(caller types.Address, role Role, who types.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[RoleAdmin][caller]; !ok {
		return fmt.Errorf("%w: %s granting %s", ErrUnauthorized, caller, role)
	}
	f.grant(role, who)
	f.logger.Info("Role granted",
		zap.String("role", string(role)),
		zap.String("grantee", who.String()))
	return nil
}

// RevokeRole removes who from role. Admin only.
func (f *Factory) RevokeRole(caller types.Address, role Role, who types.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[RoleAdmin][caller]; !ok {
		return fmt.Errorf("%w: %s revoking %s", ErrUnauthorized, caller, role)
	}
	delete(f.roles[role], who)
	return nil
}

// SetRouter binds the execution router's identity and grants it the executor
// role. Admin only.
func (f *Factory) SetRouter(caller, router types.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[RoleAdmin][caller]; !ok {
		return fmt.Errorf("%w: %s setting router", ErrUnauthorized, caller)
	}
	f.router = router
	f.grant(RoleExecutor, router)
	return nil
}

// Router is the bound execution router's identity.
func (f *Factory) Router() types.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.router
}

// SetTax replaces the trade tax configuration. Admin only. Takes effect on the
// next trade, never mid-flight.
func (f *Factory) SetTax(caller types.Address, tax TaxConfig) error {
	if tax.BuyTaxBps >= curve.BpsDenom || tax.SellTaxBps >= curve.BpsDenom {
		return fmt.Errorf("%w: buy %d bps, sell %d bps", ErrInvalidTax, tax.BuyTaxBps, tax.SellTaxBps)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[RoleAdmin][caller]; !ok {
		return fmt.Errorf("%w: %s setting tax", ErrUnauthorized, caller)
	}
	f.tax = tax
	f.logger.Info("Tax updated",
		zap.Uint16("buy_bps", tax.BuyTaxBps),
		zap.Uint16("sell_bps", tax.SellTaxBps),
		zap.String("vault", tax.Vault.String()))
	return nil
}

// Tax returns the current tax configuration.
func (f *Factory) Tax() TaxConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tax
}

// Multiplier is the curve steepness factor applied to the counter-asset reserve.
func (f *Factory) Multiplier() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.multiplier
}

// CreatePair creates the curve ledger for the ordered (token, asset) pair.
// Restricted to the creator role.
func (f *Factory) CreatePair(caller, token, asset types.Address) (*pair.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[RoleCreator][caller]; !ok {
		return nil, fmt.Errorf("%w: %s creating pair", ErrUnauthorized, caller)
	}
	key := pairKey{token: token, asset: asset}
	if _, ok := f.pairs[key]; ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrPairExists, token, asset)
	}
	p := pair.New(token, asset)
	f.pairs[key] = p
	f.logger.Info("Pair created",
		zap.String("token", token.String()),
		zap.String("asset", asset.String()),
		zap.String("pair", p.Custody().String()))
	return p, nil
}

// RemovePair drops a pair from the registry. Restricted to the creator role;
// used only to unwind a failed launch before the pair becomes visible.
func (f *Factory) RemovePair(caller, token, asset types.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[RoleCreator][caller]; !ok {
		return fmt.Errorf("%w: %s removing pair", ErrUnauthorized, caller)
	}
	delete(f.pairs, pairKey{token: token, asset: asset})
	return nil
}

// Pair looks up the curve ledger for the ordered (token, asset) pair.
func (f *Factory) Pair(token, asset types.Address) (*pair.Pair, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.pairs[pairKey{token: token, asset: asset}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, token, asset)
	}
	return p, nil
}

func (f *Factory) grant(role Role, who types.Address) {
	if f.roles[role] == nil {
		f.roles[role] = make(map[types.Address]struct{})
	}
	f.roles[role][who] = struct{}{}
}
