// internal/token/bank.go
package token

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// Resolver is the read side of the bank: look up the ledger behind an asset
// address. The router depends on this interface, not on the bank itself.
type Resolver interface {
	Ledger(asset types.Address) (Ledger, error)
}

// Bank indexes every token ledger known to the launchpad: stock base assets
// registered at startup and tokens deployed at launch time.
type Bank struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	ledgers map[types.Address]Ledger
}

// NewBank creates an empty bank.
func NewBank(logger *zap.Logger) *Bank {
	return &Bank{
		logger:  logger.Named("token_bank"),
		ledgers: make(map[types.Address]Ledger),
	}
}

// Register adds an existing ledger (a base asset, the wrapped-native token)
// under a fixed address.
func (b *Bank) Register(addr types.Address, ledger Ledger) error {
	if addr.IsZero() {
		return ErrZeroAddress
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.ledgers[addr]; ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, addr)
	}
	b.ledgers[addr] = ledger
	b.logger.Debug("Ledger registered",
		zap.String("address", addr.String()),
		zap.String("symbol", ledger.Symbol()))
	return nil
}

// Deploy creates a fresh token ledger under a newly minted address.
// Supply is issued separately by the caller.
func (b *Bank) Deploy(name, symbol string) (types.Address, *Token, error) {
	addr := types.NewAddress("token")
	tok := NewToken(name, symbol)
	if err := b.Register(addr, tok); err != nil {
		return types.ZeroAddress, nil, err
	}
	b.logger.Info("Token deployed",
		zap.String("address", addr.String()),
		zap.String("name", name),
		zap.String("symbol", symbol))
	return addr, tok, nil
}

// Remove drops a ledger from the bank. Used only to unwind a failed launch.
func (b *Bank) Remove(addr types.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ledgers, addr)
}

// Ledger returns the ledger registered under addr.
func (b *Bank) Ledger(asset types.Address) (Ledger, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ledger, ok := b.ledgers[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	return ledger, nil
}
