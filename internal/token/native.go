// internal/token/native.go
package token

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// NativeBank tracks native-coin balances. It stands in for the chain's value
// transfer layer; the orchestrator debits it when a caller attaches native
// value to a launch or a buy.
type NativeBank struct {
	mu       sync.RWMutex
	balances map[types.Address]*uint256.Int
}

func NewNativeBank() *NativeBank {
	return &NativeBank{balances: make(map[types.Address]*uint256.Int)}
}

func (n *NativeBank) BalanceOf(owner types.Address) *uint256.Int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if bal, ok := n.balances[owner]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// Credit adds native units to an account. Used to fund accounts in tests and
// at daemon startup.
func (n *NativeBank) Credit(owner types.Address, amount *uint256.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if bal, ok := n.balances[owner]; ok {
		bal.Add(bal, amount)
		return
	}
	n.balances[owner] = new(uint256.Int).Set(amount)
}

func (n *NativeBank) debit(owner types.Address, amount *uint256.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	bal, ok := n.balances[owner]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: native balance of %s", ErrInsufficientBalance, owner)
	}
	bal.Sub(bal, amount)
	return nil
}

// Wrapper is the wrapped-native-coin contract: deposits convert native units
// into wrapped token units 1:1, withdrawals burn and return them.
type Wrapper struct {
	native *NativeBank
	token  *Token
	addr   types.Address
}

// NewWrapper deploys the wrapped-native token into the bank and binds it to
// the native balance ledger.
func NewWrapper(bank *Bank, native *NativeBank, name, symbol string) (*Wrapper, error) {
	addr, tok, err := bank.Deploy(name, symbol)
	if err != nil {
		return nil, err
	}
	return &Wrapper{native: native, token: tok, addr: addr}, nil
}

// Address is the wrapped token's asset address.
func (w *Wrapper) Address() types.Address { return w.addr }

// Token is the wrapped token's ledger.
func (w *Wrapper) Token() *Token { return w.token }

// Deposit converts amount of owner's native balance into wrapped units.
func (w *Wrapper) Deposit(owner types.Address, amount *uint256.Int) error {
	if err := w.native.debit(owner, amount); err != nil {
		return err
	}
	return w.token.Mint(owner, amount)
}

// Withdraw burns amount of owner's wrapped units and returns native units.
func (w *Wrapper) Withdraw(owner types.Address, amount *uint256.Int) error {
	if err := w.token.burn(owner, amount); err != nil {
		return err
	}
	w.native.Credit(owner, amount)
	return nil
}
