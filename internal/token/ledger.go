// internal/token/ledger.go
package token

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// Ledger is the fungible-token contract surface the launchpad depends on.
// Amounts are 18-decimal fixed-point integers.
type Ledger interface {
	Name() string
	Symbol() string
	TotalSupply() *uint256.Int
	BalanceOf(owner types.Address) *uint256.Int
	Allowance(owner, spender types.Address) *uint256.Int

	Transfer(from, to types.Address, amount *uint256.Int) error
	Approve(owner, spender types.Address, amount *uint256.Int) error
	TransferFrom(owner, spender, to types.Address, amount *uint256.Int) error
	Mint(to types.Address, amount *uint256.Int) error
}

// Token is the in-memory Ledger implementation backing every launched token
// and the stock base assets.
type Token struct {
	name   string
	symbol string

	mu          sync.RWMutex
	totalSupply uint256.Int
	balances    map[types.Address]*uint256.Int
	allowances  map[types.Address]map[types.Address]*uint256.Int
}

// NewToken creates an empty token ledger. Supply is issued through Mint.
func NewToken(name, symbol string) *Token {
	return &Token{
		name:       name,
		symbol:     symbol,
		balances:   make(map[types.Address]*uint256.Int),
		allowances: make(map[types.Address]map[types.Address]*uint256.Int),
	}
}

func (t *Token) Name() string   { return t.name }
func (t *Token) Symbol() string { return t.symbol }

func (t *Token) TotalSupply() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(uint256.Int).Set(&t.totalSupply)
}

func (t *Token) BalanceOf(owner types.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if bal, ok := t.balances[owner]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

func (t *Token) Allowance(owner, spender types.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if spenders, ok := t.allowances[owner]; ok {
		if a, ok := spenders[spender]; ok {
			return new(uint256.Int).Set(a)
		}
	}
	return uint256.NewInt(0)
}

// Transfer moves amount from one holder to another. It fails without side
// effects when the sender's balance is short.
func (t *Token) Transfer(from, to types.Address, amount *uint256.Int) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// Approve sets spender's allowance over owner's balance, replacing any
// previous value.
func (t *Token) Approve(owner, spender types.Address, amount *uint256.Int) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	spenders, ok := t.allowances[owner]
	if !ok {
		spenders = make(map[types.Address]*uint256.Int)
		t.allowances[owner] = spenders
	}
	spenders[spender] = new(uint256.Int).Set(amount)
	return nil
}

// TransferFrom spends spender's allowance to move amount out of owner's
// balance. Allowance and balance are checked before either is touched.
func (t *Token) TransferFrom(owner, spender, to types.Address, amount *uint256.Int) error {
	if owner.IsZero() || spender.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := uint256.NewInt(0)
	if spenders, ok := t.allowances[owner]; ok {
		if a, ok := spenders[spender]; ok {
			allowance = a
		}
	}
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: %s approved %s, need %s",
			ErrInsufficientAllowance, spender, allowance.Dec(), amount.Dec())
	}
	if err := t.move(owner, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

// Mint issues new supply to a holder.
func (t *Token) Mint(to types.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(to, amount)
	t.totalSupply.Add(&t.totalSupply, amount)
	return nil
}

// burn destroys amount held by owner. Used by the wrapped-native wrapper.
func (t *Token) burn(owner types.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal, ok := t.balances[owner]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, need %s",
			ErrInsufficientBalance, owner, t.balanceLocked(owner).Dec(), amount.Dec())
	}
	bal.Sub(bal, amount)
	t.totalSupply.Sub(&t.totalSupply, amount)
	return nil
}

func (t *Token) move(from, to types.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	bal, ok := t.balances[from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, need %s",
			ErrInsufficientBalance, from, t.balanceLocked(from).Dec(), amount.Dec())
	}
	bal.Sub(bal, amount)
	t.credit(to, amount)
	return nil
}

func (t *Token) credit(to types.Address, amount *uint256.Int) {
	if bal, ok := t.balances[to]; ok {
		bal.Add(bal, amount)
		return
	}
	t.balances[to] = new(uint256.Int).Set(amount)
}

func (t *Token) balanceLocked(owner types.Address) *uint256.Int {
	if bal, ok := t.balances[owner]; ok {
		return bal
	}
	return uint256.NewInt(0)
}
