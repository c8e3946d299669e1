package types

import "math/big"

// Address identifies a player or the admin on the settlement layer.
type Address [20]byte

// Account is the balance record kept for every installed player. Balances are
// unsigned integers in the smallest currency unit; big.Int keeps intermediate
// products exact regardless of pool size.
type Account struct {
	Balance   *big.Int
	CreatedAt int64
}

// Clone returns a deep copy so callers cannot alias stored balances.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return &clone
}

// EnsureAccount normalises nil accounts and nil balances to zero values.
func EnsureAccount(a *Account) *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	return a
}
