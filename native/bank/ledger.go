package bank

import (
	"errors"
	"fmt"
	"math/big"

	"boostchain/storage"
)

var (
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	ErrInvalidAmount     = errors.New("bank: amount must be positive")
)

// Ledger is a fungible-balance ledger persisted in a key-value database. It
// implements the token ledger adapter the boost engine pays through, with a
// dedicated vault account holding registry custody.
type Ledger struct {
	db    storage.Database
	vault [20]byte
}

// NewLedger wraps the database with the given vault address as registry
// custody.
func NewLedger(db storage.Database, vault [20]byte) *Ledger {
	return &Ledger{db: db, vault: vault}
}

// Vault returns the custody address deposits are held under.
func (l *Ledger) Vault() [20]byte { return l.vault }

func balanceKey(token string, addr [20]byte) []byte {
	return []byte(fmt.Sprintf("bank/balance/%s/%x", token, addr))
}

// BalanceOf returns the balance of an account for a token.
func (l *Ledger) BalanceOf(token string, addr [20]byte) (*big.Int, error) {
	raw, err := l.db.Get(balanceKey(token, addr))
	if err != nil {
		if storage.IsNotFound(err) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

// Mint credits an account out of thin air. Used by genesis tooling and tests.
func (l *Ledger) Mint(token string, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.BalanceOf(token, to)
	if err != nil {
		return err
	}
	return l.db.Put(balanceKey(token, to), new(big.Int).Add(balance, amount).Bytes())
}

// Transfer moves funds from the vault to the recipient.
func (l *Ledger) Transfer(token string, to [20]byte, amount *big.Int) error {
	return l.move(token, l.vault, to, amount)
}

// TransferFrom pulls funds from the payer into the vault.
func (l *Ledger) TransferFrom(token string, from [20]byte, amount *big.Int) error {
	return l.move(token, from, l.vault, amount)
}

// move debits the sender before crediting the recipient; either both writes
// land or neither does, as far as callers can observe, because the debit is
// validated before any write.
func (l *Ledger) move(token string, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBalance, err := l.BalanceOf(token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toBalance, err := l.BalanceOf(token, to)
	if err != nil {
		return err
	}
	if err := l.db.Put(balanceKey(token, from), new(big.Int).Sub(fromBalance, amount).Bytes()); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	return l.db.Put(balanceKey(token, to), new(big.Int).Add(toBalance, amount).Bytes())
}
