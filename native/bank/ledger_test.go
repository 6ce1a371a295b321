package bank

import (
	"errors"
	"math/big"
	"testing"

	"boostchain/storage"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	var vault [20]byte
	vault[19] = 0xFF
	return NewLedger(storage.NewMemDB(), vault)
}

func testAddr(fill byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = fill
	}
	return out
}

func TestMintAndBalance(t *testing.T) {
	ledger := testLedger(t)
	account := testAddr(0x01)

	if err := ledger.Mint("WIDGET", account, big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Mint("WIDGET", account, big.NewInt(250)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := ledger.BalanceOf("WIDGET", account)
	if err != nil || balance.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("expected 750, got %s err %v", balance, err)
	}
	if err := ledger.Mint("WIDGET", account, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTransferRoundTrip(t *testing.T) {
	ledger := testLedger(t)
	payer := testAddr(0x01)
	payee := testAddr(0x02)

	if err := ledger.Mint("WIDGET", payer, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.TransferFrom("WIDGET", payer, big.NewInt(60)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	vaultBalance, _ := ledger.BalanceOf("WIDGET", ledger.Vault())
	if vaultBalance.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("expected vault 60, got %s", vaultBalance)
	}
	if err := ledger.Transfer("WIDGET", payee, big.NewInt(60)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	payeeBalance, _ := ledger.BalanceOf("WIDGET", payee)
	if payeeBalance.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("expected payee 60, got %s", payeeBalance)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	ledger := testLedger(t)
	payer := testAddr(0x01)

	if err := ledger.TransferFrom("WIDGET", payer, big.NewInt(1)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := ledger.Transfer("WIDGET", payer, big.NewInt(1)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds from empty vault, got %v", err)
	}
	// The failed transfer left no partial writes.
	balance, _ := ledger.BalanceOf("WIDGET", payer)
	if balance.Sign() != 0 {
		t.Fatalf("expected untouched balance, got %s", balance)
	}
}
