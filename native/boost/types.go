package boost

import (
	"fmt"
	"math/big"
	"strings"
)

// Descriptor holds the fields of a boost that are fixed at creation time. The
// registry never rewrites a stored descriptor; only the companion Ledger cell
// mutates over the life of the pool.
type Descriptor struct {
	Token            string
	Guard            [20]byte
	Owner            [20]byte
	Start            int64
	End              int64
	AmountPerAccount *big.Int
	Ref              string
	StrategyURI      string
}

// Ledger is the mutable half of a boost record: the claimable balance and the
// whitelist commitment the guard may publish for proof-based claims.
type Ledger struct {
	Balance       *big.Int
	WhitelistRoot [32]byte
}

// Boost is a funded, time-windowed distribution pool. Identifiers are assigned
// monotonically starting at 1 and are never reused.
type Boost struct {
	ID         uint64
	CreatedAt  int64
	Descriptor Descriptor
	Ledger     Ledger
}

// FixedAmount reports whether the boost pays a fixed amount per recipient.
func (b *Boost) FixedAmount() bool {
	return b != nil && b.Descriptor.AmountPerAccount != nil && b.Descriptor.AmountPerAccount.Sign() > 0
}

// Clone returns a deep copy so callers can mutate the result without touching
// the stored record.
func (b *Boost) Clone() *Boost {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Descriptor.AmountPerAccount != nil {
		clone.Descriptor.AmountPerAccount = new(big.Int).Set(b.Descriptor.AmountPerAccount)
	} else {
		clone.Descriptor.AmountPerAccount = big.NewInt(0)
	}
	if b.Ledger.Balance != nil {
		clone.Ledger.Balance = new(big.Int).Set(b.Ledger.Balance)
	} else {
		clone.Ledger.Balance = big.NewInt(0)
	}
	return &clone
}

// NormalizeToken canonicalises a token symbol for storage and lookups.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("boost: empty token symbol")
	}
	return trimmed, nil
}

// SanitizeBoost validates and normalises a boost record, returning a clone
// with canonical token casing and non-nil amount fields. The original value is
// not mutated.
func SanitizeBoost(b *Boost) (*Boost, error) {
	if b == nil {
		return nil, fmt.Errorf("boost: nil boost")
	}
	clone := b.Clone()
	token, err := NormalizeToken(clone.Descriptor.Token)
	if err != nil {
		return nil, err
	}
	clone.Descriptor.Token = token
	if clone.Ledger.Balance.Sign() < 0 {
		return nil, fmt.Errorf("boost: negative balance")
	}
	if clone.Descriptor.AmountPerAccount.Sign() < 0 {
		return nil, fmt.Errorf("boost: negative amount per account")
	}
	if clone.Descriptor.End <= clone.Descriptor.Start {
		return nil, fmt.Errorf("boost: window end before start")
	}
	return clone, nil
}

// ClaimProof selects the authorization strategy for a claim. Exactly one
// concrete proof type accompanies every claim submission.
type ClaimProof interface {
	claimProof()
}

// SignatureProof authorizes a claim with a signature produced by the boost's
// guard over the canonical claim digest.
type SignatureProof struct {
	Signature []byte
}

// WhitelistProof authorizes a claim with a merkle audit path against the
// whitelist root published by the guard.
type WhitelistProof struct {
	Proof [][32]byte
}

// GuardProof delegates authorization to the guard contract registered for the
// boost; the submitted amount must match the guard's computed amount exactly.
type GuardProof struct{}

func (SignatureProof) claimProof() {}
func (WhitelistProof) claimProof() {}
func (GuardProof) claimProof()     {}

// CreateParams carries the caller-supplied definition of a new boost.
type CreateParams struct {
	Token            string
	Deposit          *big.Int
	FeePaid          *big.Int
	Guard            [20]byte
	Start            int64
	End              int64
	Owner            [20]byte
	AmountPerAccount *big.Int
	Ref              string
	StrategyURI      string
}
