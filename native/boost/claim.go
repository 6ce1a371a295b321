package boost

import (
	"fmt"
	"math/big"
)

// ClaimMultipleCap bounds the number of independent claims a single
// ClaimMultiple call may carry.
const ClaimMultipleCap = 10

// Claim pays a recipient from a boost once, subject to one of the three
// authorization strategies. The claimed flag and the balance debit are
// committed before the payout call; a failed payout restores both.
func (e *Engine) Claim(id uint64, recipient [20]byte, amount *big.Int, proof ClaimProof) error {
	if err := e.ready(); err != nil {
		return err
	}
	b, err := e.loadBoost(id)
	if err != nil {
		return err
	}
	amt, err := e.authorizeClaim(b, recipient, amount, proof)
	if err != nil {
		return err
	}
	if err := e.applyClaim(b, recipient, amt); err != nil {
		return err
	}
	return e.payClaim(b, recipient, amt)
}

// ClaimMultiple settles up to ClaimMultipleCap signature-authorized claims
// against one boost atomically: every claim's authorization and state effects
// complete for the whole batch before the first payout is issued. If any
// claim fails validation the batch aborts with no effect.
func (e *Engine) ClaimMultiple(id uint64, recipients [][20]byte, amounts []*big.Int, signatures [][]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if len(recipients) > ClaimMultipleCap {
		return fmt.Errorf("%w: cap %d", ErrTooManyRecipients, ClaimMultipleCap)
	}
	if len(signatures) != len(recipients) {
		return ErrInvalidSignature
	}
	if amounts != nil && len(amounts) != len(recipients) {
		return ErrInvalidClaim
	}
	b, err := e.loadBoost(id)
	if err != nil {
		return err
	}
	applied := make([][20]byte, 0, len(recipients))
	settled := make([]*big.Int, 0, len(recipients))
	unwind := func(from int) {
		restore := big.NewInt(0)
		for i := len(applied) - 1; i >= from; i-- {
			_ = e.state.ClaimedClear(b.ID, applied[i])
			restore.Add(restore, settled[i])
		}
		e.creditStoredBalance(b.ID, restore)
	}
	for i, recipient := range recipients {
		var requested *big.Int
		if amounts != nil {
			requested = amounts[i]
		}
		amt, err := e.authorizeClaim(b, recipient, requested, SignatureProof{Signature: signatures[i]})
		if err != nil {
			unwind(0)
			return err
		}
		if err := e.applyClaim(b, recipient, amt); err != nil {
			unwind(0)
			return err
		}
		applied = append(applied, recipient)
		settled = append(settled, amt)
	}
	for i, recipient := range applied {
		if err := e.payClaim(b, recipient, settled[i]); err != nil {
			// Funds already paid out cannot be recalled from the external
			// ledger; payClaim restored the failed claim, unwind only the
			// remaining unpaid ones.
			unwind(i + 1)
			return err
		}
	}
	return nil
}

// SetWhitelist publishes or replaces the merkle root eligible claims are
// proven against. Only the boost's guard may set it, and only while the
// window is open. A replacement root supersedes the prior one immediately.
func (e *Engine) SetWhitelist(caller [20]byte, id uint64, root [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	b, err := e.loadBoost(id)
	if err != nil {
		return err
	}
	if caller != b.Descriptor.Guard {
		return ErrOnlyBoostGuard
	}
	if e.now() >= b.Descriptor.End {
		return ErrBoostEnded
	}
	b.Ledger.WhitelistRoot = root
	if err := e.state.BoostPut(b); err != nil {
		return err
	}
	e.emit(NewWhitelistUpdatedEvent(b))
	return nil
}

// authorizeClaim resolves the effective claim amount, runs the common checks
// and validates the strategy-specific proof. It performs no state mutation.
func (e *Engine) authorizeClaim(b *Boost, recipient [20]byte, amount *big.Int, proof ClaimProof) (*big.Int, error) {
	amt := cloneBigInt(amount)
	if b.FixedAmount() {
		if amount != nil && amt.Cmp(b.Descriptor.AmountPerAccount) != 0 {
			return nil, ErrInvalidClaim
		}
		amt = cloneBigInt(b.Descriptor.AmountPerAccount)
	}
	if err := e.commonClaimChecks(b, recipient, amt); err != nil {
		return nil, err
	}
	switch p := proof.(type) {
	case SignatureProof:
		digest := ClaimDigest(e.chainID, b.ID, recipient, amt)
		if !e.verifyGuardSignature(b.Descriptor.Guard, digest, p.Signature) {
			return nil, ErrInvalidSignature
		}
	case WhitelistProof:
		if b.Ledger.WhitelistRoot == ([32]byte{}) {
			return nil, ErrInvalidWhitelistProof
		}
		leaf := ClaimLeaf(recipient, amt)
		if !VerifyProof(b.Ledger.WhitelistRoot, leaf, p.Proof) {
			return nil, ErrInvalidWhitelistProof
		}
	case GuardProof:
		if e.contracts == nil {
			return nil, ErrInvalidClaim
		}
		computer, ok := e.contracts.AmountComputer(b.Descriptor.Guard)
		if !ok {
			return nil, ErrInvalidClaim
		}
		computed, err := computer.ComputeAmount(b.Clone(), recipient)
		if err != nil {
			return nil, ErrInvalidClaim
		}
		if computed == nil || computed.Cmp(amt) != 0 {
			return nil, ErrInvalidClaim
		}
	default:
		return nil, ErrInvalidClaim
	}
	return amt, nil
}

func (e *Engine) commonClaimChecks(b *Boost, recipient [20]byte, amount *big.Int) error {
	if e.now() < b.Descriptor.Start {
		return ErrBoostNotStarted
	}
	if amount.Sign() <= 0 || b.Ledger.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBoostBalance
	}
	if e.now() >= b.Descriptor.End {
		return ErrBoostEnded
	}
	if e.state.ClaimedGet(b.ID, recipient) {
		return ErrRecipientAlreadyClaimed
	}
	if recipient == ([20]byte{}) {
		return ErrInvalidRecipient
	}
	return nil
}

// applyClaim commits the claimed flag and the balance debit.
func (e *Engine) applyClaim(b *Boost, recipient [20]byte, amount *big.Int) error {
	if err := e.state.ClaimedSet(b.ID, recipient); err != nil {
		return err
	}
	b.Ledger.Balance = new(big.Int).Sub(b.Ledger.Balance, amount)
	if err := e.state.BoostPut(b); err != nil {
		_ = e.state.ClaimedClear(b.ID, recipient)
		return err
	}
	return nil
}

// payClaim issues the external payout. On failure it clears the flag and
// credits the amount back onto the stored record so the claim can be retried.
func (e *Engine) payClaim(b *Boost, recipient [20]byte, amount *big.Int) error {
	if err := e.ledger.Transfer(b.Descriptor.Token, recipient, amount); err != nil {
		_ = e.state.ClaimedClear(b.ID, recipient)
		e.creditStoredBalance(b.ID, amount)
		return err
	}
	e.emit(NewClaimedEvent(b, recipient, amount))
	return nil
}

func (e *Engine) verifyGuardSignature(guard [20]byte, digest [32]byte, sig []byte) bool {
	if e.contracts != nil {
		if validator, ok := e.contracts.SignatureValidator(guard); ok {
			return validator.IsValidSignature(digest, sig)
		}
	}
	return VerifySignature(guard, digest, sig)
}
