package boost

import "math/big"

// DefaultBaseToken is the symbol flat creation fees are charged in unless the
// engine is configured otherwise.
const DefaultBaseToken = "BOOST"

// FeePolicy captures the protocol fee parameters. CreateFee is a flat toll in
// the base asset that must accompany every creation; TokenFeeDenominator
// expresses the proportional cut taken from every deposit as 1/denominator.
// A zero value disables the respective fee.
type FeePolicy struct {
	CreateFee           *big.Int
	TokenFeeDenominator uint64
}

// Clone returns a deep copy of the policy.
func (p FeePolicy) Clone() FeePolicy {
	clone := FeePolicy{TokenFeeDenominator: p.TokenFeeDenominator}
	if p.CreateFee != nil {
		clone.CreateFee = new(big.Int).Set(p.CreateFee)
	}
	return clone
}

// Apply splits a gross deposit into the protocol fee and the net amount
// credited to the boost. The fee is floor(amount / denominator).
func (p FeePolicy) Apply(amount *big.Int) (fee, net *big.Int) {
	gross := cloneBigInt(amount)
	if p.TokenFeeDenominator == 0 || gross.Sign() <= 0 {
		return big.NewInt(0), gross
	}
	fee = new(big.Int).Div(gross, new(big.Int).SetUint64(p.TokenFeeDenominator))
	net = new(big.Int).Sub(gross, fee)
	return fee, net
}

// FeePolicy returns a copy of the active fee parameters.
func (e *Engine) FeePolicy() FeePolicy {
	return e.fees.Clone()
}

// SetFeePolicy replaces the fee parameters. Only the protocol owner may call
// it; the new policy applies to subsequent operations and has no retroactive
// effect on existing boosts.
func (e *Engine) SetFeePolicy(caller [20]byte, policy FeePolicy) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.protocolOwner == ([20]byte{}) || caller != e.protocolOwner {
		return ErrOnlyProtocolOwner
	}
	e.fees = policy.Clone()
	e.emit(NewFeePolicyUpdatedEvent(e.fees))
	return nil
}

// FeeBalance returns the accrued, uncollected fees for a token.
func (e *Engine) FeeBalance(token string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	return e.state.FeeBalance(normalized)
}

// CollectFees sweeps the accrued fees for a token out of the registry vault.
// Only the protocol owner may collect; the accrual is zeroed before the
// payout and restored if the transfer fails.
func (e *Engine) CollectFees(caller [20]byte, token string, to [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.protocolOwner == ([20]byte{}) || caller != e.protocolOwner {
		return nil, ErrOnlyProtocolOwner
	}
	if to == ([20]byte{}) {
		return nil, ErrInvalidRecipient
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	accrued, err := e.state.FeeBalance(normalized)
	if err != nil {
		return nil, err
	}
	if accrued.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if err := e.state.FeeDebit(normalized, accrued); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(normalized, to, accrued); err != nil {
		_ = e.state.FeeCredit(normalized, accrued)
		return nil, err
	}
	return accrued, nil
}
