package boost

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"boostchain/core/types"
)

const (
	EventTypeBoostCreated     = "boost.created"
	EventTypeBoostDeposited   = "boost.deposited"
	EventTypeBoostWithdrawn   = "boost.withdrawn"
	EventTypeBoostClaimed     = "boost.claimed"
	EventTypeWhitelistUpdated = "boost.whitelist_updated"
	EventTypeFeePolicyUpdated = "boost.fee_policy_updated"
)

// CreatedEvent carries the full record of a newly created boost.
type CreatedEvent struct {
	Boost *Boost
}

func (CreatedEvent) EventType() string { return EventTypeBoostCreated }

func (e CreatedEvent) Event() *types.Event {
	attrs := boostAttrs(e.Boost)
	return &types.Event{Type: EventTypeBoostCreated, Attributes: attrs}
}

// DepositedEvent records a balance top-up, net of any proportional fee.
type DepositedEvent struct {
	Boost *Boost
	From  [20]byte
	Net   *big.Int
	Fee   *big.Int
}

func (DepositedEvent) EventType() string { return EventTypeBoostDeposited }

func (e DepositedEvent) Event() *types.Event {
	attrs := boostAttrs(e.Boost)
	attrs["from"] = hex.EncodeToString(e.From[:])
	attrs["net"] = formatAmount(e.Net)
	attrs["fee"] = formatAmount(e.Fee)
	return &types.Event{Type: EventTypeBoostDeposited, Attributes: attrs}
}

// WithdrawnEvent records the owner sweeping the unclaimed remainder.
type WithdrawnEvent struct {
	Boost  *Boost
	To     [20]byte
	Amount *big.Int
}

func (WithdrawnEvent) EventType() string { return EventTypeBoostWithdrawn }

func (e WithdrawnEvent) Event() *types.Event {
	attrs := boostAttrs(e.Boost)
	attrs["to"] = hex.EncodeToString(e.To[:])
	attrs["amount"] = formatAmount(e.Amount)
	return &types.Event{Type: EventTypeBoostWithdrawn, Attributes: attrs}
}

// ClaimedEvent is the full claim record for a settled payout.
type ClaimedEvent struct {
	Boost     *Boost
	Recipient [20]byte
	Amount    *big.Int
}

func (ClaimedEvent) EventType() string { return EventTypeBoostClaimed }

func (e ClaimedEvent) Event() *types.Event {
	attrs := boostAttrs(e.Boost)
	attrs["recipient"] = hex.EncodeToString(e.Recipient[:])
	attrs["amount"] = formatAmount(e.Amount)
	return &types.Event{Type: EventTypeBoostClaimed, Attributes: attrs}
}

// WhitelistUpdatedEvent announces a new (possibly superseding) merkle root.
type WhitelistUpdatedEvent struct {
	Boost *Boost
}

func (WhitelistUpdatedEvent) EventType() string { return EventTypeWhitelistUpdated }

func (e WhitelistUpdatedEvent) Event() *types.Event {
	attrs := boostAttrs(e.Boost)
	return &types.Event{Type: EventTypeWhitelistUpdated, Attributes: attrs}
}

// FeePolicyUpdatedEvent announces new protocol fee parameters.
type FeePolicyUpdatedEvent struct {
	Policy FeePolicy
}

func (FeePolicyUpdatedEvent) EventType() string { return EventTypeFeePolicyUpdated }

func (e FeePolicyUpdatedEvent) Event() *types.Event {
	return &types.Event{
		Type: EventTypeFeePolicyUpdated,
		Attributes: map[string]string{
			"createFee":           formatAmount(e.Policy.CreateFee),
			"tokenFeeDenominator": strconv.FormatUint(e.Policy.TokenFeeDenominator, 10),
		},
	}
}

func NewCreatedEvent(b *Boost) CreatedEvent { return CreatedEvent{Boost: b.Clone()} }

func NewDepositedEvent(b *Boost, from [20]byte, net, fee *big.Int) DepositedEvent {
	return DepositedEvent{Boost: b.Clone(), From: from, Net: cloneBigInt(net), Fee: cloneBigInt(fee)}
}

func NewWithdrawnEvent(b *Boost, to [20]byte, amount *big.Int) WithdrawnEvent {
	return WithdrawnEvent{Boost: b.Clone(), To: to, Amount: cloneBigInt(amount)}
}

func NewClaimedEvent(b *Boost, recipient [20]byte, amount *big.Int) ClaimedEvent {
	return ClaimedEvent{Boost: b.Clone(), Recipient: recipient, Amount: cloneBigInt(amount)}
}

func NewWhitelistUpdatedEvent(b *Boost) WhitelistUpdatedEvent {
	return WhitelistUpdatedEvent{Boost: b.Clone()}
}

func NewFeePolicyUpdatedEvent(policy FeePolicy) FeePolicyUpdatedEvent {
	return FeePolicyUpdatedEvent{Policy: policy.Clone()}
}

func boostAttrs(b *Boost) map[string]string {
	attrs := make(map[string]string)
	if b == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(b.ID, 10)
	attrs["token"] = b.Descriptor.Token
	attrs["guard"] = hex.EncodeToString(b.Descriptor.Guard[:])
	attrs["owner"] = hex.EncodeToString(b.Descriptor.Owner[:])
	attrs["start"] = strconv.FormatInt(b.Descriptor.Start, 10)
	attrs["end"] = strconv.FormatInt(b.Descriptor.End, 10)
	attrs["balance"] = formatAmount(b.Ledger.Balance)
	if b.Descriptor.AmountPerAccount != nil && b.Descriptor.AmountPerAccount.Sign() > 0 {
		attrs["amountPerAccount"] = formatAmount(b.Descriptor.AmountPerAccount)
	}
	if b.Descriptor.Ref != "" {
		attrs["ref"] = b.Descriptor.Ref
	}
	if b.Descriptor.StrategyURI != "" {
		attrs["strategyURI"] = b.Descriptor.StrategyURI
	}
	if b.Ledger.WhitelistRoot != ([32]byte{}) {
		attrs["whitelistRoot"] = hex.EncodeToString(b.Ledger.WhitelistRoot[:])
	}
	return attrs
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
