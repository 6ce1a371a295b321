package boost

import (
	"errors"
	"math/big"
	"time"

	"boostchain/core/events"
	"boostchain/native/common"
)

// ModuleName identifies the boost module for the pause view.
const ModuleName = "boost"

var (
	errNilState  = errors.New("boost engine: state not configured")
	errNilLedger = errors.New("boost engine: token ledger not configured")
)

type engineState interface {
	BoostPut(*Boost) error
	BoostGet(id uint64) (*Boost, bool)
	BoostDelete(id uint64) error
	NextBoostID() (uint64, error)
	ClaimedGet(id uint64, recipient [20]byte) bool
	ClaimedSet(id uint64, recipient [20]byte) error
	ClaimedClear(id uint64, recipient [20]byte) error
	RefAdd(ref string, id uint64) error
	RefRemove(ref string, id uint64) error
	RefList(ref string) ([]uint64, error)
	FeeCredit(token string, amount *big.Int) error
	FeeDebit(token string, amount *big.Int) error
	FeeBalance(token string) (*big.Int, error)
}

// TokenLedger is the external fungible-balance system boosts deposit into and
// pay out from. Both calls are all-or-nothing and may transfer control to
// arbitrary code before returning.
type TokenLedger interface {
	// Transfer moves funds held in the registry vault to the recipient.
	Transfer(token string, to [20]byte, amount *big.Int) error
	// TransferFrom pulls funds from the payer into the registry vault.
	TransferFrom(token string, from [20]byte, amount *big.Int) error
}

// AmountComputer is the capability a guard contract exposes when it carries
// the authorization logic itself: it decides, per recipient, the exact amount
// that may be claimed at call time.
type AmountComputer interface {
	ComputeAmount(b *Boost, recipient [20]byte) (*big.Int, error)
}

// SignatureValidator is the capability of a contract-based signer: it accepts
// or rejects a signature over a digest without exposing a recoverable key.
type SignatureValidator interface {
	IsValidSignature(digest [32]byte, sig []byte) bool
}

// ContractRegistry resolves guard addresses to the capabilities they
// implement. A guard that resolves to neither capability is treated as a raw
// key signer.
type ContractRegistry interface {
	AmountComputer(addr [20]byte) (AmountComputer, bool)
	SignatureValidator(addr [20]byte) (SignatureValidator, bool)
}

// Engine owns the boost registry, the claim ledger and the fee books. All
// mutating operations follow checks-effects-interactions: every state write
// that establishes a success postcondition is committed before the external
// payout call, so a reentrant ledger callback observes the post-claim state.
type Engine struct {
	state         engineState
	ledger        TokenLedger
	contracts     ContractRegistry
	emitter       events.Emitter
	pauses        common.PauseView
	fees          FeePolicy
	protocolOwner [20]byte
	baseToken     string
	chainID       uint64
	nowFn         func() int64
}

// NewEngine creates a boost engine with a no-op emitter and the wall clock as
// its time source.
func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		baseToken: DefaultBaseToken,
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the external token ledger adapter.
func (e *Engine) SetLedger(ledger TokenLedger) { e.ledger = ledger }

// SetContracts configures the resolver for guard-contract capabilities.
// Passing nil disables contract-based guards.
func (e *Engine) SetContracts(reg ContractRegistry) { e.contracts = reg }

// SetPauses wires the module pause view consulted before every mutation.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetProtocolOwner configures the address entitled to change fee parameters
// and collect accrued fees.
func (e *Engine) SetProtocolOwner(addr [20]byte) { e.protocolOwner = addr }

// SetChainID binds claim digests to a chain identity so signatures cannot be
// replayed across deployments.
func (e *Engine) SetChainID(id uint64) { e.chainID = id }

// SetBaseToken overrides the symbol of the base asset flat creation fees are
// charged in.
func (e *Engine) SetBaseToken(symbol string) {
	if normalized, err := NormalizeToken(symbol); err == nil {
		e.baseToken = normalized
	}
}

// SetNowFunc overrides the engine time source. Primarily for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return common.Guard(e.pauses, ModuleName)
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadBoost(id uint64) (*Boost, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	b, ok := e.state.BoostGet(id)
	if !ok || b == nil || b.Descriptor.Owner == ([20]byte{}) {
		return nil, ErrBoostDoesNotExist
	}
	return b, nil
}

// creditStoredBalance reloads the persisted record and shifts its balance by
// delta. Rollback paths must not write back a pre-call snapshot: a reentrant
// ledger call may have committed its own mutation to the record in the
// meantime.
func (e *Engine) creditStoredBalance(id uint64, delta *big.Int) {
	if delta == nil || delta.Sign() == 0 {
		return
	}
	stored, ok := e.state.BoostGet(id)
	if !ok || stored == nil {
		return
	}
	stored.Ledger.Balance = new(big.Int).Add(stored.Ledger.Balance, delta)
	_ = e.state.BoostPut(stored)
}

// GetBoost returns a copy of the stored record for the given id.
func (e *Engine) GetBoost(id uint64) (*Boost, error) {
	b, err := e.loadBoost(id)
	if err != nil {
		return nil, err
	}
	return b.Clone(), nil
}

// Claimed reports whether the recipient has already claimed from the boost.
func (e *Engine) Claimed(id uint64, recipient [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	if _, err := e.loadBoost(id); err != nil {
		return false, err
	}
	return e.state.ClaimedGet(id, recipient), nil
}

// BoostsByRef returns the ids recorded under an external reference tag.
func (e *Engine) BoostsByRef(ref string) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.RefList(ref)
}

// Create validates the definition, assigns the next id, persists the record
// and pulls the deposit (and any flat creation fee) from the caller into the
// registry vault. A failed pull unwinds the stored record so the operation is
// atomic to outside observers; the id counter is not rewound, ids stay
// monotonic.
func (e *Engine) Create(caller [20]byte, params CreateParams) (*Boost, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	token, err := NormalizeToken(params.Token)
	if err != nil {
		return nil, err
	}
	deposit := cloneBigInt(params.Deposit)
	if deposit.Sign() <= 0 {
		return nil, ErrDepositRequired
	}
	now := e.now()
	if params.End <= now {
		return nil, ErrEndDateInPast
	}
	if params.End <= params.Start {
		return nil, ErrEndDateBeforeStart
	}
	if params.Guard == ([20]byte{}) {
		return nil, ErrInvalidGuard
	}
	perAccount := cloneBigInt(params.AmountPerAccount)
	if perAccount.Sign() > 0 && deposit.Cmp(perAccount) < 0 {
		return nil, ErrDepositLessThanAmountPerAccount
	}
	feePaid := cloneBigInt(params.FeePaid)
	if e.fees.CreateFee != nil && e.fees.CreateFee.Sign() > 0 && feePaid.Cmp(e.fees.CreateFee) < 0 {
		return nil, ErrInsufficientEthFee
	}
	owner := params.Owner
	if owner == ([20]byte{}) {
		owner = caller
	}
	tokenFee, net := e.fees.Apply(deposit)

	id, err := e.state.NextBoostID()
	if err != nil {
		return nil, err
	}
	b := &Boost{
		ID:        id,
		CreatedAt: now,
		Descriptor: Descriptor{
			Token:            token,
			Guard:            params.Guard,
			Owner:            owner,
			Start:            params.Start,
			End:              params.End,
			AmountPerAccount: perAccount,
			Ref:              params.Ref,
			StrategyURI:      params.StrategyURI,
		},
		Ledger: Ledger{Balance: net},
	}
	if err := e.state.BoostPut(b); err != nil {
		return nil, err
	}
	if params.Ref != "" {
		if err := e.state.RefAdd(params.Ref, id); err != nil {
			_ = e.state.BoostDelete(id)
			return nil, err
		}
	}
	if err := e.pullFunds(caller, b, token, deposit, tokenFee, feePaid); err != nil {
		if params.Ref != "" {
			_ = e.state.RefRemove(params.Ref, id)
		}
		_ = e.state.BoostDelete(id)
		return nil, err
	}
	e.emit(NewCreatedEvent(b))
	return b.Clone(), nil
}

func (e *Engine) pullFunds(from [20]byte, b *Boost, token string, deposit, tokenFee, feePaid *big.Int) error {
	if err := e.ledger.TransferFrom(token, from, deposit); err != nil {
		return err
	}
	if tokenFee.Sign() > 0 {
		if err := e.state.FeeCredit(token, tokenFee); err != nil {
			return err
		}
	}
	if feePaid.Sign() > 0 {
		if err := e.ledger.TransferFrom(e.baseToken, from, feePaid); err != nil {
			return err
		}
		if err := e.state.FeeCredit(e.baseToken, feePaid); err != nil {
			return err
		}
	}
	return nil
}

// Deposit tops up an existing boost before its window closes. The balance
// credit is committed before the pull; a failed pull reverses this deposit's
// credit and fee accrual.
func (e *Engine) Deposit(caller [20]byte, id uint64, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	b, err := e.loadBoost(id)
	if err != nil {
		return err
	}
	if e.now() >= b.Descriptor.End {
		return ErrBoostEnded
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrDepositRequired
	}
	tokenFee, net := e.fees.Apply(amt)
	prior := cloneBigInt(b.Ledger.Balance)
	b.Ledger.Balance = new(big.Int).Add(prior, net)
	if err := e.state.BoostPut(b); err != nil {
		return err
	}
	if tokenFee.Sign() > 0 {
		if err := e.state.FeeCredit(b.Descriptor.Token, tokenFee); err != nil {
			e.creditStoredBalance(b.ID, new(big.Int).Neg(net))
			return err
		}
	}
	if err := e.ledger.TransferFrom(b.Descriptor.Token, caller, amt); err != nil {
		if tokenFee.Sign() > 0 {
			_ = e.state.FeeDebit(b.Descriptor.Token, tokenFee)
		}
		e.creditStoredBalance(b.ID, new(big.Int).Neg(net))
		return err
	}
	e.emit(NewDepositedEvent(b, caller, net, tokenFee))
	return nil
}

// Withdraw pays the unclaimed remainder to the destination once the window
// has closed. Only the recorded owner may withdraw; the balance is zeroed
// before the payout call so a reentrant caller finds nothing left.
func (e *Engine) Withdraw(caller [20]byte, id uint64, to [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	b, err := e.loadBoost(id)
	if err != nil {
		return err
	}
	if caller != b.Descriptor.Owner {
		return ErrOnlyBoostOwner
	}
	if e.now() < b.Descriptor.End {
		return ErrBoostNotEnded
	}
	remainder := cloneBigInt(b.Ledger.Balance)
	if remainder.Sign() <= 0 {
		return ErrInsufficientBoostBalance
	}
	if to == ([20]byte{}) {
		return ErrInvalidRecipient
	}
	b.Ledger.Balance = big.NewInt(0)
	if err := e.state.BoostPut(b); err != nil {
		return err
	}
	if err := e.ledger.Transfer(b.Descriptor.Token, to, remainder); err != nil {
		e.creditStoredBalance(b.ID, remainder)
		return err
	}
	e.emit(NewWithdrawnEvent(b, to, remainder))
	return nil
}
