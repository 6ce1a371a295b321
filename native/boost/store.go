package boost

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"boostchain/storage"
)

const (
	seqKey            = "boost/seq"
	recordKeyFormat   = "boost/record/%020d"
	claimedKeyFormat  = "boost/claimed/%020d/%s"
	refKeyFormat      = "boost/ref/%s"
	feeKeyFormat      = "boost/fees/%s"
	claimedMarkerByte = byte(1)
)

// Store persists the boost registry in a key-value database using RLP-encoded
// records. It implements the engine's state interface.
type Store struct {
	db storage.Database
}

// NewStore wraps the database in a boost store.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

type storedBoost struct {
	ID               uint64
	CreatedAt        uint64
	Token            string
	Guard            []byte
	Owner            []byte
	Start            uint64
	End              uint64
	AmountPerAccount []byte
	Ref              string
	StrategyURI      string
	Balance          []byte
	WhitelistRoot    []byte
}

func recordKey(id uint64) []byte {
	return []byte(fmt.Sprintf(recordKeyFormat, id))
}

func claimedKey(id uint64, recipient [20]byte) []byte {
	return []byte(fmt.Sprintf(claimedKeyFormat, id, hex.EncodeToString(recipient[:])))
}

func refKey(ref string) []byte {
	return []byte(fmt.Sprintf(refKeyFormat, hex.EncodeToString([]byte(ref))))
}

func feeKey(token string) []byte {
	return []byte(fmt.Sprintf(feeKeyFormat, token))
}

// NextBoostID increments and persists the monotonic id counter. The first
// assigned id is 1.
func (s *Store) NextBoostID() (uint64, error) {
	var next uint64 = 1
	raw, err := s.db.Get([]byte(seqKey))
	switch {
	case err == nil:
		if len(raw) != 8 {
			return 0, fmt.Errorf("boost store: corrupt id counter")
		}
		next = binary.BigEndian.Uint64(raw) + 1
	case storage.IsNotFound(err):
	default:
		return 0, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := s.db.Put([]byte(seqKey), buf); err != nil {
		return 0, err
	}
	return next, nil
}

// BoostPut sanitizes and persists a boost record.
func (s *Store) BoostPut(b *Boost) error {
	sanitized, err := SanitizeBoost(b)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(storedBoost{
		ID:               sanitized.ID,
		CreatedAt:        uint64(sanitized.CreatedAt),
		Token:            sanitized.Descriptor.Token,
		Guard:            append([]byte(nil), sanitized.Descriptor.Guard[:]...),
		Owner:            append([]byte(nil), sanitized.Descriptor.Owner[:]...),
		Start:            uint64(sanitized.Descriptor.Start),
		End:              uint64(sanitized.Descriptor.End),
		AmountPerAccount: sanitized.Descriptor.AmountPerAccount.Bytes(),
		Ref:              sanitized.Descriptor.Ref,
		StrategyURI:      sanitized.Descriptor.StrategyURI,
		Balance:          sanitized.Ledger.Balance.Bytes(),
		WhitelistRoot:    append([]byte(nil), sanitized.Ledger.WhitelistRoot[:]...),
	})
	if err != nil {
		return err
	}
	return s.db.Put(recordKey(sanitized.ID), encoded)
}

// BoostGet loads a record by id.
func (s *Store) BoostGet(id uint64) (*Boost, bool) {
	raw, err := s.db.Get(recordKey(id))
	if err != nil {
		return nil, false
	}
	var stored storedBoost
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false
	}
	b := &Boost{
		ID:        stored.ID,
		CreatedAt: int64(stored.CreatedAt),
		Descriptor: Descriptor{
			Token:            stored.Token,
			Start:            int64(stored.Start),
			End:              int64(stored.End),
			AmountPerAccount: new(big.Int).SetBytes(stored.AmountPerAccount),
			Ref:              stored.Ref,
			StrategyURI:      stored.StrategyURI,
		},
		Ledger: Ledger{Balance: new(big.Int).SetBytes(stored.Balance)},
	}
	copy(b.Descriptor.Guard[:], stored.Guard)
	copy(b.Descriptor.Owner[:], stored.Owner)
	copy(b.Ledger.WhitelistRoot[:], stored.WhitelistRoot)
	return b, true
}

// BoostDelete removes a record. Used only to unwind a creation whose funding
// pull failed.
func (s *Store) BoostDelete(id uint64) error {
	return s.db.Delete(recordKey(id))
}

// ClaimedGet reports whether the recipient's claim flag is set for the boost.
func (s *Store) ClaimedGet(id uint64, recipient [20]byte) bool {
	raw, err := s.db.Get(claimedKey(id, recipient))
	return err == nil && len(raw) == 1 && raw[0] == claimedMarkerByte
}

// ClaimedSet marks the recipient as having claimed from the boost.
func (s *Store) ClaimedSet(id uint64, recipient [20]byte) error {
	return s.db.Put(claimedKey(id, recipient), []byte{claimedMarkerByte})
}

// ClaimedClear removes the claim flag. Used only to unwind a claim whose
// payout failed.
func (s *Store) ClaimedClear(id uint64, recipient [20]byte) error {
	return s.db.Delete(claimedKey(id, recipient))
}

// RefAdd appends an id to the list stored under an external reference tag.
func (s *Store) RefAdd(ref string, id uint64) error {
	ids, err := s.RefList(ref)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	encoded, err := rlp.EncodeToBytes(ids)
	if err != nil {
		return err
	}
	return s.db.Put(refKey(ref), encoded)
}

// RefRemove drops an id from a reference list.
func (s *Store) RefRemove(ref string, id uint64) error {
	ids, err := s.RefList(ref)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == 0 {
		return s.db.Delete(refKey(ref))
	}
	encoded, err := rlp.EncodeToBytes(filtered)
	if err != nil {
		return err
	}
	return s.db.Put(refKey(ref), encoded)
}

// RefList returns the ids recorded under a reference tag.
func (s *Store) RefList(ref string) ([]uint64, error) {
	raw, err := s.db.Get(refKey(ref))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []uint64
	if err := rlp.DecodeBytes(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// FeeCredit adds to the accrued fee balance for a token.
func (s *Store) FeeCredit(token string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	balance, err := s.FeeBalance(token)
	if err != nil {
		return err
	}
	return s.db.Put(feeKey(token), new(big.Int).Add(balance, amount).Bytes())
}

// FeeDebit subtracts from the accrued fee balance for a token.
func (s *Store) FeeDebit(token string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	balance, err := s.FeeBalance(token)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("boost store: fee balance underflow for %s", token)
	}
	return s.db.Put(feeKey(token), new(big.Int).Sub(balance, amount).Bytes())
}

// FeeBalance returns the accrued fee balance for a token.
func (s *Store) FeeBalance(token string) (*big.Int, error) {
	raw, err := s.db.Get(feeKey(token))
	if err != nil {
		if storage.IsNotFound(err) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}
