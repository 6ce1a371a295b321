package boost

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ClaimLeaf computes the whitelist leaf for a (recipient, amount) pair. The
// amount is encoded as a left-padded 32-byte word so leaves are unambiguous.
func ClaimLeaf(recipient [20]byte, amount *big.Int) [32]byte {
	amt := cloneBigInt(amount)
	word := make([]byte, 32)
	amt.FillBytes(word)
	var leaf [32]byte
	copy(leaf[:], ethcrypto.Keccak256(recipient[:], word))
	return leaf
}

// VerifyProof folds the audit path into the leaf and reports whether the
// result matches the committed root. Sibling pairs are hashed in sorted order
// so proofs carry no position bits.
func VerifyProof(root, leaf [32]byte, proof [][32]byte) bool {
	node := leaf
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}

func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}

// WhitelistEntry is one eligible (recipient, amount) pair in a whitelist.
type WhitelistEntry struct {
	Recipient [20]byte
	Amount    *big.Int
}

// Whitelist is a merkle commitment over a set of claim entries. Guards build
// one off-chain, publish its Root via SetWhitelist and hand each recipient
// the audit path returned by ProofFor.
type Whitelist struct {
	entries []WhitelistEntry
	levels  [][][32]byte
}

// NewWhitelist builds the commitment tree for the supplied entries. Entries
// are sorted by leaf hash so the root is independent of input order.
func NewWhitelist(entries []WhitelistEntry) (*Whitelist, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("boost: empty whitelist")
	}
	sorted := make([]WhitelistEntry, len(entries))
	copy(sorted, entries)
	for i := range sorted {
		sorted[i].Amount = cloneBigInt(sorted[i].Amount)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a := ClaimLeaf(sorted[i].Recipient, sorted[i].Amount)
		b := ClaimLeaf(sorted[j].Recipient, sorted[j].Amount)
		return bytes.Compare(a[:], b[:]) < 0
	})
	leaves := make([][32]byte, len(sorted))
	for i, entry := range sorted {
		leaves[i] = ClaimLeaf(entry.Recipient, entry.Amount)
	}
	levels := [][][32]byte{leaves}
	for len(levels[len(levels)-1]) > 1 {
		prev := levels[len(levels)-1]
		next := make([][32]byte, 0, (len(prev)+1)/2)
		for i := 0; i < len(prev); i += 2 {
			if i+1 < len(prev) {
				next = append(next, hashPair(prev[i], prev[i+1]))
			} else {
				next = append(next, hashPair(prev[i], prev[i]))
			}
		}
		levels = append(levels, next)
	}
	return &Whitelist{entries: sorted, levels: levels}, nil
}

// Root returns the committed root of the whitelist.
func (w *Whitelist) Root() [32]byte {
	top := w.levels[len(w.levels)-1]
	return top[0]
}

// ProofFor returns the audit path for the given recipient, or an error if the
// recipient is not in the whitelist.
func (w *Whitelist) ProofFor(recipient [20]byte) ([][32]byte, error) {
	index := -1
	for i, entry := range w.entries {
		if entry.Recipient == recipient {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("boost: recipient not whitelisted")
	}
	proof := make([][32]byte, 0, len(w.levels)-1)
	for _, level := range w.levels[:len(w.levels)-1] {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}
		proof = append(proof, level[sibling])
		index /= 2
	}
	return proof, nil
}

// AmountFor returns the committed amount for the recipient, used by claim
// submitters that only hold the whitelist.
func (w *Whitelist) AmountFor(recipient [20]byte) (*big.Int, error) {
	for _, entry := range w.entries {
		if entry.Recipient == recipient {
			return cloneBigInt(entry.Amount), nil
		}
	}
	return nil, fmt.Errorf("boost: recipient not whitelisted")
}
