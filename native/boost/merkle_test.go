package boost

import (
	"math/big"
	"testing"
)

func whitelistFixture(t *testing.T, n int) (*Whitelist, []WhitelistEntry) {
	t.Helper()
	entries := make([]WhitelistEntry, n)
	for i := range entries {
		entries[i] = WhitelistEntry{
			Recipient: addr(byte(0x40 + i)),
			Amount:    big.NewInt(int64((i + 1) * 10)),
		}
	}
	wl, err := NewWhitelist(entries)
	if err != nil {
		t.Fatalf("build whitelist: %v", err)
	}
	return wl, entries
}

func TestWhitelistProofRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13} {
		wl, entries := whitelistFixture(t, n)
		root := wl.Root()
		for _, entry := range entries {
			proof, err := wl.ProofFor(entry.Recipient)
			if err != nil {
				t.Fatalf("n=%d proof for %x: %v", n, entry.Recipient, err)
			}
			leaf := ClaimLeaf(entry.Recipient, entry.Amount)
			if !VerifyProof(root, leaf, proof) {
				t.Fatalf("n=%d proof for %x did not verify", n, entry.Recipient)
			}
		}
	}
}

func TestWhitelistProofRejectsTampering(t *testing.T) {
	wl, entries := whitelistFixture(t, 5)
	root := wl.Root()
	entry := entries[2]
	proof, err := wl.ProofFor(entry.Recipient)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}

	// Wrong amount in the leaf.
	wrongAmount := ClaimLeaf(entry.Recipient, big.NewInt(999))
	if VerifyProof(root, wrongAmount, proof) {
		t.Fatal("proof verified with a tampered amount")
	}
	// Wrong recipient in the leaf.
	wrongRecipient := ClaimLeaf(addr(0x99), entry.Amount)
	if VerifyProof(root, wrongRecipient, proof) {
		t.Fatal("proof verified with a tampered recipient")
	}
	// Corrupted sibling in the path.
	if len(proof) > 0 {
		corrupted := make([][32]byte, len(proof))
		copy(corrupted, proof)
		corrupted[0][0] ^= 0x01
		leaf := ClaimLeaf(entry.Recipient, entry.Amount)
		if VerifyProof(root, leaf, corrupted) {
			t.Fatal("proof verified with a corrupted sibling")
		}
	}
}

func TestWhitelistRootOrderIndependent(t *testing.T) {
	entries := []WhitelistEntry{
		{Recipient: addr(0x41), Amount: big.NewInt(10)},
		{Recipient: addr(0x42), Amount: big.NewInt(20)},
		{Recipient: addr(0x43), Amount: big.NewInt(30)},
	}
	reversed := []WhitelistEntry{entries[2], entries[1], entries[0]}

	a, err := NewWhitelist(entries)
	if err != nil {
		t.Fatalf("build whitelist: %v", err)
	}
	b, err := NewWhitelist(reversed)
	if err != nil {
		t.Fatalf("build reversed whitelist: %v", err)
	}
	if a.Root() != b.Root() {
		t.Fatal("root should not depend on entry order")
	}
}

func TestWhitelistRejectsEmpty(t *testing.T) {
	if _, err := NewWhitelist(nil); err == nil {
		t.Fatal("expected an error for an empty whitelist")
	}
}

func TestWhitelistUnknownRecipient(t *testing.T) {
	wl, _ := whitelistFixture(t, 3)
	if _, err := wl.ProofFor(addr(0x99)); err == nil {
		t.Fatal("expected an error for an unknown recipient")
	}
	if _, err := wl.AmountFor(addr(0x99)); err == nil {
		t.Fatal("expected an error for an unknown recipient amount")
	}
}
