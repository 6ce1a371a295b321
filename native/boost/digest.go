package boost

import (
	"encoding/hex"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// claimDigestDomain separates claim digests from any other signed payloads.
const claimDigestDomain = "boostchain/claim/v1"

// ClaimDigest computes the canonical digest a guard signs to authorize a
// claim. The payload binds the chain identity, the boost id, the recipient
// and the amount, so a signature is valid for exactly one claim tuple on one
// deployment.
func ClaimDigest(chainID, boostID uint64, recipient [20]byte, amount *big.Int) [32]byte {
	amt := cloneBigInt(amount)
	payload := fmt.Sprintf("%s|chain=%d|boost=%d|to=%s|amount=%s",
		claimDigestDomain,
		chainID,
		boostID,
		hex.EncodeToString(recipient[:]),
		amt.String(),
	)
	var digest [32]byte
	copy(digest[:], ethcrypto.Keccak256([]byte(payload)))
	return digest
}

// VerifySignature recovers the signer of a 65-byte secp256k1 signature over
// the digest and compares it against the expected address. Malformed
// signatures simply verify as false.
func VerifySignature(signer [20]byte, digest [32]byte, sig []byte) bool {
	if len(sig) != 65 {
		return false
	}
	pub, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return false
	}
	recovered := ethcrypto.PubkeyToAddress(*pub)
	return [20]byte(recovered) == signer
}
