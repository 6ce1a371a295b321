package rpc

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"boostchain/crypto"
	"boostchain/native/bank"
	"boostchain/native/boost"
	"boostchain/storage"
)

const testChainID = 99

type gatewayEnv struct {
	server *httptest.Server
	engine *boost.Engine
	ledger *bank.Ledger
	now    int64
}

func newGatewayEnv(t *testing.T) *gatewayEnv {
	t.Helper()
	db := storage.NewMemDB()
	var vault [20]byte
	vault[19] = 0xFF
	env := &gatewayEnv{
		ledger: bank.NewLedger(db, vault),
		now:    1_000_000,
	}
	env.engine = boost.NewEngine()
	env.engine.SetState(boost.NewStore(db))
	env.engine.SetLedger(env.ledger)
	env.engine.SetChainID(testChainID)
	env.engine.SetNowFunc(func() int64 { return env.now })

	srv := NewServer(env.engine, nil)
	env.server = httptest.NewServer(srv.Router())
	t.Cleanup(env.server.Close)
	return env
}

func (env *gatewayEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(env.server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func (env *gatewayEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(env.server.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func bech32Addr(fill byte) string {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = fill
	}
	return crypto.NewAddress(crypto.BoostPrefix, raw).String()
}

func rawAddr(fill byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = fill
	}
	return out
}

func signClaim(t *testing.T, key *ecdsa.PrivateKey, boostID uint64, recipient [20]byte, amount *big.Int) string {
	t.Helper()
	digest := boost.ClaimDigest(testChainID, boostID, recipient, amount)
	sig, err := ethcrypto.Sign(digest[:], key)
	if err != nil {
		t.Fatalf("sign claim: %v", err)
	}
	return hex.EncodeToString(sig)
}

func createTestBoost(t *testing.T, env *gatewayEnv, guard string) boostJSON {
	t.Helper()
	creator := bech32Addr(0x01)
	env.ledger.Mint("WIDGET", rawAddr(0x01), big.NewInt(100_000))
	resp := env.post(t, "/v1/boosts", createParams{
		Caller:  creator,
		Token:   "WIDGET",
		Deposit: "1000",
		Guard:   guard,
		Start:   env.now,
		End:     env.now + 3600,
		Ref:     "proposal-5",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d", resp.StatusCode)
	}
	return decodeJSON[boostJSON](t, resp)
}

func TestGatewayCreateAndGet(t *testing.T) {
	env := newGatewayEnv(t)
	created := createTestBoost(t, env, bech32Addr(0x02))
	if created.ID != 1 || created.Balance != "1000" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	got := decodeJSON[boostJSON](t, env.get(t, fmt.Sprintf("/v1/boosts/%d", created.ID)))
	if got.Guard != bech32Addr(0x02) || got.Token != "WIDGET" {
		t.Fatalf("unexpected get response: %+v", got)
	}

	resp := env.get(t, "/v1/boosts/99")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing boost, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGatewayCreateValidation(t *testing.T) {
	env := newGatewayEnv(t)
	resp := env.post(t, "/v1/boosts", createParams{
		Caller:  bech32Addr(0x01),
		Token:   "WIDGET",
		Deposit: "0",
		Guard:   bech32Addr(0x02),
		Start:   env.now,
		End:     env.now + 3600,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero deposit, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorBody](t, resp)
	if body.Code != "invalid_params" {
		t.Fatalf("unexpected error code %q", body.Code)
	}
}

func TestGatewaySignatureClaimFlow(t *testing.T) {
	env := newGatewayEnv(t)
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	guardAddr := [20]byte(ethcrypto.PubkeyToAddress(key.PublicKey))
	guard := crypto.NewAddress(crypto.BoostPrefix, guardAddr[:]).String()
	created := createTestBoost(t, env, guard)

	recipient := rawAddr(0x11)
	amount := big.NewInt(400)
	claim := claimParams{
		Recipient: crypto.NewAddress(crypto.BoostPrefix, recipient[:]).String(),
		Amount:    "400",
		Strategy:  "signature",
		Signature: signClaim(t, key, created.ID, recipient, amount),
	}
	resp := env.post(t, fmt.Sprintf("/v1/boosts/%d/claim", created.ID), claim)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claim returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The claim flag is queryable.
	flag := decodeJSON[map[string]bool](t, env.get(t, fmt.Sprintf("/v1/boosts/%d/claimed/%s", created.ID, claim.Recipient)))
	if !flag["claimed"] {
		t.Fatal("claimed flag should be set")
	}

	// Replaying the same claim conflicts.
	resp = env.post(t, fmt.Sprintf("/v1/boosts/%d/claim", created.ID), claim)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for replay, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorBody](t, resp)
	if body.Code != "already_claimed" {
		t.Fatalf("unexpected error code %q", body.Code)
	}

	// A tampered signature is unauthorized.
	claim2 := claim
	claim2.Recipient = crypto.NewAddress(crypto.BoostPrefix, []byte(bytesOf(0x12))).String()
	resp = env.post(t, fmt.Sprintf("/v1/boosts/%d/claim", created.ID), claim2)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func bytesOf(fill byte) []byte {
	out := make([]byte, 20)
	for i := range out {
		out[i] = fill
	}
	return out
}

func TestGatewayWhitelistFlow(t *testing.T) {
	env := newGatewayEnv(t)
	guard := bech32Addr(0x02)
	created := createTestBoost(t, env, guard)

	recipient := rawAddr(0x21)
	wl, err := boost.NewWhitelist([]boost.WhitelistEntry{
		{Recipient: recipient, Amount: big.NewInt(250)},
		{Recipient: rawAddr(0x22), Amount: big.NewInt(100)},
	})
	if err != nil {
		t.Fatalf("build whitelist: %v", err)
	}
	root := wl.Root()
	resp := env.post(t, fmt.Sprintf("/v1/boosts/%d/whitelist", created.ID), whitelistParams{
		Caller: guard,
		Root:   hex.EncodeToString(root[:]),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set whitelist returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	proof, err := wl.ProofFor(recipient)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	proofHex := make([]string, len(proof))
	for i, node := range proof {
		proofHex[i] = hex.EncodeToString(node[:])
	}
	resp = env.post(t, fmt.Sprintf("/v1/boosts/%d/claim", created.ID), claimParams{
		Recipient: crypto.NewAddress(crypto.BoostPrefix, recipient[:]).String(),
		Amount:    "250",
		Strategy:  "whitelist",
		Proof:     proofHex,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("whitelist claim returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	balance, _ := env.ledger.BalanceOf("WIDGET", recipient)
	if balance.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("expected payout 250, got %s", balance)
	}

	// Non-guard cannot replace the root.
	resp = env.post(t, fmt.Sprintf("/v1/boosts/%d/whitelist", created.ID), whitelistParams{
		Caller: bech32Addr(0x0A),
		Root:   hex.EncodeToString(root[:]),
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-guard, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGatewayWithdrawAndRefs(t *testing.T) {
	env := newGatewayEnv(t)
	created := createTestBoost(t, env, bech32Addr(0x02))

	// Before the window closes withdrawal conflicts.
	resp := env.post(t, fmt.Sprintf("/v1/boosts/%d/withdraw", created.ID), withdrawParams{
		Caller: bech32Addr(0x01),
		To:     bech32Addr(0x0B),
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before window close, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	env.now = created.End
	resp = env.post(t, fmt.Sprintf("/v1/boosts/%d/withdraw", created.ID), withdrawParams{
		Caller: bech32Addr(0x01),
		To:     bech32Addr(0x0B),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("withdraw returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	balance, _ := env.ledger.BalanceOf("WIDGET", rawAddr(0x0B))
	if balance.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected withdrawn 1000, got %s", balance)
	}

	refs := decodeJSON[map[string][]uint64](t, env.get(t, "/v1/refs/proposal-5"))
	if len(refs["ids"]) != 1 || refs["ids"][0] != created.ID {
		t.Fatalf("unexpected ref ids: %v", refs["ids"])
	}
}

func TestGatewayClaimMultiple(t *testing.T) {
	env := newGatewayEnv(t)
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	guardAddr := [20]byte(ethcrypto.PubkeyToAddress(key.PublicKey))
	guard := crypto.NewAddress(crypto.BoostPrefix, guardAddr[:]).String()
	created := createTestBoost(t, env, guard)

	params := claimMultipleParams{}
	for i := 0; i < 3; i++ {
		recipient := rawAddr(byte(0x31 + i))
		params.Recipients = append(params.Recipients, crypto.NewAddress(crypto.BoostPrefix, recipient[:]).String())
		params.Amounts = append(params.Amounts, "100")
		params.Signatures = append(params.Signatures, signClaim(t, key, created.ID, recipient, big.NewInt(100)))
	}
	resp := env.post(t, fmt.Sprintf("/v1/boosts/%d/claims", created.ID), params)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claim multiple returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	got := decodeJSON[boostJSON](t, env.get(t, fmt.Sprintf("/v1/boosts/%d", created.ID)))
	if got.Balance != "700" {
		t.Fatalf("expected remaining balance 700, got %s", got.Balance)
	}
}
