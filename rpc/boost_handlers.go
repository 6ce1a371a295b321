package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"boostchain/crypto"
	"boostchain/native/boost"
)

type createParams struct {
	Caller           string `json:"caller"`
	Token            string `json:"token"`
	Deposit          string `json:"deposit"`
	FeePaid          string `json:"feePaid,omitempty"`
	Guard            string `json:"guard"`
	Start            int64  `json:"start"`
	End              int64  `json:"end"`
	Owner            string `json:"owner,omitempty"`
	AmountPerAccount string `json:"amountPerAccount,omitempty"`
	Ref              string `json:"ref,omitempty"`
	StrategyURI      string `json:"strategyURI,omitempty"`
}

type depositParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type withdrawParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
}

type claimParams struct {
	Recipient string   `json:"recipient"`
	Amount    string   `json:"amount,omitempty"`
	Strategy  string   `json:"strategy"`
	Signature string   `json:"signature,omitempty"`
	Proof     []string `json:"proof,omitempty"`
}

type claimMultipleParams struct {
	Recipients []string `json:"recipients"`
	Amounts    []string `json:"amounts,omitempty"`
	Signatures []string `json:"signatures"`
}

type whitelistParams struct {
	Caller string `json:"caller"`
	Root   string `json:"root"`
}

type boostJSON struct {
	ID               uint64 `json:"id"`
	Token            string `json:"token"`
	Guard            string `json:"guard"`
	Owner            string `json:"owner"`
	Start            int64  `json:"start"`
	End              int64  `json:"end"`
	CreatedAt        int64  `json:"createdAt"`
	Balance          string `json:"balance"`
	AmountPerAccount string `json:"amountPerAccount,omitempty"`
	Ref              string `json:"ref,omitempty"`
	StrategyURI      string `json:"strategyURI,omitempty"`
	WhitelistRoot    string `json:"whitelistRoot,omitempty"`
}

type okResult struct {
	OK bool `json:"ok"`
}

func toBoostJSON(b *boost.Boost) boostJSON {
	out := boostJSON{
		ID:          b.ID,
		Token:       b.Descriptor.Token,
		Guard:       formatAddress(b.Descriptor.Guard),
		Owner:       formatAddress(b.Descriptor.Owner),
		Start:       b.Descriptor.Start,
		End:         b.Descriptor.End,
		CreatedAt:   b.CreatedAt,
		Balance:     b.Ledger.Balance.String(),
		Ref:         b.Descriptor.Ref,
		StrategyURI: b.Descriptor.StrategyURI,
	}
	if b.FixedAmount() {
		out.AmountPerAccount = b.Descriptor.AmountPerAccount.String()
	}
	if b.Ledger.WhitelistRoot != ([32]byte{}) {
		out.WhitelistRoot = hex.EncodeToString(b.Ledger.WhitelistRoot[:])
	}
	return out
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.BoostPrefix, addr[:]).String()
}

func parseAddress(value string) ([20]byte, error) {
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	return decoded.Array(), nil
}

func parseOptionalAddress(value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, nil
	}
	return parseAddress(value)
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func parseBoostID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var params createParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "caller: "+err.Error())
		return
	}
	guard, err := parseAddress(params.Guard)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "guard: "+err.Error())
		return
	}
	owner, err := parseOptionalAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "owner: "+err.Error())
		return
	}
	deposit, err := parseAmount(params.Deposit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	feePaid, err := parseAmount(params.FeePaid)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	perAccount, err := parseAmount(params.AmountPerAccount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	b, err := s.engine.Create(caller, boost.CreateParams{
		Token:            params.Token,
		Deposit:          deposit,
		FeePaid:          feePaid,
		Guard:            guard,
		Start:            params.Start,
		End:              params.End,
		Owner:            owner,
		AmountPerAccount: perAccount,
		Ref:              params.Ref,
		StrategyURI:      params.StrategyURI,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.logger.Info("boost created", "id", b.ID, "token", b.Descriptor.Token)
	writeJSON(w, http.StatusCreated, toBoostJSON(b))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := parseBoostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid boost id")
		return
	}
	var params depositParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "caller: "+err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	if err := s.engine.Deposit(caller, id, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResult{OK: true})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, err := parseBoostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid boost id")
		return
	}
	var params withdrawParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "caller: "+err.Error())
		return
	}
	to, err := parseAddress(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "to: "+err.Error())
		return
	}
	if err := s.engine.Withdraw(caller, id, to); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResult{OK: true})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, err := parseBoostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid boost id")
		return
	}
	var params claimParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "recipient: "+err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	proof, strategy, err := parseClaimProof(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	if err := s.engine.Claim(id, recipient, amount, proof); err != nil {
		writeEngineError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.CountClaim(strategy)
	}
	s.logger.Info("claim settled", "boost", id, "strategy", strategy)
	writeJSON(w, http.StatusOK, okResult{OK: true})
}

func parseClaimProof(params claimParams) (boost.ClaimProof, string, error) {
	strategy := strings.ToLower(strings.TrimSpace(params.Strategy))
	switch strategy {
	case "signature":
		sig, err := hex.DecodeString(strings.TrimPrefix(params.Signature, "0x"))
		if err != nil {
			return nil, "", fmt.Errorf("signature: %w", err)
		}
		return boost.SignatureProof{Signature: sig}, strategy, nil
	case "whitelist":
		proof := make([][32]byte, len(params.Proof))
		for i, node := range params.Proof {
			parsed, err := parseHash(node)
			if err != nil {
				return nil, "", fmt.Errorf("proof[%d]: %w", i, err)
			}
			proof[i] = parsed
		}
		return boost.WhitelistProof{Proof: proof}, strategy, nil
	case "guard":
		return boost.GuardProof{}, strategy, nil
	default:
		return nil, "", fmt.Errorf("unknown strategy %q", params.Strategy)
	}
}

func (s *Server) handleClaimMultiple(w http.ResponseWriter, r *http.Request) {
	id, err := parseBoostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid boost id")
		return
	}
	var params claimMultipleParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	recipients := make([][20]byte, len(params.Recipients))
	for i, value := range params.Recipients {
		parsed, err := parseAddress(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_params", fmt.Sprintf("recipients[%d]: %v", i, err))
			return
		}
		recipients[i] = parsed
	}
	var amounts []*big.Int
	if len(params.Amounts) > 0 {
		amounts = make([]*big.Int, len(params.Amounts))
		for i, value := range params.Amounts {
			parsed, err := parseAmount(value)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_params", fmt.Sprintf("amounts[%d]: %v", i, err))
				return
			}
			amounts[i] = parsed
		}
	}
	signatures := make([][]byte, len(params.Signatures))
	for i, value := range params.Signatures {
		sig, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_params", fmt.Sprintf("signatures[%d]: %v", i, err))
			return
		}
		signatures[i] = sig
	}
	if err := s.engine.ClaimMultiple(id, recipients, amounts, signatures); err != nil {
		writeEngineError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.CountClaim("signature")
	}
	writeJSON(w, http.StatusOK, okResult{OK: true})
}

func (s *Server) handleSetWhitelist(w http.ResponseWriter, r *http.Request) {
	id, err := parseBoostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid boost id")
		return
	}
	var params whitelistParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "caller: "+err.Error())
		return
	}
	root, err := parseHash(params.Root)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "root: "+err.Error())
		return
	}
	if err := s.engine.SetWhitelist(caller, id, root); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResult{OK: true})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseBoostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid boost id")
		return
	}
	b, err := s.engine.GetBoost(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBoostJSON(b))
}

func (s *Server) handleClaimed(w http.ResponseWriter, r *http.Request) {
	id, err := parseBoostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid boost id")
		return
	}
	recipient, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "address: "+err.Error())
		return
	}
	claimed, err := s.engine.Claimed(id, recipient)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"claimed": claimed})
}

func (s *Server) handleByRef(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	ids, err := s.engine.BoostsByRef(ref)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"ids": ids})
}
