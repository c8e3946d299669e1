package rpc

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"omenchain/core"
	"omenchain/core/types"
	"omenchain/native/market"
	"omenchain/storage"
)

const testToken = "secret-token"

var (
	adminAddr = types.Address{0xAA}
	aliceAddr = types.Address{0x01}
)

func newTestServer(t *testing.T) (*Server, *core.Node) {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), core.Genesis{
		Admin: adminAddr,
		Market: &market.Market{
			Title:        "BTC above 100k by December",
			YesLiquidity: big.NewInt(100_000),
			NoLiquidity:  big.NewInt(100_000),
			StartTime:    0,
			EndTime:      1_000,
		},
	})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return NewServer(node, Config{AuthToken: testToken, RateLimit: 1000, Burst: 1000}), node
}

func call(t *testing.T, server *Server, token, method string, params interface{}) RPCResponse {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	server.handle(recorder, req)

	var resp RPCResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, recorder.Body.String())
	}
	return resp
}

func TestMethodNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	resp := call(t, server, "", "omen_bogus", nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("got %+v want method-not-found", resp.Error)
	}
}

func TestAdminMethodsRequireBearerToken(t *testing.T) {
	server, _ := newTestServer(t)
	resp := call(t, server, "", "omen_tick", nil)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("unauthenticated tick: got %+v", resp.Error)
	}
	resp = call(t, server, "wrong-token", "omen_tick", nil)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("bad token tick: got %+v", resp.Error)
	}
	resp = call(t, server, testToken, "omen_tick", nil)
	if resp.Error != nil {
		t.Fatalf("authenticated tick: %+v", resp.Error)
	}
}

func TestBetFlowOverRPC(t *testing.T) {
	server, _ := newTestServer(t)

	resp := call(t, server, "", "omen_installPlayer", map[string]string{"user": formatAddress(aliceAddr)})
	if resp.Error != nil {
		t.Fatalf("install: %+v", resp.Error)
	}
	resp = call(t, server, testToken, "omen_deposit", map[string]string{
		"caller": formatAddress(adminAddr),
		"to":     formatAddress(aliceAddr),
		"amount": "10000",
	})
	if resp.Error != nil {
		t.Fatalf("deposit: %+v", resp.Error)
	}
	resp = call(t, server, "", "market_bet", map[string]string{
		"caller": formatAddress(aliceAddr),
		"side":   "yes",
		"amount": "1000",
	})
	if resp.Error != nil {
		t.Fatalf("bet: %+v", resp.Error)
	}
	result, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	var receipt betResult
	if err := json.Unmarshal(result, &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Shares != "981" {
		t.Fatalf("shares: got %s want 981", receipt.Shares)
	}
	if receipt.Fee != "10" {
		t.Fatalf("fee: got %s want 10", receipt.Fee)
	}
}

func TestErrorCodesAreStable(t *testing.T) {
	server, _ := newTestServer(t)

	// Bet from an uninstalled player maps to the not-found code.
	resp := call(t, server, "", "market_bet", map[string]string{
		"caller": formatAddress(aliceAddr),
		"side":   "yes",
		"amount": "1000",
	})
	if resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Fatalf("uninstalled bet: got %+v", resp.Error)
	}

	// Malformed side maps to invalid params before any command runs.
	resp = call(t, server, "", "market_bet", map[string]string{
		"caller": formatAddress(aliceAddr),
		"side":   "maybe",
		"amount": "1000",
	})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("bad side: got %+v", resp.Error)
	}
}

func TestQuoteIsReadOnly(t *testing.T) {
	server, node := newTestServer(t)
	resp := call(t, server, "", "market_quote", map[string]string{"side": "yes", "amount": "1000"})
	if resp.Error != nil {
		t.Fatalf("quote: %+v", resp.Error)
	}
	snapshot, err := node.MarketSnapshot()
	if err != nil {
		t.Fatalf("market snapshot: %v", err)
	}
	if snapshot.YesLiquidity != "100000" || snapshot.NoLiquidity != "100000" {
		t.Fatalf("quote moved reserves: %s/%s", snapshot.YesLiquidity, snapshot.NoLiquidity)
	}
}

func TestTradeVolumeSampleBeyondInt64(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	got := tradeVolumeSample(huge)
	if want := math.Ldexp(1, 80); got != want {
		t.Fatalf("sample for 2^80: %v, want %v", got, want)
	}
	// Int64 truncation used to wrap this value negative.
	if got <= 0 {
		t.Fatalf("sample went non-positive: %v", got)
	}
	if got := tradeVolumeSample(nil); got != 0 {
		t.Fatalf("sample for nil: %v", got)
	}
}
