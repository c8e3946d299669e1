package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"omenchain/core"
	"omenchain/core/types"
	"omenchain/native/common"
	"omenchain/native/launchpad"
	"omenchain/native/market"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeRateLimited    = -32020
	codeNotFound       = -32040
	codeLifecycle      = -32041
	codeInsufficient   = -32042
	codeConflict       = -32043
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// errorCode maps core error kinds onto stable JSON-RPC codes so clients can
// branch without string matching.
func errorCode(err error) int {
	switch {
	case errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, market.ErrUnauthorized),
		errors.Is(err, launchpad.ErrUnauthorized):
		return codeUnauthorized
	case errors.Is(err, core.ErrPlayerNotFound),
		errors.Is(err, market.ErrMarketNotFound),
		errors.Is(err, launchpad.ErrProjectNotFound),
		errors.Is(err, launchpad.ErrNoInvestment),
		errors.Is(err, market.ErrNoWinningPosition):
		return codeNotFound
	case errors.Is(err, common.ErrModulePaused),
		errors.Is(err, market.ErrMarketNotActive),
		errors.Is(err, market.ErrNotResolved),
		errors.Is(err, launchpad.ErrProjectNotPending),
		errors.Is(err, launchpad.ErrProjectNotActive),
		errors.Is(err, launchpad.ErrProjectNotEnded):
		return codeLifecycle
	case errors.Is(err, core.ErrInsufficientBalance),
		errors.Is(err, market.ErrInsufficientBalance),
		errors.Is(err, market.ErrInsufficientShares),
		errors.Is(err, market.ErrInsufficientLiquidity),
		errors.Is(err, launchpad.ErrInsufficientBalance),
		errors.Is(err, launchpad.ErrCapExceeded):
		return codeInsufficient
	case errors.Is(err, market.ErrAlreadyResolved),
		errors.Is(err, market.ErrAlreadyClaimed),
		errors.Is(err, launchpad.ErrAlreadyWithdrawn),
		errors.Is(err, market.ErrMarketExists):
		return codeConflict
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, market.ErrInvalidAmount),
		errors.Is(err, market.ErrInvalidSide),
		errors.Is(err, launchpad.ErrInvalidAmount),
		errors.Is(err, launchpad.ErrInvalidParams):
		return codeInvalidParams
	default:
		return codeServerError
	}
}

func parseAddress(raw string) (types.Address, error) {
	var addr types.Address
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q", raw)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("address must be %d bytes", len(addr))
	}
	copy(addr[:], decoded)
	return addr, nil
}

func formatAddress(addr types.Address) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func parseSide(raw string) (market.Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes":
		return market.SideYes, nil
	case "no":
		return market.SideNo, nil
	default:
		return 0, fmt.Errorf("side must be \"yes\" or \"no\"")
	}
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) == 0 {
		return fmt.Errorf("params required")
	}
	return json.Unmarshal(req.Params[0], out)
}
