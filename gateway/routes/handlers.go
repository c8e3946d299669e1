package routes

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"omenchain/core"
	"omenchain/core/types"
	"omenchain/native/launchpad"
	"omenchain/native/market"
)

type gateway struct {
	node   *core.Node
	logger *slog.Logger
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrPlayerNotFound),
		errors.Is(err, market.ErrMarketNotFound),
		errors.Is(err, launchpad.ErrProjectNotFound),
		errors.Is(err, launchpad.ErrNoInvestment):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrInvalidAmount),
		errors.Is(err, market.ErrInvalidSide),
		errors.Is(err, market.ErrInsufficientLiquidity):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func parseAddressParam(raw string) (types.Address, error) {
	var addr types.Address
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil || len(decoded) != len(addr) {
		return addr, errors.New("invalid address")
	}
	copy(addr[:], decoded)
	return addr, nil
}

func (g *gateway) market(w http.ResponseWriter, r *http.Request) {
	snapshot, err := g.node.MarketSnapshot()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (g *gateway) quote(w http.ResponseWriter, r *http.Request) {
	var side market.Side
	switch strings.ToLower(r.URL.Query().Get("side")) {
	case "yes":
		side = market.SideYes
	case "no":
		side = market.SideNo
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "side must be yes or no"})
		return
	}
	amount, ok := new(big.Int).SetString(r.URL.Query().Get("amount"), 10)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid amount"})
		return
	}
	snapshot, err := g.node.QuoteBuy(side, amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (g *gateway) position(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddressParam(chi.URLParam(r, "address"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	snapshot, err := g.node.PositionSnapshot(addr)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (g *gateway) projects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.node.ProjectSnapshots())
}

func (g *gateway) project(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid project id"})
		return
	}
	snapshot, err := g.node.ProjectSnapshot(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (g *gateway) investment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid project id"})
		return
	}
	addr, err := parseAddressParam(chi.URLParam(r, "address"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	snapshot, err := g.node.InvestmentSnapshot(id, addr)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (g *gateway) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.node.Stats())
}
