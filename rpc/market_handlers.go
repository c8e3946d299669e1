package rpc

import (
	"math/big"
	"net/http"

	"omenchain/core"
	"omenchain/native/market"
	"omenchain/observability"
)

// tradeVolumeSample converts a traded amount for the volume counter without
// the silent wrap of Int64 on amounts past 63 bits.
func tradeVolumeSample(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

type betParams struct {
	Caller string `json:"caller"`
	Side   string `json:"side"`
	Amount string `json:"amount"`
}

type betResult struct {
	Side     string `json:"side"`
	Amount   string `json:"amount"`
	Fee      string `json:"fee"`
	Shares   string `json:"shares"`
	YesPrice uint64 `json:"yesPrice"`
	NoPrice  uint64 `json:"noPrice"`
}

func (s *Server) handleBet(w http.ResponseWriter, req *RPCRequest) {
	var params betParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	side, err := parseSide(params.Side)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.BetCmd{Caller: caller, Side: side, Amount: amount})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	receipt := result.(*market.BetReceipt)
	observability.Core().TradeVolume.WithLabelValues("buy").Add(tradeVolumeSample(receipt.Amount))
	writeResult(w, req.ID, betResult{
		Side:     receipt.Side.String(),
		Amount:   receipt.Amount.String(),
		Fee:      receipt.Fee.String(),
		Shares:   receipt.Shares.String(),
		YesPrice: receipt.YesPrice,
		NoPrice:  receipt.NoPrice,
	})
}

type sellParams struct {
	Caller string `json:"caller"`
	Side   string `json:"side"`
	Shares string `json:"shares"`
}

type sellResult struct {
	Side     string `json:"side"`
	Shares   string `json:"shares"`
	Gross    string `json:"gross"`
	Fee      string `json:"fee"`
	Payout   string `json:"payout"`
	YesPrice uint64 `json:"yesPrice"`
	NoPrice  uint64 `json:"noPrice"`
}

func (s *Server) handleSell(w http.ResponseWriter, req *RPCRequest) {
	var params sellParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	side, err := parseSide(params.Side)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	shares, err := parseAmount(params.Shares)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.SellCmd{Caller: caller, Side: side, Shares: shares})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	receipt := result.(*market.SellReceipt)
	observability.Core().TradeVolume.WithLabelValues("sell").Add(tradeVolumeSample(receipt.Gross))
	writeResult(w, req.ID, sellResult{
		Side:     receipt.Side.String(),
		Shares:   receipt.Shares.String(),
		Gross:    receipt.Gross.String(),
		Fee:      receipt.Fee.String(),
		Payout:   receipt.Payout.String(),
		YesPrice: receipt.YesPrice,
		NoPrice:  receipt.NoPrice,
	})
}

type resolveParams struct {
	Caller  string `json:"caller"`
	Outcome string `json:"outcome"`
}

func (s *Server) handleResolve(w http.ResponseWriter, req *RPCRequest) {
	var params resolveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	side, err := parseSide(params.Outcome)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.ResolveCmd{Caller: caller, Outcome: side == market.SideYes})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

type callerParams struct {
	Caller string `json:"caller"`
}

func (s *Server) handleClaim(w http.ResponseWriter, req *RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.ClaimCmd{Caller: caller})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	claimed := result.(core.ClaimResult)
	writeResult(w, req.ID, map[string]string{"payout": claimed.Payout.String()})
}

func (s *Server) handleWithdrawFees(w http.ResponseWriter, req *RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.WithdrawFeesCmd{Caller: caller})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	swept := result.(core.WithdrawFeesResult)
	writeResult(w, req.ID, map[string]string{"amount": swept.Amount.String()})
}

func (s *Server) handleMarketGet(w http.ResponseWriter, req *RPCRequest) {
	snapshot, err := s.node.MarketSnapshot()
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, snapshot)
}

type addressParams struct {
	Address string `json:"address"`
}

func (s *Server) handlePositionGet(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	snapshot, err := s.node.PositionSnapshot(addr)
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, snapshot)
}

type quoteParams struct {
	Side   string `json:"side"`
	Amount string `json:"amount"`
}

func (s *Server) handleQuote(w http.ResponseWriter, req *RPCRequest) {
	var params quoteParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	side, err := parseSide(params.Side)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	snapshot, err := s.node.QuoteBuy(side, amount)
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, snapshot)
}
