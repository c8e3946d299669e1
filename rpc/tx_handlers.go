package rpc

import (
	"encoding/hex"
	"net/http"

	"omenchain/core"
	"omenchain/observability"
)

func (s *Server) handleTick(w http.ResponseWriter, req *RPCRequest) {
	result, err := s.node.Apply(core.TickCmd{})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

type installParams struct {
	User string `json:"user"`
}

type installResult struct {
	User             string `json:"user"`
	AlreadyInstalled bool   `json:"alreadyInstalled"`
}

func (s *Server) handleInstallPlayer(w http.ResponseWriter, req *RPCRequest) {
	var params installParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	user, err := parseAddress(params.User)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.InstallPlayerCmd{User: user})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	installed := result.(core.InstallResult)
	writeResult(w, req.ID, installResult{User: formatAddress(installed.User), AlreadyInstalled: installed.AlreadyInstalled})
}

type depositParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params depositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	to, err := parseAddress(params.To)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.DepositCmd{Caller: caller, To: to, Amount: amount})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	deposited := result.(core.DepositResult)
	writeResult(w, req.ID, balanceResult{Address: formatAddress(deposited.To), Balance: deposited.Balance.String()})
}

type withdrawParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type settlementResult struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Sequence  uint64 `json:"sequence"`
	CreatedAt uint64 `json:"createdAt"`
}

type withdrawResult struct {
	Settlement settlementResult `json:"settlement"`
	Balance    string           `json:"balance"`
}

func formatSettlement(settlement *core.Settlement) settlementResult {
	return settlementResult{
		ID:        "0x" + hex.EncodeToString(settlement.ID[:]),
		Recipient: formatAddress(settlement.Recipient),
		Amount:    settlement.Amount.String(),
		Sequence:  settlement.Sequence,
		CreatedAt: settlement.CreatedAt,
	}
}

func (s *Server) handleWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params withdrawParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.WithdrawCmd{Caller: caller, Amount: amount})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	withdrawn := result.(core.WithdrawResult)
	writeResult(w, req.ID, withdrawResult{
		Settlement: formatSettlement(withdrawn.Settlement),
		Balance:    withdrawn.Balance.String(),
	})
}

func (s *Server) handleFlushSettlements(w http.ResponseWriter, req *RPCRequest) {
	list, err := s.node.FlushSettlements()
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	out := make([]settlementResult, len(list))
	for i, settlement := range list {
		out[i] = formatSettlement(settlement)
	}
	observability.Core().SettlementsOut.Add(float64(len(out)))
	writeResult(w, req.ID, out)
}

func (s *Server) handleStats(w http.ResponseWriter, req *RPCRequest) {
	writeResult(w, req.ID, s.node.Stats())
}
