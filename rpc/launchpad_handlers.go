package rpc

import (
	"net/http"

	"omenchain/core"
	"omenchain/native/launchpad"
	"omenchain/observability"
)

type createProjectParams struct {
	Caller           string `json:"caller"`
	Name             string `json:"name"`
	TokenName        string `json:"tokenName"`
	TokenSymbol      string `json:"tokenSymbol"`
	TargetAmount     string `json:"targetAmount"`
	TokenSupply      string `json:"tokenSupply"`
	MaxIndividualCap string `json:"maxIndividualCap"`
	StartTime        int64  `json:"startTime"`
	EndTime          int64  `json:"endTime"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, req *RPCRequest) {
	var params createProjectParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	target, err := parseAmount(params.TargetAmount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	supply, err := parseAmount(params.TokenSupply)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	capAmount, err := parseAmount(params.MaxIndividualCap)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.CreateProjectCmd{Caller: caller, Params: launchpad.CreateParams{
		Name:             params.Name,
		TokenName:        params.TokenName,
		TokenSymbol:      params.TokenSymbol,
		TargetAmount:     target,
		TokenSupply:      supply,
		MaxIndividualCap: capAmount,
		StartTime:        params.StartTime,
		EndTime:          params.EndTime,
	}})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	project := result.(*launchpad.Project)
	snapshot, err := s.node.ProjectSnapshot(project.ID)
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, snapshot)
}

type updateProjectParams struct {
	Caller           string  `json:"caller"`
	ProjectID        uint64  `json:"projectId"`
	Name             *string `json:"name,omitempty"`
	TokenName        *string `json:"tokenName,omitempty"`
	TokenSymbol      *string `json:"tokenSymbol,omitempty"`
	TargetAmount     *string `json:"targetAmount,omitempty"`
	TokenSupply      *string `json:"tokenSupply,omitempty"`
	MaxIndividualCap *string `json:"maxIndividualCap,omitempty"`
	StartTime        *int64  `json:"startTime,omitempty"`
	EndTime          *int64  `json:"endTime,omitempty"`
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, req *RPCRequest) {
	var params updateProjectParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	update := launchpad.UpdateParams{
		Name:        params.Name,
		TokenName:   params.TokenName,
		TokenSymbol: params.TokenSymbol,
		StartTime:   params.StartTime,
		EndTime:     params.EndTime,
	}
	if params.TargetAmount != nil {
		amount, err := parseAmount(*params.TargetAmount)
		if err != nil {
			writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		update.TargetAmount = amount
	}
	if params.TokenSupply != nil {
		amount, err := parseAmount(*params.TokenSupply)
		if err != nil {
			writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		update.TokenSupply = amount
	}
	if params.MaxIndividualCap != nil {
		amount, err := parseAmount(*params.MaxIndividualCap)
		if err != nil {
			writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		update.MaxIndividualCap = amount
	}
	if _, err := s.node.Apply(core.UpdateProjectCmd{Caller: caller, ProjectID: params.ProjectID, Params: update}); err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	snapshot, err := s.node.ProjectSnapshot(params.ProjectID)
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, snapshot)
}

type investParams struct {
	Caller    string `json:"caller"`
	ProjectID uint64 `json:"projectId"`
	Amount    string `json:"amount"`
}

func (s *Server) handleInvest(w http.ResponseWriter, req *RPCRequest) {
	var params investParams
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
	if _, err := s.node.Apply(core.InvestCmd{Caller: caller, ProjectID: params.ProjectID, Amount: amount}); err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	observability.Core().Investments.Inc()
	snapshot, err := s.node.InvestmentSnapshot(params.ProjectID, caller)
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, snapshot)
}

type withdrawTokensParams struct {
	Caller    string `json:"caller"`
	ProjectID uint64 `json:"projectId"`
}

func (s *Server) handleWithdrawTokens(w http.ResponseWriter, req *RPCRequest) {
	var params withdrawTokensParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.Apply(core.WithdrawTokensCmd{Caller: caller, ProjectID: params.ProjectID})
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	settled := result.(core.WithdrawTokensResult)
	writeResult(w, req.ID, map[string]string{
		"tokens": settled.Tokens.String(),
		"refund": settled.Refund.String(),
	})
}

type projectIDParams struct {
	ProjectID uint64 `json:"projectId"`
}

func (s *Server) handleProjectGet(w http.ResponseWriter, req *RPCRequest) {
	var params projectIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	snapshot, err := s.node.ProjectSnapshot(params.ProjectID)
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, snapshot)
}

func (s *Server) handleProjectList(w http.ResponseWriter, req *RPCRequest) {
	writeResult(w, req.ID, s.node.ProjectSnapshots())
}

type investmentParams struct {
	ProjectID uint64 `json:"projectId"`
	Address   string `json:"address"`
}

func (s *Server) handleInvestmentGet(w http.ResponseWriter, req *RPCRequest) {
	var params investmentParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	snapshot, err := s.node.InvestmentSnapshot(params.ProjectID, addr)
	if err != nil {
		s.writeCommandError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, snapshot)
}
