package launchpad

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"omenchain/core/types"
)

const (
	EventTypeProjectCreated  = "launchpad.project.created"
	EventTypeProjectUpdated  = "launchpad.project.updated"
	EventTypeProjectPhase    = "launchpad.project.phase"
	EventTypeInvestmentMade  = "launchpad.invested"
	EventTypeTokensWithdrawn = "launchpad.withdrawn"
)

func attrAddress(addr types.Address) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func attrAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// ProjectCreated is emitted when the admin registers a new round.
type ProjectCreated struct {
	Project *Project
}

func (ProjectCreated) EventType() string { return EventTypeProjectCreated }

func (e ProjectCreated) Event() *types.Event {
	p := e.Project
	return &types.Event{Type: EventTypeProjectCreated, Attributes: map[string]string{
		"projectId":   strconv.FormatUint(p.ID, 10),
		"name":        p.Name,
		"tokenSymbol": p.TokenSymbol,
		"target":      attrAmount(p.TargetAmount),
		"supply":      attrAmount(p.TokenSupply),
		"cap":         attrAmount(p.MaxIndividualCap),
		"start":       strconv.FormatInt(p.StartTime, 10),
		"end":         strconv.FormatInt(p.EndTime, 10),
	}}
}

// ProjectUpdated is emitted after a pre-start parameter edit.
type ProjectUpdated struct {
	Project *Project
	Time    int64
}

func (ProjectUpdated) EventType() string { return EventTypeProjectUpdated }

func (e ProjectUpdated) Event() *types.Event {
	return &types.Event{Type: EventTypeProjectUpdated, Attributes: map[string]string{
		"projectId": strconv.FormatUint(e.Project.ID, 10),
		"time":      strconv.FormatInt(e.Time, 10),
	}}
}

// ProjectPhaseChanged is emitted when a tick advances the lifecycle.
type ProjectPhaseChanged struct {
	ProjectID uint64
	Phase     string
	Time      int64
}

func (ProjectPhaseChanged) EventType() string { return EventTypeProjectPhase }

func (e ProjectPhaseChanged) Event() *types.Event {
	return &types.Event{Type: EventTypeProjectPhase, Attributes: map[string]string{
		"projectId": strconv.FormatUint(e.ProjectID, 10),
		"phase":     e.Phase,
		"time":      strconv.FormatInt(e.Time, 10),
	}}
}

// InvestmentMade is emitted when an investment commits.
type InvestmentMade struct {
	User      types.Address
	ProjectID uint64
	Amount    *big.Int
	Total     *big.Int
	Time      int64
}

func (InvestmentMade) EventType() string { return EventTypeInvestmentMade }

func (e InvestmentMade) Event() *types.Event {
	return &types.Event{Type: EventTypeInvestmentMade, Attributes: map[string]string{
		"user":      attrAddress(e.User),
		"projectId": strconv.FormatUint(e.ProjectID, 10),
		"amount":    attrAmount(e.Amount),
		"total":     attrAmount(e.Total),
		"time":      strconv.FormatInt(e.Time, 10),
	}}
}

// TokensWithdrawn is emitted when an investor settles an ended round.
type TokensWithdrawn struct {
	User      types.Address
	ProjectID uint64
	Tokens    *big.Int
	Refund    *big.Int
	Time      int64
}

func (TokensWithdrawn) EventType() string { return EventTypeTokensWithdrawn }

func (e TokensWithdrawn) Event() *types.Event {
	return &types.Event{Type: EventTypeTokensWithdrawn, Attributes: map[string]string{
		"user":      attrAddress(e.User),
		"projectId": strconv.FormatUint(e.ProjectID, 10),
		"tokens":    attrAmount(e.Tokens),
		"refund":    attrAmount(e.Refund),
		"time":      strconv.FormatInt(e.Time, 10),
	}}
}
