package launchpad

import (
	"math/big"

	"omenchain/core/types"
	"omenchain/native/common"
)

// Project is an IDO fundraising round. TotalRaised only grows while the
// project is active and freezes permanently once the window closes; every
// allocation afterwards is derived from the frozen value.
type Project struct {
	ID               uint64
	Name             string
	TokenName        string
	TokenSymbol      string
	TargetAmount     *big.Int
	TokenSupply      *big.Int
	MaxIndividualCap *big.Int
	StartTime        int64
	EndTime          int64
	TotalRaised      *big.Int
	InvestorCount    uint64
	Phase            common.Phase
	Admin            types.Address
	CreatedAt        int64
}

// PhaseAt evaluates the effective phase at the given time. Gates use it so a
// project is treated as active or ended the moment the threshold passes,
// whether or not a tick has persisted the transition yet.
func (p *Project) PhaseAt(now int64) common.Phase {
	return common.Next(p.Phase, now, p.StartTime, p.EndTime)
}

// Clone returns a deep copy so engine callers cannot alias stored amounts.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TargetAmount != nil {
		clone.TargetAmount = new(big.Int).Set(p.TargetAmount)
	}
	if p.TokenSupply != nil {
		clone.TokenSupply = new(big.Int).Set(p.TokenSupply)
	}
	if p.MaxIndividualCap != nil {
		clone.MaxIndividualCap = new(big.Int).Set(p.MaxIndividualCap)
	}
	if p.TotalRaised != nil {
		clone.TotalRaised = new(big.Int).Set(p.TotalRaised)
	}
	return &clone
}

// Investment is the cumulative stake of one user in one project. Allocation
// and refund amounts are never stored here; they are recomputed from the
// project's frozen totals at withdrawal time.
type Investment struct {
	User            types.Address
	ProjectID       uint64
	Amount          *big.Int
	TokensWithdrawn bool
	RefundWithdrawn bool
	InvestedAt      int64
}

// Clone returns a deep copy of the investment.
func (i *Investment) Clone() *Investment {
	if i == nil {
		return nil
	}
	clone := *i
	if i.Amount != nil {
		clone.Amount = new(big.Int).Set(i.Amount)
	}
	return &clone
}

func ensureInvestment(inv *Investment, user types.Address, projectID uint64) *Investment {
	if inv == nil {
		return &Investment{User: user, ProjectID: projectID, Amount: big.NewInt(0)}
	}
	if inv.Amount == nil {
		inv.Amount = big.NewInt(0)
	}
	return inv
}
