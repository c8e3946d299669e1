package core

import (
	"math/big"

	"omenchain/core/types"
	"omenchain/native/launchpad"
	"omenchain/native/market"
)

// Read projections. Every snapshot is recomputed from committed state, so a
// query answered before a withdrawal reports exactly what the withdrawal
// will later pay: allocations are derived, never stored.

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// MarketSnapshot is the public view of the prediction market.
type MarketSnapshot struct {
	Title              string `json:"title"`
	YesLiquidity       string `json:"yesLiquidity"`
	NoLiquidity        string `json:"noLiquidity"`
	YesPrice           uint64 `json:"yesPrice"`
	NoPrice            uint64 `json:"noPrice"`
	Resolved           bool   `json:"resolved"`
	Outcome            *bool  `json:"outcome,omitempty"`
	TotalVolume        string `json:"totalVolume"`
	TotalFeesCollected string `json:"totalFeesCollected"`
	Phase              string `json:"phase"`
	StartTime          int64  `json:"startTime"`
	EndTime            int64  `json:"endTime"`
}

// MarketSnapshot renders the market at the current logical time. Prices use
// the six-decimal fixed-point scale.
func (n *Node) MarketSnapshot() (*MarketSnapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.state.MarketGet()
	if !ok {
		return nil, market.ErrMarketNotFound
	}
	now := int64(n.state.Counter())
	yesPrice, noPrice := market.Prices(m.YesLiquidity, m.NoLiquidity)
	snapshot := &MarketSnapshot{
		Title:              m.Title,
		YesLiquidity:       amountString(m.YesLiquidity),
		NoLiquidity:        amountString(m.NoLiquidity),
		YesPrice:           yesPrice,
		NoPrice:            noPrice,
		Resolved:           m.Resolved,
		TotalVolume:        amountString(m.TotalVolume),
		TotalFeesCollected: amountString(m.TotalFeesCollected),
		Phase:              m.Phase(now).String(),
		StartTime:          m.StartTime,
		EndTime:            m.EndTime,
	}
	if m.Resolved {
		outcome := m.Outcome
		snapshot.Outcome = &outcome
	}
	return snapshot, nil
}

// PositionSnapshot is the public view of one player's market stake.
type PositionSnapshot struct {
	Balance   string `json:"balance"`
	YesShares string `json:"yesShares"`
	NoShares  string `json:"noShares"`
	Claimed   bool   `json:"claimed"`
	Claimable string `json:"claimable"`
}

// PositionSnapshot renders a player's balance and shares. Claimable reports
// what a claim would pay right now; it stays zero until resolution.
func (n *Node) PositionSnapshot(addr types.Address) (*PositionSnapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.state.HasAccount(addr) {
		return nil, ErrPlayerNotFound
	}
	account, err := n.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	account = types.EnsureAccount(account)
	pos, _ := n.state.PositionGet(addr)
	if pos == nil {
		pos = &market.Position{YesShares: big.NewInt(0), NoShares: big.NewInt(0)}
	}
	claimable := big.NewInt(0)
	if m, ok := n.state.MarketGet(); ok && m.Resolved && !pos.Claimed {
		if m.Outcome {
			claimable = pos.YesShares
		} else {
			claimable = pos.NoShares
		}
	}
	return &PositionSnapshot{
		Balance:   amountString(account.Balance),
		YesShares: amountString(pos.YesShares),
		NoShares:  amountString(pos.NoShares),
		Claimed:   pos.Claimed,
		Claimable: amountString(claimable),
	}, nil
}

// ProjectSnapshot is the public view of one launchpad round.
type ProjectSnapshot struct {
	ID               uint64 `json:"id"`
	Name             string `json:"name"`
	TokenName        string `json:"tokenName"`
	TokenSymbol      string `json:"tokenSymbol"`
	TargetAmount     string `json:"targetAmount"`
	TokenSupply      string `json:"tokenSupply"`
	MaxIndividualCap string `json:"maxIndividualCap"`
	StartTime        int64  `json:"startTime"`
	EndTime          int64  `json:"endTime"`
	TotalRaised      string `json:"totalRaised"`
	InvestorCount    uint64 `json:"investorCount"`
	Phase            string `json:"phase"`
	Oversubscribed   bool   `json:"oversubscribed"`
	CreatedAt        int64  `json:"createdAt"`
}

func (n *Node) projectSnapshot(p *launchpad.Project, now int64) *ProjectSnapshot {
	return &ProjectSnapshot{
		ID:               p.ID,
		Name:             p.Name,
		TokenName:        p.TokenName,
		TokenSymbol:      p.TokenSymbol,
		TargetAmount:     amountString(p.TargetAmount),
		TokenSupply:      amountString(p.TokenSupply),
		MaxIndividualCap: amountString(p.MaxIndividualCap),
		StartTime:        p.StartTime,
		EndTime:          p.EndTime,
		TotalRaised:      amountString(p.TotalRaised),
		InvestorCount:    p.InvestorCount,
		Phase:            p.PhaseAt(now).String(),
		Oversubscribed:   p.TotalRaised != nil && p.TargetAmount != nil && p.TotalRaised.Cmp(p.TargetAmount) > 0,
		CreatedAt:        p.CreatedAt,
	}
}

// ProjectSnapshot renders one round by id.
func (n *Node) ProjectSnapshot(id uint64) (*ProjectSnapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.state.ProjectGet(id)
	if !ok {
		return nil, launchpad.ErrProjectNotFound
	}
	return n.projectSnapshot(p, int64(n.state.Counter())), nil
}

// ProjectSnapshots renders every round in creation order.
func (n *Node) ProjectSnapshots() []*ProjectSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := int64(n.state.Counter())
	count := n.state.ProjectCount()
	out := make([]*ProjectSnapshot, 0, count)
	for id := uint64(1); id <= count; id++ {
		if p, ok := n.state.ProjectGet(id); ok {
			out = append(out, n.projectSnapshot(p, now))
		}
	}
	return out
}

// InvestmentSnapshot is the public view of one stake in one round, with the
// allocation the investor would receive, derived on the fly.
type InvestmentSnapshot struct {
	ProjectID       uint64 `json:"projectId"`
	Invested        string `json:"invested"`
	TokensWithdrawn bool   `json:"tokensWithdrawn"`
	RefundWithdrawn bool   `json:"refundWithdrawn"`
	InvestedAt      int64  `json:"investedAt"`
	ClaimableTokens string `json:"claimableTokens"`
	ClaimableRefund string `json:"claimableRefund"`
}

// InvestmentSnapshot renders a stake. The claimable amounts come from the
// same pure allocation the withdrawal will use, so repeated queries agree
// with each other and with the eventual payout.
func (n *Node) InvestmentSnapshot(projectID uint64, addr types.Address) (*InvestmentSnapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.state.ProjectGet(projectID)
	if !ok {
		return nil, launchpad.ErrProjectNotFound
	}
	inv, ok := n.state.InvestmentGet(projectID, addr)
	if !ok {
		return nil, launchpad.ErrNoInvestment
	}
	tokens, refund := big.NewInt(0), big.NewInt(0)
	if !inv.TokensWithdrawn {
		tokens, refund = launchpad.Allocate(inv.Amount, p.TotalRaised, p.TargetAmount, p.TokenSupply)
	}
	return &InvestmentSnapshot{
		ProjectID:       projectID,
		Invested:        amountString(inv.Amount),
		TokensWithdrawn: inv.TokensWithdrawn,
		RefundWithdrawn: inv.RefundWithdrawn,
		InvestedAt:      inv.InvestedAt,
		ClaimableTokens: amountString(tokens),
		ClaimableRefund: amountString(refund),
	}, nil
}

// StatsSnapshot aggregates platform counters for dashboards.
type StatsSnapshot struct {
	Counter            uint64 `json:"counter"`
	Players            uint64 `json:"players"`
	Projects           uint64 `json:"projects"`
	TotalVolume        string `json:"totalVolume"`
	TotalFeesCollected string `json:"totalFeesCollected"`
	TotalRaised        string `json:"totalRaised"`
	PendingSettlements int    `json:"pendingSettlements"`
}

// Stats renders the aggregate platform statistics.
func (n *Node) Stats() *StatsSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	stats := &StatsSnapshot{
		Counter:  n.state.Counter(),
		Players:  n.state.PlayerCount(),
		Projects: n.state.ProjectCount(),
	}
	volume, feesCollected := big.NewInt(0), big.NewInt(0)
	if m, ok := n.state.MarketGet(); ok {
		if m.TotalVolume != nil {
			volume = m.TotalVolume
		}
		if m.TotalFeesCollected != nil {
			feesCollected = m.TotalFeesCollected
		}
	}
	raised := big.NewInt(0)
	for id := uint64(1); id <= stats.Projects; id++ {
		if p, ok := n.state.ProjectGet(id); ok && p.TotalRaised != nil {
			raised.Add(raised, p.TotalRaised)
		}
	}
	stats.TotalVolume = amountString(volume)
	stats.TotalFeesCollected = amountString(feesCollected)
	stats.TotalRaised = amountString(raised)
	stats.PendingSettlements = len(n.state.SettlementsPending())
	return stats
}

// QuoteSnapshot prices a hypothetical buy without committing it.
type QuoteSnapshot struct {
	Side     string `json:"side"`
	Amount   string `json:"amount"`
	Fee      string `json:"fee"`
	Shares   string `json:"shares"`
	Slippage uint64 `json:"slippage"`
}

// QuoteBuy simulates a buy against current reserves, including slippage in
// six-decimal fixed point. Purely read-only.
func (n *Node) QuoteBuy(side market.Side, amount *big.Int) (*QuoteSnapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.state.MarketGet()
	if !ok {
		return nil, market.ErrMarketNotFound
	}
	quote, err := n.market.Pricer().Buy(m.YesLiquidity, m.NoLiquidity, side, amount)
	if err != nil {
		return nil, err
	}
	slippage, err := n.market.Pricer().Slippage(m.YesLiquidity, m.NoLiquidity, side, amount)
	if err != nil {
		return nil, err
	}
	return &QuoteSnapshot{
		Side:     side.String(),
		Amount:   amountString(amount),
		Fee:      amountString(quote.Fee),
		Shares:   amountString(quote.Shares),
		Slippage: slippage,
	}, nil
}
