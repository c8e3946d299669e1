package market

import (
	"math/big"

	"omenchain/native/common"
)

// Side selects which outcome pool a trade touches.
type Side byte

const (
	SideYes Side = 0x01
	SideNo  Side = 0x02
)

// String renders the side for events and query responses.
func (s Side) String() string {
	switch s {
	case SideYes:
		return "yes"
	case SideNo:
		return "no"
	default:
		return "invalid"
	}
}

// Valid reports whether the side is YES or NO.
func (s Side) Valid() bool { return s == SideYes || s == SideNo }

// Market holds the liquidity pools and resolution state of the binary
// prediction market. The product YesLiquidity*NoLiquidity is held constant
// across trades except for the net fee-adjusted amount added to one side.
// Both reserves stay strictly positive once seeded.
type Market struct {
	Title              string
	YesLiquidity       *big.Int
	NoLiquidity        *big.Int
	Resolved           bool
	Outcome            bool // winning side is YES when true; meaningful only once Resolved
	TotalVolume        *big.Int
	TotalFeesCollected *big.Int
	StartTime          int64
	EndTime            int64
}

// Phase reports the trading-window phase at the given time. Resolution
// supersedes the window: a resolved market never trades again.
func (m *Market) Phase(now int64) common.Phase {
	if m.Resolved {
		return common.PhaseEnded
	}
	return common.At(now, m.StartTime, m.EndTime)
}

// Clone returns a deep copy so engine callers cannot alias stored reserves.
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	clone := *m
	if m.YesLiquidity != nil {
		clone.YesLiquidity = new(big.Int).Set(m.YesLiquidity)
	}
	if m.NoLiquidity != nil {
		clone.NoLiquidity = new(big.Int).Set(m.NoLiquidity)
	}
	if m.TotalVolume != nil {
		clone.TotalVolume = new(big.Int).Set(m.TotalVolume)
	}
	if m.TotalFeesCollected != nil {
		clone.TotalFeesCollected = new(big.Int).Set(m.TotalFeesCollected)
	}
	return &clone
}

// Position tracks one user's share holdings in the market. Shares only grow
// via buys and only shrink via sells; Claimed flips false->true exactly once.
type Position struct {
	YesShares *big.Int
	NoShares  *big.Int
	Claimed   bool
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	if p.YesShares != nil {
		clone.YesShares = new(big.Int).Set(p.YesShares)
	}
	if p.NoShares != nil {
		clone.NoShares = new(big.Int).Set(p.NoShares)
	}
	return &clone
}

func ensurePosition(p *Position) *Position {
	if p == nil {
		return &Position{YesShares: big.NewInt(0), NoShares: big.NewInt(0)}
	}
	if p.YesShares == nil {
		p.YesShares = big.NewInt(0)
	}
	if p.NoShares == nil {
		p.NoShares = big.NewInt(0)
	}
	return p
}
