package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"omenchain/core/types"
)

const (
	EventTypeBetPlaced       = "market.bet"
	EventTypeSharesSold      = "market.sell"
	EventTypeMarketResolved  = "market.resolved"
	EventTypeWinningsClaimed = "market.claimed"
	EventTypeFeesWithdrawn   = "market.fees_withdrawn"
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

// BetPlaced is emitted when a buy commits.
type BetPlaced struct {
	User   types.Address
	Side   Side
	Amount *big.Int
	Fee    *big.Int
	Shares *big.Int
	Time   int64
}

func (BetPlaced) EventType() string { return EventTypeBetPlaced }

func (e BetPlaced) Event() *types.Event {
	return &types.Event{Type: EventTypeBetPlaced, Attributes: map[string]string{
		"user":   attrAddress(e.User),
		"side":   e.Side.String(),
		"amount": attrAmount(e.Amount),
		"fee":    attrAmount(e.Fee),
		"shares": attrAmount(e.Shares),
		"time":   strconv.FormatInt(e.Time, 10),
	}}
}

// SharesSold is emitted when a sell commits.
type SharesSold struct {
	User   types.Address
	Side   Side
	Shares *big.Int
	Payout *big.Int
	Fee    *big.Int
	Time   int64
}

func (SharesSold) EventType() string { return EventTypeSharesSold }

func (e SharesSold) Event() *types.Event {
	return &types.Event{Type: EventTypeSharesSold, Attributes: map[string]string{
		"user":   attrAddress(e.User),
		"side":   e.Side.String(),
		"shares": attrAmount(e.Shares),
		"payout": attrAmount(e.Payout),
		"fee":    attrAmount(e.Fee),
		"time":   strconv.FormatInt(e.Time, 10),
	}}
}

// MarketResolved is emitted exactly once, when the admin fixes the outcome.
type MarketResolved struct {
	Outcome bool
	Time    int64
}

func (MarketResolved) EventType() string { return EventTypeMarketResolved }

func (e MarketResolved) Event() *types.Event {
	outcome := "no"
	if e.Outcome {
		outcome = "yes"
	}
	return &types.Event{Type: EventTypeMarketResolved, Attributes: map[string]string{
		"outcome": outcome,
		"time":    strconv.FormatInt(e.Time, 10),
	}}
}

// WinningsClaimed is emitted when a position redeems its winning shares.
type WinningsClaimed struct {
	User   types.Address
	Payout *big.Int
	Time   int64
}

func (WinningsClaimed) EventType() string { return EventTypeWinningsClaimed }

func (e WinningsClaimed) Event() *types.Event {
	return &types.Event{Type: EventTypeWinningsClaimed, Attributes: map[string]string{
		"user":   attrAddress(e.User),
		"payout": attrAmount(e.Payout),
		"time":   strconv.FormatInt(e.Time, 10),
	}}
}

// FeesWithdrawn is emitted when the admin sweeps collected protocol fees.
type FeesWithdrawn struct {
	Admin  types.Address
	Amount *big.Int
	Time   int64
}

func (FeesWithdrawn) EventType() string { return EventTypeFeesWithdrawn }

func (e FeesWithdrawn) Event() *types.Event {
	return &types.Event{Type: EventTypeFeesWithdrawn, Attributes: map[string]string{
		"admin":  attrAddress(e.Admin),
		"amount": attrAmount(e.Amount),
		"time":   strconv.FormatInt(e.Time, 10),
	}}
}
