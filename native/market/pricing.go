package market

import (
	"math"
	"math/big"

	"omenchain/native/fees"
)

// PriceScale is the fixed-point denominator for displayed prices: six decimal
// digits, integer-only.
const PriceScale = 1_000_000

// Pricer implements the constant-product buy/sell/quote math. All divisions
// floor, so rounding error always favours the pool; the invariant product is
// never inflated by a trade.
type Pricer struct {
	fees *fees.Calculator
}

// NewPricer builds a pricer charging the supplied fee schedule. A nil
// calculator falls back to the protocol default.
func NewPricer(calc *fees.Calculator) *Pricer {
	if calc == nil {
		calc = fees.NewDefaultCalculator()
	}
	return &Pricer{fees: calc}
}

// Fees exposes the fee schedule the pricer charges.
func (p *Pricer) Fees() *fees.Calculator { return p.fees }

// BuyQuote is the computed effect of a buy before it is committed.
type BuyQuote struct {
	Fee    *big.Int
	Net    *big.Int
	Shares *big.Int
	NewYes *big.Int
	NewNo  *big.Int
}

// Buy prices a purchase of outcome shares against the (yes, no) reserves.
// The net-of-fee amount joins the opposite pool and the bought side shrinks
// to hold k = yes*no; shares out is the side's reserve delta, clamped at
// zero. A buy that would floor a reserve to zero is rejected.
func (p *Pricer) Buy(yes, no *big.Int, side Side, amount *big.Int) (*BuyQuote, error) {
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	if yes == nil || no == nil || yes.Sign() <= 0 || no.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	fee := p.fees.Fee(amount)
	net := new(big.Int).Sub(amount, fee)
	if net.Sign() < 0 {
		net.SetInt64(0)
	}
	k := new(big.Int).Mul(yes, no)

	grow, shrink := no, yes
	if side == SideNo {
		grow, shrink = yes, no
	}
	newGrow := new(big.Int).Add(grow, net)
	newShrink := new(big.Int).Quo(k, newGrow)
	if newShrink.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	shares := new(big.Int).Sub(shrink, newShrink)
	if shares.Sign() < 0 {
		shares.SetInt64(0)
	}
	quote := &BuyQuote{Fee: fee, Net: net, Shares: shares}
	if side == SideYes {
		quote.NewYes, quote.NewNo = newShrink, newGrow
	} else {
		quote.NewYes, quote.NewNo = newGrow, newShrink
	}
	return quote, nil
}

// SellQuote is the computed effect of a sale before it is committed.
type SellQuote struct {
	Gross  *big.Int
	Fee    *big.Int
	Payout *big.Int
	NewYes *big.Int
	NewNo  *big.Int
}

// Sell prices the inverse trade: shares return to their pool and the opposite
// reserve shrinks to hold k, releasing the gross amount. The protocol fee
// comes out of the gross payout. A sale that would floor the opposite reserve
// to zero is rejected.
func (p *Pricer) Sell(yes, no *big.Int, side Side, shares *big.Int) (*SellQuote, error) {
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	if yes == nil || no == nil || yes.Sign() <= 0 || no.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if shares == nil || shares.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	k := new(big.Int).Mul(yes, no)

	grow, shrink := yes, no
	if side == SideNo {
		grow, shrink = no, yes
	}
	newGrow := new(big.Int).Add(grow, shares)
	newShrink := new(big.Int).Quo(k, newGrow)
	if newShrink.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	gross := new(big.Int).Sub(shrink, newShrink)
	if gross.Sign() < 0 {
		gross.SetInt64(0)
	}
	fee := p.fees.Fee(gross)
	payout := new(big.Int).Sub(gross, fee)
	if payout.Sign() < 0 {
		payout.SetInt64(0)
	}
	quote := &SellQuote{Gross: gross, Fee: fee, Payout: payout}
	if side == SideYes {
		quote.NewYes, quote.NewNo = newGrow, newShrink
	} else {
		quote.NewYes, quote.NewNo = newShrink, newGrow
	}
	return quote, nil
}

// Prices returns the current (yesPrice, noPrice) as PriceScale fixed-point
// ratios. An empty pool quotes an even 0.5/0.5.
func Prices(yes, no *big.Int) (uint64, uint64) {
	if yes == nil {
		yes = big.NewInt(0)
	}
	if no == nil {
		no = big.NewInt(0)
	}
	total := new(big.Int).Add(yes, no)
	if total.Sign() == 0 {
		return PriceScale / 2, PriceScale / 2
	}
	yesPrice := new(big.Int).Mul(no, big.NewInt(PriceScale))
	yesPrice.Quo(yesPrice, total)
	return yesPrice.Uint64(), PriceScale - yesPrice.Uint64()
}

// Slippage simulates the net-of-fee buy and reports how far the effective
// per-share price exceeds the spot price, in PriceScale units. Never
// negative. A degenerate trade that yields zero shares has no executed price
// and reports zero slippage.
func (p *Pricer) Slippage(yes, no *big.Int, side Side, amount *big.Int) (uint64, error) {
	quote, err := p.Buy(yes, no, side, amount)
	if err != nil {
		return 0, err
	}
	if quote.Shares.Sign() == 0 {
		return 0, nil
	}
	effective := new(big.Int).Mul(quote.Net, big.NewInt(PriceScale))
	effective.Quo(effective, quote.Shares)
	yesPrice, noPrice := Prices(yes, no)
	spot := yesPrice
	if side == SideNo {
		spot = noPrice
	}
	eff := uint64(math.MaxUint64)
	if effective.IsUint64() {
		eff = effective.Uint64()
	}
	if eff <= spot {
		return 0, nil
	}
	return eff - spot, nil
}
