package launchpad

import "math/big"

// Allocate computes the pro-rata token allocation and refund for a single
// investor. Pure and referentially transparent: two calls with identical
// inputs return identical outputs, which is what lets per-user allocations
// stay derived rather than stored.
//
// Under- or exactly-subscribed rounds price tokens against the target;
// over-subscribed rounds price against the raised total and refund the
// unused portion of the stake. All divisions floor, so the sum of
// allocations never exceeds the supply and per-user rounding dust (bounded
// by the investor count) is retained by the protocol.
func Allocate(invested, totalRaised, targetAmount, tokenSupply *big.Int) (tokens, refund *big.Int) {
	tokens = big.NewInt(0)
	refund = big.NewInt(0)
	if invested == nil || invested.Sign() <= 0 {
		return tokens, refund
	}
	if targetAmount == nil || targetAmount.Sign() <= 0 || tokenSupply == nil || totalRaised == nil {
		return tokens, refund
	}
	if totalRaised.Cmp(targetAmount) <= 0 {
		tokens.Mul(invested, tokenSupply)
		tokens.Quo(tokens, targetAmount)
		return tokens, refund
	}
	tokens.Mul(invested, tokenSupply)
	tokens.Quo(tokens, totalRaised)

	kept := new(big.Int).Mul(invested, targetAmount)
	kept.Quo(kept, totalRaised)
	refund.Sub(invested, kept)
	return tokens, refund
}
