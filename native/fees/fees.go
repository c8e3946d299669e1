package fees

import (
	"fmt"
	"math/big"
)

// Default protocol fee: 100 basis points (1%) out of a 10,000 denominator.
const (
	DefaultRateBps     = 100
	DefaultDenominator = 10_000
)

// Calculator computes the protocol fee for a gross amount. The rate is
// injected at construction so deployments and tests can vary it without
// touching shared state.
type Calculator struct {
	rateBps     uint64
	denominator uint64
}

// NewCalculator builds a calculator for the supplied rate. The rate may not
// exceed the denominator (a fee above 100% would make every trade negative).
func NewCalculator(rateBps, denominator uint64) (*Calculator, error) {
	if denominator == 0 {
		return nil, fmt.Errorf("fees: denominator must be positive")
	}
	if rateBps > denominator {
		return nil, fmt.Errorf("fees: rate %d exceeds denominator %d", rateBps, denominator)
	}
	return &Calculator{rateBps: rateBps, denominator: denominator}, nil
}

// NewDefaultCalculator returns the fixed 1% protocol calculator.
func NewDefaultCalculator() *Calculator {
	return &Calculator{rateBps: DefaultRateBps, denominator: DefaultDenominator}
}

// RateBps reports the configured rate in basis points.
func (c *Calculator) RateBps() uint64 { return c.rateBps }

// Fee returns ceil(amount*rate/denominator). Ceiling division guarantees the
// protocol never under-collects; a zero amount yields a zero fee and callers
// must treat that as a no-op rather than an error.
func (c *Calculator) Fee(amount *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(amount, new(big.Int).SetUint64(c.rateBps))
	numerator.Add(numerator, new(big.Int).SetUint64(c.denominator-1))
	return numerator.Div(numerator, new(big.Int).SetUint64(c.denominator))
}

// Net returns amount minus the protocol fee, clamped at zero.
func (c *Calculator) Net(amount *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	net := new(big.Int).Sub(amount, c.Fee(amount))
	if net.Sign() < 0 {
		return big.NewInt(0)
	}
	return net
}
