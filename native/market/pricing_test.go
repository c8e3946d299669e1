package market

import (
	"math/big"
	"testing"

	"omenchain/native/fees"
)

func TestBuyQuoteAgainstBalancedPool(t *testing.T) {
	pricer := NewPricer(fees.NewDefaultCalculator())
	yes := big.NewInt(100_000)
	no := big.NewInt(100_000)
	quote, err := pricer.Buy(yes, no, SideYes, big.NewInt(1000))
	if err != nil {
		t.Fatalf("buy quote: %v", err)
	}
	if got := quote.Fee.Int64(); got != 10 {
		t.Fatalf("fee: got %d want 10", got)
	}
	if got := quote.Net.Int64(); got != 990 {
		t.Fatalf("net: got %d want 990", got)
	}
	if got := quote.NewNo.Int64(); got != 100_990 {
		t.Fatalf("new no reserve: got %d want 100990", got)
	}
	if got := quote.NewYes.Int64(); got != 99_019 {
		t.Fatalf("new yes reserve: got %d want 99019", got)
	}
	if got := quote.Shares.Int64(); got != 981 {
		t.Fatalf("shares: got %d want 981", got)
	}
}

func TestBuyNeverInflatesInvariant(t *testing.T) {
	pricer := NewPricer(nil)
	yes := big.NewInt(100_000)
	no := big.NewInt(250_000)
	k := new(big.Int).Mul(yes, no)
	for amount := int64(1); amount <= 50_000; amount += 997 {
		for _, side := range []Side{SideYes, SideNo} {
			quote, err := pricer.Buy(yes, no, side, big.NewInt(amount))
			if err != nil {
				t.Fatalf("buy %d %s: %v", amount, side, err)
			}
			after := new(big.Int).Mul(quote.NewYes, quote.NewNo)
			if after.Cmp(k) > 0 {
				t.Fatalf("buy %d %s inflated k: %s > %s", amount, side, after, k)
			}
		}
	}
}

func TestSellNeverInflatesInvariant(t *testing.T) {
	pricer := NewPricer(nil)
	yes := big.NewInt(80_000)
	no := big.NewInt(120_000)
	k := new(big.Int).Mul(yes, no)
	for shares := int64(1); shares <= 40_000; shares += 613 {
		for _, side := range []Side{SideYes, SideNo} {
			quote, err := pricer.Sell(yes, no, side, big.NewInt(shares))
			if err != nil {
				t.Fatalf("sell %d %s: %v", shares, side, err)
			}
			after := new(big.Int).Mul(quote.NewYes, quote.NewNo)
			if after.Cmp(k) > 0 {
				t.Fatalf("sell %d %s inflated k: %s > %s", shares, side, after, k)
			}
			if quote.Payout.Sign() < 0 {
				t.Fatalf("sell %d %s negative payout", shares, side)
			}
		}
	}
}

func TestBuyRejectsDrainedReserve(t *testing.T) {
	pricer := NewPricer(nil)
	_, err := pricer.Buy(big.NewInt(1), big.NewInt(1), SideYes, big.NewInt(10_000))
	if err != ErrInsufficientLiquidity {
		t.Fatalf("got %v want ErrInsufficientLiquidity", err)
	}
}

func TestBuyValidatesInputs(t *testing.T) {
	pricer := NewPricer(nil)
	if _, err := pricer.Buy(big.NewInt(10), big.NewInt(10), Side(0x7f), big.NewInt(1)); err != ErrInvalidSide {
		t.Fatalf("bad side: got %v", err)
	}
	if _, err := pricer.Buy(big.NewInt(10), big.NewInt(10), SideYes, big.NewInt(-1)); err != ErrInvalidAmount {
		t.Fatalf("negative amount: got %v", err)
	}
	if _, err := pricer.Buy(big.NewInt(0), big.NewInt(10), SideYes, big.NewInt(1)); err != ErrInsufficientLiquidity {
		t.Fatalf("empty reserve: got %v", err)
	}
}

func TestPricesSumToScale(t *testing.T) {
	cases := []struct {
		yes, no int64
		wantYes uint64
		wantNo  uint64
	}{
		{100_000, 100_000, 500_000, 500_000},
		{99_019, 100_990, 504_927, 495_073},
		{1, 3, 750_000, 250_000},
		{0, 0, 500_000, 500_000},
	}
	for _, tc := range cases {
		yesPrice, noPrice := Prices(big.NewInt(tc.yes), big.NewInt(tc.no))
		if yesPrice != tc.wantYes || noPrice != tc.wantNo {
			t.Fatalf("prices(%d, %d): got %d/%d want %d/%d", tc.yes, tc.no, yesPrice, noPrice, tc.wantYes, tc.wantNo)
		}
		if yesPrice+noPrice != PriceScale {
			t.Fatalf("prices(%d, %d) do not sum to scale", tc.yes, tc.no)
		}
	}
}

func TestSlippageGrowsWithSize(t *testing.T) {
	pricer := NewPricer(nil)
	yes := big.NewInt(1_000_000)
	no := big.NewInt(1_000_000)
	small, err := pricer.Slippage(yes, no, SideYes, big.NewInt(1_000))
	if err != nil {
		t.Fatalf("small slippage: %v", err)
	}
	large, err := pricer.Slippage(yes, no, SideYes, big.NewInt(500_000))
	if err != nil {
		t.Fatalf("large slippage: %v", err)
	}
	if large <= small {
		t.Fatalf("slippage did not grow: small=%d large=%d", small, large)
	}
}

func TestSlippageZeroShareTrade(t *testing.T) {
	pricer := NewPricer(nil)
	slippage, err := pricer.Slippage(big.NewInt(100_000), big.NewInt(100_000), SideYes, big.NewInt(0))
	if err != nil {
		t.Fatalf("zero-amount slippage: %v", err)
	}
	if slippage != 0 {
		t.Fatalf("zero-share trade reported slippage %d", slippage)
	}
}

func TestBuyThenSellRoundTripLosesValue(t *testing.T) {
	pricer := NewPricer(fees.NewDefaultCalculator())
	yes := big.NewInt(100_000)
	no := big.NewInt(100_000)
	buy, err := pricer.Buy(yes, no, SideYes, big.NewInt(5_000))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	sell, err := pricer.Sell(buy.NewYes, buy.NewNo, SideYes, buy.Shares)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if sell.Payout.Cmp(big.NewInt(5_000)) >= 0 {
		t.Fatalf("round trip did not lose value: payout %s", sell.Payout)
	}
}
