package market

import (
	"errors"
	"math/big"
	"testing"

	"omenchain/core/events"
	"omenchain/core/types"
	"omenchain/native/fees"
)

type mockState struct {
	market    *Market
	positions map[types.Address]*Position
	accounts  map[types.Address]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		positions: make(map[types.Address]*Position),
		accounts:  make(map[types.Address]*types.Account),
	}
}

func (m *mockState) MarketGet() (*Market, bool) {
	if m.market == nil {
		return nil, false
	}
	return m.market.Clone(), true
}

func (m *mockState) MarketPut(mk *Market) error {
	m.market = mk.Clone()
	return nil
}

func (m *mockState) PositionGet(addr types.Address) (*Position, bool) {
	pos, ok := m.positions[addr]
	if !ok {
		return nil, false
	}
	return pos.Clone(), true
}

func (m *mockState) PositionPut(addr types.Address, pos *Position) error {
	m.positions[addr] = pos.Clone()
	return nil
}

func (m *mockState) GetAccount(addr types.Address) (*types.Account, error) {
	if account, ok := m.accounts[addr]; ok {
		return account.Clone(), nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

func (m *mockState) PutAccount(addr types.Address, account *types.Account) error {
	m.accounts[addr] = account.Clone()
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(ev events.Event) { c.events = append(c.events, ev) }

var (
	admin  = types.Address{0xAA}
	alice  = types.Address{0x01}
	bob    = types.Address{0x02}
	mallet = types.Address{0x03}
)

func newTestEngine(t *testing.T) (*Engine, *mockState, *captureEmitter) {
	t.Helper()
	state := newMockState()
	emitter := &captureEmitter{}
	engine := NewEngine(fees.NewDefaultCalculator())
	engine.SetState(state)
	engine.SetAdmin(admin)
	engine.SetEmitter(emitter)
	if err := engine.Init(&Market{
		Title:        "BTC above 100k by December",
		YesLiquidity: big.NewInt(100_000),
		NoLiquidity:  big.NewInt(100_000),
		StartTime:    10,
		EndTime:      100,
	}); err != nil {
		t.Fatalf("init market: %v", err)
	}
	return engine, state, emitter
}

func fund(state *mockState, addr types.Address, amount int64) {
	state.accounts[addr] = &types.Account{Balance: big.NewInt(amount)}
}

func TestInitRejectsSecondCall(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	err := engine.Init(&Market{YesLiquidity: big.NewInt(1), NoLiquidity: big.NewInt(1), StartTime: 0, EndTime: 1})
	if !errors.Is(err, ErrMarketExists) {
		t.Fatalf("got %v want ErrMarketExists", err)
	}
}

func TestBetDebitsAndMovesReserves(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	fund(state, alice, 10_000)

	receipt, err := engine.Bet(alice, SideYes, big.NewInt(1000), 50)
	if err != nil {
		t.Fatalf("bet: %v", err)
	}
	if got := receipt.Shares.Int64(); got != 981 {
		t.Fatalf("shares: got %d want 981", got)
	}
	if got := receipt.Fee.Int64(); got != 10 {
		t.Fatalf("fee: got %d want 10", got)
	}
	if got := state.accounts[alice].Balance.Int64(); got != 9_000 {
		t.Fatalf("balance after bet: got %d want 9000", got)
	}
	if got := state.market.YesLiquidity.Int64(); got != 99_019 {
		t.Fatalf("yes reserve: got %d want 99019", got)
	}
	if got := state.market.NoLiquidity.Int64(); got != 100_990 {
		t.Fatalf("no reserve: got %d want 100990", got)
	}
	if got := state.market.TotalVolume.Int64(); got != 1000 {
		t.Fatalf("volume: got %d want 1000", got)
	}
	if got := state.market.TotalFeesCollected.Int64(); got != 10 {
		t.Fatalf("fees collected: got %d want 10", got)
	}
	if receipt.YesPrice <= 500_000 {
		t.Fatalf("yes price did not rise: %d", receipt.YesPrice)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("events: got %d want 1", len(emitter.events))
	}
	if emitter.events[0].EventType() != EventTypeBetPlaced {
		t.Fatalf("event type: got %q", emitter.events[0].EventType())
	}
}

func TestBetGates(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	fund(state, alice, 10_000)

	if _, err := engine.Bet(alice, SideYes, big.NewInt(0), 50); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if _, err := engine.Bet(alice, Side(0x7f), big.NewInt(100), 50); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("bad side: got %v", err)
	}
	if _, err := engine.Bet(alice, SideYes, big.NewInt(100), 5); !errors.Is(err, ErrMarketNotActive) {
		t.Fatalf("before start: got %v", err)
	}
	if _, err := engine.Bet(alice, SideYes, big.NewInt(100), 100); !errors.Is(err, ErrMarketNotActive) {
		t.Fatalf("after end: got %v", err)
	}
	if _, err := engine.Bet(alice, SideYes, big.NewInt(1_000_000), 50); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraft: got %v", err)
	}
	if got := state.accounts[alice].Balance.Int64(); got != 10_000 {
		t.Fatalf("failed bets mutated balance: %d", got)
	}
}

func TestSellRoundTrip(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	fund(state, alice, 10_000)

	receipt, err := engine.Bet(alice, SideNo, big.NewInt(2_000), 50)
	if err != nil {
		t.Fatalf("bet: %v", err)
	}
	sell, err := engine.Sell(alice, SideNo, receipt.Shares, 60)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if sell.Payout.Sign() <= 0 {
		t.Fatalf("payout not positive: %s", sell.Payout)
	}
	if sell.Payout.Cmp(big.NewInt(2_000)) >= 0 {
		t.Fatalf("round trip gained value: %s", sell.Payout)
	}
	if got := state.positions[alice].NoShares.Sign(); got != 0 {
		t.Fatalf("shares not returned: %d", got)
	}
	balance := state.accounts[alice].Balance
	if balance.Cmp(big.NewInt(10_000)) >= 0 {
		t.Fatalf("fees were not charged: balance %s", balance)
	}
}

func TestSellRequiresShares(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.Sell(alice, SideYes, big.NewInt(1), 50); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("got %v want ErrInsufficientShares", err)
	}
}

func TestResolveAdminOnlyAndOnce(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	if err := engine.Resolve(mallet, true, 110); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin resolve: got %v", err)
	}
	if err := engine.Resolve(admin, true, 110); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !state.market.Resolved || !state.market.Outcome {
		t.Fatalf("market not resolved YES")
	}
	if err := engine.Resolve(admin, false, 111); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second resolve: got %v", err)
	}
	if !state.market.Outcome {
		t.Fatalf("second resolve flipped outcome")
	}
}

func TestClaimPaysWinnersOnce(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	fund(state, alice, 10_000)
	fund(state, bob, 10_000)

	yesReceipt, err := engine.Bet(alice, SideYes, big.NewInt(1_000), 50)
	if err != nil {
		t.Fatalf("alice bet: %v", err)
	}
	if _, err := engine.Bet(bob, SideNo, big.NewInt(1_000), 51); err != nil {
		t.Fatalf("bob bet: %v", err)
	}

	if _, err := engine.Claim(alice, 60); !errors.Is(err, ErrNotResolved) {
		t.Fatalf("claim before resolve: got %v", err)
	}
	if err := engine.Resolve(admin, true, 110); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	payout, err := engine.Claim(alice, 111)
	if err != nil {
		t.Fatalf("winning claim: %v", err)
	}
	if payout.Cmp(yesReceipt.Shares) != 0 {
		t.Fatalf("payout: got %s want %s", payout, yesReceipt.Shares)
	}
	if got := state.accounts[alice].Balance.Int64(); got != 9_000+yesReceipt.Shares.Int64() {
		t.Fatalf("balance after claim: %d", got)
	}
	if _, err := engine.Claim(alice, 112); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("double claim: got %v", err)
	}
	if _, err := engine.Claim(bob, 113); !errors.Is(err, ErrNoWinningPosition) {
		t.Fatalf("losing claim: got %v", err)
	}
	if got := state.accounts[bob].Balance.Int64(); got != 9_000 {
		t.Fatalf("losing claim mutated balance: %d", got)
	}
}

func TestWithdrawFeesSweepsAndResets(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	fund(state, alice, 10_000)

	// Nothing collected yet: sweeping zero succeeds without writes.
	amount, err := engine.WithdrawFees(admin, 50)
	if err != nil {
		t.Fatalf("empty sweep: %v", err)
	}
	if amount.Sign() != 0 {
		t.Fatalf("empty sweep amount: %s", amount)
	}
	if _, ok := state.accounts[admin]; ok {
		t.Fatalf("empty sweep created admin account")
	}

	if _, err := engine.Bet(alice, SideYes, big.NewInt(1_000), 50); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if _, err := engine.WithdrawFees(mallet, 51); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin sweep: got %v", err)
	}
	amount, err = engine.WithdrawFees(admin, 51)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if got := amount.Int64(); got != 10 {
		t.Fatalf("swept amount: got %d want 10", got)
	}
	if got := state.accounts[admin].Balance.Int64(); got != 10 {
		t.Fatalf("admin balance: got %d want 10", got)
	}
	if got := state.market.TotalFeesCollected.Sign(); got != 0 {
		t.Fatalf("fee counter not reset")
	}
}
