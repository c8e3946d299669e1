package core

import (
	"errors"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"omenchain/core/types"
	"omenchain/native/common"
	"omenchain/native/launchpad"
	"omenchain/native/market"
	"omenchain/observability"
	"omenchain/storage"
)

var (
	admin = types.Address{0xAA}
	alice = types.Address{0x01}
	bob   = types.Address{0x02}
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	node, err := NewNode(storage.NewMemDB(), Genesis{
		Admin: admin,
		Market: &market.Market{
			Title:        "BTC above 100k by December",
			YesLiquidity: big.NewInt(100_000),
			NoLiquidity:  big.NewInt(100_000),
			StartTime:    1,
			EndTime:      1_000,
		},
	})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func mustApply(t *testing.T, node *Node, cmd Command) interface{} {
	t.Helper()
	result, err := node.Apply(cmd)
	if err != nil {
		t.Fatalf("apply %s: %v", cmd.Name(), err)
	}
	return result
}

func installAndFund(t *testing.T, node *Node, addr types.Address, amount int64) {
	t.Helper()
	mustApply(t, node, InstallPlayerCmd{User: addr})
	mustApply(t, node, DepositCmd{Caller: admin, To: addr, Amount: big.NewInt(amount)})
}

func balanceOf(t *testing.T, node *Node, addr types.Address) *big.Int {
	t.Helper()
	snapshot, err := node.PositionSnapshot(addr)
	if err != nil {
		t.Fatalf("position snapshot: %v", err)
	}
	balance, ok := new(big.Int).SetString(snapshot.Balance, 10)
	if !ok {
		t.Fatalf("bad balance %q", snapshot.Balance)
	}
	return balance
}

func TestTickAdvancesCounter(t *testing.T) {
	node := newTestNode(t)
	if got := node.Counter(); got != 0 {
		t.Fatalf("fresh counter: %d", got)
	}
	result := mustApply(t, node, TickCmd{}).(TickResult)
	if result.Counter != 1 {
		t.Fatalf("counter after tick: %d", result.Counter)
	}
	mustApply(t, node, TickCmd{})
	if got := node.Counter(); got != 2 {
		t.Fatalf("counter after two ticks: %d", got)
	}
}

func TestInstallPlayerIsIdempotent(t *testing.T) {
	node := newTestNode(t)
	first := mustApply(t, node, InstallPlayerCmd{User: alice}).(InstallResult)
	if first.AlreadyInstalled {
		t.Fatalf("fresh install flagged as repeat")
	}
	second := mustApply(t, node, InstallPlayerCmd{User: alice}).(InstallResult)
	if !second.AlreadyInstalled {
		t.Fatalf("repeat install not flagged")
	}
	stats := node.Stats()
	// Admin plus alice; the repeat install did not inflate the count.
	if stats.Players != 2 {
		t.Fatalf("player count: got %d want 2", stats.Players)
	}
}

func TestDepositRequiresAdminAndPlayer(t *testing.T) {
	node := newTestNode(t)
	mustApply(t, node, InstallPlayerCmd{User: alice})
	if _, err := node.Apply(DepositCmd{Caller: alice, To: alice, Amount: big.NewInt(100)}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin deposit: got %v", err)
	}
	if _, err := node.Apply(DepositCmd{Caller: admin, To: bob, Amount: big.NewInt(100)}); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("deposit to stranger: got %v", err)
	}
	if _, err := node.Apply(DepositCmd{Caller: admin, To: alice, Amount: big.NewInt(0)}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero deposit: got %v", err)
	}
	result := mustApply(t, node, DepositCmd{Caller: admin, To: alice, Amount: big.NewInt(100)}).(DepositResult)
	if result.Balance.Int64() != 100 {
		t.Fatalf("balance after deposit: %s", result.Balance)
	}
}

func TestWithdrawQueuesSettlement(t *testing.T) {
	node := newTestNode(t)
	installAndFund(t, node, alice, 1_000)

	if _, err := node.Apply(WithdrawCmd{Caller: alice, Amount: big.NewInt(2_000)}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraft withdraw: got %v", err)
	}
	result := mustApply(t, node, WithdrawCmd{Caller: alice, Amount: big.NewInt(400)}).(WithdrawResult)
	if result.Balance.Int64() != 600 {
		t.Fatalf("balance after withdraw: %s", result.Balance)
	}
	if result.Settlement == nil || result.Settlement.Amount.Int64() != 400 {
		t.Fatalf("settlement: %+v", result.Settlement)
	}
	mustApply(t, node, WithdrawCmd{Caller: alice, Amount: big.NewInt(100)})

	list, err := node.FlushSettlements()
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("pending settlements: got %d want 2", len(list))
	}
	if list[0].Sequence >= list[1].Sequence {
		t.Fatalf("settlements out of order: %d, %d", list[0].Sequence, list[1].Sequence)
	}
	if list[0].ID == list[1].ID {
		t.Fatalf("settlement ids collide")
	}
	// The queue drains exactly once.
	again, err := node.FlushSettlements()
	if err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("queue not drained: %d left", len(again))
	}
}

func TestFailedCommandLeavesStateUntouched(t *testing.T) {
	node := newTestNode(t)
	installAndFund(t, node, alice, 1_000)
	mustApply(t, node, TickCmd{})

	before := balanceOf(t, node, alice)
	marketBefore, err := node.MarketSnapshot()
	if err != nil {
		t.Fatalf("market snapshot: %v", err)
	}

	// Overdraft bet fails after the gate checks; nothing may leak.
	if _, err := node.Apply(BetCmd{Caller: alice, Side: market.SideYes, Amount: big.NewInt(5_000)}); !errors.Is(err, market.ErrInsufficientBalance) {
		t.Fatalf("overdraft bet: got %v", err)
	}

	after := balanceOf(t, node, alice)
	if before.Cmp(after) != 0 {
		t.Fatalf("failed bet moved balance: %s -> %s", before, after)
	}
	marketAfter, err := node.MarketSnapshot()
	if err != nil {
		t.Fatalf("market snapshot: %v", err)
	}
	if marketBefore.YesLiquidity != marketAfter.YesLiquidity || marketBefore.TotalVolume != marketAfter.TotalVolume {
		t.Fatalf("failed bet moved reserves")
	}
	if node.state.Pending() != 0 {
		t.Fatalf("overlay not drained: %d pending writes", node.state.Pending())
	}
}

func TestCallerMustBeInstalled(t *testing.T) {
	node := newTestNode(t)
	if _, err := node.Apply(BetCmd{Caller: bob, Side: market.SideYes, Amount: big.NewInt(1)}); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("bet by stranger: got %v", err)
	}
	if _, err := node.Apply(InvestCmd{Caller: bob, ProjectID: 1, Amount: big.NewInt(1)}); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("invest by stranger: got %v", err)
	}
}

func TestMarketFlowEndToEnd(t *testing.T) {
	node := newTestNode(t)
	installAndFund(t, node, alice, 10_000)
	mustApply(t, node, TickCmd{})

	receipt := mustApply(t, node, BetCmd{Caller: alice, Side: market.SideYes, Amount: big.NewInt(1_000)}).(*market.BetReceipt)
	if receipt.Shares.Int64() != 981 {
		t.Fatalf("shares: got %s want 981", receipt.Shares)
	}
	mustApply(t, node, ResolveCmd{Caller: admin, Outcome: true})
	claim := mustApply(t, node, ClaimCmd{Caller: alice}).(ClaimResult)
	if claim.Payout.Cmp(receipt.Shares) != 0 {
		t.Fatalf("payout: got %s want %s", claim.Payout, receipt.Shares)
	}
	if _, err := node.Apply(ClaimCmd{Caller: alice}); !errors.Is(err, market.ErrAlreadyClaimed) {
		t.Fatalf("double claim: got %v", err)
	}
	swept := mustApply(t, node, WithdrawFeesCmd{Caller: admin}).(WithdrawFeesResult)
	if swept.Amount.Int64() != 10 {
		t.Fatalf("swept fees: got %s want 10", swept.Amount)
	}
}

func TestLaunchpadFlowEndToEnd(t *testing.T) {
	node := newTestNode(t)
	installAndFund(t, node, alice, 200_000)

	project := mustApply(t, node, CreateProjectCmd{Caller: admin, Params: launchpad.CreateParams{
		Name:             "Omen Token Sale",
		TokenName:        "Omen",
		TokenSymbol:      "OMN",
		TargetAmount:     big.NewInt(100_000),
		TokenSupply:      big.NewInt(1_000_000),
		MaxIndividualCap: big.NewInt(150_000),
		StartTime:        1,
		EndTime:          10,
	}}).(*launchpad.Project)
	if project.ID != 1 {
		t.Fatalf("project id: %d", project.ID)
	}

	mustApply(t, node, TickCmd{})
	mustApply(t, node, InvestCmd{Caller: alice, ProjectID: project.ID, Amount: big.NewInt(150_000)})

	// Tick to the end threshold; investing is now rejected.
	for i := 0; i < 9; i++ {
		mustApply(t, node, TickCmd{})
	}
	if _, err := node.Apply(InvestCmd{Caller: alice, ProjectID: project.ID, Amount: big.NewInt(1)}); !errors.Is(err, launchpad.ErrProjectNotActive) {
		t.Fatalf("invest after end: got %v", err)
	}

	result := mustApply(t, node, WithdrawTokensCmd{Caller: alice, ProjectID: project.ID}).(WithdrawTokensResult)
	if result.Tokens.Int64() != 1_000_000 {
		t.Fatalf("tokens: got %s want 1000000", result.Tokens)
	}
	if result.Refund.Int64() != 50_000 {
		t.Fatalf("refund: got %s want 50000", result.Refund)
	}
	if got := balanceOf(t, node, alice).Int64(); got != 50_000+1_000_000+50_000 {
		t.Fatalf("balance after settlement: %d", got)
	}
}

func TestPausedModuleRejectsCommands(t *testing.T) {
	node := newTestNode(t)
	installAndFund(t, node, alice, 10_000)
	mustApply(t, node, TickCmd{})

	node.SetPaused(map[string]struct{}{"market": {}})
	if _, err := node.Apply(BetCmd{Caller: alice, Side: market.SideYes, Amount: big.NewInt(100)}); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("paused bet: got %v", err)
	}
	// Base commands and the other module keep working.
	mustApply(t, node, TickCmd{})
	mustApply(t, node, WithdrawCmd{Caller: alice, Amount: big.NewInt(100)})

	node.SetPaused(nil)
	mustApply(t, node, BetCmd{Caller: alice, Side: market.SideYes, Amount: big.NewInt(100)})
}

func TestUnknownCommandRejected(t *testing.T) {
	node := newTestNode(t)
	if _, err := node.Apply(bogusCmd{}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("got %v want ErrUnknownCommand", err)
	}
}

type bogusCmd struct{}

func (bogusCmd) Name() string { return "bogus" }

func TestReplayFromPersistedState(t *testing.T) {
	db := storage.NewMemDB()
	genesis := Genesis{
		Admin: admin,
		Market: &market.Market{
			Title:        "BTC above 100k by December",
			YesLiquidity: big.NewInt(100_000),
			NoLiquidity:  big.NewInt(100_000),
			StartTime:    1,
			EndTime:      1_000,
		},
	}
	node, err := NewNode(db, genesis)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	installAndFund(t, node, alice, 10_000)
	mustApply(t, node, TickCmd{})
	mustApply(t, node, BetCmd{Caller: alice, Side: market.SideYes, Amount: big.NewInt(1_000)})

	// Reopen over the same backend: the persisted aggregate wins over the
	// genesis seed.
	reopened, err := NewNode(db, genesis)
	if err != nil {
		t.Fatalf("reopen node: %v", err)
	}
	if got := reopened.Counter(); got != 1 {
		t.Fatalf("counter after reopen: %d", got)
	}
	snapshot, err := reopened.MarketSnapshot()
	if err != nil {
		t.Fatalf("market snapshot: %v", err)
	}
	if snapshot.YesLiquidity != "99019" {
		t.Fatalf("yes reserve after reopen: %s", snapshot.YesLiquidity)
	}
	if got := balanceOf(t, reopened, alice).Int64(); got != 9_000 {
		t.Fatalf("balance after reopen: %d", got)
	}
}

func TestApplyDrivesCommandMetrics(t *testing.T) {
	node := newTestNode(t)
	metrics := observability.Core()
	okBefore := testutil.ToFloat64(metrics.Commands.WithLabelValues("tick", "ok"))
	failedBefore := testutil.ToFloat64(metrics.Commands.WithLabelValues("bet", "error"))
	rejectedBefore := testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("bet"))

	mustApply(t, node, TickCmd{})
	if got := testutil.ToFloat64(metrics.Commands.WithLabelValues("tick", "ok")); got != okBefore+1 {
		t.Fatalf("tick ok counter: %v, want %v", got, okBefore+1)
	}

	if _, err := node.Apply(BetCmd{Caller: alice, Side: market.SideYes, Amount: big.NewInt(10)}); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("uninstalled bet: %v", err)
	}
	if got := testutil.ToFloat64(metrics.Commands.WithLabelValues("bet", "error")); got != failedBefore+1 {
		t.Fatalf("bet error counter: %v, want %v", got, failedBefore+1)
	}
	if got := testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("bet")); got != rejectedBefore+1 {
		t.Fatalf("bet rejection counter: %v, want %v", got, rejectedBefore+1)
	}
}

func TestWithdrawTracksQueueDepthGauge(t *testing.T) {
	node := newTestNode(t)
	installAndFund(t, node, alice, 5_000)
	gauge := observability.Core().QueueDepth

	mustApply(t, node, WithdrawCmd{Caller: alice, Amount: big.NewInt(1_000)})
	if got := testutil.ToFloat64(gauge); got != 1 {
		t.Fatalf("queue depth after first withdraw: %v", got)
	}
	mustApply(t, node, WithdrawCmd{Caller: alice, Amount: big.NewInt(500)})
	if got := testutil.ToFloat64(gauge); got != 2 {
		t.Fatalf("queue depth after second withdraw: %v", got)
	}

	if _, err := node.FlushSettlements(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := testutil.ToFloat64(gauge); got != 0 {
		t.Fatalf("queue depth after flush: %v", got)
	}
}

func TestFailedCommitPublishesNoEvents(t *testing.T) {
	db := &flakyDB{MemDB: storage.NewMemDB()}
	node, err := NewNode(db, Genesis{
		Admin: admin,
		Market: &market.Market{
			Title:        "BTC above 100k by December",
			YesLiquidity: big.NewInt(100_000),
			NoLiquidity:  big.NewInt(100_000),
			StartTime:    1,
			EndTime:      1_000,
		},
	})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	installAndFund(t, node, alice, 10_000)
	mustApply(t, node, TickCmd{})

	db.failPuts = true
	if _, err := node.Apply(BetCmd{Caller: alice, Side: market.SideYes, Amount: big.NewInt(1_000)}); err == nil {
		t.Fatalf("bet committed over a failing backend")
	}
	backlog, _, cancel := node.Broker().Subscribe(0)
	cancel()
	for _, stored := range backlog {
		if stored.Payload.Type == market.EventTypeBetPlaced {
			t.Fatalf("reverted bet reached subscribers: %+v", stored.Payload)
		}
	}

	// Once the backend recovers the same bet commits and publishes.
	db.failPuts = false
	mustApply(t, node, BetCmd{Caller: alice, Side: market.SideYes, Amount: big.NewInt(1_000)})
	backlog, _, cancel = node.Broker().Subscribe(0)
	cancel()
	found := false
	for _, stored := range backlog {
		if stored.Payload.Type == market.EventTypeBetPlaced {
			found = true
		}
	}
	if !found {
		t.Fatalf("committed bet missing from the stream")
	}
}
