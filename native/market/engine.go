package market

import (
	"fmt"
	"math/big"

	"omenchain/core/events"
	"omenchain/core/types"
	"omenchain/native/common"
	"omenchain/native/fees"
)

type engineState interface {
	MarketGet() (*Market, bool)
	MarketPut(*Market) error
	PositionGet(addr types.Address) (*Position, bool)
	PositionPut(addr types.Address, pos *Position) error
	GetAccount(addr types.Address) (*types.Account, error)
	PutAccount(addr types.Address, account *types.Account) error
}

// Engine wires the AMM pricing math with external state and event emission.
// Every operation validates fully before its first write, so a failed call
// leaves state untouched even without the processor's overlay.
type Engine struct {
	state   engineState
	pricer  *Pricer
	emitter events.Emitter
	admin   types.Address
}

// NewEngine creates a market engine charging the supplied fee schedule, with
// a no-op emitter. Callers can override the emitter via SetEmitter.
func NewEngine(calc *fees.Calculator) *Engine {
	return &Engine{
		pricer:  NewPricer(calc),
		emitter: events.NoopEmitter{},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAdmin configures the address allowed to resolve and sweep fees.
func (e *Engine) SetAdmin(addr types.Address) { e.admin = addr }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Pricer exposes the engine's pricing math for quote-only callers.
func (e *Engine) Pricer() *Pricer { return e.pricer }

func (e *Engine) emit(ev events.Event) {
	if e == nil || e.emitter == nil || ev == nil {
		return
	}
	e.emitter.Emit(ev)
}

func (e *Engine) loadMarket() (*Market, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	m, ok := e.state.MarketGet()
	if !ok {
		return nil, ErrMarketNotFound
	}
	return m, nil
}

// Init seeds the market aggregate. Called once at genesis; a second call
// fails rather than overwrite live liquidity.
func (e *Engine) Init(m *Market) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if m == nil {
		return fmt.Errorf("market engine: nil market")
	}
	if _, ok := e.state.MarketGet(); ok {
		return ErrMarketExists
	}
	if m.YesLiquidity == nil || m.NoLiquidity == nil || m.YesLiquidity.Sign() <= 0 || m.NoLiquidity.Sign() <= 0 {
		return fmt.Errorf("market engine: initial reserves must be positive")
	}
	if m.StartTime >= m.EndTime {
		return fmt.Errorf("market engine: trading window start must precede end")
	}
	seeded := m.Clone()
	if seeded.TotalVolume == nil {
		seeded.TotalVolume = big.NewInt(0)
	}
	if seeded.TotalFeesCollected == nil {
		seeded.TotalFeesCollected = big.NewInt(0)
	}
	seeded.Resolved = false
	return e.state.MarketPut(seeded)
}

// BetReceipt reports the committed effect of a buy.
type BetReceipt struct {
	Side     Side
	Amount   *big.Int
	Fee      *big.Int
	Shares   *big.Int
	YesPrice uint64
	NoPrice  uint64
}

// Bet spends the user's balance on outcome shares at the constant-product
// price. The trade requires an active, unresolved market; a trade that nets
// zero shares is a valid (if unfortunate) success.
func (e *Engine) Bet(user types.Address, side Side, amount *big.Int, now int64) (*BetReceipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	m, err := e.loadMarket()
	if err != nil {
		return nil, err
	}
	if m.Phase(now) != common.PhaseActive {
		return nil, ErrMarketNotActive
	}
	account, err := e.state.GetAccount(user)
	if err != nil {
		return nil, err
	}
	account = types.EnsureAccount(account)
	if account.Balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	quote, err := e.pricer.Buy(m.YesLiquidity, m.NoLiquidity, side, amount)
	if err != nil {
		return nil, err
	}
	pos, _ := e.state.PositionGet(user)
	pos = ensurePosition(pos)

	account.Balance = new(big.Int).Sub(account.Balance, amount)
	m.YesLiquidity = quote.NewYes
	m.NoLiquidity = quote.NewNo
	m.TotalVolume = new(big.Int).Add(m.TotalVolume, amount)
	m.TotalFeesCollected = new(big.Int).Add(m.TotalFeesCollected, quote.Fee)
	if side == SideYes {
		pos.YesShares = new(big.Int).Add(pos.YesShares, quote.Shares)
	} else {
		pos.NoShares = new(big.Int).Add(pos.NoShares, quote.Shares)
	}
	if err := e.state.PutAccount(user, account); err != nil {
		return nil, err
	}
	if err := e.state.PositionPut(user, pos); err != nil {
		return nil, err
	}
	if err := e.state.MarketPut(m); err != nil {
		return nil, err
	}
	e.emit(BetPlaced{User: user, Side: side, Amount: amount, Fee: quote.Fee, Shares: quote.Shares, Time: now})
	yesPrice, noPrice := Prices(m.YesLiquidity, m.NoLiquidity)
	return &BetReceipt{Side: side, Amount: new(big.Int).Set(amount), Fee: quote.Fee, Shares: quote.Shares, YesPrice: yesPrice, NoPrice: noPrice}, nil
}

// SellReceipt reports the committed effect of a sale.
type SellReceipt struct {
	Side     Side
	Shares   *big.Int
	Gross    *big.Int
	Fee      *big.Int
	Payout   *big.Int
	YesPrice uint64
	NoPrice  uint64
}

// Sell returns shares to the pool and credits the net-of-fee payout.
func (e *Engine) Sell(user types.Address, side Side, shares *big.Int, now int64) (*SellReceipt, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	m, err := e.loadMarket()
	if err != nil {
		return nil, err
	}
	if m.Phase(now) != common.PhaseActive {
		return nil, ErrMarketNotActive
	}
	pos, _ := e.state.PositionGet(user)
	pos = ensurePosition(pos)
	held := pos.YesShares
	if side == SideNo {
		held = pos.NoShares
	}
	if held.Cmp(shares) < 0 {
		return nil, ErrInsufficientShares
	}
	quote, err := e.pricer.Sell(m.YesLiquidity, m.NoLiquidity, side, shares)
	if err != nil {
		return nil, err
	}
	account, err := e.state.GetAccount(user)
	if err != nil {
		return nil, err
	}
	account = types.EnsureAccount(account)

	if side == SideYes {
		pos.YesShares = new(big.Int).Sub(pos.YesShares, shares)
	} else {
		pos.NoShares = new(big.Int).Sub(pos.NoShares, shares)
	}
	account.Balance = new(big.Int).Add(account.Balance, quote.Payout)
	m.YesLiquidity = quote.NewYes
	m.NoLiquidity = quote.NewNo
	m.TotalVolume = new(big.Int).Add(m.TotalVolume, quote.Gross)
	m.TotalFeesCollected = new(big.Int).Add(m.TotalFeesCollected, quote.Fee)
	if err := e.state.PutAccount(user, account); err != nil {
		return nil, err
	}
	if err := e.state.PositionPut(user, pos); err != nil {
		return nil, err
	}
	if err := e.state.MarketPut(m); err != nil {
		return nil, err
	}
	e.emit(SharesSold{User: user, Side: side, Shares: shares, Payout: quote.Payout, Fee: quote.Fee, Time: now})
	yesPrice, noPrice := Prices(m.YesLiquidity, m.NoLiquidity)
	return &SellReceipt{Side: side, Shares: new(big.Int).Set(shares), Gross: quote.Gross, Fee: quote.Fee, Payout: quote.Payout, YesPrice: yesPrice, NoPrice: noPrice}, nil
}

// Resolve fixes the market outcome. Admin-only and irreversible.
func (e *Engine) Resolve(caller types.Address, outcome bool, now int64) error {
	if caller != e.admin {
		return ErrUnauthorized
	}
	m, err := e.loadMarket()
	if err != nil {
		return err
	}
	if m.Resolved {
		return ErrAlreadyResolved
	}
	m.Resolved = true
	m.Outcome = outcome
	if err := e.state.MarketPut(m); err != nil {
		return err
	}
	e.emit(MarketResolved{Outcome: outcome, Time: now})
	return nil
}

// Claim redeems the caller's winning shares at one currency unit per share.
// A second call fails with ErrAlreadyClaimed and mutates nothing.
func (e *Engine) Claim(user types.Address, now int64) (*big.Int, error) {
	m, err := e.loadMarket()
	if err != nil {
		return nil, err
	}
	if !m.Resolved {
		return nil, ErrNotResolved
	}
	pos, _ := e.state.PositionGet(user)
	pos = ensurePosition(pos)
	if pos.Claimed {
		return nil, ErrAlreadyClaimed
	}
	winning := pos.NoShares
	if m.Outcome {
		winning = pos.YesShares
	}
	if winning.Sign() == 0 {
		return nil, ErrNoWinningPosition
	}
	account, err := e.state.GetAccount(user)
	if err != nil {
		return nil, err
	}
	account = types.EnsureAccount(account)

	payout := new(big.Int).Set(winning)
	pos.Claimed = true
	account.Balance = new(big.Int).Add(account.Balance, payout)
	if err := e.state.PositionPut(user, pos); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(user, account); err != nil {
		return nil, err
	}
	e.emit(WinningsClaimed{User: user, Payout: payout, Time: now})
	return payout, nil
}

// WithdrawFees sweeps collected protocol fees into the admin balance and
// resets the counter. Sweeping zero is a valid no-op success.
func (e *Engine) WithdrawFees(caller types.Address, now int64) (*big.Int, error) {
	if caller != e.admin {
		return nil, ErrUnauthorized
	}
	m, err := e.loadMarket()
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Set(m.TotalFeesCollected)
	if amount.Sign() == 0 {
		return amount, nil
	}
	account, err := e.state.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	account = types.EnsureAccount(account)
	account.Balance = new(big.Int).Add(account.Balance, amount)
	m.TotalFeesCollected = big.NewInt(0)
	if err := e.state.PutAccount(caller, account); err != nil {
		return nil, err
	}
	if err := e.state.MarketPut(m); err != nil {
		return nil, err
	}
	e.emit(FeesWithdrawn{Admin: caller, Amount: amount, Time: now})
	return amount, nil
}
