package launchpad

import (
	"math/big"
	"strings"

	"omenchain/core/events"
	"omenchain/core/types"
	"omenchain/native/common"
)

type engineState interface {
	ProjectGet(id uint64) (*Project, bool)
	ProjectPut(p *Project) error
	ProjectCount() uint64
	SetProjectCount(n uint64) error
	InvestmentGet(projectID uint64, addr types.Address) (*Investment, bool)
	InvestmentPut(inv *Investment) error
	GetAccount(addr types.Address) (*types.Account, error)
	PutAccount(addr types.Address, account *types.Account) error
}

// Engine runs the IDO launchpad: project registration, cumulative
// investments, the tick-driven lifecycle, and derived withdrawals. Every
// operation validates fully before its first write.
type Engine struct {
	state   engineState
	emitter events.Emitter
	admin   types.Address
}

// NewEngine creates a launchpad engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAdmin configures the address allowed to create and edit projects.
func (e *Engine) SetAdmin(addr types.Address) { e.admin = addr }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(ev events.Event) {
	if e == nil || e.emitter == nil || ev == nil {
		return
	}
	e.emitter.Emit(ev)
}

func (e *Engine) loadProject(id uint64) (*Project, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	p, ok := e.state.ProjectGet(id)
	if !ok {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

// CreateParams carries the admin-supplied definition of a new round.
type CreateParams struct {
	Name             string
	TokenName        string
	TokenSymbol      string
	TargetAmount     *big.Int
	TokenSupply      *big.Int
	MaxIndividualCap *big.Int
	StartTime        int64
	EndTime          int64
}

func (p CreateParams) validate() error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.TokenSymbol) == "" {
		return ErrInvalidParams
	}
	if p.TargetAmount == nil || p.TargetAmount.Sign() <= 0 {
		return ErrInvalidParams
	}
	if p.TokenSupply == nil || p.TokenSupply.Sign() <= 0 {
		return ErrInvalidParams
	}
	if p.MaxIndividualCap == nil || p.MaxIndividualCap.Sign() <= 0 {
		return ErrInvalidParams
	}
	if p.StartTime >= p.EndTime {
		return ErrInvalidParams
	}
	return nil
}

// CreateProject registers a new round in the Pending phase. Admin-only.
// Project identifiers are sequential, assigned in command order.
func (e *Engine) CreateProject(caller types.Address, params CreateParams, now int64) (*Project, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if caller != e.admin {
		return nil, ErrUnauthorized
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	id := e.state.ProjectCount() + 1
	project := &Project{
		ID:               id,
		Name:             strings.TrimSpace(params.Name),
		TokenName:        strings.TrimSpace(params.TokenName),
		TokenSymbol:      strings.TrimSpace(params.TokenSymbol),
		TargetAmount:     new(big.Int).Set(params.TargetAmount),
		TokenSupply:      new(big.Int).Set(params.TokenSupply),
		MaxIndividualCap: new(big.Int).Set(params.MaxIndividualCap),
		StartTime:        params.StartTime,
		EndTime:          params.EndTime,
		TotalRaised:      big.NewInt(0),
		Phase:            common.PhasePending,
		Admin:            caller,
		CreatedAt:        now,
	}
	if err := e.state.ProjectPut(project); err != nil {
		return nil, err
	}
	if err := e.state.SetProjectCount(id); err != nil {
		return nil, err
	}
	e.emit(ProjectCreated{Project: project})
	return project.Clone(), nil
}

// UpdateParams carries optional pre-start edits; nil fields are untouched.
type UpdateParams struct {
	Name             *string
	TokenName        *string
	TokenSymbol      *string
	TargetAmount     *big.Int
	TokenSupply      *big.Int
	MaxIndividualCap *big.Int
	StartTime        *int64
	EndTime          *int64
}

// UpdateProject edits a round that has not started yet. Admin-only; once the
// window opens the definition is immutable.
func (e *Engine) UpdateProject(caller types.Address, id uint64, params UpdateParams, now int64) (*Project, error) {
	if caller != e.admin {
		return nil, ErrUnauthorized
	}
	project, err := e.loadProject(id)
	if err != nil {
		return nil, err
	}
	if project.PhaseAt(now) != common.PhasePending {
		return nil, ErrProjectNotPending
	}
	updated := project.Clone()
	if params.Name != nil {
		updated.Name = strings.TrimSpace(*params.Name)
	}
	if params.TokenName != nil {
		updated.TokenName = strings.TrimSpace(*params.TokenName)
	}
	if params.TokenSymbol != nil {
		updated.TokenSymbol = strings.TrimSpace(*params.TokenSymbol)
	}
	if params.TargetAmount != nil {
		updated.TargetAmount = new(big.Int).Set(params.TargetAmount)
	}
	if params.TokenSupply != nil {
		updated.TokenSupply = new(big.Int).Set(params.TokenSupply)
	}
	if params.MaxIndividualCap != nil {
		updated.MaxIndividualCap = new(big.Int).Set(params.MaxIndividualCap)
	}
	if params.StartTime != nil {
		updated.StartTime = *params.StartTime
	}
	if params.EndTime != nil {
		updated.EndTime = *params.EndTime
	}
	check := CreateParams{
		Name:             updated.Name,
		TokenName:        updated.TokenName,
		TokenSymbol:      updated.TokenSymbol,
		TargetAmount:     updated.TargetAmount,
		TokenSupply:      updated.TokenSupply,
		MaxIndividualCap: updated.MaxIndividualCap,
		StartTime:        updated.StartTime,
		EndTime:          updated.EndTime,
	}
	if err := check.validate(); err != nil {
		return nil, err
	}
	if err := e.state.ProjectPut(updated); err != nil {
		return nil, err
	}
	e.emit(ProjectUpdated{Project: updated, Time: now})
	return updated.Clone(), nil
}

// Invest stakes part of the user's balance in an active round. Stakes are
// cumulative per user and bounded by the project's individual cap.
func (e *Engine) Invest(user types.Address, projectID uint64, amount *big.Int, now int64) (*Investment, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	project, err := e.loadProject(projectID)
	if err != nil {
		return nil, err
	}
	if project.PhaseAt(now) != common.PhaseActive {
		return nil, ErrProjectNotActive
	}
	inv, existed := e.state.InvestmentGet(projectID, user)
	inv = ensureInvestment(inv, user, projectID)
	firstTime := !existed || inv.Amount.Sign() == 0
	total := new(big.Int).Add(inv.Amount, amount)
	if total.Cmp(project.MaxIndividualCap) > 0 {
		return nil, ErrCapExceeded
	}
	account, err := e.state.GetAccount(user)
	if err != nil {
		return nil, err
	}
	account = types.EnsureAccount(account)
	if account.Balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}

	account.Balance = new(big.Int).Sub(account.Balance, amount)
	inv.Amount = total
	if inv.InvestedAt == 0 {
		inv.InvestedAt = now
	}
	project.TotalRaised = new(big.Int).Add(project.TotalRaised, amount)
	if firstTime {
		project.InvestorCount++
	}
	if err := e.state.PutAccount(user, account); err != nil {
		return nil, err
	}
	if err := e.state.InvestmentPut(inv); err != nil {
		return nil, err
	}
	if err := e.state.ProjectPut(project); err != nil {
		return nil, err
	}
	e.emit(InvestmentMade{User: user, ProjectID: projectID, Amount: amount, Total: total, Time: now})
	return inv.Clone(), nil
}

// WithdrawTokens settles the caller's stake in an ended round: the pro-rata
// token allocation and any over-subscription refund are derived from the
// frozen totals and credited together, exactly once.
func (e *Engine) WithdrawTokens(user types.Address, projectID uint64, now int64) (tokens, refund *big.Int, err error) {
	project, err := e.loadProject(projectID)
	if err != nil {
		return nil, nil, err
	}
	if project.PhaseAt(now) != common.PhaseEnded {
		return nil, nil, ErrProjectNotEnded
	}
	inv, ok := e.state.InvestmentGet(projectID, user)
	if !ok || inv == nil || inv.Amount == nil || inv.Amount.Sign() == 0 {
		return nil, nil, ErrNoInvestment
	}
	if inv.TokensWithdrawn {
		return nil, nil, ErrAlreadyWithdrawn
	}
	tokens, refund = Allocate(inv.Amount, project.TotalRaised, project.TargetAmount, project.TokenSupply)
	account, err := e.state.GetAccount(user)
	if err != nil {
		return nil, nil, err
	}
	account = types.EnsureAccount(account)

	credit := new(big.Int).Add(tokens, refund)
	account.Balance = new(big.Int).Add(account.Balance, credit)
	inv.TokensWithdrawn = true
	inv.RefundWithdrawn = true
	if err := e.state.PutAccount(user, account); err != nil {
		return nil, nil, err
	}
	if err := e.state.InvestmentPut(inv); err != nil {
		return nil, nil, err
	}
	e.emit(TokensWithdrawn{User: user, ProjectID: projectID, Tokens: tokens, Refund: refund, Time: now})
	return tokens, refund, nil
}

// Tick advances the persisted lifecycle phase of every project. Idempotent:
// a tick past a threshold that has already been applied changes nothing.
func (e *Engine) Tick(now int64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	count := e.state.ProjectCount()
	for id := uint64(1); id <= count; id++ {
		project, ok := e.state.ProjectGet(id)
		if !ok {
			continue
		}
		next := common.Next(project.Phase, now, project.StartTime, project.EndTime)
		if next == project.Phase {
			continue
		}
		project.Phase = next
		if err := e.state.ProjectPut(project); err != nil {
			return err
		}
		e.emit(ProjectPhaseChanged{ProjectID: id, Phase: next.String(), Time: now})
	}
	return nil
}
