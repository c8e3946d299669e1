package core

import (
	"math/big"

	"omenchain/core/types"
	"omenchain/native/common"
	"omenchain/native/launchpad"
	"omenchain/native/market"
	"omenchain/observability"
)

// Command is one entry of the replicated command log. The host authenticates
// and sequences commands; the core assumes each accepted command is applied
// exactly once, in order.
type Command interface {
	Name() string
}

type TickCmd struct{}

func (TickCmd) Name() string { return "tick" }

type InstallPlayerCmd struct {
	User types.Address
}

func (InstallPlayerCmd) Name() string { return "install_player" }

type DepositCmd struct {
	Caller types.Address
	To     types.Address
	Amount *big.Int
}

func (DepositCmd) Name() string { return "deposit" }

type WithdrawCmd struct {
	Caller types.Address
	Amount *big.Int
}

func (WithdrawCmd) Name() string { return "withdraw" }

type BetCmd struct {
	Caller types.Address
	Side   market.Side
	Amount *big.Int
}

func (BetCmd) Name() string { return "bet" }

type SellCmd struct {
	Caller types.Address
	Side   market.Side
	Shares *big.Int
}

func (SellCmd) Name() string { return "sell" }

type ResolveCmd struct {
	Caller  types.Address
	Outcome bool
}

func (ResolveCmd) Name() string { return "resolve" }

type ClaimCmd struct {
	Caller types.Address
}

func (ClaimCmd) Name() string { return "claim" }

type WithdrawFeesCmd struct {
	Caller types.Address
}

func (WithdrawFeesCmd) Name() string { return "withdraw_fees" }

type CreateProjectCmd struct {
	Caller types.Address
	Params launchpad.CreateParams
}

func (CreateProjectCmd) Name() string { return "create_project" }

type UpdateProjectCmd struct {
	Caller    types.Address
	ProjectID uint64
	Params    launchpad.UpdateParams
}

func (UpdateProjectCmd) Name() string { return "update_project" }

type InvestCmd struct {
	Caller    types.Address
	ProjectID uint64
	Amount    *big.Int
}

func (InvestCmd) Name() string { return "invest" }

type WithdrawTokensCmd struct {
	Caller    types.Address
	ProjectID uint64
}

func (WithdrawTokensCmd) Name() string { return "withdraw_tokens" }

// Typed command results. Each command either fully commits and returns its
// result or fully aborts with exactly one error kind; no untyped envelopes.
type (
	TickResult struct {
		Counter uint64
	}
	InstallResult struct {
		User             types.Address
		AlreadyInstalled bool
	}
	DepositResult struct {
		To      types.Address
		Balance *big.Int
	}
	WithdrawResult struct {
		Settlement *Settlement
		Balance    *big.Int
	}
	ResolveResult struct {
		Outcome bool
	}
	ClaimResult struct {
		Payout *big.Int
	}
	WithdrawFeesResult struct {
		Amount *big.Int
	}
	WithdrawTokensResult struct {
		Tokens *big.Int
		Refund *big.Int
	}
)

// Apply executes one command as an atomic state transition. On any error the
// overlay is discarded, so partial application is never observable. Staged
// events and metrics are published only after the commit lands.
func (n *Node) Apply(cmd Command) (interface{}, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	metrics := observability.Core()
	result, err := n.apply(cmd)
	if err == nil {
		err = n.state.Commit()
	}
	if err != nil {
		n.state.Revert()
		n.emits.discard()
		metrics.Commands.WithLabelValues(cmd.Name(), "error").Inc()
		metrics.CommandErrors.WithLabelValues(cmd.Name()).Inc()
		return nil, err
	}
	n.emits.flush()
	metrics.Commands.WithLabelValues(cmd.Name(), "ok").Inc()
	if _, ok := cmd.(WithdrawCmd); ok {
		metrics.QueueDepth.Set(float64(len(n.state.SettlementsPending())))
	}
	return result, nil
}

// commandModule names the native module a command belongs to, for the
// administrative pause guard. Base commands are never paused.
func commandModule(cmd Command) string {
	switch cmd.(type) {
	case BetCmd, SellCmd, ResolveCmd, ClaimCmd, WithdrawFeesCmd:
		return "market"
	case CreateProjectCmd, UpdateProjectCmd, InvestCmd, WithdrawTokensCmd:
		return "launchpad"
	default:
		return ""
	}
}

func (n *Node) apply(cmd Command) (interface{}, error) {
	if err := common.Guard(n, commandModule(cmd)); err != nil {
		return nil, err
	}
	now := int64(n.state.Counter())
	switch c := cmd.(type) {
	case TickCmd:
		next := uint64(now) + 1
		if err := n.state.SetCounter(next); err != nil {
			return nil, err
		}
		if err := n.launchpad.Tick(int64(next)); err != nil {
			return nil, err
		}
		return TickResult{Counter: next}, nil

	case InstallPlayerCmd:
		if n.state.HasAccount(c.User) {
			// Re-installing is a benign no-op, not a failure.
			return InstallResult{User: c.User, AlreadyInstalled: true}, nil
		}
		if err := n.state.PutAccount(c.User, &types.Account{CreatedAt: now}); err != nil {
			return nil, err
		}
		if err := n.state.SetPlayerCount(n.state.PlayerCount() + 1); err != nil {
			return nil, err
		}
		return InstallResult{User: c.User}, nil

	case DepositCmd:
		if c.Caller != n.admin {
			return nil, ErrUnauthorized
		}
		if c.Amount == nil || c.Amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		if !n.state.HasAccount(c.To) {
			return nil, ErrPlayerNotFound
		}
		account, err := n.state.GetAccount(c.To)
		if err != nil {
			return nil, err
		}
		account = types.EnsureAccount(account)
		account.Balance = new(big.Int).Add(account.Balance, c.Amount)
		if err := n.state.PutAccount(c.To, account); err != nil {
			return nil, err
		}
		return DepositResult{To: c.To, Balance: account.Balance}, nil

	case WithdrawCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		if c.Amount == nil || c.Amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		account, err := n.state.GetAccount(c.Caller)
		if err != nil {
			return nil, err
		}
		account = types.EnsureAccount(account)
		if account.Balance.Cmp(c.Amount) < 0 {
			return nil, ErrInsufficientBalance
		}
		account.Balance = new(big.Int).Sub(account.Balance, c.Amount)
		if err := n.state.PutAccount(c.Caller, account); err != nil {
			return nil, err
		}
		settlement, err := n.state.SettlementAppend(c.Caller, c.Amount, now)
		if err != nil {
			return nil, err
		}
		return WithdrawResult{Settlement: settlement, Balance: account.Balance}, nil

	case BetCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		return n.market.Bet(c.Caller, c.Side, c.Amount, now)

	case SellCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		return n.market.Sell(c.Caller, c.Side, c.Shares, now)

	case ResolveCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		if err := n.market.Resolve(c.Caller, c.Outcome, now); err != nil {
			return nil, err
		}
		return ResolveResult{Outcome: c.Outcome}, nil

	case ClaimCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		payout, err := n.market.Claim(c.Caller, now)
		if err != nil {
			return nil, err
		}
		return ClaimResult{Payout: payout}, nil

	case WithdrawFeesCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		amount, err := n.market.WithdrawFees(c.Caller, now)
		if err != nil {
			return nil, err
		}
		return WithdrawFeesResult{Amount: amount}, nil

	case CreateProjectCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		return n.launchpad.CreateProject(c.Caller, c.Params, now)

	case UpdateProjectCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		return n.launchpad.UpdateProject(c.Caller, c.ProjectID, c.Params, now)

	case InvestCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		return n.launchpad.Invest(c.Caller, c.ProjectID, c.Amount, now)

	case WithdrawTokensCmd:
		if err := n.requirePlayer(c.Caller); err != nil {
			return nil, err
		}
		tokens, refund, err := n.launchpad.WithdrawTokens(c.Caller, c.ProjectID, now)
		if err != nil {
			return nil, err
		}
		return WithdrawTokensResult{Tokens: tokens, Refund: refund}, nil

	default:
		return nil, ErrUnknownCommand
	}
}

func (n *Node) requirePlayer(addr types.Address) error {
	if !n.state.HasAccount(addr) {
		return ErrPlayerNotFound
	}
	return nil
}

// FlushSettlements drains the pending withdrawal queue for the host. The
// drain itself is a committed state transition.
func (n *Node) FlushSettlements() ([]*Settlement, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	list, err := n.state.SettlementFlush()
	if err != nil {
		n.state.Revert()
		return nil, err
	}
	if err := n.state.Commit(); err != nil {
		n.state.Revert()
		return nil, err
	}
	observability.Core().QueueDepth.Set(float64(len(n.state.SettlementsPending())))
	return list, nil
}
