package core

import (
	"fmt"
	"sync"

	"omenchain/core/events"
	"omenchain/core/types"
	"omenchain/native/fees"
	"omenchain/native/launchpad"
	"omenchain/native/market"
	"omenchain/storage"
)

// Genesis fixes the deployment parameters of a node. The market seed is
// applied only on a fresh database; replaying nodes pick up the persisted
// aggregate instead.
type Genesis struct {
	Admin          types.Address
	FeeRateBps     uint64
	FeeDenominator uint64
	Market         *market.Market
	EventBacklog   int
}

// Node owns the deterministic core: the journaled state manager, the market
// and launchpad engines, and the event broker. The host serialises all
// mutating commands into a single total order before handing them to Apply.
type Node struct {
	mu        sync.Mutex
	state     *StateDB
	market    *market.Engine
	launchpad *launchpad.Engine
	broker    *events.Broker
	emits     *eventBuffer
	admin     types.Address
	paused    map[string]struct{}
}

// eventBuffer stages engine emissions until the surrounding command commits,
// so subscribers never observe an event from a reverted transition.
type eventBuffer struct {
	sink    events.Emitter
	pending []events.Event
}

// Emit implements the events.Emitter interface.
func (b *eventBuffer) Emit(ev events.Event) {
	b.pending = append(b.pending, ev)
}

func (b *eventBuffer) flush() {
	for _, ev := range b.pending {
		b.sink.Emit(ev)
	}
	b.pending = b.pending[:0]
}

func (b *eventBuffer) discard() {
	b.pending = b.pending[:0]
}

// NewNode builds a node over the supplied backend and seeds genesis state if
// the database is fresh.
func NewNode(db storage.Database, genesis Genesis) (*Node, error) {
	rateBps, denominator := genesis.FeeRateBps, genesis.FeeDenominator
	if denominator == 0 {
		rateBps, denominator = fees.DefaultRateBps, fees.DefaultDenominator
	}
	calc, err := fees.NewCalculator(rateBps, denominator)
	if err != nil {
		return nil, err
	}
	state := NewStateDB(db)
	broker := events.NewBroker(genesis.EventBacklog)
	emits := &eventBuffer{sink: broker}

	marketEngine := market.NewEngine(calc)
	marketEngine.SetState(state)
	marketEngine.SetAdmin(genesis.Admin)
	marketEngine.SetEmitter(emits)

	launchpadEngine := launchpad.NewEngine()
	launchpadEngine.SetState(state)
	launchpadEngine.SetAdmin(genesis.Admin)
	launchpadEngine.SetEmitter(emits)

	n := &Node{
		state:     state,
		market:    marketEngine,
		launchpad: launchpadEngine,
		broker:    broker,
		emits:     emits,
		admin:     genesis.Admin,
	}
	if _, ok := state.MarketGet(); !ok {
		if genesis.Market == nil {
			return nil, fmt.Errorf("core: fresh database requires a genesis market")
		}
		if err := marketEngine.Init(genesis.Market); err != nil {
			return nil, err
		}
		if !state.HasAccount(genesis.Admin) {
			if err := state.PutAccount(genesis.Admin, &types.Account{}); err != nil {
				return nil, err
			}
			if err := state.SetPlayerCount(state.PlayerCount() + 1); err != nil {
				return nil, err
			}
		}
		if err := state.Commit(); err != nil {
			return nil, err
		}
		emits.flush()
	}
	return n, nil
}

// SetPaused installs the administrative pause set. Commands against a paused
// module are rejected before they reach the engine.
func (n *Node) SetPaused(modules map[string]struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paused = modules
}

// IsPaused implements the common.PauseView interface.
func (n *Node) IsPaused(module string) bool {
	_, ok := n.paused[module]
	return ok
}

// Admin reports the configured admin address.
func (n *Node) Admin() types.Address { return n.admin }

// Broker exposes the event stream for RPC subscriptions.
func (n *Node) Broker() *events.Broker { return n.broker }

// Pricer exposes the market pricing math for quote-only queries.
func (n *Node) Pricer() *market.Pricer { return n.market.Pricer() }

// Counter reports the current logical time.
func (n *Node) Counter() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.Counter()
}
