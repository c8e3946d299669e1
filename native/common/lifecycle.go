package common

import "fmt"

// Phase is the shared lifecycle shape for time-gated aggregates. Both markets
// (trading window) and launchpad projects move through it; transitions are
// driven strictly by elapsed time and never regress.
type Phase byte

const (
	PhasePending Phase = 0x01
	PhaseActive  Phase = 0x02
	PhaseEnded   Phase = 0x03
)

// String renders the phase for events and query responses.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", byte(p))
	}
}

// Valid reports whether the phase is one of the defined states.
func (p Phase) Valid() bool {
	return p == PhasePending || p == PhaseActive || p == PhaseEnded
}

// Next evaluates the pure transition (phase, now) -> phase for a window
// [start, end). It is idempotent: repeated ticks after a threshold has passed
// keep returning the same terminal phase.
func Next(p Phase, now, start, end int64) Phase {
	switch p {
	case PhasePending:
		if now >= end {
			return PhaseEnded
		}
		if now >= start {
			return PhaseActive
		}
		return PhasePending
	case PhaseActive:
		if now >= end {
			return PhaseEnded
		}
		return PhaseActive
	default:
		return p
	}
}

// At computes the phase a window [start, end) is in at the given time without
// reference to a stored phase. Queries use it so derived snapshots agree with
// the tick-driven transition.
func At(now, start, end int64) Phase {
	return Next(PhasePending, now, start, end)
}
