package engine

import (
	"time"
)

// Outcome is how a turn resolved. Every turn ends in exactly one.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeSkill
	OutcomeFallback
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeSkill:
		return "skill"
	case OutcomeFallback:
		return "fallback"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a step of the per-turn state machine.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateFilteredOut      State = "FILTERED_OUT"
	StateRouted           State = "ROUTED"
	StateSkillExecuted    State = "SKILL_EXECUTED"
	StateFallbackInvoked  State = "FALLBACK_INVOKED"
	StateFallbackResponse State = "FALLBACK_RESPONSE"
	StateFallbackError    State = "FALLBACK_ERROR"
	StateSuppressed       State = "SUPPRESSED"
)

// Reasons attached to ignored turns.
const (
	ReasonFiltered = "filtered"
	ReasonEmpty    = "empty"
	ReasonPaused   = "paused"
)

// PathFallback is the handling path of turns answered by the backend.
const PathFallback = "fallback"

// Turn is one utterance-to-response cycle.
type Turn struct {
	ID       string
	Raw      string
	Cleaned  string
	Path     string // skill name, PathFallback, or empty when never routed
	Outcome  Outcome
	Reason   string // why an ignored turn produced nothing
	Response string
	Err      error
	States   []State
	Started  time.Time
	Finished time.Time
}

// Emits reports whether the turn has output for the sink.
func (t *Turn) Emits() bool {
	return t.Outcome != OutcomeIgnored && t.Response != ""
}

func (t *Turn) enter(s State) {
	t.States = append(t.States, s)
}

func (t *Turn) Duration() time.Duration {
	return t.Finished.Sub(t.Started)
}
