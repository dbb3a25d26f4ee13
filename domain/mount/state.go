// Package mount models the lifecycle of content mounted into a slot.
package mount

import (
	"errors"
	"fmt"

	"github.com/artpar/fedshell/domain/remote"
)

// Phase is the lifecycle phase of a mount.
type Phase int

// Mount phases.
const (
	Loading Phase = iota
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText renders the phase name in JSON responses.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "loading":
		*p = Loading
	case "ready":
		*p = Ready
	case "failed":
		*p = Failed
	default:
		return fmt.Errorf("unknown mount phase %q", text)
	}
	return nil
}

// ErrInvalidTransition is returned for transitions the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid mount transition")

// State is a snapshot of a mount (value type).
type State struct {
	Phase      Phase           `json:"phase"`
	Remote     string          `json:"remote"`
	Generation uint64          `json:"generation"`
	Strategy   remote.Strategy `json:"strategy,omitempty"` // Set when Ready
	Degraded   bool            `json:"degraded,omitempty"` // Ready, but a preferred stage failed
	Err        string          `json:"error,omitempty"`    // Set iff Failed
}

// Begin starts a new mount attempt. Any phase may begin a new attempt.
func Begin(gen uint64, name string) State {
	return State{Phase: Loading, Remote: name, Generation: gen}
}

// Settle moves a Loading state to Ready using the loaded result.
func (s State) Settle(loaded remote.Loaded) (State, error) {
	if s.Phase != Loading {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, Ready)
	}
	s.Phase = Ready
	s.Strategy = loaded.Strategy
	s.Degraded = loaded.Degraded()
	s.Err = ""
	return s, nil
}

// Fail moves a Loading state to Failed with the given detail.
func (s State) Fail(err error) (State, error) {
	if s.Phase != Loading {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, Failed)
	}
	s.Phase = Failed
	s.Err = "unknown error"
	if err != nil {
		s.Err = err.Error()
	}
	return s, nil
}
