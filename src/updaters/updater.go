package updaters

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"sp2any/src/config"
	"sp2any/src/plurality"
)

// StatusKind is one of the four UpdaterStatus variants (spec §3).
type StatusKind int

const (
	Disabled StatusKind = iota
	Starting
	Running
	ErrorKind
)

// Status is the observable state of one destination for one user.
type Status struct {
	Kind    StatusKind
	Message string // only meaningful when Kind == ErrorKind
}

// MarshalJSON renders Status per the bridge wire protocol (spec §6): a bare
// string for Disabled/Running/Starting, or {"Error": "..."} otherwise.
func (s Status) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case Disabled:
		return json.Marshal("Disabled")
	case Starting:
		return json.Marshal("Starting")
	case Running:
		return json.Marshal("Running")
	case ErrorKind:
		return json.Marshal(map[string]string{"Error": s.Message})
	default:
		return nil, fmt.Errorf("updaters: unknown status kind %d", s.Kind)
	}
}

// UnmarshalJSON accepts both wire shapes.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		switch str {
		case "Disabled":
			*s = Status{Kind: Disabled}
		case "Starting":
			*s = Status{Kind: Starting}
		case "Running":
			*s = Status{Kind: Running}
		default:
			return fmt.Errorf("updaters: unknown status string %q", str)
		}
		return nil
	}
	var obj struct {
		Error string `json:"Error"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = Status{Kind: ErrorKind, Message: obj.Error}
	return nil
}

// Updater is the common operation surface every destination implements
// (spec §4.4, design note "Sum types across destinations" — dispatch is
// explicit per concrete type, this interface is the shared contract).
type Updater interface {
	// Setup is called once at pipeline start.
	Setup(ctx context.Context, cfg config.ForUpdater) error
	// Update is called for each resolved fronter list.
	Update(ctx context.Context, cfg config.ForUpdater, fronters []plurality.Fronter) error
	// Status derives the observable status from the disabled flag and the
	// last operation's error.
	Status() Status
}

// state is embedded by every concrete updater: it tracks the disabled
// flag, the starting phase, and the last error, and derives Status from
// them per spec §4.4 ("absence of error after a successful call clears
// it... Starting is reported between setup start and first status
// resolution").
type state struct {
	mu       sync.Mutex
	disabled bool
	starting bool
	lastErr  error
}

func newState() *state {
	return &state{starting: true}
}

func (s *state) setDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = disabled
}

func (s *state) beginSetup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = true
}

func (s *state) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	s.lastErr = err
}

func (s *state) status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return Status{Kind: Disabled}
	}
	if s.starting {
		return Status{Kind: Starting}
	}
	if s.lastErr != nil {
		return Status{Kind: ErrorKind, Message: s.lastErr.Error()}
	}
	return Status{Kind: Running}
}
