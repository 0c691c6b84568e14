package mgmt

import (
	"sync"
	"time"

	"github.com/vir/yate-sub002/sccp"
	"github.com/vir/yate-sub002/sccp/params"
)

// SubsystemState is the reachability state of a local or remote subsystem
// (spec.md §3.1).
type SubsystemState int

const (
	StateUnknown SubsystemState = iota
	StateAllowed
	StateProhibited
	StateWaitForGrant
	StateIgnoreTests
)

func (s SubsystemState) String() string {
	switch s {
	case StateAllowed:
		return "Allowed"
	case StateProhibited:
		return "Prohibited"
	case StateWaitForGrant:
		return "WaitForGrant"
	case StateIgnoreTests:
		return "IgnoreTests"
	default:
		return "Unknown"
	}
}

// Timer defaults (spec.md §4.5).
const (
	DefaultSSTInterval        = 5 * time.Second
	MinSSTInterval            = 5 * time.Second
	MaxSSTInterval            = 20 * time.Minute // original MAX_INFO_TIMER = 1200000 ms
	DefaultCoordInterval      = 1 * time.Second
	DefaultIgnoreTestsInterval = 1 * time.Second
)

// SubsystemStatusTest tracks one (remote point code, SSN) pair under active
// periodic probing; the interval doubles on each expiry, capped at
// MaxSSTInterval (spec.md §3.1, §4.5).
type SubsystemStatusTest struct {
	Remote   params.PointCode
	SSN      uint8
	Interval time.Duration
	Next     time.Time
}

// SccpSubsystem is one SSN entry inside a SccpRemote.
type SccpSubsystem struct {
	mu    sync.RWMutex
	SSN   uint8
	State SubsystemState
}

func newSccpSubsystem(ssn uint8) *SccpSubsystem {
	return &SccpSubsystem{SSN: ssn, State: StateUnknown}
}

func (e *SccpSubsystem) IsAllowed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.State == StateAllowed
}

func (e *SccpSubsystem) IsProhibited() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.State == StateProhibited
}

func (e *SccpSubsystem) setState(s SubsystemState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.State = s
}

// SccpRemote owns a point code, its known subsystems, and the overall MTP
// reachability of that point code (spec.md §3.1).
type SccpRemote struct {
	mu         sync.RWMutex
	PC         params.PointCode
	RouteState sccp.RouteState
	Subsystems map[uint8]*SccpSubsystem
}

func newSccpRemote(pc params.PointCode) *SccpRemote {
	return &SccpRemote{PC: pc, Subsystems: make(map[uint8]*SccpSubsystem)}
}

// Subsystem returns (creating if absent) the entry for ssn.
func (r *SccpRemote) Subsystem(ssn uint8) *SccpSubsystem {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Subsystems[ssn]
	if !ok {
		s = newSccpSubsystem(ssn)
		r.Subsystems[ssn] = s
	}
	return s
}

func (r *SccpRemote) subsystemsSnapshot() []*SccpSubsystem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*SccpSubsystem, 0, len(r.Subsystems))
	for _, s := range r.Subsystems {
		out = append(out, s)
	}
	return out
}

// SccpLocalSubsystem is a local SSN with its coordination state (spec.md
// §3.1): a coordination timer, an ignore-tests timer, and the set of
// pending backup grants for a coordinated withdrawal.
type SccpLocalSubsystem struct {
	mu             sync.Mutex
	SSN            uint8
	State          SubsystemState
	Backups        []params.PointCode
	Granted        map[string]bool
	CoordDeadline  time.Time
	IgnoreDeadline time.Time
}

func newSccpLocalSubsystem(ssn uint8, backups []params.PointCode) *SccpLocalSubsystem {
	return &SccpLocalSubsystem{SSN: ssn, State: StateAllowed, Backups: backups}
}
