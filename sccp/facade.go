package sccp

import "sync"

// UserResult is what an SCCPUser reports back from ReceivedData
// (spec.md §6.2).
type UserResult int

const (
	UserAccepted UserResult = iota
	UserRejected
	UserUnequipped
	UserFailure
)

// ManagementNotifyType enumerates the notifications a user may receive
// from management (spec.md §6.2).
type ManagementNotifyType int

const (
	NotifyCoordinateRequest ManagementNotifyType = iota
	NotifyCoordinateResponse
	NotifyStatusIndication
	NotifyStatusRequest
	NotifyPointCodeStatusIndication
	NotifySubsystemStatus
	NotifyTraficIndication
	NotifyCoordinateIndication
	NotifyCoordinateConfirm
)

// SCCPUser is the upper-layer user binding (spec.md §3.1, §6.2): it
// attaches to an SCCP, receives decoded payloads, and may issue sends of
// its own through the SCCP it is attached to.
type SCCPUser interface {
	// SSN is the subsystem number this user represents.
	SSN() uint8
	ReceivedData(payload []byte, p *ParamList) UserResult
	NotifyData(payload []byte, p *ParamList)
	ManagementNotify(kind ManagementNotifyType, p *ParamList)
}

// SCCP is the abstract facade exposed to upper-layer protocols
// (spec.md §2): it accepts send requests, dispatches incoming payloads to
// registered users, and hosts a pluggable GTT. The concrete wire/routing
// logic lives in SS7SCCP, which embeds SCCP.
type SCCP struct {
	Name string
	GTT  GTT

	usersMu sync.RWMutex // deliberately separate from any routing lock (spec.md §5)
	users   map[uint8]SCCPUser
}

// NewSCCP builds a facade with no GTT attached (NoGTT{}).
func NewSCCP(name string) *SCCP {
	return &SCCP{Name: name, GTT: NoGTT{}, users: make(map[uint8]SCCPUser)}
}

// Attach registers a user under its own SSN.
func (s *SCCP) Attach(u SCCPUser) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	s.users[u.SSN()] = u
}

// Detach removes a user by SSN.
func (s *SCCP) Detach(ssn uint8) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	delete(s.users, ssn)
}

// User looks up a registered user by SSN.
func (s *SCCP) User(ssn uint8) (SCCPUser, bool) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	u, ok := s.users[ssn]
	return u, ok
}

// Broadcast delivers a management notification to every attached user
// (spec.md §4.5: point-code/subsystem status fan-out to local users).
func (s *SCCP) Broadcast(kind ManagementNotifyType, p *ParamList) {
	s.usersMu.RLock()
	users := make([]SCCPUser, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.usersMu.RUnlock()
	for _, u := range users {
		u.ManagementNotify(kind, p)
	}
}

// Registry holds every SCCP instance in the host process, keyed by name,
// so GTT hand-off (spec.md §4.4, §4.6) can address a sibling instance
// without touching MTP.
type Registry struct {
	mu  sync.RWMutex
	all map[string]*SS7SCCP
}

func NewRegistry() *Registry { return &Registry{all: make(map[string]*SS7SCCP)} }

func (r *Registry) Register(s *SS7SCCP) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all[s.Name] = s
}

func (r *Registry) Lookup(name string) (*SS7SCCP, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.all[name]
	return s, ok
}
