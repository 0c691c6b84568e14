package mgmt

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vir/yate-sub002/internal/logging"
	"github.com/vir/yate-sub002/sccp"
	"github.com/vir/yate-sub002/sccp/params"
)

// Sender is the narrow surface Manager consumes from its owning SS7SCCP: it
// sends SCMG-carrying UDT payloads and fans management notifications out to
// every attached local user.
type Sender interface {
	SendMessage(payload []byte, p *sccp.ParamList) error
	Broadcast(kind sccp.ManagementNotifyType, p *sccp.ParamList)
}

// Manager is the per-SCCP management singleton (spec.md §4.5): the
// monitored-remote list, monitored-local-subsystem list, concerned-peer
// list, and active SST list. It attaches to an sccp.SCCP as an ordinary
// SCCPUser bound at SSN 1.
type Manager struct {
	PCType      params.PointCodeType
	LocalPC     params.PointCode
	Sender      Sender
	AutoMonitor bool

	mu        sync.RWMutex
	remotes   map[string]*SccpRemote
	locals    map[uint8]*SccpLocalSubsystem
	concerned []params.PointCode
	ssts      map[string]*SubsystemStatusTest

	log zerolog.Logger
}

// ManagementSSN is the fixed subsystem number SCCP Management occupies on
// both ends of a dialogue (spec.md §4.5).
const ManagementSSN uint8 = 1

// NewManager builds a Manager for the given point-code variant, bound to
// localPC, sending through sender.
func NewManager(pcType params.PointCodeType, localPC params.PointCode, sender Sender) *Manager {
	return &Manager{
		PCType:  pcType,
		LocalPC: localPC,
		Sender:  sender,
		remotes: make(map[string]*SccpRemote),
		locals:  make(map[uint8]*SccpLocalSubsystem),
		ssts:    make(map[string]*SubsystemStatusTest),
		log:     logging.Component("mgmt"),
	}
}

func (m *Manager) SSN() uint8 { return ManagementSSN }

// AddLocalSubsystem registers a local SSN with its coordinated-withdrawal
// backup list.
func (m *Manager) AddLocalSubsystem(ssn uint8, backups []params.PointCode) *SccpLocalSubsystem {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := newSccpLocalSubsystem(ssn, backups)
	m.locals[ssn] = l
	return l
}

func (m *Manager) local(ssn uint8) *SccpLocalSubsystem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locals[ssn]
}

// Concern adds pc to the list of peers notified on local-subsystem state
// change.
func (m *Manager) Concern(pc params.PointCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.concerned {
		if p.Equal(pc) {
			return
		}
	}
	m.concerned = append(m.concerned, pc)
}

func (m *Manager) remote(pc params.PointCode, create bool) *SccpRemote {
	key := pc.String()
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.remotes[key]
	if !ok {
		if !create && !m.AutoMonitor {
			return nil
		}
		r = newSccpRemote(pc)
		m.remotes[key] = r
	}
	return r
}

func sstKey(pc params.PointCode, ssn uint8) string {
	return pc.String() + ":" + strconv.Itoa(int(ssn))
}

func (m *Manager) startSST(pc params.PointCode, ssn uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ssts[sstKey(pc, ssn)] = &SubsystemStatusTest{
		Remote:   pc,
		SSN:      ssn,
		Interval: DefaultSSTInterval,
		Next:     time.Now().Add(DefaultSSTInterval),
	}
}

func (m *Manager) stopSST(pc params.PointCode, ssn uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ssts, sstKey(pc, ssn))
}

func (m *Manager) stopAllSSTsExceptManagement(pc params.PointCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.ssts {
		if t.Remote.Equal(pc) && t.SSN != ManagementSSN {
			delete(m.ssts, k)
		}
	}
}

func (m *Manager) stopAllSSTs(pc params.PointCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.ssts {
		if t.Remote.Equal(pc) {
			delete(m.ssts, k)
		}
	}
}

// sendSCMG builds and sends one SCMG message, addressed SSN1-to-SSN1.
func (m *Manager) sendSCMG(typ SCMGType, affectedSSN uint8, affectedPC, to params.PointCode) error {
	msg := NewSCMG(typ, affectedSSN, affectedPC, 0)
	b, err := msg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("mgmt: encode %s: %w", typ, err)
	}
	localPC := m.LocalPC
	toSSN := ManagementSSN
	p := &sccp.ParamList{
		CalledPartyAddress:  &params.PartyAddress{Type: m.PCType, Routing: params.RouteOnSSN, PC: &to, SSN: &toSSN},
		CallingPartyAddress: &params.PartyAddress{Type: m.PCType, Routing: params.RouteOnSSN, PC: &localPC, SSN: &toSSN},
		ProtocolClass:       0,
	}
	return m.Sender.SendMessage(b, p)
}

// ReceivedData implements sccp.SCCPUser: decode and dispatch one incoming
// SCMG message (spec.md §4.5).
func (m *Manager) ReceivedData(payload []byte, p *sccp.ParamList) sccp.UserResult {
	scmg, err := ParseSCMG(payload, m.PCType)
	if err != nil {
		m.log.Warn().Err(err).Msg("dropping undecodable SCMG")
		return sccp.UserRejected
	}
	var from params.PointCode
	if p != nil && p.CallingPartyAddress != nil && p.CallingPartyAddress.PC != nil {
		from = *p.CallingPartyAddress.PC
	}
	switch scmg.Type {
	case SCMGTypeSSA:
		m.handleSSA(from, scmg.AffectedSSN)
	case SCMGTypeSSP:
		m.handleSSP(from, scmg.AffectedSSN)
	case SCMGTypeSST:
		m.handleSST(from, scmg.AffectedSSN)
	case SCMGTypeSOR:
		m.handleSOR(from, scmg)
	case SCMGTypeSOG:
		m.handleSOG(from, scmg)
	case SCMGTypeSSC:
		// congestion: reserved, no-op (spec.md §4.5).
	case SCMGTypeSBR, SCMGTypeSNR, SCMGTypeSRT:
		// ANSI backup-routing trio: left as stubs, no defined state-machine
		// effect (spec.md §9 Design Note).
		m.log.Debug().Str("type", scmg.Type.String()).Msg("SCMG stub message received, no action taken")
	default:
		return sccp.UserRejected
	}
	return sccp.UserAccepted
}

// NotifyData implements sccp.SCCPUser: a service message (UDTS/XUDTS/
// LUDTS) reporting on an SCMG this Manager previously sent. There is
// nothing actionable to do with a failed SCMG delivery beyond recording
// it (original_source/libs/ysig/sccp.cpp:4075-4077 notifyMessage: "Do not
// bother to verify the return code, because there is nothing that we can
// do for service messages").
func (m *Manager) NotifyData(payload []byte, p *sccp.ParamList) {
	cause, _ := p.Get("ReturnCause")
	m.log.Debug().Str("cause", cause).Msg("SCMG delivery reported as undelivered")
}

func (m *Manager) ManagementNotify(kind sccp.ManagementNotifyType, p *sccp.ParamList) {
	if kind == sccp.NotifySubsystemStatus {
		m.log.Debug().Msg("received subsystem status notification")
	}
}

func statusParams(pc params.PointCode, ssn uint8, allowed bool) *sccp.ParamList {
	p := &sccp.ParamList{RemotePC: &pc}
	p.Set("ssn", strconv.Itoa(int(ssn)))
	if allowed {
		p.Set("state", "allowed")
	} else {
		p.Set("state", "prohibited")
	}
	return p
}

// handleSSA implements the incoming-SSA transition (spec.md §4.5).
func (m *Manager) handleSSA(from params.PointCode, ssn uint8) {
	r := m.remote(from, true)
	sub := r.Subsystem(ssn)
	if !sub.IsProhibited() && sub.State != StateUnknown {
		return
	}
	sub.setState(StateAllowed)
	m.stopSST(from, ssn)
	m.Sender.Broadcast(sccp.NotifyStatusIndication, statusParams(from, ssn, true))
	m.notifyConcerned(SCMGTypeSSA, from, ssn)
}

// handleSSP implements the incoming-SSP transition (spec.md §4.5).
func (m *Manager) handleSSP(from params.PointCode, ssn uint8) {
	r := m.remote(from, true)
	sub := r.Subsystem(ssn)
	if sub.IsAllowed() || sub.State == StateUnknown {
		sub.setState(StateProhibited)
		m.startSST(from, ssn)
		m.Sender.Broadcast(sccp.NotifyStatusIndication, statusParams(from, ssn, false))
		m.notifyConcerned(SCMGTypeSSP, from, ssn)
	}
}

// handleSST responds to a subsystem status test for one of our local
// subsystems (spec.md §4.5).
func (m *Manager) handleSST(from params.PointCode, ssn uint8) {
	l := m.local(ssn)
	if l == nil {
		return
	}
	l.mu.Lock()
	state := l.State
	l.mu.Unlock()
	if state != StateAllowed {
		return
	}
	if err := m.sendSCMG(SCMGTypeSSA, ssn, m.LocalPC, from); err != nil {
		m.log.Warn().Err(err).Msg("failed to respond to SST")
	}
}

// handleSOR passes a backup request addressed to one of our local
// subsystems on to local users as NotifyCoordinateRequest; nothing is
// recorded here, and the owning application decides whether to
// GrantBackup.
func (m *Manager) handleSOR(from params.PointCode, scmg *SCMG) {
	m.Sender.Broadcast(sccp.NotifyCoordinateRequest, statusParams(from, scmg.AffectedSSN, false))
}

func (m *Manager) handleSOG(from params.PointCode, scmg *SCMG) {
	l := m.local(scmg.AffectedSSN)
	if l == nil {
		return
	}
	l.mu.Lock()
	if l.Granted == nil {
		l.Granted = make(map[string]bool)
	}
	l.Granted[from.String()] = true
	l.mu.Unlock()
}

// notifyConcerned propagates an SSA/SSP about a remote subsystem to every
// concerned peer (spec.md §4.5).
func (m *Manager) notifyConcerned(typ SCMGType, affectedPC params.PointCode, ssn uint8) {
	m.mu.RLock()
	peers := append([]params.PointCode(nil), m.concerned...)
	m.mu.RUnlock()
	for _, peer := range peers {
		if err := m.sendSCMG(typ, ssn, affectedPC, peer); err != nil {
			m.log.Warn().Err(err).Msg("failed to notify concerned peer")
		}
	}
}

// GrantBackup sends SOG to the requesting peer, granting it as a backup for
// ssn.
func (m *Manager) GrantBackup(ssn uint8, to params.PointCode) error {
	return m.sendSCMG(SCMGTypeSOG, ssn, m.LocalPC, to)
}

// CoordinateRequest starts the coordinated-withdrawal handshake for a local
// subsystem (spec.md §4.5).
func (m *Manager) CoordinateRequest(ssn uint8) error {
	l := m.local(ssn)
	if l == nil {
		return fmt.Errorf("mgmt: unknown local subsystem %d", ssn)
	}
	l.mu.Lock()
	if l.State != StateAllowed {
		l.mu.Unlock()
		return fmt.Errorf("mgmt: local subsystem %d not allowed", ssn)
	}
	l.State = StateWaitForGrant
	l.Granted = make(map[string]bool)
	l.CoordDeadline = time.Now().Add(DefaultCoordInterval)
	backups := append([]params.PointCode(nil), l.Backups...)
	l.mu.Unlock()
	for _, b := range backups {
		if err := m.sendSCMG(SCMGTypeSOR, ssn, m.LocalPC, b); err != nil {
			m.log.Warn().Err(err).Msg("failed to send SOR")
		}
	}
	return nil
}

// StatusRequest applies a direct in-service/out-of-service transition for a
// local subsystem (spec.md §4.5).
func (m *Manager) StatusRequest(ssn uint8, inService bool) error {
	l := m.local(ssn)
	if l == nil {
		return fmt.Errorf("mgmt: unknown local subsystem %d", ssn)
	}
	l.mu.Lock()
	if inService {
		l.State = StateAllowed
	} else {
		l.State = StateProhibited
	}
	l.mu.Unlock()
	typ := SCMGTypeSSP
	if inService {
		typ = SCMGTypeSSA
	}
	m.broadcastLocalState(ssn, typ, inService)
	return nil
}

func (m *Manager) broadcastLocalState(ssn uint8, typ SCMGType, allowed bool) {
	m.mu.RLock()
	peers := append([]params.PointCode(nil), m.concerned...)
	m.mu.RUnlock()
	for _, peer := range peers {
		if err := m.sendSCMG(typ, ssn, m.LocalPC, peer); err != nil {
			m.log.Warn().Err(err).Msg("failed to broadcast local subsystem state")
		}
	}
	m.Sender.Broadcast(sccp.NotifyStatusIndication, statusParams(m.LocalPC, ssn, allowed))
}

// UPU handles an MTP user-part-unavailable report for (pc, ssn) (spec.md
// §4.5).
func (m *Manager) UPU(pc params.PointCode, ssn uint8, cause sccp.UPUCause) {
	r := m.remote(pc, true)
	r.Subsystem(ssn).setState(StateProhibited)
	if cause == sccp.UPUUnequipped {
		m.stopAllSSTs(pc)
		return
	}
	m.startSST(pc, ManagementSSN)
}

// RouteStateChanged applies an MTP route-state transition for pc (spec.md
// §4.5).
func (m *Manager) RouteStateChanged(pc params.PointCode, newState sccp.RouteState) {
	r := m.remote(pc, true)
	r.mu.Lock()
	old := r.RouteState
	r.RouteState = newState
	r.mu.Unlock()
	if old == newState {
		return
	}
	switch newState {
	case sccp.RouteAllowed:
		m.Sender.Broadcast(sccp.NotifyPointCodeStatusIndication, accessibilityParams(pc, true))
		m.stopSST(pc, ManagementSSN)
		if m.PCType == params.PointCodeANSI {
			for _, sub := range r.subsystemsSnapshot() {
				m.Sender.Broadcast(sccp.NotifyStatusIndication, statusParams(pc, sub.SSN, true))
			}
		}
	case sccp.RouteProhibited:
		m.Sender.Broadcast(sccp.NotifyPointCodeStatusIndication, accessibilityParams(pc, false))
		m.stopAllSSTsExceptManagement(pc)
		if m.PCType == params.PointCodeANSI {
			for _, sub := range r.subsystemsSnapshot() {
				m.Sender.Broadcast(sccp.NotifyStatusIndication, statusParams(pc, sub.SSN, false))
			}
		}
	case sccp.RouteCongestion:
		// reserved; no-op (spec.md §4.5).
	}
}

func accessibilityParams(pc params.PointCode, accessible bool) *sccp.ParamList {
	p := &sccp.ParamList{RemotePC: &pc}
	if accessible {
		p.Set("state", "accessible")
	} else {
		p.Set("state", "inaccessible")
	}
	return p
}

// EndOfRestart re-evaluates every monitored remote against the current MTP
// route table and, for each Allowed concerned peer, sends a self-SSA
// (spec.md §4.5).
func (m *Manager) EndOfRestart(getRouteState func(params.PointCode) sccp.RouteState) {
	m.mu.RLock()
	peers := append([]params.PointCode(nil), m.concerned...)
	remotes := make([]*SccpRemote, 0, len(m.remotes))
	for _, r := range m.remotes {
		remotes = append(remotes, r)
	}
	m.mu.RUnlock()
	for _, peer := range peers {
		if getRouteState(peer) == sccp.RouteAllowed {
			if err := m.sendSCMG(SCMGTypeSSA, ManagementSSN, m.LocalPC, peer); err != nil {
				m.log.Warn().Err(err).Msg("failed to send end-of-restart self-SSA")
			}
		}
	}
	for _, r := range remotes {
		m.RouteStateChanged(r.PC, getRouteState(r.PC))
	}
}

// TimerTick drives SST retransmission and local coordination timers; call
// periodically from the shared timer-tick thread (spec.md §5).
func (m *Manager) TimerTick(now time.Time) {
	m.fireSSTs(now)
	m.checkLocalTimers(now)
}

func (m *Manager) fireSSTs(now time.Time) {
	m.mu.Lock()
	due := make([]*SubsystemStatusTest, 0)
	for _, t := range m.ssts {
		if !now.Before(t.Next) {
			due = append(due, t)
		}
	}
	m.mu.Unlock()
	for _, t := range due {
		if err := m.sendSCMG(SCMGTypeSST, t.SSN, t.Remote, t.Remote); err != nil {
			m.log.Warn().Err(err).Msg("failed to send SST")
		}
		t.Interval *= 2
		if t.Interval > MaxSSTInterval {
			t.Interval = MaxSSTInterval
		}
		t.Next = now.Add(t.Interval)
	}
}

func (m *Manager) checkLocalTimers(now time.Time) {
	m.mu.RLock()
	locals := make([]*SccpLocalSubsystem, 0, len(m.locals))
	for _, l := range m.locals {
		locals = append(locals, l)
	}
	m.mu.RUnlock()
	for _, l := range locals {
		m.checkLocalTimer(l, now)
	}
}

func (m *Manager) checkLocalTimer(l *SccpLocalSubsystem, now time.Time) {
	l.mu.Lock()
	switch {
	case l.State == StateWaitForGrant && !l.CoordDeadline.IsZero() && !now.Before(l.CoordDeadline):
		l.CoordDeadline = time.Time{}
		allGranted := true
		for _, b := range l.Backups {
			if !l.Granted[b.String()] {
				allGranted = false
				break
			}
		}
		ssn := l.SSN
		if allGranted {
			l.State = StateIgnoreTests
			l.IgnoreDeadline = now.Add(DefaultIgnoreTestsInterval)
			l.mu.Unlock()
			m.Sender.Broadcast(sccp.NotifyCoordinateConfirm, confirmParams(ssn, true))
			m.broadcastLocalState(ssn, SCMGTypeSSP, false)
		} else {
			l.State = StateAllowed
			l.mu.Unlock()
			m.Sender.Broadcast(sccp.NotifyCoordinateConfirm, confirmParams(ssn, false))
		}
	case l.State == StateIgnoreTests && !l.IgnoreDeadline.IsZero() && !now.Before(l.IgnoreDeadline):
		l.IgnoreDeadline = time.Time{}
		l.State = StateProhibited
		l.mu.Unlock()
	default:
		l.mu.Unlock()
	}
}

func confirmParams(ssn uint8, granted bool) *sccp.ParamList {
	p := &sccp.ParamList{}
	p.Set("ssn", strconv.Itoa(int(ssn)))
	if granted {
		p.Set("result", "granted")
	} else {
		p.Set("result", "denied")
	}
	return p
}
