package sccp

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vir/yate-sub002/internal/logging"
	"github.com/vir/yate-sub002/sccp/params"
)

// Config bundles SS7SCCP construction parameters (spec.md §6.4: "consumed
// from a parameter bundle at construction").
type Config struct {
	Name                 string
	PCType               params.PointCodeType
	LocalPC              params.PointCode
	SegmentationTimeout  time.Duration // clamped [5s,20s], default 10s
	IgnoreUnknownDigits  bool
	DefaultImportance    uint8 // ITU default 4 for connectionless, 3 for service
}

// Counters tracks the cumulative status exposed by Control (spec.md §6.5).
type Counters struct {
	mu               sync.Mutex
	Sent             uint64
	Received         uint64
	Errors           uint64
	GTTAttempts      uint64
	GTTFailures      uint64
	ByCause          map[ReturnCause]uint64
	ByType           map[MsgType]uint64
}

func newCounters() *Counters {
	return &Counters{ByCause: make(map[ReturnCause]uint64), ByType: make(map[MsgType]uint64)}
}

func (c *Counters) incSent(t MsgType)     { c.mu.Lock(); c.Sent++; c.ByType[t]++; c.mu.Unlock() }
func (c *Counters) incReceived(t MsgType) { c.mu.Lock(); c.Received++; c.ByType[t]++; c.mu.Unlock() }
func (c *Counters) incError()             { c.mu.Lock(); c.Errors++; c.mu.Unlock() }
func (c *Counters) incGTTAttempt()        { c.mu.Lock(); c.GTTAttempts++; c.mu.Unlock() }
func (c *Counters) incGTTFailure()        { c.mu.Lock(); c.GTTFailures++; c.mu.Unlock() }
func (c *Counters) incCause(cause ReturnCause) {
	c.mu.Lock()
	c.ByCause[cause]++
	c.mu.Unlock()
}

// SS7SCCP is the concrete SCCP implementation (spec.md §2): it owns the
// codec, segmentation engine, reassembly table, routing logic, and the
// service-message ("message return") path, sitting above an MTPTransport.
type SS7SCCP struct {
	*SCCP

	Config   Config
	MTP      MTPTransport
	Registry *Registry

	reassembly *ReassemblyTable
	counters   *Counters
	log        zerolog.Logger

	mu          sync.Mutex
	lastSLS     uint8
	printMsgs   bool
	extendedMon bool
	exiting     bool
}

// NewSS7SCCP builds an SS7SCCP bound to the given MTP transport and
// registry (pass a shared *Registry for GTT local hand-off to work).
func NewSS7SCCP(cfg Config, mtp MTPTransport, reg *Registry) *SS7SCCP {
	s := &SS7SCCP{
		SCCP:       NewSCCP(cfg.Name),
		Config:     cfg,
		MTP:        mtp,
		Registry:   reg,
		reassembly: NewReassemblyTable(cfg.SegmentationTimeout),
		counters:   newCounters(),
		log:        logging.Component("sccp"),
	}
	if reg != nil {
		reg.Register(s)
	}
	return s
}

// SendMessage is the user-facing send entry point (spec.md §4.4, §6.2).
func (s *SS7SCCP) SendMessage(payload []byte, p *ParamList) error {
	if p.Importance == nil {
		v := s.Config.DefaultImportance
		p.Importance = &v
	} else if *p.Importance > 6 {
		v := uint8(6)
		p.Importance = &v
	}
	if p.HopCounter == nil {
		v := uint8(15)
		p.HopCounter = &v
	}
	if s.Config.PCType == params.PointCodeANSI {
		p.Importance = nil // ANSI UDT drops Importance (spec.md §4.4)
	}

	dpc, err := s.resolveDestination(p)
	if err != nil {
		s.counters.incError()
		return err
	}
	if handoff, ok := p.Get("sccp"); ok {
		if sib, ok := s.Registry.Lookup(handoff); ok && sib != s {
			p2 := p.Clone()
			delete(p2.Overflow, "sccp")
			p2.LocalPC = nil
			if p2.CallingPartyAddress != nil {
				cg := *p2.CallingPartyAddress
				cg.PC = nil
				p2.CallingPartyAddress = &cg
			}
			return sib.ReceiveLocalHandoff(payload, p2)
		}
	}

	opc := s.Config.LocalPC
	if p.LocalPC != nil {
		opc = *p.LocalPC
	}
	sls := s.chooseSLS(p)
	label := RoutingLabel{DPC: dpc, OPC: opc, SLS: sls}

	return s.segmentAndSend(payload, p, label)
}

// ReceiveLocalHandoff is invoked by a sibling SS7SCCP instance in the same
// Registry when GTT names this instance as the hand-off target
// (spec.md §4.4 scenario S2): no MTP traffic is generated.
func (s *SS7SCCP) ReceiveLocalHandoff(payload []byte, p *ParamList) error {
	return s.SendMessage(payload, p)
}

// resolveDestination implements spec.md §4.4 step 1: explicit RemotePC,
// then CalledPartyAddress.PC, then GTT.
func (s *SS7SCCP) resolveDestination(p *ParamList) (params.PointCode, error) {
	if p.RemotePC != nil {
		return *p.RemotePC, nil
	}
	if p.CalledPartyAddress != nil && p.CalledPartyAddress.PC != nil {
		return *p.CalledPartyAddress.PC, nil
	}
	s.counters.incGTTAttempt()
	route, ok := s.GTT.RouteGT(p)
	if !ok {
		s.counters.incGTTFailure()
		return params.PointCode{}, fmt.Errorf("sccp: %w", errNoTranslation)
	}
	if route.RewrittenCalledParty != nil && p.CalledPartyAddress != nil {
		applyRewrite(p.CalledPartyAddress, route.RewrittenCalledParty)
	}
	if route.SCCP != "" {
		p.Set("sccp", route.SCCP)
	}
	if route.RemotePC != nil {
		return *route.RemotePC, nil
	}
	return params.PointCode{}, fmt.Errorf("sccp: %w", errNoTranslation)
}

func applyRewrite(a *params.PartyAddress, r *ParamListAddressRewrite) {
	if a.GT == nil {
		return
	}
	if r.NumberingPlan != nil {
		a.GT.NumberingPlan = *r.NumberingPlan
	}
	if r.EncodingScheme != nil {
		a.GT.EncodingScheme = *r.EncodingScheme
	}
	if r.SSN != nil {
		a.SSN = r.SSN
	}
	if r.Digits != nil {
		a.GT.Digits = *r.Digits
	}
}

var errNoTranslation = fmt.Errorf("no route: GTT translation failed and no point code was supplied")

func (s *SS7SCCP) chooseSLS(p *ParamList) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.SLS != nil {
		s.lastSLS = *p.SLS
		return *p.SLS
	}
	if p.SequenceControl {
		return s.lastSLS
	}
	s.lastSLS = (s.lastSLS + 1) & 0x0F
	return s.lastSLS
}

// segmentAndSend implements the selection algorithm of spec.md §4.3.
func (s *SS7SCCP) segmentAndSend(payload []byte, p *ParamList, label RoutingLabel) error {
	mtu := 272
	if s.MTP != nil {
		mtu = s.MTP.GetRouteMaxLength(s.Config.PCType, label.DPC)
	}
	overhead := addressOverhead(p)
	limits := LimitsForMTU(mtu, overhead)

	class := p.ProtocolClass
	switch {
	case len(payload) <= limits.UDTMax:
		msg := NewUDT(class, p.ReturnOnError, p.CalledPartyAddress, p.CallingPartyAddress, payload)
		return s.transmit(msg, label, MsgTypeUDT)
	case len(payload) <= limits.XUDTMax:
		msg := &XUDT{
			ProtocolClass: params.NewProtocolClass(class, p.ReturnOnError),
			xudtCommon: xudtCommon{
				HopCounter:  &params.HopCounter{Value: *p.HopCounter},
				addressPair: addressPair{CalledPartyAddress: p.CalledPartyAddress, CallingPartyAddress: p.CallingPartyAddress, Data: params.NewData(payload)},
			},
		}
		return s.transmit(msg, label, MsgTypeXUDT)
	case limits.LUDTMax > 0 && len(payload) <= limits.LUDTMax:
		msg := &LUDT{
			ProtocolClass: params.NewProtocolClass(class, p.ReturnOnError),
			ludtCommon: ludtCommon{
				HopCounter:  &params.HopCounter{Value: *p.HopCounter},
				addressPair: addressPair{CalledPartyAddress: p.CalledPartyAddress, CallingPartyAddress: p.CallingPartyAddress, Data: params.NewData(payload)},
			},
		}
		return s.transmit(msg, label, MsgTypeLUDT)
	default:
		return s.sendSegmented(payload, p, label, limits)
	}
}

func addressOverhead(p *ParamList) int {
	n := 0
	if p.CalledPartyAddress != nil {
		n += p.CalledPartyAddress.MarshalLen() + 1
	}
	if p.CallingPartyAddress != nil {
		n += p.CallingPartyAddress.MarshalLen() + 1
	}
	return n
}

// sendSegmented implements the segmentation fallback of spec.md §4.3.
func (s *SS7SCCP) sendSegmented(payload []byte, p *ParamList, label RoutingLabel, limits RouteLimits) error {
	dataLen := limits.XUDTMax
	if dataLen <= 0 {
		return ErrSegmentationFailure
	}
	chunks, err := SegmentPayload(payload, dataLen)
	if err != nil {
		return err
	}
	slr := NewSegmentationLocalReference()
	class := p.ProtocolClass
	if class == 0 {
		class = 1 // in-sequence delivery for the duration of a segmented stream
	}
	remaining := uint8(len(chunks) - 1)
	for i, chunk := range chunks {
		seg := params.Segmentation{
			FirstSegment:         i == 0,
			ProtocolClass:        uint8(class),
			RemainingSegments:    remaining,
			SegmentationLocalRef: slr,
		}
		msgReturn := i == 0 && p.MessageReturn
		msg := &XUDT{
			ProtocolClass: params.NewProtocolClass(class, p.ReturnOnError),
			xudtCommon: xudtCommon{
				HopCounter:  &params.HopCounter{Value: *p.HopCounter},
				addressPair: addressPair{CalledPartyAddress: p.CalledPartyAddress, CallingPartyAddress: p.CallingPartyAddress, Data: params.NewData(chunk)},
				Optional:    &ParamList{Segmentation: &seg, MessageReturn: msgReturn},
			},
		}
		if err := s.transmit(msg, label, MsgTypeXUDT); err != nil {
			// spec.md §9 Open Question: an encode failure aborts the
			// whole stream without recalling previously transmitted
			// segments.
			return err
		}
		if remaining > 0 {
			remaining--
		}
	}
	return nil
}

func (s *SS7SCCP) transmit(msg Message, label RoutingLabel, t MsgType) error {
	b, err := msg.MarshalBinary()
	if err != nil {
		s.counters.incError()
		return fmt.Errorf("sccp: encode %s: %w", t, err)
	}
	s.counters.incSent(t)
	if s.MTP == nil {
		return nil
	}
	_, err = s.MTP.TransmitMSU(MSU{Label: label, Payload: b}, label, label.SLS)
	return err
}

// ReceivedMSU is MTP's inbound delivery entry point (spec.md §4.4).
func (s *SS7SCCP) ReceivedMSU(msu MSU, label RoutingLabel, network uint8, sls uint8) MTPReceiveResult {
	if s.exiting {
		return MTPRejected
	}
	if !label.DPC.Equal(s.Config.LocalPC) {
		return MTPRejected
	}
	msg, err := ParseMessage(msu.Payload, s.Config.PCType)
	if err != nil {
		s.counters.incError()
		s.log.Warn().Err(err).Msg("dropping undecodable MSU")
		return MTPRejected
	}
	s.counters.incReceived(msg.MessageType())

	switch m := msg.(type) {
	case *CR:
		s.handleUnexpectedCR(m, label)
		return MTPAccepted
	case *UDT:
		s.deliverOrRoute(m.CalledPartyAddress, m.CallingPartyAddress, m.Data.Value(), m.ProtocolClass.GetProtocolClass(), m.ProtocolClass.HasReturnOption(), nil, nil, label)
		return MTPAccepted
	case *XUDT:
		return s.handleXUDT(m, label)
	case *LUDT:
		return s.handleLUDT(m, label)
	case *UDTS:
		s.dispatchService(m.CalledPartyAddress, m.CallingPartyAddress, m.Data.Value(), m.ReturnCause)
		return MTPAccepted
	case *XUDTS:
		s.dispatchService(m.CalledPartyAddress, m.CallingPartyAddress, m.Data.Value(), m.ReturnCause)
		return MTPAccepted
	case *LUDTS:
		s.dispatchService(m.CalledPartyAddress, m.CallingPartyAddress, m.Data.Value(), m.ReturnCause)
		return MTPAccepted
	default:
		return MTPAccepted
	}
}

func (s *SS7SCCP) handleUnexpectedCR(cr *CR, label RoutingLabel) {
	cref := NewCREF(cr.SourceLocalReference, RefusalUnequippedUser)
	b, err := cref.MarshalBinary()
	if err != nil {
		s.counters.incError()
		return
	}
	reply := RoutingLabel{DPC: label.OPC, OPC: label.DPC, SLS: label.SLS}
	if s.MTP != nil {
		s.MTP.TransmitMSU(MSU{Label: reply, Payload: b}, reply, reply.SLS)
	}
}

func (s *SS7SCCP) handleXUDT(m *XUDT, label RoutingLabel) MTPReceiveResult {
	if m.Optional != nil && m.Optional.Segmentation != nil {
		return s.handleSegment(m, label, m.Optional.Segmentation, m.Optional.MessageReturn)
	}
	s.deliverOrRoute(m.CalledPartyAddress, m.CallingPartyAddress, m.Data.Value(),
		m.ProtocolClass.GetProtocolClass(), m.ProtocolClass.HasReturnOption(), optionalMessageReturn(m.Optional), m.HopCounter, label)
	return MTPAccepted
}

func (s *SS7SCCP) handleLUDT(m *LUDT, label RoutingLabel) MTPReceiveResult {
	if m.Optional != nil && m.Optional.Segmentation != nil {
		return s.handleSegment(m, label, m.Optional.Segmentation, m.Optional.MessageReturn)
	}
	s.deliverOrRoute(m.CalledPartyAddress, m.CallingPartyAddress, m.Data.Value(),
		m.ProtocolClass.GetProtocolClass(), m.ProtocolClass.HasReturnOption(), optionalMessageReturn(m.Optional), m.HopCounter, label)
	return MTPAccepted
}

func optionalMessageReturn(p *ParamList) *bool {
	if p == nil {
		return nil
	}
	v := p.MessageReturn
	return &v
}

func (s *SS7SCCP) handleSegment(msg Message, label RoutingLabel, seg *params.Segmentation, msgReturn bool) MTPReceiveResult {
	var cdpa *params.PartyAddress
	var data []byte
	switch m := msg.(type) {
	case *XUDT:
		cdpa = m.CalledPartyAddress
		data = m.Data.Value()
	case *LUDT:
		cdpa = m.CalledPartyAddress
		data = m.Data.Value()
	}
	key := ReassemblyKey{OPC: label.OPC, DPC: label.DPC, CallingPartySubset: callingSubsetKey(cdpa), SegmentationLocalRef: seg.SegmentationLocalRef}
	result, entry := s.reassembly.AddSegment(key, *seg, data, msgReturn, msg, time.Now())
	switch result {
	case ReassembleComplete:
		s.dispatchReassembled(entry, label)
		return MTPAccepted
	case ReassembleRejected:
		s.counters.incError()
		if entry != nil && entry.MessageReturn {
			s.returnService(entry.First, label, CauseSegmentationFailure)
		}
		return MTPAccepted
	default:
		return MTPAccepted
	}
}

func callingSubsetKey(a *params.PartyAddress) string {
	if a == nil {
		return ""
	}
	return a.AddressWithDetails()
}

func (s *SS7SCCP) dispatchReassembled(e *ReassemblyEntry, label RoutingLabel) {
	var cdpa, cgpa *params.PartyAddress
	var class int
	var ret bool
	var hopCounter *params.HopCounter
	switch m := e.First.(type) {
	case *XUDT:
		cdpa, cgpa = m.CalledPartyAddress, m.CallingPartyAddress
		class, ret = m.ProtocolClass.GetProtocolClass(), m.ProtocolClass.HasReturnOption()
		hopCounter = m.HopCounter
	case *LUDT:
		cdpa, cgpa = m.CalledPartyAddress, m.CallingPartyAddress
		class, ret = m.ProtocolClass.GetProtocolClass(), m.ProtocolClass.HasReturnOption()
		hopCounter = m.HopCounter
	}
	s.deliverOrRoute(cdpa, cgpa, e.Payload, class, ret, &e.MessageReturn, hopCounter, label)
}

// deliverOrRoute implements spec.md §4.4's combined GT-rerouting and
// dispatch-by-SSN path (original_source/libs/ysig/sccp.cpp:3950-4011
// routeMessage): a called-party address routed on GT and carrying no SSN
// of its own is first run through GTT, with HopCounter decremented and
// checked for each hop; an address routed on SSN, or already resolved to
// one by GTT, is delivered straight to the local user.
func (s *SS7SCCP) deliverOrRoute(cdpa, cgpa *params.PartyAddress, payload []byte, class int, retOnErr bool, msgReturn *bool, hopCounter *params.HopCounter, label RoutingLabel) {
	if cdpa != nil && cdpa.Routing == params.RouteOnGT && cdpa.SSN == nil {
		if s.routeOnGT(cdpa, cgpa, payload, class, retOnErr, msgReturn, hopCounter, label) {
			return
		}
	}
	s.handleConnectionless(cdpa, cgpa, payload, class, retOnErr, msgReturn, label)
}

// routeOnGT performs the GTT lookup for an inbound message addressed by
// global title, decrementing and checking HopCounter (when the message
// carries one) before either forwarding to the translated destination or
// reporting that the address resolved to a locally-servable SSN. Returns
// true when the message has been fully handled (forwarded, returned, or
// handed off) and needs no further local dispatch.
func (s *SS7SCCP) routeOnGT(cdpa, cgpa *params.PartyAddress, payload []byte, class int, retOnErr bool, msgReturn *bool, hopCounter *params.HopCounter, label RoutingLabel) bool {
	s.counters.incGTTAttempt()
	route, ok := s.GTT.RouteGT(&ParamList{CalledPartyAddress: cdpa, CallingPartyAddress: cgpa})
	if !ok {
		s.counters.incGTTFailure()
		s.counters.incError()
		if msgReturn != nil && *msgReturn {
			s.returnServiceFromParts(cdpa, cgpa, payload, class, CauseNoTranslationSpecificAddress, label)
		}
		return true
	}
	if route.RewrittenCalledParty != nil {
		applyRewrite(cdpa, route.RewrittenCalledParty)
	}
	if hopCounter != nil {
		if hopCounter.Value <= 1 {
			s.counters.incError()
			s.counters.incCause(CauseHopCounterViolation)
			if msgReturn != nil && *msgReturn {
				s.returnServiceFromParts(cdpa, cgpa, payload, class, CauseHopCounterViolation, label)
			}
			return true
		}
		hopCounter.Value--
	}
	if route.SCCP != "" {
		if sib, ok := s.Registry.Lookup(route.SCCP); ok && sib != s {
			sib.ReceiveLocalHandoff(payload, &ParamList{CalledPartyAddress: cdpa, CallingPartyAddress: cgpa, ProtocolClass: class, ReturnOnError: retOnErr})
			return true
		}
	}
	if route.RemotePC != nil && !route.RemotePC.Equal(s.Config.LocalPC) {
		fp := &ParamList{
			CalledPartyAddress:  cdpa,
			CallingPartyAddress: cgpa,
			ProtocolClass:       class,
			ReturnOnError:       retOnErr,
			RemotePC:            route.RemotePC,
		}
		if hopCounter != nil {
			v := hopCounter.Value
			fp.HopCounter = &v
		}
		if err := s.SendMessage(payload, fp); err != nil {
			s.counters.incError()
		}
		return true
	}
	return false // GTT resolved cdpa to a locally-servable SSN; fall through to dispatch
}

// dispatchService implements spec.md §6.2's notifyData path: an inbound
// UDTS/XUDTS/LUDTS is delivered to the SSN that originally sent the
// message the service message reports on, not processed by SCCP itself
// (original_source/libs/ysig/sccp.cpp:4071-4079 notifyMessage).
func (s *SS7SCCP) dispatchService(cdpa, cgpa *params.PartyAddress, payload []byte, cause ReturnCause) {
	if cdpa == nil || cdpa.SSN == nil {
		s.counters.incError()
		return
	}
	u, ok := s.User(*cdpa.SSN)
	if !ok {
		return
	}
	p := &ParamList{CalledPartyAddress: cdpa, CallingPartyAddress: cgpa}
	p.Set("ReturnCause", cause.String())
	u.NotifyData(payload, p)
}

// handleConnectionless implements spec.md §4.4's dispatch-by-SSN path.
func (s *SS7SCCP) handleConnectionless(cdpa, cgpa *params.PartyAddress, payload []byte, class int, retOnErr bool, msgReturn *bool, label RoutingLabel) {
	if cdpa == nil || cdpa.SSN == nil {
		s.counters.incError()
		return
	}
	u, ok := s.User(*cdpa.SSN)
	p := &ParamList{CalledPartyAddress: cdpa, CallingPartyAddress: cgpa, ProtocolClass: class, ReturnOnError: retOnErr}
	if !ok {
		s.notifyUnequipped(cdpa, cgpa)
		if msgReturn != nil && *msgReturn {
			s.returnServiceFromParts(cdpa, cgpa, payload, class, CauseUnequippedUser, label)
		}
		return
	}
	switch u.ReceivedData(payload, p) {
	case UserUnequipped:
		s.notifyUnequipped(cdpa, cgpa)
		s.counters.incCause(CauseUnequippedUser)
		if msgReturn != nil && *msgReturn {
			s.returnServiceFromParts(cdpa, cgpa, payload, class, CauseUnequippedUser, label)
		}
	case UserFailure:
		s.counters.incCause(CauseSubsystemFailure)
		if msgReturn != nil && *msgReturn {
			s.returnServiceFromParts(cdpa, cgpa, payload, class, CauseSubsystemFailure, label)
		}
	}
}

func (s *SS7SCCP) notifyUnequipped(cdpa, cgpa *params.PartyAddress) {
	if u, ok := s.User(1); ok { // management listens on SSN=1 by convention
		u.ManagementNotify(NotifySubsystemStatus, &ParamList{CalledPartyAddress: cdpa, CallingPartyAddress: cgpa})
	}
}

// returnService builds and transmits a service message for an already-
// decoded original (spec.md §4.4 returnMessage): a UDTS with the addresses
// swapped and the original payload as body. Only a UDTS is built, whatever
// the original's type; no XUDTS or LUDTS is sent, so the reply carries no
// ProtocolClass, Segmentation, Importance or HopCounter parameter.
func (s *SS7SCCP) returnService(orig Message, label RoutingLabel, cause ReturnCause) {
	var cdpa, cgpa *params.PartyAddress
	var payload []byte
	switch m := orig.(type) {
	case *XUDT:
		cdpa, cgpa, payload = m.CalledPartyAddress, m.CallingPartyAddress, m.Data.Value()
	case *LUDT:
		cdpa, cgpa, payload = m.CalledPartyAddress, m.CallingPartyAddress, m.Data.Value()
	case *UDT:
		cdpa, cgpa, payload = m.CalledPartyAddress, m.CallingPartyAddress, m.Data.Value()
	default:
		return
	}
	s.returnServiceFromParts(cdpa, cgpa, payload, 0, cause, label)
}

func (s *SS7SCCP) returnServiceFromParts(cdpa, cgpa *params.PartyAddress, payload []byte, class int, cause ReturnCause, label RoutingLabel) {
	s.counters.incCause(cause)
	udts := NewUDTS(cause, cgpa, cdpa, payload) // swapped
	reply := RoutingLabel{DPC: label.OPC, OPC: label.DPC, SLS: label.SLS}
	b, err := udts.MarshalBinary()
	if err != nil {
		s.counters.incError()
		return
	}
	s.counters.incSent(MsgTypeUDTS)
	if s.MTP != nil {
		s.MTP.TransmitMSU(MSU{Label: reply, Payload: b}, reply, reply.SLS)
	}
}

// Control implements spec.md §6.5.
func (s *SS7SCCP) Control(op string, p *ParamList) (*ParamList, error) {
	switch op {
	case "status":
		out := &ParamList{}
		out.Set("sent", fmt.Sprint(s.counters.Sent))
		out.Set("received", fmt.Sprint(s.counters.Received))
		out.Set("errors", fmt.Sprint(s.counters.Errors))
		return out, nil
	case "full-status":
		out := &ParamList{}
		out.Set("sent", fmt.Sprint(s.counters.Sent))
		out.Set("received", fmt.Sprint(s.counters.Received))
		out.Set("errors", fmt.Sprint(s.counters.Errors))
		out.Set("gtt-attempts", fmt.Sprint(s.counters.GTTAttempts))
		out.Set("gtt-failures", fmt.Sprint(s.counters.GTTFailures))
		for c, n := range s.counters.ByCause {
			out.Set("cause."+c.String(), fmt.Sprint(n))
		}
		for t, n := range s.counters.ByType {
			out.Set("type."+t.String(), fmt.Sprint(n))
		}
		return out, nil
	case "enable-extended-monitoring":
		s.mu.Lock()
		s.extendedMon = true
		s.mu.Unlock()
		return nil, nil
	case "disable-extended-monitoring":
		s.mu.Lock()
		s.extendedMon = false
		s.mu.Unlock()
		return nil, nil
	case "enable-print-messages":
		s.mu.Lock()
		s.printMsgs = true
		s.mu.Unlock()
		return nil, nil
	case "disable-print-messages":
		s.mu.Lock()
		s.printMsgs = false
		s.mu.Unlock()
		return nil, nil
	default:
		return nil, fmt.Errorf("sccp: unknown control operation %q", op)
	}
}

// TimerTick drives reassembly-timeout expiry (spec.md §4.3, §5). Call
// periodically from the shared timer-tick thread.
func (s *SS7SCCP) TimerTick(now time.Time) {
	for _, e := range s.reassembly.ExpireOlderThan(now) {
		s.counters.incError()
		if e.MessageReturn {
			s.returnService(e.First, RoutingLabel{DPC: e.Key.OPC, OPC: e.Key.DPC}, CauseSegmentationFailure)
		}
	}
}

// Exit sets the exiting flag so new frame dispatch drops messages
// (spec.md §5).
func (s *SS7SCCP) Exit() {
	s.mu.Lock()
	s.exiting = true
	s.mu.Unlock()
}
