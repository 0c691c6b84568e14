package iax2

import (
	"net"
	"sync"
	"time"
)

// TransactionType distinguishes the handful of transaction kinds the
// engine can create (spec.md §3.2, §4.7 step 4).
type TransactionType int

const (
	TransactionCall TransactionType = iota
	TransactionRegister
	TransactionPoke
)

// TransactionState is the per-call state machine (spec.md §3.2); its
// internals are intentionally shallow here since retransmission and
// acknowledgement are "opaque to this spec" (spec.md §4.7) beyond the
// writeSocket/deadline contract with the engine.
type TransactionState int

const (
	StateNewLocal TransactionState = iota
	StateNewRemote
	StateRinging
	StateConnected
	StateTerminated
)

// pendingOutbound is one (message, deadline) pair awaiting
// acknowledgement, per spec.md §4.7's "Retransmission and
// acknowledgement" contract and §9's "Coroutine-style retransmission"
// design note: represented as a queue driven by the single timer
// thread, not language-level coroutines.
type pendingOutbound struct {
	frame    *Frame
	deadline time.Time
	tries    int
}

// Transaction is one IAX2 call/registration/poke in progress
// (spec.md §3.2 "Transaction"). Identified by (local call no, remote
// call no, peer address).
type Transaction struct {
	Engine     *Engine
	Type       TransactionType
	LocalCallNo  uint16
	RemoteCallNo uint16 // 0 until learned
	Addr       *net.UDPAddr
	Outbound   bool

	AudioFormat Format
	VideoFormat Format
	Adjust      AdjustThresholds
	CallToken   []byte

	Trunk *MetaTrunkFrame

	mu      sync.Mutex
	state   TransactionState
	oseq    uint8
	iseq    uint8
	pending []*pendingOutbound
	events  []*Event // queued events awaiting GetEvent
	created time.Time
}

func newTransaction(e *Engine, typ TransactionType, localCallNo uint16, addr *net.UDPAddr, outbound bool) *Transaction {
	return &Transaction{
		Engine:      e,
		Type:        typ,
		LocalCallNo: localCallNo,
		Addr:        addr,
		Outbound:    outbound,
		Adjust:      SanitizeAdjustThresholds(AdjustThresholds{Threshold: DefaultAdjustThreshold, Over: DefaultAdjustOver, Under: DefaultAdjustUnder}),
		state:       StateNewLocal,
		created:     time.Now(),
	}
}

func (t *Transaction) remoteCallNo() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.RemoteCallNo
}

func (t *Transaction) State() TransactionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) setState(s TransactionState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// processCallToken consumes an in-place CallToken reply seen while the
// transaction is still in the incomplete-outgoing list (spec.md §4.7
// step 2; engine.cpp: the CallToken branch of addFrame resubmits the
// original New with the token attached rather than promoting the
// transaction). The caller layer that owns the original New frame reads
// CallToken back out and retransmits with the CALLTOKEN IE attached.
func (t *Transaction) processCallToken(token []byte) {
	t.mu.Lock()
	t.CallToken = token
	t.mu.Unlock()
}

// ProcessFrame feeds one decoded frame to the transaction's state
// machine and returns the resulting event, if any; the engine queues it
// for GetEvent to pick up (spec.md §4.7). Mini frames and full frames are both accepted; the
// dispatch by frame type/subclass is deliberately shallow here, matching
// the original's note that transaction internals are opaque to this
// spec beyond the engine contract.
func (t *Transaction) ProcessFrame(f *Frame) *Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f.Full != nil {
		t.iseq = f.Full.OSeqNo + 1
		if f.Type == FrameTypeIAX {
			switch IAXControl(f.Full.Subclass) {
			case IAXControlAccept:
				t.state = StateConnected
				return &Event{Type: EventAccept, Transaction: t, FrameType: f.Type, Subclass: f.Full.Subclass, IEs: f.Full.IEs}
			case IAXControlReject:
				t.state = StateTerminated
				return &Event{Type: EventReject, Final: true, Transaction: t, FrameType: f.Type, Subclass: f.Full.Subclass, IEs: f.Full.IEs}
			case IAXControlHangup:
				t.state = StateTerminated
				return &Event{Type: EventHangup, Final: true, Transaction: t, FrameType: f.Type, Subclass: f.Full.Subclass, IEs: f.Full.IEs}
			}
		}
	}
	return nil
}

// GetEvent pops the next queued event, if any, mirroring
// IAXTransaction::getEvent(now) called from the engine's event pump
// (spec.md §4.7 "Event pump").
func (t *Transaction) GetEvent(now time.Time) *Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) == 0 {
		return nil
	}
	ev := t.events[0]
	t.events = t.events[1:]
	return ev
}

func (t *Transaction) queueEvent(ev *Event) {
	t.mu.Lock()
	t.events = append(t.events, ev)
	t.mu.Unlock()
}

// Start moves an outbound transaction to StateNewLocal (spec.md §4.7,
// "when the local user initiates an outbound call"). It sends no frame.
func (t *Transaction) Start() {
	t.setState(StateNewLocal)
}
