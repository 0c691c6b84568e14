package iax2

import (
	"errors"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vir/yate-sub002/internal/logging"
)

// Call-number bounds (spec.md §3.2): 0 and 1 are reserved, valid local
// numbers run 2..IAX2MaxCallNo (the field is a 15-bit wire quantity).
const (
	IAX2MinCallNo = 2
	IAX2MaxCallNo = 32767
)

// Outbound timestamp-adjust defaults, ported from engine.cpp's
// IAX2_ADJUSTTSOUT_* #defines (spec.md §6.6).
const (
	defaultAdjustTsOutThres = 120
	defaultAdjustTsOutOver  = 120
	defaultAdjustTsOutUnder = 60
)

var (
	ErrExiting          = errors.New("iax2: engine is exiting")
	ErrCallNoExhausted  = errors.New("iax2: no local call number available")
)

// Config bundles the construction-time parameters of an Engine
// (spec.md §4.7, §4.8, §6.6).
type Config struct {
	TransListCount      int  // bucket count, default 64, range [4,256]
	MaxFullFrameDataLen int  // default 1400, min 20
	ForceBind           bool // fall back to a random port on bind failure

	CallTokenSecret        string
	CallTokenIn            bool
	CallTokenRejectMissing bool
	CallTokenAge           int // seconds, 1..25, default 10
	ShowCallTokenFailures  bool

	PrintMessages bool
	Format        uint32
	Capability    uint32
}

func (c Config) withDefaults() Config {
	if c.TransListCount == 0 {
		c.TransListCount = 64
	}
	if c.TransListCount < 4 {
		c.TransListCount = 4
	}
	if c.TransListCount > 256 {
		c.TransListCount = 256
	}
	if c.MaxFullFrameDataLen == 0 {
		c.MaxFullFrameDataLen = 1400
	}
	if c.MaxFullFrameDataLen < 20 {
		c.MaxFullFrameDataLen = 20
	}
	if c.CallTokenAge == 0 {
		c.CallTokenAge = 10
	}
	if c.CallTokenAge < 1 {
		c.CallTokenAge = 1
	}
	if c.CallTokenAge > 25 {
		c.CallTokenAge = 25
	}
	return c
}

// Engine owns a UDP socket, the bucketed complete-transaction table, the
// incomplete-outgoing list, and the call-number allocation bitmap
// (spec.md §4.7).
type Engine struct {
	cfg    Config
	secret string
	log    zerolog.Logger

	conn      *net.UDPConn
	localAddr *net.UDPAddr

	mu               sync.Mutex
	transList        [][]*Transaction // bucketed by remote call no % TransListCount
	incomplete       []*Transaction
	usedCallNo       [IAX2MaxCallNo + 1]bool
	startLocalCallNo uint16
	lastGetEvIndex   int
	exiting          bool

	trunkMu sync.Mutex
	trunks  map[string]*MetaTrunkFrame
}

// NewEngine builds and binds an Engine (spec.md §6.3 IAX socket).
func NewEngine(iface string, port int, cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:       cfg,
		secret:    cfg.CallTokenSecret,
		log:       logging.Component("iax2"),
		transList: make([][]*Transaction, cfg.TransListCount),
		trunks:    make(map[string]*MetaTrunkFrame),
	}
	e.startLocalCallNo = uint16(1 + rand.Intn(IAX2MaxCallNo))
	if e.startLocalCallNo < IAX2MinCallNo {
		e.startLocalCallNo = IAX2MinCallNo
	}
	if e.secret == "" {
		e.secret = synthesizeSecret()
	}
	if err := e.bind(iface, port, cfg.ForceBind); err != nil {
		return nil, err
	}
	return e, nil
}

// bind reproduces IAXEngine::bind's fallback-to-random-port sequence
// (spec.md §6.6).
func (e *Engine) bind(iface string, port int, force bool) error {
	if port <= 0 || port > 65535 {
		port = 4569
	}
	ip := net.ParseIP(iface)
	if ip == nil {
		ip = net.IPv4zero
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		if !force {
			return err
		}
		e.log.Warn().Err(err).Str("iface", iface).Int("port", port).
			Msg("failed to bind, trying a random port")
		conn, err = net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: 0})
		if err != nil {
			e.log.Warn().Err(err).Msg("failed to bind on any port")
			return err
		}
	}
	e.conn = conn
	e.localAddr = conn.LocalAddr().(*net.UDPAddr)
	e.log.Info().Str("addr", e.localAddr.String()).Msg("bound")
	return nil
}

func (e *Engine) LocalAddr() *net.UDPAddr { return e.localAddr }

func (e *Engine) isExiting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exiting
}

// Exit causes new frame dispatch to reply Inval and stops accepting new
// inbound transactions (spec.md §5 "Cancellation").
func (e *Engine) Exit() {
	e.mu.Lock()
	e.exiting = true
	e.mu.Unlock()
}

func addrEqual(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Port == b.Port && a.IP.Equal(b.IP)
}

// AddFrame dispatches one inbound frame: incomplete-list match, then
// bucketed complete-transaction match, then (for frames matching
// neither) the new-inbound-transaction gate (spec.md §4.7 steps 2-5,
// ported from IAXEngine::addFrame).
func (e *Engine) AddFrame(addr *net.UDPAddr, f *Frame) *Transaction {
	if tr, handled := e.matchExisting(addr, f); handled {
		return tr
	}
	if e.isExiting() {
		if f.Full != nil {
			e.sendInval(f, addr)
		}
		return nil
	}
	if f.Full == nil || f.Type != FrameTypeIAX {
		if f.Full != nil {
			e.sendInval(f, addr)
		}
		return nil
	}
	switch IAXControl(f.Full.Subclass) {
	case IAXControlNew:
		result, reply := e.checkCallToken(addr, f.Full, f.SourceCallNo)
		if reply != nil {
			_ = e.writeSocket(addr, reply)
		}
		if result != CallTokenAccept {
			return nil
		}
	case IAXControlRegReq, IAXControlRegRel, IAXControlPoke:
		// no call-token gate
	case IAXControlInval, IAXControlFwDownl, IAXControlTxCnt, IAXControlTxAcc:
		// keepalive-like; swallow without reply (spec.md §9 open question)
		return nil
	default:
		e.sendInval(f, addr)
		return nil
	}
	return e.createInbound(addr, f)
}

// AddFrameBytes parses a raw datagram and dispatches it (spec.md §4.7
// step 1).
func (e *Engine) AddFrameBytes(addr *net.UDPAddr, buf []byte) (*Transaction, error) {
	f, err := ParseFrame(buf)
	if err != nil {
		return nil, err
	}
	return e.AddFrame(addr, f), nil
}

func (e *Engine) matchExisting(addr *net.UDPAddr, f *Frame) (tr *Transaction, handled bool) {
	e.mu.Lock()
	if f.Full != nil && f.Full.DestCallNo != 0 {
		for i, t := range e.incomplete {
			if t.LocalCallNo != f.Full.DestCallNo || !addrEqual(addr, t.Addr) {
				continue
			}
			if f.Type == FrameTypeIAX && IAXControl(f.Full.Subclass) == IAXControlCallToken {
				e.mu.Unlock()
				var data []byte
				if f.Full.IEs != nil {
					if ie, ok := f.Full.IEs.Get(IECallToken); ok {
						data = ie.Data
					}
				}
				t.processCallToken(data)
				return nil, true
			}
			t.mu.Lock()
			t.RemoteCallNo = f.SourceCallNo
			t.mu.Unlock()
			e.incomplete = append(e.incomplete[:i:i], e.incomplete[i+1:]...)
			bucket := int(f.SourceCallNo) % e.cfg.TransListCount
			e.transList[bucket] = append(e.transList[bucket], t)
			e.mu.Unlock()
			if ev := t.ProcessFrame(f); ev != nil {
				t.queueEvent(ev)
			}
			return t, true
		}
	}
	bucket := int(f.SourceCallNo) % e.cfg.TransListCount
	for _, t := range e.transList[bucket] {
		if t.remoteCallNo() != f.SourceCallNo {
			continue
		}
		if f.Full == nil {
			if !addrEqual(addr, t.Addr) {
				continue
			}
			e.mu.Unlock()
			if ev := t.ProcessFrame(f); ev != nil {
				t.queueEvent(ev)
			}
			return t, true
		}
		if f.Full.DestCallNo != 0 || addrEqual(addr, t.Addr) {
			e.mu.Unlock()
			if ev := t.ProcessFrame(f); ev != nil {
				t.queueEvent(ev)
			}
			return t, true
		}
	}
	e.mu.Unlock()
	return nil, false
}

func (e *Engine) createInbound(addr *net.UDPAddr, f *Frame) *Transaction {
	e.mu.Lock()
	lcn := e.generateCallNoLocked()
	if lcn == 0 {
		n := e.transactionCountLocked()
		e.mu.Unlock()
		e.log.Warn().Int("transactions", n).Msg("unable to generate call number")
		return nil
	}
	typ := TransactionCall
	switch IAXControl(f.Full.Subclass) {
	case IAXControlRegReq, IAXControlRegRel:
		typ = TransactionRegister
	case IAXControlPoke:
		typ = TransactionPoke
	}
	tr := newTransaction(e, typ, lcn, addr, false)
	tr.RemoteCallNo = f.SourceCallNo
	bucket := int(f.SourceCallNo) % e.cfg.TransListCount
	e.transList[bucket] = append(e.transList[bucket], tr)
	e.mu.Unlock()
	return tr
}

// StartLocalTransaction begins an outbound transaction (spec.md §4.7,
// "or when the local user initiates an outbound call").
func (e *Engine) StartLocalTransaction(typ TransactionType, addr *net.UDPAddr) (*Transaction, error) {
	e.mu.Lock()
	if e.exiting {
		e.mu.Unlock()
		return nil, ErrExiting
	}
	lcn := e.generateCallNoLocked()
	if lcn == 0 {
		e.mu.Unlock()
		return nil, ErrCallNoExhausted
	}
	tr := newTransaction(e, typ, lcn, addr, true)
	e.incomplete = append(e.incomplete, tr)
	e.mu.Unlock()
	tr.Start()
	return tr, nil
}

// generateCallNoLocked reproduces IAXEngine::generateCallNo's
// wrap-around linear scan from m_startLocalCallNo (spec.md §4.7).
// Caller must hold e.mu.
func (e *Engine) generateCallNoLocked() uint16 {
	e.startLocalCallNo++
	if e.startLocalCallNo > IAX2MaxCallNo || e.startLocalCallNo < IAX2MinCallNo {
		e.startLocalCallNo = IAX2MinCallNo
	}
	for i := e.startLocalCallNo; i <= IAX2MaxCallNo; i++ {
		if !e.usedCallNo[i] {
			e.usedCallNo[i] = true
			return i
		}
	}
	for i := uint16(IAX2MinCallNo); i < e.startLocalCallNo; i++ {
		if !e.usedCallNo[i] {
			e.usedCallNo[i] = true
			return i
		}
	}
	return 0
}

// ReleaseCallNo frees a local call number for reuse.
func (e *Engine) ReleaseCallNo(n uint16) {
	e.mu.Lock()
	e.usedCallNo[n] = false
	e.mu.Unlock()
}

func (e *Engine) transactionCountLocked() int {
	n := len(e.incomplete)
	for _, b := range e.transList {
		n += len(b)
	}
	return n
}

// reap removes a terminated transaction from every table and releases
// its local call number (spec.md §4.7 "Event pump": "an event that is
// both final and associated with a transaction in Terminated state
// causes the engine to release the call number and drop the
// transaction").
func (e *Engine) reap(tr *Transaction) {
	rcn := tr.remoteCallNo()
	e.mu.Lock()
	for i, t := range e.incomplete {
		if t == tr {
			e.incomplete = append(e.incomplete[:i:i], e.incomplete[i+1:]...)
			break
		}
	}
	bucket := int(rcn) % e.cfg.TransListCount
	list := e.transList[bucket]
	for i, t := range list {
		if t == tr {
			e.transList[bucket] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	e.usedCallNo[tr.LocalCallNo] = false
	e.mu.Unlock()
}

// GetEvent drains the next pending event, scanning the incomplete list
// then walking buckets round-robin resuming from lastGetEvIndex
// (spec.md §4.7 "Event pump", ported from IAXEngine::getEvent).
func (e *Engine) GetEvent(now time.Time) *Event {
	e.mu.Lock()
	for _, tr := range e.incomplete {
		e.mu.Unlock()
		if ev := tr.GetEvent(now); ev != nil {
			e.afterEvent(ev)
			return ev
		}
		e.mu.Lock()
	}
	for e.lastGetEvIndex < len(e.transList) {
		bucket := e.transList[e.lastGetEvIndex]
		e.lastGetEvIndex++
		for _, tr := range bucket {
			e.mu.Unlock()
			if ev := tr.GetEvent(now); ev != nil {
				e.afterEvent(ev)
				return ev
			}
			e.mu.Lock()
		}
	}
	e.lastGetEvIndex = 0
	e.mu.Unlock()
	return nil
}

func (e *Engine) afterEvent(ev *Event) {
	if ev.Final && ev.Transaction != nil && ev.Transaction.State() == StateTerminated {
		e.reap(ev.Transaction)
	}
}

// sendInval replies Inval to an unmatched full frame, except to another
// Inval (spec.md §4.7 step 4, §9 open question on keepalive swallowing).
func (e *Engine) sendInval(f *Frame, addr *net.UDPAddr) {
	if f.Full == nil {
		return
	}
	if f.Type == FrameTypeIAX && IAXControl(f.Full.Subclass) == IAXControlInval {
		return
	}
	reply := NewFullFrame(FrameTypeIAX, uint8(IAXControlInval), f.Full.DestCallNo, f.SourceCallNo,
		f.Full.ISeqNo, f.Full.OSeqNo, f.Timestamp, nil)
	_ = e.writeSocket(addr, reply)
}

func (e *Engine) writeSocket(addr *net.UDPAddr, f *Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return e.writeRaw(addr, b)
}

// writeRaw is the shared-resource UDP send; temporary unavailability is
// logged and the datagram is considered sent, relying on the
// transaction layer's own retransmission (spec.md §5, §7).
func (e *Engine) writeRaw(addr *net.UDPAddr, b []byte) error {
	if e.conn == nil {
		return nil
	}
	_, err := e.conn.WriteToUDP(b, addr)
	if err == nil {
		return nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		e.log.Warn().Err(err).Msg("socket would block, treating datagram as sent")
		return nil
	}
	return err
}

// ReadLoop blocks on the UDP socket and feeds every inbound datagram to
// AddFrame until the socket is closed (spec.md §5 "Receive thread
// blocks on the UDP socket").
func (e *Engine) ReadLoop() error {
	buf := make([]byte, 1500)
	for {
		n, addr, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		f, err := ParseFrame(buf[:n])
		if err != nil {
			e.log.Debug().Err(err).Msg("dropping unparseable datagram")
			continue
		}
		e.AddFrame(addr, f)
	}
}

// Trunk returns (creating if absent) the aggregator for addr; callers
// that want it kept alive must call Attach themselves (spec.md §3.2
// "Trunk aggregator").
func (e *Engine) Trunk(addr *net.UDPAddr, info TrunkInfo) *MetaTrunkFrame {
	e.trunkMu.Lock()
	defer e.trunkMu.Unlock()
	key := addr.String()
	tf, ok := e.trunks[key]
	if !ok {
		tf = NewMetaTrunkFrame(addr, info)
		e.trunks[key] = tf
	}
	return tf
}

// ProcessTrunkFrames flushes aggregators whose send interval elapsed and
// reaps ones with no attached transaction (spec.md §4.7 "Trunk pump",
// ported from IAXEngine::processTrunkFrames). Call every 2ms.
func (e *Engine) ProcessTrunkFrames(now time.Time) bool {
	e.trunkMu.Lock()
	defer e.trunkMu.Unlock()
	sent := false
	for key, tf := range e.trunks {
		if !tf.referenced() {
			delete(e.trunks, key)
			continue
		}
		if tf.TimerTick(now, func(b []byte) error { return e.writeRaw(tf.Addr, b) }) {
			sent = true
		}
	}
	return sent
}
