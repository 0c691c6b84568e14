package iax2

import (
	"net"
	"sync"
	"time"
)

// TrunkInfo is the configuration bundle consulted when constructing a
// trunk aggregator or attaching a transaction to one (spec.md §3.2).
type TrunkInfo struct {
	Timestamps      bool
	MaxLen          int
	SendInterval    time.Duration
	EfficientUse    bool
	InSyncUseTS     bool
	InTSDiffRestart int
}

// DefaultTrunkInfo matches engine.cpp's trunking defaults.
var DefaultTrunkInfo = TrunkInfo{
	Timestamps:   true,
	MaxLen:       1400,
	SendInterval: 20 * time.Millisecond,
}

// MetaTrunkFrame aggregates mini-frames bound for one peer into a single
// meta-trunk datagram (spec.md §3.2 "Trunk aggregator"). The buffer never
// exceeds MaxLen octets; it is flushed when full or when SendInterval
// elapses since the last flush.
type MetaTrunkFrame struct {
	Addr *net.UDPAddr
	Info TrunkInfo

	mu       sync.Mutex
	buf      []byte
	lastSent time.Time
	refs     int // transactions currently attached to this aggregator
}

// NewMetaTrunkFrame creates an aggregator for addr.
func NewMetaTrunkFrame(addr *net.UDPAddr, info TrunkInfo) *MetaTrunkFrame {
	return &MetaTrunkFrame{Addr: addr, Info: info, lastSent: time.Now()}
}

// Attach/Detach track how many transactions reference this aggregator,
// standing in for the original's intrusive refcount (refcount() == 1
// means "only the engine's map holds it", i.e. no transaction left).
func (m *MetaTrunkFrame) Attach() {
	m.mu.Lock()
	m.refs++
	m.mu.Unlock()
}

func (m *MetaTrunkFrame) Detach() {
	m.mu.Lock()
	if m.refs > 0 {
		m.refs--
	}
	m.mu.Unlock()
}

func (m *MetaTrunkFrame) referenced() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs > 0
}

// Add appends one mini-frame payload to the trunk buffer, flushing first
// if appending it would exceed MaxLen (spec.md §3.2 invariant).
func (m *MetaTrunkFrame) Add(frame []byte, write func([]byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buf)+len(frame) > m.Info.MaxLen {
		if err := m.flushLocked(write); err != nil {
			return err
		}
	}
	m.buf = append(m.buf, frame...)
	return nil
}

// TimerTick flushes the buffer if SendInterval has elapsed since the
// last flush, mirroring IAXMetaTrunkFrame::timerTick (spec.md §4.7
// "Trunk pump"). Returns true if a flush happened.
func (m *MetaTrunkFrame) TimerTick(now time.Time, write func([]byte) error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.lastSent) < m.Info.SendInterval {
		return false
	}
	if len(m.buf) == 0 {
		m.lastSent = now
		return false
	}
	if err := m.flushLocked(write); err != nil {
		return false
	}
	return true
}

func (m *MetaTrunkFrame) flushLocked(write func([]byte) error) error {
	if len(m.buf) == 0 {
		return nil
	}
	err := write(m.buf)
	m.buf = m.buf[:0]
	m.lastSent = time.Now()
	return err
}
