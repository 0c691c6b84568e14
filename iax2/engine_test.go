package iax2

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("127.0.0.1", 0, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.conn.Close() })
	return e
}

// TestCallNoAllocatorInvariant exercises spec.md §8 property 7: across N
// allocations and N releases interleaved arbitrarily (N <=
// IAX2MaxCallNo-1), no two outstanding calls ever share a number, and
// released numbers are eventually handed out again.
func TestCallNoAllocatorInvariant(t *testing.T) {
	e := &Engine{cfg: Config{}.withDefaults(), startLocalCallNo: IAX2MinCallNo}

	outstanding := make(map[uint16]bool)

	allocate := func() uint16 {
		e.mu.Lock()
		n := e.generateCallNoLocked()
		e.mu.Unlock()
		require.NotZero(t, n, "allocator exhausted prematurely")
		require.False(t, outstanding[n], "call number %d double-allocated", n)
		outstanding[n] = true
		return n
	}
	release := func(n uint16) {
		e.ReleaseCallNo(n)
		delete(outstanding, n)
	}

	const n = 500
	var held []uint16
	for i := 0; i < n; i++ {
		c := allocate()
		require.GreaterOrEqual(t, c, uint16(IAX2MinCallNo))
		require.LessOrEqual(t, c, uint16(IAX2MaxCallNo))
		held = append(held, c)
		if i%3 == 1 && len(held) > 0 {
			release(held[0])
			held = held[1:]
		}
	}
	for _, c := range held {
		release(c)
	}
	require.Empty(t, outstanding)

	// Allocate the entire call-number space once, confirming the
	// allocator eventually hands out every number with no duplicates,
	// then release everything and confirm the next allocation can only
	// be a previously-seen number (the space has no virgin numbers
	// left), demonstrating eventual reuse.
	e2 := &Engine{cfg: Config{}.withDefaults()}
	total := IAX2MaxCallNo - IAX2MinCallNo + 1
	seen := make(map[uint16]bool, total)
	for i := 0; i < total; i++ {
		e2.mu.Lock()
		c := e2.generateCallNoLocked()
		e2.mu.Unlock()
		require.NotZero(t, c, "allocator exhausted before covering the full space")
		require.False(t, seen[c], "call number %d allocated twice within one pass", c)
		seen[c] = true
	}
	e2.mu.Lock()
	require.Zero(t, e2.generateCallNoLocked(), "allocator should be exhausted once every number is held")
	e2.mu.Unlock()

	for c := range seen {
		e2.ReleaseCallNo(c)
	}
	e2.mu.Lock()
	reused := e2.generateCallNoLocked()
	e2.mu.Unlock()
	require.True(t, seen[reused], "expected a released call number to be reallocated")
}

func readOneFrame(t *testing.T, conn *net.UDPConn) *Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	f, err := ParseFrame(buf[:n])
	require.NoError(t, err)
	return f
}

func TestAddFrameInvalForUnmatchedFullFrame(t *testing.T) {
	e := newTestEngine(t)
	peer, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer peer.Close()
	peerAddr := peer.LocalAddr().(*net.UDPAddr)

	f := NewFullFrame(FrameTypeIAX, uint8(IAXControlAccept), 9, 0, 0, 0, 100, nil)
	tr := e.AddFrame(peerAddr, f)
	require.Nil(t, tr)

	reply := readOneFrame(t, peer)
	require.Equal(t, FrameTypeIAX, reply.Type)
	require.Equal(t, uint8(IAXControlInval), reply.Full.Subclass)
}

func TestAddFrameNewCreatesInboundTransaction(t *testing.T) {
	e := newTestEngine(t)
	peerAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000}

	f := NewFullFrame(FrameTypeIAX, uint8(IAXControlNew), 17, 0, 0, 0, 0, &IEList{})
	tr := e.AddFrame(peerAddr, f)
	require.NotNil(t, tr)
	require.GreaterOrEqual(t, tr.LocalCallNo, uint16(IAX2MinCallNo))
	require.Equal(t, uint16(17), tr.RemoteCallNo)
	require.Equal(t, TransactionCall, tr.Type)

	// A second frame from the same peer/remote-call-no must match the
	// existing transaction rather than create a new one.
	f2 := NewFullFrame(FrameTypeIAX, uint8(IAXControlHangup), 17, tr.LocalCallNo, 0, 0, 10, nil)
	tr2 := e.AddFrame(peerAddr, f2)
	require.Same(t, tr, tr2)
}

func TestAddFrameSwallowsKeepalives(t *testing.T) {
	e := newTestEngine(t)
	peer, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer peer.Close()
	peerAddr := peer.LocalAddr().(*net.UDPAddr)

	for _, sub := range []IAXControl{IAXControlInval, IAXControlFwDownl, IAXControlTxCnt, IAXControlTxAcc} {
		f := NewFullFrame(FrameTypeIAX, uint8(sub), 3, 0, 0, 0, 0, nil)
		tr := e.AddFrame(peerAddr, f)
		require.Nil(t, tr)
	}

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 16)
	_, err = peer.Read(buf)
	require.Error(t, err, "no reply should have been sent for keepalive-like frames")
}

func TestAddFrameDropsOnExit(t *testing.T) {
	e := newTestEngine(t)
	e.Exit()
	peerAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40001}

	f := NewFullFrame(FrameTypeIAX, uint8(IAXControlNew), 1, 0, 0, 0, 0, &IEList{})
	tr := e.AddFrame(peerAddr, f)
	require.Nil(t, tr)
}

func TestReapReleasesCallNumber(t *testing.T) {
	e := newTestEngine(t)
	peerAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40002}

	f := NewFullFrame(FrameTypeIAX, uint8(IAXControlNew), 21, 0, 0, 0, 0, &IEList{})
	tr := e.AddFrame(peerAddr, f)
	require.NotNil(t, tr)

	lcn := tr.LocalCallNo
	tr.setState(StateTerminated)
	e.reap(tr)

	e.mu.Lock()
	used := e.usedCallNo[lcn]
	e.mu.Unlock()
	require.False(t, used)
}
