package mgmt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vir/yate-sub002/sccp"
	"github.com/vir/yate-sub002/sccp/params"
)

type fakeSender struct {
	mu        sync.Mutex
	sent      [][]byte
	sentTo    []*sccp.ParamList
	notifies  []sccp.ManagementNotifyType
}

func (f *fakeSender) SendMessage(payload []byte, p *sccp.ParamList) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	f.sentTo = append(f.sentTo, p)
	return nil
}

func (f *fakeSender) Broadcast(kind sccp.ManagementNotifyType, p *sccp.ParamList) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifies = append(f.notifies, kind)
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) lastSCMG(t *testing.T) *SCMG {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	msg, err := ParseSCMG(f.sent[len(f.sent)-1], params.PointCodeITU)
	require.NoError(t, err)
	return msg
}

func newTestManager() (*Manager, *fakeSender) {
	s := &fakeSender{}
	localPC := params.NewITUPointCode(1, 1, 1)
	m := NewManager(params.PointCodeITU, localPC, s)
	return m, s
}

func TestHandleSSAMarksRemoteAllowedAndStopsSST(t *testing.T) {
	m, s := newTestManager()
	remote := params.NewITUPointCode(2, 2, 2)
	m.startSST(remote, 8)

	m.handleSSA(remote, 8)

	r := m.remote(remote, false)
	require.True(t, r.Subsystem(8).IsAllowed())
	require.Contains(t, s.notifies, sccp.NotifyStatusIndication)

	m.mu.RLock()
	_, stillRunning := m.ssts[sstKey(remote, 8)]
	m.mu.RUnlock()
	require.False(t, stillRunning)
}

func TestHandleSSPMarksRemoteProhibitedAndStartsSST(t *testing.T) {
	m, s := newTestManager()
	remote := params.NewITUPointCode(2, 2, 2)
	m.handleSSA(remote, 8) // first become allowed

	m.handleSSP(remote, 8)

	r := m.remote(remote, false)
	require.True(t, r.Subsystem(8).IsProhibited())

	m.mu.RLock()
	_, running := m.ssts[sstKey(remote, 8)]
	m.mu.RUnlock()
	require.True(t, running)
	require.Contains(t, s.notifies, sccp.NotifyStatusIndication)
}

func TestHandleSSTRespondsWithSSAWhenLocalAllowed(t *testing.T) {
	m, s := newTestManager()
	m.AddLocalSubsystem(8, nil)
	remote := params.NewITUPointCode(2, 2, 2)

	m.handleSST(remote, 8)

	require.Equal(t, 1, s.count())
	got := s.lastSCMG(t)
	require.Equal(t, SCMGTypeSSA, got.Type)
}

func TestHandleSSTNoResponseWhenLocalNotAllowed(t *testing.T) {
	m, s := newTestManager()
	l := m.AddLocalSubsystem(8, nil)
	l.mu.Lock()
	l.State = StateProhibited
	l.mu.Unlock()
	remote := params.NewITUPointCode(2, 2, 2)

	m.handleSST(remote, 8)
	require.Equal(t, 0, s.count())
}

func TestReceivedDataDispatchesSSAThroughManagementUser(t *testing.T) {
	m, _ := newTestManager()
	remote := params.NewITUPointCode(2, 2, 2)
	scmg := NewSCMG(SCMGTypeSSA, 8, remote, 0)
	b, err := scmg.MarshalBinary()
	require.NoError(t, err)

	remotePC := remote
	ssn := uint8(1)
	p := &sccp.ParamList{CallingPartyAddress: &params.PartyAddress{PC: &remotePC, SSN: &ssn}}
	res := m.ReceivedData(b, p)
	require.Equal(t, sccp.UserAccepted, res)
	require.True(t, m.remote(remote, false).Subsystem(8).IsAllowed())
}

func TestReceivedDataRejectsUndecodable(t *testing.T) {
	m, _ := newTestManager()
	res := m.ReceivedData([]byte{0x01}, nil)
	require.Equal(t, sccp.UserRejected, res)
}

func TestCoordinateRequestSendsSORToEachBackup(t *testing.T) {
	m, s := newTestManager()
	backup1 := params.NewITUPointCode(3, 3, 3)
	backup2 := params.NewITUPointCode(4, 4, 4)
	m.AddLocalSubsystem(8, []params.PointCode{backup1, backup2})

	err := m.CoordinateRequest(8)
	require.NoError(t, err)
	require.Equal(t, 2, s.count())

	l := m.local(8)
	l.mu.Lock()
	state := l.State
	l.mu.Unlock()
	require.Equal(t, StateWaitForGrant, state)
}

func TestCoordinateRequestFailsWhenNotAllowed(t *testing.T) {
	m, _ := newTestManager()
	l := m.AddLocalSubsystem(8, nil)
	l.mu.Lock()
	l.State = StateProhibited
	l.mu.Unlock()

	err := m.CoordinateRequest(8)
	require.Error(t, err)
}

func TestHandleSOGRecordsGrant(t *testing.T) {
	m, _ := newTestManager()
	m.AddLocalSubsystem(8, nil)
	backup := params.NewITUPointCode(3, 3, 3)

	m.handleSOG(backup, &SCMG{AffectedSSN: 8})

	l := m.local(8)
	l.mu.Lock()
	granted := l.Granted[backup.String()]
	l.mu.Unlock()
	require.True(t, granted)
}

func TestCheckLocalTimerConfirmsWhenAllBackupsGranted(t *testing.T) {
	m, s := newTestManager()
	backup := params.NewITUPointCode(3, 3, 3)
	m.AddLocalSubsystem(8, []params.PointCode{backup})
	require.NoError(t, m.CoordinateRequest(8))
	m.handleSOG(backup, &SCMG{AffectedSSN: 8})

	now := time.Now().Add(2 * DefaultCoordInterval)
	m.checkLocalTimers(now)

	l := m.local(8)
	l.mu.Lock()
	state := l.State
	l.mu.Unlock()
	require.Equal(t, StateIgnoreTests, state)
	require.Contains(t, s.notifies, sccp.NotifyCoordinateConfirm)
}

func TestCheckLocalTimerDeniesWhenBackupMissing(t *testing.T) {
	m, s := newTestManager()
	backup := params.NewITUPointCode(3, 3, 3)
	m.AddLocalSubsystem(8, []params.PointCode{backup})
	require.NoError(t, m.CoordinateRequest(8))
	// no SOG received

	now := time.Now().Add(2 * DefaultCoordInterval)
	m.checkLocalTimers(now)

	l := m.local(8)
	l.mu.Lock()
	state := l.State
	l.mu.Unlock()
	require.Equal(t, StateAllowed, state)
	require.Contains(t, s.notifies, sccp.NotifyCoordinateConfirm)
}

func TestIgnoreTestsTimerTransitionsToProhibited(t *testing.T) {
	m, _ := newTestManager()
	l := m.AddLocalSubsystem(8, nil)
	l.mu.Lock()
	l.State = StateIgnoreTests
	l.IgnoreDeadline = time.Now()
	l.mu.Unlock()

	m.checkLocalTimers(time.Now().Add(time.Second))

	l.mu.Lock()
	state := l.State
	l.mu.Unlock()
	require.Equal(t, StateProhibited, state)
}

func TestFireSSTsKeepsIntervalCappedAtMax(t *testing.T) {
	m, s := newTestManager()
	remote := params.NewITUPointCode(2, 2, 2)
	m.startSST(remote, 8)

	m.mu.Lock()
	sst := m.ssts[sstKey(remote, 8)]
	sst.Interval = MaxSSTInterval
	m.mu.Unlock()

	now := sst.Next.Add(time.Second)
	m.fireSSTs(now)

	require.Equal(t, 1, s.count())
	m.mu.RLock()
	got := m.ssts[sstKey(remote, 8)]
	m.mu.RUnlock()
	require.Equal(t, MaxSSTInterval, got.Interval, "interval must stay capped, not overflow past the max")
}

func TestUPUUnequippedStopsAllSSTs(t *testing.T) {
	m, _ := newTestManager()
	remote := params.NewITUPointCode(2, 2, 2)
	m.startSST(remote, 8)

	m.UPU(remote, 8, sccp.UPUUnequipped)

	m.mu.RLock()
	_, running := m.ssts[sstKey(remote, 8)]
	m.mu.RUnlock()
	require.False(t, running)
	require.True(t, m.remote(remote, false).Subsystem(8).IsProhibited())
}

func TestUPUInaccessibleStartsManagementSST(t *testing.T) {
	m, _ := newTestManager()
	remote := params.NewITUPointCode(2, 2, 2)

	m.UPU(remote, 8, sccp.UPUInaccessible)

	m.mu.RLock()
	_, running := m.ssts[sstKey(remote, ManagementSSN)]
	m.mu.RUnlock()
	require.True(t, running)
}

func TestRouteStateChangedToAllowedBroadcastsAccessibility(t *testing.T) {
	m, s := newTestManager()
	remote := params.NewITUPointCode(2, 2, 2)
	m.RouteStateChanged(remote, sccp.RouteProhibited)
	s.notifies = nil

	m.RouteStateChanged(remote, sccp.RouteAllowed)
	require.Contains(t, s.notifies, sccp.NotifyPointCodeStatusIndication)
}

func TestRouteStateChangedNoOpWhenUnchanged(t *testing.T) {
	m, s := newTestManager()
	remote := params.NewITUPointCode(2, 2, 2)
	m.RouteStateChanged(remote, sccp.RouteAllowed)
	s.notifies = nil

	m.RouteStateChanged(remote, sccp.RouteAllowed)
	require.Empty(t, s.notifies, "no transition, so no broadcast")
}

func TestConcernDeduplicatesPeers(t *testing.T) {
	m, _ := newTestManager()
	peer := params.NewITUPointCode(5, 5, 5)
	m.Concern(peer)
	m.Concern(peer)
	require.Len(t, m.concerned, 1)
}

func TestStatusRequestBroadcastsTransition(t *testing.T) {
	m, s := newTestManager()
	m.AddLocalSubsystem(8, nil)
	peer := params.NewITUPointCode(5, 5, 5)
	m.Concern(peer)

	err := m.StatusRequest(8, false)
	require.NoError(t, err)
	require.Equal(t, 1, s.count())
	got := s.lastSCMG(t)
	require.Equal(t, SCMGTypeSSP, got.Type)
}
