package sccp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeUser struct {
	ssn             uint8
	mu              sync.Mutex
	notifies        []ManagementNotifyType
	serviceNotifies []*ParamList
}

func (f *fakeUser) SSN() uint8 { return f.ssn }
func (f *fakeUser) ReceivedData(payload []byte, p *ParamList) UserResult { return UserAccepted }
func (f *fakeUser) NotifyData(payload []byte, p *ParamList) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.serviceNotifies = append(f.serviceNotifies, p)
}
func (f *fakeUser) ManagementNotify(kind ManagementNotifyType, p *ParamList) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifies = append(f.notifies, kind)
}

func TestSCCPAttachDetachUser(t *testing.T) {
	s := NewSCCP("test")
	u := &fakeUser{ssn: 8}
	s.Attach(u)

	got, ok := s.User(8)
	require.True(t, ok)
	require.Same(t, u, got)

	s.Detach(8)
	_, ok = s.User(8)
	require.False(t, ok)
}

func TestSCCPBroadcastReachesAllUsers(t *testing.T) {
	s := NewSCCP("test")
	u1 := &fakeUser{ssn: 6}
	u2 := &fakeUser{ssn: 8}
	s.Attach(u1)
	s.Attach(u2)

	s.Broadcast(NotifyPointCodeStatusIndication, nil)

	require.Equal(t, []ManagementNotifyType{NotifyPointCodeStatusIndication}, u1.notifies)
	require.Equal(t, []ManagementNotifyType{NotifyPointCodeStatusIndication}, u2.notifies)
}

func TestRegistryRegisterLookup(t *testing.T) {
	r := NewRegistry()
	s := &SS7SCCP{SCCP: NewSCCP("alpha")}
	r.Register(s)

	got, ok := r.Lookup("alpha")
	require.True(t, ok)
	require.Same(t, s, got)

	_, ok = r.Lookup("missing")
	require.False(t, ok)
}
