package sccp

import (
	"sync"

	m3ua "github.com/wmnsk/go-m3ua"

	"github.com/vir/yate-sub002/sccp/params"
)

// M3UATransport adapts an m3ua.Conn (which implements net.Conn) into the
// MTPTransport contract SS7SCCP consumes (spec.md §6.1). It is a thin
// wrapper: MTP3 routing-label handling and ASP/link-set management live in
// go-m3ua itself, not here.
type M3UATransport struct {
	Conn *m3ua.Conn

	mu       sync.RWMutex
	routeMTU map[string]int
	routeSt  map[string]RouteState
}

// NewM3UATransport wraps an established m3ua.Conn.
func NewM3UATransport(conn *m3ua.Conn) *M3UATransport {
	return &M3UATransport{
		Conn:     conn,
		routeMTU: make(map[string]int),
		routeSt:  make(map[string]RouteState),
	}
}

// SetRouteMTU records the MTU to use for a given destination, as reported
// out-of-band by the M3UA layer's route management (ASP-active/congestion
// notifications are not modeled by net.Conn).
func (t *M3UATransport) SetRouteMTU(pc params.PointCode, mtu int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routeMTU[pc.String()] = mtu
}

// SetRouteState records the MTP3 route state for pc.
func (t *M3UATransport) SetRouteState(pc params.PointCode, st RouteState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routeSt[pc.String()] = st
}

func (t *M3UATransport) TransmitMSU(msu MSU, label RoutingLabel, sls uint8) (uint8, error) {
	_, err := t.Conn.Write(msu.Payload)
	return sls, err
}

func (t *M3UATransport) GetRouteMaxLength(pcType params.PointCodeType, pc params.PointCode) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if mtu, ok := t.routeMTU[pc.String()]; ok {
		return mtu
	}
	return 272 // conservative default: no LUDT until told otherwise
}

func (t *M3UATransport) GetRouteState(pcType params.PointCodeType, pc params.PointCode) RouteState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if st, ok := t.routeSt[pc.String()]; ok {
		return st
	}
	return RouteUnknown
}

// ReadLoop drains decoded MSUs off the m3ua.Conn and feeds them to
// receiver.ReceivedMSU until the connection closes. Each inbound MSU gets
// a label whose DPC is localPC; its OPC and SLS are not recoverable from
// net.Conn's byte-stream view and are left zero.
func (t *M3UATransport) ReadLoop(receiver *SS7SCCP, localPC params.PointCode, pcType params.PointCodeType) error {
	buf := make([]byte, 4096)
	for {
		n, err := t.Conn.Read(buf)
		if err != nil {
			return err
		}
		label := RoutingLabel{DPC: localPC}
		receiver.ReceivedMSU(MSU{Label: label, Payload: append([]byte(nil), buf[:n]...)}, label, 0, 0)
	}
}
