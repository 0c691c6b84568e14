package sccp

import "github.com/vir/yate-sub002/sccp/params"

// RouteState mirrors the MTP route state consulted by management
// (spec.md §3.1, §6.1).
type RouteState int

const (
	RouteAllowed RouteState = iota
	RouteProhibited
	RouteCongestion
	RouteUnknown
)

// MSU is a Message Signalling Unit: the routing label plus the SCCP
// payload, as handed to/from MTP (spec.md §6.1).
type MSU struct {
	Label   RoutingLabel
	Network uint8 // SIO network indicator
	Payload []byte
}

// RoutingLabel is the MTP3 routing label attached to every MSU
// (spec.md §3.1): destination, origin, signalling link selector.
type RoutingLabel struct {
	DPC params.PointCode
	OPC params.PointCode
	SLS uint8
}

// MTPReceiveResult is MTP's view of how receivedMSU was handled.
type MTPReceiveResult int

const (
	MTPRejected MTPReceiveResult = iota
	MTPAccepted
	MTPFailure
)

// MTPTransport is the narrow interface SCCP consumes from the Layer 3
// transport beneath it (spec.md §6.1). SCCP never redesigns MTP; it only
// calls through this contract.
type MTPTransport interface {
	// TransmitMSU hands an MSU to MTP and reports the SLS actually used.
	TransmitMSU(msu MSU, label RoutingLabel, sls uint8) (usedSLS uint8, err error)
	// GetRouteMaxLength returns the MTU of the route to pc; a value < 272
	// octets rules out LUDT/LUDTS.
	GetRouteMaxLength(pcType params.PointCodeType, pc params.PointCode) int
	// GetRouteState reports a remote point code's MTP3 route state.
	GetRouteState(pcType params.PointCodeType, pc params.PointCode) RouteState
}

// UPUCause is the MTP3 user-part-unavailable cause (spec.md §4.5).
type UPUCause int

const (
	UPUUnequipped UPUCause = iota
	UPUInaccessible
	UPUUnknown
)
