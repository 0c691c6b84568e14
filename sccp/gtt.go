package sccp

import "github.com/vir/yate-sub002/sccp/params"

// GTT is the Global Title Translation strategy attached to an SCCP
// instance (spec.md §4.6). It performs pure lookup: given the called-party
// address sub-parameters (and optionally the calling-party address, for
// policies that route on both), it returns a route or reports failure. It
// must not perform I/O on the critical path.
type GTT interface {
	// RouteGT consumes params' CalledPartyAddress (and may consult
	// CallingPartyAddress) and returns either a populated Route or
	// ok=false when no translation applies.
	RouteGT(p *ParamList) (Route, bool)
}

// Route is what a GTT lookup returns: a rewritten destination plus an
// optional same-process hand-off target (spec.md §4.6).
type Route struct {
	// RemotePC reroutes to a different point code; nil means "keep
	// whatever the caller already resolved".
	RemotePC *params.PointCode
	// SCCP names a sibling SCCP instance registered on the same Registry
	// to hand the message to locally, without touching MTP.
	SCCP string
	// RewrittenCalledParty replaces CalledPartyAddress fields (plan,
	// encoding, ssn, digits) when the GTT rewrites the address.
	RewrittenCalledParty *ParamListAddressRewrite
}

// ParamListAddressRewrite is the subset of CalledPartyAddress fields a GTT
// may rewrite.
type ParamListAddressRewrite struct {
	NumberingPlan  *uint8
	EncodingScheme *uint8
	SSN            *uint8
	Digits         *string
}

// NoGTT is a GTT that never translates; useful as a default when no
// translator is attached.
type NoGTT struct{}

func (NoGTT) RouteGT(*ParamList) (Route, bool) { return Route{}, false }
