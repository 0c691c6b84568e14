package sccp

import (
	"strconv"
	"strings"

	"github.com/vir/yate-sub002/sccp/params"
)

// ParamList is the per-message parameter bag passed to SendMessage and
// delivered to SCCPUser.ReceivedData (spec.md §6.2, Design Note §9). It
// models the dotted sub-paths of the original NamedList ("Segmentation.
// SegmentationLocalReference") as typed fields for the canonical keys plus
// a string overflow map for anything else, instead of importing a dynamic
// map type.
type ParamList struct {
	CalledPartyAddress  *params.PartyAddress
	CallingPartyAddress *params.PartyAddress
	ProtocolClass       int
	ReturnOnError       bool
	SLS                 *uint8
	SequenceControl     bool
	RemotePC            *params.PointCode
	LocalPC             *params.PointCode
	Importance          *uint8
	MessageReturn       bool
	HopCounter          *uint8
	Segmentation        *params.Segmentation

	// Overflow carries any dotted key this struct has no typed field for
	// (e.g. a GTT-injected "sccp" hand-off target, or an unknown optional
	// parameter preserved as Param_<n>).
	Overflow map[string]string
}

// Get returns an overflow value and whether it was present.
func (p *ParamList) Get(key string) (string, bool) {
	if p.Overflow == nil {
		return "", false
	}
	v, ok := p.Overflow[key]
	return v, ok
}

// Set stores an overflow value, allocating the map if needed.
func (p *ParamList) Set(key, value string) {
	if p.Overflow == nil {
		p.Overflow = make(map[string]string)
	}
	p.Overflow[key] = value
}

// GetInt parses an overflow value as an integer, or returns def.
func (p *ParamList) GetInt(key string, def int) int {
	v, ok := p.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Clone shallow-copies the list (pointer fields are shared; Overflow gets
// its own map). Used when building a service/return message from an
// original so the two don't alias each other's overflow entries.
func (p *ParamList) Clone() *ParamList {
	c := *p
	if p.Overflow != nil {
		c.Overflow = make(map[string]string, len(p.Overflow))
		for k, v := range p.Overflow {
			c.Overflow[k] = v
		}
	}
	return &c
}

// clearSegmentation drops every "Segmentation.*" overflow entry and the
// typed Segmentation field, matching the original's
// params().clearParam("Segmentation",'.').
func (p *ParamList) clearSegmentation() {
	p.Segmentation = nil
	for k := range p.Overflow {
		if k == "Segmentation" || strings.HasPrefix(k, "Segmentation.") {
			delete(p.Overflow, k)
		}
	}
}
