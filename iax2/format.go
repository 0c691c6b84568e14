package iax2

// MediaType distinguishes the two format slots a transaction negotiates
// independently (spec.md §4.9).
type MediaType int

const (
	MediaAudio MediaType = iota
	MediaVideo
)

// Format is one negotiated (input, output) codec pair for a media type
// (spec.md §3.2, §4.9).
type Format struct {
	Media  MediaType
	Input  uint32
	Output uint32
}

// pickFormat returns the highest-priority bit of the capability
// intersection, or 0 for an empty intersection. It takes no preferred
// default; Negotiate checks the peer's choice and the engine default
// before falling back to it. Capabilities are represented as a codec
// bitmask; "priority" is simply the lowest set bit, matching the bitmask
// ordering used throughout the original engine for "first supported
// codec wins".
func pickFormat(intersection uint32) uint32 {
	if intersection == 0 {
		return 0
	}
	return intersection & (-intersection) // lowest set bit
}

// Negotiate implements the negotiation algorithm of spec.md §4.9:
// intersect remote capability with local capability (and any per-call
// filter), prefer the peer's selected format if it survives the
// intersection, else fall back to the engine default, else pickFormat.
func Negotiate(media MediaType, localCapability, remoteCapability, callFilter, peerFormat, engineDefault uint32) (chosen uint32, empty bool) {
	intersection := localCapability & remoteCapability
	if callFilter != 0 {
		intersection &= callFilter
	}
	if intersection == 0 {
		return 0, true
	}
	if peerFormat != 0 && intersection&peerFormat != 0 {
		return peerFormat, false
	}
	if engineDefault != 0 && intersection&engineDefault != 0 {
		return engineDefault, false
	}
	return pickFormat(intersection), false
}

// ApplyDirection sets the input/output fields of f according to whether
// the transaction that owns it is outbound (sets both directions) or
// inbound (sets output only), per spec.md §4.9's final rule.
func (f *Format) ApplyDirection(chosen uint32, outbound bool) {
	f.Output = chosen
	if outbound {
		f.Input = chosen
	}
}
