package sccp

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/vir/yate-sub002/sccp/params"
)

// ErrSegmentationFailure is returned when a payload cannot be segmented
// within the protocol's 16-segment limit (spec.md §4.3).
var ErrSegmentationFailure = fmt.Errorf("sccp: segmentation failure: payload exceeds 16 segments")

// RouteLimits are the three size ceilings the segmenter selects between,
// derived from the MTP route's MTU (spec.md §4.3).
type RouteLimits struct {
	UDTMax  int
	XUDTMax int
	LUDTMax int // 0 when the route does not support LUDT (MTU <= 272)
}

// LimitsForMTU computes RouteLimits from a route's reported MTU, following
// the reservation accounting of spec.md §4.3: routing label + SIO + type +
// class octets + address overhead + MaxOptLen.
func LimitsForMTU(mtu int, addressOverhead int) RouteLimits {
	const labelAndSio = 5 // routing label (4) + SIO (1), approximated
	const typeAndClass = 2
	reserved := labelAndSio + typeAndClass + addressOverhead + MaxOptLen
	udt := MaxUDTLen - addressOverhead
	if udt < 0 {
		udt = 0
	}
	x := mtu - reserved
	if x < 0 {
		x = 0
	}
	l := 0
	if mtu > 272 {
		l = mtu - reserved
	}
	return RouteLimits{UDTMax: udt, XUDTMax: x, LUDTMax: l}
}

// Segment is one emitted chunk of a segmented message, carrying its own
// Segmentation IE (spec.md §4.3).
type Segment struct {
	Message      Message
	Segmentation params.Segmentation
}

// SegmentPayload splits data into segments honoring spec.md §4.3's rules:
// the first segment is as large as possible while reserving room for
// subsequent segments; each later segment is <= dataLen; there are never
// more than MaxSegments chunks.
func SegmentPayload(data []byte, dataLen int) ([][]byte, error) {
	if dataLen <= 0 {
		return nil, fmt.Errorf("sccp: invalid segment data length %d", dataLen)
	}
	if len(data) <= dataLen {
		return [][]byte{data}, nil
	}
	if len(data) > MaxSegments*dataLen {
		return nil, ErrSegmentationFailure
	}
	var out [][]byte
	for len(data) > 0 {
		n := dataLen
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	if len(out) > MaxSegments {
		return nil, ErrSegmentationFailure
	}
	return out, nil
}

// NewSegmentationLocalReference generates a fresh 24-bit SLR, one per
// original message being segmented (spec.md §4.3).
func NewSegmentationLocalReference() uint32 {
	return rand.Uint32() & 0xFFFFFF
}

// ReassemblyKey identifies one in-progress reassembly (spec.md §3.1).
type ReassemblyKey struct {
	OPC                  params.PointCode
	DPC                  params.PointCode
	CallingPartySubset   string // calling-party-address fields relevant to the key
	SegmentationLocalRef uint32
}

// ReassemblyEntry accumulates segments of one message (spec.md §3.1).
type ReassemblyEntry struct {
	Key               ReassemblyKey
	Payload           []byte
	RemainingExpected uint8
	FirstSegmentLen   int
	MessageReturn     bool
	Deadline          time.Time
	First             Message // the first segment, used to build a service message on failure
}

// ReassemblyTable holds all in-progress reassemblies for one SS7SCCP
// instance (spec.md §4.3).
type ReassemblyTable struct {
	mu      sync.Mutex
	entries map[ReassemblyKey]*ReassemblyEntry
	Timeout time.Duration // clamped to [5s, 20s], default 10s
}

// NewReassemblyTable builds a table with the given segmentation timeout,
// clamped per spec.md §4.3 (original: segmentation-timeout, default
// 10000ms, clamp [5000,20000]).
func NewReassemblyTable(timeout time.Duration) *ReassemblyTable {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if timeout < 5*time.Second {
		timeout = 5 * time.Second
	}
	if timeout > 20*time.Second {
		timeout = 20 * time.Second
	}
	return &ReassemblyTable{entries: make(map[ReassemblyKey]*ReassemblyEntry), Timeout: timeout}
}

// ReassembleResult reports what happened to one incoming segment.
type ReassembleResult int

const (
	ReassembleInProgress ReassembleResult = iota
	ReassembleComplete
	ReassembleRejected
)

// AddSegment folds one segment into the table (spec.md §4.3). now is
// injected so callers (and tests) control the clock.
func (t *ReassemblyTable) AddSegment(key ReassemblyKey, seg params.Segmentation, payload []byte, messageReturn bool, first Message, now time.Time) (ReassembleResult, *ReassemblyEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if seg.FirstSegment {
		if ok {
			delete(t.entries, key) // stray first segment for a key in progress: drop the old entry
		}
		e = &ReassemblyEntry{
			Key:               key,
			Payload:           append([]byte(nil), payload...),
			RemainingExpected: seg.RemainingSegments,
			FirstSegmentLen:   len(payload),
			MessageReturn:     messageReturn,
			Deadline:          now.Add(t.Timeout),
			First:             first,
		}
		if e.RemainingExpected == 0 {
			delete(t.entries, key)
			return ReassembleComplete, e
		}
		t.entries[key] = e
		return ReassembleInProgress, e
	}

	if !ok || now.After(e.Deadline) {
		delete(t.entries, key)
		return ReassembleRejected, e
	}
	if seg.RemainingSegments != e.RemainingExpected-1 || len(payload) > e.FirstSegmentLen {
		delete(t.entries, key)
		return ReassembleRejected, e
	}
	e.Payload = append(e.Payload, payload...)
	e.RemainingExpected = seg.RemainingSegments
	if e.RemainingExpected == 0 {
		delete(t.entries, key)
		return ReassembleComplete, e
	}
	return ReassembleInProgress, e
}

// ExpireOlderThan drops every entry whose deadline has passed as of now,
// called by the shared timer tick (spec.md §4.3, §5).
func (t *ReassemblyTable) ExpireOlderThan(now time.Time) []*ReassemblyEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []*ReassemblyEntry
	for k, e := range t.entries {
		if now.After(e.Deadline) {
			expired = append(expired, e)
			delete(t.entries, k)
		}
	}
	return expired
}
