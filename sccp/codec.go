package sccp

import (
	"fmt"

	"github.com/vir/yate-sub002/sccp/params"
)

// Optional-parameter tag octets for the trailer table shared by every
// message type that permits one (spec.md §4.1 pass 4).
const (
	optEOP          = 0x00
	optSegmentation = 0x10
	optImportance   = 0x12
	optHopCounter   = 0x11 // also carried as a mandatory fixed param on XUDT/LUDT
)

// optionalDescriptor is the table-driven descriptor for one optional
// parameter, mirroring Design Note §9's "constant data tables keyed by
// wire-type octet, with function pointers for encode/decode".
type optionalDescriptor struct {
	tag    uint8
	name   string
	encode func(p *ParamList) ([]byte, bool) // ok=false: absent, skip
	decode func(p *ParamList, b []byte) error
}

var optionalTable = []optionalDescriptor{
	{
		tag:  optSegmentation,
		name: "Segmentation",
		encode: func(p *ParamList) ([]byte, bool) {
			if p.Segmentation == nil {
				return nil, false
			}
			b := make([]byte, p.Segmentation.MarshalLen())
			p.Segmentation.Write(b)
			return b, true
		},
		decode: func(p *ParamList, b []byte) error {
			s := &params.Segmentation{}
			if _, err := s.Read(b); err != nil {
				return err
			}
			p.Segmentation = s
			return nil
		},
	},
	{
		tag:  optImportance,
		name: "Importance",
		encode: func(p *ParamList) ([]byte, bool) {
			if p.Importance == nil {
				return nil, false
			}
			return []byte{*p.Importance & 0x07}, true
		},
		decode: func(p *ParamList, b []byte) error {
			if len(b) < 1 {
				return params.ErrTooShort
			}
			v := b[0] & 0x07
			p.Importance = &v
			return nil
		},
	},
}

func findOptional(tag uint8) *optionalDescriptor {
	for i := range optionalTable {
		if optionalTable[i].tag == tag {
			return &optionalTable[i]
		}
	}
	return nil
}

// encodeOptional writes the optional-parameter trailer: {tag,len,value}
// triples for every populated optionalTable descriptor, terminated by a
// zero type octet (spec.md §4.1 pass 4). ParamList.Overflow is not
// encoded: Param_<n> entries kept by decodeOptional are not written back.
func encodeOptional(p *ParamList) []byte {
	var out []byte
	for _, d := range optionalTable {
		b, ok := d.encode(p)
		if !ok {
			continue
		}
		out = append(out, d.tag, uint8(len(b)))
		out = append(out, b...)
	}
	out = append(out, optEOP)
	return out
}

// decodeOptional parses the optional-parameter trailer starting at b,
// populating known descriptors and stashing anything unrecognized under
// Param_<n> as a raw-hex string plus a "parameters-unsupported" listing
// (spec.md §4.1).
func decodeOptional(p *ParamList, b []byte) error {
	i := 0
	var unsupported []string
	for i < len(b) {
		tag := b[i]
		if tag == optEOP {
			i++
			break
		}
		if i+1 >= len(b) {
			return fmt.Errorf("sccp: truncated optional parameter tag 0x%02x: %w", tag, params.ErrTooShort)
		}
		l := int(b[i+1])
		start := i + 2
		end := start + l
		if end > len(b) {
			return fmt.Errorf("sccp: optional parameter 0x%02x length %d exceeds buffer: %w", tag, l, params.ErrTooShort)
		}
		val := b[start:end]
		if d := findOptional(tag); d != nil {
			if err := d.decode(p, val); err != nil {
				return fmt.Errorf("sccp: decode optional %s: %w", d.name, err)
			}
		} else {
			name := fmt.Sprintf("Param_%d", tag)
			p.Set(name, fmt.Sprintf("%x", val))
			unsupported = append(unsupported, name)
		}
		i = end
	}
	if len(unsupported) > 0 {
		joined := ""
		for i, n := range unsupported {
			if i > 0 {
				joined += ","
			}
			joined += n
		}
		p.Set("parameters-unsupported", joined)
	}
	// trailing octets after EOP are a warning, never a hard error.
	return nil
}

// writePointers lays out count one-octet (or two-octet when longPtrs)
// pointer slots, back-patched once each part's {len,value} has been
// appended. Pointer value = octets from the pointer slot to that part's
// length octet (spec.md §4.1 pass 3).
func writePointers(parts [][]byte, longPtrs bool) ([]byte, error) {
	n := len(parts)
	ptrWidth := 1
	if longPtrs {
		ptrWidth = 2
	}
	out := make([]byte, n*ptrWidth)
	maxPtr := 255
	if longPtrs {
		maxPtr = 65535
	}
	for i, part := range parts {
		slot := i * ptrWidth
		lenOctetPos := len(out) // where this part's length octet will land
		ptr := lenOctetPos - slot
		if ptr > maxPtr {
			return nil, fmt.Errorf("sccp: %w: pointer %d exceeds %d", params.ErrPointerOverflow, ptr, maxPtr)
		}
		if longPtrs {
			out[slot] = byte(ptr)
			out[slot+1] = byte(ptr >> 8)
			lenBytes := 2
			lbuf := make([]byte, lenBytes+len(part))
			lbuf[0] = byte(len(part))
			lbuf[1] = byte(len(part) >> 8)
			copy(lbuf[lenBytes:], part)
			out = append(out, lbuf...)
		} else {
			out[slot] = byte(ptr)
			lbuf := make([]byte, 1+len(part))
			lbuf[0] = byte(len(part))
			copy(lbuf[1:], part)
			out = append(out, lbuf...)
		}
	}
	return out, nil
}

// readPointers is the decode-side mirror of writePointers.
func readPointers(b []byte, count int, longPtrs bool) ([][]byte, error) {
	ptrWidth := 1
	if longPtrs {
		ptrWidth = 2
	}
	if len(b) < count*ptrWidth {
		return nil, params.ErrTooShort
	}
	parts := make([][]byte, count)
	for i := 0; i < count; i++ {
		slot := i * ptrWidth
		var ptr int
		if longPtrs {
			ptr = int(b[slot]) | int(b[slot+1])<<8
		} else {
			ptr = int(b[slot])
		}
		lenPos := slot + ptr
		if lenPos < 0 || lenPos >= len(b) {
			return nil, fmt.Errorf("sccp: pointer %d out of range: %w", ptr, params.ErrTooShort)
		}
		var l, dataStart int
		if longPtrs {
			if lenPos+2 > len(b) {
				return nil, params.ErrTooShort
			}
			l = int(b[lenPos]) | int(b[lenPos+1])<<8
			dataStart = lenPos + 2
		} else {
			l = int(b[lenPos])
			dataStart = lenPos + 1
		}
		if dataStart+l > len(b) {
			return nil, params.ErrTooShort
		}
		parts[i] = b[dataStart : dataStart+l]
	}
	return parts, nil
}
