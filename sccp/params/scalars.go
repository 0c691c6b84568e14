package params

import "fmt"

// ProtocolClass is the SCCP protocol class octet: low nibble carries the
// class (0 or 1 for connectionless), bit 0x80 carries the return-on-error
// option.
type ProtocolClass struct {
	Class         int
	ReturnOnError bool
}

// NewProtocolClass builds a ProtocolClass, matching the teacher's
// params.NewProtocolClass constructor shape.
func NewProtocolClass(class int, retOnErr bool) *ProtocolClass {
	return &ProtocolClass{Class: class, ReturnOnError: retOnErr}
}

func (p *ProtocolClass) GetProtocolClass() int    { return p.Class }
func (p *ProtocolClass) HasReturnOption() bool    { return p.ReturnOnError }
func (p *ProtocolClass) MarshalLen() int          { return 1 }

func (p *ProtocolClass) Write(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, ErrTooShort
	}
	v := uint8(p.Class & 0x0F)
	if p.ReturnOnError {
		v |= 0x80
	}
	b[0] = v
	return 1, nil
}

func (p *ProtocolClass) Read(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, ErrTooShort
	}
	p.Class = int(b[0] & 0x0F)
	p.ReturnOnError = b[0]&0x80 != 0
	return 1, nil
}

func (p *ProtocolClass) String() string {
	return fmt.Sprintf("Class%d(retOnErr=%t)", p.Class, p.ReturnOnError)
}

// Data is the user-data payload parameter; owns its buffer.
type Data struct {
	Bytes []byte
}

func NewData(b []byte) *Data { return &Data{Bytes: b} }

func (d *Data) Value() []byte { return d.Bytes }

func (d *Data) MarshalLen() int { return len(d.Bytes) }

func (d *Data) Write(b []byte) (int, error) {
	if len(b) < len(d.Bytes) {
		return 0, ErrTooShort
	}
	return copy(b, d.Bytes), nil
}

func (d *Data) Read(b []byte) (int, error) {
	d.Bytes = append([]byte(nil), b...)
	return len(b), nil
}

func (d *Data) String() string {
	return fmt.Sprintf("% x", d.Bytes)
}

// HopCounter is the XUDT/LUDT hop counter parameter (one octet).
type HopCounter struct {
	Value uint8
}

func (h *HopCounter) MarshalLen() int { return 1 }

func (h *HopCounter) Write(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, ErrTooShort
	}
	b[0] = h.Value
	return 1, nil
}

func (h *HopCounter) Read(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, ErrTooShort
	}
	h.Value = b[0]
	return 1, nil
}

// Importance is the optional Importance parameter, 0-6 for ITU connection-
// less messages, 0-7 for service messages per spec.md §3.1 invariants.
type Importance struct {
	Value uint8
}

func (im *Importance) MarshalLen() int { return 1 }

func (im *Importance) Write(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, ErrTooShort
	}
	b[0] = im.Value & 0x07
	return 1, nil
}

func (im *Importance) Read(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, ErrTooShort
	}
	im.Value = b[0] & 0x07
	return 1, nil
}

// Segmentation is the Segmentation IE carried with every segment of a
// split message (spec.md §4.3).
type Segmentation struct {
	FirstSegment        bool
	ProtocolClass        uint8 // effective class, overridden to 1 while segmenting
	RemainingSegments    uint8 // 4-bit counter
	SegmentationLocalRef uint32 // 24-bit SLR
}

func (s *Segmentation) MarshalLen() int { return 4 }

func (s *Segmentation) Write(b []byte) (int, error) {
	if len(b) < 4 {
		return 0, ErrTooShort
	}
	first := uint8(0)
	if s.FirstSegment {
		first = 0x80
	}
	b[0] = first | (s.ProtocolClass&0x07)<<4 | (s.RemainingSegments & 0x0F)
	b[1] = byte(s.SegmentationLocalRef)
	b[2] = byte(s.SegmentationLocalRef >> 8)
	b[3] = byte(s.SegmentationLocalRef >> 16)
	return 4, nil
}

func (s *Segmentation) Read(b []byte) (int, error) {
	if len(b) < 4 {
		return 0, ErrTooShort
	}
	s.FirstSegment = b[0]&0x80 != 0
	s.ProtocolClass = (b[0] >> 4) & 0x07
	s.RemainingSegments = b[0] & 0x0F
	s.SegmentationLocalRef = uint32(b[1]) | uint32(b[2])<<8 | uint32(b[3])<<16
	return 4, nil
}
