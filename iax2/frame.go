// Package iax2 implements the IAX2 transport engine: frame parsing, the
// transaction table, call-number allocation, call-token anti-spoofing,
// trunk aggregation, and format negotiation (spec.md §3.2, §4.7-§4.10).
package iax2

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameType is the full-frame type octet (spec.md §3.2). A mini-frame
// carries no type octet; ParseFrame reports it as FrameTypeVoice.
type FrameType uint8

const (
	FrameTypeDTMF       FrameType = 1
	FrameTypeVoice      FrameType = 2
	FrameTypeVideo      FrameType = 3
	FrameTypeControl    FrameType = 4
	FrameTypeNull       FrameType = 5
	FrameTypeIAX        FrameType = 6
	FrameTypeText       FrameType = 7
	FrameTypeImage      FrameType = 8
	FrameTypeHTML       FrameType = 9
	FrameTypeComfortNoise FrameType = 10
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeDTMF:
		return "DTMF"
	case FrameTypeVoice:
		return "Voice"
	case FrameTypeVideo:
		return "Video"
	case FrameTypeControl:
		return "Control"
	case FrameTypeNull:
		return "Null"
	case FrameTypeIAX:
		return "IAX"
	case FrameTypeText:
		return "Text"
	case FrameTypeImage:
		return "Image"
	case FrameTypeHTML:
		return "HTML"
	case FrameTypeComfortNoise:
		return "ComfortNoise"
	default:
		return fmt.Sprintf("FrameType(%d)", uint8(t))
	}
}

// IAXControl enumerates the subclass values carried by type-IAX full
// frames that the engine itself understands (spec.md §4.7, §4.8).
type IAXControl uint8

const (
	IAXControlNew       IAXControl = 1
	IAXControlPing      IAXControl = 2
	IAXControlPong      IAXControl = 3
	IAXControlAck       IAXControl = 4
	IAXControlHangup    IAXControl = 5
	IAXControlReject    IAXControl = 6
	IAXControlAccept    IAXControl = 7
	IAXControlAuthReq   IAXControl = 8
	IAXControlAuthRep   IAXControl = 9
	IAXControlInval     IAXControl = 10
	IAXControlLagRq     IAXControl = 11
	IAXControlLagRp     IAXControl = 12
	IAXControlRegReq    IAXControl = 13
	IAXControlRegAuth   IAXControl = 14
	IAXControlRegAck    IAXControl = 15
	IAXControlRegRej    IAXControl = 16
	IAXControlRegRel    IAXControl = 17
	IAXControlVnak      IAXControl = 18
	IAXControlDpReq     IAXControl = 19
	IAXControlDpRep     IAXControl = 20
	IAXControlDial      IAXControl = 21
	IAXControlTxReq     IAXControl = 22
	IAXControlTxCnt     IAXControl = 23
	IAXControlTxAcc     IAXControl = 24
	IAXControlTxReady   IAXControl = 25
	IAXControlTxRel     IAXControl = 26
	IAXControlTxRej     IAXControl = 27
	IAXControlQuelch    IAXControl = 28
	IAXControlUnquelch  IAXControl = 29
	IAXControlPoke      IAXControl = 30
	IAXControlPage      IAXControl = 31
	IAXControlMWI       IAXControl = 32
	IAXControlUnsupport IAXControl = 33
	IAXControlTransfer  IAXControl = 34
	IAXControlProvision IAXControl = 35
	IAXControlFwDownl   IAXControl = 36
	IAXControlFwData    IAXControl = 37
	IAXControlCallToken IAXControl = 40
)

func (c IAXControl) String() string {
	switch c {
	case IAXControlNew:
		return "New"
	case IAXControlAccept:
		return "Accept"
	case IAXControlReject:
		return "Reject"
	case IAXControlInval:
		return "Inval"
	case IAXControlRegReq:
		return "RegReq"
	case IAXControlRegRel:
		return "RegRel"
	case IAXControlPoke:
		return "Poke"
	case IAXControlTxCnt:
		return "TxCnt"
	case IAXControlTxAcc:
		return "TxAcc"
	case IAXControlFwDownl:
		return "FwDownl"
	case IAXControlCallToken:
		return "CallToken"
	default:
		return fmt.Sprintf("IAXControl(%d)", uint8(c))
	}
}

// IEType is an information-element type code (spec.md §3.2 IE list).
type IEType uint8

const (
	IECallingNumber IEType = 1
	IECalledNumber  IEType = 2
	IECalledContext IEType = 5
	IEUsername      IEType = 6
	IEPassword      IEType = 7
	IECapability    IEType = 8
	IEFormat        IEType = 9
	IELanguage      IEType = 10
	IEVersion       IEType = 11
	IEApparentAddr  IEType = 18
	IECauseText     IEType = 22
	IECause         IEType = 22
	IEMD5Result     IEType = 25
	IERefresh       IEType = 28
	IEDateTime      IEType = 31
	IECallToken     IEType = 54
)

// IE is one opaque information element, preserved by identity across
// decode/re-encode (spec.md §3.2).
type IE struct {
	Type IEType
	Data []byte
}

func (ie IE) String() string  { return string(ie.Data) }
func (ie IE) Uint32() uint32  { return binary.BigEndian.Uint32(pad4(ie.Data)) }
func (ie IE) Uint16() uint16  { return binary.BigEndian.Uint16(pad2(ie.Data)) }
func (ie IE) Byte() byte      { if len(ie.Data) == 0 { return 0 }; return ie.Data[0] }

func pad4(b []byte) []byte {
	out := make([]byte, 4)
	copy(out[4-len(b):], b)
	return out
}

func pad2(b []byte) []byte {
	out := make([]byte, 2)
	copy(out[2-len(b):], b)
	return out
}

// IEList is an ordered type-code -> value list (spec.md §3.2). Order is
// preserved because some peers are sensitive to IE ordering on the wire.
type IEList struct {
	entries []IE
}

func (l *IEList) Append(t IEType, data []byte) {
	l.entries = append(l.entries, IE{Type: t, Data: data})
}

func (l *IEList) AppendString(t IEType, s string) { l.Append(t, []byte(s)) }

func (l *IEList) AppendUint32(t IEType, v uint32) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	l.Append(t, b)
}

func (l *IEList) Get(t IEType) (IE, bool) {
	for _, e := range l.entries {
		if e.Type == t {
			return e, true
		}
	}
	return IE{}, false
}

func (l *IEList) All() []IE { return l.entries }

func (l *IEList) MarshalBinary() ([]byte, error) {
	var out []byte
	for _, e := range l.entries {
		if len(e.Data) > 255 {
			return nil, fmt.Errorf("iax2: IE %d too long (%d octets)", e.Type, len(e.Data))
		}
		out = append(out, byte(e.Type), byte(len(e.Data)))
		out = append(out, e.Data...)
	}
	return out, nil
}

func ParseIEList(b []byte) (*IEList, error) {
	l := &IEList{}
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, io.ErrUnexpectedEOF
		}
		t, n := IEType(b[0]), int(b[1])
		if len(b) < 2+n {
			return nil, io.ErrUnexpectedEOF
		}
		l.entries = append(l.entries, IE{Type: t, Data: append([]byte(nil), b[2:2+n]...)})
		b = b[2+n:]
	}
	return l, nil
}

// Frame is the common wire-decoded form; a mini-frame carries only the
// fields below, a full frame carries the rest via FullFrame (spec.md
// §3.2).
type Frame struct {
	Type          FrameType
	SourceCallNo  uint16
	Full          *FullFrame // nil for a mini-frame
	Timestamp     uint32     // low 16 bits on a mini-frame
	Payload       []byte
}

// FullFrame is the control-bearing frame variant (spec.md §3.2).
type FullFrame struct {
	DestCallNo uint16
	OSeqNo     uint8
	ISeqNo     uint8
	Subclass   uint8
	IEs        *IEList
}

const (
	fullFrameBit  = 0x8000
	retransmitBit = 0x8000 // DestCallNo high bit, set on a retransmission
)

// ParseFrame decodes one UDP datagram into a Frame (spec.md §4.7 step 1).
func ParseFrame(b []byte) (*Frame, error) {
	if len(b) < 4 {
		return nil, io.ErrUnexpectedEOF
	}
	srcCallNo := binary.BigEndian.Uint16(b[0:2])
	full := srcCallNo&fullFrameBit != 0
	srcCallNo &^= fullFrameBit

	if !full {
		if len(b) < 4 {
			return nil, io.ErrUnexpectedEOF
		}
		ts := binary.BigEndian.Uint16(b[2:4])
		return &Frame{
			Type:         FrameTypeVoice,
			SourceCallNo: srcCallNo,
			Timestamp:    uint32(ts),
			Payload:      append([]byte(nil), b[4:]...),
		}, nil
	}

	if len(b) < 12 {
		return nil, io.ErrUnexpectedEOF
	}
	destCallNo := binary.BigEndian.Uint16(b[2:4]) &^ retransmitBit
	ts := binary.BigEndian.Uint32(b[4:8])
	oseq := b[8]
	iseq := b[9]
	ftype := FrameType(b[10])
	subclass := b[11]

	ff := &FullFrame{
		DestCallNo: destCallNo,
		OSeqNo:     oseq,
		ISeqNo:     iseq,
		Subclass:   subclass,
	}
	payload := append([]byte(nil), b[12:]...)
	if ftype == FrameTypeIAX {
		ies, err := ParseIEList(payload)
		if err != nil {
			return nil, fmt.Errorf("iax2: parse IE list: %w", err)
		}
		ff.IEs = ies
		payload = nil
	}
	return &Frame{
		Type:         ftype,
		SourceCallNo: srcCallNo,
		Full:         ff,
		Timestamp:    ts,
		Payload:      payload,
	}, nil
}

// MarshalBinary re-serializes a Frame (used both for outbound traffic and
// for Inval/Reject/CallToken replies synthesized by the engine).
func (f *Frame) MarshalBinary() ([]byte, error) {
	if f.Full == nil {
		b := make([]byte, 4, 4+len(f.Payload))
		binary.BigEndian.PutUint16(b[0:2], f.SourceCallNo)
		binary.BigEndian.PutUint16(b[2:4], uint16(f.Timestamp))
		b = append(b, f.Payload...)
		return b, nil
	}
	payload := f.Payload
	if f.Type == FrameTypeIAX && f.Full.IEs != nil {
		ieb, err := f.Full.IEs.MarshalBinary()
		if err != nil {
			return nil, err
		}
		payload = ieb
	}
	b := make([]byte, 12, 12+len(payload))
	binary.BigEndian.PutUint16(b[0:2], f.SourceCallNo|fullFrameBit)
	binary.BigEndian.PutUint16(b[2:4], f.Full.DestCallNo)
	binary.BigEndian.PutUint32(b[4:8], f.Timestamp)
	b[8] = f.Full.OSeqNo
	b[9] = f.Full.ISeqNo
	b[10] = byte(f.Type)
	b[11] = f.Full.Subclass
	b = append(b, payload...)
	return b, nil
}

// NewFullFrame builds an outbound full frame, mirroring the constructor
// signature used throughout engine.cpp (type, subclass, src/dst call
// numbers, oseq, iseq, timestamp, optional IE list).
func NewFullFrame(typ FrameType, subclass uint8, srcCallNo, destCallNo uint16, oseq, iseq uint8, ts uint32, ies *IEList) *Frame {
	return &Frame{
		Type:         typ,
		SourceCallNo: srcCallNo,
		Timestamp:    ts,
		Full: &FullFrame{
			DestCallNo: destCallNo,
			OSeqNo:     oseq,
			ISeqNo:     iseq,
			Subclass:   subclass,
			IEs:        ies,
		},
	}
}
