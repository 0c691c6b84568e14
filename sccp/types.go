// Copyright 2019-2024 go-sccp authors. All rights reserved.
// Use of this source code is governed by a MIT-style license that can be
// found in the LICENSE file.

/*
Package sccp provides encoding/decoding and routing for the Signalling
Connection Control Part used in the SS7/SIGTRAN protocol stack: the
message codec, addressing, segmentation/reassembly and the SS7SCCP
routing facade. Management state machines live in the sibling sccp/mgmt
package.
*/
package sccp

import (
	"encoding"
	"fmt"
	"io"

	"github.com/vir/yate-sub002/sccp/params"
)

// MsgType is the SCCP message type octet.
type MsgType uint8

// Message Type definitions, Table 2/Q.713.
const (
	_            MsgType = iota
	MsgTypeCR            // CR  - connection request
	MsgTypeCC            // CC  - connection confirm
	MsgTypeCREF          // CREF - connection refused
	MsgTypeRLSD          // RLSD
	MsgTypeRLC           // RLC
	MsgTypeDT1           // DT1
	MsgTypeDT2           // DT2
	MsgTypeAK            // AK
	MsgTypeUDT           // UDT
	MsgTypeUDTS          // UDTS
	MsgTypeED            // ED
	MsgTypeEA            // EA
	MsgTypeRSR           // RSR
	MsgTypeRSC           // RSC
	MsgTypeERR           // ERR
	MsgTypeIT            // IT
	MsgTypeXUDT          // XUDT
	MsgTypeXUDTS         // XUDTS
	MsgTypeLUDT          // LUDT
	MsgTypeLUDTS         // LUDTS
)

func (t MsgType) String() string {
	switch t {
	case MsgTypeCR:
		return "CR"
	case MsgTypeCC:
		return "CC"
	case MsgTypeCREF:
		return "CREF"
	case MsgTypeRLSD:
		return "RLSD"
	case MsgTypeRLC:
		return "RLC"
	case MsgTypeDT1:
		return "DT1"
	case MsgTypeDT2:
		return "DT2"
	case MsgTypeAK:
		return "AK"
	case MsgTypeUDT:
		return "UDT"
	case MsgTypeUDTS:
		return "UDTS"
	case MsgTypeED:
		return "ED"
	case MsgTypeEA:
		return "EA"
	case MsgTypeRSR:
		return "RSR"
	case MsgTypeRSC:
		return "RSC"
	case MsgTypeERR:
		return "ERR"
	case MsgTypeIT:
		return "IT"
	case MsgTypeXUDT:
		return "XUDT"
	case MsgTypeXUDTS:
		return "XUDTS"
	case MsgTypeLUDT:
		return "LUDT"
	case MsgTypeLUDTS:
		return "LUDTS"
	default:
		return "Unknown"
	}
}

// UnsupportedTypeError is returned by ParseMessage for an unrecognized or
// not-yet-implemented message type octet.
type UnsupportedTypeError uint8

func (e UnsupportedTypeError) Error() string {
	return fmt.Sprintf("sccp: unsupported message type 0x%02x", uint8(e))
}

// ReturnCause is the wire cause value carried by UDTS/XUDTS/LUDTS,
// lifted from Q.713 (spec.md §4.4).
type ReturnCause uint8

const (
	CauseNoTranslationAddressNature       ReturnCause = 0
	CauseNoTranslationSpecificAddress     ReturnCause = 1
	CauseSubsystemCongestion              ReturnCause = 2
	CauseSubsystemFailure                 ReturnCause = 3
	CauseUnequippedUser                   ReturnCause = 4
	CauseMtpFailure                       ReturnCause = 5
	CauseNetworkCongestion                ReturnCause = 6
	CauseUnqualified                      ReturnCause = 7
	CauseErrorInMessageTransport          ReturnCause = 8
	CauseErrorInLocalProcessing           ReturnCause = 9
	CauseDestinationCanNotPerformReassembly ReturnCause = 10
	CauseSccpFailure                      ReturnCause = 11
	CauseHopCounterViolation              ReturnCause = 12
	CauseSegmentationNotSupported         ReturnCause = 13
	CauseSegmentationFailure              ReturnCause = 14
	// 15..22 are ANSI-only extensions; named generically since spec.md
	// does not enumerate their individual meanings.
	CauseAnsiReserved15 ReturnCause = 15
	CauseAnsiReserved22 ReturnCause = 22
)

func (c ReturnCause) String() string {
	names := map[ReturnCause]string{
		CauseNoTranslationAddressNature:         "NoTranslationAddressNature",
		CauseNoTranslationSpecificAddress:       "NoTranslationSpecificAddress",
		CauseSubsystemCongestion:                "SubsystemCongestion",
		CauseSubsystemFailure:                   "SubsystemFailure",
		CauseUnequippedUser:                     "UnequippedUser",
		CauseMtpFailure:                         "MtpFailure",
		CauseNetworkCongestion:                  "NetworkCongestion",
		CauseUnqualified:                        "Unqualified",
		CauseErrorInMessageTransport:            "ErrorInMessageTransport",
		CauseErrorInLocalProcessing:             "ErrorInLocalProcessing",
		CauseDestinationCanNotPerformReassembly: "DestinationCanNotPerformReassembly",
		CauseSccpFailure:                        "SccpFailure",
		CauseHopCounterViolation:                "HopCounterViolation",
		CauseSegmentationNotSupported:           "SegmentationNotSupported",
		CauseSegmentationFailure:                "SegmentationFailure",
	}
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("Cause(%d)", c)
}

// Size budget constants recovered from original_source/libs/ysig/sccp.cpp.
const (
	MaxUDTLen      = 227  // original MAX_UDT_LEN
	MaxOptLen      = 10   // original MAX_OPT_LEN: 6 Segmentation + 3 Importance + 1 EOP
	MaxDataITU     = 3952 // original MAX_DATA_ITU
	MaxDataANSI    = 3904 // original MAX_DATA_ANSI
	MinDataSize    = 2    // original MIN_DATA_SIZE
	MaxSegments    = 16   // 4-bit remaining-segments counter
)

// Message is the interface implemented by every SCCP message type this
// package handles (connectionless data/service messages; CR/CREF only to
// the extent spec.md requires for rejection).
type Message interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	MarshalTo([]byte) error
	MarshalLen() int
	MessageType() MsgType
	MessageTypeName() string
	fmt.Stringer
}

// ParseMessage decodes b into a concrete Message by its leading type octet.
func ParseMessage(b []byte, pcType params.PointCodeType) (Message, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("sccp: parse message: %w", io.ErrUnexpectedEOF)
	}
	var m Message
	switch MsgType(b[0]) {
	case MsgTypeUDT:
		m = &UDT{PCType: pcType}
	case MsgTypeUDTS:
		m = &UDTS{PCType: pcType}
	case MsgTypeXUDT:
		m = &XUDT{xudtCommon: xudtCommon{PCType: pcType}}
	case MsgTypeXUDTS:
		m = &XUDTS{xudtCommon: xudtCommon{PCType: pcType}}
	case MsgTypeLUDT:
		m = &LUDT{ludtCommon: ludtCommon{PCType: pcType}}
	case MsgTypeLUDTS:
		m = &LUDTS{ludtCommon: ludtCommon{PCType: pcType}}
	case MsgTypeCR:
		m = &CR{PCType: pcType}
	case MsgTypeCREF:
		m = &CREF{}
	default:
		return nil, UnsupportedTypeError(b[0])
	}
	if err := m.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("sccp: failed to parse %s message: %w", MsgType(b[0]), err)
	}
	return m, nil
}
