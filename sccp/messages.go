// Copyright 2019-2024 go-sccp authors. All rights reserved.
// Use of this source code is governed by a MIT-style license that can be
// found in the LICENSE file.

package sccp

import (
	"fmt"
	"io"

	"github.com/vir/yate-sub002/sccp/params"
)

// addressPair is shared by every connectionless message type: three
// mandatory variable parameters (called, calling, data) laid out per
// spec.md §4.1 pass 3.
type addressPair struct {
	CalledPartyAddress  *params.PartyAddress
	CallingPartyAddress *params.PartyAddress
	Data                *params.Data
}

func (a *addressPair) marshalParts() ([][]byte, error) {
	parts := make([][]byte, 3)
	for i, enc := range []func([]byte) (int, error){
		func(b []byte) (int, error) { return a.CalledPartyAddress.Marshal(b) },
		func(b []byte) (int, error) { return a.CallingPartyAddress.Marshal(b) },
		func(b []byte) (int, error) { return a.Data.Write(b) },
	} {
		var ln int
		switch i {
		case 0:
			ln = a.CalledPartyAddress.MarshalLen()
		case 1:
			ln = a.CallingPartyAddress.MarshalLen()
		case 2:
			ln = a.Data.MarshalLen()
		}
		buf := make([]byte, ln)
		if _, err := enc(buf); err != nil {
			return nil, err
		}
		parts[i] = buf
	}
	return parts, nil
}

func (a *addressPair) unmarshalParts(parts [][]byte, pcType params.PointCodeType, ignoreUnknown bool) error {
	if len(parts) != 3 {
		return fmt.Errorf("sccp: expected 3 variable parts, got %d", len(parts))
	}
	cdpa, _, err := params.ParseCalledPartyAddress(parts[0], pcType, ignoreUnknown)
	if err != nil {
		return fmt.Errorf("sccp: called party address: %w", err)
	}
	cgpa, _, err := params.ParseCallingPartyAddress(parts[1], pcType, ignoreUnknown)
	if err != nil {
		return fmt.Errorf("sccp: calling party address: %w", err)
	}
	a.CalledPartyAddress = cdpa
	a.CallingPartyAddress = cgpa
	a.Data = &params.Data{}
	if _, err := a.Data.Read(parts[2]); err != nil {
		return fmt.Errorf("sccp: data: %w", err)
	}
	return nil
}

// ---- UDT ----

// UDT is the basic connectionless SCCP data message (spec.md §3.1).
type UDT struct {
	ProtocolClass *params.ProtocolClass
	PCType        params.PointCodeType
	addressPair
}

func NewUDT(pcls int, retOnErr bool, cdpa, cgpa *params.PartyAddress, data []byte) *UDT {
	return &UDT{
		ProtocolClass: params.NewProtocolClass(pcls, retOnErr),
		addressPair: addressPair{
			CalledPartyAddress:  cdpa,
			CallingPartyAddress: cgpa,
			Data:                params.NewData(data),
		},
	}
}

func (u *UDT) MessageType() MsgType     { return MsgTypeUDT }
func (u *UDT) MessageTypeName() string  { return u.MessageType().String() }

func (u *UDT) MarshalLen() int {
	return 2 + 3 + u.CalledPartyAddress.MarshalLen() + 1 + u.CallingPartyAddress.MarshalLen() + 1 + u.Data.MarshalLen() + 1
}

func (u *UDT) MarshalBinary() ([]byte, error) {
	b := make([]byte, u.MarshalLen())
	return b, u.MarshalTo(b)
}

func (u *UDT) MarshalTo(b []byte) error {
	if len(b) < 2 {
		return io.ErrUnexpectedEOF
	}
	b[0] = uint8(MsgTypeUDT)
	if _, err := u.ProtocolClass.Write(b[1:2]); err != nil {
		return err
	}
	parts, err := u.addressPair.marshalParts()
	if err != nil {
		return err
	}
	ptrBlock, err := writePointers(parts, false)
	if err != nil {
		return err
	}
	copy(b[2:], ptrBlock)
	return nil
}

func (u *UDT) UnmarshalBinary(b []byte) error {
	if len(b) < 2 {
		return io.ErrUnexpectedEOF
	}
	u.ProtocolClass = &params.ProtocolClass{}
	if _, err := u.ProtocolClass.Read(b[1:2]); err != nil {
		return err
	}
	parts, err := readPointers(b[2:], 3, false)
	if err != nil {
		return err
	}
	return u.addressPair.unmarshalParts(parts, u.PCType, true)
}

func (u *UDT) String() string {
	return fmt.Sprintf("UDT: {ProtocolClass: %s, CalledPartyAddress: %s, CallingPartyAddress: %s, Data: %s}",
		u.ProtocolClass, u.CalledPartyAddress.AddressWithDetails(), u.CallingPartyAddress.AddressWithDetails(), u.Data)
}

// ---- UDTS ----

// UDTS is the service message returned for a UDT that could not be
// delivered (spec.md §4.4).
type UDTS struct {
	ReturnCause ReturnCause
	PCType      params.PointCodeType
	addressPair
}

func NewUDTS(cause ReturnCause, cdpa, cgpa *params.PartyAddress, data []byte) *UDTS {
	return &UDTS{
		ReturnCause: cause,
		addressPair: addressPair{CalledPartyAddress: cdpa, CallingPartyAddress: cgpa, Data: params.NewData(data)},
	}
}

func (u *UDTS) MessageType() MsgType    { return MsgTypeUDTS }
func (u *UDTS) MessageTypeName() string { return u.MessageType().String() }

func (u *UDTS) MarshalLen() int {
	return 2 + 3 + u.CalledPartyAddress.MarshalLen() + 1 + u.CallingPartyAddress.MarshalLen() + 1 + u.Data.MarshalLen() + 1
}

func (u *UDTS) MarshalBinary() ([]byte, error) {
	b := make([]byte, u.MarshalLen())
	return b, u.MarshalTo(b)
}

func (u *UDTS) MarshalTo(b []byte) error {
	if len(b) < 2 {
		return io.ErrUnexpectedEOF
	}
	b[0] = uint8(MsgTypeUDTS)
	b[1] = uint8(u.ReturnCause)
	parts, err := u.addressPair.marshalParts()
	if err != nil {
		return err
	}
	ptrBlock, err := writePointers(parts, false)
	if err != nil {
		return err
	}
	copy(b[2:], ptrBlock)
	return nil
}

func (u *UDTS) UnmarshalBinary(b []byte) error {
	if len(b) < 2 {
		return io.ErrUnexpectedEOF
	}
	u.ReturnCause = ReturnCause(b[1])
	parts, err := readPointers(b[2:], 3, false)
	if err != nil {
		return err
	}
	return u.addressPair.unmarshalParts(parts, u.PCType, true)
}

func (u *UDTS) String() string {
	return fmt.Sprintf("UDTS: {ReturnCause: %s, CalledPartyAddress: %s, CallingPartyAddress: %s, Data: %s}",
		u.ReturnCause, u.CalledPartyAddress.AddressWithDetails(), u.CallingPartyAddress.AddressWithDetails(), u.Data)
}

// ---- XUDT / XUDTS (extended unitdata, HopCounter + optional trailer) ----

type xudtCommon struct {
	HopCounter *params.HopCounter
	PCType     params.PointCodeType
	addressPair
	Optional *ParamList // Segmentation / Importance carried in the trailer
}

func (x *xudtCommon) marshalTrailer(b []byte, parts [][]byte) error {
	ptrBlock, err := writePointers(parts, false)
	if err != nil {
		return err
	}
	copy(b, ptrBlock)
	opt := encodeOptional(optionalOrEmpty(x.Optional))
	copy(b[len(ptrBlock):], opt)
	return nil
}

func optionalOrEmpty(p *ParamList) *ParamList {
	if p == nil {
		return &ParamList{}
	}
	return p
}

func (x *xudtCommon) trailerLen(parts [][]byte) int {
	ptrWidth := 1 * len(parts)
	total := ptrWidth
	for _, p := range parts {
		total += 1 + len(p)
	}
	total += len(encodeOptional(optionalOrEmpty(x.Optional)))
	return total
}

// XUDT is the extended connectionless data message (spec.md §3.1).
type XUDT struct {
	ProtocolClass *params.ProtocolClass
	xudtCommon
}

func (x *XUDT) MessageType() MsgType    { return MsgTypeXUDT }
func (x *XUDT) MessageTypeName() string { return x.MessageType().String() }

func (x *XUDT) MarshalLen() int {
	parts, _ := x.addressPair.marshalParts()
	return 3 + x.trailerLen(parts)
}

func (x *XUDT) MarshalBinary() ([]byte, error) {
	b := make([]byte, x.MarshalLen())
	return b, x.MarshalTo(b)
}

func (x *XUDT) MarshalTo(b []byte) error {
	if len(b) < 3 {
		return io.ErrUnexpectedEOF
	}
	b[0] = uint8(MsgTypeXUDT)
	if _, err := x.ProtocolClass.Write(b[1:2]); err != nil {
		return err
	}
	if _, err := x.HopCounter.Write(b[2:3]); err != nil {
		return err
	}
	parts, err := x.addressPair.marshalParts()
	if err != nil {
		return err
	}
	return x.marshalTrailer(b[3:], parts)
}

func (x *XUDT) UnmarshalBinary(b []byte) error {
	if len(b) < 3 {
		return io.ErrUnexpectedEOF
	}
	x.ProtocolClass = &params.ProtocolClass{}
	if _, err := x.ProtocolClass.Read(b[1:2]); err != nil {
		return err
	}
	x.HopCounter = &params.HopCounter{}
	if _, err := x.HopCounter.Read(b[2:3]); err != nil {
		return err
	}
	parts, err := readPointers(b[3:], 3, false)
	if err != nil {
		return err
	}
	if err := x.addressPair.unmarshalParts(parts, x.PCType, true); err != nil {
		return err
	}
	return x.decodeOptionalTrailer(b[3:], parts)
}

// decodeOptionalTrailer locates the optional part (immediately after the
// last variable part) and decodes it into x.Optional.
func (x *xudtCommon) decodeOptionalTrailer(b []byte, parts [][]byte) error {
	// The optional part starts right after the longest-reaching variable
	// part. Recompute by finding the max end offset among the 1-octet
	// pointers already consumed.
	end := furthestPartEnd(b, len(parts), false)
	x.Optional = &ParamList{}
	if end >= len(b) {
		return nil
	}
	return decodeOptional(x.Optional, b[end:])
}

func furthestPartEnd(b []byte, count int, longPtrs bool) int {
	ptrWidth := 1
	if longPtrs {
		ptrWidth = 2
	}
	max := 0
	for i := 0; i < count; i++ {
		slot := i * ptrWidth
		if slot+ptrWidth > len(b) {
			continue
		}
		var ptr, l, dataStart int
		if longPtrs {
			ptr = int(b[slot]) | int(b[slot+1])<<8
		} else {
			ptr = int(b[slot])
		}
		lenPos := slot + ptr
		if lenPos < 0 || lenPos >= len(b) {
			continue
		}
		if longPtrs {
			if lenPos+2 > len(b) {
				continue
			}
			l = int(b[lenPos]) | int(b[lenPos+1])<<8
			dataStart = lenPos + 2
		} else {
			l = int(b[lenPos])
			dataStart = lenPos + 1
		}
		if dataStart+l > max {
			max = dataStart + l
		}
	}
	return max
}

func (x *XUDT) String() string {
	return fmt.Sprintf("XUDT: {ProtocolClass: %s, HopCounter: %d, CalledPartyAddress: %s, Data: %s}",
		x.ProtocolClass, x.HopCounter.Value, x.CalledPartyAddress.AddressWithDetails(), x.Data)
}

// XUDTS is the service message for an undeliverable XUDT.
type XUDTS struct {
	ReturnCause ReturnCause
	xudtCommon
}

func (x *XUDTS) MessageType() MsgType    { return MsgTypeXUDTS }
func (x *XUDTS) MessageTypeName() string { return x.MessageType().String() }

func (x *XUDTS) MarshalLen() int {
	parts, _ := x.addressPair.marshalParts()
	return 3 + x.trailerLen(parts)
}

func (x *XUDTS) MarshalBinary() ([]byte, error) {
	b := make([]byte, x.MarshalLen())
	return b, x.MarshalTo(b)
}

func (x *XUDTS) MarshalTo(b []byte) error {
	if len(b) < 3 {
		return io.ErrUnexpectedEOF
	}
	b[0] = uint8(MsgTypeXUDTS)
	b[1] = uint8(x.ReturnCause)
	if _, err := x.HopCounter.Write(b[2:3]); err != nil {
		return err
	}
	parts, err := x.addressPair.marshalParts()
	if err != nil {
		return err
	}
	return x.marshalTrailer(b[3:], parts)
}

func (x *XUDTS) UnmarshalBinary(b []byte) error {
	if len(b) < 3 {
		return io.ErrUnexpectedEOF
	}
	x.ReturnCause = ReturnCause(b[1])
	x.HopCounter = &params.HopCounter{}
	if _, err := x.HopCounter.Read(b[2:3]); err != nil {
		return err
	}
	parts, err := readPointers(b[3:], 3, false)
	if err != nil {
		return err
	}
	if err := x.addressPair.unmarshalParts(parts, x.PCType, true); err != nil {
		return err
	}
	return x.decodeOptionalTrailer(b[3:], parts)
}

func (x *XUDTS) String() string {
	return fmt.Sprintf("XUDTS: {ReturnCause: %s, HopCounter: %d, CalledPartyAddress: %s, Data: %s}",
		x.ReturnCause, x.HopCounter.Value, x.CalledPartyAddress.AddressWithDetails(), x.Data)
}

// ---- LUDT / LUDTS (long unitdata, two-octet pointers) ----

type ludtCommon struct {
	HopCounter *params.HopCounter
	PCType     params.PointCodeType
	addressPair
	Optional *ParamList
}

func (l *ludtCommon) trailerLen(parts [][]byte) int {
	total := 2 * len(parts)
	for _, p := range parts {
		total += 2 + len(p)
	}
	total += len(encodeOptional(optionalOrEmpty(l.Optional)))
	return total
}

func (l *ludtCommon) marshalTrailer(b []byte, parts [][]byte) error {
	ptrBlock, err := writePointers(parts, true)
	if err != nil {
		return err
	}
	copy(b, ptrBlock)
	opt := encodeOptional(optionalOrEmpty(l.Optional))
	copy(b[len(ptrBlock):], opt)
	return nil
}

func (l *ludtCommon) decodeOptionalTrailer(b []byte, parts [][]byte) error {
	end := furthestPartEnd(b, len(parts), true)
	l.Optional = &ParamList{}
	if end >= len(b) {
		return nil
	}
	return decodeOptional(l.Optional, b[end:])
}

// LUDT is the long unitdata message, used when a route's MTU exceeds 272
// octets and the payload does not fit XUDT (spec.md §4.3).
type LUDT struct {
	ProtocolClass *params.ProtocolClass
	ludtCommon
}

func (l *LUDT) MessageType() MsgType    { return MsgTypeLUDT }
func (l *LUDT) MessageTypeName() string { return l.MessageType().String() }

func (l *LUDT) MarshalLen() int {
	parts, _ := l.addressPair.marshalParts()
	return 3 + l.trailerLen(parts)
}

func (l *LUDT) MarshalBinary() ([]byte, error) {
	b := make([]byte, l.MarshalLen())
	return b, l.MarshalTo(b)
}

func (l *LUDT) MarshalTo(b []byte) error {
	if len(b) < 3 {
		return io.ErrUnexpectedEOF
	}
	b[0] = uint8(MsgTypeLUDT)
	if _, err := l.ProtocolClass.Write(b[1:2]); err != nil {
		return err
	}
	if _, err := l.HopCounter.Write(b[2:3]); err != nil {
		return err
	}
	parts, err := l.addressPair.marshalParts()
	if err != nil {
		return err
	}
	return l.marshalTrailer(b[3:], parts)
}

func (l *LUDT) UnmarshalBinary(b []byte) error {
	if len(b) < 3 {
		return io.ErrUnexpectedEOF
	}
	l.ProtocolClass = &params.ProtocolClass{}
	if _, err := l.ProtocolClass.Read(b[1:2]); err != nil {
		return err
	}
	l.HopCounter = &params.HopCounter{}
	if _, err := l.HopCounter.Read(b[2:3]); err != nil {
		return err
	}
	parts, err := readPointers(b[3:], 3, true)
	if err != nil {
		return err
	}
	if err := l.addressPair.unmarshalParts(parts, l.PCType, true); err != nil {
		return err
	}
	return l.decodeOptionalTrailer(b[3:], parts)
}

func (l *LUDT) String() string {
	return fmt.Sprintf("LUDT: {ProtocolClass: %s, HopCounter: %d, Data: %s}", l.ProtocolClass, l.HopCounter.Value, l.Data)
}

// LUDTS is the service message for an undeliverable LUDT.
type LUDTS struct {
	ReturnCause ReturnCause
	ludtCommon
}

func (l *LUDTS) MessageType() MsgType    { return MsgTypeLUDTS }
func (l *LUDTS) MessageTypeName() string { return l.MessageType().String() }

func (l *LUDTS) MarshalLen() int {
	parts, _ := l.addressPair.marshalParts()
	return 3 + l.trailerLen(parts)
}

func (l *LUDTS) MarshalBinary() ([]byte, error) {
	b := make([]byte, l.MarshalLen())
	return b, l.MarshalTo(b)
}

func (l *LUDTS) MarshalTo(b []byte) error {
	if len(b) < 3 {
		return io.ErrUnexpectedEOF
	}
	b[0] = uint8(MsgTypeLUDTS)
	b[1] = uint8(l.ReturnCause)
	if _, err := l.HopCounter.Write(b[2:3]); err != nil {
		return err
	}
	parts, err := l.addressPair.marshalParts()
	if err != nil {
		return err
	}
	return l.marshalTrailer(b[3:], parts)
}

func (l *LUDTS) UnmarshalBinary(b []byte) error {
	if len(b) < 3 {
		return io.ErrUnexpectedEOF
	}
	l.ReturnCause = ReturnCause(b[1])
	l.HopCounter = &params.HopCounter{}
	if _, err := l.HopCounter.Read(b[2:3]); err != nil {
		return err
	}
	parts, err := readPointers(b[3:], 3, true)
	if err != nil {
		return err
	}
	if err := l.addressPair.unmarshalParts(parts, l.PCType, true); err != nil {
		return err
	}
	return l.decodeOptionalTrailer(b[3:], parts)
}

func (l *LUDTS) String() string {
	return fmt.Sprintf("LUDTS: {ReturnCause: %s, HopCounter: %d, Data: %s}", l.ReturnCause, l.HopCounter.Value, l.Data)
}

// ---- CR / CREF (connection-oriented rejection path only, spec.md §1) ----

// RefusalCause is the CREF refusal-cause octet (Q.713 Table 18), distinct
// from the UDTS/XUDTS/LUDTS ReturnCause taxonomy.
type RefusalCause uint8

const RefusalUnequippedUser RefusalCause = 0x13

// CR is parsed only far enough to identify a connection request and echo
// its source local reference back in a CREF (spec.md §1 Non-goals: no full
// SCOC processing).
type CR struct {
	SourceLocalReference uint32 // 24-bit
	ProtocolClass         uint8
	PCType                params.PointCodeType
	CalledPartyAddress    *params.PartyAddress
}

func (c *CR) MessageType() MsgType    { return MsgTypeCR }
func (c *CR) MessageTypeName() string { return c.MessageType().String() }

func (c *CR) MarshalLen() int { return 6 }

func (c *CR) MarshalBinary() ([]byte, error) {
	return nil, fmt.Errorf("sccp: CR encoding not implemented (connection-oriented SCCP out of scope)")
}

func (c *CR) MarshalTo([]byte) error {
	return fmt.Errorf("sccp: CR encoding not implemented (connection-oriented SCCP out of scope)")
}

func (c *CR) UnmarshalBinary(b []byte) error {
	if len(b) < 6 {
		return io.ErrUnexpectedEOF
	}
	c.SourceLocalReference = uint32(b[1]) | uint32(b[2])<<8 | uint32(b[3])<<16
	c.ProtocolClass = b[4]
	return nil
}

func (c *CR) String() string {
	return fmt.Sprintf("CR: {SourceLocalReference: %d}", c.SourceLocalReference)
}

// CREF rejects an unexpected CR (spec.md §4.4).
type CREF struct {
	DestinationLocalReference uint32 // echoes CR's SourceLocalReference
	RefusalCause              RefusalCause
}

func NewCREF(destRef uint32, cause RefusalCause) *CREF {
	return &CREF{DestinationLocalReference: destRef, RefusalCause: cause}
}

func (c *CREF) MessageType() MsgType    { return MsgTypeCREF }
func (c *CREF) MessageTypeName() string { return c.MessageType().String() }

func (c *CREF) MarshalLen() int { return 5 }

func (c *CREF) MarshalBinary() ([]byte, error) {
	b := make([]byte, c.MarshalLen())
	return b, c.MarshalTo(b)
}

func (c *CREF) MarshalTo(b []byte) error {
	if len(b) < 5 {
		return io.ErrUnexpectedEOF
	}
	b[0] = uint8(MsgTypeCREF)
	b[1] = byte(c.DestinationLocalReference)
	b[2] = byte(c.DestinationLocalReference >> 8)
	b[3] = byte(c.DestinationLocalReference >> 16)
	b[4] = uint8(c.RefusalCause)
	return nil
}

func (c *CREF) UnmarshalBinary(b []byte) error {
	if len(b) < 5 {
		return io.ErrUnexpectedEOF
	}
	c.DestinationLocalReference = uint32(b[1]) | uint32(b[2])<<8 | uint32(b[3])<<16
	c.RefusalCause = RefusalCause(b[4])
	return nil
}

func (c *CREF) String() string {
	return fmt.Sprintf("CREF: {DestinationLocalReference: %d, RefusalCause: 0x%02x}", c.DestinationLocalReference, c.RefusalCause)
}
