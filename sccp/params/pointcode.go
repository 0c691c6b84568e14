// Copyright 2019-2024 go-sccp authors. All rights reserved.
// Use of this source code is governed by a MIT-style license that can be
// found in the LICENSE file.

// Package params implements the parameter-driven types carried inside SCCP
// messages: point codes, party addresses, global titles and the scalar
// parameter wire types (protocol class, hop counter, segmentation, ...).
package params

import "fmt"

// PointCodeType distinguishes the packed point-code width; comparisons are
// only meaningful within a single type.
type PointCodeType uint8

const (
	// PointCodeITU packs network-cluster-member into 14 bits (2 octets).
	PointCodeITU PointCodeType = iota
	// PointCodeANSI packs network-cluster-member into 24 bits (3 octets).
	PointCodeANSI
)

func (t PointCodeType) String() string {
	if t == PointCodeANSI {
		return "ANSI"
	}
	return "ITU"
}

// Octets returns the wire width of a point code of this type.
func (t PointCodeType) Octets() int {
	if t == PointCodeANSI {
		return 3
	}
	return 2
}

// PointCode is a packed point-code value tagged with its variant.
type PointCode struct {
	Type  PointCodeType
	Value uint32 // 14-bit for ITU, 24-bit for ANSI
}

// NewITUPointCode packs a (network, cluster, member) triple, Q.708 style.
func NewITUPointCode(network, cluster, member uint8) PointCode {
	v := (uint32(network) << 11) | (uint32(cluster) << 3) | uint32(member&0x07)
	return PointCode{Type: PointCodeITU, Value: v & 0x3FFF}
}

// NewANSIPointCode packs a (network, cluster, member) triple, T1.111 style.
func NewANSIPointCode(network, cluster, member uint8) PointCode {
	v := (uint32(network) << 16) | (uint32(cluster) << 8) | uint32(member)
	return PointCode{Type: PointCodeANSI, Value: v & 0xFFFFFF}
}

// NDC splits an ITU point code into (network, cluster, member).
func (p PointCode) NDC() (network, cluster, member uint8) {
	if p.Type == PointCodeANSI {
		return uint8(p.Value >> 16), uint8(p.Value >> 8), uint8(p.Value)
	}
	return uint8(p.Value >> 11), uint8((p.Value >> 3) & 0xFF), uint8(p.Value & 0x07)
}

// Equal reports whether p equals q; always false across differing types.
func (p PointCode) Equal(q PointCode) bool {
	return p.Type == q.Type && p.Value == q.Value
}

func (p PointCode) String() string {
	n, c, m := p.NDC()
	return fmt.Sprintf("%d-%d-%d", n, c, m)
}

// Marshal writes the point code little-endian in its variant's width.
func (p PointCode) Marshal(b []byte) (int, error) {
	n := p.Type.Octets()
	if len(b) < n {
		return 0, ErrTooShort
	}
	v := p.Value
	for i := 0; i < n; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return n, nil
}

// ParsePointCode reads a packed little-endian point code of the given type.
func ParsePointCode(b []byte, t PointCodeType) (PointCode, int, error) {
	n := t.Octets()
	if len(b) < n {
		return PointCode{}, 0, ErrTooShort
	}
	var v uint32
	for i := n - 1; i >= 0; i-- {
		v = (v << 8) | uint32(b[i])
	}
	mask := uint32(0x3FFF)
	if t == PointCodeANSI {
		mask = 0xFFFFFF
	}
	return PointCode{Type: t, Value: v & mask}, n, nil
}
