// Package mgmt implements SCCP Management: the subsystem/point-code
// reachability state machines, subsystem status tests, and coordinated
// withdrawal described for SCCPManagement (spec.md §4.5). It attaches to an
// sccp.SCCP as an ordinary SCCPUser bound at SSN 1.
package mgmt

import (
	"fmt"
	"io"

	"github.com/vir/yate-sub002/sccp/params"
)

// SCMGType is the SCCP Management message type octet (Table 23/Q.713, plus
// the ANSI backup-routing trio).
type SCMGType uint8

const (
	_            SCMGType = iota
	SCMGTypeSSA           // subsystem allowed
	SCMGTypeSSP           // subsystem prohibited
	SCMGTypeSST           // subsystem status test
	SCMGTypeSOR           // subsystem out-of-service request
	SCMGTypeSOG           // subsystem out-of-service grant
	SCMGTypeSSC           // ITU: subsystem congestion
	SCMGTypeSBR           // ANSI: backup routing
	SCMGTypeSNR           // ANSI: normal routing
	SCMGTypeSRT           // ANSI: routing test
)

func (t SCMGType) String() string {
	switch t {
	case SCMGTypeSSA:
		return "SSA"
	case SCMGTypeSSP:
		return "SSP"
	case SCMGTypeSST:
		return "SST"
	case SCMGTypeSOR:
		return "SOR"
	case SCMGTypeSOG:
		return "SOG"
	case SCMGTypeSSC:
		return "SSC"
	case SCMGTypeSBR:
		return "SBR"
	case SCMGTypeSNR:
		return "SNR"
	case SCMGTypeSRT:
		return "SRT"
	default:
		return fmt.Sprintf("SCMGType(%d)", uint8(t))
	}
}

// SCMG is one SCCP Management message, carried inside a UDT between SSN=1
// peers (spec.md §4.5). The affected point code's wire width follows its
// own PointCodeType: 2 octets for ITU, 3 for ANSI.
type SCMG struct {
	Type                           SCMGType
	AffectedSSN                    uint8
	AffectedPC                     params.PointCode
	SubsystemMultiplicityIndicator uint8
	CongestionLevel                uint8 // SSC only, low 4 bits
}

// NewSCMG builds an SCMG message.
func NewSCMG(typ SCMGType, affectedSSN uint8, affectedPC params.PointCode, smi uint8) *SCMG {
	return &SCMG{Type: typ, AffectedSSN: affectedSSN, AffectedPC: affectedPC, SubsystemMultiplicityIndicator: smi}
}

// MarshalLen returns the wire length: 2 fixed octets, the affected point
// code's width, the SMI octet, plus one more for SSC's congestion level.
func (s *SCMG) MarshalLen() int {
	l := 2 + s.AffectedPC.Type.Octets() + 1
	if s.Type == SCMGTypeSSC {
		l++
	}
	return l
}

func (s *SCMG) MarshalBinary() ([]byte, error) {
	b := make([]byte, s.MarshalLen())
	return b, s.MarshalTo(b)
}

func (s *SCMG) MarshalTo(b []byte) error {
	if len(b) < s.MarshalLen() {
		return io.ErrUnexpectedEOF
	}
	b[0] = uint8(s.Type)
	b[1] = s.AffectedSSN
	n, err := s.AffectedPC.Marshal(b[2:])
	if err != nil {
		return err
	}
	b[2+n] = s.SubsystemMultiplicityIndicator & 0x03
	if s.Type == SCMGTypeSSC {
		b[2+n+1] = s.CongestionLevel & 0x0F
	}
	return nil
}

// ParseSCMG decodes b as an SCMG message; pcType selects the affected
// point code's wire width.
func ParseSCMG(b []byte, pcType params.PointCodeType) (*SCMG, error) {
	s := &SCMG{}
	if err := s.UnmarshalBinary(b, pcType); err != nil {
		return nil, err
	}
	return s, nil
}

// UnmarshalBinary decodes b, given the point-code variant in force.
func (s *SCMG) UnmarshalBinary(b []byte, pcType params.PointCodeType) error {
	octets := pcType.Octets()
	if len(b) < 2+octets+1 {
		return io.ErrUnexpectedEOF
	}
	s.Type = SCMGType(b[0])
	s.AffectedSSN = b[1]
	pc, n, err := params.ParsePointCode(b[2:], pcType)
	if err != nil {
		return err
	}
	s.AffectedPC = pc
	s.SubsystemMultiplicityIndicator = b[2+n] & 0x03
	if s.Type == SCMGTypeSSC {
		if len(b) < 2+n+2 {
			return io.ErrUnexpectedEOF
		}
		s.CongestionLevel = b[2+n+1] & 0x0F
	}
	return nil
}

func (s *SCMG) String() string {
	return fmt.Sprintf("%s: {AffectedSSN: %d, AffectedPC: %s, SMI: %d}", s.Type, s.AffectedSSN, s.AffectedPC, s.SubsystemMultiplicityIndicator)
}
