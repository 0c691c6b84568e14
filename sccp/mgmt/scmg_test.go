package mgmt

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vir/yate-sub002/sccp/params"
)

func TestSCMGRoundTripITU(t *testing.T) {
	pc := params.NewITUPointCode(1, 2, 3)
	s := NewSCMG(SCMGTypeSSA, 8, pc, 1)
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, s.MarshalLen(), len(b))

	got, err := ParseSCMG(b, params.PointCodeITU)
	require.NoError(t, err)
	require.Equal(t, SCMGTypeSSA, got.Type)
	require.Equal(t, uint8(8), got.AffectedSSN)
	require.True(t, got.AffectedPC.Equal(pc))
	require.Equal(t, uint8(1), got.SubsystemMultiplicityIndicator)
}

func TestSCMGRoundTripANSI(t *testing.T) {
	pc := params.NewANSIPointCode(1, 2, 3)
	s := NewSCMG(SCMGTypeSSP, 146, pc, 0)
	b, err := s.MarshalBinary()
	require.NoError(t, err)

	got, err := ParseSCMG(b, params.PointCodeANSI)
	require.NoError(t, err)
	require.True(t, got.AffectedPC.Equal(pc))
}

func TestSCMGCongestionCarriesLevel(t *testing.T) {
	pc := params.NewITUPointCode(1, 1, 1)
	s := NewSCMG(SCMGTypeSSC, 8, pc, 0)
	s.CongestionLevel = 3
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, s.MarshalLen())

	got, err := ParseSCMG(b, params.PointCodeITU)
	require.NoError(t, err)
	require.Equal(t, uint8(3), got.CongestionLevel)
}

func TestSCMGSMIMasksToTwoBits(t *testing.T) {
	pc := params.NewITUPointCode(1, 1, 1)
	s := NewSCMG(SCMGTypeSSA, 8, pc, 0xFF)
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	got, err := ParseSCMG(b, params.PointCodeITU)
	require.NoError(t, err)
	require.Equal(t, uint8(0x03), got.SubsystemMultiplicityIndicator)
}

func TestParseSCMGTooShort(t *testing.T) {
	_, err := ParseSCMG([]byte{0x01}, params.PointCodeITU)
	require.Error(t, err)
}

func TestSCMGTypeStringUnknown(t *testing.T) {
	require.Equal(t, "SCMGType(200)", SCMGType(200).String())
}
