package params

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestPartyAddressRoundTripGTOnSSN(t *testing.T) {
	ssn := uint8(8)
	pc := NewITUPointCode(1, 1, 1)
	a := &PartyAddress{
		Type:                PointCodeITU,
		Routing:             RouteOnSSN,
		PC:                  &pc,
		SSN:                 &ssn,
		GT:                  &GlobalTitle{Variant: PointCodeITU, Indicator: GTINaiOnly, NatureOfAddress: 4, Digits: "999"},
		IgnoreUnknownDigits: true,
	}
	b := make([]byte, a.MarshalLen())
	n, err := a.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, len(b), n)

	got, consumed, err := ParsePartyAddress(b, PointCodeITU, true)
	require.NoError(t, err)
	require.Equal(t, len(b), consumed)
	require.Equal(t, RouteOnSSN, got.Routing)
	require.Equal(t, ssn, *got.SSN)
	require.True(t, got.PC.Equal(pc))

	opts := cmpopts.IgnoreFields(PartyAddress{}, "PC", "SSN")
	if diff := cmp.Diff(a, got, opts); diff != "" {
		t.Errorf("party address round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPartyAddressRoundTripNoGT(t *testing.T) {
	ssn := uint8(146)
	a := &PartyAddress{Type: PointCodeANSI, SSN: &ssn}
	b := make([]byte, a.MarshalLen())
	_, err := a.Marshal(b)
	require.NoError(t, err)

	got, _, err := ParsePartyAddress(b, PointCodeANSI, true)
	require.NoError(t, err)
	require.Nil(t, got.PC)
	require.Nil(t, got.GT)
	require.Equal(t, ssn, *got.SSN)
}

func TestPartyAddressNationalBitITUOnly(t *testing.T) {
	ssn := uint8(1)
	a := &PartyAddress{Type: PointCodeITU, National: true, SSN: &ssn}
	require.NotZero(t, a.indicator()&aiNational)

	ansi := &PartyAddress{Type: PointCodeANSI, National: true, SSN: &ssn}
	require.Zero(t, ansi.indicator()&aiNational, "national bit is ITU-only")
}
