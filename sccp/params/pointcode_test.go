package params

import (
	"testing"

	"github.com/pascaldekloe/goe/verify"
	"github.com/stretchr/testify/require"
)

func TestPointCodeITURoundTrip(t *testing.T) {
	pc := NewITUPointCode(3, 44, 5)
	n, c, m := pc.NDC()
	require.Equal(t, uint8(3), n)
	require.Equal(t, uint8(44), c)
	require.Equal(t, uint8(5), m)

	b := make([]byte, 2)
	written, err := pc.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, 2, written)

	got, consumed, err := ParsePointCode(b, PointCodeITU)
	require.NoError(t, err)
	require.Equal(t, 2, consumed)
	verify.Values(t, "itu point code round trip", got, pc)
}

func TestPointCodeANSIRoundTrip(t *testing.T) {
	pc := NewANSIPointCode(1, 2, 3)
	b := make([]byte, 3)
	_, err := pc.Marshal(b)
	require.NoError(t, err)

	got, consumed, err := ParsePointCode(b, PointCodeANSI)
	require.NoError(t, err)
	require.Equal(t, 3, consumed)
	require.True(t, got.Equal(pc))
}

func TestPointCodeEqualAcrossTypesIsFalse(t *testing.T) {
	itu := PointCode{Type: PointCodeITU, Value: 5}
	ansi := PointCode{Type: PointCodeANSI, Value: 5}
	require.False(t, itu.Equal(ansi))
}

func TestParsePointCodeTooShort(t *testing.T) {
	_, _, err := ParsePointCode([]byte{0x01}, PointCodeANSI)
	require.ErrorIs(t, err, ErrTooShort)
}

func TestPointCodeTypeOctets(t *testing.T) {
	require.Equal(t, 2, PointCodeITU.Octets())
	require.Equal(t, 3, PointCodeANSI.Octets())
	require.Equal(t, "ITU", PointCodeITU.String())
	require.Equal(t, "ANSI", PointCodeANSI.String())
}
