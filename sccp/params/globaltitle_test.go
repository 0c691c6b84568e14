package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalTitleITUNaiOnlyRoundTrip(t *testing.T) {
	gt := &GlobalTitle{Variant: PointCodeITU, Indicator: GTINaiOnly, NatureOfAddress: 4, Digits: "12345"}
	b := make([]byte, gt.MarshalLen())
	n, err := gt.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, len(b), n)

	got, err := ParseGlobalTitle(b, GTINaiOnly, PointCodeITU, true)
	require.NoError(t, err)
	require.Equal(t, gt.NatureOfAddress, got.NatureOfAddress)
	require.Equal(t, gt.Digits, got.Digits)
}

func TestGlobalTitleITUTTNPESRoundTrip(t *testing.T) {
	gt := &GlobalTitle{
		Variant:         PointCodeITU,
		Indicator:       GTITTNPES,
		TranslationType: 9,
		NumberingPlan:   1,
		EncodingScheme:  2,
		Digits:          "5551234",
	}
	b := make([]byte, gt.MarshalLen())
	_, err := gt.Marshal(b)
	require.NoError(t, err)

	got, err := ParseGlobalTitle(b, GTITTNPES, PointCodeITU, true)
	require.NoError(t, err)
	require.Equal(t, gt.TranslationType, got.TranslationType)
	require.Equal(t, gt.NumberingPlan, got.NumberingPlan)
	require.Equal(t, gt.Digits, got.Digits)
}

// TestGlobalTitleANSIGTI1IsTTNPESNotNAI exercises the ANSI/ITU GTI 0x01
// collision: the same wire octet means TT+NP+ES under ANSI and NAI-only
// under ITU, so decoding must follow the point-code variant, not the raw
// indicator value.
func TestGlobalTitleANSIGTI1IsTTNPESNotNAI(t *testing.T) {
	ansi := &GlobalTitle{
		Variant:         PointCodeANSI,
		Indicator:       GTIAnsiTTNPES, // == GTINaiOnly numerically
		TranslationType: 7,
		NumberingPlan:   3,
		EncodingScheme:  2,
		Digits:          "800555",
	}
	b := make([]byte, ansi.MarshalLen())
	_, err := ansi.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, 2, len(b)-len(EncodeDigits(ansi.Digits)), "ANSI TT+NP+ES header is 2 octets, not 1")

	gotANSI, err := ParseGlobalTitle(b, GTINaiOnly, PointCodeANSI, true)
	require.NoError(t, err)
	require.Equal(t, uint8(7), gotANSI.TranslationType)
	require.Equal(t, uint8(3), gotANSI.NumberingPlan)
	require.Equal(t, "800555", gotANSI.Digits)

	itu := &GlobalTitle{Variant: PointCodeITU, Indicator: GTINaiOnly, NatureOfAddress: 7, Digits: "1"}
	ib := make([]byte, itu.MarshalLen())
	_, err = itu.Marshal(ib)
	require.NoError(t, err)
	gotITU, err := ParseGlobalTitle(ib, GTINaiOnly, PointCodeITU, true)
	require.NoError(t, err)
	require.Equal(t, uint8(7), gotITU.NatureOfAddress)
}

func TestEncodeDecodeDigitsRoundTrip(t *testing.T) {
	digits := "123456789"
	b := EncodeDigits(digits)
	got := DecodeDigits(b, len(digits), true)
	require.Equal(t, digits, got)
}

func TestDecodeDigitsUnknownNibble(t *testing.T) {
	b := []byte{0xB1} // low nibble 1, high nibble 0xB ("unknown")
	require.Equal(t, "1?", DecodeDigits(b, 2, true))
	require.Equal(t, "1B", DecodeDigits(b, 2, false))
}
