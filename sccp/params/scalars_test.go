package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProtocolClassRoundTrip(t *testing.T) {
	p := NewProtocolClass(1, true)
	b := make([]byte, 1)
	_, err := p.Write(b)
	require.NoError(t, err)

	got := &ProtocolClass{}
	_, err = got.Read(b)
	require.NoError(t, err)
	require.Equal(t, 1, got.GetProtocolClass())
	require.True(t, got.HasReturnOption())
}

func TestDataRoundTrip(t *testing.T) {
	d := NewData([]byte{1, 2, 3, 4})
	b := make([]byte, d.MarshalLen())
	n, err := d.Write(b)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	got := &Data{}
	_, err = got.Read(b)
	require.NoError(t, err)
	require.Equal(t, d.Value(), got.Value())
}

func TestSegmentationRoundTrip(t *testing.T) {
	s := &Segmentation{
		FirstSegment:         true,
		ProtocolClass:        1,
		RemainingSegments:    3,
		SegmentationLocalRef: 0x0A0B0C,
	}
	b := make([]byte, s.MarshalLen())
	_, err := s.Write(b)
	require.NoError(t, err)

	got := &Segmentation{}
	_, err = got.Read(b)
	require.NoError(t, err)
	require.Equal(t, *s, *got)
}

func TestImportanceMasksToThreeBits(t *testing.T) {
	im := &Importance{Value: 0xFF}
	b := make([]byte, 1)
	_, err := im.Write(b)
	require.NoError(t, err)
	require.Equal(t, byte(0x07), b[0])
}

func TestHopCounterRoundTrip(t *testing.T) {
	h := &HopCounter{Value: 15}
	b := make([]byte, 1)
	_, err := h.Write(b)
	require.NoError(t, err)

	got := &HopCounter{}
	_, err = got.Read(b)
	require.NoError(t, err)
	require.Equal(t, h.Value, got.Value)
}
