package sccp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vir/yate-sub002/sccp/params"
)

func TestWriteReadPointersRoundTrip(t *testing.T) {
	for _, longPtrs := range []bool{false, true} {
		parts := [][]byte{{1, 2, 3}, {}, {9, 9}}
		b, err := writePointers(parts, longPtrs)
		require.NoError(t, err)

		got, err := readPointers(b, len(parts), longPtrs)
		require.NoError(t, err)
		require.Equal(t, parts, got)
	}
}

func TestReadPointersTruncated(t *testing.T) {
	_, err := readPointers([]byte{0x01}, 3, false)
	require.Error(t, err)
}

func TestEncodeDecodeOptionalSegmentationAndImportance(t *testing.T) {
	im := uint8(3)
	p := &ParamList{
		Segmentation: &params.Segmentation{FirstSegment: true, SegmentationLocalRef: 0x1234},
		Importance:   &im,
	}
	b := encodeOptional(p)

	got := &ParamList{}
	err := decodeOptional(got, b)
	require.NoError(t, err)
	require.Equal(t, p.Segmentation.SegmentationLocalRef, got.Segmentation.SegmentationLocalRef)
	require.Equal(t, *p.Importance, *got.Importance)
}

func TestDecodeOptionalUnknownTagGoesToOverflow(t *testing.T) {
	b := []byte{0x7E, 2, 0xAB, 0xCD, optEOP}
	p := &ParamList{}
	err := decodeOptional(p, b)
	require.NoError(t, err)

	v, ok := p.Get("Param_126")
	require.True(t, ok)
	require.Equal(t, "abcd", v)

	unsupported, ok := p.Get("parameters-unsupported")
	require.True(t, ok)
	require.Equal(t, "Param_126", unsupported)
}
