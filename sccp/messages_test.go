package sccp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vir/yate-sub002/sccp/params"
)

func addrPair(t *testing.T) (*params.PartyAddress, *params.PartyAddress) {
	t.Helper()
	calledSSN := uint8(6)
	callingSSN := uint8(8)
	calledPC := params.NewITUPointCode(1, 1, 1)
	callingPC := params.NewITUPointCode(2, 2, 2)
	return &params.PartyAddress{Type: params.PointCodeITU, Routing: params.RouteOnSSN, PC: &calledPC, SSN: &calledSSN},
		&params.PartyAddress{Type: params.PointCodeITU, Routing: params.RouteOnSSN, PC: &callingPC, SSN: &callingSSN}
}

func TestUDTRoundTrip(t *testing.T) {
	cdpa, cgpa := addrPair(t)
	u := NewUDT(0, false, cdpa, cgpa, []byte("hello"))
	b, err := u.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, uint8(MsgTypeUDT), b[0])

	msg, err := ParseMessage(b, params.PointCodeITU)
	require.NoError(t, err)
	got, ok := msg.(*UDT)
	require.True(t, ok)
	require.Equal(t, "hello", string(got.Data.Value()))
	require.Equal(t, 0, got.ProtocolClass.GetProtocolClass())
}

func TestUDTSRoundTrip(t *testing.T) {
	cdpa, cgpa := addrPair(t)
	u := NewUDTS(CauseSubsystemFailure, cdpa, cgpa, []byte("x"))
	b, err := u.MarshalBinary()
	require.NoError(t, err)

	msg, err := ParseMessage(b, params.PointCodeITU)
	require.NoError(t, err)
	got := msg.(*UDTS)
	require.Equal(t, CauseSubsystemFailure, got.ReturnCause)
}

func TestXUDTRoundTripWithSegmentation(t *testing.T) {
	cdpa, cgpa := addrPair(t)
	x := &XUDT{
		ProtocolClass: params.NewProtocolClass(1, false),
		xudtCommon: xudtCommon{
			HopCounter: &params.HopCounter{Value: 15},
			addressPair: addressPair{
				CalledPartyAddress:  cdpa,
				CallingPartyAddress: cgpa,
				Data:                params.NewData([]byte("payload")),
			},
			Optional: &ParamList{Segmentation: &params.Segmentation{
				FirstSegment: true, RemainingSegments: 2, SegmentationLocalRef: 0x0102,
			}},
		},
	}
	b, err := x.MarshalBinary()
	require.NoError(t, err)

	msg, err := ParseMessage(b, params.PointCodeITU)
	require.NoError(t, err)
	got := msg.(*XUDT)
	require.Equal(t, uint8(15), got.HopCounter.Value)
	require.Equal(t, "payload", string(got.Data.Value()))
	require.NotNil(t, got.Optional.Segmentation)
	require.Equal(t, uint32(0x0102), got.Optional.Segmentation.SegmentationLocalRef)
}

func TestLUDTRoundTrip(t *testing.T) {
	cdpa, cgpa := addrPair(t)
	l := &LUDT{
		ProtocolClass: params.NewProtocolClass(0, false),
		ludtCommon: ludtCommon{
			HopCounter: &params.HopCounter{Value: 5},
			addressPair: addressPair{
				CalledPartyAddress:  cdpa,
				CallingPartyAddress: cgpa,
				Data:                params.NewData(make([]byte, 500)),
			},
		},
	}
	b, err := l.MarshalBinary()
	require.NoError(t, err)

	msg, err := ParseMessage(b, params.PointCodeITU)
	require.NoError(t, err)
	got := msg.(*LUDT)
	require.Len(t, got.Data.Value(), 500)
}

func TestCREFRoundTrip(t *testing.T) {
	c := NewCREF(0x0A0B0C, RefusalUnequippedUser)
	b, err := c.MarshalBinary()
	require.NoError(t, err)

	msg, err := ParseMessage(b, params.PointCodeITU)
	require.NoError(t, err)
	got := msg.(*CREF)
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("CREF round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMessageUnsupportedType(t *testing.T) {
	_, err := ParseMessage([]byte{0xFF}, params.PointCodeITU)
	var utErr UnsupportedTypeError
	require.ErrorAs(t, err, &utErr)
}

func TestParseMessageEmptyBuffer(t *testing.T) {
	_, err := ParseMessage(nil, params.PointCodeITU)
	require.Error(t, err)
}
