package sccp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vir/yate-sub002/sccp/params"
)

func TestM3UATransportDefaultsBeforeAnyRouteInfo(t *testing.T) {
	tr := NewM3UATransport(nil)
	pc := params.NewITUPointCode(1, 1, 1)
	require.Equal(t, 272, tr.GetRouteMaxLength(params.PointCodeITU, pc))
	require.Equal(t, RouteUnknown, tr.GetRouteState(params.PointCodeITU, pc))
}

func TestM3UATransportRecordsRouteMTUAndState(t *testing.T) {
	tr := NewM3UATransport(nil)
	pc := params.NewITUPointCode(2, 2, 2)
	tr.SetRouteMTU(pc, 1500)
	tr.SetRouteState(pc, RouteCongestion)

	require.Equal(t, 1500, tr.GetRouteMaxLength(params.PointCodeITU, pc))
	require.Equal(t, RouteCongestion, tr.GetRouteState(params.PointCodeITU, pc))
}

func TestM3UATransportRouteInfoIsPerPointCode(t *testing.T) {
	tr := NewM3UATransport(nil)
	pc1 := params.NewITUPointCode(1, 1, 1)
	pc2 := params.NewITUPointCode(9, 9, 9)
	tr.SetRouteMTU(pc1, 500)

	require.Equal(t, 500, tr.GetRouteMaxLength(params.PointCodeITU, pc1))
	require.Equal(t, 272, tr.GetRouteMaxLength(params.PointCodeITU, pc2))
}
