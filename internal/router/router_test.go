package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteVehiclesUpdated(t *testing.T) {
	events := Route([]byte(`{"message":"UAVs updated","data":{"id":"uav-1","uav_coordinates":[49.1,11.2]}}`))

	require.Len(t, events, 1)
	ev, ok := events[0].(VehicleUpdated)
	require.True(t, ok, "%T", events[0])
	assert.Equal(t, "uav-1", ev.Update.ID)
	assert.Equal(t, 49.1, ev.Update.Lat)
	assert.Equal(t, 11.2, ev.Update.Lon)
}

func TestRouteFenceConfirmed(t *testing.T) {
	raw := `{"status":"success","message":"Fenced area updated","data":{
		"fenced_area":[[11.7,49.6],[11.8,49.6],[11.8,49.7],[11.7,49.6]],
		"is_swarm_init":true,
		"swarm":{"uavs":[
			{"id":"a","uav_coordinates":[49.6,11.7,500]},
			{"id":"b","uav_coordinates":[49.7,11.8,500]}
		]}}}`

	events := Route([]byte(raw))

	require.Len(t, events, 3)
	confirmed, ok := events[0].(FenceConfirmed)
	require.True(t, ok, "%T", events[0])
	assert.Len(t, confirmed.Vehicles, 2)

	for i, want := range []string{"a", "b"} {
		ev, ok := events[i+1].(VehicleUpdated)
		require.True(t, ok)
		assert.Equal(t, want, ev.Update.ID, "list order kept")
	}
}

func TestRouteFenceConfirmedEmptySwarm(t *testing.T) {
	events := Route([]byte(`{"status":"success","message":"Fenced area updated","data":{"swarm":{"uavs":[]}}}`))
	require.Len(t, events, 1)
	assert.IsType(t, FenceConfirmed{}, events[0])
}

func TestRouteStatusMustBeSuccess(t *testing.T) {
	events := Route([]byte(`{"status":"error","message":"Fenced area updated"}`))
	require.Len(t, events, 1)
	op, ok := events[0].(Opaque)
	require.True(t, ok)
	assert.NoError(t, op.Err)
}

func TestRouteOpaque(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"unknown message", `{"status":"error","message":"Unknown command"}`, false},
		{"not json", `hello`, true},
		{"json array", `[1,2,3]`, true},
		{"fence without swarm", `{"status":"success","message":"Fenced area updated","data":{}}`, true},
		{"fence without data", `{"status":"success","message":"Fenced area updated"}`, true},
		{"fence with bad vehicle", `{"status":"success","message":"Fenced area updated","data":{"swarm":{"uavs":[{"id":"a"}]}}}`, true},
		{"update without id", `{"message":"UAVs updated","data":{"uav_coordinates":[1,2]}}`, true},
		{"update without data", `{"message":"UAVs updated"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Route([]byte(tt.raw))
			require.Len(t, events, 1)
			op, ok := events[0].(Opaque)
			require.True(t, ok, "%T", events[0])
			assert.Equal(t, tt.raw, string(op.Raw))
			if tt.wantErr {
				assert.Error(t, op.Err)
			} else {
				assert.NoError(t, op.Err)
			}
		})
	}
}
