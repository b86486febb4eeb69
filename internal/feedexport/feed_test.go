package feedexport

import (
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"swarmview/internal/geo"
)

func TestMarshal(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	summary := geo.Summary{
		"b": {49.7, 11.8},
		"a": {49.6, 11.7},
	}

	body, err := Marshal(summary, at)
	require.NoError(t, err)

	var feed gtfs.FeedMessage
	require.NoError(t, proto.Unmarshal(body, &feed))

	assert.Equal(t, "2.0", feed.GetHeader().GetGtfsRealtimeVersion())
	assert.Equal(t, gtfs.FeedHeader_FULL_DATASET, feed.GetHeader().GetIncrementality())
	assert.Equal(t, uint64(at.Unix()), feed.GetHeader().GetTimestamp())

	require.Len(t, feed.Entity, 2)
	first := feed.Entity[0]
	assert.Equal(t, "a", first.GetId())
	assert.Equal(t, "a", first.GetVehicle().GetVehicle().GetLabel())
	assert.InDelta(t, 49.6, first.GetVehicle().GetPosition().GetLatitude(), 1e-5)
	assert.InDelta(t, 11.7, first.GetVehicle().GetPosition().GetLongitude(), 1e-5)
	assert.Equal(t, "b", feed.Entity[1].GetId())
}

func TestBuildEmpty(t *testing.T) {
	feed := Build(nil, time.Unix(0, 0))
	assert.Empty(t, feed.Entity)
	assert.NotNil(t, feed.Header)
}
