// Package feedexport publishes the swarm as a GTFS-Realtime vehicle
// positions feed.
package feedexport

import (
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"swarmview/internal/geo"
)

const ContentType = "application/x-protobuf"

// Build returns a full-dataset feed with one VehiclePosition per vehicle
// in summary, ordered by vehicle id.
func Build(summary geo.Summary, at time.Time) *gtfs.FeedMessage {
	ts := uint64(at.Unix())
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(ts),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(summary)),
	}
	for _, id := range summary.IDs() {
		c := summary[id]
		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id: proto.String(id),
			Vehicle: &gtfs.VehiclePosition{
				Vehicle: &gtfs.VehicleDescriptor{
					Id:    proto.String(id),
					Label: proto.String(id),
				},
				Position: &gtfs.Position{
					Latitude:  proto.Float32(float32(c[0])),
					Longitude: proto.Float32(float32(c[1])),
				},
				Timestamp: proto.Uint64(ts),
			},
		})
	}
	return feed
}

// Marshal encodes the feed for summary in protobuf wire format.
func Marshal(summary geo.Summary, at time.Time) ([]byte, error) {
	return proto.Marshal(Build(summary, at))
}
