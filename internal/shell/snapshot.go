package shell

import (
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"swarmview/internal/geo"
)

// Snapshot is everything a viewer needs to redraw the page.
type Snapshot struct {
	Sources    map[string]*geojson.FeatureCollection `json:"sources"`
	Icons      []string                              `json:"icons"`
	Table      []Row                                 `json:"table"`
	Submit     bool                                  `json:"submit"`
	FenceState string                                `json:"fenceState"`
	Connected  bool                                  `json:"connected"`
	Notice     string                                `json:"notice,omitempty"`

	// Deleted lists drawn polygons the viewer must remove. It is only set
	// on the broadcast that follows the deletion.
	Deleted []string  `json:"deleted,omitempty"`
	At      time.Time `json:"at"`

	summary geo.Summary
}

// Row is one line of the vehicle table.
type Row struct {
	ID          string `json:"id"`
	Coordinates string `json:"coordinates"`
}

// Rows formats s for the table, ordered by vehicle id.
func Rows(s geo.Summary) []Row {
	rows := make([]Row, 0, len(s))
	for _, id := range s.IDs() {
		c := s[id]
		rows = append(rows, Row{ID: id, Coordinates: fmt.Sprintf("%.3f, %.3f", c[0], c[1])})
	}
	return rows
}
