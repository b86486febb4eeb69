// Package fence tracks the single geofence polygon the operator draws and
// commits to the backend.
package fence

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"swarmview/internal/mapsurface"
)

const CommandUpdateFencedArea = "update_fenced_area"

var (
	ErrNothingToSubmit      = errors.New("no fence drawn")
	ErrAwaitingConfirmation = errors.New("fence submitted, awaiting confirmation")
)

type State int

const (
	Idle State = iota
	Pending
	Awaiting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Awaiting:
		return "awaiting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Command is the outbound request that commits a fence. Data is the
// closed ring as [lon, lat] pairs.
type Command struct {
	Command string       `json:"command"`
	Data    [][2]float64 `json:"data"`
}

type Sender interface {
	Send(v any) error
}

// Resetter clears the vehicles shown for the previous fence.
type Resetter interface {
	Reset()
}

// Flow is not safe for concurrent use.
type Flow struct {
	surface  *mapsurface.Surface
	vehicles Resetter
	logger   *slog.Logger

	state    State
	fence    *geojson.Feature
	vertices orb.Ring
}

func NewFlow(surface *mapsurface.Surface, vehicles Resetter, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{surface: surface, vehicles: vehicles, logger: logger}
}

// OnPolygonDrawn is called whenever the drawing tool's selection changes.
// Only the most recently drawn polygon survives; earlier ones are deleted
// from the tool and their ids returned.
func (f *Flow) OnPolygonDrawn(tool DrawingTool) []string {
	all := tool.All()
	var deleted []string
	if len(all) > 1 {
		for _, old := range all[:len(all)-1] {
			deleted = append(deleted, featureID(old))
		}
		tool.Delete(deleted...)
		all = tool.All()
	}
	if len(all) > 1 {
		f.logger.Warn("drawing tool kept extra polygons", slog.Int("count", len(all)))
		all = all[len(all)-1:]
	}

	if len(all) == 0 {
		f.vertices = nil
		f.state = Idle
		return deleted
	}

	poly, ok := all[0].Geometry.(orb.Polygon)
	if !ok || len(poly) == 0 || len(poly[0]) == 0 {
		f.logger.Warn("drawn feature is not a polygon",
			slog.String("id", featureID(all[0])),
			slog.String("geometry", geometryType(all[0].Geometry)))
		f.vertices = nil
		f.state = Idle
		return deleted
	}

	ring := closeRing(poly[0])
	f.fence = geojson.NewFeature(orb.Polygon{ring})
	f.vertices = ring
	f.state = Pending
	return deleted
}

// Vertices returns the ring that Submit would send.
func (f *Flow) Vertices() orb.Ring {
	return append(orb.Ring(nil), f.vertices...)
}

func (f *Flow) State() State { return f.state }

// CanSubmit reports whether the submit control should be offered.
func (f *Flow) CanSubmit() bool {
	return f.state == Pending && len(f.vertices) > 0
}

// Fence returns the stored fence feature, or nil if none was drawn.
func (f *Flow) Fence() *geojson.Feature { return f.fence }

// Submit sends the pending fence. On a send error the fence stays pending.
func (f *Flow) Submit(sender Sender) error {
	switch {
	case f.state == Awaiting:
		return ErrAwaitingConfirmation
	case !f.CanSubmit():
		return ErrNothingToSubmit
	}

	cmd := Command{Command: CommandUpdateFencedArea, Data: make([][2]float64, len(f.vertices))}
	for i, p := range f.vertices {
		cmd.Data[i] = [2]float64{p.Lon(), p.Lat()}
	}
	if err := sender.Send(cmd); err != nil {
		return fmt.Errorf("submit fence: %w", err)
	}
	f.state = Awaiting
	return nil
}

// OnConfirmed makes the stored fence the only geometry of the fence layer,
// clears the vehicles and returns to Idle.
func (f *Flow) OnConfirmed() {
	if src, ok := f.surface.Source(mapsurface.SourceFence); ok {
		fc := geojson.NewFeatureCollection()
		if f.fence != nil {
			fc.Append(f.fence)
		}
		src.SetData(fc)
	}
	f.vehicles.Reset()
	f.vertices = nil
	f.state = Idle
}

func closeRing(r orb.Ring) orb.Ring {
	out := append(orb.Ring(nil), r...)
	if !out.Closed() {
		out = append(out, out[0])
	}
	return out
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "none"
	}
	return g.GeoJSONType()
}
