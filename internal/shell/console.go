// Package shell runs the operator console: one event loop owning the map
// surface, the fence flow and the vehicle layer, plus the HTTP surface
// that serves the viewer page and streams snapshots to it.
package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb/geojson"

	"swarmview/internal/fence"
	"swarmview/internal/geo"
	"swarmview/internal/logging"
	"swarmview/internal/mapsurface"
	"swarmview/internal/router"
)

const eventBuffer = 256

// Options configure a Console.
type Options struct {
	Map mapsurface.Options

	// Assets holds the viewer's static files, including the vehicle icon.
	// Defaults to the embedded assets.
	Assets fs.FS

	Now func() time.Time
}

type backendMessage struct{ raw []byte }

type linkState struct{ connected bool }

type mapLoaded struct{}

type iconLoaded struct {
	data []byte
	err  error
}

type drawChanged struct{ features []*geojson.Feature }

type submitRequested struct{}

type viewerJoined struct{ viewer *viewer }

// Console processes backend messages and operator gestures strictly one
// at a time, in arrival order.
type Console struct {
	sender fence.Sender
	opts   Options
	logger *slog.Logger
	hub    *hub

	events  chan any
	done    chan struct{}
	started atomic.Bool

	// owned by the loop
	surface   *mapsurface.Surface
	selection *fence.Selection
	flow      *fence.Flow
	vehicles  *geo.Reconciler
	connected bool
	notice    string

	mu   sync.Mutex
	last Snapshot
}

// New returns a Console that submits fences through sender.
func New(sender fence.Sender, opts Options, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Assets == nil {
		opts.Assets = staticFS()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Console{
		sender: sender,
		opts:   opts,
		logger: logger.With(slog.String("component", "console")),
		events: make(chan any, eventBuffer),
		done:   make(chan struct{}),
	}
	c.hub = newHub(c.logger)
	c.hub.onJoin = func(v *viewer) { c.post(viewerJoined{viewer: v}) }
	c.hub.onMessage = c.viewerMessage
	c.last = Snapshot{Sources: map[string]*geojson.FeatureCollection{}, Table: []Row{}, FenceState: fence.Idle.String()}
	return c
}

// Run mounts the map surface, processes events until ctx is done, then
// unmounts. A Console runs once; later calls return immediately.
func (c *Console) Run(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		c.logger.Error("console already running")
		return
	}
	c.mount()
	defer func() {
		close(c.done)
		c.unmount()
		c.hub.closeAll()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Console) mount() {
	c.surface = mapsurface.New(c.opts.Map)
	c.selection = fence.NewSelection()
	c.vehicles = geo.NewReconciler(c.surface, c.logger)
	c.flow = fence.NewFlow(c.surface, c.vehicles, c.logger)
	c.publish(nil)
	go c.post(mapLoaded{})
}

func (c *Console) unmount() {
	if c.surface != nil {
		c.surface.Remove()
	}
}

func (c *Console) post(ev any) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// HandleBackendMessage queues one inbound backend frame.
func (c *Console) HandleBackendMessage(raw []byte) {
	c.post(backendMessage{raw: append([]byte(nil), raw...)})
}

// SetConnected records the backend link state.
func (c *Console) SetConnected(connected bool) {
	c.post(linkState{connected: connected})
}

// DrawChanged replaces the drawing selection with features.
func (c *Console) DrawChanged(features []*geojson.Feature) {
	c.post(drawChanged{features: features})
}

// Submit asks for the pending fence to be sent.
func (c *Console) Submit() {
	c.post(submitRequested{})
}

func (c *Console) handle(ev any) {
	var deleted []string
	switch ev := ev.(type) {
	case backendMessage:
		for _, routed := range router.Route(ev.raw) {
			c.apply(routed)
		}
	case linkState:
		c.connected = ev.connected
	case mapLoaded:
		c.surface.Load()
		logging.LogOperation(c.logger, "map loaded", slog.Int("layers", len(c.surface.Layers())))
		go c.loadIcon()
	case iconLoaded:
		if ev.err != nil {
			logging.LogError(c.logger, "vehicle icon unavailable", ev.err)
			break
		}
		if err := c.surface.AddImage(mapsurface.IconVehicle, ev.data); err != nil {
			logging.LogError(c.logger, "register vehicle icon", err)
		}
	case drawChanged:
		c.selection.Replace(ev.features)
		c.flow.OnPolygonDrawn(c.selection)
		deleted = c.selection.TakeDeleted()
		if len(deleted) > 0 {
			c.logger.Info("earlier fence drawings discarded", slog.Any("ids", deleted))
		}
	case viewerJoined:
		if data, err := json.Marshal(c.Snapshot()); err == nil {
			c.hub.sendTo(ev.viewer, data)
		} else {
			logging.LogError(c.logger, "encode snapshot", err)
		}
		return
	case submitRequested:
		vertices := len(c.flow.Vertices())
		if err := c.flow.Submit(c.sender); err != nil {
			c.logger.Warn("fence not submitted", slog.String("error", err.Error()))
			c.notice = err.Error()
			break
		}
		logging.LogOperation(c.logger, "fence submitted", slog.Int("vertices", vertices))
	default:
		c.logger.Error("unknown console event", slog.Any("event", ev))
		return
	}
	c.publish(deleted)
}

func (c *Console) apply(ev router.Event) {
	switch ev := ev.(type) {
	case router.FenceConfirmed:
		c.flow.OnConfirmed()
		logging.LogOperation(c.logger, "fenced area confirmed", slog.Int("vehicles", len(ev.Vehicles)))
	case router.VehicleUpdated:
		c.vehicles.Apply(ev.Update)
	case router.Opaque:
		if ev.Err != nil {
			c.logger.Warn("undecodable backend message", slog.String("error", ev.Err.Error()))
		}
		c.notice = string(ev.Raw)
	}
}

func (c *Console) loadIcon() {
	data, err := fs.ReadFile(c.opts.Assets, mapsurface.IconVehicle+".svg")
	c.post(iconLoaded{data: data, err: err})
}

type viewerMessage struct {
	Type     string          `json:"type"`
	Features json.RawMessage `json:"features"`
}

func (c *Console) viewerMessage(viewer string, data []byte) {
	var msg viewerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("bad viewer message", slog.String("viewer", viewer), slog.String("error", err.Error()))
		return
	}
	switch msg.Type {
	case "draw":
		fc, err := decodeDrawing(msg.Features)
		if err != nil {
			c.logger.Warn("bad drawing", slog.String("viewer", viewer), slog.String("error", err.Error()))
			return
		}
		c.DrawChanged(fc.Features)
	case "submit":
		c.Submit()
	default:
		c.logger.Warn("unknown viewer message", slog.String("viewer", viewer), slog.String("type", msg.Type))
	}
}

func decodeDrawing(raw json.RawMessage) (*geojson.FeatureCollection, error) {
	if len(raw) == 0 {
		return nil, errors.New("draw message without features")
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, err
	}
	for i, f := range fc.Features {
		if id, ok := f.ID.(string); !ok || id == "" {
			return nil, fmt.Errorf("drawn feature %d has no id", i)
		}
	}
	return fc, nil
}

func (c *Console) publish(deleted []string) {
	summary := c.vehicles.Summary()
	snap := Snapshot{
		Sources:    c.surface.Sources(),
		Icons:      c.surface.Images(),
		Table:      Rows(summary),
		Submit:     c.flow.CanSubmit(),
		FenceState: c.flow.State().String(),
		Connected:  c.connected,
		Notice:     c.notice,
		At:         c.opts.Now(),
		summary:    summary,
	}

	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()

	snap.Deleted = deleted
	data, err := json.Marshal(snap)
	if err != nil {
		logging.LogError(c.logger, "encode snapshot", err)
		return
	}
	c.hub.broadcast(data)
}

// Snapshot returns the state published after the last processed event.
func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
