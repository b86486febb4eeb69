// Package mapsurface models the map the operator sees: named GeoJSON
// sources, the layers drawn from them, and registered icons. The browser
// page mirrors this model onto the real map; nothing here renders.
package mapsurface

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb/geojson"
)

const (
	SourceVehicles = "uavs"
	SourceFence    = "fenced-area"

	IconVehicle = "uav"
)

var ErrDuplicateImage = errors.New("image already registered")

// Options configure the map viewport and tile provider.
type Options struct {
	StyleURL    string     `json:"style"`
	Center      [2]float64 `json:"center"`
	Zoom        float64    `json:"zoom"`
	AccessToken string     `json:"accessToken"`
}

// Layer is a style layer bound to one source.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Layout map[string]any `json:"layout,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
}

// DefaultLayers returns the layers installed by Load, in drawing order.
func DefaultLayers() []Layer {
	return []Layer{
		{
			ID:     "fenced-area",
			Type:   "fill",
			Source: SourceFence,
			Paint: map[string]any{
				"fill-color":   "#00ffff",
				"fill-opacity": 0.5,
			},
		},
		{
			ID:     "fenced-area-outline",
			Type:   "line",
			Source: SourceFence,
			Paint: map[string]any{
				"line-color": "#009999",
				"line-width": 2,
			},
		},
		{
			ID:     "uavsLayer",
			Type:   "symbol",
			Source: SourceVehicles,
			Layout: map[string]any{
				"icon-image":         IconVehicle,
				"icon-size":          0.6,
				"text-field":         []any{"get", "label"},
				"text-font":          []string{"Open Sans Bold", "Arial Unicode MS Bold"},
				"text-size":          15,
				"text-offset":        []float64{0, -2},
				"text-anchor":        "top",
				"icon-allow-overlap": true,
			},
			Paint: map[string]any{
				"text-color": "#000000",
			},
		},
	}
}

// Source holds the data of one named GeoJSON source.
type Source struct {
	name string
	data *geojson.FeatureCollection
}

func (s *Source) Name() string { return s.name }

// SetData replaces the whole collection.
func (s *Source) SetData(fc *geojson.FeatureCollection) {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	s.data = fc
}

// Data returns a shallow copy of the collection; features are shared.
func (s *Source) Data() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	out.Features = append(out.Features, s.data.Features...)
	return out
}

// Surface is owned by a single goroutine; it has no locking of its own.
type Surface struct {
	opts    Options
	sources map[string]*Source
	layers  []Layer
	images  map[string][]byte
	loaded  bool
	removed bool
}

// New acquires a surface. It has no sources until Load.
func New(opts Options) *Surface {
	return &Surface{
		opts:    opts,
		sources: make(map[string]*Source),
		images:  make(map[string][]byte),
	}
}

func (s *Surface) Options() Options { return s.opts }

// Load installs the vehicle and fence sources and the default layers.
// Calling it again, or after Remove, does nothing.
func (s *Surface) Load() {
	if s.loaded || s.removed {
		return
	}
	s.AddSource(SourceVehicles)
	s.AddSource(SourceFence)
	s.layers = append(s.layers, DefaultLayers()...)
	s.loaded = true
}

func (s *Surface) Loaded() bool { return s.loaded && !s.removed }

// AddSource registers an empty source unless one already exists under name.
func (s *Surface) AddSource(name string) *Source {
	if src, ok := s.sources[name]; ok {
		return src
	}
	src := &Source{name: name, data: geojson.NewFeatureCollection()}
	s.sources[name] = src
	return src
}

// Source looks a source up by name. A missing source is not an error:
// callers treat it as "map not ready" and skip their update.
func (s *Surface) Source(name string) (*Source, bool) {
	src, ok := s.sources[name]
	return src, ok
}

// Sources returns a copy of every source's data keyed by name.
func (s *Surface) Sources() map[string]*geojson.FeatureCollection {
	out := make(map[string]*geojson.FeatureCollection, len(s.sources))
	for name, src := range s.sources {
		out[name] = src.Data()
	}
	return out
}

func (s *Surface) Layers() []Layer {
	return append([]Layer(nil), s.layers...)
}

// AddImage registers icon data under name.
func (s *Surface) AddImage(name string, data []byte) error {
	if s.removed {
		return fmt.Errorf("add image %s: surface removed", name)
	}
	if _, ok := s.images[name]; ok {
		return fmt.Errorf("add image %s: %w", name, ErrDuplicateImage)
	}
	s.images[name] = data
	return nil
}

func (s *Surface) HasImage(name string) bool {
	_, ok := s.images[name]
	return ok
}

// Images returns the registered icon names in ascending order.
func (s *Surface) Images() []string {
	names := make([]string, 0, len(s.images))
	for name := range s.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove releases every source, layer and image.
func (s *Surface) Remove() {
	s.sources = make(map[string]*Source)
	s.images = make(map[string][]byte)
	s.layers = nil
	s.removed = true
}
