package geo

import (
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"swarmview/internal/mapsurface"
)

// NewDisplayFeature builds the point feature shown for u. Properties of
// prev, if any, are kept unless u overrides them.
func NewDisplayFeature(prev *geojson.Feature, u VehicleUpdate) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{u.Lon, u.Lat})
	f.ID = u.ID
	if prev != nil {
		for k, v := range prev.Properties {
			f.Properties[k] = v
		}
	}
	for k, v := range u.Attributes {
		f.Properties[k] = v
	}
	f.Properties[KeyLabel] = u.ID
	return f
}

// FeatureID returns the vehicle id a display feature was built for.
func FeatureID(f *geojson.Feature) string {
	if f == nil {
		return ""
	}
	if id, ok := f.ID.(string); ok {
		return id
	}
	return idFrom(f.Properties[KeyID])
}

// Reconcile returns the feature list after applying u: the feature with
// u's id is replaced in place, or a new one is appended. features is not
// modified.
func Reconcile(features []*geojson.Feature, u VehicleUpdate) []*geojson.Feature {
	next := make([]*geojson.Feature, len(features), len(features)+1)
	copy(next, features)
	for i, f := range next {
		if FeatureID(f) == u.ID {
			next[i] = NewDisplayFeature(f, u)
			return next
		}
	}
	return append(next, NewDisplayFeature(nil, u))
}

// Reconciler keeps the displayed vehicle features and their summary in
// step. It is not safe for concurrent use.
type Reconciler struct {
	surface  *mapsurface.Surface
	logger   *slog.Logger
	features []*geojson.Feature
	summary  Summary
}

func NewReconciler(surface *mapsurface.Surface, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		surface: surface,
		logger:  logger,
		summary: make(Summary),
	}
}

// Apply merges u into the vehicle layer and the summary. It reports false
// and drops u when the vehicle source has not been loaded yet.
func (r *Reconciler) Apply(u VehicleUpdate) bool {
	src, ok := r.surface.Source(mapsurface.SourceVehicles)
	if !ok {
		r.logger.Debug("vehicle update dropped, map not ready", slog.String("id", u.ID))
		return false
	}
	next := Reconcile(r.features, u)

	fc := geojson.NewFeatureCollection()
	fc.Features = next
	src.SetData(fc)

	r.features = next
	r.summary[u.ID] = [2]float64{u.Lat, u.Lon}
	return true
}

// Reset empties both the vehicle layer and the summary.
func (r *Reconciler) Reset() {
	if src, ok := r.surface.Source(mapsurface.SourceVehicles); ok {
		src.SetData(geojson.NewFeatureCollection())
	}
	r.features = nil
	r.summary = make(Summary)
}

func (r *Reconciler) Features() []*geojson.Feature {
	return append([]*geojson.Feature(nil), r.features...)
}

func (r *Reconciler) Summary() Summary {
	return r.summary.Clone()
}
