package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Property keys of a vehicle report.
const (
	KeyID          = "id"
	KeyCoordinates = "uav_coordinates"
	KeyLabel       = "label"
)

// VehicleUpdate is one position report pushed by the backend.
// Coordinates arrive as [lat, lon]; Attributes holds the whole report
// verbatim, including id and coordinates.
type VehicleUpdate struct {
	ID         string
	Lat        float64
	Lon        float64
	Attributes map[string]any
}

func (u *VehicleUpdate) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseVehicleUpdate(raw)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ParseVehicleUpdate extracts identity and position from a decoded report.
func ParseVehicleUpdate(raw map[string]any) (VehicleUpdate, error) {
	if raw == nil {
		return VehicleUpdate{}, errors.New("vehicle update: not an object")
	}
	id := idFrom(raw[KeyID])
	if id == "" {
		return VehicleUpdate{}, errors.New("vehicle update: missing id")
	}
	coords, _ := raw[KeyCoordinates].([]any)
	if len(coords) < 2 {
		return VehicleUpdate{}, fmt.Errorf("vehicle update %s: %s wants [lat, lon]", id, KeyCoordinates)
	}
	lat, ok1 := floatFrom(coords[0])
	lon, ok2 := floatFrom(coords[1])
	if !ok1 || !ok2 {
		return VehicleUpdate{}, fmt.Errorf("vehicle update %s: non-numeric coordinates", id)
	}
	return VehicleUpdate{ID: id, Lat: lat, Lon: lon, Attributes: raw}, nil
}

// idFrom accepts string ids and the integer ids the simulator emits.
func idFrom(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func floatFrom(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case json.Number:
		n, err := f.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(f, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Summary maps vehicle id to its last [lat, lon], for tabular display.
type Summary map[string][2]float64

func (s Summary) Clone() Summary {
	out := make(Summary, len(s))
	for id, c := range s {
		out[id] = c
	}
	return out
}

// IDs returns the vehicle ids in ascending order.
func (s Summary) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
