// Package router classifies inbound backend messages.
package router

import (
	"encoding/json"
	"errors"
	"fmt"

	"swarmview/internal/geo"
)

const (
	StatusSuccess           = "success"
	MessageFencedAreaUpdate = "Fenced area updated"
	MessageVehiclesUpdated  = "UAVs updated"
)

// Event is one of FenceConfirmed, VehicleUpdated or Opaque.
type Event interface {
	event()
}

// FenceConfirmed reports that the backend accepted a fence and rebuilt
// the swarm. It is always followed by one VehicleUpdated per vehicle.
type FenceConfirmed struct {
	Vehicles []geo.VehicleUpdate
}

type VehicleUpdated struct {
	Update geo.VehicleUpdate
}

// Opaque is any message that is not interpreted. Err is set when the
// message looked like a known kind but could not be decoded.
type Opaque struct {
	Raw []byte
	Err error
}

func (FenceConfirmed) event() {}
func (VehicleUpdated) event() {}
func (Opaque) event()         {}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fenceData struct {
	Swarm *struct {
		UAVs []geo.VehicleUpdate `json:"uavs"`
	} `json:"swarm"`
}

// Route classifies raw. It never fails: anything it cannot interpret is
// returned as a single Opaque event.
func Route(raw []byte) []Event {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return []Event{Opaque{Raw: raw, Err: fmt.Errorf("decode message: %w", err)}}
	}

	switch {
	case env.Status == StatusSuccess && env.Message == MessageFencedAreaUpdate:
		vehicles, err := decodeFenceData(env.Data)
		if err != nil {
			return []Event{Opaque{Raw: raw, Err: err}}
		}
		events := make([]Event, 0, len(vehicles)+1)
		events = append(events, FenceConfirmed{Vehicles: vehicles})
		for _, v := range vehicles {
			events = append(events, VehicleUpdated{Update: v})
		}
		return events

	case env.Message == MessageVehiclesUpdated:
		var u geo.VehicleUpdate
		if err := json.Unmarshal(env.Data, &u); err != nil {
			return []Event{Opaque{Raw: raw, Err: fmt.Errorf("decode %q data: %w", env.Message, err)}}
		}
		return []Event{VehicleUpdated{Update: u}}
	}

	return []Event{Opaque{Raw: raw}}
}

func decodeFenceData(data json.RawMessage) ([]geo.VehicleUpdate, error) {
	if len(data) == 0 {
		return nil, errors.New("fence confirmation without data")
	}
	var fd fenceData
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("decode fence confirmation: %w", err)
	}
	if fd.Swarm == nil {
		return nil, errors.New("fence confirmation without data.swarm")
	}
	return fd.Swarm.UAVs, nil
}
