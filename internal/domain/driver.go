package domain

import "time"

// Driver is read-only reference data; the core never mutates it.
type Driver struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Capacity      Quantities `json:"capacity"`
	ShiftStart    int        `json:"shift_start_minute"`
	ShiftEnd      int        `json:"shift_end_minute"`
	StartLocation Location   `json:"start_location"`
}

// ShiftMinutes returns the driver's total working window in minutes.
func (d *Driver) ShiftMinutes() int {
	return d.ShiftEnd - d.ShiftStart
}

// DriverPosition is a single GPS sample. The event bus's presence
// subsystem retains only the most recent N samples per driver in a ring
// buffer; this type is never persisted as authoritative history.
type DriverPosition struct {
	DriverID       string    `json:"driver_id"`
	Location       Location  `json:"location"`
	SpeedKMH       float64   `json:"speed_kmh"`
	HeadingDegrees float64   `json:"heading_degrees"`
	At             time.Time `json:"at"`
	RouteID        *string   `json:"route_id,omitempty"`
	StopPosition   *int      `json:"stop_position,omitempty"`
}
