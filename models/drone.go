package models

// DroneStatus represents the availability of a drone.
type DroneStatus string

const (
	DroneStatusAvailable DroneStatus = "AVAILABLE"
	DroneStatusFlying    DroneStatus = "FLYING"
	DroneStatusBroken    DroneStatus = "BROKEN"
)

// Drone represents a delivery drone stationed at a store.
// BatteryPct is the current charge; MaxPayloadKg and SpeedMPS bound what
// the planner may load onto it and how fast the simulator flies it.
type Drone struct {
	ID           int64       `db:"id" json:"id"`
	Model        string      `db:"model" json:"model"`
	SerialNumber string      `db:"serial_number" json:"serial_number"`
	StoreID      int64       `db:"store_id" json:"store_id"`
	Lat          float64     `db:"lat" json:"lat"`
	Lng          float64     `db:"lng" json:"lng"`
	MaxPayloadKg float64     `db:"max_payload_kg" json:"max_payload_kg"`
	BatteryPct   float64     `db:"battery_pct" json:"battery_pct"`
	SpeedMPS     float64     `db:"speed_mps" json:"speed_mps"`
	Status       DroneStatus `db:"status" json:"status"`
}

// Available reports whether the drone can be assigned a new route.
func (d *Drone) Available() bool {
	return d.Status == DroneStatusAvailable
}
