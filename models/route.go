package models

import (
	"fmt"
	"time"
)

// RouteStatus represents the lifecycle state of a route.
// PLANNED -> LAUNCHED -> IN_PROGRESS -> COMPLETED | ABORTED.
// COMPLETED and ABORTED are terminal.
type RouteStatus string

const (
	RouteStatusPlanned    RouteStatus = "PLANNED"
	RouteStatusLaunched   RouteStatus = "LAUNCHED"
	RouteStatusInProgress RouteStatus = "IN_PROGRESS"
	RouteStatusCompleted  RouteStatus = "COMPLETED"
	RouteStatusAborted    RouteStatus = "ABORTED"
)

// StopType classifies a route stop.
type StopType string

const (
	StopTypePickup StopType = "PICKUP"
	StopTypeDrop   StopType = "DROP"
	StopTypeReturn StopType = "RETURN"
)

// StopStatus represents the lifecycle state of a route stop.
// PENDING -> ARRIVED -> DEPARTED, or PENDING -> SKIPPED.
type StopStatus string

const (
	StopStatusPending  StopStatus = "PENDING"
	StopStatusArrived  StopStatus = "ARRIVED"
	StopStatusDeparted StopStatus = "DEPARTED"
	StopStatusSkipped  StopStatus = "SKIPPED"
)

// FlightResult records how a flight ended.
type FlightResult string

const (
	FlightResultSuccess FlightResult = "SUCCESS"
	FlightResultFailure FlightResult = "FAILURE"
)

// Route is one planned drone trip: an ordered sequence of stops owned by
// a drone and an originating store. It is the unit of execution for the
// simulator.
type Route struct {
	ID                int64       `db:"id" json:"id"`
	DroneID           int64       `db:"drone_id" json:"drone_id"`
	StoreID           int64       `db:"store_id" json:"store_id"`
	Status            RouteStatus `db:"status" json:"status"`
	PlannedStartAt    *time.Time  `db:"planned_start_at" json:"planned_start_at,omitempty"`
	PlannedEndAt      *time.Time  `db:"planned_end_at" json:"planned_end_at,omitempty"`
	ActualStartAt     *time.Time  `db:"actual_start_at" json:"actual_start_at,omitempty"`
	ActualEndAt       *time.Time  `db:"actual_end_at" json:"actual_end_at,omitempty"`
	PlannedDistanceKm float64     `db:"planned_distance_km" json:"planned_distance_km"`
	PlannedPayloadKg  float64     `db:"planned_payload_kg" json:"planned_payload_kg"`
	Heuristic         string      `db:"heuristic" json:"heuristic"`
	Note              string      `db:"note" json:"note"`

	// Stops are ordered by Seq. Loaded on demand by the route repository.
	Stops []*RouteStop `db:"-" json:"stops,omitempty"`
}

// Launch transitions the route from PLANNED to LAUNCHED.
func (r *Route) Launch(now time.Time) error {
	if r.Status != RouteStatusPlanned {
		return fmt.Errorf("launch route %d: invalid transition from %s", r.ID, r.Status)
	}
	r.Status = RouteStatusLaunched
	r.ActualStartAt = &now
	return nil
}

// Start transitions the route from LAUNCHED to IN_PROGRESS once the first
// stop has departed or been skipped.
func (r *Route) Start() error {
	if r.Status != RouteStatusLaunched {
		return fmt.Errorf("start route %d: invalid transition from %s", r.ID, r.Status)
	}
	r.Status = RouteStatusInProgress
	return nil
}

// Complete finalizes the route after every stop has departed or been
// skipped and the return stop has been reached.
func (r *Route) Complete(now time.Time) error {
	if r.Status != RouteStatusLaunched && r.Status != RouteStatusInProgress {
		return fmt.Errorf("complete route %d: invalid transition from %s", r.ID, r.Status)
	}
	r.Status = RouteStatusCompleted
	r.ActualEndAt = &now
	return nil
}

// Abort finalizes the route after an unrecoverable failure or an explicit
// cancellation. Only meaningful once the route has been launched.
func (r *Route) Abort(now time.Time) error {
	if r.Status != RouteStatusLaunched && r.Status != RouteStatusInProgress {
		return fmt.Errorf("abort route %d: invalid transition from %s", r.ID, r.Status)
	}
	r.Status = RouteStatusAborted
	r.ActualEndAt = &now
	return nil
}

// Terminal reports whether the route reached a final state.
func (r *Route) Terminal() bool {
	return r.Status == RouteStatusCompleted || r.Status == RouteStatusAborted
}

// RouteStop is a single waypoint within a route. Seq is strictly
// increasing and gap-free starting at 1 within the owning route.
// PayloadDeltaKg is positive at pickups and negative at drops.
type RouteStop struct {
	ID                 int64      `db:"id" json:"id"`
	RouteID            int64      `db:"route_id" json:"route_id"`
	Seq                int        `db:"seq" json:"seq"`
	Type               StopType   `db:"type" json:"type"`
	Name               string     `db:"name" json:"name"`
	Lat                float64    `db:"lat" json:"lat"`
	Lng                float64    `db:"lng" json:"lng"`
	Status             StopStatus `db:"status" json:"status"`
	PlannedArrivalAt   *time.Time `db:"planned_arrival_at" json:"planned_arrival_at,omitempty"`
	PlannedDepartureAt *time.Time `db:"planned_departure_at" json:"planned_departure_at,omitempty"`
	ActualArrivalAt    *time.Time `db:"actual_arrival_at" json:"actual_arrival_at,omitempty"`
	ActualDepartureAt  *time.Time `db:"actual_departure_at" json:"actual_departure_at,omitempty"`
	PayloadDeltaKg     float64    `db:"payload_delta_kg" json:"payload_delta_kg"`

	// OrderIDs are the orders resolved at this stop (DROP stops only).
	// Weak references; the stop does not own its orders.
	OrderIDs []int64 `db:"-" json:"order_ids,omitempty"`
}

// Arrive transitions the stop from PENDING to ARRIVED.
func (s *RouteStop) Arrive(now time.Time) error {
	if s.Status != StopStatusPending {
		return fmt.Errorf("arrive stop %d (seq %d): invalid transition from %s", s.ID, s.Seq, s.Status)
	}
	s.Status = StopStatusArrived
	s.ActualArrivalAt = &now
	return nil
}

// Depart transitions the stop from ARRIVED to DEPARTED.
func (s *RouteStop) Depart(now time.Time) error {
	if s.Status != StopStatusArrived {
		return fmt.Errorf("depart stop %d (seq %d): invalid transition from %s", s.ID, s.Seq, s.Status)
	}
	s.Status = StopStatusDeparted
	s.ActualDepartureAt = &now
	return nil
}

// Skip marks a PENDING stop as SKIPPED. Used when none of the stop's
// orders is still deliverable.
func (s *RouteStop) Skip() error {
	if s.Status != StopStatusPending {
		return fmt.Errorf("skip stop %d (seq %d): invalid transition from %s", s.ID, s.Seq, s.Status)
	}
	s.Status = StopStatusSkipped
	return nil
}

// Visited reports whether the stop no longer blocks the stops after it.
func (s *RouteStop) Visited() bool {
	return s.Status == StopStatusDeparted || s.Status == StopStatusSkipped
}

// RouteStopOrder links a route stop to one order resolved there.
type RouteStopOrder struct {
	ID      int64 `db:"id" json:"id"`
	StopID  int64 `db:"stop_id" json:"stop_id"`
	OrderID int64 `db:"order_id" json:"order_id"`
}

// RoutePosition is an immutable telemetry sample recorded during
// simulated flight. Created only by the simulator, never updated.
type RoutePosition struct {
	ID         int64     `db:"id" json:"id"`
	RouteID    int64     `db:"route_id" json:"route_id"`
	StopFromID *int64    `db:"stop_from_id" json:"stop_from_id,omitempty"`
	StopToID   *int64    `db:"stop_to_id" json:"stop_to_id,omitempty"`
	Lat        float64   `db:"lat" json:"lat"`
	Lng        float64   `db:"lng" json:"lng"`
	SpeedMPS   float64   `db:"speed_mps" json:"speed_mps"`
	BatteryPct float64   `db:"battery_pct" json:"battery_pct"`
	TS         time.Time `db:"ts" json:"ts"`
}

// FlightLog is an immutable post-hoc record of one flight. Written exactly
// once, when the route completes or aborts.
type FlightLog struct {
	ID             int64        `db:"id" json:"id"`
	RouteID        int64        `db:"route_id" json:"route_id"`
	DroneID        int64        `db:"drone_id" json:"drone_id"`
	StartTime      time.Time    `db:"start_time" json:"start_time"`
	EndTime        time.Time    `db:"end_time" json:"end_time"`
	DistanceKm     float64      `db:"distance_km" json:"distance_km"`
	BatteryUsedPct float64      `db:"battery_used_pct" json:"battery_used_pct"`
	Result         FlightResult `db:"result" json:"result"`
	Note           string       `db:"note" json:"note"`
}
