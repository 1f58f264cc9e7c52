package api

import (
	"time"

	"droneDeliveryRouting/models"
)

// StartDeliveryRequest selects explicit orders for one trip.
type StartDeliveryRequest struct {
	OrderIDs []int64 `json:"orderIds" binding:"required,min=1"`
}

// RouteSummary is the serialized view of one route and its stops.
type RouteSummary struct {
	ID                int64              `json:"id"`
	DroneID           int64              `json:"droneId"`
	DroneModel        string             `json:"droneModel,omitempty"`
	StoreID           int64              `json:"storeId"`
	StoreName         string             `json:"storeName,omitempty"`
	Status            models.RouteStatus `json:"status"`
	PlannedStartAt    *time.Time         `json:"plannedStartAt,omitempty"`
	PlannedEndAt      *time.Time         `json:"plannedEndAt,omitempty"`
	ActualStartAt     *time.Time         `json:"actualStartAt,omitempty"`
	ActualEndAt       *time.Time         `json:"actualEndAt,omitempty"`
	PlannedDistanceKm float64            `json:"plannedDistanceKm"`
	PlannedPayloadKg  float64            `json:"plannedPayloadKg"`
	Heuristic         string             `json:"heuristic"`
	Note              string             `json:"note,omitempty"`
	Stops             []StopSummary      `json:"stops"`
}

// StopSummary is the serialized view of one route stop.
type StopSummary struct {
	ID                 int64             `json:"id"`
	Seq                int               `json:"seq"`
	Type               models.StopType   `json:"type"`
	Name               string            `json:"name"`
	Lat                float64           `json:"lat"`
	Lng                float64           `json:"lng"`
	Status             models.StopStatus `json:"status"`
	PlannedArrivalAt   *time.Time        `json:"plannedArrivalAt,omitempty"`
	PlannedDepartureAt *time.Time        `json:"plannedDepartureAt,omitempty"`
	ActualArrivalAt    *time.Time        `json:"actualArrivalAt,omitempty"`
	ActualDepartureAt  *time.Time        `json:"actualDepartureAt,omitempty"`
	PayloadDeltaKg     float64           `json:"payloadDeltaKg"`
	OrderIDs           []int64           `json:"orderIds,omitempty"`
}

// PositionSummary is the serialized view of the latest telemetry sample.
type PositionSummary struct {
	RouteID    int64     `json:"routeId"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	SpeedMPS   float64   `json:"speedMps"`
	BatteryPct float64   `json:"batteryPct"`
	TS         time.Time `json:"ts"`
}

// BatchSummary reports one batch planning run.
type BatchSummary struct {
	BatchID          string         `json:"batchId"`
	Routes           []RouteSummary `json:"routes"`
	DeferredOrderIDs []int64        `json:"deferredOrderIds"`
}

func stopSummary(s *models.RouteStop) StopSummary {
	return StopSummary{
		ID:                 s.ID,
		Seq:                s.Seq,
		Type:               s.Type,
		Name:               s.Name,
		Lat:                s.Lat,
		Lng:                s.Lng,
		Status:             s.Status,
		PlannedArrivalAt:   s.PlannedArrivalAt,
		PlannedDepartureAt: s.PlannedDepartureAt,
		ActualArrivalAt:    s.ActualArrivalAt,
		ActualDepartureAt:  s.ActualDepartureAt,
		PayloadDeltaKg:     s.PayloadDeltaKg,
		OrderIDs:           s.OrderIDs,
	}
}

func routeSummary(r *models.Route, droneModel, storeName string) RouteSummary {
	stops := make([]StopSummary, 0, len(r.Stops))
	for _, s := range r.Stops {
		stops = append(stops, stopSummary(s))
	}
	return RouteSummary{
		ID:                r.ID,
		DroneID:           r.DroneID,
		DroneModel:        droneModel,
		StoreID:           r.StoreID,
		StoreName:         storeName,
		Status:            r.Status,
		PlannedStartAt:    r.PlannedStartAt,
		PlannedEndAt:      r.PlannedEndAt,
		ActualStartAt:     r.ActualStartAt,
		ActualEndAt:       r.ActualEndAt,
		PlannedDistanceKm: r.PlannedDistanceKm,
		PlannedPayloadKg:  r.PlannedPayloadKg,
		Heuristic:         r.Heuristic,
		Note:              r.Note,
		Stops:             stops,
	}
}

func positionSummary(p *models.RoutePosition) PositionSummary {
	return PositionSummary{
		RouteID:    p.RouteID,
		Lat:        p.Lat,
		Lng:        p.Lng,
		SpeedMPS:   p.SpeedMPS,
		BatteryPct: p.BatteryPct,
		TS:         p.TS,
	}
}
