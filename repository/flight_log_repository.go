package repository

import (
	"context"
	"errors"
	"time"

	"droneDeliveryRouting/models"
)

type FlightLogRepository struct {
	db DBTX
}

func NewFlightLogRepository(db DBTX) *FlightLogRepository {
	return &FlightLogRepository{db: db}
}

// Create inserts one flight log. Flight logs are written once and never
// updated.
func (r *FlightLogRepository) Create(ctx context.Context, fl *models.FlightLog) (*models.FlightLog, error) {
	if fl == nil {
		return nil, errors.New("flight log is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO flight_logs (route_id, drone_id, start_time, end_time, distance_km, battery_used_pct, result, note) VALUES (?,?,?,?,?,?,?,?)`,
		fl.RouteID, fl.DroneID, fl.StartTime, fl.EndTime, fl.DistanceKm, fl.BatteryUsedPct, string(fl.Result), fl.Note)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	fl.ID = id
	return fl, nil
}

// ListByRoute returns all flight logs recorded for a route.
func (r *FlightLogRepository) ListByRoute(ctx context.Context, routeID int64) ([]*models.FlightLog, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, route_id, drone_id, start_time, end_time, distance_km, battery_used_pct, result, note FROM flight_logs WHERE route_id = ? ORDER BY id`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.FlightLog
	for rows.Next() {
		var fl models.FlightLog
		var result string
		if err := rows.Scan(&fl.ID, &fl.RouteID, &fl.DroneID, &fl.StartTime, &fl.EndTime, &fl.DistanceKm, &fl.BatteryUsedPct, &result, &fl.Note); err != nil {
			return nil, err
		}
		fl.Result = models.FlightResult(result)
		out = append(out, &fl)
	}
	return out, rows.Err()
}
