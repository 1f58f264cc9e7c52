package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"droneDeliveryRouting/models"
)

type DroneRepository struct {
	db DBTX
}

func NewDroneRepository(db DBTX) *DroneRepository {
	return &DroneRepository{db: db}
}

const droneColumns = `id, model, serial_number, store_id, lat, lng, max_payload_kg, battery_pct, speed_mps, status`

func scanDrone(row interface{ Scan(...any) error }) (*models.Drone, error) {
	var d models.Drone
	var status string
	err := row.Scan(&d.ID, &d.Model, &d.SerialNumber, &d.StoreID, &d.Lat, &d.Lng, &d.MaxPayloadKg, &d.BatteryPct, &d.SpeedMPS, &status)
	if err != nil {
		return nil, err
	}
	d.Status = models.DroneStatus(status)
	return &d, nil
}

// Create inserts a new drone. Status defaults to 'AVAILABLE' if empty.
func (r *DroneRepository) Create(ctx context.Context, d *models.Drone) (*models.Drone, error) {
	if d == nil {
		return nil, errors.New("drone is nil")
	}
	if d.Status == "" {
		d.Status = models.DroneStatusAvailable
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO drones (model, serial_number, store_id, lat, lng, max_payload_kg, battery_pct, speed_mps, status) VALUES (?,?,?,?,?,?,?,?,?)`,
		d.Model, d.SerialNumber, d.StoreID, d.Lat, d.Lng, d.MaxPayloadKg, d.BatteryPct, d.SpeedMPS, string(d.Status))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	d.ID = id
	return d, nil
}

func (r *DroneRepository) GetByID(ctx context.Context, id int64) (*models.Drone, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	d, err := scanDrone(r.db.QueryRowContext(ctx, `SELECT `+droneColumns+` FROM drones WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// ListAvailableByStore returns AVAILABLE drones stationed at a store,
// fullest battery first so the planner prefers the healthiest drone.
func (r *DroneRepository) ListAvailableByStore(ctx context.Context, storeID int64) ([]*models.Drone, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+droneColumns+` FROM drones WHERE store_id = ? AND status = ? ORDER BY battery_pct DESC, id ASC`,
		storeID, string(models.DroneStatusAvailable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Drone
	for rows.Next() {
		d, err := scanDrone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateStatus updates the availability status of a drone.
func (r *DroneRepository) UpdateStatus(ctx context.Context, id int64, status models.DroneStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE drones SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateTelemetry records the drone's position and battery after a flight.
func (r *DroneRepository) UpdateTelemetry(ctx context.Context, id int64, lat, lng, batteryPct float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if batteryPct < 0 {
		batteryPct = 0
	}
	res, err := r.db.ExecContext(ctx, `UPDATE drones SET lat = ?, lng = ?, battery_pct = ? WHERE id = ?`, lat, lng, batteryPct, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
