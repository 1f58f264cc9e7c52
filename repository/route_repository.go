package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"droneDeliveryRouting/models"
)

// RouteRepository handles Route aggregates: the route row, its ordered
// stops, the stop-order links, and telemetry positions. The route owns
// its stops and positions (cascade delete); orders are referenced by id
// only.
type RouteRepository struct {
	db DBTX
}

func NewRouteRepository(db DBTX) *RouteRepository {
	return &RouteRepository{db: db}
}

const routeColumns = `id, drone_id, store_id, status, planned_start_at, planned_end_at, actual_start_at, actual_end_at, planned_distance_km, planned_payload_kg, heuristic, note`

const stopColumns = `id, route_id, seq, type, name, lat, lng, status, planned_arrival_at, planned_departure_at, actual_arrival_at, actual_departure_at, payload_delta_kg`

func scanRoute(row interface{ Scan(...any) error }) (*models.Route, error) {
	var rt models.Route
	var status string
	var plannedStart, plannedEnd, actualStart, actualEnd sql.NullTime
	err := row.Scan(&rt.ID, &rt.DroneID, &rt.StoreID, &status, &plannedStart, &plannedEnd, &actualStart, &actualEnd,
		&rt.PlannedDistanceKm, &rt.PlannedPayloadKg, &rt.Heuristic, &rt.Note)
	if err != nil {
		return nil, err
	}
	rt.Status = models.RouteStatus(status)
	rt.PlannedStartAt = nullTimePtr(plannedStart)
	rt.PlannedEndAt = nullTimePtr(plannedEnd)
	rt.ActualStartAt = nullTimePtr(actualStart)
	rt.ActualEndAt = nullTimePtr(actualEnd)
	return &rt, nil
}

func scanStop(row interface{ Scan(...any) error }) (*models.RouteStop, error) {
	var s models.RouteStop
	var typ, status string
	var plannedArr, plannedDep, actualArr, actualDep sql.NullTime
	err := row.Scan(&s.ID, &s.RouteID, &s.Seq, &typ, &s.Name, &s.Lat, &s.Lng, &status,
		&plannedArr, &plannedDep, &actualArr, &actualDep, &s.PayloadDeltaKg)
	if err != nil {
		return nil, err
	}
	s.Type = models.StopType(typ)
	s.Status = models.StopStatus(status)
	s.PlannedArrivalAt = nullTimePtr(plannedArr)
	s.PlannedDepartureAt = nullTimePtr(plannedDep)
	s.ActualArrivalAt = nullTimePtr(actualArr)
	s.ActualDepartureAt = nullTimePtr(actualDep)
	return &s, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// CreateWithStops persists a planned route together with its stops and
// stop-order links. Callers wanting atomicity run it inside RunInTx.
// Stop and route IDs are filled in on return.
func (r *RouteRepository) CreateWithStops(ctx context.Context, route *models.Route) (*models.Route, error) {
	if route == nil {
		return nil, errors.New("route is nil")
	}
	if len(route.Stops) == 0 {
		return nil, errors.New("route has no stops")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if route.Status == "" {
		route.Status = models.RouteStatusPlanned
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO routes (drone_id, store_id, status, planned_start_at, planned_end_at, planned_distance_km, planned_payload_kg, heuristic, note) VALUES (?,?,?,?,?,?,?,?,?)`,
		route.DroneID, route.StoreID, string(route.Status), timeArg(route.PlannedStartAt), timeArg(route.PlannedEndAt),
		route.PlannedDistanceKm, route.PlannedPayloadKg, route.Heuristic, route.Note)
	if err != nil {
		return nil, err
	}
	routeID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	route.ID = routeID

	for _, stop := range route.Stops {
		if stop.Status == "" {
			stop.Status = models.StopStatusPending
		}
		stop.RouteID = routeID
		res, err := r.db.ExecContext(ctx, `INSERT INTO route_stops (route_id, seq, type, name, lat, lng, status, planned_arrival_at, planned_departure_at, payload_delta_kg) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			routeID, stop.Seq, string(stop.Type), stop.Name, stop.Lat, stop.Lng, string(stop.Status),
			timeArg(stop.PlannedArrivalAt), timeArg(stop.PlannedDepartureAt), stop.PayloadDeltaKg)
		if err != nil {
			return nil, fmt.Errorf("insert stop seq %d: %w", stop.Seq, err)
		}
		stopID, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		stop.ID = stopID
		for _, orderID := range stop.OrderIDs {
			if _, err := r.db.ExecContext(ctx, `INSERT INTO route_stop_orders (stop_id, order_id) VALUES (?,?)`, stopID, orderID); err != nil {
				return nil, fmt.Errorf("link order %d to stop %d: %w", orderID, stopID, err)
			}
		}
	}
	return route, nil
}

// GetByID fetches a route with its stops (ordered by seq) and each stop's
// linked order ids.
func (r *RouteRepository) GetByID(ctx context.Context, id int64) (*models.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rt, err := scanRoute(r.db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadStops(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// ListActive returns routes in LAUNCHED or IN_PROGRESS state, stops included.
func (r *RouteRepository) ListActive(ctx context.Context) ([]*models.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE status IN (?,?) ORDER BY id`,
		string(models.RouteStatusLaunched), string(models.RouteStatusInProgress))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, rt := range out {
		if err := r.loadStops(ctx, rt); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateLifecycle persists the route's status and actual start/end times.
func (r *RouteRepository) UpdateLifecycle(ctx context.Context, route *models.Route) error {
	if route == nil {
		return errors.New("route is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE routes SET status = ?, actual_start_at = ?, actual_end_at = ? WHERE id = ?`,
		string(route.Status), timeArg(route.ActualStartAt), timeArg(route.ActualEndAt), route.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetStopByID fetches one stop together with its linked order ids.
func (r *RouteRepository) GetStopByID(ctx context.Context, stopID int64) (*models.RouteStop, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	s, err := scanStop(r.db.QueryRowContext(ctx, `SELECT `+stopColumns+` FROM route_stops WHERE id = ?`, stopID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT order_id FROM route_stop_orders WHERE stop_id = ? ORDER BY order_id`, stopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID int64
		if err := rows.Scan(&orderID); err != nil {
			return nil, err
		}
		s.OrderIDs = append(s.OrderIDs, orderID)
	}
	return s, rows.Err()
}

// NextPendingStop returns the lowest-seq PENDING stop of a route, or nil
// when every stop has been visited.
func (r *RouteRepository) NextPendingStop(ctx context.Context, routeID int64) (*models.RouteStop, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var stopID int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM route_stops WHERE route_id = ? AND status = ? ORDER BY seq ASC LIMIT 1`,
		routeID, string(models.StopStatusPending)).Scan(&stopID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.GetStopByID(ctx, stopID)
}

// UpdateStop persists a stop's status and actual arrival/departure times.
func (r *RouteRepository) UpdateStop(ctx context.Context, stop *models.RouteStop) error {
	if stop == nil {
		return errors.New("stop is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE route_stops SET status = ?, actual_arrival_at = ?, actual_departure_at = ? WHERE id = ?`,
		string(stop.Status), timeArg(stop.ActualArrivalAt), timeArg(stop.ActualDepartureAt), stop.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddPosition appends one telemetry sample. Positions are never updated
// or deleted.
func (r *RouteRepository) AddPosition(ctx context.Context, p *models.RoutePosition) (*models.RoutePosition, error) {
	if p == nil {
		return nil, errors.New("position is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if p.TS.IsZero() {
		p.TS = time.Now().UTC()
	}
	var from, to any
	if p.StopFromID != nil {
		from = *p.StopFromID
	}
	if p.StopToID != nil {
		to = *p.StopToID
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO route_positions (route_id, stop_from_id, stop_to_id, lat, lng, speed_mps, battery_pct, ts) VALUES (?,?,?,?,?,?,?,?)`,
		p.RouteID, from, to, p.Lat, p.Lng, p.SpeedMPS, p.BatteryPct, p.TS)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

// LatestPosition returns the most recent telemetry sample for a route.
func (r *RouteRepository) LatestPosition(ctx context.Context, routeID int64) (*models.RoutePosition, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p models.RoutePosition
	var from, to sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT id, route_id, stop_from_id, stop_to_id, lat, lng, speed_mps, battery_pct, ts FROM route_positions WHERE route_id = ? ORDER BY ts DESC, id DESC LIMIT 1`, routeID).
		Scan(&p.ID, &p.RouteID, &from, &to, &p.Lat, &p.Lng, &p.SpeedMPS, &p.BatteryPct, &p.TS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if from.Valid {
		v := from.Int64
		p.StopFromID = &v
	}
	if to.Valid {
		v := to.Int64
		p.StopToID = &v
	}
	return &p, nil
}

func (r *RouteRepository) loadStops(ctx context.Context, rt *models.Route) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+stopColumns+` FROM route_stops WHERE route_id = ? ORDER BY seq ASC`, rt.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	byID := map[int64]*models.RouteStop{}
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return err
		}
		rt.Stops = append(rt.Stops, s)
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return err
	}

	links, err := r.db.QueryContext(ctx, `
SELECT rso.stop_id, rso.order_id
FROM route_stop_orders rso
JOIN route_stops rs ON rs.id = rso.stop_id
WHERE rs.route_id = ?
ORDER BY rso.order_id`, rt.ID)
	if err != nil {
		return err
	}
	defer links.Close()
	for links.Next() {
		var stopID, orderID int64
		if err := links.Scan(&stopID, &orderID); err != nil {
			return err
		}
		if s, ok := byID[stopID]; ok {
			s.OrderIDs = append(s.OrderIDs, orderID)
		}
	}
	return links.Err()
}
