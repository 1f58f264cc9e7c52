package repository

import (
	"context"
	"database/sql"

	"droneDeliveryRouting/models"
)

// DBTX is the subset of database/sql operations the repositories need.
// Both *sql.DB and *sql.Tx satisfy it, so the same repository can run
// standalone or inside a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StoreRepositoryI defines operations on Store entities.
type StoreRepositoryI interface {
	Create(ctx context.Context, s *models.Store) (*models.Store, error)
	GetByID(ctx context.Context, id int64) (*models.Store, error)
	List(ctx context.Context) ([]*models.Store, error)
}

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, name string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// OrderRepositoryI defines operations on Order entities.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Order, error)
	ListPending(ctx context.Context) ([]*models.Order, error)
	ListPendingByStore(ctx context.Context, storeID int64) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error
}

// DroneRepositoryI defines operations on Drone entities.
type DroneRepositoryI interface {
	Create(ctx context.Context, d *models.Drone) (*models.Drone, error)
	GetByID(ctx context.Context, id int64) (*models.Drone, error)
	ListAvailableByStore(ctx context.Context, storeID int64) ([]*models.Drone, error)
	UpdateStatus(ctx context.Context, id int64, status models.DroneStatus) error
	UpdateTelemetry(ctx context.Context, id int64, lat, lng, batteryPct float64) error
}

// RouteRepositoryI defines operations on Route aggregates: the route row,
// its ordered stops, stop-order links, and telemetry positions.
type RouteRepositoryI interface {
	CreateWithStops(ctx context.Context, route *models.Route) (*models.Route, error)
	GetByID(ctx context.Context, id int64) (*models.Route, error)
	ListActive(ctx context.Context) ([]*models.Route, error)
	UpdateLifecycle(ctx context.Context, route *models.Route) error
	GetStopByID(ctx context.Context, stopID int64) (*models.RouteStop, error)
	NextPendingStop(ctx context.Context, routeID int64) (*models.RouteStop, error)
	UpdateStop(ctx context.Context, stop *models.RouteStop) error
	AddPosition(ctx context.Context, p *models.RoutePosition) (*models.RoutePosition, error)
	LatestPosition(ctx context.Context, routeID int64) (*models.RoutePosition, error)
}

// FlightLogRepositoryI defines operations on FlightLog entities.
type FlightLogRepositoryI interface {
	Create(ctx context.Context, fl *models.FlightLog) (*models.FlightLog, error)
	ListByRoute(ctx context.Context, routeID int64) ([]*models.FlightLog, error)
}
