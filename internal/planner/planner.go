package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"droneDeliveryRouting/models"
	"droneDeliveryRouting/repository"
)

// Validation and precondition failures. None of these mutate any state.
var (
	ErrNoOrders          = errors.New("no orders selected")
	ErrTooManyOrders     = errors.New("too many orders selected")
	ErrMixedStores       = errors.New("orders belong to different stores")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotStartable = errors.New("order is not in a startable state")
	ErrNoDroneAvailable  = errors.New("no drone available")
	ErrNoPendingOrders   = errors.New("no pending orders")
)

// Config tunes one planning run.
type Config struct {
	// MaxOrdersPerTrip caps how many orders one drone trip may carry.
	MaxOrdersPerTrip int
	// DropDwell is the planned handoff pause at each drop stop.
	DropDwell time.Duration
	Capacity  CapacityConfig
}

// DefaultConfig mirrors the production defaults: three orders per trip,
// three-second handoff, 1%/km battery burn with a 20% reserve.
func DefaultConfig() Config {
	return Config{
		MaxOrdersPerTrip: 3,
		DropDwell:        3 * time.Second,
		Capacity: CapacityConfig{
			BatteryPctPerKm: 1.0,
			SafetyMargin:    0.2,
		},
	}
}

// Planner groups pending orders into feasible drone trips and persists
// them as PLANNED routes. All planning runs share one critical section so
// two concurrent runs can never claim the same order or drone.
type Planner struct {
	db     *sql.DB
	stores repository.StoreRepositoryI
	orders repository.OrderRepositoryI
	drones repository.DroneRepositoryI
	cfg    Config

	mu sync.Mutex
}

func New(db *sql.DB, stores repository.StoreRepositoryI, orders repository.OrderRepositoryI, drones repository.DroneRepositoryI, cfg Config) *Planner {
	if cfg.MaxOrdersPerTrip <= 0 {
		cfg.MaxOrdersPerTrip = 3
	}
	return &Planner{db: db, stores: stores, orders: orders, drones: drones, cfg: cfg}
}

// BatchResult reports one PlanBatch run. Deferred orders stay pending for
// a future run; their presence is normal, not a failure.
type BatchResult struct {
	BatchID  string
	Routes   []*models.Route
	Deferred []int64
}

// PlanFromSelection builds one route from an explicit order selection.
// All orders must belong to the same store and be in a startable state,
// and the whole selection must fit a single available drone. Any
// violation fails the call without marking orders or drones.
func (p *Planner) PlanFromSelection(ctx context.Context, orderIDs []int64) (*models.Route, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(orderIDs) == 0 {
		return nil, ErrNoOrders
	}
	if len(orderIDs) > p.cfg.MaxOrdersPerTrip {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyOrders, len(orderIDs), p.cfg.MaxOrdersPerTrip)
	}

	orders, err := p.orders.GetByIDs(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if len(orders) != len(orderIDs) {
		return nil, fmt.Errorf("%w: requested %d, found %d", ErrOrderNotFound, len(orderIDs), len(orders))
	}
	storeID := orders[0].StoreID
	for _, o := range orders {
		if o.StoreID != storeID {
			return nil, ErrMixedStores
		}
		if !o.Startable() {
			return nil, fmt.Errorf("%w: order %d is %s", ErrOrderNotStartable, o.ID, o.Status)
		}
	}

	store, err := p.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("load store %d: %w", storeID, err)
	}
	if store == nil {
		return nil, fmt.Errorf("store %d not found", storeID)
	}

	drones, err := p.drones.ListAvailableByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list drones: %w", err)
	}
	if len(drones) == 0 {
		return nil, ErrNoDroneAvailable
	}

	var lastCapErr error
	for _, drone := range drones {
		route, err := p.buildRoute(store, drone, orders, time.Now().UTC())
		if err != nil {
			var capErr *CapacityError
			if errors.As(err, &capErr) {
				lastCapErr = err
				continue
			}
			return nil, err
		}
		if err := p.persistRoute(ctx, route, drone, orders); err != nil {
			return nil, err
		}
		log.Printf("planner: route %d planned store=%d drone=%d orders=%d distance=%.2fkm", route.ID, storeID, drone.ID, len(orders), route.PlannedDistanceKm)
		return route, nil
	}
	return nil, lastCapErr
}

// PlanBatch scans all pending orders, groups them store by store in
// arrival order, and greedily forms as many feasible trips as available
// drones and capacity allow. Orders that fit no drone stay pending.
func (p *Planner) PlanBatch(ctx context.Context) (*BatchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending, err := p.orders.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	if len(pending) == 0 {
		return nil, ErrNoPendingOrders
	}

	// Group by store, preserving first-come-first-served order within
	// each store and across the store iteration itself.
	var storeIDs []int64
	byStore := map[int64][]*models.Order{}
	for _, o := range pending {
		if _, ok := byStore[o.StoreID]; !ok {
			storeIDs = append(storeIDs, o.StoreID)
		}
		byStore[o.StoreID] = append(byStore[o.StoreID], o)
	}

	result := &BatchResult{BatchID: uuid.NewString()}
	now := time.Now().UTC()
	anyDrone := false

	for _, storeID := range storeIDs {
		store, err := p.stores.GetByID(ctx, storeID)
		if err != nil {
			return nil, fmt.Errorf("load store %d: %w", storeID, err)
		}
		if store == nil {
			return nil, fmt.Errorf("store %d not found", storeID)
		}
		drones, err := p.drones.ListAvailableByStore(ctx, storeID)
		if err != nil {
			return nil, fmt.Errorf("list drones for store %d: %w", storeID, err)
		}
		if len(drones) > 0 {
			anyDrone = true
		}
		p.planStore(ctx, store, drones, byStore[storeID], now, result)
	}

	if !anyDrone {
		return nil, ErrNoDroneAvailable
	}
	log.Printf("planner: batch %s planned routes=%d deferred=%d", result.BatchID, len(result.Routes), len(result.Deferred))
	return result, nil
}

// planStore forms trips for one store's pending orders against its
// available drones. Infeasible orders are deferred, never failed.
func (p *Planner) planStore(ctx context.Context, store *models.Store, drones []*models.Drone, orders []*models.Order, now time.Time, result *BatchResult) {
	di := 0
	var batch []*models.Order

	flush := func() {
		if len(batch) == 0 || di >= len(drones) {
			return
		}
		drone := drones[di]
		route, err := p.buildRoute(store, drone, batch, now)
		if err != nil {
			log.Printf("planner: store %d drone %d batch rejected: %v", store.ID, drone.ID, err)
			for _, o := range batch {
				result.Deferred = append(result.Deferred, o.ID)
			}
			batch = nil
			return
		}
		route.Note = fmt.Sprintf("batch %s processed at %s", result.BatchID, now.Format(time.RFC3339))
		if err := p.persistRoute(ctx, route, drone, batch); err != nil {
			log.Printf("planner: persist route for store %d drone %d: %v", store.ID, drone.ID, err)
			for _, o := range batch {
				result.Deferred = append(result.Deferred, o.ID)
			}
			batch = nil
			return
		}
		result.Routes = append(result.Routes, route)
		di++
		batch = nil
	}

	for _, o := range orders {
		if di >= len(drones) {
			result.Deferred = append(result.Deferred, o.ID)
			continue
		}
		trial := append(append([]*models.Order{}, batch...), o)
		if len(trial) <= p.cfg.MaxOrdersPerTrip && p.feasible(store, drones[di], trial) {
			batch = trial
			continue
		}
		if len(batch) == 0 {
			// Does not fit even alone on the current drone.
			result.Deferred = append(result.Deferred, o.ID)
			continue
		}
		flush()
		if di < len(drones) && p.feasible(store, drones[di], []*models.Order{o}) {
			batch = []*models.Order{o}
		} else {
			result.Deferred = append(result.Deferred, o.ID)
		}
	}
	flush()
}

func (p *Planner) feasible(store *models.Store, drone *models.Drone, orders []*models.Order) bool {
	_, distanceKm := BuildStops(store, orders, drone.Lat, drone.Lng)
	return CheckCapacity(drone, store.ID, orders, distanceKm, p.cfg.Capacity) == nil
}

// buildRoute assembles a PLANNED route for one drone trip: nearest
// neighbor stop sequence, capacity check, planned schedule.
func (p *Planner) buildRoute(store *models.Store, drone *models.Drone, orders []*models.Order, now time.Time) (*models.Route, error) {
	stops, distanceKm := BuildStops(store, orders, drone.Lat, drone.Lng)
	if err := CheckCapacity(drone, store.ID, orders, distanceKm, p.cfg.Capacity); err != nil {
		return nil, err
	}
	scheduleStops(stops, drone.Lat, drone.Lng, drone.SpeedMPS, p.cfg.DropDwell, now)

	route := &models.Route{
		DroneID:           drone.ID,
		StoreID:           store.ID,
		Status:            models.RouteStatusPlanned,
		PlannedStartAt:    &now,
		PlannedDistanceKm: distanceKm,
		PlannedPayloadKg:  TotalWeightKg(orders),
		Heuristic:         HeuristicNearestNeighbor,
		Stops:             stops,
	}
	if last := stops[len(stops)-1]; last.PlannedArrivalAt != nil {
		route.PlannedEndAt = last.PlannedArrivalAt
	}
	return route, nil
}

// persistRoute commits one planned trip atomically: the route with its
// stops and links, the orders marked ASSIGNED, the drone reserved.
func (p *Planner) persistRoute(ctx context.Context, route *models.Route, drone *models.Drone, orders []*models.Order) error {
	return repository.RunInTx(ctx, p.db, func(tx *sql.Tx) error {
		routes := repository.NewRouteRepository(tx)
		orderRepo := repository.NewOrderRepository(tx)
		droneRepo := repository.NewDroneRepository(tx)

		if _, err := routes.CreateWithStops(ctx, route); err != nil {
			return fmt.Errorf("create route: %w", err)
		}
		for _, o := range orders {
			if err := orderRepo.UpdateStatus(ctx, o.ID, models.OrderStatusAssigned); err != nil {
				return fmt.Errorf("assign order %d: %w", o.ID, err)
			}
			o.Status = models.OrderStatusAssigned
		}
		if err := droneRepo.UpdateStatus(ctx, drone.ID, models.DroneStatusFlying); err != nil {
			return fmt.Errorf("reserve drone %d: %w", drone.ID, err)
		}
		drone.Status = models.DroneStatusFlying
		return nil
	})
}
