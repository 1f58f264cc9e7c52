package sim

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"droneDeliveryRouting/internal/notify"
	"droneDeliveryRouting/internal/planner"
	"droneDeliveryRouting/internal/testutil"
	"droneDeliveryRouting/models"
	"droneDeliveryRouting/repository"
)

// recordPublisher captures published events for assertions.
type recordPublisher struct {
	mu     sync.Mutex
	events map[string][]any
}

func newRecordPublisher() *recordPublisher {
	return &recordPublisher{events: map[string][]any{}}
}

func (r *recordPublisher) Publish(topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[topic] = append(r.events[topic], payload)
}

func (r *recordPublisher) count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events[topic])
}

type testRig struct {
	db      *sql.DB
	orders  *repository.OrderRepository
	drones  *repository.DroneRepository
	routes  *repository.RouteRepository
	flights *repository.FlightLogRepository
	planner *planner.Planner
	pub     *recordPublisher
}

func newTestRig(t *testing.T, name string) *testRig {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	orders := repository.NewOrderRepository(d)
	drones := repository.NewDroneRepository(d)
	return &testRig{
		db:      d,
		orders:  orders,
		drones:  drones,
		routes:  repository.NewRouteRepository(d),
		flights: repository.NewFlightLogRepository(d),
		planner: planner.New(d, repository.NewStoreRepository(d), orders, drones, planner.DefaultConfig()),
		pub:     newRecordPublisher(),
	}
}

func (r *testRig) newEngine(cfg Config) *Engine {
	commit := NewStopCommit(r.db, r.pub)
	return NewEngine(r.db, r.routes, r.drones, r.flights, commit, r.pub, cfg)
}

// fastConfig compresses a few-kilometer flight into milliseconds.
func fastConfig() Config {
	return Config{
		TickInterval:    time.Millisecond,
		TimeScale:       200000,
		DropDwell:       time.Millisecond,
		BatteryPctPerKm: 1.0,
		DwellBatteryPct: 0.1,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEngine_RouteCompletesAndFulfillsOrders(t *testing.T) {
	rig := newTestRig(t, "engine_complete")
	ctx := context.Background()

	store := testutil.SeedStore(t, rig.db, "Depot", 40.0, -73.0)
	user := testutil.SeedUser(t, rig.db, "customer")
	drone := testutil.SeedDrone(t, rig.db, store.ID, store.Lat, store.Lng, 10, 100, 15)
	o1 := testutil.SeedOrder(t, rig.db, store.ID, user.ID, 2, 40.01, -73.0)
	o2 := testutil.SeedOrder(t, rig.db, store.ID, user.ID, 1, 40.02, -73.0)

	route, err := rig.planner.PlanFromSelection(ctx, []int64{o1.ID, o2.ID})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	engine := rig.newEngine(fastConfig())
	if err := engine.Launch(ctx, route.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}
	waitFor(t, "route worker to finish", func() bool { return !engine.Running(route.ID) })

	got, err := rig.routes.GetByID(ctx, route.ID)
	if err != nil {
		t.Fatalf("load route: %v", err)
	}
	if got.Status != models.RouteStatusCompleted {
		t.Fatalf("route status = %s, want COMPLETED", got.Status)
	}
	if got.ActualStartAt == nil || got.ActualEndAt == nil {
		t.Error("actual start/end not recorded")
	}
	for _, s := range got.Stops {
		if s.Status != models.StopStatusDeparted {
			t.Errorf("stop seq %d status = %s, want DEPARTED", s.Seq, s.Status)
		}
	}

	for _, id := range []int64{o1.ID, o2.ID} {
		o, _ := rig.orders.GetByID(ctx, id)
		if o.Status != models.OrderStatusFulfilled {
			t.Errorf("order %d status = %s, want FULFILLED", id, o.Status)
		}
		if n := rig.pub.count(notify.OrderTopic(id)); n != 1 {
			t.Errorf("order %d got %d completion events, want exactly 1", id, n)
		}
	}

	gotDrone, _ := rig.drones.GetByID(ctx, drone.ID)
	if gotDrone.Status != models.DroneStatusAvailable {
		t.Errorf("drone status = %s, want AVAILABLE after flight", gotDrone.Status)
	}
	if gotDrone.BatteryPct >= 100 {
		t.Errorf("drone battery = %.2f, want drained below 100", gotDrone.BatteryPct)
	}

	logs, err := rig.flights.ListByRoute(ctx, route.ID)
	if err != nil {
		t.Fatalf("list flight logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("flight logs = %d, want exactly 1", len(logs))
	}
	if logs[0].Result != models.FlightResultSuccess {
		t.Errorf("flight result = %s, want SUCCESS", logs[0].Result)
	}
	if logs[0].DistanceKm <= 0 {
		t.Errorf("flight distance = %g, want > 0", logs[0].DistanceKm)
	}

	if rig.pub.count(notify.RouteTopic(route.ID)) == 0 {
		t.Error("no position telemetry published during flight")
	}
	pos, _ := rig.routes.LatestPosition(ctx, route.ID)
	if pos == nil {
		t.Error("no position samples persisted")
	}
}

func TestEngine_AbortMidFlight(t *testing.T) {
	rig := newTestRig(t, "engine_abort")
	ctx := context.Background()

	store := testutil.SeedStore(t, rig.db, "Depot", 40.0, -73.0)
	user := testutil.SeedUser(t, rig.db, "customer")
	drone := testutil.SeedDrone(t, rig.db, store.ID, store.Lat, store.Lng, 10, 100, 15)
	o1 := testutil.SeedOrder(t, rig.db, store.ID, user.ID, 2, 40.3, -73.0)

	route, err := rig.planner.PlanFromSelection(ctx, []int64{o1.ID})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	// Real-time scale: the ~33 km to the drop takes far longer than the
	// test, so the route hangs in the first drop segment.
	cfg := fastConfig()
	cfg.TimeScale = 1
	engine := rig.newEngine(cfg)
	if err := engine.Launch(ctx, route.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}

	// The pickup is at the drone's own position and commits immediately.
	waitFor(t, "pickup stop to depart", func() bool {
		got, err := rig.routes.GetByID(ctx, route.ID)
		if err != nil || got == nil {
			return false
		}
		return got.Stops[0].Status == models.StopStatusDeparted
	})

	if err := engine.Abort(route.ID); err != nil {
		t.Fatalf("abort: %v", err)
	}
	waitFor(t, "route worker to finish", func() bool { return !engine.Running(route.ID) })

	got, err := rig.routes.GetByID(ctx, route.ID)
	if err != nil {
		t.Fatalf("load route: %v", err)
	}
	if got.Status != models.RouteStatusAborted {
		t.Fatalf("route status = %s, want ABORTED", got.Status)
	}
	// Committed progress survives the abort untouched.
	if got.Stops[0].Status != models.StopStatusDeparted {
		t.Errorf("pickup status = %s, want DEPARTED", got.Stops[0].Status)
	}
	if got.Stops[1].Status != models.StopStatusPending {
		t.Errorf("drop status = %s, want PENDING", got.Stops[1].Status)
	}

	logs, err := rig.flights.ListByRoute(ctx, route.ID)
	if err != nil {
		t.Fatalf("list flight logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("flight logs = %d, want exactly 1", len(logs))
	}
	if logs[0].Result != models.FlightResultFailure {
		t.Errorf("flight result = %s, want FAILURE", logs[0].Result)
	}

	if n := rig.pub.count(notify.OrderTopic(o1.ID)); n != 0 {
		t.Errorf("aborted order got %d completion events, want 0", n)
	}
	gotDrone, _ := rig.drones.GetByID(ctx, drone.ID)
	if gotDrone.Status != models.DroneStatusAvailable {
		t.Errorf("drone status = %s, want AVAILABLE after abort", gotDrone.Status)
	}
}

func TestEngine_SkipsDropWithNoDeliverableOrders(t *testing.T) {
	rig := newTestRig(t, "engine_skip")
	ctx := context.Background()

	store := testutil.SeedStore(t, rig.db, "Depot", 40.0, -73.0)
	user := testutil.SeedUser(t, rig.db, "customer")
	testutil.SeedDrone(t, rig.db, store.ID, store.Lat, store.Lng, 10, 100, 15)
	o1 := testutil.SeedOrder(t, rig.db, store.ID, user.ID, 2, 40.01, -73.0)

	route, err := rig.planner.PlanFromSelection(ctx, []int64{o1.ID})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	// The order is cancelled between planning and launch.
	if err := rig.orders.UpdateStatus(ctx, o1.ID, models.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	engine := rig.newEngine(fastConfig())
	if err := engine.Launch(ctx, route.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}
	waitFor(t, "route worker to finish", func() bool { return !engine.Running(route.ID) })

	got, err := rig.routes.GetByID(ctx, route.ID)
	if err != nil {
		t.Fatalf("load route: %v", err)
	}
	if got.Status != models.RouteStatusCompleted {
		t.Fatalf("route status = %s, want COMPLETED", got.Status)
	}
	var drop *models.RouteStop
	for _, s := range got.Stops {
		if s.Type == models.StopTypeDrop {
			drop = s
		}
	}
	if drop == nil {
		t.Fatal("no drop stop on route")
	}
	if drop.Status != models.StopStatusSkipped {
		t.Errorf("drop status = %s, want SKIPPED", drop.Status)
	}

	o, _ := rig.orders.GetByID(ctx, o1.ID)
	if o.Status != models.OrderStatusCancelled {
		t.Errorf("order status = %s, want CANCELLED left untouched", o.Status)
	}
	if n := rig.pub.count(notify.OrderTopic(o1.ID)); n != 0 {
		t.Errorf("cancelled order got %d completion events, want 0", n)
	}
}

func TestEngine_LaunchAndAbortPreconditions(t *testing.T) {
	rig := newTestRig(t, "engine_preconditions")
	ctx := context.Background()

	engine := rig.newEngine(fastConfig())
	if err := engine.Launch(ctx, 99999); !errors.Is(err, ErrRouteNotFound) {
		t.Errorf("launch missing route: err = %v, want %v", err, ErrRouteNotFound)
	}
	if err := engine.Abort(99999); !errors.Is(err, ErrRouteNotActive) {
		t.Errorf("abort inactive route: err = %v, want %v", err, ErrRouteNotActive)
	}

	store := testutil.SeedStore(t, rig.db, "Depot", 40.0, -73.0)
	user := testutil.SeedUser(t, rig.db, "customer")
	testutil.SeedDrone(t, rig.db, store.ID, store.Lat, store.Lng, 10, 100, 15)
	o1 := testutil.SeedOrder(t, rig.db, store.ID, user.ID, 2, 40.01, -73.0)

	route, err := rig.planner.PlanFromSelection(ctx, []int64{o1.ID})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if err := engine.Launch(ctx, route.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}
	// A second launch finds the route no longer PLANNED.
	if err := engine.Launch(ctx, route.ID); !errors.Is(err, ErrRouteNotPlanned) {
		t.Errorf("relaunch: err = %v, want %v", err, ErrRouteNotPlanned)
	}
	waitFor(t, "route worker to finish", func() bool { return !engine.Running(route.ID) })
}
