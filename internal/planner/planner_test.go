package planner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"droneDeliveryRouting/internal/testutil"
	"droneDeliveryRouting/models"
	"droneDeliveryRouting/repository"
)

func TestPlanFromSelection_ValidationFailures(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "plan_validation")
	orderRepo := repository.NewOrderRepository(d)
	p := New(d, repository.NewStoreRepository(d), orderRepo, repository.NewDroneRepository(d), DefaultConfig())
	ctx := context.Background()

	storeA := testutil.SeedStore(t, d, "A", 40.0, -73.0)
	storeB := testutil.SeedStore(t, d, "B", 41.0, -73.0)
	user := testutil.SeedUser(t, d, "customer")
	testutil.SeedDrone(t, d, storeA.ID, storeA.Lat, storeA.Lng, 10, 100, 15)

	oa := testutil.SeedOrder(t, d, storeA.ID, user.ID, 1, 40.01, -73.0)
	ob := testutil.SeedOrder(t, d, storeB.ID, user.ID, 1, 41.01, -73.0)
	o2 := testutil.SeedOrder(t, d, storeA.ID, user.ID, 1, 40.02, -73.0)
	o3 := testutil.SeedOrder(t, d, storeA.ID, user.ID, 1, 40.03, -73.0)
	o4 := testutil.SeedOrder(t, d, storeA.ID, user.ID, 1, 40.04, -73.0)

	cases := []struct {
		name string
		ids  []int64
		want error
	}{
		{"empty selection", nil, ErrNoOrders},
		{"too many orders", []int64{oa.ID, o2.ID, o3.ID, o4.ID}, ErrTooManyOrders},
		{"mixed stores", []int64{oa.ID, ob.ID}, ErrMixedStores},
		{"missing order", []int64{oa.ID, 99999}, ErrOrderNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := p.PlanFromSelection(ctx, tc.ids); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	// A fulfilled order is not startable.
	if err := orderRepo.UpdateStatus(ctx, o4.ID, models.OrderStatusFulfilled); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if _, err := p.PlanFromSelection(ctx, []int64{o4.ID}); !errors.Is(err, ErrOrderNotStartable) {
		t.Fatalf("err = %v, want %v", err, ErrOrderNotStartable)
	}

	// No rejected call may have mutated an order.
	for _, id := range []int64{oa.ID, ob.ID, o2.ID, o3.ID} {
		got, err := orderRepo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get order %d: %v", id, err)
		}
		if got.Status != models.OrderStatusCreated {
			t.Errorf("order %d status = %s, want CREATED after rejected planning", id, got.Status)
		}
	}
}

func TestPlanFromSelection_WeightExceededLeavesOrdersCreated(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "plan_weight")
	orderRepo := repository.NewOrderRepository(d)
	droneRepo := repository.NewDroneRepository(d)
	p := New(d, repository.NewStoreRepository(d), orderRepo, droneRepo, DefaultConfig())
	ctx := context.Background()

	store := testutil.SeedStore(t, d, "Depot", 40.0, -73.0)
	user := testutil.SeedUser(t, d, "customer")
	drone := testutil.SeedDrone(t, d, store.ID, store.Lat, store.Lng, 2, 100, 15)
	o1 := testutil.SeedOrder(t, d, store.ID, user.ID, 1.5, 40.01, -73.0)
	o2 := testutil.SeedOrder(t, d, store.ID, user.ID, 1.5, 40.02, -73.0)

	_, err := p.PlanFromSelection(ctx, []int64{o1.ID, o2.ID})
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want *CapacityError", err)
	}
	if capErr.Reason != ReasonWeightExceeded {
		t.Fatalf("reason = %s, want WEIGHT_EXCEEDED", capErr.Reason)
	}

	for _, id := range []int64{o1.ID, o2.ID} {
		got, _ := orderRepo.GetByID(ctx, id)
		if got.Status != models.OrderStatusCreated {
			t.Errorf("order %d status = %s, want CREATED", id, got.Status)
		}
	}
	gotDrone, _ := droneRepo.GetByID(ctx, drone.ID)
	if gotDrone.Status != models.DroneStatusAvailable {
		t.Errorf("drone status = %s, want AVAILABLE", gotDrone.Status)
	}
}

func TestPlanFromSelection_PersistsRouteAndMarksOrders(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "plan_success")
	orderRepo := repository.NewOrderRepository(d)
	droneRepo := repository.NewDroneRepository(d)
	routeRepo := repository.NewRouteRepository(d)
	p := New(d, repository.NewStoreRepository(d), orderRepo, droneRepo, DefaultConfig())
	ctx := context.Background()

	store := testutil.SeedStore(t, d, "Depot", 40.0, -73.0)
	user := testutil.SeedUser(t, d, "customer")
	drone := testutil.SeedDrone(t, d, store.ID, store.Lat, store.Lng, 10, 100, 15)
	o1 := testutil.SeedOrder(t, d, store.ID, user.ID, 2, 40.01, -73.0)
	o2 := testutil.SeedOrder(t, d, store.ID, user.ID, 1, 40.02, -73.0)

	route, err := p.PlanFromSelection(ctx, []int64{o1.ID, o2.ID})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if route.Status != models.RouteStatusPlanned {
		t.Errorf("route status = %s, want PLANNED", route.Status)
	}
	if route.Heuristic != HeuristicNearestNeighbor {
		t.Errorf("heuristic = %s, want %s", route.Heuristic, HeuristicNearestNeighbor)
	}
	if route.PlannedPayloadKg != 3 {
		t.Errorf("planned payload = %g, want 3", route.PlannedPayloadKg)
	}
	if route.PlannedDistanceKm <= 0 {
		t.Errorf("planned distance = %g, want > 0", route.PlannedDistanceKm)
	}

	persisted, err := routeRepo.GetByID(ctx, route.ID)
	if err != nil {
		t.Fatalf("load route: %v", err)
	}
	if persisted == nil {
		t.Fatal("route not persisted")
	}
	if len(persisted.Stops) != 4 {
		t.Fatalf("stops = %d, want 4 (pickup, 2 drops, return)", len(persisted.Stops))
	}
	for i, s := range persisted.Stops {
		if s.Seq != i+1 {
			t.Errorf("stop %d seq = %d, want %d", i, s.Seq, i+1)
		}
		if s.Status != models.StopStatusPending {
			t.Errorf("stop seq %d status = %s, want PENDING", s.Seq, s.Status)
		}
		if s.PlannedArrivalAt == nil || s.PlannedDepartureAt == nil {
			t.Errorf("stop seq %d missing planned schedule", s.Seq)
		}
	}

	for _, id := range []int64{o1.ID, o2.ID} {
		got, _ := orderRepo.GetByID(ctx, id)
		if got.Status != models.OrderStatusAssigned {
			t.Errorf("order %d status = %s, want ASSIGNED", id, got.Status)
		}
	}
	gotDrone, _ := droneRepo.GetByID(ctx, drone.ID)
	if gotDrone.Status != models.DroneStatusFlying {
		t.Errorf("drone status = %s, want FLYING", gotDrone.Status)
	}
}

func TestPlanBatch_DefersOrdersThatFitNoDrone(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "plan_batch_defer")
	orderRepo := repository.NewOrderRepository(d)
	p := New(d, repository.NewStoreRepository(d), orderRepo, repository.NewDroneRepository(d), DefaultConfig())
	ctx := context.Background()

	store := testutil.SeedStore(t, d, "Depot", 40.0, -73.0)
	user := testutil.SeedUser(t, d, "customer")
	// One drone, 3 kg payload: two 2 kg orders cannot share the trip.
	testutil.SeedDrone(t, d, store.ID, store.Lat, store.Lng, 3, 100, 15)
	o1 := testutil.SeedOrder(t, d, store.ID, user.ID, 2, 40.01, -73.0)
	o2 := testutil.SeedOrder(t, d, store.ID, user.ID, 2, 40.02, -73.0)

	result, err := p.PlanBatch(ctx)
	if err != nil {
		t.Fatalf("plan batch: %v", err)
	}
	if len(result.Routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(result.Routes))
	}
	if len(result.Deferred) != 1 || result.Deferred[0] != o2.ID {
		t.Fatalf("deferred = %v, want [%d]", result.Deferred, o2.ID)
	}

	got1, _ := orderRepo.GetByID(ctx, o1.ID)
	if got1.Status != models.OrderStatusAssigned {
		t.Errorf("routed order status = %s, want ASSIGNED", got1.Status)
	}
	got2, _ := orderRepo.GetByID(ctx, o2.ID)
	if got2.Status != models.OrderStatusCreated {
		t.Errorf("deferred order status = %s, want CREATED", got2.Status)
	}
}

func TestPlanBatch_NoPendingOrders(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "plan_batch_empty")
	p := New(d, repository.NewStoreRepository(d), repository.NewOrderRepository(d), repository.NewDroneRepository(d), DefaultConfig())

	if _, err := p.PlanBatch(context.Background()); !errors.Is(err, ErrNoPendingOrders) {
		t.Fatalf("err = %v, want %v", err, ErrNoPendingOrders)
	}
}

func TestPlanBatch_ConcurrentRunsNeverDoubleAssign(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "plan_batch_concurrent")
	orderRepo := repository.NewOrderRepository(d)
	p := New(d, repository.NewStoreRepository(d), orderRepo, repository.NewDroneRepository(d), DefaultConfig())
	ctx := context.Background()

	store := testutil.SeedStore(t, d, "Depot", 40.0, -73.0)
	user := testutil.SeedUser(t, d, "customer")
	for i := 0; i < 3; i++ {
		testutil.SeedDrone(t, d, store.ID, store.Lat, store.Lng, 10, 100, 15)
	}
	var orderIDs []int64
	for i := 0; i < 6; i++ {
		o := testutil.SeedOrder(t, d, store.ID, user.ID, 1, 40.0+float64(i+1)*0.01, -73.0)
		orderIDs = append(orderIDs, o.ID)
	}

	var mu sync.Mutex
	var results []*BatchResult
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.PlanBatch(ctx)
			if err != nil {
				// Later runs legitimately find nothing left to plan.
				if !errors.Is(err, ErrNoPendingOrders) {
					t.Errorf("plan batch: %v", err)
				}
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	seen := map[int64]int{}
	for _, res := range results {
		for _, route := range res.Routes {
			for _, stop := range route.Stops {
				for _, id := range stop.OrderIDs {
					seen[id]++
				}
			}
		}
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("order %d assigned to %d routes", id, n)
		}
	}
	for _, id := range orderIDs {
		got, _ := orderRepo.GetByID(ctx, id)
		if got.Status == models.OrderStatusAssigned && seen[id] == 0 {
			t.Errorf("order %d marked ASSIGNED but appears on no route", id)
		}
	}
}
