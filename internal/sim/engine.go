package sim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"droneDeliveryRouting/internal/geo"
	"droneDeliveryRouting/internal/notify"
	"droneDeliveryRouting/models"
	"droneDeliveryRouting/repository"
)

var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrRouteNotPlanned  = errors.New("route is not in PLANNED state")
	ErrRouteNotActive   = errors.New("route is not executing")
	ErrRouteActive      = errors.New("route is already executing")
	errDroneUnavailable = errors.New("assigned drone unavailable")
)

// Config tunes the simulated flight model.
type Config struct {
	// TickInterval is the wall-clock pause between position samples.
	TickInterval time.Duration
	// TimeScale is simulated seconds per wall-clock second. 1 flies in
	// real time; larger values compress the flight.
	TimeScale float64
	// DropDwell is the wall-clock handoff pause at each DROP stop.
	DropDwell time.Duration
	// BatteryPctPerKm is the charge consumed per kilometer flown.
	BatteryPctPerKm float64
	// DwellBatteryPct is the flat charge consumed per drop handoff.
	DwellBatteryPct float64
}

func DefaultConfig() Config {
	return Config{
		TickInterval:    time.Second,
		TimeScale:       1,
		DropDwell:       3 * time.Second,
		BatteryPctPerKm: 1.0,
		DwellBatteryPct: 0.1,
	}
}

// Engine drives launched routes through simulated flight. Each route runs
// on its own worker goroutine; workers share no mutable state and
// coordinate only through the persisted route/stop records. Stop commits
// within one route are strictly sequential; routes progress independently
// of each other.
type Engine struct {
	db        *sql.DB
	routes    repository.RouteRepositoryI
	drones    repository.DroneRepositoryI
	flights   repository.FlightLogRepositoryI
	commit    *StopCommit
	publisher notify.Publisher
	cfg       Config

	mu     sync.Mutex
	active map[int64]context.CancelFunc
	wg     sync.WaitGroup
}

func NewEngine(db *sql.DB, routes repository.RouteRepositoryI, drones repository.DroneRepositoryI, flights repository.FlightLogRepositoryI, commit *StopCommit, publisher notify.Publisher, cfg Config) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.TimeScale <= 0 {
		cfg.TimeScale = 1
	}
	return &Engine{
		db:        db,
		routes:    routes,
		drones:    drones,
		flights:   flights,
		commit:    commit,
		publisher: publisher,
		cfg:       cfg,
		active:    make(map[int64]context.CancelFunc),
	}
}

// flight is the in-memory state of one simulated worker.
type flight struct {
	lat, lng     float64
	speedMPS     float64
	battery      float64
	batteryStart float64
	flownKm      float64
}

// Launch transitions a PLANNED route to LAUNCHED and starts its worker.
func (e *Engine) Launch(ctx context.Context, routeID int64) error {
	route, err := e.routes.GetByID(ctx, routeID)
	if err != nil {
		return fmt.Errorf("load route %d: %w", routeID, err)
	}
	if route == nil {
		return fmt.Errorf("%w: id=%d", ErrRouteNotFound, routeID)
	}
	if route.Status != models.RouteStatusPlanned {
		return fmt.Errorf("%w: route %d is %s", ErrRouteNotPlanned, routeID, route.Status)
	}
	if err := route.Launch(time.Now().UTC()); err != nil {
		return err
	}
	if err := e.routes.UpdateLifecycle(ctx, route); err != nil {
		return fmt.Errorf("persist launch: %w", err)
	}

	e.mu.Lock()
	if _, ok := e.active[routeID]; ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: id=%d", ErrRouteActive, routeID)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	e.active[routeID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.active, routeID)
			e.mu.Unlock()
			cancel()
		}()
		e.fly(runCtx, route)
	}()
	log.Printf("engine: route %d launched", routeID)
	return nil
}

// Abort requests cancellation of an executing route. The worker observes
// it before or during its next sleep, aborts the route, and writes the
// failure flight log. Already-committed stops are left untouched.
func (e *Engine) Abort(routeID int64) error {
	e.mu.Lock()
	cancel, ok := e.active[routeID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: id=%d", ErrRouteNotActive, routeID)
	}
	cancel()
	return nil
}

// Running reports whether a route currently has a worker.
func (e *Engine) Running(routeID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[routeID]
	return ok
}

// Shutdown aborts every active route and waits for workers to finish,
// bounded by ctx.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	for _, cancel := range e.active {
		cancel()
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() { e.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fly advances a launched route stop by stop until completion or failure.
func (e *Engine) fly(ctx context.Context, route *models.Route) {
	start := time.Now().UTC()

	drone, err := e.drones.GetByID(ctx, route.DroneID)
	if err == nil && drone == nil {
		err = fmt.Errorf("%w: drone %d", errDroneUnavailable, route.DroneID)
	}
	if err != nil {
		e.finalize(route, nil, start, models.FlightResultFailure, err.Error())
		return
	}
	st := &flight{
		lat:          drone.Lat,
		lng:          drone.Lng,
		speedMPS:     drone.SpeedMPS,
		battery:      drone.BatteryPct,
		batteryStart: drone.BatteryPct,
	}

	var prev *models.RouteStop
	inProgress := false
	for {
		stop, err := e.routes.NextPendingStop(ctx, route.ID)
		if err != nil {
			e.finalize(route, st, start, models.FlightResultFailure, fmt.Sprintf("next stop: %v", err))
			return
		}
		if stop == nil {
			e.finalize(route, st, start, models.FlightResultSuccess, "")
			return
		}

		if err := e.flySegment(ctx, route, prev, stop, st); err != nil {
			e.finalize(route, st, start, models.FlightResultFailure, fmt.Sprintf("segment to stop %d: %v", stop.Seq, err))
			return
		}

		committed, err := e.commit.CommitArrival(ctx, stop.ID)
		if err != nil {
			e.finalize(route, st, start, models.FlightResultFailure, fmt.Sprintf("arrive stop %d: %v", stop.Seq, err))
			return
		}

		if committed.Status == models.StopStatusArrived {
			if committed.Type == models.StopTypeDrop {
				// Delivery handoff. The pause must stay cancellable so an
				// abort short-circuits it.
				if err := sleepCtx(ctx, e.cfg.DropDwell); err != nil {
					e.finalize(route, st, start, models.FlightResultFailure, fmt.Sprintf("dwell at stop %d: %v", stop.Seq, err))
					return
				}
				st.battery = math.Max(0, st.battery-e.cfg.DwellBatteryPct)
			}
			if _, err := e.commit.CommitDeparture(ctx, stop.ID); err != nil {
				e.finalize(route, st, start, models.FlightResultFailure, fmt.Sprintf("depart stop %d: %v", stop.Seq, err))
				return
			}
		}

		if !inProgress {
			if err := route.Start(); err == nil {
				if err := e.routes.UpdateLifecycle(ctx, route); err != nil {
					log.Printf("engine: route %d mark in progress: %v", route.ID, err)
				}
			}
			inProgress = true
		}
		prev = committed
	}
}

// flySegment moves the drone from its current position to the stop,
// emitting one position sample per tick. Battery drains linearly with
// distance.
func (e *Engine) flySegment(ctx context.Context, route *models.Route, from, to *models.RouteStop, st *flight) error {
	segKm := geo.HaversineKm(st.lat, st.lng, to.Lat, to.Lng)
	if segKm <= 0 {
		return nil
	}
	if st.speedMPS <= 0 {
		return fmt.Errorf("drone has no speed")
	}

	var fromID *int64
	if from != nil {
		id := from.ID
		fromID = &id
	}
	toID := to.ID

	fromLat, fromLng := st.lat, st.lng
	traveled := 0.0
	for traveled < segKm {
		if err := sleepCtx(ctx, e.cfg.TickInterval); err != nil {
			return err
		}
		stepKm := st.speedMPS * e.cfg.TickInterval.Seconds() * e.cfg.TimeScale / geo.MetersPerKm
		prevTraveled := traveled
		traveled = math.Min(traveled+stepKm, segKm)
		st.lat, st.lng = geo.Interpolate(fromLat, fromLng, to.Lat, to.Lng, traveled/segKm)
		st.battery = math.Max(0, st.battery-(traveled-prevTraveled)*e.cfg.BatteryPctPerKm)

		pos := &models.RoutePosition{
			RouteID:    route.ID,
			StopFromID: fromID,
			StopToID:   &toID,
			Lat:        st.lat,
			Lng:        st.lng,
			SpeedMPS:   st.speedMPS,
			BatteryPct: st.battery,
			TS:         time.Now().UTC(),
		}
		if _, err := e.routes.AddPosition(ctx, pos); err != nil {
			return fmt.Errorf("record position: %w", err)
		}
		e.publisher.Publish(notify.RouteTopic(route.ID), notify.PositionEvent{
			RouteID:    route.ID,
			Lat:        pos.Lat,
			Lng:        pos.Lng,
			SpeedMPS:   pos.SpeedMPS,
			BatteryPct: pos.BatteryPct,
			TS:         pos.TS,
		})
	}
	st.flownKm += segKm
	return nil
}

// finalize closes out a flight: terminal route state, exactly one flight
// log, drone released with its post-flight telemetry. Runs on a fresh
// context because the worker's own context may already be cancelled.
func (e *Engine) finalize(route *models.Route, st *flight, start time.Time, result models.FlightResult, note string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now().UTC()

	var transition error
	if result == models.FlightResultSuccess {
		transition = route.Complete(now)
	} else {
		transition = route.Abort(now)
	}
	if transition != nil {
		log.Printf("engine: route %d finalize transition: %v", route.ID, transition)
	} else if err := e.routes.UpdateLifecycle(ctx, route); err != nil {
		log.Printf("engine: route %d persist final state: %v", route.ID, err)
	}

	fl := &models.FlightLog{
		RouteID:   route.ID,
		DroneID:   route.DroneID,
		StartTime: start,
		EndTime:   now,
		Result:    result,
		Note:      note,
	}
	if st != nil {
		fl.DistanceKm = st.flownKm
		fl.BatteryUsedPct = st.batteryStart - st.battery
	}
	if _, err := e.flights.Create(ctx, fl); err != nil {
		log.Printf("engine: route %d write flight log: %v", route.ID, err)
	}

	if st != nil {
		if err := e.drones.UpdateTelemetry(ctx, route.DroneID, st.lat, st.lng, st.battery); err != nil {
			log.Printf("engine: route %d update drone telemetry: %v", route.ID, err)
		}
	}
	if err := e.drones.UpdateStatus(ctx, route.DroneID, models.DroneStatusAvailable); err != nil {
		log.Printf("engine: route %d release drone: %v", route.ID, err)
	}
	log.Printf("engine: route %d finished result=%s distance=%.2fkm", route.ID, result, fl.DistanceKm)
}

// sleepCtx pauses for d or until ctx is cancelled, whichever comes
// first. Cancellation is returned as the context's error.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still observe a pending abort even with no delay configured.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
