package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"droneDeliveryRouting/internal/api"
	"droneDeliveryRouting/internal/config"
	"droneDeliveryRouting/internal/db"
	"droneDeliveryRouting/internal/notify"
	"droneDeliveryRouting/internal/planner"
	"droneDeliveryRouting/internal/sim"
	"droneDeliveryRouting/repository"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("Configuration loaded: %v", cfg)

	// Open DB
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Printf("close db: %v", err)
		}
	}()

	stores := repository.NewStoreRepository(d)
	orders := repository.NewOrderRepository(d)
	drones := repository.NewDroneRepository(d)
	routes := repository.NewRouteRepository(d)
	flights := repository.NewFlightLogRepository(d)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	hub := notify.NewHub()
	go hub.Run(hubCtx)

	pl := planner.New(d, stores, orders, drones, planner.Config{
		MaxOrdersPerTrip: cfg.Planner.MaxOrdersPerTrip,
		DropDwell:        time.Duration(cfg.Sim.DropDwellSec) * time.Second,
		Capacity: planner.CapacityConfig{
			BatteryPctPerKm: cfg.Planner.BatteryPctPerKm,
			SafetyMargin:    cfg.Planner.SafetyMargin,
		},
	})

	commit := sim.NewStopCommit(d, hub)
	engine := sim.NewEngine(d, routes, drones, flights, commit, hub, sim.Config{
		TickInterval:    cfg.Sim.TickInterval,
		TimeScale:       cfg.Sim.TimeScale,
		DropDwell:       time.Duration(cfg.Sim.DropDwellSec) * time.Second,
		BatteryPctPerKm: cfg.Planner.BatteryPctPerKm,
		DwellBatteryPct: cfg.Sim.DwellBatteryPct,
	})

	rc := api.NewRouteController(pl, engine, routes, drones, stores)
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: api.NewRouter(rc, hub),
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := engine.Shutdown(ctx); err != nil {
		log.Printf("engine shutdown: %v", err)
	}
	hubCancel()
}
