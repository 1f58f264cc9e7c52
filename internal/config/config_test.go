package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Ensure envs are clean to use defaults
	for _, key := range []string{
		"DB_PATH", "HTTP_ADDRESS",
		"PLANNER_MAX_ORDERS", "PLANNER_BATTERY_PCT_PER_KM", "PLANNER_SAFETY_MARGIN",
		"SIM_TICK_MS", "SIM_TIME_SCALE", "SIM_DROP_DWELL_SEC", "SIM_DWELL_BATTERY_PCT",
	} {
		os.Unsetenv(key)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path == "" || cfg.HTTP.Address == "" {
		t.Fatalf("unexpected empty defaults: %+v", cfg)
	}
	if cfg.Planner.MaxOrdersPerTrip != 3 {
		t.Fatalf("MaxOrdersPerTrip = %d, want 3", cfg.Planner.MaxOrdersPerTrip)
	}
	if cfg.Sim.TickInterval != time.Second {
		t.Fatalf("TickInterval = %v, want 1s", cfg.Sim.TickInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_PATH", "test.db")
	t.Setenv("PLANNER_MAX_ORDERS", "2")
	t.Setenv("SIM_TIME_SCALE", "60")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "test.db" {
		t.Fatalf("Database.Path = %q, want test.db", cfg.Database.Path)
	}
	if cfg.Planner.MaxOrdersPerTrip != 2 {
		t.Fatalf("MaxOrdersPerTrip = %d, want 2", cfg.Planner.MaxOrdersPerTrip)
	}
	if cfg.Sim.TimeScale != 60 {
		t.Fatalf("TimeScale = %g, want 60", cfg.Sim.TimeScale)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("PLANNER_MAX_ORDERS", "zero")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-integer PLANNER_MAX_ORDERS")
	}
	t.Setenv("PLANNER_MAX_ORDERS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for PLANNER_MAX_ORDERS=0")
	}
	t.Setenv("PLANNER_MAX_ORDERS", "3")
	t.Setenv("SIM_TIME_SCALE", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative SIM_TIME_SCALE")
	}
}
