package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Planner  PlannerConfig
	Sim      SimConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Address string // HTTP server listen address (e.g., ":8080")
}

// PlannerConfig contains route planning settings.
type PlannerConfig struct {
	MaxOrdersPerTrip int     // orders per route, upper bound
	BatteryPctPerKm  float64 // charge consumed per kilometer
	SafetyMargin     float64 // battery feasibility reserve fraction
}

// SimConfig contains flight simulation settings.
type SimConfig struct {
	TickInterval    time.Duration // wall-clock pause between position samples
	TimeScale       float64       // simulated seconds per wall-clock second
	DropDwellSec    int           // handoff pause at each drop stop, seconds
	DwellBatteryPct float64       // flat charge consumed per drop handoff
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	maxOrders, err := getEnvInt("PLANNER_MAX_ORDERS", 3)
	if err != nil {
		return nil, err
	}
	batteryPerKm, err := getEnvFloat("PLANNER_BATTERY_PCT_PER_KM", 1.0)
	if err != nil {
		return nil, err
	}
	margin, err := getEnvFloat("PLANNER_SAFETY_MARGIN", 0.2)
	if err != nil {
		return nil, err
	}
	tickMs, err := getEnvInt("SIM_TICK_MS", 1000)
	if err != nil {
		return nil, err
	}
	timeScale, err := getEnvFloat("SIM_TIME_SCALE", 1.0)
	if err != nil {
		return nil, err
	}
	dwellSec, err := getEnvInt("SIM_DROP_DWELL_SEC", 3)
	if err != nil {
		return nil, err
	}
	dwellBattery, err := getEnvFloat("SIM_DWELL_BATTERY_PCT", 0.1)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "app.db"),
		},
		HTTP: HTTPConfig{
			Address: getEnv("HTTP_ADDRESS", ":8080"),
		},
		Planner: PlannerConfig{
			MaxOrdersPerTrip: maxOrders,
			BatteryPctPerKm:  batteryPerKm,
			SafetyMargin:     margin,
		},
		Sim: SimConfig{
			TickInterval:    time.Duration(tickMs) * time.Millisecond,
			TimeScale:       timeScale,
			DropDwellSec:    dwellSec,
			DwellBatteryPct: dwellBattery,
		},
	}

	// Validate critical settings
	if cfg.Planner.MaxOrdersPerTrip < 1 {
		return nil, fmt.Errorf("PLANNER_MAX_ORDERS must be at least 1, got %d", cfg.Planner.MaxOrdersPerTrip)
	}
	if cfg.Planner.BatteryPctPerKm <= 0 {
		return nil, fmt.Errorf("PLANNER_BATTERY_PCT_PER_KM must be positive, got %g", cfg.Planner.BatteryPctPerKm)
	}
	if cfg.Sim.TimeScale <= 0 {
		return nil, fmt.Errorf("SIM_TIME_SCALE must be positive, got %g", cfg.Sim.TimeScale)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// getEnvFloat retrieves an environment variable as a float with a default fallback.
func getEnvFloat(key string, defaultVal float64) (float64, error) {
	if value, exists := os.LookupEnv(key); exists {
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %w", key, err)
		}
		return floatVal, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, HTTP: %s, MaxOrders: %d, TimeScale: %g}",
		c.Database.Path, c.HTTP.Address, c.Planner.MaxOrdersPerTrip, c.Sim.TimeScale)
}
