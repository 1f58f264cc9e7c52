package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"droneDeliveryRouting/internal/db"
	"droneDeliveryRouting/models"
	"droneDeliveryRouting/repository"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// Caller is responsible for closing the DB, typically via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	// We use a shared cache memory database so that multiple connections share the same DB if needed.
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// SeedStore inserts a store and returns it.
func SeedStore(t *testing.T, d *sql.DB, name string, lat, lng float64) *models.Store {
	t.Helper()
	s, err := repository.NewStoreRepository(d).Create(context.Background(), &models.Store{
		Name: name,
		Lat:  lat,
		Lng:  lng,
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return s
}

// SeedUser inserts a user and returns it.
func SeedUser(t *testing.T, d *sql.DB, name string) *models.User {
	t.Helper()
	u, err := repository.NewUserRepository(d).Create(context.Background(), name)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

var droneSerial atomic.Int64

// SeedDrone inserts an AVAILABLE drone docked at the given position.
func SeedDrone(t *testing.T, d *sql.DB, storeID int64, lat, lng, payloadKg, batteryPct, speedMPS float64) *models.Drone {
	t.Helper()
	dr, err := repository.NewDroneRepository(d).Create(context.Background(), &models.Drone{
		Model:        "T-100",
		SerialNumber: fmt.Sprintf("SN-%s-%d", t.Name(), droneSerial.Add(1)),
		StoreID:      storeID,
		Lat:          lat,
		Lng:          lng,
		MaxPayloadKg: payloadKg,
		BatteryPct:   batteryPct,
		SpeedMPS:     speedMPS,
		Status:       models.DroneStatusAvailable,
	})
	if err != nil {
		t.Fatalf("seed drone: %v", err)
	}
	return dr
}

// SeedOrder inserts a CREATED order for the given store and user.
func SeedOrder(t *testing.T, d *sql.DB, storeID, userID int64, weightKg, destLat, destLng float64) *models.Order {
	t.Helper()
	o, err := repository.NewOrderRepository(d).Create(context.Background(), &models.Order{
		StoreID:  storeID,
		UserID:   userID,
		WeightKg: weightKg,
		DestLat:  destLat,
		DestLng:  destLng,
		DestName: "dest",
		Status:   models.OrderStatusCreated,
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}
