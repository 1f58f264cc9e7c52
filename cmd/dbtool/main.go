package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"droneDeliveryRouting/internal/config"
	"droneDeliveryRouting/internal/db"
	"droneDeliveryRouting/models"
	"droneDeliveryRouting/repository"
)

// dbtool applies or rolls back migrations and seeds demo data.
//
//	dbtool migrate    apply all pending migrations (default)
//	dbtool rollback   revert the most recent migration
//	dbtool seed       insert a demo store, user, drones and orders
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cmd := "migrate"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "migrate":
		// Open applies pending migrations on startup.
		d, err := db.Open(cfg.Database.Path)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		defer d.Close()
		log.Println("Migrations applied.")
	case "rollback":
		d, err := db.Open(cfg.Database.Path)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer d.Close()
		if err := db.RollbackLast(d); err != nil {
			log.Fatalf("rollback: %v", err)
		}
		log.Println("Last migration rolled back.")
	case "seed":
		d, err := db.Open(cfg.Database.Path)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer d.Close()
		if err := seed(d); err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Println("Seeding complete.")
	default:
		log.Fatalf("unknown command %q (want migrate, rollback or seed)", cmd)
	}
}

// seed inserts one downtown store with two drones and three pending
// orders, enough to exercise a full batch-delivery run.
func seed(d *sql.DB) error {
	ctx := context.Background()

	store, err := repository.NewStoreRepository(d).Create(ctx, &models.Store{
		Name: "Downtown Depot",
		Lat:  40.7580,
		Lng:  -73.9855,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	user, err := repository.NewUserRepository(d).Create(ctx, "Demo Customer")
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	drones := repository.NewDroneRepository(d)
	for i, dr := range []struct {
		serial  string
		payload float64
	}{
		{"DEMO-001", 5.0},
		{"DEMO-002", 8.0},
	} {
		_, err := drones.Create(ctx, &models.Drone{
			Model:        "T-100",
			SerialNumber: dr.serial,
			StoreID:      store.ID,
			Lat:          store.Lat,
			Lng:          store.Lng,
			MaxPayloadKg: dr.payload,
			BatteryPct:   100,
			SpeedMPS:     15,
			Status:       models.DroneStatusAvailable,
		})
		if err != nil {
			return fmt.Errorf("create drone %d: %w", i, err)
		}
	}

	orders := repository.NewOrderRepository(d)
	for i, dest := range []struct {
		lat, lng, kg float64
		name         string
	}{
		{40.7484, -73.9857, 1.2, "Empire State Building"},
		{40.7527, -73.9772, 0.8, "Grand Central Terminal"},
		{40.7614, -73.9776, 2.0, "MoMA"},
	} {
		_, err := orders.Create(ctx, &models.Order{
			StoreID:  store.ID,
			UserID:   user.ID,
			WeightKg: dest.kg,
			DestLat:  dest.lat,
			DestLng:  dest.lng,
			DestName: dest.name,
			Status:   models.OrderStatusCreated,
		})
		if err != nil {
			return fmt.Errorf("create order %d: %w", i, err)
		}
	}
	return nil
}
