package planner

import (
	"math"
	"testing"

	"droneDeliveryRouting/models"
)

// Fixed geometry: drone docked at the store, one near drop one degree
// north, one far drop two degrees north. The walk must visit the nearer
// drop first and pin the return last.
func TestBuildStops_NearestNeighborOrdering(t *testing.T) {
	store := &models.Store{ID: 1, Name: "Depot", Lat: 40.0, Lng: -73.0}
	orders := []*models.Order{
		{ID: 10, StoreID: 1, WeightKg: 2, DestLat: 42.0, DestLng: -73.0, DestName: "far"},
		{ID: 11, StoreID: 1, WeightKg: 1, DestLat: 41.0, DestLng: -73.0, DestName: "near"},
	}

	stops, totalKm := BuildStops(store, orders, store.Lat, store.Lng)
	if len(stops) != 4 {
		t.Fatalf("stops = %d, want 4", len(stops))
	}

	wantTypes := []models.StopType{models.StopTypePickup, models.StopTypeDrop, models.StopTypeDrop, models.StopTypeReturn}
	wantNames := []string{"Depot", "near", "far", "Depot"}
	for i, s := range stops {
		if s.Type != wantTypes[i] {
			t.Errorf("stop %d type = %s, want %s", i, s.Type, wantTypes[i])
		}
		if s.Name != wantNames[i] {
			t.Errorf("stop %d name = %s, want %s", i, s.Name, wantNames[i])
		}
		if s.Seq != i+1 {
			t.Errorf("stop %d seq = %d, want %d", i, s.Seq, i+1)
		}
		if s.Status != models.StopStatusPending {
			t.Errorf("stop %d status = %s, want PENDING", i, s.Status)
		}
	}

	// Store -> near -> far -> store is roughly 1 + 1 + 2 degrees of
	// latitude, about 444 km.
	if totalKm < 430 || totalKm > 460 {
		t.Errorf("total distance = %.1f km, want ~444", totalKm)
	}
}

func TestBuildStops_PayloadDeltas(t *testing.T) {
	store := &models.Store{ID: 1, Name: "Depot", Lat: 40.0, Lng: -73.0}
	orders := []*models.Order{
		{ID: 10, StoreID: 1, WeightKg: 2, DestLat: 41.0, DestLng: -73.0, DestName: "a"},
		{ID: 11, StoreID: 1, WeightKg: 1.5, DestLat: 40.5, DestLng: -73.0, DestName: "b"},
	}
	stops, _ := BuildStops(store, orders, store.Lat, store.Lng)

	if stops[0].PayloadDeltaKg != 3.5 {
		t.Errorf("pickup delta = %g, want 3.5", stops[0].PayloadDeltaKg)
	}

	// Cumulative payload stays within [0, total] applying deltas in order.
	cum := 0.0
	for _, s := range stops {
		cum += s.PayloadDeltaKg
		if cum < -1e-9 || cum > 3.5+1e-9 {
			t.Fatalf("cumulative payload %.3f out of range at seq %d", cum, s.Seq)
		}
	}
	if math.Abs(cum) > 1e-9 {
		t.Errorf("payload after return = %g, want 0", cum)
	}
}

func TestBuildStops_GroupsSharedDestination(t *testing.T) {
	store := &models.Store{ID: 1, Name: "Depot", Lat: 40.0, Lng: -73.0}
	orders := []*models.Order{
		{ID: 10, StoreID: 1, WeightKg: 1, DestLat: 41.0, DestLng: -73.0, DestName: "tower"},
		{ID: 11, StoreID: 1, WeightKg: 2, DestLat: 41.0, DestLng: -73.0, DestName: "tower"},
		{ID: 12, StoreID: 1, WeightKg: 1, DestLat: 40.5, DestLng: -73.0, DestName: "house"},
	}
	stops, _ := BuildStops(store, orders, store.Lat, store.Lng)

	// Two distinct destinations, so pickup + 2 drops + return.
	if len(stops) != 4 {
		t.Fatalf("stops = %d, want 4", len(stops))
	}
	var tower *models.RouteStop
	for _, s := range stops {
		if s.Name == "tower" {
			tower = s
		}
	}
	if tower == nil {
		t.Fatal("no drop for shared destination")
	}
	if len(tower.OrderIDs) != 2 {
		t.Fatalf("shared drop links %d orders, want 2", len(tower.OrderIDs))
	}
	if tower.PayloadDeltaKg != -3 {
		t.Errorf("shared drop delta = %g, want -3", tower.PayloadDeltaKg)
	}
}

func TestBuildStops_StartAwayFromStore(t *testing.T) {
	// A drone not docked at the store must still pick up first.
	store := &models.Store{ID: 1, Name: "Depot", Lat: 40.0, Lng: -73.0}
	orders := []*models.Order{
		{ID: 10, StoreID: 1, WeightKg: 1, DestLat: 40.2, DestLng: -73.0, DestName: "a"},
	}
	stops, totalKm := BuildStops(store, orders, 40.1, -73.0)
	if stops[0].Type != models.StopTypePickup {
		t.Fatalf("first stop = %s, want PICKUP", stops[0].Type)
	}
	// 0.1 degrees back to the store, 0.2 up to the drop, 0.2 back.
	if totalKm < 50 || totalKm > 60 {
		t.Errorf("total distance = %.1f km, want ~55.6", totalKm)
	}
}
