package planner

import (
	"fmt"
	"sort"
	"time"

	"droneDeliveryRouting/internal/geo"
	"droneDeliveryRouting/models"
)

// HeuristicNearestNeighbor names the stop-sequencing method recorded on
// every route this planner produces.
const HeuristicNearestNeighbor = "NEAREST_NEIGHBOR"

// dropCandidate is one distinct destination with the orders it serves.
type dropCandidate struct {
	lat, lng float64
	name     string
	orders   []*models.Order
}

// BuildStops sequences a trip's stops with a greedy nearest-neighbor
// walk. One PICKUP stop at the store carries the combined payload,
// followed by DROP stops (orders sharing a destination collapse into
// one), and a RETURN stop pinned last. DROP stops cannot precede the
// PICKUP, so the walk always leaves the store first. Returns the ordered
// stops and the total distance flown, starting from (startLat, startLng).
//
// The greedy step minimizes straight-line distance only; it makes no
// attempt at global optimality. Ties break on destination name, then
// coordinates, for deterministic output.
func BuildStops(store *models.Store, orders []*models.Order, startLat, startLng float64) ([]*models.RouteStop, float64) {
	drops := groupByDestination(orders)

	stops := make([]*models.RouteStop, 0, len(drops)+2)
	totalKm := 0.0
	curLat, curLng := startLat, startLng
	seq := 1

	// The pickup precedes every drop, so it is the first selection
	// regardless of distance.
	totalKm += geo.HaversineKm(curLat, curLng, store.Lat, store.Lng)
	stops = append(stops, &models.RouteStop{
		Seq:            seq,
		Type:           models.StopTypePickup,
		Name:           store.Name,
		Lat:            store.Lat,
		Lng:            store.Lng,
		Status:         models.StopStatusPending,
		PayloadDeltaKg: TotalWeightKg(orders),
	})
	curLat, curLng = store.Lat, store.Lng
	seq++

	remaining := make([]*dropCandidate, len(drops))
	copy(remaining, drops)
	for len(remaining) > 0 {
		best := 0
		bestKm := geo.HaversineKm(curLat, curLng, remaining[0].lat, remaining[0].lng)
		for i := 1; i < len(remaining); i++ {
			km := geo.HaversineKm(curLat, curLng, remaining[i].lat, remaining[i].lng)
			if km < bestKm {
				best, bestKm = i, km
			}
		}
		d := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)

		var delta float64
		orderIDs := make([]int64, 0, len(d.orders))
		for _, o := range d.orders {
			delta -= o.WeightKg
			orderIDs = append(orderIDs, o.ID)
		}
		totalKm += bestKm
		stops = append(stops, &models.RouteStop{
			Seq:            seq,
			Type:           models.StopTypeDrop,
			Name:           d.name,
			Lat:            d.lat,
			Lng:            d.lng,
			Status:         models.StopStatusPending,
			PayloadDeltaKg: delta,
			OrderIDs:       orderIDs,
		})
		curLat, curLng = d.lat, d.lng
		seq++
	}

	totalKm += geo.HaversineKm(curLat, curLng, store.Lat, store.Lng)
	stops = append(stops, &models.RouteStop{
		Seq:    seq,
		Type:   models.StopTypeReturn,
		Name:   store.Name,
		Lat:    store.Lat,
		Lng:    store.Lng,
		Status: models.StopStatusPending,
	})

	return stops, totalKm
}

// groupByDestination collapses orders sharing a destination into one drop
// candidate. Output order is deterministic.
func groupByDestination(orders []*models.Order) []*dropCandidate {
	byKey := map[string]*dropCandidate{}
	var keys []string
	for _, o := range orders {
		key := fmt.Sprintf("%.6f|%.6f", o.DestLat, o.DestLng)
		d, ok := byKey[key]
		if !ok {
			d = &dropCandidate{lat: o.DestLat, lng: o.DestLng, name: o.DestName}
			byKey[key] = d
			keys = append(keys, key)
		}
		d.orders = append(d.orders, o)
	}
	sort.Strings(keys)
	out := make([]*dropCandidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

// scheduleStops fills in planned arrival/departure times for a freshly
// built stop sequence, assuming constant speed from the drone's start
// position and a fixed dwell at each drop.
func scheduleStops(stops []*models.RouteStop, startLat, startLng float64, speedMPS float64, dwell time.Duration, departAt time.Time) {
	if speedMPS <= 0 {
		return
	}
	cur := departAt
	curLat, curLng := startLat, startLng
	for _, s := range stops {
		legKm := geo.HaversineKm(curLat, curLng, s.Lat, s.Lng)
		cur = cur.Add(time.Duration(geo.KmToMeters(legKm) / speedMPS * float64(time.Second)))
		arr := cur
		s.PlannedArrivalAt = &arr
		if s.Type == models.StopTypeDrop {
			cur = cur.Add(dwell)
		}
		dep := cur
		s.PlannedDepartureAt = &dep
		curLat, curLng = s.Lat, s.Lng
	}
}
