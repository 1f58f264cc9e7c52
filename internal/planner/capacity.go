package planner

import (
	"fmt"

	"droneDeliveryRouting/models"
)

// RejectReason classifies why a candidate order set cannot fly on a
// candidate drone. The batch planner uses it to defer orders instead of
// failing a whole run.
type RejectReason string

const (
	ReasonWeightExceeded      RejectReason = "WEIGHT_EXCEEDED"
	ReasonBatteryInsufficient RejectReason = "BATTERY_INSUFFICIENT"
	ReasonStoreMismatch       RejectReason = "STORE_MISMATCH"
)

// CapacityError signals infeasibility of an order/drone combination.
// It is a planning outcome, not a system fault.
type CapacityError struct {
	Reason RejectReason
	Detail string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity: %s: %s", e.Reason, e.Detail)
}

// CapacityConfig tunes the battery feasibility model.
type CapacityConfig struct {
	// BatteryPctPerKm is the charge consumed per kilometer flown.
	BatteryPctPerKm float64
	// SafetyMargin inflates the estimated consumption (0.2 = 20% reserve).
	SafetyMargin float64
}

// TotalWeightKg sums the package weights of a candidate order set.
func TotalWeightKg(orders []*models.Order) float64 {
	var total float64
	for _, o := range orders {
		total += o.WeightKg
	}
	return total
}

// CheckCapacity decides whether a drone can fly the candidate orders over
// the planned round-trip distance. Pure: no repository access, no
// mutation. Returns nil when feasible, otherwise a *CapacityError naming
// the first violated constraint.
func CheckCapacity(drone *models.Drone, storeID int64, orders []*models.Order, roundTripKm float64, cfg CapacityConfig) error {
	for _, o := range orders {
		if o.StoreID != storeID {
			return &CapacityError{
				Reason: ReasonStoreMismatch,
				Detail: fmt.Sprintf("order %d belongs to store %d, trip originates at store %d", o.ID, o.StoreID, storeID),
			}
		}
	}

	total := TotalWeightKg(orders)
	if total > drone.MaxPayloadKg {
		return &CapacityError{
			Reason: ReasonWeightExceeded,
			Detail: fmt.Sprintf("requested %.3f kg exceeds drone %d max payload %.3f kg", total, drone.ID, drone.MaxPayloadKg),
		}
	}

	needed := roundTripKm * cfg.BatteryPctPerKm * (1 + cfg.SafetyMargin)
	if needed > drone.BatteryPct {
		return &CapacityError{
			Reason: ReasonBatteryInsufficient,
			Detail: fmt.Sprintf("trip needs %.2f%% battery (%.2f km), drone %d has %.2f%%", needed, roundTripKm, drone.ID, drone.BatteryPct),
		}
	}
	return nil
}
