package models

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusAssigned  OrderStatus = "ASSIGNED"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order represents a delivery order placed at a store by a user.
// WeightKg is the package weight used for drone payload checks.
type Order struct {
	ID       int64       `db:"id" json:"id"`
	StoreID  int64       `db:"store_id" json:"store_id"`
	UserID   int64       `db:"user_id" json:"user_id"`
	WeightKg float64     `db:"weight_kg" json:"weight_kg"`
	DestLat  float64     `db:"dest_lat" json:"dest_lat"`
	DestLng  float64     `db:"dest_lng" json:"dest_lng"`
	DestName string      `db:"dest_name" json:"dest_name"`
	Status   OrderStatus `db:"status" json:"status"`
	PlacedAt string      `db:"placed_at" json:"placed_at"`
}

// Startable reports whether a planning run may still pick up this order.
func (o *Order) Startable() bool {
	return o.Status == OrderStatusCreated
}
