package notify

import (
	"strconv"
	"time"
)

// Publisher is a publish-only notification channel. Delivery is
// best-effort and at-most-once; publishing to a topic nobody subscribes
// to is not an error.
type Publisher interface {
	Publish(topic string, payload any)
}

// OrderTopic addresses completion events for one order.
func OrderTopic(orderID int64) string {
	return "order/" + strconv.FormatInt(orderID, 10)
}

// RouteTopic addresses position events for one route.
func RouteTopic(routeID int64) string {
	return "route/" + strconv.FormatInt(routeID, 10)
}

// PositionEvent is a live telemetry sample published on route/{routeId}.
type PositionEvent struct {
	RouteID    int64     `json:"routeId"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	SpeedMPS   float64   `json:"speedMps"`
	BatteryPct float64   `json:"batteryPct"`
	TS         time.Time `json:"ts"`
}

// CompletionEvent is a fulfillment notice published on order/{orderId}.
type CompletionEvent struct {
	OrderID     int64     `json:"orderId"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	CompletedAt time.Time `json:"completedAt"`
}
