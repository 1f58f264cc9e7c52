package models

// Store represents a store that originates delivery orders.
// Its coordinates are the pickup and return point for every route it owns.
type Store struct {
	ID   int64   `db:"id" json:"id"`
	Name string  `db:"name" json:"name"`
	Lat  float64 `db:"lat" json:"lat"`
	Lng  float64 `db:"lng" json:"lng"`
}
