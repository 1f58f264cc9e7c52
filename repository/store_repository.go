package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"droneDeliveryRouting/models"
)

type StoreRepository struct {
	db DBTX
}

func NewStoreRepository(db DBTX) *StoreRepository {
	return &StoreRepository{db: db}
}

// Create inserts a new store.
func (r *StoreRepository) Create(ctx context.Context, s *models.Store) (*models.Store, error) {
	if s == nil {
		return nil, errors.New("store is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO stores (name, lat, lng) VALUES (?,?,?)`, s.Name, s.Lat, s.Lng)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.ID = id
	return s, nil
}

func (r *StoreRepository) GetByID(ctx context.Context, id int64) (*models.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var s models.Store
	err := r.db.QueryRowContext(ctx, `SELECT id, name, lat, lng FROM stores WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.Lat, &s.Lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepository) List(ctx context.Context) ([]*models.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, lat, lng FROM stores ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Store
	for rows.Next() {
		var s models.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lng); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
