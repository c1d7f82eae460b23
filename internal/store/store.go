package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carpark-availability-backend/internal/model"
)

// Store defines the catalog read/write contract the refresh pipeline and the
// API depend on.
type Store interface {
	// FindAll returns the full catalog snapshot used for feed matching.
	FindAll(ctx context.Context) ([]model.CarPark, error)
	// FindNearby returns up to limit carparks ordered by distance from the
	// given point.
	FindNearby(ctx context.Context, lat, lng float64, limit int) ([]model.CarPark, error)
	// UpdateAvailability persists one batch of availability updates. All
	// writes in the batch are issued concurrently; the call returns after
	// every write has settled. Callers cap batch sizes to bound the number
	// of connections in flight.
	UpdateAvailability(ctx context.Context, carparks []model.CarPark) error
	// DB exposes the underlying handle for collaborators with their own
	// query needs (subscription handlers, notification pool).
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) FindAll(ctx context.Context) ([]model.CarPark, error) {
	var carparks []model.CarPark
	if err := s.db.WithContext(ctx).Find(&carparks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch carpark catalog: %w", err)
	}
	return carparks, nil
}

// FindNearby orders by squared planar distance on the persisted coordinate
// columns. At city scale the planar approximation keeps the ordering correct
// and works identically on Postgres and SQLite.
func (s *gormStore) FindNearby(ctx context.Context, lat, lng float64, limit int) ([]model.CarPark, error) {
	var carparks []model.CarPark
	err := s.db.WithContext(ctx).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:  "((latitude - ?) * (latitude - ?) + (longitude - ?) * (longitude - ?))",
				Vars: []interface{}{lat, lat, lng, lng},
			},
		}).
		Limit(limit).
		Find(&carparks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nearby carparks: %w", err)
	}
	return carparks, nil
}

func (s *gormStore) UpdateAvailability(ctx context.Context, carparks []model.CarPark) error {
	now := time.Now().UTC()

	errs := make([]error, len(carparks))
	var wg sync.WaitGroup
	for i := range carparks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cp := carparks[i]
			res := s.db.WithContext(ctx).
				Model(&model.CarPark{}).
				Where("id = ?", cp.ID).
				Updates(map[string]interface{}{
					"available_lots": cp.AvailableLots,
					"updated_at":     now,
				})
			if res.Error != nil {
				errs[i] = fmt.Errorf("failed to update carpark %s: %w", cp.CarParkNo, res.Error)
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
