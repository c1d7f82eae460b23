// Package reconcile runs the availability refresh cycle: fetch the HDB feed,
// match it against the persisted catalog by external id, and apply the lot
// count deltas in bounded concurrent batches.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carpark-availability-backend/config"
	"carpark-availability-backend/internal/aggregate"
	"carpark-availability-backend/internal/feed"
	"carpark-availability-backend/internal/model"
	"carpark-availability-backend/internal/store"
)

// Notifier receives the ids of carparks that regained free lots during a
// cycle. The notification worker pool implements it.
type Notifier interface {
	Dispatch(carParkID uuid.UUID)
}

// Summary describes one completed (or partially completed) refresh cycle.
type Summary struct {
	FeedRecords int `json:"feedRecords"`
	Matched     int `json:"matched"`
	Skipped     int `json:"skipped"`
	Duplicates  int `json:"duplicates"`
	Updated     int `json:"updated"`
	Batches     int `json:"batches"`
}

// Service owns the refresh cycle. Catalog writes are scoped to the HDB feed:
// the catalog is seeded from HDB's static dataset, so only HDB external ids
// can match.
type Service struct {
	cfg      *config.Config
	store    store.Store
	source   aggregate.Source
	notifier Notifier
	logger   *logrus.Logger
}

// NewService creates the reconciliation service. notifier may be nil when
// push notifications are not configured.
func NewService(cfg *config.Config, st store.Store, source aggregate.Source, notifier Notifier, logger *logrus.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    st,
		source:   source,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes refresh cycles on the configured interval until ctx is
// cancelled. Each cycle gets its own timeout so a stuck upstream cannot
// stall the loop.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Refresh.Enabled {
		s.logger.Info("availability refresh is disabled, not starting")
		return
	}
	s.logger.WithField("interval", s.cfg.Refresh.Interval).Info("starting availability refresh loop")

	s.refreshWithTimeout(ctx)

	timer := time.NewTimer(s.cfg.Refresh.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("availability refresh loop shutting down")
			return
		case <-timer.C:
			s.refreshWithTimeout(ctx)
			timer.Reset(s.cfg.Refresh.Interval)
		}
	}
}

func (s *Service) refreshWithTimeout(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.Refresh.CycleTimeout)
	defer cancel()

	summary, err := s.RefreshOnce(cycleCtx)
	if err != nil {
		s.logger.WithError(err).Error("refresh cycle failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"feed_records": summary.FeedRecords,
		"matched":      summary.Matched,
		"skipped":      summary.Skipped,
		"updated":      summary.Updated,
		"batches":      summary.Batches,
	}).Info("refresh cycle finished")
}

// stagedUpdate is one matched feed record ready for the apply phase.
type stagedUpdate struct {
	carpark model.CarPark
	notify  bool // availability went zero -> positive
}

// RefreshOnce executes a single fetch -> match -> apply cycle. An upstream
// or validation failure aborts the cycle with the catalog untouched. A batch
// write failure aborts the remaining batches; batches already committed
// stand, which is safe because a later cycle re-applies the same updates.
func (s *Service) RefreshOnce(ctx context.Context) (Summary, error) {
	var summary Summary

	records, err := s.source.Availability(ctx)
	if err != nil {
		return summary, err
	}

	catalog, err := s.store.FindAll(ctx)
	if err != nil {
		return summary, err
	}

	staged := s.match(records, catalog, &summary)

	if err := s.apply(ctx, staged, &summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// match pairs feed records with catalog rows by external id. A feed record
// with no catalog row is counted and dropped, never an error. More than one
// catalog row claiming the same external id would violate the data-source
// convention; it is logged and the first row wins.
func (s *Service) match(records []feed.StandardizedCarPark, catalog []model.CarPark, summary *Summary) []stagedUpdate {
	byExternalID := make(map[string][]model.CarPark, len(catalog))
	for _, cp := range catalog {
		byExternalID[cp.CarParkNo] = append(byExternalID[cp.CarParkNo], cp)
	}

	summary.FeedRecords = len(records)

	var staged []stagedUpdate
	for _, rec := range pickPerCarPark(records) {
		rows, ok := byExternalID[rec.ExternalID]
		if !ok {
			summary.Skipped++
			continue
		}
		if len(rows) > 1 {
			summary.Duplicates++
			s.logger.WithFields(logrus.Fields{
				"car_park_no": rec.ExternalID,
				"rows":        len(rows),
			}).Warn("multiple catalog rows share one external id, using the first")
		}

		row := rows[0]
		notify := row.AvailableLots == 0 && rec.AvailableLots > 0
		row.AvailableLots = rec.AvailableLots

		staged = append(staged, stagedUpdate{carpark: row, notify: notify})
		summary.Matched++
	}
	return staged
}

// pickPerCarPark collapses the flattened feed (one record per lot type) to
// one record per carpark, preferring the car-lot entry since the catalog
// tracks car lots.
func pickPerCarPark(records []feed.StandardizedCarPark) []feed.StandardizedCarPark {
	chosen := make(map[string]int, len(records))
	var order []string
	for i, rec := range records {
		prev, seen := chosen[rec.ExternalID]
		if !seen {
			chosen[rec.ExternalID] = i
			order = append(order, rec.ExternalID)
			continue
		}
		if records[prev].Category != feed.CategoryCar && rec.Category == feed.CategoryCar {
			chosen[rec.ExternalID] = i
		}
	}

	out := make([]feed.StandardizedCarPark, 0, len(order))
	for _, id := range order {
		out = append(out, records[chosen[id]])
	}
	return out
}

// apply persists the staged updates in sequential batches. Writes within one
// batch run concurrently in the store; the batch size caps connections in
// flight. Cancellation stops before the next batch, it never rolls back
// committed ones.
func (s *Service) apply(ctx context.Context, staged []stagedUpdate, summary *Summary) error {
	batchSize := s.cfg.Refresh.BatchSize

	for start := 0; start < len(staged); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + batchSize
		if end > len(staged) {
			end = len(staged)
		}
		batch := staged[start:end]

		carparks := make([]model.CarPark, len(batch))
		for i, u := range batch {
			carparks[i] = u.carpark
		}

		if err := s.store.UpdateAvailability(ctx, carparks); err != nil {
			return &feed.PersistenceError{Batch: summary.Batches + 1, Err: err}
		}
		summary.Batches++
		summary.Updated += len(batch)

		if s.notifier != nil {
			for _, u := range batch {
				if u.notify {
					s.notifier.Dispatch(u.carpark.ID)
				}
			}
		}
	}
	return nil
}
