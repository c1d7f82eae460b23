// Package aggregate fans out to every agency feed concurrently and merges
// whatever came back. A failed agency degrades the result instead of failing
// it: stale or partial data beats no data for a map of carparks.
package aggregate

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"carpark-availability-backend/internal/feed"
)

// Source is one agency's fetch-and-normalize pipeline.
type Source interface {
	Agency() feed.Agency
	Availability(ctx context.Context) ([]feed.StandardizedCarPark, error)
}

// Result is the outcome of one aggregation pass. Records holds the merged
// successful feeds; Failures names each agency that contributed nothing and
// why, so callers can tell a partial pass from a healthy one.
type Result struct {
	Records  []feed.StandardizedCarPark
	Failures []feed.Failure
}

// Service merges the agency feeds.
type Service struct {
	sources []Source
	logger  *logrus.Logger
}

// New creates an aggregation service over the given sources.
func New(logger *logrus.Logger, sources ...Source) *Service {
	return &Service{sources: sources, logger: logger}
}

// Availability fetches all sources concurrently and concatenates the
// successes. Each source runs under the caller's context, so a slow agency
// is bounded by its own client timeout and never blocks the others.
// Ordering across agencies is not guaranteed; within one agency it is feed
// order.
func (s *Service) Availability(ctx context.Context) Result {
	type outcome struct {
		records []feed.StandardizedCarPark
		err     error
	}

	outcomes := make([]outcome, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			records, err := src.Availability(ctx)
			outcomes[i] = outcome{records: records, err: err}
		}(i, src)
	}
	wg.Wait()

	var result Result
	for i, src := range s.sources {
		if err := outcomes[i].err; err != nil {
			s.logger.WithError(err).WithField("agency", src.Agency()).
				Warn("agency feed unavailable, continuing without it")
			result.Failures = append(result.Failures, feed.Failure{Agency: src.Agency(), Err: err})
			continue
		}
		result.Records = append(result.Records, outcomes[i].records...)
	}
	return result
}
