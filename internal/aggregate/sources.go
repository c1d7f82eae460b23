package aggregate

import (
	"context"
	"time"

	"carpark-availability-backend/internal/agency"
	"carpark-availability-backend/internal/feed"
	"carpark-availability-backend/internal/normalize"
)

// The concrete sources pair one agency client with its normalizer.

// HDBSource adapts the HDB client to the Source interface.
type HDBSource struct {
	Client *agency.HDBClient
}

// Agency implements Source.
func (s *HDBSource) Agency() feed.Agency { return feed.AgencyHDB }

// Availability fetches and normalizes the HDB feed. The feed's own snapshot
// timestamp is used when it parses; otherwise the wall clock.
func (s *HDBSource) Availability(ctx context.Context) ([]feed.StandardizedCarPark, error) {
	records, timestamp, err := s.Client.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := time.Now()
	if ts, perr := time.Parse(time.RFC3339, timestamp); perr == nil {
		snapshot = ts
	}
	return normalize.HDB(records, snapshot), nil
}

// LTASource adapts the LTA client to the Source interface.
type LTASource struct {
	Client *agency.LTAClient
}

// Agency implements Source.
func (s *LTASource) Agency() feed.Agency { return feed.AgencyLTA }

// Availability fetches and normalizes the LTA feed.
func (s *LTASource) Availability(ctx context.Context) ([]feed.StandardizedCarPark, error) {
	records, err := s.Client.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.LTA(records, time.Now()), nil
}

// URASource adapts the URA client to the Source interface.
type URASource struct {
	Client *agency.URAClient
}

// Agency implements Source.
func (s *URASource) Agency() feed.Agency { return feed.AgencyURA }

// Availability fetches and normalizes the URA feed.
func (s *URASource) Availability(ctx context.Context) ([]feed.StandardizedCarPark, error) {
	records, err := s.Client.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.URA(records, time.Now()), nil
}
