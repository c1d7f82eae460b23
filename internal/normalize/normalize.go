// Package normalize converts each agency's native availability records into
// the shared StandardizedCarPark shape. Everything here is pure: no I/O, no
// clocks other than the caller-supplied one.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"carpark-availability-backend/internal/agency"
	"carpark-availability-backend/internal/feed"
)

// hdbTimestampLayout matches data.gov.sg's update_datetime strings,
// e.g. "2024-03-01T14:35:00".
const hdbTimestampLayout = "2006-01-02T15:04:05"

// HDB flattens the HDB feed: one record per carpark per lot-type entry.
// The snapshot timestamp applies when a record's own update_datetime is
// missing or unparsable.
func HDB(records []agency.HDBCarParkData, snapshot time.Time) []feed.StandardizedCarPark {
	var out []feed.StandardizedCarPark
	for _, cp := range records {
		updated := snapshot
		if ts, err := time.ParseInLocation(hdbTimestampLayout, cp.UpdateDatetime, snapshot.Location()); err == nil {
			updated = ts
		}
		for _, info := range cp.CarParkInfo {
			out = append(out, feed.StandardizedCarPark{
				ExternalID:    cp.CarParkNumber,
				Agency:        feed.AgencyHDB,
				LotType:       info.LotType,
				Category:      CategoryFor(feed.AgencyHDB, info.LotType),
				TotalLots:     intOrNil(info.TotalLots),
				AvailableLots: intOrZero(info.LotsAvailable),
				LastUpdated:   updated,
			})
		}
	}
	return out
}

// LTA maps DataMall records one-to-one. LTA reports no total lot count.
// Location strings are "lat lng"; unparsable ones leave coordinates absent.
func LTA(records []agency.LTACarParkData, snapshot time.Time) []feed.StandardizedCarPark {
	var out []feed.StandardizedCarPark
	for _, cp := range records {
		available := cp.AvailableLots
		if available < 0 {
			available = 0
		}
		out = append(out, feed.StandardizedCarPark{
			ExternalID:    cp.CarParkID,
			Agency:        feed.AgencyLTA,
			LotType:       cp.LotType,
			Category:      CategoryFor(feed.AgencyLTA, cp.LotType),
			AvailableLots: available,
			Location:      cp.Location,
			Coordinates:   parseLatLng(cp.Location),
			Area:          cp.Area,
			Development:   cp.Development,
			LastUpdated:   snapshot,
		})
	}
	return out
}

// URA maps URA records one-to-one. Coordinates come from the first geometry
// as a "lng,lat" string; parse failure means coordinates absent, not an error.
func URA(records []agency.URACarParkData, snapshot time.Time) []feed.StandardizedCarPark {
	var out []feed.StandardizedCarPark
	for _, cp := range records {
		var coords *feed.Coordinates
		if len(cp.Geometries) > 0 {
			coords = parseLngLat(cp.Geometries[0].Coordinates)
		}
		out = append(out, feed.StandardizedCarPark{
			ExternalID:    cp.CarParkNo,
			Agency:        feed.AgencyURA,
			LotType:       cp.LotType,
			Category:      CategoryFor(feed.AgencyURA, cp.LotType),
			AvailableLots: intOrZero(cp.LotsAvailable),
			Coordinates:   coords,
			LastUpdated:   snapshot,
		})
	}
	return out
}

// intOrZero parses a numeric feed string, falling back to zero on anything
// unparsable or negative so availability counts never go below zero.
func intOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// intOrNil parses an optional numeric feed string; unparsable means unknown.
func intOrNil(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

// parseLatLng parses an LTA "lat lng" location string.
func parseLatLng(s string) *feed.Coordinates {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return nil
	}
	lat, errLat := strconv.ParseFloat(parts[0], 64)
	lng, errLng := strconv.ParseFloat(parts[1], 64)
	if errLat != nil || errLng != nil {
		return nil
	}
	return &feed.Coordinates{Lat: lat, Lng: lng}
}

// parseLngLat parses a URA "lng,lat" coordinate string. Note the reversed
// axis order relative to LTA.
func parseLngLat(s string) *feed.Coordinates {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil
	}
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLng != nil || errLat != nil {
		return nil
	}
	return &feed.Coordinates{Lat: lat, Lng: lng}
}
