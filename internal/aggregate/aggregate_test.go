package aggregate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpark-availability-backend/internal/feed"
)

type fakeSource struct {
	agency  feed.Agency
	records []feed.StandardizedCarPark
	err     error
	delay   time.Duration

	mu     sync.Mutex
	called bool
}

func (f *fakeSource) Agency() feed.Agency { return f.agency }

func (f *fakeSource) Availability(ctx context.Context) ([]feed.StandardizedCarPark, error) {
	f.mu.Lock()
	f.called = true
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, &feed.FetchError{Agency: f.agency, Err: ctx.Err()}
		}
	}
	return f.records, f.err
}

func record(a feed.Agency, id string, lots int) feed.StandardizedCarPark {
	return feed.StandardizedCarPark{ExternalID: id, Agency: a, LotType: "C", AvailableLots: lots}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestAvailability_MergesAllSources(t *testing.T) {
	hdb := &fakeSource{agency: feed.AgencyHDB, records: []feed.StandardizedCarPark{record(feed.AgencyHDB, "ACB", 42), record(feed.AgencyHDB, "BM29", 7)}}
	lta := &fakeSource{agency: feed.AgencyLTA, records: []feed.StandardizedCarPark{record(feed.AgencyLTA, "1", 352)}}
	ura := &fakeSource{agency: feed.AgencyURA, records: []feed.StandardizedCarPark{record(feed.AgencyURA, "N0006", 23)}}

	result := New(testLogger(), hdb, lta, ura).Availability(context.Background())

	assert.Len(t, result.Records, 4)
	assert.Empty(t, result.Failures)
	for _, src := range []*fakeSource{hdb, lta, ura} {
		assert.True(t, src.called, "%s source should have been called", src.agency)
	}
}

func TestAvailability_ToleratesOneAgencyDown(t *testing.T) {
	hdb := &fakeSource{agency: feed.AgencyHDB, records: []feed.StandardizedCarPark{record(feed.AgencyHDB, "ACB", 42)}}
	lta := &fakeSource{agency: feed.AgencyLTA, err: &feed.FetchError{Agency: feed.AgencyLTA, Err: assert.AnError}}
	ura := &fakeSource{agency: feed.AgencyURA, records: []feed.StandardizedCarPark{record(feed.AgencyURA, "N0006", 23)}}

	result := New(testLogger(), hdb, lta, ura).Availability(context.Background())

	assert.Len(t, result.Records, 2, "the two healthy agencies still contribute")
	require.Len(t, result.Failures, 1)
	assert.Equal(t, feed.AgencyLTA, result.Failures[0].Agency)
	assert.NotEmpty(t, result.Failures[0].Message())
}

func TestAvailability_AllAgenciesDownIsEmptyNotFatal(t *testing.T) {
	hdb := &fakeSource{agency: feed.AgencyHDB, err: &feed.FetchError{Agency: feed.AgencyHDB, Err: assert.AnError}}
	lta := &fakeSource{agency: feed.AgencyLTA, err: &feed.ValidationError{Agency: feed.AgencyLTA, Reason: "bad shape"}}
	ura := &fakeSource{agency: feed.AgencyURA, err: &feed.FetchError{Agency: feed.AgencyURA, Err: assert.AnError}}

	result := New(testLogger(), hdb, lta, ura).Availability(context.Background())

	assert.Empty(t, result.Records)
	assert.Len(t, result.Failures, 3)
}

func TestAvailability_SlowAgencyDoesNotBlockOthersPastItsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	hdb := &fakeSource{agency: feed.AgencyHDB, records: []feed.StandardizedCarPark{record(feed.AgencyHDB, "ACB", 42)}}
	slow := &fakeSource{agency: feed.AgencyURA, delay: time.Second}

	start := time.Now()
	result := New(testLogger(), hdb, slow).Availability(ctx)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Len(t, result.Records, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, feed.AgencyURA, result.Failures[0].Agency)
}
