package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"carpark-availability-backend/config"
	"carpark-availability-backend/internal/feed"
	"carpark-availability-backend/internal/model"
)

// fakeSource stands in for the HDB fetch-and-normalize pipeline.
type fakeSource struct {
	records []feed.StandardizedCarPark
	err     error
}

func (f *fakeSource) Agency() feed.Agency { return feed.AgencyHDB }

func (f *fakeSource) Availability(ctx context.Context) ([]feed.StandardizedCarPark, error) {
	return f.records, f.err
}

// fakeStore records the batches it is asked to write and can fail on a
// chosen batch number.
type fakeStore struct {
	mu          sync.Mutex
	catalog     []model.CarPark
	findAllErr  error
	batches     [][]model.CarPark
	failOnBatch int // 1-based; 0 means never fail
}

func (f *fakeStore) FindAll(ctx context.Context) ([]model.CarPark, error) {
	return f.catalog, f.findAllErr
}

func (f *fakeStore) FindNearby(ctx context.Context, lat, lng float64, limit int) ([]model.CarPark, error) {
	return nil, nil
}

func (f *fakeStore) UpdateAvailability(ctx context.Context, carparks []model.CarPark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnBatch > 0 && len(f.batches)+1 == f.failOnBatch {
		return errors.New("connection reset")
	}
	f.batches = append(f.batches, carparks)
	return nil
}

func (f *fakeStore) DB() *gorm.DB { return nil }

type fakeNotifier struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (f *fakeNotifier) Dispatch(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testConfig(batchSize int) *config.Config {
	return &config.Config{
		Refresh: config.RefreshConfig{BatchSize: batchSize},
	}
}

func carPark(no string, lots int) model.CarPark {
	return model.CarPark{ID: uuid.New(), CarParkNo: no, AvailableLots: lots}
}

func feedRecord(id string, lots int) feed.StandardizedCarPark {
	return feed.StandardizedCarPark{
		ExternalID:    id,
		Agency:        feed.AgencyHDB,
		LotType:       "C",
		Category:      feed.CategoryCar,
		AvailableLots: lots,
	}
}

func TestRefreshOnce_UpdatesExactlyTheOverlap(t *testing.T) {
	st := &fakeStore{catalog: []model.CarPark{
		carPark("ACB", 10),
		carPark("BM29", 5),
		carPark("SE12", 99),
	}}
	src := &fakeSource{records: []feed.StandardizedCarPark{
		feedRecord("ACB", 42),
		feedRecord("BM29", 0),
		feedRecord("GHOST", 7), // no catalog row
	}}

	svc := NewService(testConfig(20), st, src, nil, testLogger())
	summary, err := svc.RefreshOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, summary.FeedRecords)
	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Updated)
	assert.Equal(t, 1, summary.Batches)

	require.Len(t, st.batches, 1)
	written := st.batches[0]
	require.Len(t, written, 2)
	assert.Equal(t, "ACB", written[0].CarParkNo)
	assert.Equal(t, 42, written[0].AvailableLots)
	assert.Equal(t, "BM29", written[1].CarParkNo)
	assert.Equal(t, 0, written[1].AvailableLots)
}

func TestRefreshOnce_UnmatchedRecordsAreSkippedNotErrors(t *testing.T) {
	st := &fakeStore{catalog: []model.CarPark{carPark("ACB", 10)}}
	src := &fakeSource{records: []feed.StandardizedCarPark{
		feedRecord("NOPE", 1),
		feedRecord("ALSO-NOPE", 2),
	}}

	svc := NewService(testConfig(20), st, src, nil, testLogger())
	summary, err := svc.RefreshOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Matched)
	assert.Empty(t, st.batches)
}

func TestRefreshOnce_BatchingAndMidBatchFailure(t *testing.T) {
	var catalog []model.CarPark
	var records []feed.StandardizedCarPark
	for i := 0; i < 45; i++ {
		no := fmt.Sprintf("CP%02d", i)
		catalog = append(catalog, carPark(no, 1))
		records = append(records, feedRecord(no, 2))
	}

	t.Run("45 entities with batch size 20 makes batches of 20/20/5", func(t *testing.T) {
		st := &fakeStore{catalog: catalog}
		svc := NewService(testConfig(20), st, &fakeSource{records: records}, nil, testLogger())

		summary, err := svc.RefreshOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Batches)
		assert.Equal(t, 45, summary.Updated)
		require.Len(t, st.batches, 3)
		assert.Len(t, st.batches[0], 20)
		assert.Len(t, st.batches[1], 20)
		assert.Len(t, st.batches[2], 5)
	})

	t.Run("batch 2 failing leaves batch 1 committed and never runs batch 3", func(t *testing.T) {
		st := &fakeStore{catalog: catalog, failOnBatch: 2}
		svc := NewService(testConfig(20), st, &fakeSource{records: records}, nil, testLogger())

		summary, err := svc.RefreshOnce(context.Background())
		var persistErr *feed.PersistenceError
		require.ErrorAs(t, err, &persistErr)
		assert.Equal(t, 2, persistErr.Batch)

		assert.Equal(t, 1, summary.Batches)
		assert.Equal(t, 20, summary.Updated)
		require.Len(t, st.batches, 1, "only the first batch committed")
	})
}

func TestRefreshOnce_FetchFailureAbortsWithCatalogUntouched(t *testing.T) {
	st := &fakeStore{catalog: []model.CarPark{carPark("ACB", 10)}}
	src := &fakeSource{err: &feed.FetchError{Agency: feed.AgencyHDB, Err: assert.AnError}}

	svc := NewService(testConfig(20), st, src, nil, testLogger())
	_, err := svc.RefreshOnce(context.Background())

	var fetchErr *feed.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Empty(t, st.batches)
}

func TestRefreshOnce_DuplicateCatalogRowsWarnAndUseFirst(t *testing.T) {
	first := carPark("ACB", 10)
	second := carPark("ACB", 99)
	st := &fakeStore{catalog: []model.CarPark{first, second}}
	src := &fakeSource{records: []feed.StandardizedCarPark{feedRecord("ACB", 42)}}

	svc := NewService(testConfig(20), st, src, nil, testLogger())
	summary, err := svc.RefreshOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Duplicates)
	require.Len(t, st.batches, 1)
	require.Len(t, st.batches[0], 1)
	assert.Equal(t, first.ID, st.batches[0][0].ID, "the first catalog row wins")
}

func TestRefreshOnce_ReapplyingSameValueIsIdempotent(t *testing.T) {
	cp := carPark("ACB", 42)
	st := &fakeStore{catalog: []model.CarPark{cp}}
	src := &fakeSource{records: []feed.StandardizedCarPark{feedRecord("ACB", 42)}}
	notifier := &fakeNotifier{}

	svc := NewService(testConfig(20), st, src, notifier, testLogger())
	summary, err := svc.RefreshOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	require.Len(t, st.batches, 1)
	assert.Equal(t, 42, st.batches[0][0].AvailableLots, "available lots unchanged")
	assert.Empty(t, notifier.ids, "an unchanged carpark never notifies")
}

func TestRefreshOnce_NotifiesWhenCarParkRegainsLots(t *testing.T) {
	full := carPark("FULL", 0)
	busy := carPark("BUSY", 3)
	st := &fakeStore{catalog: []model.CarPark{full, busy}}
	src := &fakeSource{records: []feed.StandardizedCarPark{
		feedRecord("FULL", 12), // zero -> positive: notify
		feedRecord("BUSY", 1),  // positive -> positive: stay quiet
	}}
	notifier := &fakeNotifier{}

	svc := NewService(testConfig(20), st, src, notifier, testLogger())
	_, err := svc.RefreshOnce(context.Background())

	require.NoError(t, err)
	require.Len(t, notifier.ids, 1)
	assert.Equal(t, full.ID, notifier.ids[0])
}

func TestRefreshOnce_CancelledContextStopsBeforeApply(t *testing.T) {
	st := &fakeStore{catalog: []model.CarPark{carPark("ACB", 10)}}
	src := &fakeSource{records: []feed.StandardizedCarPark{feedRecord("ACB", 42)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(testConfig(20), st, src, nil, testLogger())
	summary, err := svc.RefreshOnce(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Batches)
	assert.Empty(t, st.batches)
}

func TestPickPerCarPark_PrefersCarLots(t *testing.T) {
	motorcycle := feedRecord("ACB", 3)
	motorcycle.LotType = "Y"
	motorcycle.Category = feed.CategoryMotorcycle
	car := feedRecord("ACB", 42)

	out := pickPerCarPark([]feed.StandardizedCarPark{motorcycle, car})
	require.Len(t, out, 1)
	assert.Equal(t, feed.CategoryCar, out[0].Category)
	assert.Equal(t, 42, out[0].AvailableLots)

	// A carpark reporting only motorcycle lots still reconciles.
	out = pickPerCarPark([]feed.StandardizedCarPark{motorcycle})
	require.Len(t, out, 1)
	assert.Equal(t, feed.CategoryMotorcycle, out[0].Category)
}
