package notification

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carpark-availability-backend/internal/model"
)

// fakeSender records sends and answers with a fixed status code.
type fakeSender struct {
	status    int
	payloads  []string
	endpoints []string
}

func (f *fakeSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	f.payloads = append(f.payloads, string(payload))
	f.endpoints = append(f.endpoints, sub.Endpoint)
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.CarPark{}, &model.PushSubscription{}))
	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestSendForCarPark_DeliversToSubscribers(t *testing.T) {
	db := newTestDB(t)

	carpark := model.CarPark{CarParkNo: "ACB", Address: "BLK 270 ALBERT CENTRE", AvailableLots: 5}
	require.NoError(t, db.Create(&carpark).Error)

	sub := model.PushSubscription{
		Endpoint: "https://push.example/abc",
		P256DH:   "key",
		Auth:     "auth",
		CarParks: []*model.CarPark{&carpark},
	}
	require.NoError(t, db.Create(&sub).Error)

	// A subscriber of a different carpark must not be notified.
	other := model.CarPark{CarParkNo: "BM29"}
	require.NoError(t, db.Create(&other).Error)
	otherSub := model.PushSubscription{
		Endpoint: "https://push.example/other",
		P256DH:   "key",
		Auth:     "auth",
		CarParks: []*model.CarPark{&other},
	}
	require.NoError(t, db.Create(&otherSub).Error)

	sender := &fakeSender{status: http.StatusCreated}
	pool := NewWorkerPool(1, db, &webpush.Options{}, testLogger())
	pool.sender = sender

	pool.sendForCarPark(context.Background(), carpark.ID)

	require.Len(t, sender.endpoints, 1)
	assert.Equal(t, "https://push.example/abc", sender.endpoints[0])
	assert.Contains(t, sender.payloads[0], "BLK 270 ALBERT CENTRE")
}

func TestSendForCarPark_PrunesExpiredSubscriptions(t *testing.T) {
	db := newTestDB(t)

	carpark := model.CarPark{CarParkNo: "ACB"}
	require.NoError(t, db.Create(&carpark).Error)
	sub := model.PushSubscription{
		Endpoint: "https://push.example/expired",
		P256DH:   "key",
		Auth:     "auth",
		CarParks: []*model.CarPark{&carpark},
	}
	require.NoError(t, db.Create(&sub).Error)

	sender := &fakeSender{status: http.StatusGone}
	pool := NewWorkerPool(1, db, &webpush.Options{}, testLogger())
	pool.sender = sender

	pool.sendForCarPark(context.Background(), carpark.ID)

	var count int64
	require.NoError(t, db.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Zero(t, count, "a 410 response deletes the subscription")
}
