package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"carpark-availability-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers "lots available again" pushes for carparks the refresh
// cycle reports as having regained free lots.
type WorkerPool struct {
	size    int
	jobs    chan uuid.UUID
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
	logger  *logrus.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, logger *logrus.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan uuid.UUID, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.WithField("worker", id).Debug("notification worker started")
	for {
		select {
		case carParkID := <-wp.jobs:
			wp.sendForCarPark(ctx, carParkID)
		case <-ctx.Done():
			wp.logger.WithField("worker", id).Debug("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a carpark for notification delivery.
func (wp *WorkerPool) Dispatch(carParkID uuid.UUID) {
	wp.jobs <- carParkID
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan uuid.UUID {
	return wp.jobs
}

// sendForCarPark fetches the carpark's subscribers and pushes to each.
func (wp *WorkerPool) sendForCarPark(ctx context.Context, carParkID uuid.UUID) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_car_park_mapping scm ON scm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("scm.car_park_id = ?", carParkID).
		Find(&subscriptions).Error
	if err != nil {
		wp.logger.WithError(err).WithField("car_park", carParkID).Error("failed to fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	var carpark model.CarPark
	label := carParkID.String()
	if err := wp.db.WithContext(ctx).
		Select("car_park_no", "address").
		First(&carpark, "id = ?", carParkID).Error; err != nil {
		wp.logger.WithError(err).WithField("car_park", carParkID).Error("failed to fetch carpark")
	} else if carpark.Address != "" {
		label = carpark.Address
	} else if carpark.CarParkNo != "" {
		label = carpark.CarParkNo
	}

	wp.logger.WithFields(logrus.Fields{
		"car_park":      carParkID,
		"subscriptions": len(subscriptions),
	}).Info("sending availability notifications")

	message := fmt.Sprintf("Lots are available again at %s", label)
	for _, sub := range subscriptions {
		wp.send(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to send notification")
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are pruned on sight.
	if resp.StatusCode == http.StatusGone {
		wp.logger.WithField("endpoint", sub.Endpoint).Info("subscription expired, deleting")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.logger.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
	}
}
