package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"carpark-availability-backend/internal/aggregate"
	"carpark-availability-backend/internal/reconcile"
	"carpark-availability-backend/internal/store"
)

// Aggregator is the live-feed dependency of the availability handler.
type Aggregator interface {
	Availability(ctx context.Context) aggregate.Result
}

// Refresher triggers one reconciliation cycle on demand.
type Refresher interface {
	RefreshOnce(ctx context.Context) (reconcile.Summary, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	webpush    *webpush.Options
	aggregator Aggregator
	refresher  Refresher
	logger     *logrus.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, aggregator Aggregator, refresher Refresher, logger *logrus.Logger) *Handler {
	return &Handler{
		store:      s,
		webpush:    webpushOptions,
		aggregator: aggregator,
		refresher:  refresher,
		logger:     logger,
	}
}
