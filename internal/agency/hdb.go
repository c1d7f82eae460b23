package agency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"carpark-availability-backend/config"
	"carpark-availability-backend/internal/feed"
)

// HDBCarParkInfo is one lot-type entry within an HDB carpark record. Lot
// counts arrive as strings in the data.gov.sg payload.
type HDBCarParkInfo struct {
	TotalLots     string `json:"total_lots"`
	LotType       string `json:"lot_type"`
	LotsAvailable string `json:"lots_available"`
}

// HDBCarParkData is one carpark's availability as reported by data.gov.sg.
type HDBCarParkData struct {
	CarParkNumber  string           `json:"carpark_number"`
	CarParkInfo    []HDBCarParkInfo `json:"carpark_info"`
	UpdateDatetime string           `json:"update_datetime"`
}

type hdbResponse struct {
	Items []struct {
		Timestamp   string           `json:"timestamp"`
		CarParkData []HDBCarParkData `json:"carpark_data"`
	} `json:"items"`
}

// HDBClient fetches the HDB carpark availability feed. The endpoint is
// public and requires no credentials.
type HDBClient struct {
	cfg    *config.HDBConfig
	client *http.Client
	logger *logrus.Logger
}

// NewHDBClient creates a client for the data.gov.sg availability endpoint.
func NewHDBClient(cfg *config.AgenciesConfig, logger *logrus.Logger) *HDBClient {
	return &HDBClient{
		cfg:    &cfg.HDB,
		client: newHTTPClient(cfg, logger),
		logger: logger,
	}
}

// Agency reports which upstream this client wraps.
func (c *HDBClient) Agency() feed.Agency { return feed.AgencyHDB }

// Fetch retrieves the current HDB availability snapshot. The timestamp of
// the snapshot is returned alongside the per-carpark records.
func (c *HDBClient) Fetch(ctx context.Context) ([]HDBCarParkData, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, "", &feed.FetchError{Agency: feed.AgencyHDB, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", &feed.FetchError{Agency: feed.AgencyHDB, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &feed.FetchError{
			Agency: feed.AgencyHDB,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var body hdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", &feed.ValidationError{Agency: feed.AgencyHDB, Reason: fmt.Sprintf("decode failed: %v", err)}
	}

	if len(body.Items) == 0 {
		return nil, "", &feed.ValidationError{Agency: feed.AgencyHDB, Reason: "response has no items"}
	}

	item := body.Items[0]
	c.logger.WithField("carparks", len(item.CarParkData)).Debug("fetched HDB availability feed")
	return item.CarParkData, item.Timestamp, nil
}
