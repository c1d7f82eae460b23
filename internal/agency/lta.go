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

// LTACarParkData is one carpark record from the LTA DataMall
// CarParkAvailabilityv2 endpoint. Location is a "lat lng" string.
type LTACarParkData struct {
	CarParkID     string `json:"CarParkID"`
	Area          string `json:"Area"`
	Development   string `json:"Development"`
	Location      string `json:"Location"`
	AvailableLots int    `json:"AvailableLots"`
	LotType       string `json:"LotType"`
	Agency        string `json:"Agency"`
}

type ltaResponse struct {
	Value []LTACarParkData `json:"value"`
}

// LTAClient fetches the LTA DataMall availability feed, authenticated with
// an AccountKey header.
type LTAClient struct {
	cfg    *config.LTAConfig
	client *http.Client
	logger *logrus.Logger
}

// NewLTAClient creates a client for the DataMall availability endpoint.
func NewLTAClient(cfg *config.AgenciesConfig, logger *logrus.Logger) *LTAClient {
	return &LTAClient{
		cfg:    &cfg.LTA,
		client: newHTTPClient(cfg, logger),
		logger: logger,
	}
}

// Agency reports which upstream this client wraps.
func (c *LTAClient) Agency() feed.Agency { return feed.AgencyLTA }

// Fetch retrieves the current DataMall availability snapshot.
func (c *LTAClient) Fetch(ctx context.Context) ([]LTACarParkData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, &feed.FetchError{Agency: feed.AgencyLTA, Err: err}
	}
	req.Header.Set("AccountKey", c.cfg.AccountKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &feed.FetchError{Agency: feed.AgencyLTA, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &feed.FetchError{
			Agency: feed.AgencyLTA,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var body ltaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &feed.ValidationError{Agency: feed.AgencyLTA, Reason: fmt.Sprintf("decode failed: %v", err)}
	}

	if body.Value == nil {
		return nil, &feed.ValidationError{Agency: feed.AgencyLTA, Reason: "response has no value array"}
	}

	c.logger.WithField("carparks", len(body.Value)).Debug("fetched LTA availability feed")
	return body.Value, nil
}
