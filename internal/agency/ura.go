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

// URAGeometry holds a coordinate string in "lng,lat" order, as URA reports it.
type URAGeometry struct {
	Coordinates string `json:"coordinates"`
}

// URACarParkData is one carpark record from the URA availability service.
// Lot counts arrive as strings.
type URACarParkData struct {
	CarParkNo     string        `json:"carparkNo"`
	Geometries    []URAGeometry `json:"geometries"`
	LotsAvailable string        `json:"lotsAvailable"`
	LotType       string        `json:"lotType"`
}

type uraResponse struct {
	Status  string           `json:"Status"`
	Message string           `json:"Message"`
	Result  []URACarParkData `json:"Result"`
}

// URAClient fetches the URA availability feed. The service wants an
// AccessKey, a session Token, and a browser-looking User-Agent; it rejects
// requests carrying Go's default one.
type URAClient struct {
	cfg    *config.URAConfig
	client *http.Client
	logger *logrus.Logger
}

// NewURAClient creates a client for the URA availability endpoint.
func NewURAClient(cfg *config.AgenciesConfig, logger *logrus.Logger) *URAClient {
	return &URAClient{
		cfg:    &cfg.URA,
		client: newHTTPClient(cfg, logger),
		logger: logger,
	}
}

// Agency reports which upstream this client wraps.
func (c *URAClient) Agency() feed.Agency { return feed.AgencyURA }

// Fetch retrieves the current URA availability snapshot.
func (c *URAClient) Fetch(ctx context.Context) ([]URACarParkData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, &feed.FetchError{Agency: feed.AgencyURA, Err: err}
	}
	req.Header.Set("AccessKey", c.cfg.AccessKey)
	req.Header.Set("Token", c.cfg.Token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &feed.FetchError{Agency: feed.AgencyURA, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &feed.FetchError{
			Agency: feed.AgencyURA,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var body uraResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &feed.ValidationError{Agency: feed.AgencyURA, Reason: fmt.Sprintf("decode failed: %v", err)}
	}

	if body.Status != "" && body.Status != "Success" {
		return nil, &feed.FetchError{
			Agency: feed.AgencyURA,
			Err:    fmt.Errorf("service status %q: %s", body.Status, body.Message),
		}
	}
	if body.Result == nil {
		return nil, &feed.ValidationError{Agency: feed.AgencyURA, Reason: "response has no Result array"}
	}

	c.logger.WithField("carparks", len(body.Result)).Debug("fetched URA availability feed")
	return body.Result, nil
}
