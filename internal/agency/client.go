package agency

import (
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"carpark-availability-backend/config"
)

// newHTTPClient builds the HTTP client shared by the agency clients, honouring
// the configured proxy and per-call timeout.
func newHTTPClient(cfg *config.AgenciesConfig, logger *logrus.Logger) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", cfg.HTTPProxy).
				Warn("invalid proxy URL, agency clients will not use a proxy")
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}
