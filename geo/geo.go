package geo

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"litoralcitrus/metrics"
	"litoralcitrus/models"
)

// Result is what a successful lookup yields.
type Result struct {
	IP       string
	Location *models.Location
}

// Locator resolves an IP address to a coarse location.
type Locator interface {
	Lookup(ctx context.Context, ip string) *Result
}

type apiResponse struct {
	IP          string  `json:"ip"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

// Client queries an ipapi-compatible endpoint. The URL template may contain
// an {ip} placeholder; without one the provider reports the caller's address.
type Client struct {
	http    *resty.Client
	url     string
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewClient(url string, timeout time.Duration, log zerolog.Logger, m *metrics.Metrics) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "litoralcitrus-api")

	return &Client{
		http:    client,
		url:     url,
		log:     log.With().Str("component", "geo").Logger(),
		metrics: m,
	}
}

// Lookup never fails: any error is logged and reported as a nil result.
// Loopback and private addresses are not sent to the provider.
func (c *Client) Lookup(ctx context.Context, ip string) *Result {
	if !routable(ip) {
		c.count("skipped")
		return nil
	}

	var body apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(strings.ReplaceAll(c.url, "{ip}", ip))
	if err != nil {
		c.log.Debug().Err(err).Str("ip", ip).Msg("geolocation request failed")
		c.count("error")
		return nil
	}
	if resp.IsError() || body.Error {
		c.log.Debug().Int("status", resp.StatusCode()).Str("reason", body.Reason).Msg("geolocation lookup rejected")
		c.count("error")
		return nil
	}

	c.count("ok")
	resolved := body.IP
	if resolved == "" {
		resolved = ip
	}
	return &Result{
		IP: resolved,
		Location: &models.Location{
			City:      body.City,
			Region:    body.Region,
			Country:   body.CountryName,
			Latitude:  body.Latitude,
			Longitude: body.Longitude,
		},
	}
}

func (c *Client) count(result string) {
	if c.metrics != nil {
		c.metrics.GeoLookups.WithLabelValues(result).Inc()
	}
}

func routable(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !parsed.IsLoopback() && !parsed.IsPrivate() && !parsed.IsUnspecified() && !parsed.IsLinkLocalUnicast()
}

// Disabled is a Locator that never resolves anything.
type Disabled struct{}

func (Disabled) Lookup(context.Context, string) *Result { return nil }
