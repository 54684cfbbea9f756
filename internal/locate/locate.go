// Package locate resolves the monitored device's approximate position via
// IP geolocation. Several public services are tried in order; the first one
// that answers wins.
package locate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// perProviderTimeout bounds each lookup attempt.
const perProviderTimeout = 3 * time.Second

// Location is a normalized geolocation result.
type Location struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Address   string `json:"address"`
}

// Unavailable is the sentinel returned when no provider could answer.
func Unavailable() Location {
	return Location{
		Latitude:  "Unknown",
		Longitude: "Unknown",
		Address:   "Location unavailable (network error)",
	}
}

// Provider resolves the current location from a single upstream service.
type Provider interface {
	Name() string
	Locate(ctx context.Context) (Location, error)
}

// Chain tries each provider in order and returns the first successful
// result. When every provider fails it returns Unavailable and no error.
type Chain struct {
	providers []Provider
	logger    log.Logger
}

// NewChain builds a provider chain. A nil logger falls back to Nop.
func NewChain(logger log.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = log.Nop()
	}
	return &Chain{providers: providers, logger: logger}
}

// DefaultChain wires the three public IP geolocation services.
func DefaultChain(logger log.Logger) *Chain {
	client := &http.Client{Timeout: perProviderTimeout}
	return NewChain(logger,
		&IPAPIProvider{client: client},
		&IPAPICoProvider{client: client},
		&IPInfoProvider{client: client},
	)
}

// Locate resolves the current location, falling through failed providers.
func (c *Chain) Locate(ctx context.Context) Location {
	for _, p := range c.providers {
		attempt, cancel := context.WithTimeout(ctx, perProviderTimeout)
		loc, err := p.Locate(attempt)
		cancel()
		if err != nil {
			c.logger.Info(ctx, "location provider failed, trying next",
				"provider", p.Name(), "error", err.Error())
			continue
		}
		return loc
	}
	c.logger.Info(ctx, "all location providers failed")
	return Unavailable()
}

func fetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// IPAPIProvider queries ip-api.com.
type IPAPIProvider struct {
	client  *http.Client
	baseURL string
}

// NewIPAPIProvider returns a provider for ip-api.com. baseURL overrides the
// live endpoint in tests; empty means the real service.
func NewIPAPIProvider(client *http.Client, baseURL string) *IPAPIProvider {
	return &IPAPIProvider{client: client, baseURL: baseURL}
}

func (p *IPAPIProvider) Name() string { return "ip-api.com" }

func (p *IPAPIProvider) Locate(ctx context.Context) (Location, error) {
	url := p.baseURL
	if url == "" {
		url = "http://ip-api.com/json/"
	}
	var body struct {
		Lat        *float64 `json:"lat"`
		Lon        *float64 `json:"lon"`
		City       string   `json:"city"`
		RegionName string   `json:"regionName"`
		Country    string   `json:"country"`
	}
	if err := fetchJSON(ctx, p.client, url, &body); err != nil {
		return Location{}, err
	}
	return Location{
		Latitude:  coord(body.Lat),
		Longitude: coord(body.Lon),
		Address:   joinAddress(body.City, body.RegionName, body.Country),
	}, nil
}

// IPAPICoProvider queries ipapi.co.
type IPAPICoProvider struct {
	client  *http.Client
	baseURL string
}

// NewIPAPICoProvider returns a provider for ipapi.co with an optional test
// endpoint override.
func NewIPAPICoProvider(client *http.Client, baseURL string) *IPAPICoProvider {
	return &IPAPICoProvider{client: client, baseURL: baseURL}
}

func (p *IPAPICoProvider) Name() string { return "ipapi.co" }

func (p *IPAPICoProvider) Locate(ctx context.Context) (Location, error) {
	url := p.baseURL
	if url == "" {
		url = "https://ipapi.co/json/"
	}
	var body struct {
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
		City        string   `json:"city"`
		Region      string   `json:"region"`
		CountryName string   `json:"country_name"`
	}
	if err := fetchJSON(ctx, p.client, url, &body); err != nil {
		return Location{}, err
	}
	return Location{
		Latitude:  coord(body.Latitude),
		Longitude: coord(body.Longitude),
		Address:   joinAddress(body.City, body.Region, body.CountryName),
	}, nil
}

// IPInfoProvider queries ipinfo.io, which returns coordinates as a single
// "lat,lon" string.
type IPInfoProvider struct {
	client  *http.Client
	baseURL string
}

// NewIPInfoProvider returns a provider for ipinfo.io with an optional test
// endpoint override.
func NewIPInfoProvider(client *http.Client, baseURL string) *IPInfoProvider {
	return &IPInfoProvider{client: client, baseURL: baseURL}
}

func (p *IPInfoProvider) Name() string { return "ipinfo.io" }

func (p *IPInfoProvider) Locate(ctx context.Context) (Location, error) {
	url := p.baseURL
	if url == "" {
		url = "http://ipinfo.io/json"
	}
	var body struct {
		Loc     string `json:"loc"`
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	}
	if err := fetchJSON(ctx, p.client, url, &body); err != nil {
		return Location{}, err
	}

	lat, lon := "Unknown", "Unknown"
	if parts := strings.SplitN(body.Loc, ",", 2); len(parts) == 2 {
		lat, lon = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return Location{
		Latitude:  lat,
		Longitude: lon,
		Address:   joinAddress(body.City, body.Region, body.Country),
	}, nil
}

func coord(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%g", *v)
}

func joinAddress(parts ...string) string {
	return strings.Join(parts, ", ")
}
