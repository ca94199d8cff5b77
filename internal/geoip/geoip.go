package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leaplineadmin/brevy-sub002/internal/config"
)

// Client resolves a request IP to a country code and a default interface
// language. Lookups are cached in redis; a nil redis client disables caching.
type Client struct {
	endpoint   string
	cacheTTL   time.Duration
	httpClient *http.Client
	rdb        *redis.Client
}

// NewClient builds a Client. rdb may be nil.
func NewClient(cfg config.GeoIPConfig, rdb *redis.Client) *Client {
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		cacheTTL:   cfg.CacheTTL,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		rdb:        rdb,
	}
}

type lookupResponse struct {
	Country string `json:"country"`
}

// Country returns the ISO 3166-1 alpha-2 country code for ip, or "" when the
// IP is private, unparseable, or the lookup fails. Failures are soft: callers
// fall back to the default language.
func (c *Client) Country(ctx context.Context, ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return ""
	}

	cacheKey := "geoip:" + parsed.String()
	if c.rdb != nil {
		if cached, err := c.rdb.Get(ctx, cacheKey).Result(); err == nil {
			return cached
		}
	}

	country, err := c.lookup(ctx, parsed.String())
	if err != nil {
		slog.Default().Warn("geoip lookup failed", slog.String("error", err.Error()))
		return ""
	}

	if c.rdb != nil && country != "" {
		if err := c.rdb.Set(ctx, cacheKey, country, c.cacheTTL).Err(); err != nil {
			slog.Default().Warn("geoip cache write failed", slog.String("error", err.Error()))
		}
	}
	return country
}

func (c *Client) lookup(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+ip, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lookup %s: status %s", ip, resp.Status)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode lookup response: %w", err)
	}
	return strings.ToUpper(strings.TrimSpace(out.Country)), nil
}

// frenchSpeaking lists countries whose users default to the French interface.
var frenchSpeaking = map[string]bool{
	"FR": true, "BE": true, "CH": true, "LU": true, "MC": true,
	"CA": true, "SN": true, "CI": true, "MA": true, "TN": true, "DZ": true,
}

// LanguageFor maps a country code to a supported interface language.
func LanguageFor(country string) string {
	if frenchSpeaking[strings.ToUpper(country)] {
		return "fr"
	}
	return "en"
}
