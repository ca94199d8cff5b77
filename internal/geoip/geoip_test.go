package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leaplineadmin/brevy-sub002/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.GeoIPConfig{Endpoint: srv.URL, CacheTTL: time.Minute}, nil)
}

func TestCountry_Lookup(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/203.0.113.7" {
			t.Errorf("unexpected lookup path %q", r.URL.Path)
		}
		w.Write([]byte(`{"ip":"203.0.113.7","country":"fr"}`))
	})

	if got := c.Country(context.Background(), "203.0.113.7"); got != "FR" {
		t.Fatalf("Country = %q, want FR", got)
	}
}

func TestCountry_PrivateAndInvalidIPs(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("lookup issued for ip that should be skipped: %s", r.URL.Path)
	})

	for _, ip := range []string{"", "not-an-ip", "127.0.0.1", "10.0.0.8", "192.168.1.1", "0.0.0.0"} {
		if got := c.Country(context.Background(), ip); got != "" {
			t.Errorf("Country(%q) = %q, want empty", ip, got)
		}
	}
}

func TestCountry_LookupFailureIsSoft(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	if got := c.Country(context.Background(), "203.0.113.7"); got != "" {
		t.Fatalf("failed lookup should yield empty country, got %q", got)
	}
}

func TestLanguageFor(t *testing.T) {
	for country, want := range map[string]string{
		"FR": "fr",
		"fr": "fr",
		"CA": "fr",
		"US": "en",
		"DE": "en",
		"":   "en",
	} {
		if got := LanguageFor(country); got != want {
			t.Errorf("LanguageFor(%q) = %q, want %q", country, got, want)
		}
	}
}
