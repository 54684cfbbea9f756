package locate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

func TestChainFirstSuccessWins(t *testing.T) {
	t.Parallel()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"lat": 52.37, "lon": 4.89, "city": "Amsterdam", "regionName": "North Holland", "country": "Netherlands"}`))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer bad.Close()

	client := &http.Client{Timeout: time.Second}
	chain := NewChain(log.Nop(),
		NewIPAPIProvider(client, bad.URL),
		NewIPAPIProvider(client, good.URL),
	)

	loc := chain.Locate(context.Background())
	if loc.Latitude != "52.37" || loc.Longitude != "4.89" {
		t.Errorf("coordinates = %s,%s, want 52.37,4.89", loc.Latitude, loc.Longitude)
	}
	if loc.Address != "Amsterdam, North Holland, Netherlands" {
		t.Errorf("address = %q", loc.Address)
	}
}

func TestChainAllFailReturnsSentinel(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	client := &http.Client{Timeout: time.Second}
	chain := NewChain(log.Nop(),
		NewIPAPIProvider(client, bad.URL),
		NewIPAPICoProvider(client, bad.URL),
	)

	loc := chain.Locate(context.Background())
	if loc != Unavailable() {
		t.Errorf("Locate = %+v, want the unavailable sentinel", loc)
	}
}

func TestIPInfoSplitsLocPair(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"loc": "40.71,-74.01", "city": "New York", "region": "NY", "country": "US"}`))
	}))
	defer srv.Close()

	p := NewIPInfoProvider(&http.Client{Timeout: time.Second}, srv.URL)
	loc, err := p.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.Latitude != "40.71" || loc.Longitude != "-74.01" {
		t.Errorf("coordinates = %s,%s", loc.Latitude, loc.Longitude)
	}
}

func TestIPAPICoMissingCoordinates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"city": "Berlin", "region": "Berlin", "country_name": "Germany"}`))
	}))
	defer srv.Close()

	p := NewIPAPICoProvider(&http.Client{Timeout: time.Second}, srv.URL)
	loc, err := p.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.Latitude != "Unknown" || loc.Longitude != "Unknown" {
		t.Errorf("coordinates = %s,%s, want Unknown", loc.Latitude, loc.Longitude)
	}
	if loc.Address != "Berlin, Berlin, Germany" {
		t.Errorf("address = %q", loc.Address)
	}
}
