package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoralcitrus/metrics"
)

func TestClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.7/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7","city":"Concordia","region":"Entre Ríos","country_name":"Argentina","latitude":-31.39,"longitude":-58.02}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/{ip}/json/", time.Second, zerolog.Nop(), metrics.New())
	res := c.Lookup(context.Background(), "203.0.113.7")

	require.NotNil(t, res)
	assert.Equal(t, "203.0.113.7", res.IP)
	assert.Equal(t, "Concordia", res.Location.City)
	assert.Equal(t, "Argentina", res.Location.Country)
	assert.InDelta(t, -58.02, res.Location.Longitude, 1e-9)
}

func TestClient_LookupFailuresYieldNil(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"provider error body", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
		}},
		{"timeout", func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL+"/{ip}", 50*time.Millisecond, zerolog.Nop(), nil)
			assert.Nil(t, c.Lookup(context.Background(), "203.0.113.7"))
		})
	}
}

func TestClient_SkipsPrivateAddresses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/{ip}", time.Second, zerolog.Nop(), nil)
	for _, ip := range []string{"", "garbage", "127.0.0.1", "10.1.2.3", "192.168.0.9", "::1"} {
		assert.Nil(t, c.Lookup(context.Background(), ip), ip)
	}
	assert.Zero(t, calls.Load())
}
