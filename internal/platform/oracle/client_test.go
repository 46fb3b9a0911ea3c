package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUSDPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/prices/SOL", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"SOL","price_usd":"142.37"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	price, err := c.USDPrice(context.Background(), "sol")
	require.NoError(t, err)
	assert.Equal(t, "142.37", price.String())
}

func TestUSDPriceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/prices/ZERO":
			w.Write([]byte(`{"symbol":"ZERO","price_usd":"0"}`))
		case "/v1/prices/BAD":
			w.Write([]byte(`{"symbol":"BAD","price_usd":"not-a-number"}`))
		default:
			http.Error(w, "unknown symbol", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)

	_, err := c.USDPrice(context.Background(), "")
	assert.Error(t, err)

	_, err = c.USDPrice(context.Background(), "ZERO")
	assert.Error(t, err)

	_, err = c.USDPrice(context.Background(), "BAD")
	assert.Error(t, err)

	_, err = c.USDPrice(context.Background(), "NOPE")
	assert.Error(t, err)
}
