package paapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AccessKey = "AKIAEXAMPLE123456789"
	cfg.SecretKey = "abc123secretabc123secretabc123secret"
	cfg.PartnerTag = "savingsgurucc-20"
	cfg.APIRateLimitDelay = 20 * time.Millisecond
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(testConfig())
	require.NoError(t, err)
	client.baseURL = server.URL
	return client, server
}

func TestNewClient_UnknownMarketplace(t *testing.T) {
	cfg := testConfig()
	cfg.Marketplace = "ZZ"
	_, err := NewClient(cfg)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestClient_Healthy(t *testing.T) {
	client, err := NewClient(testConfig())
	require.NoError(t, err)
	assert.True(t, client.Healthy())

	cfg := testConfig()
	cfg.SecretKey = ""
	client, err = NewClient(cfg)
	require.NoError(t, err)
	assert.False(t, client.Healthy())
}

func TestResolve_InvalidASINSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	for _, asin := range []string{"", "short", "B0EXAMPLE1TOOLONG", "B0-INVALID"} {
		_, err := client.Resolve(context.Background(), asin)
		assert.ErrorIs(t, err, common.ErrInvalidASIN, "asin %q", asin)
	}
	assert.Zero(t, calls.Load())
}

func TestResolve_Success(t *testing.T) {
	var gotTarget string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.Header.Get("X-Amz-Target")
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fullItemPayload))
	})

	product, err := client.Resolve(context.Background(), "b0example1")
	require.NoError(t, err)
	assert.Equal(t, getItemsTarget, gotTarget)
	assert.Equal(t, "B0EXAMPLE1", product.ASIN)
	assert.Equal(t, "Wireless Noise Cancelling Headphones", product.Title)
}

func TestResolve_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"throttled", http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError},
		{"forbidden", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.Resolve(context.Background(), "B0EXAMPLE1")
			assert.ErrorIs(t, err, common.ErrNoData)
		})
	}
}

func TestResolve_ThrottlesBetweenCalls(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fullItemPayload))
	})

	start := time.Now()
	_, err := client.Resolve(context.Background(), "B0EXAMPLE1")
	require.NoError(t, err)
	_, err = client.Resolve(context.Background(), "B0EXAMPLE1")
	require.NoError(t, err)

	// The second call must wait out the inter-call delay measured from the
	// end of the first.
	assert.GreaterOrEqual(t, time.Since(start), client.cfg.APIRateLimitDelay)
}

func TestResolve_ThrottleRespectsContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fullItemPayload))
	})
	client.cfg.APIRateLimitDelay = time.Minute

	_, err := client.Resolve(context.Background(), "B0EXAMPLE1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = client.Resolve(ctx, "B0EXAMPLE1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
