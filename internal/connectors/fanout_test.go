package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidpanel/bidpanel/internal/cache"
	"github.com/bidpanel/bidpanel/internal/models"
)

func evalCtx() models.EvaluationContext {
	return models.EvaluationContext{
		ProjectID:  "proj-1",
		VendorName: "Acme",
	}
}

func newPayloadCache(t *testing.T) *cache.Cache[models.ConnectorPayload] {
	t.Helper()
	c, err := cache.New[models.ConnectorPayload](0)
	require.NoError(t, err)
	return c
}

func activeConnector(id, endpoint string, roles ...models.Role) models.ConnectorConfig {
	return models.ConnectorConfig{ID: id, Name: id, Endpoint: endpoint, Roles: roles, Active: true}
}

func TestFetchForRole_CombinesPayloads(t *testing.T) {
	srv1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"first source"}`)) //nolint:errcheck
	}))
	defer srv1.Close()
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"second source"}`)) //nolint:errcheck
	}))
	defer srv2.Close()

	f := NewFanout([]models.ConnectorConfig{
		activeConnector("c1", srv1.URL, models.RoleDelivery),
		activeConnector("c2", srv2.URL, models.RoleDelivery),
		activeConnector("c3", srv2.URL, models.RoleCompliance), // different role, not selected
	}, newPayloadCache(t))

	payload, diags := f.FetchForRole(context.Background(), models.RoleDelivery, evalCtx(), FetchOptions{})

	assert.Empty(t, diags)
	assert.Equal(t, "first source\n\nsecond source", payload)
}

func TestFetchForRole_FailureIsolation(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"good payload"}`)) //nolint:errcheck
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer bad.Close()

	f := NewFanout([]models.ConnectorConfig{
		activeConnector("bad", bad.URL, models.RoleDelivery),
		activeConnector("good", good.URL, models.RoleDelivery),
	}, newPayloadCache(t))

	payload, diags := f.FetchForRole(context.Background(), models.RoleDelivery, evalCtx(), FetchOptions{})

	assert.Equal(t, "good payload", payload, "sibling payload kept despite a failing connector")
	require.Len(t, diags, 1)
	assert.Equal(t, "bad", diags[0].Connector)
	assert.Equal(t, models.FailureAuth, diags[0].Category)
	assert.False(t, diags[0].At.IsZero())
}

func TestFetchForRole_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	f := NewFanout(
		[]models.ConnectorConfig{activeConnector("slow", slow.URL, models.RoleDelivery)},
		newPayloadCache(t),
		WithTimeout(10*time.Millisecond),
	)

	payload, diags := f.FetchForRole(context.Background(), models.RoleDelivery, evalCtx(), FetchOptions{})

	assert.Empty(t, payload)
	require.Len(t, diags, 1)
	assert.Equal(t, models.FailureTimeout, diags[0].Category)
}

func TestFetchForRole_RateLimitCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFanout([]models.ConnectorConfig{activeConnector("c", srv.URL, models.RoleDelivery)}, newPayloadCache(t))

	_, diags := f.FetchForRole(context.Background(), models.RoleDelivery, evalCtx(), FetchOptions{})
	require.Len(t, diags, 1)
	assert.Equal(t, models.FailureRateLimit, diags[0].Category)
}

func TestFetchForRole_CachesPayloads(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"text":"cached payload"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewFanout([]models.ConnectorConfig{activeConnector("c", srv.URL, models.RoleDelivery)}, newPayloadCache(t))

	for i := 0; i < 3; i++ {
		payload, diags := f.FetchForRole(context.Background(), models.RoleDelivery, evalCtx(), FetchOptions{})
		assert.Empty(t, diags)
		assert.Equal(t, "cached payload", payload)
	}
	assert.Equal(t, int32(1), calls.Load(), "second and third fetch served from cache")

	// Bypass flag forces a fresh call.
	_, _ = f.FetchForRole(context.Background(), models.RoleDelivery, evalCtx(), FetchOptions{BypassCache: true})
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchForRole_InactiveAndUnmappedSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no connector should be called")
	}))
	defer srv.Close()

	inactive := activeConnector("c1", srv.URL, models.RoleDelivery)
	inactive.Active = false

	f := NewFanout([]models.ConnectorConfig{
		inactive,
		activeConnector("c2", srv.URL, models.RoleCompliance),
	}, newPayloadCache(t))

	payload, diags := f.FetchForRole(context.Background(), models.RoleDelivery, evalCtx(), FetchOptions{})
	assert.Empty(t, payload)
	assert.Empty(t, diags)
}

func TestFetchForRole_RequestShape(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"text":"ok"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	cfg := activeConnector("c", srv.URL, models.RoleDelivery)
	cfg.APIKey = "secret"

	f := NewFanout([]models.ConnectorConfig{cfg}, newPayloadCache(t))
	_, diags := f.FetchForRole(context.Background(), models.RoleDelivery, evalCtx(), FetchOptions{})

	assert.Empty(t, diags)
	assert.Equal(t, "Bearer secret", gotAuth)
}
