package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annel0/mmo-worldgen/internal/auth"
	"github.com/annel0/mmo-worldgen/internal/cache"
	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/eventbus"
	"github.com/annel0/mmo-worldgen/internal/storage"
	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
	"github.com/annel0/mmo-worldgen/internal/worldservice"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminPassword = "s3cret-password"

type testServer struct {
	rs  *RestServer
	bus eventbus.EventBus
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

func newTestServerWith(t *testing.T, gen *worldgen.Generator, opts ...worldservice.Option) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := storage.NewCodec(false)
	require.NoError(t, err)
	t.Cleanup(codec.Close)

	bus := eventbus.NewMemoryBus(64)
	t.Cleanup(func() { _ = bus.Close() })

	memCache := cache.NewMemoryCache(nil)
	opts = append([]worldservice.Option{
		worldservice.WithCache(memCache, time.Hour),
		worldservice.WithEventBus(bus),
	}, opts...)
	svc, err := worldservice.New(gen, storage.NewMemoryTemplateRepo(codec), opts...)
	require.NoError(t, err)

	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	authenticator, err := auth.NewFromConfig(config.AuthConfig{
		JWTSecret:         strings.Repeat("k", 32),
		AdminUser:         "admin",
		AdminPasswordHash: hash,
		TokenTTLHours:     1,
	})
	require.NoError(t, err)

	rs, err := NewRestServer(Config{
		Service:  svc,
		Auth:     authenticator,
		Cache:    memCache,
		EventBus: bus,
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(rs.outboundWebhooks.Close)

	return &testServer{rs: rs, bus: bus}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.rs.Handler().ServeHTTP(w, req)

	var resp GenericResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	w, resp := ts.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: adminPassword})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestGetWorld(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/api/worlds/42", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "generated", w.Header().Get("X-Template-Source"))

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, 42.0, data["seed"])
	assert.Len(t, data["features"], 9)
	assert.Len(t, data["stages"], 30)

	w, _ = ts.do(t, http.MethodGet, "/api/worlds/42", "", nil)
	assert.Equal(t, "cache", w.Header().Get("X-Template-Source"))

	w, resp = ts.do(t, http.MethodGet, "/api/worlds", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, resp.Data.(map[string]interface{})["total"])
}

func TestGetWorld_BadParams(t *testing.T) {
	ts := newTestServer(t)

	cases := map[string]int{
		"/api/worlds/abc":            http.StatusBadRequest,
		"/api/worlds/42/levels/x":    http.StatusBadRequest,
		"/api/worlds/42/levels/99":   http.StatusNotFound,
		"/api/worlds/42/camps/0":     http.StatusNotFound,
		"/api/worlds/42/camps/nope":  http.StatusBadRequest,
		"/api/worlds/42/levels/13":   http.StatusOK,
		"/api/worlds/42/camps/1":     http.StatusOK,
		"/api/worlds/42/unknown/sub": http.StatusNotFound,
	}
	for path, want := range cases {
		w, _ := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, want, w.Code, path)
	}
}

func TestGetWorld_Exhausted(t *testing.T) {
	gen := worldgen.NewGenerator(sampler.New(sampler.WithMaxAttempts(5), sampler.WithWidenEvery(0)))
	sea := []worldgen.Feature{{SizeX: 10000, SizeY: 10000, LevelLow: -100, LevelHigh: 100, Kind: worldgen.FeatureSea}}
	ts := newTestServerWith(t, gen, worldservice.WithBaseFeatures(sea))

	for i := 0; i < 2; i++ {
		w, resp := ts.do(t, http.MethodGet, "/api/worlds/7", "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "запрос %d", i+1)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Message, "camp pos")
	}
}

func TestGetLevel(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/api/worlds/42/levels/13", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, 13.0, data["level"])
	assert.Equal(t, 1.0, data["camp_ordinal"])
	camps := data["camps"].([]interface{})
	require.Len(t, camps, 1)
	assert.Equal(t, map[string]interface{}{"level": 13.0, "x": 0.0, "y": 0.0}, camps[0])
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)

	w, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.NotEmpty(t, ts.login(t))
}

func TestAdminRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/api/admin/worlds/42/regenerate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = ts.do(t, http.MethodDelete, "/api/admin/worlds/42", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/server", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminWorldLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	w, _ := ts.do(t, http.MethodDelete, "/api/admin/worlds/7", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "удаление несуществующего шаблона")

	w, _ = ts.do(t, http.MethodGet, "/api/worlds/7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := ts.do(t, http.MethodPost, "/api/admin/worlds/7/regenerate", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7.0, resp.Data.(map[string]interface{})["seed"])

	w, _ = ts.do(t, http.MethodDelete, "/api/admin/worlds/7", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = ts.do(t, http.MethodGet, "/api/worlds", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, resp.Data.(map[string]interface{})["total"])
}

func TestServerInfo(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	w, resp := ts.do(t, http.MethodGet, "/api/server", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, Version, data["version"])
	assert.Contains(t, data, "cache")
	assert.Contains(t, data, "events")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/health", "", nil)

	w, _ := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "worldgen_api_http_request_duration_seconds")
}

func TestOutboundWebhookDelivery(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	var received int32
	var lastType atomic.Value
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastType.Store(r.Header.Get("X-Event-Type"))
		if r.Header.Get("X-Webhook-Signature") != "" {
			atomic.AddInt32(&received, 1)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	w, _ := ts.do(t, http.MethodPost, "/api/admin/webhooks", token, map[string]interface{}{
		"name":   "test",
		"url":    hook.URL,
		"secret": "hook-secret",
		"events": []string{eventbus.EventWorldTemplateGenerated},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/worlds/99", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&received) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, eventbus.EventWorldTemplateGenerated, lastType.Load())

	w, resp := ts.do(t, http.MethodGet, "/api/admin/webhooks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, resp.Data.(map[string]interface{})["total"])

	w, _ = ts.do(t, http.MethodDelete, "/api/admin/webhooks/1", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodDelete, "/api/admin/webhooks/1", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateSignature(t *testing.T) {
	sig := generateSignature([]byte("payload"), "secret")
	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.Len(t, sig, len("sha256=")+64)
	assert.NotEqual(t, sig, generateSignature([]byte("payload"), "other"))

	assert.True(t, VerifySignature([]byte("payload"), "secret", sig))
	assert.False(t, VerifySignature([]byte("payload2"), "secret", sig))
	assert.False(t, VerifySignature([]byte("payload"), "secret", ""))
}
