package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-dispatch/internal/config"
	"mail-dispatch/internal/metrics"
	"mail-dispatch/internal/models"
	"mail-dispatch/internal/services"
	"mail-dispatch/internal/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingSender 記錄實際送出的郵件
type recordingSender struct {
	mu   sync.Mutex
	sent []*models.DispatchJob
}

func (s *recordingSender) Name() string { return "Recording" }

func (s *recordingSender) SendMail(_ context.Context, job *models.DispatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, job)
	return nil
}

func (s *recordingSender) deliveries() []*models.DispatchJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.DispatchJob(nil), s.sent...)
}

type testServer struct {
	router     *gin.Engine
	sender     *recordingSender
	dispatcher *worker.Dispatcher
	metrics    *metrics.Metrics
}

func newTestServer(t *testing.T, cfg *config.Config, kdb *services.KeyDBService) *testServer {
	t.Helper()

	m := metrics.New()
	sender := &recordingSender{}
	d := worker.NewDispatcher(cfg, sender, func(r worker.Result) {
		m.RecordDispatch(r.Job.TemplateID, r.Provider, r.Err, r.Duration)
	})
	d.Start()
	t.Cleanup(func() { _ = d.GracefulShutdown(context.Background()) })

	r := gin.New()
	RegisterRoutes(r, &Dependencies{
		Config:       cfg,
		Dispatcher:   d,
		KeyDBService: kdb,
		Metrics:      m,
	})

	return &testServer{router: r, sender: sender, dispatcher: d, metrics: m}
}

func testConfig() *config.Config {
	return &config.Config{
		ServiceName:       "Real-World Email Service",
		CompanyName:       "Acme Corp",
		DeliveryProvider:  config.ProviderLog,
		SendTimeout:       5 * time.Second,
		DispatchWorkers:   2,
		DispatchQueueSize: 10,
		IdempotencyTTL:    time.Hour,
	}
}

func (s *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestRoot(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(http.MethodGet, "/", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"Real-World Email Service"}`, w.Body.String())
}

func TestOptInConfirmationEndToEnd(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(http.MethodPost, "/send/opt-in-confirmation", gin.H{
		"to":   []string{"a@x.com"},
		"data": gin.H{"FirstName": "Casey"},
	}, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.NoError(t, s.dispatcher.GracefulShutdown(context.Background()))

	sent := s.sender.deliveries()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"a@x.com"}, sent[0].ToAddresses)
	assert.Equal(t, "Please Confirm Your Subscription", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "Hi Casey,")
	assert.Contains(t, sent[0].HTML, "The Acme Corp Team")
}

func TestInvalidRequestSendsNothing(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(http.MethodPost, "/send/product-launch", gin.H{
		"to":   []string{"a@x.com"},
		"data": gin.H{"FirstName": "Casey", "ProductName": "SyncMaster 5000"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, s.dispatcher.GracefulShutdown(context.Background()))
	assert.Empty(t, s.sender.deliveries())
}

func TestHealth(t *testing.T) {
	t.Run("without keydb", func(t *testing.T) {
		s := newTestServer(t, testConfig(), nil)

		w := s.do(http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "disabled", body["services"].(map[string]any)["keydb"])
		assert.Contains(t, body, "dispatcher")
	})

	t.Run("keydb down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig()
		cfg.KeyDBURL = mr.Addr()
		kdb, err := services.NewKeyDBService(cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = kdb.Close() })

		s := newTestServer(t, cfg, kdb)
		w := s.do(http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		mr.Close()
		w = s.do(http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"keydb":"error"`)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(http.MethodPost, "/send/opt-in-confirmation", gin.H{
		"to":   []string{"a@x.com"},
		"data": gin.H{"FirstName": "Casey"},
	}, nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NoError(t, s.dispatcher.GracefulShutdown(context.Background()))

	w = s.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `notify_requests_total{outcome="accepted",template="opt-in-confirmation"} 1`)
	assert.Contains(t, w.Body.String(), `notify_dispatch_total{outcome="sent",provider="Recording",template="opt-in-confirmation"} 1`)
}

func TestSendRequiresTokenWhenAuthEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "route-secret"
	s := newTestServer(t, cfg, nil)

	body := gin.H{"to": []string{"a@x.com"}, "data": gin.H{"FirstName": "Casey"}}

	w := s.do(http.MethodPost, "/send/opt-in-confirmation", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"client_id":   "crm",
		"permissions": []string{"send"},
		"exp":         time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	w = s.do(http.MethodPost, "/send/opt-in-confirmation", body, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.NoError(t, s.dispatcher.GracefulShutdown(context.Background()))
	sent := s.sender.deliveries()
	require.Len(t, sent, 1)
	assert.Equal(t, "crm", sent[0].ClientID)

	// 公開路由不需認證
	w = s.do(http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
