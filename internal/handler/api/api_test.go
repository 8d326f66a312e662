package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
	"CreditRisk/internal/service/ratelimit"
	"CreditRisk/internal/services/scoring"
	"CreditRisk/internal/usecase"
	"CreditRisk/pkg/cache"
	xlogger "CreditRisk/pkg/logger"
	"CreditRisk/pkg/metrics"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedModel struct{ p float64 }

func (m fixedModel) Name() string { return "LogisticRegression" }
func (m fixedModel) Infer(context.Context, models.FeatureVector) (float64, error) {
	return m.p, nil
}
func (m fixedModel) InferBatch(_ context.Context, vs []models.FeatureVector) ([]float64, error) {
	out := make([]float64, len(vs))
	for i := range out {
		out[i] = m.p
	}
	return out, nil
}

type noCalibration struct{}

func (noCalibration) Load(context.Context) (*models.Calibration, error) {
	return nil, domrepo.ErrCalibrationNotFound
}

type sliceStore struct {
	rs []*models.PredictionResult
}

func (s *sliceStore) Init(context.Context) error { return nil }
func (s *sliceStore) Save(_ context.Context, r *models.PredictionResult) error {
	s.rs = append(s.rs, r)
	return nil
}
func (s *sliceStore) SaveBatch(_ context.Context, rs []*models.PredictionResult) error {
	s.rs = append(s.rs, rs...)
	return nil
}
func (s *sliceStore) Query(_ context.Context, f models.HistoryFilter) ([]*models.PredictionResult, error) {
	return s.rs, nil
}
func (s *sliceStore) Summary(_ context.Context, from, to time.Time, cut float64) (*models.PortfolioSummary, error) {
	sum := models.NewPortfolioSummary(from, to, cut)
	for _, r := range s.rs {
		sum.Add(r)
	}
	return sum, nil
}
func (s *sliceStore) Health(context.Context) error { return nil }
func (s *sliceStore) Close() error                 { return nil }

func fullFeatures() map[string]float64 {
	raw := map[string]float64{}
	for _, n := range models.FeatureNames() {
		raw[n] = 0
	}
	raw[models.FeatureLimitBal] = 80000
	raw[models.FeatureSex] = 1
	raw[models.FeatureEducation] = 2
	raw[models.FeatureMarriage] = 2
	raw[models.FeatureAge] = 41
	return raw
}

type testAPI struct {
	e     *echo.Echo
	store *sliceStore
	feed  *LiveFeed
}

func newTestAPI(t *testing.T, p float64, rl *ratelimit.Limiter) *testAPI {
	t.Helper()
	log := xlogger.Nop()
	thresholds := scoring.NewThresholdStore(noCalibration{})
	pred, err := scoring.NewPredictor(fixedModel{p: p}, thresholds)
	require.NoError(t, err)

	store := &sliceStore{}
	feed := NewLiveFeed(log, DefaultLiveFeedConfig())
	svc := usecase.NewScoringService(pred, metrics.Nop{}, log, usecase.WithStore(store), usecase.WithFeed(feed))
	if rl == nil {
		rl = ratelimit.New(1000, 1000)
	}

	e := echo.New()
	NewScoringEchoHandler(log, svc, thresholds, pred, rl).RegisterRoutes(e)
	rep := NewReportEchoHandler(log, usecase.NewReporter(store, 0.6, 1000))
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	rep.SetCache(mc, time.Minute)
	rep.RegisterRoutes(e)
	feed.RegisterRoutes(e)
	return &testAPI{e: e, store: store, feed: feed}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(b)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestPredictOK(t *testing.T) {
	a := newTestAPI(t, 0.72, nil)
	rec, env := a.do(t, http.MethodPost, "/api/predict", PredictRequest{CustomerID: "c-1", Features: fullFeatures()})
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Label           int         `json:"label"`
		Probability     float64     `json:"probability"`
		Threshold       float64     `json:"threshold_used"`
		Tier            models.Tier `json:"tier"`
		RiskLabel       string      `json:"risk_label"`
		ProbabilityText string      `json:"probability_text"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 1, got.Label)
	assert.Equal(t, 0.5, got.Threshold)
	assert.Equal(t, models.TierHigh, got.Tier)
	assert.Equal(t, "High risk", got.RiskLabel)
	assert.Equal(t, "72.0%", got.ProbabilityText)
	assert.Len(t, a.store.rs, 1)
}

func TestPredictMissingFeature(t *testing.T) {
	a := newTestAPI(t, 0.3, nil)
	raw := fullFeatures()
	delete(raw, models.FeatureAge)

	rec, env := a.do(t, http.MethodPost, "/api/predict", PredictRequest{Features: raw})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs []struct {
		Code   string                 `json:"code"`
		Params map[string]interface{} `json:"params"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_MISSING_FEATURE", errs[0].Code)
	assert.Equal(t, []interface{}{"AGE"}, errs[0].Params["missing"])
	assert.Empty(t, a.store.rs)
}

func TestPredictEmptyFeaturesListsEveryName(t *testing.T) {
	a := newTestAPI(t, 0.3, nil)
	for _, body := range []interface{}{
		PredictRequest{Features: map[string]float64{}},
		map[string]interface{}{"customer_id": "x"},
	} {
		rec, env := a.do(t, http.MethodPost, "/api/predict", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var errs []struct {
			Code   string                 `json:"code"`
			Params map[string]interface{} `json:"params"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &errs))
		require.Len(t, errs, 1)
		assert.Equal(t, "ERR_MISSING_FEATURE", errs[0].Code)
		assert.Len(t, errs[0].Params["missing"], models.FeatureCount)
	}
	assert.Empty(t, a.store.rs)
}

func TestPredictValidation(t *testing.T) {
	a := newTestAPI(t, 0.3, nil)
	rec, _ := a.do(t, http.MethodPost, "/api/predict", map[string]interface{}{"customer_id": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/api/predict", map[string]interface{}{"features": map[string]string{"AGE": "old"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictBatch(t *testing.T) {
	a := newTestAPI(t, 0.1, nil)
	rec, env := a.do(t, http.MethodPost, "/api/predict/batch", BatchPredictRequest{Items: []PredictRequest{
		{Features: fullFeatures()},
		{Features: fullFeatures()},
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Rows  []json.RawMessage `json:"rows"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Rows, 2)

	rec, _ = a.do(t, http.MethodPost, "/api/predict/batch", BatchPredictRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictRateLimited(t *testing.T) {
	a := newTestAPI(t, 0.1, ratelimit.New(1, 0.0001))
	body := PredictRequest{Features: fullFeatures()}

	rec, _ := a.do(t, http.MethodPost, "/api/predict", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = a.do(t, http.MethodPost, "/api/predict", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCalibrationEndpoint(t *testing.T) {
	a := newTestAPI(t, 0.1, nil)
	rec, env := a.do(t, http.MethodGet, "/api/calibration", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st scoring.CalibrationStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "LogisticRegression", st.Model)
	assert.Equal(t, 0.5, st.Threshold)
	assert.True(t, st.ThresholdDefault)
	assert.False(t, st.Overlay.Enabled)

	rec, _ = a.do(t, http.MethodPost, "/api/calibration/refresh", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReloadWithoutLoader(t *testing.T) {
	a := newTestAPI(t, 0.1, nil)
	rec, _ := a.do(t, http.MethodPost, "/api/model/reload", ReloadRequest{Path: "models/x.json"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTierEndpoint(t *testing.T) {
	a := newTestAPI(t, 0.1, nil)

	rec, env := a.do(t, http.MethodGet, "/api/tiers?p=0.2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tr TierResponse
	require.NoError(t, json.Unmarshal(env.Data, &tr))
	assert.Equal(t, models.TierLow, tr.Tier)

	for _, q := range []string{"", "?p=abc", "?p=1.5", "?p=NaN"} {
		rec, _ = a.do(t, http.MethodGet, "/api/tiers"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestReportAndHistory(t *testing.T) {
	a := newTestAPI(t, 0.65, nil)
	for i := 0; i < 3; i++ {
		rec, _ := a.do(t, http.MethodPost, "/api/predict", PredictRequest{Features: fullFeatures()})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := a.do(t, http.MethodGet, "/api/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var s models.PortfolioSummary
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 3, s.HighRisk)
	assert.Equal(t, 0.6, s.HighRiskCut)

	rec, _ = a.do(t, http.MethodGet, "/api/report?from=2024-02-01&to=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = a.do(t, http.MethodGet, "/api/history?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 3, list.Total)

	rec, _ = a.do(t, http.MethodGet, "/api/history?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryWithoutStore(t *testing.T) {
	e := echo.New()
	NewReportEchoHandler(xlogger.Nop(), usecase.NewReporter(nil, 0.6, 10)).RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveFeedBroadcast(t *testing.T) {
	a := newTestAPI(t, 0.9, nil)
	srv := httptest.NewServer(a.e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/predictions", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.feed.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	a.feed.Broadcast(&models.PredictionResult{ID: "p-9", Probability: 0.9, Tier: models.TierVeryHigh})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var got feedMessage
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "prediction", got.Type)
	assert.Equal(t, "p-9", got.Data.ID)

	a.feed.Close()
	assert.Equal(t, 0, a.feed.Subscribers())
}
