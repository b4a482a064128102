package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/EduPulseAI/engagement-service/internal/models"
	"github.com/EduPulseAI/engagement-service/internal/service"
	appErrors "github.com/EduPulseAI/engagement-service/pkg/errors"
)

type latestScoreReaderMock struct {
	score *models.EngagementScore
	err   error
}

func (m *latestScoreReaderMock) GetLatest(ctx context.Context, studentID string) (*models.EngagementScore, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.score, nil
}

type scoreHistoryReaderMock struct {
	rows []models.EngagementScoreRow
	err  error
}

func (m *scoreHistoryReaderMock) RecentByStudent(ctx context.Context, studentID string, limit int) ([]models.EngagementScoreRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func newTestRouter(cache LatestScoreReader, history ScoreHistoryReader, ready func() bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	ops := NewOpsHandler(service.NewMetricsService(), cache, history, ready)
	ops.RegisterRoutes(router)
	return router
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(nil, nil, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpointReflectsPipeline(t *testing.T) {
	ready := false
	router := newTestRouter(nil, nil, func() bool { return ready })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpointServesPrometheus(t *testing.T) {
	router := newTestRouter(nil, nil, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "goroutines_total")
}

func TestStatsEndpointReturnsSnapshot(t *testing.T) {
	router := newTestRouter(nil, nil, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/stats", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.PipelineStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Zero(t, stats.ScoresEmitted)
}

func TestLatestScoreReturnsCachedScore(t *testing.T) {
	cached := &models.EngagementScore{
		Envelope: models.Envelope{ID: "evt-1", StudentID: "student-1", Type: "engagement.scored"},
		Score:    0.83,
		Trend:    models.TrendRising,
	}
	router := newTestRouter(&latestScoreReaderMock{score: cached}, nil, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/students/student-1/score", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got models.EngagementScore
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "student-1", got.Envelope.StudentID)
	require.InDelta(t, 0.83, got.Score, 1e-9)
}

func TestLatestScoreMissReturns404(t *testing.T) {
	router := newTestRouter(&latestScoreReaderMock{err: appErrors.ErrCacheMiss}, nil, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/students/student-9/score", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLatestScoreWithoutCacheReturns404(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/students/student-1/score", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestScoreHistoryReturnsRows(t *testing.T) {
	history := &scoreHistoryReaderMock{rows: []models.EngagementScoreRow{
		{EventID: "evt-2", StudentID: "student-1", Score: 0.83, Trend: "RISING", EmittedAt: time.Now().UTC()},
		{EventID: "evt-1", StudentID: "student-1", Score: 0.6, Trend: "STABLE", EmittedAt: time.Now().UTC()},
	}}
	router := newTestRouter(nil, history, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/students/student-1/score/history", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "evt-2")
}

func TestScoreHistoryCSVRendersAttachment(t *testing.T) {
	history := &scoreHistoryReaderMock{rows: []models.EngagementScoreRow{
		{EventID: "evt-1", StudentID: "student-1", Score: 0.83, Trend: "RISING", EmittedAt: time.Now().UTC()},
	}}
	router := newTestRouter(nil, history, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/students/student-1/score/history.csv", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "student-1")
	require.Contains(t, w.Body.String(), "event_id")
	require.Contains(t, w.Body.String(), "evt-1")
}

func TestScoreHistoryWithoutSinkReturns404(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/students/student-1/score/history", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
