// Package handler exposes the operational HTTP surface: health probes,
// Prometheus metrics and read-only lookups against the score sinks. The
// scoring pipeline itself has no HTTP surface.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EduPulseAI/engagement-service/internal/models"
	"github.com/EduPulseAI/engagement-service/internal/service"
	appErrors "github.com/EduPulseAI/engagement-service/pkg/errors"
	"github.com/EduPulseAI/engagement-service/pkg/export"
)

// LatestScoreReader looks up a student's most recent score.
type LatestScoreReader interface {
	GetLatest(ctx context.Context, studentID string) (*models.EngagementScore, error)
}

// ScoreHistoryReader returns a student's recent emitted scores, newest first.
type ScoreHistoryReader interface {
	RecentByStudent(ctx context.Context, studentID string, limit int) ([]models.EngagementScoreRow, error)
}

// OpsHandler serves the operational endpoints. Cache and history readers are
// optional; endpoints backed by a missing sink answer 404.
type OpsHandler struct {
	metrics  *service.MetricsService
	cache    LatestScoreReader
	history  ScoreHistoryReader
	exporter *export.CSVExporter
	ready    func() bool
}

// NewOpsHandler constructs the handler. The ready func reports whether the
// pipeline accepts events.
func NewOpsHandler(metrics *service.MetricsService, cache LatestScoreReader, history ScoreHistoryReader, ready func() bool) *OpsHandler {
	return &OpsHandler{
		metrics:  metrics,
		cache:    cache,
		history:  history,
		exporter: export.NewCSVExporter(),
		ready:    ready,
	}
}

// RegisterRoutes mounts the operational routes on the router.
func (h *OpsHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/stats", h.Stats)
		v1.GET("/students/:studentId/score", h.LatestScore)
		v1.GET("/students/:studentId/score/history", h.ScoreHistory)
		v1.GET("/students/:studentId/score/history.csv", h.ScoreHistoryCSV)
	}
}

// Health is the liveness probe.
func (h *OpsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the pipeline is accepting events.
func (h *OpsHandler) Ready(c *gin.Context) {
	if h.ready != nil && !h.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Stats returns a snapshot of the pipeline counters.
func (h *OpsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// LatestScore returns the student's most recent engagement score from the
// cache sink.
func (h *OpsHandler) LatestScore(c *gin.Context) {
	studentID := c.Param("studentId")

	if h.cache == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": appErrors.ErrNotFound.Code, "message": "score cache is disabled"})
		return
	}

	score, err := h.cache.GetLatest(c.Request.Context(), studentID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			c.JSON(http.StatusNotFound, gin.H{"code": appErrors.ErrNotFound.Code, "message": "no score for student " + studentID})
			return
		}
		appErr := appErrors.FromError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": appErr.Code, "message": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, score)
}

// ScoreHistory returns the student's recent emitted scores from the history
// sink, newest first.
func (h *OpsHandler) ScoreHistory(c *gin.Context) {
	studentID := c.Param("studentId")

	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": appErrors.ErrNotFound.Code, "message": "score history is disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	rows, err := h.history.RecentByStudent(c.Request.Context(), studentID, limit)
	if err != nil {
		appErr := appErrors.FromError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": appErr.Code, "message": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"studentId": studentID, "scores": rows})
}

// ScoreHistoryCSV renders the student's recent emitted scores as a CSV
// download.
func (h *OpsHandler) ScoreHistoryCSV(c *gin.Context) {
	studentID := c.Param("studentId")

	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": appErrors.ErrNotFound.Code, "message": "score history is disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	rows, err := h.history.RecentByStudent(c.Request.Context(), studentID, limit)
	if err != nil {
		appErr := appErrors.FromError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": appErr.Code, "message": appErr.Message})
		return
	}

	payload, err := h.exporter.Render(rows)
	if err != nil {
		appErr := appErrors.FromError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": appErr.Code, "message": appErr.Message})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="engagement_scores_`+studentID+`.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}
