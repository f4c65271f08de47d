package controllers

import (
	"context"
	"net/http"
	"strconv"

	"essaycoach/middlewares"
	"essaycoach/models"
	"essaycoach/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Coach is what the handlers need from services.CoachService.
type Coach interface {
	Analyze(ctx context.Context, req models.FeedbackRequest) (*models.FeedbackResponse, error)
	History(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error)
	HasStore() bool
}

type CoachController struct {
	coach       Coach
	logger      *zap.Logger
	authEnabled bool
}

// NewCoachController trusts caller-supplied user ids only when authEnabled
// is false. Otherwise the verified token subject is the only identity.
func NewCoachController(coach Coach, logger *zap.Logger, authEnabled bool) *CoachController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoachController{coach: coach, logger: logger, authEnabled: authEnabled}
}

// callerID returns the verified subject, or fallback when auth is off.
func (cc *CoachController) callerID(c *gin.Context, fallback string) string {
	if userID := c.GetString(middlewares.UserIDKey); userID != "" {
		return userID
	}
	if cc.authEnabled {
		return ""
	}
	return fallback
}

// AnalyzeEssay handles POST /ai-coach.
func (cc *CoachController) AnalyzeEssay(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req.UserID = cc.callerID(c, req.UserID)

	resp, err := cc.coach.Analyze(c.Request.Context(), req)
	if err != nil {
		cc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListAnalyses handles GET /coach/analyses.
func (cc *CoachController) ListAnalyses(c *gin.Context) {
	if !cc.coach.HasStore() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis history is not enabled"})
		return
	}

	userID := cc.callerID(c, c.Query("userId"))
	if userID == "" && cc.authEnabled {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := cc.coach.History(c.Request.Context(), userID, limit)
	if err != nil {
		cc.writeError(c, err)
		return
	}
	if records == nil {
		records = []models.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records})
}

func (cc *CoachController) writeError(c *gin.Context, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		cc.logger.Error("coach request failed", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusForError maps service error codes onto HTTP statuses.
func StatusForError(err error) int {
	se, ok := services.AsServiceError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch se.Code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorTooManyRequests:
		return http.StatusTooManyRequests
	case services.ErrorUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
