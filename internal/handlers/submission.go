package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"mlbattle/internal/lifecycle"
	"mlbattle/internal/logger"
	"mlbattle/internal/middlewares"
	"mlbattle/internal/models"
	"mlbattle/internal/scoring"
	"mlbattle/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubmissionHandler struct {
	manager *lifecycle.Manager
	store   *store.SubmissionStore
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(manager *lifecycle.Manager, store *store.SubmissionStore) *SubmissionHandler {
	return &SubmissionHandler{
		manager: manager,
		store:   store,
	}
}

// CreateSubmission handles the submission creation request
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req models.SubmissionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.ValidateRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := contextUserID(c)
	sub, err := h.manager.Submit(userID, req)

	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"submission": publicView(sub)})
	case errors.Is(err, lifecycle.ErrWindowClosed):
		c.JSON(http.StatusAccepted, gin.H{
			"submission": publicView(sub),
			"message":    "Problem window has closed; submission recorded for audit only",
		})
	case errors.Is(err, lifecycle.ErrProblemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
	case errors.Is(err, lifecycle.ErrProblemClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "Problem is no longer accepting submissions"})
	case errors.Is(err, lifecycle.ErrSubmissionLimit):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Submission limit reached for this problem"})
	case errors.Is(err, scoring.ErrUnknownModel):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown model name"})
	case sub.Status == models.StatusFailed:
		// Recorded for the audit trail, but evaluation failed.
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"submission": publicView(sub),
			"error":      "Submission evaluation failed",
		})
	default:
		logger.Log.Error("Failed to process submission",
			zap.String("user_id", userID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process submission"})
	}
}

// GetUserSubmissions returns the caller's submission history for a problem
func (h *SubmissionHandler) GetUserSubmissions(c *gin.Context) {
	problemID := c.Query("problem_id")
	if problemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "problem_id query parameter is required"})
		return
	}

	if _, ok := h.manager.Get(problemID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
		return
	}

	userID := contextUserID(c)
	subs := h.store.UserSubmissions(problemID, userID)

	views := make([]models.Submission, 0, len(subs))
	for _, sub := range subs {
		views = append(views, publicView(sub))
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": views,
		"count":       len(views),
	})
}

// publicView strips the held-back private score from user-facing responses.
// It is revealed only through a completed problem's final results.
func publicView(sub models.Submission) models.Submission {
	sub.PrivateScore = 0
	return sub
}

// contextUserID returns the authenticated user's id as the opaque string the
// core works with.
func contextUserID(c *gin.Context) string {
	id, _ := c.Get(middlewares.UserIDContextKey)
	if n, ok := id.(int); ok {
		return strconv.Itoa(n)
	}
	return ""
}

func (h *SubmissionHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	submissionGroup := router.Group("/submissions")
	submissionGroup.Use(auth)
	{
		submissionGroup.POST("", h.CreateSubmission)
		submissionGroup.GET("", h.GetUserSubmissions)
	}
}
