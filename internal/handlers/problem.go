package handlers

import (
	"net/http"
	"time"

	"mlbattle/internal/lifecycle"
	"mlbattle/internal/models"

	"github.com/gin-gonic/gin"
)

type ProblemHandler struct {
	manager *lifecycle.Manager
}

// NewProblemHandler creates a new problem handler
func NewProblemHandler(manager *lifecycle.Manager) *ProblemHandler {
	return &ProblemHandler{manager: manager}
}

// GetCurrentProblem returns the active problem instance
func (h *ProblemHandler) GetCurrentProblem(c *gin.Context) {
	problem, ok := h.manager.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active problem"})
		return
	}

	c.JSON(http.StatusOK, problemView(problem))
}

// GetTimeRemaining returns the remaining submission window of the active problem
func (h *ProblemHandler) GetTimeRemaining(c *gin.Context) {
	problem, ok := h.manager.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active problem"})
		return
	}

	c.JSON(http.StatusOK, problem.TimeRemaining(time.Now()))
}

// GetProblemHistory returns every problem instance, oldest first
func (h *ProblemHandler) GetProblemHistory(c *gin.Context) {
	problems := h.manager.History()

	views := make([]models.Problem, 0, len(problems))
	for _, p := range problems {
		views = append(views, problemView(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"problems": views,
		"count":    len(views),
	})
}

// GetProblemByID returns one problem instance
func (h *ProblemHandler) GetProblemByID(c *gin.Context) {
	problem, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
		return
	}

	c.JSON(http.StatusOK, problemView(problem))
}

// problemView hides the final results until the evaluation phase completes.
func problemView(p models.Problem) models.Problem {
	if p.Status != models.ProblemCompleted {
		p.FinalResults = nil
	}
	return p
}

// RegisterRoutes registers the problem handler routes
func (h *ProblemHandler) RegisterRoutes(router *gin.Engine) {
	problemGroup := router.Group("/problems")
	{
		problemGroup.GET("/current", h.GetCurrentProblem)
		problemGroup.GET("/current/time-remaining", h.GetTimeRemaining)
		problemGroup.GET("/history", h.GetProblemHistory)
		problemGroup.GET("/:id", h.GetProblemByID)
	}
}
