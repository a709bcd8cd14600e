package handlers

import (
	"context"
	"net/http"
	"strconv"

	"mlbattle/internal/events"
	"mlbattle/internal/leaderboard"
	"mlbattle/internal/lifecycle"
	"mlbattle/internal/models"
	"mlbattle/internal/services"
	"mlbattle/internal/store"

	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	manager      *lifecycle.Manager
	aggregator   *leaderboard.Aggregator
	store        *store.SubmissionStore
	cache        *services.LeaderboardCache
	defaultLimit int
}

func NewLeaderboardHandler(manager *lifecycle.Manager, aggregator *leaderboard.Aggregator,
	store *store.SubmissionStore, cache *services.LeaderboardCache, defaultLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		manager:      manager,
		aggregator:   aggregator,
		store:        store,
		cache:        cache,
		defaultLimit: defaultLimit,
	}
}

// WatchInvalidations drops the cached snapshot whenever the leaderboard
// changes. Caching lives entirely out here: the aggregator itself stays
// cache-free.
func (h *LeaderboardHandler) WatchInvalidations(hub *events.Hub) {
	hub.Subscribe(events.LeaderboardUpdated, func(payload any) {
		if problemID, ok := payload.(string); ok {
			h.cache.Invalidate(context.Background(), problemID)
		}
	})
}

// GetLeaderboard returns the ranked view for a problem. While the problem is
// open the rows carry public scores; once completed, the frozen final results
// (ranked by private score) are served instead.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	problemID := c.Param("id")

	problem, ok := h.manager.Get(problemID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	if problem.Status == models.ProblemCompleted && problem.FinalResults != nil {
		final := problem.FinalResults.Submissions
		if limit < len(final) {
			final = final[:limit]
		}
		c.JSON(http.StatusOK, gin.H{
			"final":       true,
			"leaderboard": final,
		})
		return
	}

	entries := h.cachedEntries(c.Request.Context(), problemID)
	if limit < len(entries) {
		entries = entries[:limit]
	}

	currentUser := contextUserID(c)
	for i := range entries {
		entries[i].IsCurrentUser = currentUser != "" && entries[i].UserID == currentUser
	}

	c.JSON(http.StatusOK, gin.H{
		"final":       false,
		"leaderboard": entries,
	})
}

// GetStats returns the submission statistics for a problem
func (h *LeaderboardHandler) GetStats(c *gin.Context) {
	problemID := c.Param("id")

	if _, ok := h.manager.Get(problemID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
		return
	}

	c.JSON(http.StatusOK, h.store.Stats(problemID))
}

// cachedEntries serves the untruncated ranked list through a short-lived
// redis snapshot, falling back to a fresh recompute.
func (h *LeaderboardHandler) cachedEntries(ctx context.Context, problemID string) []models.LeaderboardEntry {
	if entries, ok := h.cache.Get(ctx, problemID); ok {
		return entries
	}

	entries := h.aggregator.Recompute(problemID)
	h.cache.Set(ctx, problemID, entries)
	return entries
}

func (h *LeaderboardHandler) RegisterRoutes(router *gin.Engine, optionalAuth gin.HandlerFunc) {
	problemGroup := router.Group("/problems")
	{
		problemGroup.GET("/:id/leaderboard", optionalAuth, h.GetLeaderboard)
		problemGroup.GET("/:id/stats", h.GetStats)
	}
}
