// Package api exposes the service over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camdenhq/rapport/internal/auth"
	"github.com/camdenhq/rapport/internal/metrics"
	"github.com/camdenhq/rapport/internal/model"
	"github.com/camdenhq/rapport/internal/store"
)

// SyncService runs one sync for a user.
type SyncService interface {
	Sync(ctx context.Context, userID, userEmail string) (*model.SyncReport, error)
}

// Recomputer runs the scoring pass on its own.
type Recomputer interface {
	RecomputeAll(ctx context.Context, userID string) error
}

// BriefService generates briefs and follow-up drafts.
type BriefService interface {
	GenerateBrief(ctx context.Context, userID string) (*model.Brief, error)
	GenerateDraft(ctx context.Context, userID, contactID string) (*model.FollowUpDraft, error)
}

// Handler bundles the collaborators the routes need.
type Handler struct {
	Sync       SyncService
	Recomputer Recomputer
	Briefs     BriefService
	Store      *store.Store
	Metrics    *metrics.Metrics
}

// NewRouter wires the routes. authMW guards everything under /api.
func NewRouter(h *Handler, authMW gin.HandlerFunc) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	apiGroup := r.Group("/api")
	apiGroup.Use(authMW)
	{
		apiGroup.POST("/account", h.handleUpsertAccount)
		apiGroup.POST("/sync", h.handleSync)
		apiGroup.POST("/scores/recompute", h.handleRecompute)
		apiGroup.GET("/dashboard", h.handleDashboard)
		apiGroup.GET("/contacts", h.handleListContacts)
		apiGroup.GET("/contacts/:id", h.handleGetContact)
		apiGroup.POST("/brief", h.handleGenerateBrief)
		apiGroup.GET("/brief", h.handleLatestBrief)
		apiGroup.POST("/draft", h.handleDraft)
	}

	return r
}

// AuthMiddleware verifies the bearer JWT and stashes the caller identity.
func AuthMiddleware(verifier *auth.JWTVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := verifier.IdentityFromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user_id", identity.UserID)
		c.Set("user_email", identity.Email)
		c.Next()
	}
}
