package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/camdenhq/rapport/internal/model"
)

func (h *Handler) handleSync(c *gin.Context) {
	userID := c.GetString("user_id")
	userEmail := c.GetString("user_email")

	report, err := h.Sync.Sync(c.Request.Context(), userID, userEmail)
	if err != nil {
		if h.Metrics != nil {
			h.Metrics.RecordSync("error", 0, 0, 0, 0)
		}
		respondError(c, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordSync("ok",
			report.EmailContactsUpserted, report.EmailInteractionsCreated,
			report.CalendarContactsUpserted, report.CalendarInteractionsCreated)
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) handleRecompute(c *gin.Context) {
	if err := h.Recomputer.RecomputeAll(c.Request.Context(), c.GetString("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) handleDashboard(c *gin.Context) {
	dashboard, err := h.Store.LoadDashboard(c.Request.Context(), c.GetString("user_id"), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *Handler) handleListContacts(c *gin.Context) {
	contacts, err := h.Store.ListContacts(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

func (h *Handler) handleGetContact(c *gin.Context) {
	ctx := c.Request.Context()

	contact, err := h.Store.GetContact(ctx, c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	interactions, err := h.Store.ListRecentInteractions(ctx, contact.ID, 50)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contact": contact, "interactions": interactions})
}

func (h *Handler) handleGenerateBrief(c *gin.Context) {
	b, err := h.Briefs.GenerateBrief(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) handleLatestBrief(c *gin.Context) {
	b, err := h.Store.LatestBrief(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if b == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, b)
}

type accountRequest struct {
	Provider     string `json:"provider"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"` // unix seconds, 0 when unknown
}

// handleUpsertAccount records the caller's connected provider account. The
// identity layer calls this after sign-in with the token pair it obtained.
func (h *Handler) handleUpsertAccount(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provider := model.Provider(req.Provider)
	if provider == "" {
		provider = model.ProviderGoogle
	}

	user := &model.User{
		ID:           c.GetString("user_id"),
		Email:        c.GetString("user_email"),
		Provider:     provider,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}
	if req.ExpiresAt > 0 {
		user.TokenExpiry = time.Unix(req.ExpiresAt, 0)
	}

	saved, err := h.Store.UpsertUser(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

type draftRequest struct {
	ContactID string `json:"contactId" binding:"required"`
}

func (h *Handler) handleDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contactId required"})
		return
	}

	draft, err := h.Briefs.GenerateDraft(c.Request.Context(), c.GetString("user_id"), req.ContactID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// respondError maps the error kinds to HTTP statuses: expired auth is 401,
// provider denial is 403, a concurrent sync is 409, a missing contact 404,
// everything else 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrAuthExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrSyncRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrContactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		if pe, ok := model.IsProviderError(err); ok {
			status := http.StatusForbidden
			if pe.StatusCode == http.StatusTooManyRequests {
				status = http.StatusTooManyRequests
			}
			c.JSON(status, gin.H{"error": pe.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
