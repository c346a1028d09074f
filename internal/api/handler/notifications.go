package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type grantRequest struct {
	UserID string `json:"userId"`
}

// ListNotifications returns the caller's inbox, newest first. ?unread=true
// limits it to unread entries.
func (h *Handler) ListNotifications(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := h.Inbox.List(c.Request.Context(), actor(c).ID, c.Query("unread") == "true", page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.Inbox.UnreadCount(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"count": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	result, err := h.Inbox.MarkRead(c.Request.Context(), actor(c).ID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.Inbox.MarkAllRead(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"updated": n})
}

func (h *Handler) ListBadges(c *gin.Context) {
	result, err := h.Badges.Catalog(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) ListUserBadges(c *gin.Context) {
	result, err := h.Badges.UserBadges(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// GrantBadge is the manual path for admin_approved badges.
func (h *Handler) GrantBadge(c *gin.Context) {
	var req grantRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Badges.Grant(c.Request.Context(), req.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// RunReconcile rebuilds every counter and tally from source rows.
func (h *Handler) RunReconcile(c *gin.Context) {
	report, err := h.Reconcile.Everything(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}
