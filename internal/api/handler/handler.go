// Package handler exposes the services over HTTP with gin.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/badge"
	"campusvoice/backend/internal/comment"
	"campusvoice/backend/internal/complaint"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/notify"
	"campusvoice/backend/internal/notifyhub"
	"campusvoice/backend/internal/reconcile"
	"campusvoice/backend/internal/vote"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// UserStore is what authentication needs from storage.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Handler містить посилання на сервіси
type Handler struct {
	Users      UserStore
	Tokens     *Tokens
	Complaints *complaint.Service
	Comments   *comment.Service
	Votes      *vote.Service
	Badges     *badge.Awarder
	Inbox      *notify.Emitter
	Reconcile  *reconcile.Service
	Hub        *notifyhub.ManagerService

	// Dev exposes internal error details in 500 responses.
	Dev bool
}

// NewRouter wires every route. origins lists the allowed CORS origins; "*"
// allows any.
func NewRouter(h *Handler, origins []string) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) { respond(c, http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.GET("/me", h.AuthRequired(), h.Me)

	api.GET("/complaints", h.ListComplaints)
	api.GET("/complaints/:id", h.GetComplaint)
	api.GET("/complaints/:id/comments", h.ListComments)
	api.GET("/complaints/:id/votes", h.ComplaintVotes)
	api.GET("/comments/:id/votes", h.CommentVotes)
	api.GET("/badges", h.ListBadges)
	api.GET("/users/:id/badges", h.ListUserBadges)

	authed := api.Group("", h.AuthRequired())
	authed.POST("/complaints", h.CreateComplaint)
	authed.PUT("/complaints/:id", h.UpdateComplaint)
	authed.DELETE("/complaints/:id", h.DeleteComplaint)
	authed.POST("/complaints/:id/vote", h.VoteComplaint)
	authed.POST("/complaints/:id/comments", h.CreateComment)
	authed.PUT("/comments/:id", h.EditComment)
	authed.DELETE("/comments/:id", h.DeleteComment)
	authed.POST("/comments/:id/vote", h.VoteComment)

	authed.GET("/notifications", h.ListNotifications)
	authed.GET("/notifications/unread-count", h.UnreadCount)
	authed.PATCH("/notifications/read-all", h.MarkAllRead)
	authed.PATCH("/notifications/:id/read", h.MarkRead)

	admin := authed.Group("", h.AdminOnly())
	admin.PATCH("/complaints/:id/status", h.UpdateStatus)
	admin.POST("/complaints/:id/reply", h.Reply)
	admin.POST("/admin/badges/:id/grant", h.GrantBadge)
	admin.POST("/admin/reconcile", h.RunReconcile)

	return r
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// fail writes the error envelope. Expected domain errors carry their own
// message; anything else is logged and hidden behind a generic 500.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	message := err.Error()

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		if !h.Dev {
			message = "internal server error"
		}
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   http.StatusText(status),
		"message": message,
	})
}

func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.InvalidInput("invalid request body: %v", err)
	}
	return nil
}

// pageParams reads ?page=&limit=. Bad numbers fall back to the defaults.
func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	limit, _ = strconv.Atoi(c.Query("limit"))
	return page, limit
}
