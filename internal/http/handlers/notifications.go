package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/notifications
func (h Handler) ListNotifications(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	out, err := h.Notifications.ListAll(c.Request.Context(), rc)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/notifications/unread
func (h Handler) ListUnreadNotifications(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	out, err := h.Notifications.ListUnread(c.Request.Context(), rc)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/notifications/unread-count
func (h Handler) UnreadNotificationCount(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	n, err := h.Notifications.UnreadCount(c.Request.Context(), rc)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// PATCH /api/notifications/:id/read
func (h Handler) MarkNotificationRead(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := h.Notifications.MarkRead(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// PATCH /api/notifications/:id/archive
func (h Handler) ArchiveNotification(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := h.Notifications.Archive(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// PATCH /api/notifications/read-all
func (h Handler) MarkAllNotificationsRead(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	n, err := h.Notifications.MarkAllRead(c.Request.Context(), rc)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
