package api

import (
	"net/http"

	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) listNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	list, err := h.svc.Notifications.List(c.Request.Context(), currentUserID(c), unreadOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) unreadCount(c *gin.Context) {
	n, err := h.svc.Notifications.UnreadCount(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (h *Handler) markRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.MarkRead(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) markAllRead(c *gin.Context) {
	if err := h.svc.Notifications.MarkAllRead(c.Request.Context(), currentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// notificationStream upgrades to a websocket that receives new notifications
// as they are created.
func (h *Handler) notificationStream(c *gin.Context) {
	if err := h.hub.Serve(c.Writer, c.Request, currentUserID(c)); err != nil {
		// the upgrader has already replied
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
	}
}
