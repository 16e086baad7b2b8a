package rest

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coverline/backend/internal/application/services"
)

// NotificationHandler handles customer notification API endpoints
type NotificationHandler struct {
	svc *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(svc *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// ListForCustomer handles GET /api/notifications/customer/:customerId
func (h *NotificationHandler) ListForCustomer(c *gin.Context) {
	customerID := c.Param("customerId")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	HandleGetEnvelope(c, "notifications", func() (interface{}, error) {
		return h.svc.ListForCustomer(c.Request.Context(), customerID, limit)
	})
}

// MarkAsRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id := c.Param("id")
	HandleActionEnvelope(c, "Notification marked as read", func() error {
		return h.svc.MarkRead(c.Request.Context(), id)
	})
}
