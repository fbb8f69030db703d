package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"texpro/internal/pkg/response"
)

type Handler struct {
	service *Service
	hub     *Hub
}

func NewHandler(service *Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

func (h *Handler) GetNotifications(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit := 20
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
			if limit > 100 {
				limit = 100
			}
		}
	}

	offset := 0
	if s := c.Query("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	list, unread, err := h.service.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to get notifications")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"notifications": list,
		"unread_count":  unread,
	})
}

func (h *Handler) GetUnreadCount(c *gin.Context) {
	userID := c.GetInt64("user_id")
	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to count notifications")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread_count": count})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	userID := c.GetInt64("user_id")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID")
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Notification not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark as read")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"marked": true})
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if err := h.service.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark all as read")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"marked": true})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	userID := c.GetInt64("user_id")
	prefs, err := h.service.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to get preferences")
		return
	}
	response.Success(c, http.StatusOK, prefs)
}

type updatePreferencesRequest struct {
	InAppEnabled    *bool           `json:"in_app_enabled"`
	EmailEnabled    *bool           `json:"email_enabled"`
	QuietHoursStart *int            `json:"quiet_hours_start"`
	QuietHoursEnd   *int            `json:"quiet_hours_end"`
	PerTypeSettings map[string]bool `json:"per_type_settings"`
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req updatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	prefs, err := h.service.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to get preferences")
		return
	}

	if req.InAppEnabled != nil {
		prefs.InAppEnabled = *req.InAppEnabled
	}
	if req.EmailEnabled != nil {
		prefs.EmailEnabled = *req.EmailEnabled
	}
	prefs.QuietHoursStart = req.QuietHoursStart
	prefs.QuietHoursEnd = req.QuietHoursEnd
	if req.PerTypeSettings != nil {
		prefs.PerTypeSettings = req.PerTypeSettings
	}

	if err := h.service.UpdatePreferences(c.Request.Context(), prefs); err != nil {
		if errors.Is(err, ErrInvalidQuietHours) {
			response.Error(c, http.StatusUnprocessableEntity, "INVALID_QUIET_HOURS", err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update preferences")
		return
	}
	response.Success(c, http.StatusOK, prefs)
}

// Stream upgrades to a websocket that receives new notifications live.
func (h *Handler) Stream(c *gin.Context) {
	userID := c.GetInt64("user_id")
	h.hub.Serve(c.Writer, c.Request, userID)
}

// RegisterRoutes registers all notification-related routes
func RegisterRoutes(protected *gin.RouterGroup, handler *Handler) {
	notifGroup := protected.Group("/notifications")
	{
		notifGroup.GET("", handler.GetNotifications)
		notifGroup.GET("/unread-count", handler.GetUnreadCount)
		notifGroup.PATCH("/:id/read", handler.MarkAsRead)
		notifGroup.POST("/read-all", handler.MarkAllAsRead)
		notifGroup.GET("/stream", handler.Stream)

		prefsGroup := notifGroup.Group("/preferences")
		{
			prefsGroup.GET("", handler.GetPreferences)
			prefsGroup.PATCH("", handler.UpdatePreferences)
		}
	}
}
