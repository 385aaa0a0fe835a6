package handler

import (
	"net/http"

	notifService "anoa.com/blooddonation/internal/modules/notification/service"
	"anoa.com/blooddonation/pkg/dto"
	"anoa.com/blooddonation/pkg/response"
	"anoa.com/blooddonation/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	service     notifService.NotificationService
	redisClient *redis.Client
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

func NewNotificationHandler(service notifService.NotificationService, redisClient *redis.Client, checkOrigin func(r *http.Request) bool, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:     service,
		redisClient: redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.PaginationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}
	limit, offset := query.Normalize()

	notifications, err := h.service.GetNotifications(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notifications})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid notification id")
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all notifications marked as read"})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// HandleWebSocket streams the user's notifications as they are published.
// The token may come in the "token" query parameter since browsers cannot
// set headers on websocket upgrades.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.redisClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live notifications are unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	pubsub := h.redisClient.Subscribe(ctx, notifService.Channel(userID))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Warn("failed to subscribe to notification channel", zap.Error(err))
		return
	}

	ch := pubsub.Channel()
	clientClosed := make(chan struct{})

	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
