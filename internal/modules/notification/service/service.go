package service

import (
	"context"
	"encoding/json"
	"fmt"

	"anoa.com/blooddonation/internal/entity"
	notifRepo "anoa.com/blooddonation/internal/modules/notification/repository"
	"anoa.com/blooddonation/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, logger *zap.Logger) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel is the redis pub/sub channel carrying a user's live notifications.
func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err != nil {
			return nil
		}
		if err := s.redisClient.Publish(ctx, Channel(notification.UserID), payload).Err(); err != nil {
			s.logger.Warn("failed to publish notification",
				zap.String("user_id", notification.UserID.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	found, err := s.repo.MarkAsRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("notification not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
