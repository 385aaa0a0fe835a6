package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationRequestReceived NotificationType = "request_received"
	NotificationRequestAccepted NotificationType = "request_accepted"
	NotificationRequestRejected NotificationType = "request_rejected"
)

type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"` // recipient
	ActorID   uuid.UUID        `gorm:"type:uuid;not null" json:"actor_id"`
	RequestID uint             `gorm:"not null" json:"request_id"`
	Type      NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Message   string           `gorm:"type:text" json:"message"`
	IsRead    bool             `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
