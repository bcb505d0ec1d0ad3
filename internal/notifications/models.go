package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Delivery channels
const (
	ChannelInApp     = "in_app"
	ChannelWebSocket = "websocket"
	ChannelSNS       = "sns"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uint           `json:"user_id" gorm:"not null;index"`
	CaseID    *uint          `json:"case_id,omitempty" gorm:"index"`
	Type      string         `json:"type" gorm:"size:100;not null"`
	Title     string         `json:"title" gorm:"size:255;not null"`
	Message   string         `json:"message" gorm:"type:text"`
	Metadata  datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	IsRead    bool           `json:"is_read" gorm:"not null;default:false"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate assigns the id
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// DeliveryLog records the outcome of one channel delivery attempt.
type DeliveryLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	EventType    string    `json:"event_type" gorm:"size:100;not null"`
	CaseID       uint      `json:"case_id" gorm:"index"`
	Channel      string    `json:"channel" gorm:"size:30;not null"`
	Status       string    `json:"status" gorm:"size:20;not null"`
	ErrorMessage *string   `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (DeliveryLog) TableName() string {
	return "notification_delivery_logs"
}

// Delivery statuses
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)
