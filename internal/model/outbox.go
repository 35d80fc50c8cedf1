package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 支付结果事件，与支付流水在同一事务中写入，由 OutboxSender 投递到 Kafka
type OutboxMessage struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string         `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string         `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    datatypes.JSON `gorm:"not null" json:"payload"`
	Status     string         `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int            `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// PaymentEvent 支付结果事件载荷
type PaymentEvent struct {
	PaymentNo  string     `json:"payment_no"`
	UserID     *int64     `json:"user_id,omitempty"`
	MenuName   string     `json:"menu_name"`
	Amount     int64      `json:"amount"`
	Channel    string     `json:"channel"`
	Restaurant Restaurant `json:"restaurant"`
	Status     string     `json:"status"`
	PaidAt     time.Time  `json:"paid_at"`
}

// NewPaymentEvent 由支付流水构造事件载荷
func NewPaymentEvent(p *PaymentRecord) PaymentEvent {
	return PaymentEvent{
		PaymentNo:  p.PaymentNo,
		UserID:     p.UserID,
		MenuName:   p.MenuName,
		Amount:     p.Amount,
		Channel:    p.Channel,
		Restaurant: p.Restaurant,
		Status:     p.Status,
		PaidAt:     p.PaidAt,
	}
}
