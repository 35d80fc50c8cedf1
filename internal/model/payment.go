package model

import (
	"time"
)

// ============================================================================
// 支付渠道 / 状态常量
// ============================================================================

const (
	PaymentChannelToken = "token" // QR 兑换码扣积分
	PaymentChannelCard  = "card"  // 手工录入刷卡
	PaymentChannelCash  = "cash"  // 手工录入现金
)

const (
	PaymentStatusSuccess = "success"
)

// PaymentRecord 支付流水
//
// 【重要】只追加，不修改，不删除
// 仓储层不提供任何更新方法
type PaymentRecord struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo  string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	// 手工录入时为空
	UserID     *int64     `gorm:"index" json:"user_id"`
	MenuName   string     `gorm:"type:varchar(255);not null" json:"menu_name"`
	Amount     int64      `gorm:"not null" json:"amount"`
	Channel    string     `gorm:"type:varchar(16);not null" json:"channel"`
	// 只保留卡号后4位
	CardSuffix *string    `gorm:"type:varchar(4)" json:"card_suffix,omitempty"`
	Restaurant Restaurant `gorm:"type:varchar(16);not null;index" json:"restaurant"`
	Status     string     `gorm:"type:varchar(16);not null" json:"status"`
	PaidAt     time.Time  `gorm:"not null;index" json:"paid_at"`
}

func (PaymentRecord) TableName() string {
	return "pos_payments"
}
