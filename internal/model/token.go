package model

import (
	"time"
)

// IssuedToken 已下发给用户的 QR 兑换码
// 由外部发码流程写入；兑换成功时被认领（is_used=1）；过期加宽限期后由清理任务删除
type IssuedToken struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"not null;index:idx_token_user_hash,priority:1" json:"user_id"`
	Hash       string    `gorm:"type:varchar(128);not null;index:idx_token_user_hash,priority:2" json:"hash"`
	IssuedAtMs int64     `gorm:"column:issued_at_ms;not null;index" json:"issued_at_ms"` // 发码时间（毫秒时间戳）
	IsUsed     bool      `gorm:"not null;default:false" json:"is_used"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (IssuedToken) TableName() string {
	return "qr_issued_tokens"
}
