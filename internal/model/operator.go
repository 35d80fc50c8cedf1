package model

import (
	"time"
)

// Operator POS 终端运营者账户，所属食堂决定兑换单价
type Operator struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Password   string     `gorm:"type:varchar(255);not null" json:"-"` // bcrypt 哈希
	Restaurant Restaurant `gorm:"type:varchar(16);not null" json:"restaurant"`
	Active     bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Operator) TableName() string {
	return "pos_accounts"
}
