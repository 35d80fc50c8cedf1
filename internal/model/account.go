package model

import (
	"time"
)

// UserAccount 用户积分账户
// 余额只在带行锁的兑换事务中扣减，任何时候都不能为负
type UserAccount struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	VirtualPoints int64     `gorm:"not null;default:0" json:"virtual_points"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserAccount) TableName() string {
	return "users"
}
