// Package testutil 测试用的内存数据库与数据构造
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ticketpos/internal/config"
	"ticketpos/internal/infrastructure/database"
	"ticketpos/internal/model"
	"ticketpos/internal/repository"
	"ticketpos/internal/security"

	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB 创建迁移完成的内存 SQLite
//
// 只开一个连接：SQLite 没有行锁，单连接让事务串行执行，
// 与生产环境中行锁对同一账户的串行化效果一致
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ticketpos_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := database.Open(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedAccount 创建指定积分的用户账户
func SeedAccount(t *testing.T, db *gorm.DB, points int64) *model.UserAccount {
	t.Helper()
	account := &model.UserAccount{VirtualPoints: points}
	if err := repository.NewAccountRepository(db).Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

// SeedToken 写入一条发码记录，返回记录和对应的线上格式字符串
func SeedToken(t *testing.T, db *gorm.DB, userID int64, hash string, issuedAt time.Time) (*model.IssuedToken, string) {
	t.Helper()
	token := &model.IssuedToken{UserID: userID, Hash: hash, IssuedAtMs: issuedAt.UnixMilli()}
	if err := repository.NewTokenRepository(db).Create(context.Background(), token); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	raw := fmt.Sprintf("%d|%s|%s#%d", userID, hash, issuedAt.Format("20060102"), issuedAt.UnixMilli())
	return token, raw
}

// SeedOperator 创建运营者账户
func SeedOperator(t *testing.T, db *gorm.DB, username, password string, restaurant model.Restaurant) *model.Operator {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	op := &model.Operator{Username: username, Password: hash, Restaurant: restaurant, Active: true}
	if err := repository.NewOperatorRepository(db).Create(context.Background(), op); err != nil {
		t.Fatalf("seed operator: %v", err)
	}
	return op
}

// Points 读取账户当前积分
func Points(t *testing.T, db *gorm.DB, userID int64) int64 {
	t.Helper()
	account, err := repository.NewAccountRepository(db).GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	return account.VirtualPoints
}

// CountRows 统计表行数
func CountRows(t *testing.T, db *gorm.DB, value interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(value).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}
