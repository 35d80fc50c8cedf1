package repository

import (
	"context"
	"errors"

	"ticketpos/internal/model"

	"gorm.io/gorm"
)

var ErrTokenAlreadyClaimed = errors.New("兑换码已被使用")

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token *model.IssuedToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindUnconsumed 按 (用户, 哈希) 查询未使用的兑换码，不存在返回 nil, nil
func (r *TokenRepository) FindUnconsumed(ctx context.Context, userID int64, hash string) (*model.IssuedToken, error) {
	var token model.IssuedToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND hash = ? AND is_used = ?", userID, hash, false).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) GetByID(ctx context.Context, id int64) (*model.IssuedToken, error) {
	var token model.IssuedToken
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// Claim 原子认领兑换码：is_used 0 -> 1
//
// 条件更新保证并发请求中只有一个能认领成功，其余返回 ErrTokenAlreadyClaimed
func (r *TokenRepository) Claim(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.IssuedToken{}).
		Where("id = ? AND is_used = ?", id, false).
		Update("is_used", true)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrTokenAlreadyClaimed
	}

	return nil
}

// DeleteIssuedBefore 删除发码时间早于 cutoffMs 的兑换码，单次最多删除 limit 条
func (r *TokenRepository) DeleteIssuedBefore(ctx context.Context, cutoffMs int64, limit int) (int64, error) {
	// DELETE ... LIMIT 不是所有方言都支持，先取主键再删除
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.IssuedToken{}).
		Where("issued_at_ms < ?", cutoffMs).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Where("id IN ? AND issued_at_ms < ?", ids, cutoffMs).
		Delete(&model.IssuedToken{})
	return result.RowsAffected, result.Error
}
