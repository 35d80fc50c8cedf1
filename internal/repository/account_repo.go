package repository

import (
	"context"
	"errors"

	"ticketpos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("积分不足")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.UserAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, userID int64) (*model.UserAccount, error) {
	var account model.UserAccount
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByIDForUpdate 在事务内对账户行加排他锁（SELECT ... FOR UPDATE）
// 锁一直持有到事务提交或回滚
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.UserAccount, error) {
	var account model.UserAccount
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Deduct 扣减积分
// 条件更新 virtual_points >= amount 作为行锁之外的第二道保护，余额永不为负
func (r *AccountRepository) Deduct(ctx context.Context, tx *gorm.DB, userID int64, amount int64) error {
	result := tx.WithContext(ctx).
		Model(&model.UserAccount{}).
		Where("id = ? AND virtual_points >= ?", userID, amount).
		Update("virtual_points", gorm.Expr("virtual_points - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBalanceNotEnough
	}

	return nil
}
