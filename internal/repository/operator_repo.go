package repository

import (
	"context"
	"errors"

	"ticketpos/internal/model"

	"gorm.io/gorm"
)

var ErrOperatorNotFound = errors.New("运营者账户不存在")

type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) Create(ctx context.Context, operator *model.Operator) error {
	return r.db.WithContext(ctx).Create(operator).Error
}

func (r *OperatorRepository) GetByUsername(ctx context.Context, username string) (*model.Operator, error) {
	var operator model.Operator
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&operator).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}
	return &operator, nil
}
