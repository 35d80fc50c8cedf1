package service

import (
	"context"

	"ticketpos/internal/model"
	"ticketpos/internal/repository"

	"gorm.io/gorm"
)

// ReceiptService 按流水号查询收款记录，供终端补打小票
type ReceiptService struct {
	paymentRepo *repository.PaymentRepository
}

func NewReceiptService(db *gorm.DB) *ReceiptService {
	return &ReceiptService{paymentRepo: repository.NewPaymentRepository(db)}
}

// GetPayment 不存在时返回 nil, nil
func (s *ReceiptService) GetPayment(ctx context.Context, paymentNo string) (*model.PaymentRecord, error) {
	payment, err := s.paymentRepo.GetByPaymentNo(ctx, paymentNo)
	if err != nil {
		return nil, storageError("查询流水失败", err)
	}
	return payment, nil
}
