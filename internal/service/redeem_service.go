package service

import (
	"context"
	"errors"
	"time"

	"ticketpos/internal/model"
	"ticketpos/internal/pricing"
	"ticketpos/internal/qrtoken"
	"ticketpos/internal/repository"
	"ticketpos/pkg/idgen"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RedeemService 兑换码扣积分（余额账本核心）
type RedeemService struct {
	db          *gorm.DB
	validator   *qrtoken.Validator
	accountRepo *repository.AccountRepository
	tokenRepo   *repository.TokenRepository
	paymentRepo *repository.PaymentRepository
	outboxRepo  *repository.OutboxRepository
	eventTopic  string
	now         func() time.Time
}

// NewRedeemService 创建兑换服务，eventTopic 为空时不写支付事件
func NewRedeemService(db *gorm.DB, validator *qrtoken.Validator, eventTopic string) *RedeemService {
	return &RedeemService{
		db:          db,
		validator:   validator,
		accountRepo: repository.NewAccountRepository(db),
		tokenRepo:   repository.NewTokenRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		eventTopic:  eventTopic,
		now:         time.Now,
	}
}

type RedeemRequest struct {
	Validation  *qrtoken.Validation
	Restaurant  model.Restaurant
	TicketCount int
}

type RedeemResult struct {
	PaymentNo    string
	Deducted     int64
	Restaurant   model.Restaurant
	BalanceAfter int64
}

// RedeemToken 校验兑换码后扣减积分
// 校验失败不会开启事务，也不修改任何状态
func (s *RedeemService) RedeemToken(ctx context.Context, rawToken string, restaurant model.Restaurant, ticketCount int) (*RedeemResult, error) {
	validation, err := s.validator.Validate(ctx, rawToken)
	if err != nil {
		if isTokenError(err) {
			return nil, err
		}
		return nil, storageError("校验兑换码失败", err)
	}

	return s.Redeem(ctx, &RedeemRequest{
		Validation:  validation,
		Restaurant:  restaurant,
		TicketCount: ticketCount,
	})
}

// Redeem 在一个事务内完成：锁账户 -> 认领兑换码 -> 校验余额 -> 扣减 -> 写流水 -> 写事件
//
// 【关键点】
// 1. 账户行锁保证同一用户的并发兑换串行执行，不会读到扣减前的旧余额
// 2. 兑换码认领与扣款在同一事务，同一兑换码只能成功兑换一次
// 3. 任一步失败整体回滚，余额、兑换码状态、流水都不变
func (s *RedeemService) Redeem(ctx context.Context, req *RedeemRequest) (*RedeemResult, error) {
	totalDue, err := pricing.TotalDue(req.Restaurant, req.TicketCount)
	if err != nil {
		return nil, err
	}

	userID := req.Validation.UserID()
	payment := &model.PaymentRecord{
		PaymentNo:  idgen.GeneratePaymentNo(),
		UserID:     &userID,
		MenuName:   pricing.MenuLabel(req.TicketCount),
		Amount:     totalDue,
		Channel:    model.PaymentChannelToken,
		Restaurant: req.Restaurant,
		Status:     model.PaymentStatusSuccess,
		PaidAt:     s.now(),
	}

	var balanceAfter int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrInsufficientBalance
			}
			return storageError("锁定账户失败", err)
		}

		if req.Validation.MustClaim {
			if err := s.tokenRepo.Claim(ctx, tx, req.Validation.TokenID); err != nil {
				if errors.Is(err, repository.ErrTokenAlreadyClaimed) {
					return qrtoken.ErrTokenNotFound
				}
				return storageError("认领兑换码失败", err)
			}
		}

		if account.VirtualPoints < totalDue {
			return ErrInsufficientBalance
		}

		if err := s.accountRepo.Deduct(ctx, tx, userID, totalDue); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrInsufficientBalance
			}
			return storageError("扣减积分失败", err)
		}

		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return storageError("记录流水失败", err)
		}

		if s.eventTopic != "" {
			if err := s.outboxRepo.Enqueue(ctx, tx, s.eventTopic, payment.PaymentNo, model.NewPaymentEvent(payment)); err != nil {
				return storageError("写入消息失败", err)
			}
		}

		balanceAfter = account.VirtualPoints - totalDue
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrStorage) || isTokenError(err) {
			return nil, err
		}
		// 提交失败
		return nil, storageError("兑换事务失败", err)
	}

	log.Infof("[Redeem] 兑换成功: paymentNo=%s, userID=%d, amount=%d, restaurant=%s, claimed=%v",
		payment.PaymentNo, userID, totalDue, req.Restaurant, req.Validation.MustClaim)

	return &RedeemResult{
		PaymentNo:    payment.PaymentNo,
		Deducted:     totalDue,
		Restaurant:   req.Restaurant,
		BalanceAfter: balanceAfter,
	}, nil
}

func isTokenError(err error) bool {
	return errors.Is(err, qrtoken.ErrMalformedToken) ||
		errors.Is(err, qrtoken.ErrInvalidToken) ||
		errors.Is(err, qrtoken.ErrTokenExpired) ||
		errors.Is(err, qrtoken.ErrTokenNotFound)
}
