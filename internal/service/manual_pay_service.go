package service

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ticketpos/internal/model"
	"ticketpos/internal/pricing"
	"ticketpos/internal/repository"
	"ticketpos/pkg/idgen"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxMenuNameRunes = 255

var cardNumberPattern = regexp.MustCompile(`^\d{16}$`)

// ManualPayService 手工录入的刷卡/现金收款，只记账，不动积分
type ManualPayService struct {
	db          *gorm.DB
	paymentRepo *repository.PaymentRepository
	outboxRepo  *repository.OutboxRepository
	eventTopic  string
	now         func() time.Time
}

func NewManualPayService(db *gorm.DB, eventTopic string) *ManualPayService {
	return &ManualPayService{
		db:          db,
		paymentRepo: repository.NewPaymentRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		eventTopic:  eventTopic,
		now:         time.Now,
	}
}

// ManualPayRequest 金额保留终端提交的原始文本，数字和字符串都可能出现
type ManualPayRequest struct {
	MenuName   string
	Amount     string
	Method     string
	CardNumber string
}

type ManualPayResult struct {
	PaymentNo  string
	Channel    string
	Restaurant model.Restaurant
}

// Pay 校验并写入一条手工收款流水
func (s *ManualPayService) Pay(ctx context.Context, req *ManualPayRequest) (*ManualPayResult, error) {
	if strings.TrimSpace(req.MenuName) == "" || strings.TrimSpace(req.Method) == "" {
		return nil, invalid("menuName", "메뉴명과 결제방식은 필수입니다.")
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		return nil, invalid("amount", "올바른 금액을 입력해주세요.")
	}

	channel := strings.ToLower(strings.TrimSpace(req.Method))
	if channel != model.PaymentChannelCard && channel != model.PaymentChannelCash {
		return nil, invalid("method", "결제방식은 card 또는 cash만 가능합니다.")
	}

	var cardSuffix *string
	if channel == model.PaymentChannelCard {
		if !cardNumberPattern.MatchString(req.CardNumber) {
			return nil, invalid("cardNumber", "카드번호는 16자리 숫자여야 합니다.")
		}
		// 只保存卡号后四位
		suffix := req.CardNumber[len(req.CardNumber)-4:]
		cardSuffix = &suffix
	}

	restaurant := pricing.InferRestaurant(req.MenuName, amount)
	payment := &model.PaymentRecord{
		PaymentNo:  idgen.GeneratePaymentNo(),
		MenuName:   truncateRunes(req.MenuName, maxMenuNameRunes),
		Amount:     amount,
		Channel:    channel,
		CardSuffix: cardSuffix,
		Restaurant: restaurant,
		Status:     model.PaymentStatusSuccess,
		PaidAt:     s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return err
		}
		if s.eventTopic != "" {
			return s.outboxRepo.Enqueue(ctx, tx, s.eventTopic, payment.PaymentNo, model.NewPaymentEvent(payment))
		}
		return nil
	})
	if err != nil {
		return nil, storageError("记录手工收款失败", err)
	}

	log.Infof("[ManualPay] 收款成功: paymentNo=%s, channel=%s, amount=%d, restaurant=%s",
		payment.PaymentNo, channel, amount, restaurant)

	return &ManualPayResult{
		PaymentNo:  payment.PaymentNo,
		Channel:    channel,
		Restaurant: restaurant,
	}, nil
}

// parseAmount 接受 "9600"、"9600.0"，拒绝非数字、小数、非正数
func parseAmount(raw string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f <= 0 || f != math.Trunc(f) || f > math.MaxInt64/2 {
		return 0, false
	}
	return int64(f), true
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
