package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"ticketpos/internal/pricing"
	"ticketpos/internal/qrtoken"
	"ticketpos/internal/service"
	"ticketpos/pkg/response"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// 终端展示的提示语
const (
	msgAuthRequired      = "POS 로그인 필요"
	msgSessionInvalid    = "유효하지 않은 로그인 세션입니다."
	msgSessionExpired    = "로그인 세션이 만료되었습니다."
	msgAccountNotFound   = "인증 실패: 계정 없음"
	msgPasswordMismatch  = "인증 실패: 비밀번호 불일치"
	msgPayFieldsMissing  = "qrToken 또는 ticketCount가 누락되었습니다."
	msgMalformedToken    = "잘못된 QR 토큰 형식입니다."
	msgInvalidToken      = "잘못된 QR 토큰입니다."
	msgTokenExpired      = "QR 토큰이 만료되었습니다."
	msgTokenNotFound     = "유효하지 않거나 이미 사용된 QR입니다."
	msgInsufficient      = "포인트 부족"
	msgUnpriced          = "단가가 설정되지 않은 식당입니다."
	msgInvalidTicketNum  = "식권 수량이 올바르지 않습니다."
	msgPaymentNotFound   = "결제 내역을 찾을 수 없습니다."
	msgBadRequest        = "잘못된 요청입니다."
	msgServerError       = "서버 오류"
	msgPaySucceeded      = "결제 성공"
	msgLoginSucceeded    = "로그인 성공"
	msgPaymentLookupDone = "조회 성공"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	authService      *service.AuthService
	redeemService    *service.RedeemService
	manualPayService *service.ManualPayService
	receiptService   *service.ReceiptService
}

func NewHandler(
	authService *service.AuthService,
	redeemService *service.RedeemService,
	manualPayService *service.ManualPayService,
	receiptService *service.ReceiptService,
) *Handler {
	return &Handler{
		authService:      authService,
		redeemService:    redeemService,
		manualPayService: manualPayService,
		receiptService:   receiptService,
	}
}

// flexString 终端可能把数字字段按数字或字符串提交
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// ============================================================
// 运营者登录
// ============================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login POST /login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, msgBadRequest)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, msgLoginSucceeded, gin.H{
		"token":      result.Token,
		"restaurant": result.Restaurant.DisplayName(),
		"expiresAt":  result.ExpiresAt.Unix(),
	})
}

// ============================================================
// QR 兑换码扣积分
// ============================================================

type PayRequest struct {
	QRToken     string     `json:"qrToken"`
	TicketCount flexString `json:"ticketCount"`
}

// Pay POST /pay
// 食堂取自会话凭证，不接受请求体指定
func (h *Handler) Pay(c *gin.Context) {
	session := sessionFrom(c)
	if session == nil {
		response.Unauthorized(c, msgAuthRequired)
		return
	}

	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, msgBadRequest)
		return
	}

	rawToken := strings.TrimSpace(req.QRToken)
	countText := strings.TrimSpace(string(req.TicketCount))
	if rawToken == "" || countText == "" {
		response.ParamError(c, msgPayFieldsMissing)
		return
	}

	ticketCount, err := strconv.Atoi(countText)
	if err != nil || ticketCount <= 0 {
		response.ParamError(c, msgInvalidTicketNum)
		return
	}

	result, err := h.redeemService.RedeemToken(c.Request.Context(), rawToken, session.Restaurant, ticketCount)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, msgPaySucceeded, gin.H{
		"deducted":   result.Deducted,
		"restaurant": result.Restaurant.DisplayName(),
		"paymentNo":  result.PaymentNo,
		"balance":    result.BalanceAfter,
	})
}

// ============================================================
// 手工录入收款
// ============================================================

type ManualPayRequest struct {
	MenuName   string     `json:"menuName"`
	Amount     flexString `json:"amount"`
	Method     string     `json:"method"`
	CardNumber string     `json:"cardNumber"`
}

// ManualPay POST /manual_pay
func (h *Handler) ManualPay(c *gin.Context) {
	var req ManualPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, msgBadRequest)
		return
	}

	result, err := h.manualPayService.Pay(c.Request.Context(), &service.ManualPayRequest{
		MenuName:   req.MenuName,
		Amount:     string(req.Amount),
		Method:     req.Method,
		CardNumber: req.CardNumber,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, strings.ToUpper(result.Channel)+" 결제 완료", gin.H{
		"restaurant": result.Restaurant.DisplayName(),
		"paymentNo":  result.PaymentNo,
	})
}

// ============================================================
// 流水查询
// ============================================================

// GetPayment GET /payment/:paymentNo
func (h *Handler) GetPayment(c *gin.Context) {
	payment, err := h.receiptService.GetPayment(c.Request.Context(), c.Param("paymentNo"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if payment == nil {
		response.NotFound(c, msgPaymentNotFound)
		return
	}

	response.Success(c, msgPaymentLookupDone, gin.H{
		"paymentNo":  payment.PaymentNo,
		"menuName":   payment.MenuName,
		"amount":     payment.Amount,
		"method":     payment.Channel,
		"cardSuffix": payment.CardSuffix,
		"restaurant": payment.Restaurant.DisplayName(),
		"status":     payment.Status,
		"paidAt":     payment.PaidAt,
	})
}

// writeError 错误分类 -> HTTP 状态码
// 存储异常只记录日志，不把内部细节返回给终端
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError

	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		response.Unauthorized(c, msgAccountNotFound)
	case errors.Is(err, service.ErrPasswordMismatch):
		response.Unauthorized(c, msgPasswordMismatch)
	case errors.Is(err, qrtoken.ErrMalformedToken):
		response.ParamError(c, msgMalformedToken)
	case errors.Is(err, qrtoken.ErrInvalidToken):
		response.ParamError(c, msgInvalidToken)
	case errors.Is(err, qrtoken.ErrTokenExpired):
		response.ParamError(c, msgTokenExpired)
	case errors.Is(err, qrtoken.ErrTokenNotFound):
		response.ParamError(c, msgTokenNotFound)
	case errors.Is(err, service.ErrInsufficientBalance):
		response.ParamError(c, msgInsufficient)
	case errors.Is(err, pricing.ErrUnpricedRestaurant):
		response.ParamError(c, msgUnpriced)
	case errors.Is(err, pricing.ErrInvalidTicketCount), errors.Is(err, pricing.ErrAmountOverflow):
		response.ParamError(c, msgInvalidTicketNum)
	case errors.As(err, &verr):
		response.ParamError(c, verr.Message)
	default:
		_ = c.Error(err)
		log.WithField("request_id", c.GetString(ctxRequestID)).Errorf("[Handler] %s %s 处理失败: %v",
			c.Request.Method, c.Request.URL.Path, err)
		response.ServerError(c, msgServerError)
	}
}
