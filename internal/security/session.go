package security

import (
	"errors"
	"time"

	"ticketpos/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// 会话凭证校验错误
var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

// SessionClaims POS 运营者会话凭证
// Restaurant 在登录时由运营者账户确定，兑换接口直接信任该声明
type SessionClaims struct {
	PosID      int64            `json:"posId"`
	Username   string           `json:"username"`
	Restaurant model.Restaurant `json:"restaurant"`
	jwt.RegisteredClaims
}

// Signer 使用注入的密钥签发和校验会话凭证
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue 为运营者签发 HS256 会话凭证
func (s *Signer) Issue(operator *model.Operator) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		PosID:      operator.ID,
		Username:   operator.Username,
		Restaurant: operator.Restaurant,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse 校验会话凭证并返回声明
func (s *Signer) Parse(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
