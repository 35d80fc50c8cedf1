// Package qrtoken 解析并校验终端扫描到的 QR 兑换码
//
// 线上格式：
//
//	<用户ID>|<校验哈希>|<日期标签>#<发码毫秒时间戳>
package qrtoken

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformedToken = errors.New("兑换码格式错误")
	ErrInvalidToken   = errors.New("兑换码时间戳无效")
	ErrTokenExpired   = errors.New("兑换码已过期")
	ErrTokenNotFound  = errors.New("兑换码不存在或已使用")
)

const (
	fieldSeparator     = "|"
	timestampSeparator = "#"
)

// Freshness 兑换码的时效状态
type Freshness int

const (
	// Live 有效期内
	Live Freshness = iota
	// Stale 超出有效期但仍在宽限期内，最多再被接受一次
	Stale
)

// Policy 时效判断参数
type Policy struct {
	FreshnessWindow time.Duration
	GracePeriod     time.Duration
}

// Token 解析后的兑换码
type Token struct {
	UserID    int64
	Hash      string
	DateTag   string
	IssuedAt  time.Time
	Age       time.Duration
	Freshness Freshness
}

// Parse 解析兑换码并判断时效，不访问存储
func Parse(raw string, now time.Time, policy Policy) (*Token, error) {
	body, suffix, found := strings.Cut(strings.TrimSpace(raw), timestampSeparator)
	if !found {
		return nil, ErrMalformedToken
	}

	parts := strings.Split(body, fieldSeparator)
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrMalformedToken
	}
	if parts[1] == "" {
		return nil, ErrMalformedToken
	}

	issuedMs, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || issuedMs <= 0 {
		return nil, ErrMalformedToken
	}

	nowMs := now.UnixMilli()
	if issuedMs > nowMs {
		return nil, ErrInvalidToken
	}

	age := time.Duration(nowMs-issuedMs) * time.Millisecond
	token := &Token{
		UserID:   userID,
		Hash:     parts[1],
		DateTag:  parts[2],
		IssuedAt: time.UnixMilli(issuedMs),
		Age:      age,
	}

	switch {
	case age <= policy.FreshnessWindow:
		token.Freshness = Live
	case age <= policy.FreshnessWindow+policy.GracePeriod:
		token.Freshness = Stale
	default:
		return nil, ErrTokenExpired
	}
	return token, nil
}
