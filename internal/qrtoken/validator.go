package qrtoken

import (
	"context"
	"fmt"
	"time"

	"ticketpos/internal/model"
)

// TokenFinder 查询未使用的兑换码，不存在时返回 nil, nil
type TokenFinder interface {
	FindUnconsumed(ctx context.Context, userID int64, hash string) (*model.IssuedToken, error)
}

// Validation 校验通过的兑换码
type Validation struct {
	Token   *Token
	TokenID int64
	// MustClaim 为 true 时兑换事务必须原子认领该兑换码
	MustClaim bool
}

// UserID 兑换码所属用户
func (v *Validation) UserID() int64 {
	return v.Token.UserID
}

// Validator 兑换码校验器
//
// 校验本身不修改任何状态；兑换码的消费由兑换事务内的条件更新完成，
// 与余额扣减处于同一事务，避免同一兑换码被并发兑换两次
type Validator struct {
	finder            TokenFinder
	policy            Policy
	reuseWithinWindow bool
	now               func() time.Time
}

// NewValidator 创建校验器
//
// reuseWithinWindow 为 true 时保留旧行为：有效期内的兑换码兑换后不消费，可重复使用
func NewValidator(finder TokenFinder, policy Policy, reuseWithinWindow bool) *Validator {
	return &Validator{
		finder:            finder,
		policy:            policy,
		reuseWithinWindow: reuseWithinWindow,
		now:               time.Now,
	}
}

// WithClock 替换时钟，测试使用
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate 解析兑换码并确认存在未使用的发码记录
func (v *Validator) Validate(ctx context.Context, raw string) (*Validation, error) {
	token, err := Parse(raw, v.now(), v.policy)
	if err != nil {
		return nil, err
	}

	issued, err := v.finder.FindUnconsumed(ctx, token.UserID, token.Hash)
	if err != nil {
		return nil, fmt.Errorf("查询兑换码失败: %w", err)
	}
	if issued == nil {
		return nil, ErrTokenNotFound
	}

	return &Validation{
		Token:     token,
		TokenID:   issued.ID,
		MustClaim: token.Freshness == Stale || !v.reuseWithinWindow,
	}, nil
}
