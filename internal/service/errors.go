package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance 积分不足或账户不存在
	ErrInsufficientBalance = errors.New("积分不足")
	// ErrStorage 存储层异常，对外统一返回 500
	ErrStorage = errors.New("存储异常")

	ErrAccountNotFound  = errors.New("运营者账户不存在")
	ErrPasswordMismatch = errors.New("密码不匹配")
)

// ValidationError 手工录入字段校验失败，Message 直接返回给终端
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
