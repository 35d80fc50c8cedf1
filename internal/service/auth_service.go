package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ticketpos/internal/model"
	"ticketpos/internal/repository"
	"ticketpos/internal/security"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuthService struct {
	operatorRepo *repository.OperatorRepository
	signer       *security.Signer
}

func NewAuthService(db *gorm.DB, signer *security.Signer) *AuthService {
	return &AuthService{
		operatorRepo: repository.NewOperatorRepository(db),
		signer:       signer,
	}
}

type LoginResult struct {
	Token      string
	ExpiresAt  time.Time
	Restaurant model.Restaurant
}

// Login 校验运营者账号密码并签发会话凭证
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrAccountNotFound
	}

	operator, err := s.operatorRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storageError("查询运营者失败", err)
	}
	if !operator.Active {
		return nil, ErrAccountNotFound
	}

	if !security.CheckPassword(operator.Password, password) {
		log.Warnf("[Auth] 密码错误: username=%s", username)
		return nil, ErrPasswordMismatch
	}

	token, expiresAt, err := s.signer.Issue(operator)
	if err != nil {
		return nil, err
	}

	log.Infof("[Auth] 登录成功: posID=%d, restaurant=%s", operator.ID, operator.Restaurant)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Restaurant: operator.Restaurant}, nil
}
