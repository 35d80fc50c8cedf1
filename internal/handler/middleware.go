package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"ticketpos/internal/security"
	"ticketpos/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxSession      = "session"
)

// RequestIDMiddleware 透传或生成请求ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ctxRequestID, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := log.WithFields(log.Fields{
			"request_id": c.GetString(ctxRequestID),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("[HTTP]")
		case status >= http.StatusBadRequest:
			entry.Warn("[HTTP]")
		default:
			entry.Info("[HTTP]")
		}
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithField("request_id", c.GetString(ctxRequestID)).Errorf("[PANIC] %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": msgServerError,
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthMiddleware 校验 Authorization: Bearer <会话凭证>
func AuthMiddleware(signer *security.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			response.AbortUnauthorized(c, msgAuthRequired)
			return
		}

		claims, err := signer.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			if errors.Is(err, security.ErrExpiredToken) {
				response.AbortUnauthorized(c, msgSessionExpired)
				return
			}
			response.AbortUnauthorized(c, msgSessionInvalid)
			return
		}

		c.Set(ctxSession, claims)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *security.SessionClaims {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	claims, _ := v.(*security.SessionClaims)
	return claims
}
