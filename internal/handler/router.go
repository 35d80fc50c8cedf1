package handler

import (
	"net/http"

	"ticketpos/internal/security"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, signer *security.Signer) *gin.Engine {
	r := gin.New()

	// 注册中间件，RequestID 必须在日志和恢复之前
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	r.POST("/login", h.Login)
	r.POST("/manual_pay", h.ManualPay)

	authed := r.Group("/", AuthMiddleware(signer))
	{
		authed.POST("/pay", h.Pay)
		authed.GET("/payment/:paymentNo", h.GetPayment)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
