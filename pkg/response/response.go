package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 终端按 success 字段判断结果，其余字段与 success/message 平铺在同一层
const (
	keySuccess = "success"
	keyMessage = "message"
)

// Success 200，fields 中的字段平铺输出
func Success(c *gin.Context, message string, fields gin.H) {
	body := gin.H{}
	for k, v := range fields {
		body[k] = v
	}
	body[keySuccess] = true
	body[keyMessage] = message
	c.JSON(http.StatusOK, body)
}

// Error 失败响应，HTTP 状态码即错误类别
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		keySuccess: false,
		keyMessage: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// AbortUnauthorized 中间件中使用，终止后续处理
func AbortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		keySuccess: false,
		keyMessage: message,
	})
}
