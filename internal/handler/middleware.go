package handler

import (
	"log"
	"time"

	"smmpanel/internal/repository"
	"smmpanel/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	ctxKeyOperatorUID = "operator_uid"
	ctxKeyIsAdmin     = "is_admin"
)

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		// 记录日志
		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
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
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// AdminAuthMiddleware 管理端鉴权中间件
//
// 身份认证由外部网关完成，这里从 X-User-ID 头取操作者并校验角色。
// 校验结果放进上下文，服务层还会再验一次能力标记
func AdminAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	userRepo := repository.NewUserRepository(db)

	return func(c *gin.Context) {
		uid := c.GetHeader("X-User-ID")
		if uid == "" {
			response.Forbidden(c, "缺少操作者身份")
			c.Abort()
			return
		}

		user, err := userRepo.GetByUID(c.Request.Context(), uid)
		if err != nil {
			response.Forbidden(c, "操作者身份无效")
			c.Abort()
			return
		}
		if !user.IsAdmin() {
			log.Printf("[Auth] 非管理员访问管理接口: uid=%s, path=%s", uid, c.Request.URL.Path)
			response.Forbidden(c, "需要管理员权限")
			c.Abort()
			return
		}

		c.Set(ctxKeyOperatorUID, user.UID)
		c.Set(ctxKeyIsAdmin, true)
		c.Next()
	}
}

func adminUID(c *gin.Context) string {
	return c.GetString(ctxKeyOperatorUID)
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(ctxKeyIsAdmin)
}
