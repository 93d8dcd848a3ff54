package handler

import (
	"smmpanel/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 用户相关
		user := api.Group("/user")
		{
			user.POST("/register", h.Register)
			user.POST("/login", h.Login)
			user.GET("/balance", h.GetBalance)
			user.GET("/transactions", h.ListTransactions)
		}

		// 服务目录
		catalog := api.Group("/catalog")
		{
			catalog.GET("/services", h.ListServices)
		}

		// 订单相关
		order := api.Group("/order")
		{
			order.POST("/create", h.PlaceOrder)
			order.GET("/list", h.ListOrders)
		}

		// 充值相关
		funds := api.Group("/funds")
		{
			funds.GET("/methods", h.ListPaymentMethods)
			funds.POST("/submit", h.SubmitFundRequest)
			funds.GET("/list", h.ListFundRequests)
		}

		// 管理端，整组走管理员鉴权
		admin := api.Group("/admin")
		admin.Use(AdminAuthMiddleware(db))
		{
			admin.GET("/overview", h.AdminOverview)
			admin.GET("/users", h.AdminListUsers)
			admin.GET("/logins", h.AdminListLogins)
			admin.GET("/orders", h.AdminListOrders)
			admin.POST("/orders/status", h.AdminUpdateOrderStatus)
			admin.GET("/funds/pending", h.AdminListPendingFunds)
			admin.POST("/funds/approve", h.AdminApproveFund)
			admin.POST("/funds/reject", h.AdminRejectFund)
			admin.POST("/balance/adjust", h.AdminAdjustBalance)
			admin.GET("/payment-methods", h.AdminListPaymentMethods)
			admin.POST("/payment-methods/update", h.AdminUpdatePaymentMethod)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
