package handler

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由，gin 的运行模式由调用方设置
func SetupRouter(h *Handler, logger *log.Logger) *gin.Engine {
	r := gin.New()

	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggerMiddleware(logger))
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("", h.CreateUser)
			users.GET("", h.ListUsers)
			users.GET("/:user_id", h.GetUser)
			users.PUT("/:user_id", h.UpdateUser)
			users.DELETE("/:user_id", h.DeleteUser)
			users.GET("/:user_id/accounts", h.ListAccountsByOwner)
			users.GET("/:user_id/guardians", h.ListGuardiansForSenior)
		}

		accounts := api.Group("/accounts")
		{
			accounts.POST("", h.CreateAccount)
			accounts.GET("/:account_id", h.GetAccount)
			accounts.DELETE("/:account_id", h.DeleteAccount)
			accounts.GET("/:account_id/transactions", h.ListAccountTransactions)
		}

		guardians := api.Group("/guardians")
		{
			guardians.POST("", h.InviteGuardian)
			guardians.POST("/:relationship_id/accept", h.AcceptGuardian)
			guardians.POST("/:relationship_id/revoke", h.RevokeGuardian)
			guardians.DELETE("/:relationship_id", h.DeleteGuardian)
			guardians.GET("/:relationship_id/alerts", h.ListAlertsForGuardian)
		}

		transactions := api.Group("/transactions")
		{
			transactions.POST("", h.CreateTransaction)
			transactions.GET("/:transaction_id", h.GetTransaction)
		}

		api.POST("/guardian-feedback", h.GuardianFeedback)

		alerts := api.Group("/alerts")
		{
			alerts.GET("/:alert_id", h.GetAlert)
			alerts.DELETE("/:alert_id", h.DeleteAlert)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
