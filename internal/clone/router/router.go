// Package router 注册知识克隆服务的 HTTP 路由。
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/knowledge-clone/internal/clone/handler"
	"github.com/kart-io/knowledge-clone/pkg/utils/validator"
)

// Register 在 engine 上注册全部路由。
func Register(engine *gin.Engine, h *handler.Handler) {
	validator.Install(validator.Global())

	engine.GET("/healthz", h.Healthz)

	v1 := engine.Group("/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.GET("/:id", h.GetSession)
			sessions.POST("/:id/turns", h.SubmitTurn)
		}

		v1.GET("/settings", h.GetSettings)
		v1.PUT("/settings", h.UpdateSettings)

		v1.GET("/credentials", h.GetCredentials)
		v1.PUT("/credentials", h.UpdateCredentials)

		documents := v1.Group("/documents")
		{
			documents.GET("", h.ListDocuments)
			documents.POST("", h.UploadDocument)
		}
	}

	logger.Info("HTTP routes registered")
}
