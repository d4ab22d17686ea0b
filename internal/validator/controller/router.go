package controller

import (
	commonmw "debugoj/internal/common/http/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the validator API; verifier may be nil to disable auth.
func RegisterRoutes(router *gin.Engine, h *ValidatorController, verifier *commonmw.TokenVerifier) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api/v1")
	api.Use(commonmw.AuthMiddleware(verifier))
	api.POST("/validate", h.Validate)
	api.POST("/execute", h.Execute)
	api.GET("/runtimes", h.Runtimes)
	api.GET("/questions", h.ListQuestions)
	api.GET("/questions/:id", h.GetQuestion)
	api.POST("/questions/:id/validate", h.ValidateQuestion)
}
