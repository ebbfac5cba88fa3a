package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes 注册控制 API 路由
func RegisterRoutes(r *gin.Engine, handler *Handler, logger *zap.Logger) {
	if r == nil || handler == nil {
		return
	}

	v1 := r.Group("/api/v1")

	v1.GET("/status", handler.Status)
	v1.GET("/config", handler.Config)
	v1.POST("/power", handler.Power)

	// 事件日志未启用时不暴露查询路由
	endpoints := 3
	if handler.store != nil {
		v1.GET("/sessions", handler.Sessions)
		v1.GET("/power/events", handler.PowerEvents)
		endpoints += 2
	}

	logger.Info("control api routes registered", zap.Int("endpoints", endpoints))
}
