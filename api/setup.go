package api

import (
	"agentorch/internal/metrics"
	"agentorch/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 设置并返回 Gin 路由
func SetupRouter(container *AppContainer) *gin.Engine {
	if container.Config != nil && container.Config.Server.Mode != "" {
		gin.SetMode(container.Config.Server.Mode)
	}
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(RequestLogger(container.Logger))
	router.Use(CORS())

	// Prometheus 指标收集中间件
	router.Use(metrics.PrometheusMiddleware())

	// 公开端点
	router.GET("/healthz", HealthCheck())
	router.GET("/readyz", ReadinessCheck(container.DB, container.RedisClient))

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(router, NewHandlers(container), container.Logger)
	return router
}
