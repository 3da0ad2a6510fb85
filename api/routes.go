package api

import (
	"agentorch/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, h *Handlers, l *zap.Logger) {
	api := router.Group("/api")

	registerWorkflowRoutes(api, h)

	if h.Schedule != nil {
		scoped := api.Group("", middleware.OrgContextMiddleware(l))
		registerScheduleRoutes(scoped, h)
	}
}

// registerWorkflowRoutes 工作流状态查询
func registerWorkflowRoutes(api *gin.RouterGroup, h *Handlers) {
	wf := api.Group("/workflows")
	{
		wf.GET("/active", h.Workflow.ListActive)
		wf.GET("/session/:sid", h.Workflow.GetBySession)
		wf.GET("/:id", h.Workflow.GetWorkflow)
		wf.GET("/:id/events", h.Workflow.ListEvents)
		wf.DELETE("/:id", h.Workflow.DeleteWorkflow)
	}
}

// registerScheduleRoutes 调度管理（需要组织标识）
func registerScheduleRoutes(api *gin.RouterGroup, h *Handlers) {
	sched := api.Group("/schedules")
	{
		sched.GET("/:id/executions", h.Schedule.ListExecutions)
		sched.POST("/:id/run", h.Schedule.RunSchedule)
		sched.POST("/:id/pause", h.Schedule.PauseSchedule)
		sched.POST("/:id/resume", h.Schedule.ResumeSchedule)
	}

	api.POST("/executions/:id/cancel", h.Schedule.CancelExecution)
}
