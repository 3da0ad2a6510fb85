package api

import (
	"agentorch/api/handlers/schedules"
	"agentorch/api/handlers/workflows"
	"agentorch/internal/config"
	"agentorch/internal/infra/queue"
	"agentorch/internal/scheduler"
	"agentorch/internal/workflow"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppContainer 路由依赖的服务集合，由 cmd/server 组装
type AppContainer struct {
	// 基础设施
	DB          *gorm.DB
	Config      *config.Config
	RedisClient redis.UniversalClient // 可选
	QueueClient queue.Client          // 可选，nil 时手动触发同步执行
	Logger      *zap.Logger

	// 核心服务
	WorkflowStore *workflow.Store
	Scheduler     *scheduler.Scheduler
	ScheduleRepo  scheduler.Repository
}

// Handlers 所有 HTTP Handler
type Handlers struct {
	Workflow *workflows.WorkflowHandler
	Schedule *schedules.ScheduleHandler
}

// NewHandlers 由容器创建 Handler
func NewHandlers(c *AppContainer) *Handlers {
	h := &Handlers{
		Workflow: workflows.NewWorkflowHandler(c.WorkflowStore),
	}
	if c.Scheduler != nil {
		h.Schedule = schedules.NewScheduleHandler(c.Scheduler, c.ScheduleRepo, c.QueueClient, c.Logger)
	}
	return h
}
