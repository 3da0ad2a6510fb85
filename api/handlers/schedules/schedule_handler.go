package schedules

import (
	"context"
	"strconv"

	response "agentorch/api/handlers/common"
	"agentorch/internal/infra/queue"
	"agentorch/internal/logger"
	"agentorch/internal/middleware"
	"agentorch/internal/scheduler"
	"agentorch/internal/worker/tasks"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultExecutionLimit = 20
	maxExecutionLimit     = 100
)

// Service 调度器对外操作
type Service interface {
	TriggerManualRunByID(ctx context.Context, scheduleID, orgID string) (*scheduler.ScheduleExecution, error)
	PauseSchedule(ctx context.Context, scheduleID, orgID string) (*scheduler.Schedule, error)
	ResumeSchedule(ctx context.Context, scheduleID, orgID string) (*scheduler.Schedule, error)
	CancelExecution(ctx context.Context, executionID string) error
}

// ScheduleHandler 调度管理 Handler
type ScheduleHandler struct {
	service Service
	repo    scheduler.Repository
	queue   queue.Client
	logger  *zap.Logger
}

// NewScheduleHandler 创建 ScheduleHandler；queueClient 为 nil 时手动触发同步执行
func NewScheduleHandler(service Service, repo scheduler.Repository, queueClient queue.Client, l *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		repo:    repo,
		queue:   queueClient,
		logger:  logger.OrNop(l),
	}
}

// ListExecutions 查询调度的执行记录（按编号倒序）
// @Summary 查询执行记录
// @Tags Schedules
// @Produce json
// @Param id path string true "调度 ID"
// @Param limit query int false "返回数量，默认 20，最大 100"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/schedules/{id}/executions [get]
func (h *ScheduleHandler) ListExecutions(c *gin.Context) {
	ctx := c.Request.Context()
	scheduleID := c.Param("id")

	limit := defaultExecutionLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.BadRequest(c, "limit 参数必须为正整数")
			return
		}
		limit = min(v, maxExecutionLimit)
	}

	if _, err := h.repo.GetByIDForOrg(ctx, scheduleID, c.GetString(middleware.OrgIDKey)); err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.repo.ListExecutions(ctx, scheduleID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// RunSchedule 手动触发一次；配置了队列时异步投递并返回 202
// @Summary 手动触发调度
// @Tags Schedules
// @Produce json
// @Param id path string true "调度 ID"
// @Success 200 {object} scheduler.ScheduleExecution
// @Success 202 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/schedules/{id}/run [post]
func (h *ScheduleHandler) RunSchedule(c *gin.Context) {
	ctx := c.Request.Context()
	scheduleID := c.Param("id")
	orgID := c.GetString(middleware.OrgIDKey)

	if h.queue == nil {
		exec, err := h.service.TriggerManualRunByID(ctx, scheduleID, orgID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, exec)
		return
	}

	if _, err := h.repo.GetByIDForOrg(ctx, scheduleID, orgID); err != nil {
		response.Error(c, err)
		return
	}
	taskID, err := h.queue.EnqueueManualRun(ctx, tasks.ManualRunPayload{
		ScheduleID:  scheduleID,
		OrgID:       orgID,
		RequestedBy: c.GetString(middleware.UserIDKey),
		TraceID:     logger.GetTraceID(ctx),
	})
	if err != nil {
		h.logger.Error("投递手动触发任务失败", zap.String("schedule_id", scheduleID), zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Accepted(c, "已加入执行队列", gin.H{"task_id": taskID, "schedule_id": scheduleID})
}

// PauseSchedule 暂停调度
// @Router /api/schedules/{id}/pause [post]
func (h *ScheduleHandler) PauseSchedule(c *gin.Context) {
	schedule, err := h.service.PauseSchedule(c.Request.Context(), c.Param("id"), c.GetString(middleware.OrgIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, schedule)
}

// ResumeSchedule 恢复暂停或熔断的调度
// @Router /api/schedules/{id}/resume [post]
func (h *ScheduleHandler) ResumeSchedule(c *gin.Context) {
	schedule, err := h.service.ResumeSchedule(c.Request.Context(), c.Param("id"), c.GetString(middleware.OrgIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, schedule)
}

// CancelExecution 取消未结束的执行
// @Summary 取消执行
// @Tags Schedules
// @Param id path string true "执行 ID"
// @Success 204
// @Failure 409 {object} response.ErrorResponse
// @Router /api/executions/{id}/cancel [post]
func (h *ScheduleHandler) CancelExecution(c *gin.Context) {
	ctx := c.Request.Context()
	exec, err := h.repo.GetExecutionByID(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if exec.OrgID != c.GetString(middleware.OrgIDKey) {
		response.Error(c, scheduler.ErrNotFound)
		return
	}
	if exec.Status.IsTerminal() {
		response.Error(c, scheduler.ErrNotCancelable)
		return
	}
	if err := h.service.CancelExecution(ctx, exec.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
