package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"agentorch/internal/logger"
	"agentorch/internal/scheduler"
	"agentorch/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ManualRunner 手动触发执行器抽象，便于注入 mock
type ManualRunner interface {
	TriggerManualRunByID(ctx context.Context, scheduleID, orgID string) (*scheduler.ScheduleExecution, error)
}

type ScheduleHandler struct {
	runner ManualRunner
	logger *zap.Logger
}

func NewScheduleHandler(runner ManualRunner, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		runner: runner,
		logger: logger,
	}
}

// HandleManualRun 执行队列中的手动触发；调度不存在时不再重试
func (h *ScheduleHandler) HandleManualRun(ctx context.Context, t *asynq.Task) error {
	var p tasks.ManualRunPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if p.TraceID != "" {
		ctx = logger.WithTraceID(ctx, p.TraceID)
	}

	h.logger.Info("开始执行手动触发任务",
		zap.String("schedule_id", p.ScheduleID),
		zap.String("org_id", p.OrgID),
		zap.String("requested_by", p.RequestedBy),
	)

	exec, err := h.runner.TriggerManualRunByID(ctx, p.ScheduleID, p.OrgID)
	if err != nil {
		h.logger.Error("手动触发失败",
			zap.String("schedule_id", p.ScheduleID),
			zap.Error(err),
		)
		if errors.Is(err, scheduler.ErrNotFound) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	h.logger.Info("手动触发完成",
		zap.String("schedule_id", p.ScheduleID),
		zap.String("execution_id", exec.ID),
		zap.String("status", string(exec.Status)),
	)
	return nil
}
