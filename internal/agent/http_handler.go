package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"agentorch/internal/logger"
	"agentorch/internal/scheduler"
	"agentorch/internal/workflow"
	"agentorch/pkg/httputil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxSummaryRunes 响应未给出 summary 时截取 output 的长度
const maxSummaryRunes = 500

// RunRequest 发送给外部智能体的请求体
type RunRequest struct {
	WorkflowID      string         `json:"workflowId,omitempty"`
	ScheduleID      string         `json:"scheduleId"`
	ScheduleName    string         `json:"scheduleName,omitempty"`
	ExecutionID     string         `json:"executionId"`
	ExecutionNumber int            `json:"executionNumber"`
	RetryAttempt    int            `json:"retryAttempt"`
	ActivityID      string         `json:"activityId"`
	OrgID           string         `json:"orgId"`
	AgentID         string         `json:"agentId"`
	Prompt          string         `json:"prompt"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// RunResponse 外部智能体的响应体
// status 为 failed/error 或只给出 error 时视为失败；retryable 可覆盖调度器的错误分类
type RunResponse struct {
	Status    string `json:"status"`
	Summary   string `json:"summary"`
	Output    string `json:"output"`
	Error     string `json:"error"`
	Retryable *bool  `json:"retryable"`
	TaskID    string `json:"taskId"`
}

func (r RunResponse) failed() bool {
	switch strings.ToLower(r.Status) {
	case "failed", "error":
		return true
	case "":
		return r.Error != ""
	default:
		return false
	}
}

// HTTPHandler 通过 HTTP 调用调度绑定的智能体
// 配置了工作流存储时，每次触发都会开一条 WorkflowExecution 记录执行过程
type HTTPHandler struct {
	client *httputil.Client
	store  *workflow.Store
	logger *zap.Logger
	tracer trace.Tracer
}

var _ scheduler.ExecutionHandler = (*HTTPHandler)(nil)

// NewHTTPHandler 创建 HTTP 执行处理器，store 可为 nil
func NewHTTPHandler(client *httputil.Client, store *workflow.Store, l *zap.Logger) *HTTPHandler {
	if client == nil {
		client = httputil.NewClient()
	}
	return &HTTPHandler{
		client: client,
		store:  store,
		logger: logger.OrNop(l).Named("agent"),
		tracer: otel.Tracer("agentorch/internal/agent"),
	}
}

// Handle 实现 scheduler.ExecutionHandler
func (h *HTTPHandler) Handle(ctx context.Context, req scheduler.ExecutionRequest) (scheduler.ExecutionResult, error) {
	ctx, span := h.tracer.Start(ctx, "AgentHTTPHandler.Handle")
	defer span.End()

	sched := req.Schedule
	span.SetAttributes(
		attribute.String("schedule.id", sched.ID),
		attribute.String("agent.id", sched.AgentID),
		attribute.String("activity.id", req.ActivityID),
		attribute.Int("execution.retry_attempt", req.Execution.RetryAttempt),
	)
	log := logger.WithContext(ctx, h.logger).With(
		zap.String("schedule_id", sched.ID),
		zap.String("agent_id", sched.AgentID),
		zap.String("activity_id", req.ActivityID),
	)

	if strings.TrimSpace(sched.AgentURL) == "" {
		span.SetStatus(codes.Error, "missing agent url")
		notRetryable := false
		return scheduler.ExecutionResult{Error: "schedule has no agent url", Retryable: &notRetryable}, nil
	}

	wf := h.openWorkflow(ctx, log, req)
	body := RunRequest{
		ScheduleID:      sched.ID,
		ScheduleName:    sched.Name,
		ExecutionID:     req.Execution.ID,
		ExecutionNumber: req.Execution.ExecutionNumber,
		RetryAttempt:    req.Execution.RetryAttempt,
		ActivityID:      req.ActivityID,
		OrgID:           sched.OrgID,
		AgentID:         sched.AgentID,
		Prompt:          sched.Prompt,
		Metadata:        sched.Metadata,
	}
	headers := map[string]string{
		"X-Activity-ID": req.ActivityID,
		"X-Schedule-ID": sched.ID,
		"X-Org-ID":      sched.OrgID,
	}
	if wf != "" {
		body.WorkflowID = wf
		headers["X-Workflow-ID"] = wf
	}
	if traceID := logger.GetTraceID(ctx); traceID != "" {
		headers["X-Trace-ID"] = traceID
	}

	var resp RunResponse
	if err := h.client.PostJSONWithHeaders(ctx, sched.AgentURL, headers, body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent call failed")
		log.Warn("调用智能体失败", zap.Error(err))
		h.failWorkflow(ctx, log, wf, err.Error())
		return scheduler.ExecutionResult{}, fmt.Errorf("调用智能体 %s 失败: %w", sched.AgentID, err)
	}

	if resp.failed() {
		msg := resp.Error
		if msg == "" {
			msg = "agent reported status " + resp.Status
		}
		span.SetStatus(codes.Error, msg)
		log.Warn("智能体返回失败", zap.String("error", msg))
		h.failWorkflow(ctx, log, wf, msg)
		return scheduler.ExecutionResult{Error: msg, Retryable: resp.Retryable}, nil
	}

	summary := resp.Summary
	if summary == "" {
		summary = truncate(resp.Output, maxSummaryRunes)
	}
	h.completeWorkflow(ctx, log, wf, req.ActivityID, resp, summary)
	log.Info("智能体执行完成", zap.String("task_id", resp.TaskID))
	return scheduler.ExecutionResult{Success: true, Summary: summary}, nil
}

// openWorkflow 创建本次触发的工作流并进入 executing；存储失败只记录日志
func (h *HTTPHandler) openWorkflow(ctx context.Context, log *zap.Logger, req scheduler.ExecutionRequest) string {
	if h.store == nil {
		return ""
	}
	sched := req.Schedule
	wf, err := h.store.CreateWorkflow(ctx, workflow.CreateParams{
		SessionID:         SessionID(sched.ID),
		AgentID:           sched.AgentID,
		AgentURL:          sched.AgentURL,
		InitialMessageID:  req.Execution.ID,
		ResponseMessageID: req.ActivityID,
	})
	if err != nil {
		log.Error("创建工作流失败", zap.Error(err))
		return ""
	}

	reason := fmt.Sprintf("scheduled execution #%d", req.Execution.ExecutionNumber)
	if req.Execution.RetryAttempt > 0 {
		reason = fmt.Sprintf("%s (retry %d)", reason, req.Execution.RetryAttempt)
	}
	data := &workflow.PhaseData{Execution: &workflow.ExecutionData{ActivityID: req.ActivityID}}
	if _, err := h.store.UpdatePhase(ctx, wf.WorkflowID, workflow.PhaseExecuting, data, reason); err != nil {
		log.Error("更新工作流阶段失败", zap.String("workflow_id", wf.WorkflowID), zap.Error(err))
	}
	h.event(ctx, log, wf.WorkflowID, "execution.started", map[string]any{
		"scheduleId":      sched.ID,
		"executionId":     req.Execution.ID,
		"executionNumber": req.Execution.ExecutionNumber,
		"retryAttempt":    req.Execution.RetryAttempt,
	})
	return wf.WorkflowID
}

func (h *HTTPHandler) completeWorkflow(ctx context.Context, log *zap.Logger, workflowID, activityID string, resp RunResponse, summary string) {
	if h.store == nil || workflowID == "" {
		return
	}
	if _, err := h.store.UpdateProgress(ctx, workflowID, workflow.Progress{
		Percentage: workflow.Float64Ptr(100),
		Message:    workflow.StringPtr(summary),
	}); err != nil {
		log.Error("更新工作流进度失败", zap.String("workflow_id", workflowID), zap.Error(err))
	}
	h.event(ctx, log, workflowID, "execution.completed", map[string]any{"summary": summary, "taskId": resp.TaskID})

	data := &workflow.PhaseData{Execution: &workflow.ExecutionData{
		TaskID:     resp.TaskID,
		ActivityID: activityID,
		Output:     resp.Output,
	}}
	if _, err := h.store.UpdatePhase(ctx, workflowID, workflow.PhaseCompleted, data, "agent responded"); err != nil {
		log.Error("完成工作流失败", zap.String("workflow_id", workflowID), zap.Error(err))
	}
}

func (h *HTTPHandler) failWorkflow(ctx context.Context, log *zap.Logger, workflowID, message string) {
	if h.store == nil || workflowID == "" {
		return
	}
	h.event(ctx, log, workflowID, "execution.failed", map[string]any{"error": message})
	if _, err := h.store.Error(ctx, workflowID, message); err != nil {
		log.Error("标记工作流失败出错", zap.String("workflow_id", workflowID), zap.Error(err))
	}
}

func (h *HTTPHandler) event(ctx context.Context, log *zap.Logger, workflowID, eventType string, data map[string]any) {
	if _, err := h.store.AddEvent(ctx, workflowID, workflow.WorkflowEvent{Type: eventType, Data: data}); err != nil {
		log.Error("追加工作流事件失败", zap.String("workflow_id", workflowID), zap.String("type", eventType), zap.Error(err))
	}
}

// SessionID 调度在工作流存储中的会话键，用于查询某个调度最近一次执行
func SessionID(scheduleID string) string {
	return "schedule:" + scheduleID
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
