package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"agentorch/internal/logger"
	"agentorch/internal/scheduler"
	"agentorch/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap/zaptest"
)

type fakeRunner struct {
	called     bool
	scheduleID string
	orgID      string
	traceID    string
	retErr     error
}

func (f *fakeRunner) TriggerManualRunByID(ctx context.Context, scheduleID, orgID string) (*scheduler.ScheduleExecution, error) {
	f.called = true
	f.scheduleID = scheduleID
	f.orgID = orgID
	f.traceID = logger.GetTraceID(ctx)
	if f.retErr != nil {
		return nil, f.retErr
	}
	return &scheduler.ScheduleExecution{ID: "exec-1", Status: scheduler.ExecutionSucceeded}, nil
}

func manualRunTask(t *testing.T, p tasks.ManualRunPayload) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(tasks.TypeManualRun, payload)
}

func TestScheduleHandlerHandleManualRun_Success(t *testing.T) {
	runner := &fakeRunner{}
	h := NewScheduleHandler(runner, zaptest.NewLogger(t))
	task := manualRunTask(t, tasks.ManualRunPayload{ScheduleID: "sched-1", OrgID: "org-1", TraceID: "trace-1"})
	if err := h.HandleManualRun(context.Background(), task); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !runner.called || runner.scheduleID != "sched-1" || runner.orgID != "org-1" {
		t.Fatalf("runner not invoked correctly: called=%v id=%s org=%s", runner.called, runner.scheduleID, runner.orgID)
	}
	if runner.traceID != "trace-1" {
		t.Fatalf("trace id not propagated: %q", runner.traceID)
	}
}

func TestScheduleHandlerHandleManualRun_RunError(t *testing.T) {
	expectedErr := errors.New("boom")
	runner := &fakeRunner{retErr: expectedErr}
	h := NewScheduleHandler(runner, zaptest.NewLogger(t))
	task := manualRunTask(t, tasks.ManualRunPayload{ScheduleID: "sched-2", OrgID: "org-1"})
	err := h.HandleManualRun(context.Background(), task)
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected error %v, got %v", expectedErr, err)
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transient error should stay retryable")
	}
}

func TestScheduleHandlerHandleManualRun_NotFoundSkipsRetry(t *testing.T) {
	runner := &fakeRunner{retErr: scheduler.ErrNotFound}
	h := NewScheduleHandler(runner, zaptest.NewLogger(t))
	task := manualRunTask(t, tasks.ManualRunPayload{ScheduleID: "missing", OrgID: "org-1"})
	err := h.HandleManualRun(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) || !errors.Is(err, scheduler.ErrNotFound) {
		t.Fatalf("expected SkipRetry wrapping ErrNotFound, got %v", err)
	}
}

func TestScheduleHandlerHandleManualRun_InvalidPayload(t *testing.T) {
	runner := &fakeRunner{}
	h := NewScheduleHandler(runner, zaptest.NewLogger(t))
	task := asynq.NewTask(tasks.TypeManualRun, []byte("not-json"))
	if err := h.HandleManualRun(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for invalid payload, got %v", err)
	}
	if runner.called {
		t.Fatalf("runner should not be called when payload invalid")
	}
}
