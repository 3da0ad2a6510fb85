package scheduler

import "context"

// ExecutionRequest 交给执行处理器的一次触发
type ExecutionRequest struct {
	Schedule   Schedule
	Execution  ScheduleExecution
	ActivityID string
}

// ExecutionResult 处理器的执行结果
// Success 为 false 时 Error 描述原因；Retryable 非 nil 时覆盖错误分类
type ExecutionResult struct {
	Success   bool
	Summary   string
	Error     string
	Retryable *bool
}

// ExecutionHandler 执行一次调度触发，通常是调用外部智能体
type ExecutionHandler interface {
	Handle(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)
}

// HandlerFunc 函数适配器
type HandlerFunc func(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)

// Handle 实现 ExecutionHandler
func (f HandlerFunc) Handle(ctx context.Context, req ExecutionRequest) (ExecutionResult, error) {
	return f(ctx, req)
}
