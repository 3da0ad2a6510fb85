package workflow

import "errors"

var (
	// ErrNotFound 工作流不存在（或已过期、已被并发删除）
	// 调用方应将其视为正常竞态而非故障
	ErrNotFound = errors.New("workflow not found")

	// ErrInvalidTransition 严格模式下拒绝的阶段转移
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrUnknownPhase 未定义的阶段值
	ErrUnknownPhase = errors.New("unknown phase")
)
