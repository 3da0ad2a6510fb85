package workflow

// Phase 工作流阶段
type Phase string

const (
	PhaseInitial       Phase = "initial"
	PhaseClarification Phase = "clarification"
	PhaseDiscovery     Phase = "discovery"
	PhaseSelection     Phase = "selection"
	PhasePreview       Phase = "preview"
	PhaseExecuting     Phase = "executing"
	PhaseCompleted     Phase = "completed"
	PhaseError         Phase = "error"
)

// ActivityStatus 由阶段派生的粗粒度状态，用于"是否仍在进行"的查询
type ActivityStatus string

const (
	ActivityPending   ActivityStatus = "pending"
	ActivityRunning   ActivityStatus = "running"
	ActivityCompleted ActivityStatus = "completed"
	ActivityError     ActivityStatus = "error"
)

// IsActive pending 与 running 视为活跃
func (s ActivityStatus) IsActive() bool {
	return s == ActivityPending || s == ActivityRunning
}

// AllowedTransitions 阶段转移表
// completed 与 error 为终态，不存在任何出边
var AllowedTransitions = map[Phase][]Phase{
	PhaseInitial:       {PhaseClarification, PhaseExecuting, PhaseError},
	PhaseClarification: {PhaseDiscovery, PhaseClarification, PhaseExecuting, PhaseError},
	PhaseDiscovery:     {PhaseSelection, PhaseError},
	PhaseSelection:     {PhasePreview, PhaseClarification, PhaseError},
	PhasePreview:       {PhaseExecuting, PhaseClarification, PhaseError},
	PhaseExecuting:     {PhaseCompleted, PhaseError},
}

// Valid 是否为已知阶段
func (p Phase) Valid() bool {
	switch p {
	case PhaseInitial, PhaseClarification, PhaseDiscovery, PhaseSelection,
		PhasePreview, PhaseExecuting, PhaseCompleted, PhaseError:
		return true
	}
	return false
}

// IsTerminal completed 或 error
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseError
}

// CanTransition 判断 from -> to 是否在转移表内
func CanTransition(from, to Phase) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// activityStatusFor 计算进入 phase 后的状态；未列出的阶段保持原状态
func activityStatusFor(phase Phase, current ActivityStatus) ActivityStatus {
	switch phase {
	case PhaseExecuting:
		return ActivityRunning
	case PhaseCompleted:
		return ActivityCompleted
	case PhaseError:
		return ActivityError
	default:
		return current
	}
}
