package workflow

import "time"

// MaxBufferedEvents 每个工作流保留的最近事件数
const MaxBufferedEvents = 100

// WorkflowExecution 一次多阶段交互的完整记录
type WorkflowExecution struct {
	WorkflowID string `json:"workflowId"`

	// 关联字段，创建后不可变
	SessionID         string `json:"sessionId"`
	AgentID           string `json:"agentId"`
	AgentURL          string `json:"agentUrl,omitempty"`
	InitialMessageID  string `json:"initialMessageId"`
	ResponseMessageID string `json:"responseMessageId"`

	Phase        Phase             `json:"phase"`
	PhaseHistory []PhaseTransition `json:"phaseHistory"`
	PhaseData    PhaseData         `json:"phaseData"`

	ActivityStatus ActivityStatus `json:"activityStatus"`
	Progress       Progress       `json:"progress"`

	// EventSequence 等于历史上 AddEvent 的调用次数，只增不减
	EventSequence  int64           `json:"eventSequence"`
	BufferedEvents []WorkflowEvent `json:"bufferedEvents"`

	Error string `json:"error,omitempty"`

	StartedAt   time.Time  `json:"startedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// PhaseTransition 阶段历史中的一条记录；首条记录的 PreviousPhase 为空
type PhaseTransition struct {
	Phase         Phase     `json:"phase"`
	PreviousPhase Phase     `json:"previousPhase,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Reason        string    `json:"reason,omitempty"`
}

// WorkflowEvent 需要转发给客户端的事件
type WorkflowEvent struct {
	Sequence   int64          `json:"sequence"`
	WorkflowID string         `json:"workflowId"`
	Type       string         `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	Data       map[string]any `json:"data,omitempty"`
}

// Progress 进度信息；nil 字段表示"未提供"，合并时不会覆盖已有值
type Progress struct {
	Current    *int     `json:"current,omitempty"`
	Total      *int     `json:"total,omitempty"`
	Message    *string  `json:"message,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// Merge 逐字段合并
func (p *Progress) Merge(update Progress) {
	if update.Current != nil {
		v := *update.Current
		p.Current = &v
	}
	if update.Total != nil {
		v := *update.Total
		p.Total = &v
	}
	if update.Message != nil {
		v := *update.Message
		p.Message = &v
	}
	if update.Percentage != nil {
		v := *update.Percentage
		p.Percentage = &v
	}
}

// IsActive 是否仍在进行
func (w *WorkflowExecution) IsActive() bool {
	return w.ActivityStatus.IsActive()
}

// appendEvent 分配序号并写入环形缓冲，超出上限丢弃最旧的事件
func (w *WorkflowExecution) appendEvent(ev WorkflowEvent, now time.Time) WorkflowEvent {
	ev.Sequence = w.EventSequence
	w.EventSequence++
	ev.WorkflowID = w.WorkflowID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now
	}

	w.BufferedEvents = append(w.BufferedEvents, ev)
	if overflow := len(w.BufferedEvents) - MaxBufferedEvents; overflow > 0 {
		kept := make([]WorkflowEvent, MaxBufferedEvents)
		copy(kept, w.BufferedEvents[overflow:])
		w.BufferedEvents = kept
	}
	return ev
}

// IntPtr 便于构造 Progress
func IntPtr(v int) *int { return &v }

// StringPtr 便于构造 Progress
func StringPtr(v string) *string { return &v }

// Float64Ptr 便于构造 Progress
func Float64Ptr(v float64) *float64 { return &v }
