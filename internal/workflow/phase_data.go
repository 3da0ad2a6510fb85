package workflow

// PhaseData 按阶段名分区的累积数据
// 每个阶段一个可选分支；合并时非 nil 分支整体替换同名分支，其余分支保持不变，键只增不减
type PhaseData struct {
	Clarification *ClarificationData `json:"clarification,omitempty"`
	Discovery     *DiscoveryData     `json:"discovery,omitempty"`
	Selection     *SelectionData     `json:"selection,omitempty"`
	Preview       *PreviewData       `json:"preview,omitempty"`
	Execution     *ExecutionData     `json:"execution,omitempty"`
}

// ClarificationData 澄清阶段：向用户追问的问题与回答
type ClarificationData struct {
	ClarificationID string            `json:"clarificationId,omitempty"`
	Round           int               `json:"round,omitempty"`
	Questions       []string          `json:"questions,omitempty"`
	Answers         map[string]string `json:"answers,omitempty"`
	Extra           map[string]any    `json:"extra,omitempty"`
}

// DiscoveryData 发现阶段：候选智能体
type DiscoveryData struct {
	Query      string           `json:"query,omitempty"`
	Candidates []AgentCandidate `json:"candidates,omitempty"`
	Extra      map[string]any   `json:"extra,omitempty"`
}

// AgentCandidate 发现阶段返回的候选项
type AgentCandidate struct {
	AgentID string  `json:"agentId"`
	Name    string  `json:"name,omitempty"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// SelectionData 选择阶段
type SelectionData struct {
	SelectedAgentIDs []string       `json:"selectedAgentIds,omitempty"`
	Rationale        string         `json:"rationale,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// PreviewData 预览阶段：执行计划，等待确认
type PreviewData struct {
	PreviewID string         `json:"previewId,omitempty"`
	Plan      string         `json:"plan,omitempty"`
	Steps     []string       `json:"steps,omitempty"`
	Approved  *bool          `json:"approved,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// ExecutionData 执行阶段
type ExecutionData struct {
	TaskID     string         `json:"taskId,omitempty"`
	ActivityID string         `json:"activityId,omitempty"`
	Output     string         `json:"output,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Merge 顶层按阶段键浅合并
func (d *PhaseData) Merge(update PhaseData) {
	if update.Clarification != nil {
		d.Clarification = update.Clarification
	}
	if update.Discovery != nil {
		d.Discovery = update.Discovery
	}
	if update.Selection != nil {
		d.Selection = update.Selection
	}
	if update.Preview != nil {
		d.Preview = update.Preview
	}
	if update.Execution != nil {
		d.Execution = update.Execution
	}
}

// Keys 已存在数据的阶段名
func (d PhaseData) Keys() []Phase {
	keys := make([]Phase, 0, 5)
	if d.Clarification != nil {
		keys = append(keys, PhaseClarification)
	}
	if d.Discovery != nil {
		keys = append(keys, PhaseDiscovery)
	}
	if d.Selection != nil {
		keys = append(keys, PhaseSelection)
	}
	if d.Preview != nil {
		keys = append(keys, PhasePreview)
	}
	if d.Execution != nil {
		keys = append(keys, PhaseExecuting)
	}
	return keys
}
