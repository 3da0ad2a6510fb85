package tasks

// Task Types
const (
	TypeManualRun = "schedule:manual_run"
)

// QueueSchedules 手动触发任务所在队列
const QueueSchedules = "schedules"

// ManualRunPayload 手动触发调度任务载荷
type ManualRunPayload struct {
	ScheduleID  string `json:"schedule_id"`
	OrgID       string `json:"org_id"`
	RequestedBy string `json:"requested_by,omitempty"`
	TraceID     string `json:"trace_id,omitempty"`
}
