package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentorch_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentorch_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 工作流状态机指标
var (
	// WorkflowsCreatedTotal 创建的工作流数量
	WorkflowsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentorch_workflows_created_total",
			Help: "创建的工作流总数",
		},
	)

	// WorkflowPhaseTransitionsTotal 阶段切换次数
	WorkflowPhaseTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentorch_workflow_phase_transitions_total",
			Help: "工作流阶段切换次数",
		},
		[]string{"from", "to"},
	)

	// WorkflowIllegalTransitionsTotal 不在转移表内的阶段切换
	WorkflowIllegalTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentorch_workflow_illegal_transitions_total",
			Help: "不在转移表内的阶段切换次数（宽松模式下仍会记录）",
		},
		[]string{"from", "to", "rejected"},
	)

	// WorkflowEventsTotal 写入缓冲区的事件数量
	WorkflowEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentorch_workflow_events_total",
			Help: "工作流事件总数",
		},
		[]string{"type"},
	)
)

// 调度器指标
var (
	// ScheduleExecutionsTotal 调度执行结果
	ScheduleExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentorch_schedule_executions_total",
			Help: "调度执行总数（按结果）",
		},
		[]string{"schedule_type", "status"},
	)

	// ScheduleExecutionDuration 执行处理器耗时（秒）
	ScheduleExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentorch_schedule_execution_duration_seconds",
			Help:    "执行处理器耗时分布",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"schedule_type"},
	)

	// ScheduleExecutionsRunning 正在执行的调度数量
	ScheduleExecutionsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentorch_schedule_executions_running",
			Help: "正在执行的调度数量",
		},
	)

	// ScheduleRetriesTotal 安排的重试次数
	ScheduleRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentorch_schedule_retries_total",
			Help: "安排的重试总数",
		},
	)

	// ScheduleCircuitBreaksTotal 连续失败熔断次数
	ScheduleCircuitBreaksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentorch_schedule_circuit_breaks_total",
			Help: "连续失败达到上限被标记为 failed 的调度数",
		},
	)

	// ScheduleTimersRegistered 已注册的定时器数量
	ScheduleTimersRegistered = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agentorch_schedule_timers_registered",
			Help: "已注册的定时器数量（按类型）",
		},
		[]string{"schedule_type"},
	)

	// SchedulePollsTotal 轮询兜底执行次数
	SchedulePollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentorch_schedule_polls_total",
			Help: "轮询兜底发现并执行的数量",
		},
		[]string{"kind"}, // due, retry
	)
)

// 数据库连接指标
var (
	// DBConnections 数据库连接数
	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agentorch_db_connections",
			Help: "数据库连接数",
		},
		[]string{"state"}, // open, in_use, idle
	)
)
