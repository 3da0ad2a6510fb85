package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"agentorch/internal/common"
	"agentorch/internal/logger"
	"agentorch/internal/metrics"
	"agentorch/internal/workflow/state"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	execKeyPrefix    = "workflow:exec:"
	sessionKeyPrefix = "workflow:session:"

	// DefaultTTL 工作流记录从 startedAt 起的保留时长
	DefaultTTL = 24 * time.Hour
)

// CreateParams 创建工作流的参数
type CreateParams struct {
	SessionID         string
	AgentID           string
	AgentURL          string
	InitialMessageID  string
	ResponseMessageID string
}

// Store 工作流状态机存储
// 所有读-改-写操作都会重新读取最新记录再合并；同一进程内对同一 ID 的写入串行化，
// 多进程共享 Redis 时字段级"最后写入者获胜"
type Store struct {
	kv     state.KVStore
	ttl    time.Duration
	strict bool
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
	locks  *common.KeyedMutex
}

// Option Store 配置项
type Option func(*Store)

// WithTTL 设置记录保留时长；<=0 表示不过期
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithStrictTransitions 按 AllowedTransitions 校验阶段转移，非法转移返回 ErrInvalidTransition
func WithStrictTransitions() Option {
	return func(s *Store) { s.strict = true }
}

// WithLogger 注入日志
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator 替换 ID 生成器
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore 创建工作流存储
func NewStore(kv state.KVStore, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		ttl:   DefaultTTL,
		now:   time.Now,
		newID: uuid.NewString,
		locks: common.NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrNop(s.logger).Named("workflow")
	return s
}

// CreateWorkflow 创建工作流，初始阶段为 initial，状态为 pending
func (s *Store) CreateWorkflow(ctx context.Context, p CreateParams) (*WorkflowExecution, error) {
	now := s.now()
	wf := &WorkflowExecution{
		WorkflowID:        s.newID(),
		SessionID:         p.SessionID,
		AgentID:           p.AgentID,
		AgentURL:          p.AgentURL,
		InitialMessageID:  p.InitialMessageID,
		ResponseMessageID: p.ResponseMessageID,
		Phase:             PhaseInitial,
		PhaseHistory: []PhaseTransition{
			{Phase: PhaseInitial, Timestamp: now},
		},
		ActivityStatus: ActivityPending,
		BufferedEvents: []WorkflowEvent{},
		StartedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}
	if p.SessionID != "" {
		if err := s.kv.Set(ctx, sessionKey(p.SessionID), []byte(wf.WorkflowID), s.remainingTTL(wf, now)); err != nil {
			return nil, fmt.Errorf("写入会话索引失败: %w", err)
		}
	}

	metrics.WorkflowsCreatedTotal.Inc()
	s.logger.Debug("工作流已创建",
		zap.String("workflow_id", wf.WorkflowID),
		zap.String("session_id", wf.SessionID),
		zap.String("agent_id", wf.AgentID),
	)
	return wf, nil
}

// Get 读取工作流
func (s *Store) Get(ctx context.Context, workflowID string) (*WorkflowExecution, error) {
	return s.load(ctx, workflowID)
}

// GetBySessionID 按会话查找最近创建的工作流
// 先查会话索引，索引缺失或失效时扫描全部记录
func (s *Store) GetBySessionID(ctx context.Context, sessionID string) (*WorkflowExecution, error) {
	raw, err := s.kv.Get(ctx, sessionKey(sessionID))
	switch {
	case err == nil:
		wf, loadErr := s.load(ctx, string(raw))
		if loadErr == nil && wf.SessionID == sessionID {
			return wf, nil
		}
		if loadErr != nil && !errors.Is(loadErr, ErrNotFound) {
			return nil, loadErr
		}
	case !errors.Is(err, state.ErrKeyNotFound):
		return nil, fmt.Errorf("读取会话索引失败: %w", err)
	}

	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	var latest *WorkflowExecution
	for _, wf := range all {
		if wf.SessionID != sessionID {
			continue
		}
		if latest == nil || wf.StartedAt.After(latest.StartedAt) {
			latest = wf
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// UpdatePhase 进入新阶段：追加历史、合并阶段数据、派生状态
func (s *Store) UpdatePhase(ctx context.Context, workflowID string, phase Phase, data *PhaseData, reason string) (*WorkflowExecution, error) {
	return s.mutate(ctx, workflowID, func(wf *WorkflowExecution, now time.Time) error {
		return s.applyPhase(wf, phase, data, reason, now)
	})
}

// UpdateProgress 逐字段合并进度，未提供的字段保持不变
func (s *Store) UpdateProgress(ctx context.Context, workflowID string, progress Progress) (*WorkflowExecution, error) {
	return s.mutate(ctx, workflowID, func(wf *WorkflowExecution, _ time.Time) error {
		wf.Progress.Merge(progress)
		return nil
	})
}

// AddEvent 追加事件：sequence 取当前 EventSequence 后自增，缓冲区只保留最近 100 条
func (s *Store) AddEvent(ctx context.Context, workflowID string, event WorkflowEvent) (*WorkflowExecution, error) {
	wf, err := s.mutate(ctx, workflowID, func(wf *WorkflowExecution, now time.Time) error {
		wf.appendEvent(event, now)
		return nil
	})
	if err == nil {
		metrics.WorkflowEventsTotal.WithLabelValues(event.Type).Inc()
	}
	return wf, err
}

// Complete 进入 completed
func (s *Store) Complete(ctx context.Context, workflowID string) (*WorkflowExecution, error) {
	return s.UpdatePhase(ctx, workflowID, PhaseCompleted, nil, "")
}

// Error 记录错误信息（原样保存）并进入 error；已累积的阶段数据保留
func (s *Store) Error(ctx context.Context, workflowID string, message string) (*WorkflowExecution, error) {
	return s.mutate(ctx, workflowID, func(wf *WorkflowExecution, now time.Time) error {
		if err := s.applyPhase(wf, PhaseError, nil, "", now); err != nil {
			return err
		}
		wf.Error = message
		return nil
	})
}

// Delete 删除工作流；不存在时为空操作
func (s *Store) Delete(ctx context.Context, workflowID string) error {
	unlock := s.locks.Lock(workflowID)
	defer unlock()

	wf, err := s.load(ctx, workflowID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	keys := []string{execKey(workflowID)}
	if wf.SessionID != "" {
		if raw, err := s.kv.Get(ctx, sessionKey(wf.SessionID)); err == nil && string(raw) == workflowID {
			keys = append(keys, sessionKey(wf.SessionID))
		}
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("删除工作流失败: %w", err)
	}
	return nil
}

// GetActiveWorkflows 返回所有 pending/running 的工作流，按开始时间排序
func (s *Store) GetActiveWorkflows(ctx context.Context) ([]*WorkflowExecution, error) {
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*WorkflowExecution, 0, len(all))
	for _, wf := range all {
		if wf.IsActive() {
			active = append(active, wf)
		}
	}
	return active, nil
}

// EventsSince 返回缓冲区中 sequence 大于 after 的事件，供断线重连补发
// after < 0 返回全部缓冲事件
func (s *Store) EventsSince(ctx context.Context, workflowID string, after int64) ([]WorkflowEvent, error) {
	wf, err := s.load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	events := make([]WorkflowEvent, 0, len(wf.BufferedEvents))
	for _, ev := range wf.BufferedEvents {
		if ev.Sequence > after {
			events = append(events, ev)
		}
	}
	return events, nil
}

// Clear 删除所有记录（测试与运维用）
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.kv.Keys(ctx, "workflow:*")
	if err != nil {
		return fmt.Errorf("列出工作流失败: %w", err)
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("清空工作流失败: %w", err)
	}
	return nil
}

// StartJanitor 周期性清理过期记录；底层存储自带过期（如 Redis）时直接返回
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	sweeper, ok := s.kv.(state.Sweeper)
	if !ok || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sweeper.Sweep(ctx); n > 0 {
					s.logger.Debug("清理过期工作流", zap.Int("removed", n))
				}
			}
		}
	}()
}

func (s *Store) applyPhase(wf *WorkflowExecution, phase Phase, data *PhaseData, reason string, now time.Time) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}

	prev := wf.Phase
	if !CanTransition(prev, phase) {
		metrics.WorkflowIllegalTransitionsTotal.WithLabelValues(string(prev), string(phase), fmt.Sprint(s.strict)).Inc()
		if s.strict {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, phase)
		}
		s.logger.Warn("阶段转移不在转移表内",
			zap.String("workflow_id", wf.WorkflowID),
			zap.String("from", string(prev)),
			zap.String("to", string(phase)),
		)
	}

	wf.PhaseHistory = append(wf.PhaseHistory, PhaseTransition{
		Phase:         phase,
		PreviousPhase: prev,
		Timestamp:     now,
		Reason:        reason,
	})
	wf.Phase = phase
	if data != nil {
		wf.PhaseData.Merge(*data)
	}
	wf.ActivityStatus = activityStatusFor(phase, wf.ActivityStatus)
	if phase == PhaseCompleted && wf.CompletedAt == nil {
		completedAt := now
		wf.CompletedAt = &completedAt
	}

	metrics.WorkflowPhaseTransitionsTotal.WithLabelValues(string(prev), string(phase)).Inc()
	return nil
}

// mutate 在单 ID 锁内完成读-改-写
func (s *Store) mutate(ctx context.Context, workflowID string, fn func(wf *WorkflowExecution, now time.Time) error) (*WorkflowExecution, error) {
	unlock := s.locks.Lock(workflowID)
	defer unlock()

	wf, err := s.load(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := fn(wf, now); err != nil {
		return nil, err
	}
	wf.UpdatedAt = now

	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

func (s *Store) load(ctx context.Context, workflowID string) (*WorkflowExecution, error) {
	raw, err := s.kv.Get(ctx, execKey(workflowID))
	if err != nil {
		if errors.Is(err, state.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("读取工作流失败: %w", err)
	}
	var wf WorkflowExecution
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("解析工作流失败: %w", err)
	}
	return &wf, nil
}

func (s *Store) save(ctx context.Context, wf *WorkflowExecution) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("序列化工作流失败: %w", err)
	}
	if err := s.kv.Set(ctx, execKey(wf.WorkflowID), data, s.remainingTTL(wf, s.now())); err != nil {
		return fmt.Errorf("保存工作流失败: %w", err)
	}
	return nil
}

func (s *Store) list(ctx context.Context) ([]*WorkflowExecution, error) {
	keys, err := s.kv.Keys(ctx, execKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("列出工作流失败: %w", err)
	}
	out := make([]*WorkflowExecution, 0, len(keys))
	for _, k := range keys {
		wf, err := s.load(ctx, strings.TrimPrefix(k, execKeyPrefix))
		if err != nil {
			// 扫描与读取之间被删除或过期
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// remainingTTL TTL 从 startedAt 起算，每次写入只传剩余时长
func (s *Store) remainingTTL(wf *WorkflowExecution, now time.Time) time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	remaining := s.ttl - now.Sub(wf.StartedAt)
	if remaining < time.Second {
		remaining = time.Second
	}
	return remaining
}

func execKey(id string) string    { return execKeyPrefix + id }
func sessionKey(id string) string { return sessionKeyPrefix + id }
