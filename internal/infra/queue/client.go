package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentorch/internal/config"
	"agentorch/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// Client 任务队列客户端接口
type Client interface {
	EnqueueManualRun(ctx context.Context, payload tasks.ManualRunPayload) (string, error)
	Close() error
}

type asynqClient struct {
	client *asynq.Client
}

// RedisOpt 由配置生成 asynq 的 Redis 连接参数
func RedisOpt(cfg config.RedisConfig) asynq.RedisConnOpt {
	switch cfg.Mode {
	case "cluster":
		return asynq.RedisClusterClientOpt{
			Addrs:    cfg.ClusterAddrs,
			Password: cfg.Password,
		}
	case "sentinel":
		return asynq.RedisFailoverClientOpt{
			MasterName:       cfg.MasterName,
			SentinelAddrs:    cfg.SentinelAddrs,
			SentinelPassword: cfg.SentinelPassword,
			Password:         cfg.Password,
			DB:               cfg.DB,
		}
	default:
		return asynq.RedisClientOpt{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
}

// NewClient 创建任务队列客户端
func NewClient(cfg config.RedisConfig) Client {
	return &asynqClient{client: asynq.NewClient(RedisOpt(cfg))}
}

// EnqueueManualRun 投递一次手动触发；同一调度一分钟内只保留一个待处理任务
func (c *asynqClient) EnqueueManualRun(ctx context.Context, payload tasks.ManualRunPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeManualRun, data)
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(0), // 失败重试由调度器的执行记录负责
		asynq.Timeout(30*time.Minute),
		asynq.Unique(time.Minute),
		asynq.Queue(tasks.QueueSchedules),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue task failed: %w", err)
	}
	return info.ID, nil
}

func (c *asynqClient) Close() error {
	return c.client.Close()
}
