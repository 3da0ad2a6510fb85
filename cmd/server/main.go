package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"agentorch/api"
	"agentorch/internal/agent"
	"agentorch/internal/config"
	"agentorch/internal/infra"
	"agentorch/internal/infra/queue"
	"agentorch/internal/logger"
	"agentorch/internal/metrics"
	"agentorch/internal/scheduler"
	"agentorch/internal/worker"
	"agentorch/internal/workflow"
	"agentorch/internal/workflow/state"
	"agentorch/pkg/httputil"

	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 0. 统一加载 .env，便于集中管理 APP_* 环境变量
	loadEnvFile()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 1. 加载配置
	cfg, err := config.Load(env, os.Getenv("APP_CONFIG_FILE"))
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	log.Info("应用启动中...",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. 初始化数据库
	db, err := infra.InitDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer infra.CloseDatabase()

	if cfg.Database.AutoMigrate {
		if err := infra.AutoMigrate(db, log, scheduler.Models()...); err != nil {
			log.Fatal("数据库迁移失败", zap.Error(err))
		}
	} else {
		log.Info("跳过自动迁移（配置已禁用）")
	}
	startDBStats(ctx, db, log)

	// 4. Redis（工作流存储或手动触发队列需要时才连接）
	var rdb redis.UniversalClient
	if cfg.Workflow.Store == "redis" || cfg.Queue.Enabled {
		rdb, err = infra.InitRedis(&cfg.Redis, log)
		if err != nil {
			log.Fatal("初始化 Redis 失败", zap.Error(err))
		}
		defer infra.CloseRedis()
	}

	// 5. 工作流状态存储
	store := newWorkflowStore(cfg.Workflow, rdb, log)
	store.StartJanitor(ctx, cfg.Workflow.JanitorInterval)

	// 6. 调度器
	repo := scheduler.NewGormRepository(db)
	client := httputil.NewClient(
		httputil.WithTimeout(cfg.Agent.Timeout),
		httputil.WithRetries(cfg.Agent.Retries),
		httputil.WithHeaders(map[string]string{"User-Agent": cfg.Agent.UserAgent}),
	)
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatal("无效的调度默认时区", zap.String("timezone", cfg.Scheduler.Timezone), zap.Error(err))
	}
	sched := scheduler.New(scheduler.Config{
		Repository:   repo,
		Handler:      agent.NewHTTPHandler(client, store, log),
		Logger:       log,
		PollInterval: cfg.Scheduler.PollInterval,
		Location:     loc,
	})

	if cfg.Scheduler.SeedFile != "" {
		seedSchedules(ctx, cfg.Scheduler, repo, log)
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			log.Fatal("调度器启动失败", zap.Error(err))
		}
	} else {
		log.Info("调度器已禁用，仅提供查询与手动触发")
	}

	// 7. 手动触发队列与 Worker
	var queueClient queue.Client
	var workerServer *worker.Server
	if cfg.Queue.Enabled {
		queueClient = queue.NewClient(cfg.Redis)
		defer queueClient.Close()

		workerServer = worker.NewServer(cfg.Redis, cfg.Queue, sched, log)
		if err := workerServer.Start(); err != nil {
			log.Fatal("Worker 服务器启动失败", zap.Error(err))
		}
	}

	// 8. 创建路由与 HTTP 服务器
	router := api.SetupRouter(&api.AppContainer{
		DB:            db,
		Config:        cfg,
		RedisClient:   rdb,
		QueueClient:   queueClient,
		Logger:        log,
		WorkflowStore: store,
		Scheduler:     sched,
		ScheduleRepo:  repo,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("HTTP 服务器启动", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	gracefulShutdown(log, server, workerServer, sched, stop)
}

// newWorkflowStore 按配置选择内存或 Redis 后端
func newWorkflowStore(cfg config.WorkflowConfig, rdb redis.UniversalClient, log *zap.Logger) *workflow.Store {
	var kv state.KVStore
	if cfg.Store == "redis" {
		kv = state.NewRedisKV(rdb)
	} else {
		kv = state.NewMemoryKV()
	}

	opts := []workflow.Option{
		workflow.WithTTL(cfg.TTL),
		workflow.WithLogger(log),
	}
	if cfg.StrictTransitions {
		opts = append(opts, workflow.WithStrictTransitions())
	}
	log.Info("工作流存储初始化", zap.String("store", cfg.Store), zap.Duration("ttl", cfg.TTL))
	return workflow.NewStore(kv, opts...)
}

// seedSchedules 导入 YAML 中定义的调度，已存在的保持不变
func seedSchedules(ctx context.Context, cfg config.SchedulerConfig, repo scheduler.Repository, log *zap.Logger) {
	schedules, err := scheduler.LoadSeedFile(cfg.SeedFile, scheduler.SeedDefaults{
		Timezone: cfg.Timezone,
		Retry: scheduler.RetryConfig{
			MaxRetries:        cfg.Retry.MaxRetries,
			RetryDelayMs:      cfg.Retry.RetryDelayMs,
			BackoffMultiplier: cfg.Retry.BackoffMultiplier,
			MaxRetryDelayMs:   cfg.Retry.MaxRetryDelayMs,
		},
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("调度种子文件不存在，跳过导入", zap.String("path", cfg.SeedFile))
			return
		}
		log.Fatal("加载调度种子文件失败", zap.Error(err))
	}

	created, err := scheduler.SeedSchedules(ctx, repo, schedules, time.Now(), log)
	if err != nil {
		log.Fatal("导入调度失败", zap.Error(err))
	}
	log.Info("调度种子导入完成", zap.Int("total", len(schedules)), zap.Int("created", created))
}

// startDBStats 后台采集连接池指标
func startDBStats(ctx context.Context, db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("获取底层数据库连接失败，跳过连接池指标", zap.Error(err))
		return
	}
	go metrics.NewDBStatsCollector(sqlDB, 15*time.Second).Run(ctx)
}

// loadEnvFile 依次尝试加载当前目录及上级目录的 .env 文件
func loadEnvFile() {
	if path := resolveEnvPath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("加载环境变量文件 %s 失败: %v\n", path, err)
		} else {
			fmt.Printf("已加载环境变量文件: %s\n", path)
		}
	} else {
		fmt.Println("未找到 .env 文件，将仅使用系统环境变量和 config/* 配置")
	}
}

// resolveEnvPath 从当前工作目录、可执行文件目录向上查找 .env
func resolveEnvPath() string {
	for _, path := range collectEnvCandidates() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func collectEnvCandidates() []string {
	seen := make(map[string]struct{})
	var candidates []string
	traverse := func(start string) {
		dir := filepath.Clean(start)
		for i := 0; i < 4; i++ {
			if dir == "" || dir == string(filepath.Separator) || dir == "." {
				break
			}
			path := filepath.Join(dir, ".env")
			if _, ok := seen[path]; !ok {
				seen[path] = struct{}{}
				candidates = append(candidates, path)
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if wd, err := os.Getwd(); err == nil {
		traverse(wd)
	}
	if exe, err := os.Executable(); err == nil {
		traverse(filepath.Dir(exe))
	}
	return candidates
}

// gracefulShutdown 先停止接收请求，再等待进行中的调度执行结束
func gracefulShutdown(log *zap.Logger, server *http.Server, workerServer *worker.Server, sched *scheduler.Scheduler, stop context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("服务器关闭异常", zap.Error(err))
	}
	if workerServer != nil {
		workerServer.Shutdown()
	}
	sched.Stop()
	stop()

	log.Info("服务器已安全关闭")
}
