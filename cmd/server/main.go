package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"ticketpos/internal/config"
	"ticketpos/internal/handler"
	"ticketpos/internal/infrastructure/cache"
	"ticketpos/internal/infrastructure/database"
	"ticketpos/internal/infrastructure/lock"
	"ticketpos/internal/infrastructure/logging"
	"ticketpos/internal/infrastructure/mq"
	"ticketpos/internal/job"
	"ticketpos/internal/qrtoken"
	"ticketpos/internal/repository"
	"ticketpos/internal/security"
	"ticketpos/internal/service"
	"ticketpos/pkg/idgen"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", envOr("TICKETPOS_CONFIG", "config/config.yaml"), "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg := config.LoadConfig(*configPath)
	logging.Init(&cfg.Log)

	// 初始化 ID 生成器
	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		log.Fatalf("初始化ID生成器失败: %v", err)
	}

	// 初始化数据库
	db := database.InitDatabase(&cfg.Database)

	// 初始化 Redis（可选，仅用于清理任务互斥）
	redisClient := cache.InitRedis(&cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// 初始化 Kafka（可选）
	producer := mq.InitKafka(&cfg.Kafka)
	defer producer.Close()

	eventTopic := ""
	if producer != nil {
		eventTopic = cfg.Kafka.Topic.PaymentResult
	}

	// 组装服务
	signer := security.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	policy := qrtoken.Policy{FreshnessWindow: cfg.Token.FreshnessWindow, GracePeriod: cfg.Token.GracePeriod}
	validator := qrtoken.NewValidator(repository.NewTokenRepository(db), policy, cfg.Token.ReuseWithinWindow)

	h := handler.NewHandler(
		service.NewAuthService(db, signer),
		service.NewRedeemService(db, validator, eventTopic),
		service.NewManualPayService(db, eventTopic),
		service.NewReceiptService(db),
	)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var jobs sync.WaitGroup

	// 启动后台任务
	var sweepLock job.Locker
	if redisClient != nil {
		sweepLock = lock.NewSweepLock(redisClient, lockOwner(), cfg.Token.SweepInterval/2)
	}
	sweeper := job.NewTokenSweeper(db, &cfg.Token, sweepLock)
	jobs.Add(1)
	go func() {
		defer jobs.Done()
		sweeper.Start(ctx)
	}()

	if producer != nil {
		outboxSender := job.NewOutboxSender(db, &cfg.Kafka, producer)
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			outboxSender.Start(ctx)
		}()
	}

	// 设置路由
	gin.SetMode(gin.ReleaseMode)
	router := handler.SetupRouter(h, signer)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Infof("POS 兑换服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	// 先停止接收新请求，再停后台任务
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("服务关闭异常: %v", err)
	}

	cancel()
	jobs.Wait()

	log.Info("服务已关闭")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// lockOwner 清理锁持有者标识：主机名 + 随机后缀，同一主机多进程也不冲突
func lockOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()
}
