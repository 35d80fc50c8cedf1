package job

import (
	"context"
	"sync"
	"time"

	"ticketpos/internal/config"
	"ticketpos/internal/infrastructure/mq"
	"ticketpos/internal/model"
	"ticketpos/internal/repository"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutboxSender 轮询 outbox 表，把支付事件投递到 Kafka
// 投递失败累计重试次数，达到上限后标记 FAILED，不再重试
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  mq.Publisher
	interval   time.Duration
	batchSize  int
	maxRetry   int

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewOutboxSender(db *gorm.DB, cfg *config.KafkaConfig, publisher mq.Publisher) *OutboxSender {
	interval := cfg.OutboxInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	maxRetry := cfg.MaxRetryCount
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		interval:   interval,
		batchSize:  100,
		maxRetry:   maxRetry,
		stopCh:     make(chan struct{}),
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Info("[OutboxSender] 消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("[OutboxSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Info("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// ProcessPending 投递一批待发送消息，返回成功条数
func (s *OutboxSender) ProcessPending(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Errorf("[OutboxSender] 查询消息失败: %v", err)
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if s.sendMessage(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	err := s.publisher.Publish(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.MarkAsSent(ctx, msg.ID); updateErr != nil {
			log.Errorf("[OutboxSender] 更新消息状态失败: id=%d, err=%v", msg.ID, updateErr)
			return false
		}
		log.Debugf("[OutboxSender] 消息发送成功: id=%d, topic=%s, key=%s", msg.ID, msg.Topic, msg.MessageKey)
		return true
	}

	log.Warnf("[OutboxSender] 消息发送失败: id=%d, err=%v", msg.ID, err)

	exhausted, updateErr := s.outboxRepo.RecordFailure(ctx, msg, s.maxRetry)
	if updateErr != nil {
		log.Errorf("[OutboxSender] 记录失败次数失败: id=%d, err=%v", msg.ID, updateErr)
		return false
	}
	if exhausted {
		log.Errorf("[OutboxSender] 消息超过最大重试次数，标记为失败: id=%d, key=%s", msg.ID, msg.MessageKey)
	}
	return false
}
