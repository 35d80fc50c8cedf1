package job

import (
	"context"
	"sync"
	"time"

	"ticketpos/internal/config"
	"ticketpos/internal/repository"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Locker 集群互斥锁，多实例部署时保证同一轮清理只有一个实例执行
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// TokenSweeper 定期删除超过 有效期+宽限期 的兑换码
//
// 删除条件只看发码时间，与是否已使用无关；
// 有效期内的兑换码永远不会被删除
type TokenSweeper struct {
	tokenRepo *repository.TokenRepository
	locker    Locker
	retention time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTokenSweeper locker 为 nil 时不加锁
func NewTokenSweeper(db *gorm.DB, cfg *config.TokenConfig, locker Locker) *TokenSweeper {
	batchSize := cfg.SweepBatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &TokenSweeper{
		tokenRepo: repository.NewTokenRepository(db),
		locker:    locker,
		retention: cfg.Retention(),
		interval:  cfg.SweepInterval,
		batchSize: batchSize,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

func (j *TokenSweeper) Start(ctx context.Context) {
	log.Infof("[TokenSweeper] 兑换码清理任务启动: interval=%s, retention=%s", j.interval, j.retention)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("[TokenSweeper] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Info("[TokenSweeper] 任务停止")
			return
		case <-ticker.C:
			if _, err := j.SweepOnce(ctx); err != nil {
				log.Errorf("[TokenSweeper] 清理兑换码失败: %v", err)
			}
		}
	}
}

// Stop 可重复调用
func (j *TokenSweeper) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// SweepOnce 执行一轮清理，返回删除条数
// 未抢到集群锁时直接跳过，返回 0
func (j *TokenSweeper) SweepOnce(ctx context.Context) (int64, error) {
	if j.locker != nil {
		acquired, err := j.locker.TryLock(ctx)
		if err != nil {
			return 0, err
		}
		if !acquired {
			log.Debug("[TokenSweeper] 其他实例正在清理，跳过本轮")
			return 0, nil
		}
		defer func() {
			if err := j.locker.Unlock(context.Background()); err != nil {
				log.Warnf("[TokenSweeper] 释放清理锁失败: %v", err)
			}
		}()
	}

	cutoffMs := j.now().Add(-j.retention).UnixMilli()

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := j.tokenRepo.DeleteIssuedBefore(ctx, cutoffMs, j.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted

		if deleted < int64(j.batchSize) {
			break
		}
	}

	if total > 0 {
		log.Infof("[TokenSweeper] 删除过期兑换码 %d 条", total)
	}
	return total, nil
}
