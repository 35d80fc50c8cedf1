package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// Redis 分布式锁
// ============================================================================
//
// 多实例部署时，兑换码清理任务在每个实例上都会触发。
// 删除本身是幂等的，但同一时刻只需要一个实例执行，用锁避免重复扫描。
//
// 加锁：SET key value NX PX ttl
// 释放：Lua 脚本比较 value 后再删除，防止误删其他实例的锁
//
// 余额扣减的互斥不依赖这里，而是依赖数据库行锁。
// ============================================================================

var ErrLockNotHeld = errors.New("锁未持有或已过期")

const sweepLockKey = "pos:lock:token-sweep"

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 持有者标识
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// NewSweepLock 兑换码清理任务锁，ttl 应小于清理间隔
func NewSweepLock(client *redis.Client, owner string, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(client, sweepLockKey, owner, ttl)
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Unlock 释放锁，只删除自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	deleted, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Int64()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
