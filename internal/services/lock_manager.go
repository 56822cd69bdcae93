// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

const (
	defaultLockCleanupInterval = 5 * time.Minute
	defaultLockTimeout         = 30 * time.Minute
	maxIdleLocks               = 200
)

// LockManager 按剧本 ID 分配读写锁
type LockManager struct {
	locks      map[string]*LockInfo
	globalLock sync.Mutex
	lockTTL    time.Duration

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// LockInfo 包装锁和相关信息
type LockInfo struct {
	Mutex    *sync.RWMutex
	LastUsed time.Time
	refs     int // 正在使用的协程数，大于 0 时不会被清理
}

// NewLockManager 创建锁管理器并启动清理协程，使用完毕需调用 Close
func NewLockManager() *LockManager {
	lm := &LockManager{
		locks:   make(map[string]*LockInfo),
		lockTTL: defaultLockTimeout,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go lm.cleanupLoop(defaultLockCleanupInterval)
	return lm
}

// Close 停止清理协程，可重复调用
func (lm *LockManager) Close() {
	lm.once.Do(func() {
		close(lm.stop)
		<-lm.done
	})
}

func (lm *LockManager) acquire(id string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, exists := lm.locks[id]
	if !exists {
		info = &LockInfo{Mutex: &sync.RWMutex{}}
		lm.locks[id] = info
	}
	info.refs++
	info.LastUsed = time.Now()
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info.refs--
	info.LastUsed = time.Now()
}

// ExecuteWithLock 在写锁保护下执行操作
func (lm *LockManager) ExecuteWithLock(id string, fn func() error) error {
	info := lm.acquire(id)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// ExecuteWithReadLock 在读锁保护下执行操作
func (lm *LockManager) ExecuteWithReadLock(id string, fn func() error) error {
	info := lm.acquire(id)
	defer lm.release(info)

	info.Mutex.RLock()
	defer info.Mutex.RUnlock()
	return fn()
}

// Len 当前持有的锁数量
func (lm *LockManager) Len() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	return len(lm.locks)
}

func (lm *LockManager) cleanupLoop(interval time.Duration) {
	defer close(lm.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-lm.stop:
			return
		case <-ticker.C:
			lm.cleanupUnusedLocks(time.Now())
		}
	}
}

// cleanupUnusedLocks 锁数量过多时移除长时间未使用且无人持有的锁
func (lm *LockManager) cleanupUnusedLocks(now time.Time) int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	if len(lm.locks) <= maxIdleLocks {
		return 0
	}

	removed := 0
	for id, info := range lm.locks {
		if info.refs == 0 && now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.locks, id)
			removed++
		}
	}
	return removed
}
