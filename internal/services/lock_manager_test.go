// internal/services/lock_manager_test.go
package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestLockManagerSerializesWriters 测试同一 ID 的写操作互斥
func TestLockManagerSerializesWriters(t *testing.T) {
	lm := NewLockManager()
	defer lm.Close()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = lm.ExecuteWithLock("scenario", func() error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 1, lm.Len())
}

// TestLockManagerReturnsError 测试回调错误原样返回
func TestLockManagerReturnsError(t *testing.T) {
	lm := NewLockManager()
	defer lm.Close()

	want := fmt.Errorf("boom")
	assert.Equal(t, want, lm.ExecuteWithReadLock("a", func() error { return want }))
	assert.NoError(t, lm.ExecuteWithLock("a", func() error { return nil }))
}

// TestLockManagerCleanup 测试只清理空闲且过期的锁
func TestLockManagerCleanup(t *testing.T) {
	lm := NewLockManager()
	defer lm.Close()

	for i := 0; i < maxIdleLocks+10; i++ {
		_ = lm.ExecuteWithReadLock(fmt.Sprintf("id-%d", i), func() error { return nil })
	}

	// 未过期时不清理
	assert.Equal(t, 0, lm.cleanupUnusedLocks(time.Now()))

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = lm.ExecuteWithLock("id-0", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	removed := lm.cleanupUnusedLocks(time.Now().Add(2 * defaultLockTimeout))
	close(release)

	assert.Equal(t, maxIdleLocks+9, removed)
	assert.Equal(t, 1, lm.Len())
}

// TestLockManagerCloseIdempotent 测试重复关闭
func TestLockManagerCloseIdempotent(t *testing.T) {
	lm := NewLockManager()
	lm.Close()
	lm.Close()
}
