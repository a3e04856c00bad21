// internal/services/lock_manager_test.go
package services

import (
	"sync"
	"testing"
)

func TestGetStoryLock_SameIDSameLock(t *testing.T) {
	lm := NewLockManager()

	// 同一故事 id 的并发获取必须返回同一把锁
	const workers = 16
	locks := make([]*sync.RWMutex, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			locks[idx] = lm.GetStoryLock("story-1")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if locks[i] != locks[0] {
			t.Fatal("同一故事 id 应返回同一把锁")
		}
	}

	if lm.GetStoryLock("story-2") == locks[0] {
		t.Error("不同故事 id 不应共享锁")
	}
}

func TestExecuteWithStoryLock_Serializes(t *testing.T) {
	lm := NewLockManager()

	// 写锁下的递增串行执行，结果不丢失
	const workers = 32
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.ExecuteWithStoryLock("story-1", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("期望计数 %d，实际为 %d", workers, counter)
	}
}
