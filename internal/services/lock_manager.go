// internal/services/lock_manager.go
package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// LockManager 统一的故事锁管理器。
// 同一故事 id 的保存与加载串行化，互不相关的故事之间没有顺序约束。
type LockManager struct {
	storyLocks map[string]*LockInfo
	globalLock sync.RWMutex
}

// LockInfo 包装锁和相关信息。
// lastUsed 在全局读锁下也会被并发更新，必须原子访问。
type LockInfo struct {
	Mutex    *sync.RWMutex
	lastUsed int64 // unix 纳秒
}

func (li *LockInfo) touch() {
	atomic.StoreInt64(&li.lastUsed, time.Now().UnixNano())
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	lm := &LockManager{
		storyLocks: make(map[string]*LockInfo),
	}

	lm.startCleanup()
	return lm
}

// GetStoryLock 获取故事锁（线程安全）
func (lm *LockManager) GetStoryLock(storyID string) *sync.RWMutex {
	lm.globalLock.RLock()
	if lockInfo, exists := lm.storyLocks[storyID]; exists {
		lm.globalLock.RUnlock()
		lockInfo.touch()
		return lockInfo.Mutex
	}
	lm.globalLock.RUnlock()

	// 升级为写锁
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	// 双重检查（在写锁保护下是安全的）
	if lockInfo, exists := lm.storyLocks[storyID]; exists {
		lockInfo.touch()
		return lockInfo.Mutex
	}

	lockInfo := &LockInfo{Mutex: &sync.RWMutex{}}
	lockInfo.touch()
	lm.storyLocks[storyID] = lockInfo
	return lockInfo.Mutex
}

// ExecuteWithStoryLock 在故事写锁保护下执行操作
func (lm *LockManager) ExecuteWithStoryLock(storyID string, fn func() error) error {
	lock := lm.GetStoryLock(storyID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// ExecuteWithStoryReadLock 在故事读锁保护下执行操作
func (lm *LockManager) ExecuteWithStoryReadLock(storyID string, fn func() error) error {
	lock := lm.GetStoryLock(storyID)
	lock.RLock()
	defer lock.RUnlock()
	return fn()
}

// 定期清理长时间未使用的锁
func (lm *LockManager) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			lm.cleanupUnusedLocks()
		}
	}()
}

func (lm *LockManager) cleanupUnusedLocks() {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	const maxLocks = 200
	const lockTimeout = 30 * time.Minute

	// 只有在锁数量过多时才清理
	if len(lm.storyLocks) > maxLocks {
		now := time.Now()
		for storyID, lockInfo := range lm.storyLocks {
			lastUsed := time.Unix(0, atomic.LoadInt64(&lockInfo.lastUsed))
			if now.Sub(lastUsed) > lockTimeout {
				delete(lm.storyLocks, storyID)
			}
		}
	}
}
