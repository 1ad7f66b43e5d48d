package rag

import "sync"

// chatLocks serializes summary updates per chat so two concurrent merges can
// never race on the same summary row. Locks are created lazily and kept for
// the engine's lifetime; a chat entry is a single mutex, cheap enough to
// never evict.
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the chat's mutex and returns its unlock function.
func (c *chatLocks) Lock(chatID int64) func() {
	c.mu.Lock()
	l, ok := c.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[chatID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}
