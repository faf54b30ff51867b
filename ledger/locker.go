package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Locker serializes work on one key, typically one invoice.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned func releases it
	// and may be called more than once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func invoiceLockKey(id uint) string {
	return fmt.Sprintf("invoice:%d", id)
}

// MemoryLocker is a Locker for a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	held chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*lockSlot)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{held: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.held <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.held
			l.release(key, slot)
		})
	}, nil
}

func (l *MemoryLocker) release(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}
