package lock

import (
	"context"
	"sync"
	"time"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

// MemoryLocker: блокировка в пределах одного процесса, когда Redis не настроен.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	now   func() time.Time
	seqID uint64
}

type memoryEntry struct {
	id        uint64
	expiresAt time.Time
}

// NewMemory создаёт блокировку в памяти.
func NewMemory() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryEntry), now: time.Now}
}

// Acquire занимает ключ на ttl; истёкший ключ считается свободным.
func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expiresAt) {
		return nil, domain.ErrGenerationInProgress
	}
	l.seqID++
	id := l.seqID
	l.held[key] = memoryEntry{id: id, expiresAt: now.Add(ttl)}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.id == id {
			delete(l.held, key)
		}
	}, nil
}
