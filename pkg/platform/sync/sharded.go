package sync

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// ShardedMutex serializes work per key without a single global lock.
// Distinct keys may share a shard; a key always maps to the same shard.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// Lock acquires the key's shard and returns its unlock function.
func (m *ShardedMutex) Lock(key string) (unlock func()) {
	mu := &m.shards[shardFor(key)]
	mu.Lock()
	return mu.Unlock
}

// Do runs fn while holding the key's shard.
func (m *ShardedMutex) Do(key string, fn func()) {
	unlock := m.Lock(key)
	defer unlock()
	fn()
}

func shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
