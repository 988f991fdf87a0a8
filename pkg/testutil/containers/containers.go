//go:build integration

// Package containers starts the backing services integration tests run
// against. Each service is started on first request and reused by every
// suite in the test binary; Ryuk removes the containers when the binary exits.
package containers

import (
	"sync"
	"testing"
)

// lazy starts a container once. A failed start is retried by the next caller.
type lazy[T any] struct {
	mu  sync.Mutex
	val *T
}

func (l *lazy[T]) get(t *testing.T, start func(*testing.T) *T) *T {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.val == nil {
		l.val = start(t)
	}
	return l.val
}

// Manager hands out the shared containers.
type Manager struct {
	postgres lazy[PostgresContainer]
	kafka    lazy[KafkaContainer]
	minio    lazy[MinioContainer]
}

var globalManager = &Manager{}

// GetManager returns the process-wide manager.
func GetManager() *Manager {
	return globalManager
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return m.postgres.get(t, NewPostgresContainer)
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	return m.kafka.get(t, NewKafkaContainer)
}

func (m *Manager) GetMinio(t *testing.T) *MinioContainer {
	t.Helper()
	return m.minio.get(t, NewMinioContainer)
}
