package service

import (
	"context"
	"sync"
	"time"

	"elective-helper/internal/model"
	"elective-helper/pkg/redis"
)

// ── Mock EnrolledCourseRepository ──

type mockEnrolledCourseRepo struct {
	mu       sync.Mutex
	sessions map[string][]model.EnrolledCourse

	listErr    error
	replaceErr error
	deleteErr  error

	listCalls int
}

func newMockEnrolledCourseRepo() *mockEnrolledCourseRepo {
	return &mockEnrolledCourseRepo{sessions: make(map[string][]model.EnrolledCourse)}
}

func (m *mockEnrolledCourseRepo) ListBySession(_ context.Context, sessionID string) ([]model.EnrolledCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]model.EnrolledCourse(nil), m.sessions[sessionID]...), nil
}

func (m *mockEnrolledCourseRepo) DeleteBySession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *mockEnrolledCourseRepo) ReplaceBySession(_ context.Context, sessionID string, courses []model.EnrolledCourse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.sessions[sessionID] = append([]model.EnrolledCourse(nil), courses...)
	return nil
}

// ── Mock SnapshotCache ──

type mockSnapshotCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	getErr error
	setErr error

	deleted []string
}

func newMockSnapshotCache() *mockSnapshotCache {
	return &mockSnapshotCache{entries: make(map[string][]byte)}
}

func (m *mockSnapshotCache) GetSnapshot(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.entries[sessionID]
	if !ok {
		return nil, redis.ErrCacheMiss
	}
	return data, nil
}

func (m *mockSnapshotCache) SetSnapshot(_ context.Context, sessionID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[sessionID] = data
	return nil
}

func (m *mockSnapshotCache) DeleteSnapshot(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	m.deleted = append(m.deleted, sessionID)
	return nil
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	tokens map[string]time.Duration
	err    error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{tokens: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.tokens[jti] = ttl
	return nil
}

// ── Mock SnapshotStore ──

// memSnapshotStore 内存快照存储，用于不关心缓存细节的业务测试
type memSnapshotStore struct {
	snapshots map[string][]model.Course
	loadErr   error
	saveErr   error
	clearErr  error
	saves     int
}

func newMemSnapshotStore() *memSnapshotStore {
	return &memSnapshotStore{snapshots: make(map[string][]model.Course)}
}

func (m *memSnapshotStore) Load(_ context.Context, sessionID string) ([]model.Course, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	courses := m.snapshots[sessionID]
	if courses == nil {
		return []model.Course{}, nil
	}
	return courses, nil
}

func (m *memSnapshotStore) Save(_ context.Context, sessionID string, courses []model.Course) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snapshots[sessionID] = courses
	return nil
}

func (m *memSnapshotStore) Clear(_ context.Context, sessionID string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	delete(m.snapshots, sessionID)
	return nil
}
