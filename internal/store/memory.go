package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory. It is the default
// backend for embedding and tests; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]StatusRecord
	jobs     map[string]time.Time
	flags    map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses: make(map[string]StatusRecord),
		jobs:     make(map[string]time.Time),
		flags:    make(map[string]bool),
	}
}

func (s *MemoryStore) EnsureSchema(_ context.Context) error { return nil }

func (s *MemoryStore) SaveStatuses(_ context.Context, statuses map[string]StatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = make(map[string]StatusRecord, len(statuses))
	for label, rec := range statuses {
		s.statuses[label] = rec
	}
	return nil
}

func (s *MemoryStore) LoadStatuses(_ context.Context) (map[string]StatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]StatusRecord, len(s.statuses))
	for label, rec := range s.statuses {
		out[label] = rec
	}
	return out, nil
}

func (s *MemoryStore) MarkJobDone(_ context.Context, label string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[label]; !ok {
		s.jobs[label] = completedAt
	}
	return nil
}

func (s *MemoryStore) IsJobDone(_ context.Context, label string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.jobs[label]
	return ok, nil
}

func (s *MemoryStore) JobLabels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	labels := make([]string, 0, len(s.jobs))
	for label := range s.jobs {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}

func (s *MemoryStore) SetFlag(_ context.Context, name string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = value
	return nil
}

func (s *MemoryStore) GetFlag(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[name], nil
}

func (s *MemoryStore) Close() error { return nil }
