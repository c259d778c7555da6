package keystore

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory keystore. Usage increments happen
// under the store lock, so concurrent tool calls never lose updates.
type MemoryStore struct {
	mu      sync.RWMutex
	byKey   map[string]*Record
	byEmail map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey:   make(map[string]*Record),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) Validate(_ context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byKey[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return record.clone(), nil
}

func (s *MemoryStore) RecordUsage(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byKey[key]
	if !ok {
		return ErrKeyNotFound
	}
	if record.Usage == nil {
		record.Usage = make(map[string]int64)
	}
	record.Usage[MonthKey(time.Now())]++
	return nil
}

func (s *MemoryStore) Create(_ context.Context, name, email, tier string) (*Record, error) {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return nil, ErrEmailExists
	}
	record := &Record{
		Key:       NewKey(),
		Name:      name,
		Email:     email,
		Tier:      tier,
		Usage:     make(map[string]int64),
		CreatedAt: time.Now().UTC(),
	}
	s.byKey[record.Key] = record
	s.byEmail[email] = record.Key
	return record.clone(), nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return s.byKey[key].clone(), nil
}

func (s *MemoryStore) Upgrade(_ context.Context, email, tier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return ErrKeyNotFound
	}
	s.byKey[key].Tier = tier
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey = make(map[string]*Record)
	s.byEmail = make(map[string]string)
	return nil
}

func (r *Record) clone() *Record {
	usage := make(map[string]int64, len(r.Usage))
	for month, count := range r.Usage {
		usage[month] = count
	}
	clone := *r
	clone.Usage = usage
	return &clone
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
