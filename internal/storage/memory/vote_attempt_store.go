package memory

import (
	"context"
	"sort"
	"sync"

	"edu-voting/internal/domain"
	"edu-voting/internal/storage"
)

// VoteAttemptStore is an in-memory implementation of storage.VoteAttemptStore.
type VoteAttemptStore struct {
	mu   sync.RWMutex
	data map[string]*domain.VoteAttempt // keyed by attempt_id
}

// NewVoteAttemptStore creates a new in-memory vote attempt store.
func NewVoteAttemptStore() *VoteAttemptStore {
	return &VoteAttemptStore{
		data: make(map[string]*domain.VoteAttempt),
	}
}

// Compile-time interface check.
var _ storage.VoteAttemptStore = (*VoteAttemptStore)(nil)

// Insert adds a settled attempt. Returns ErrDuplicateKey if attempt_id exists.
func (s *VoteAttemptStore) Insert(_ context.Context, a *domain.VoteAttempt) error {
	if err := storage.ValidateAttempt(a); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AttemptID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[a.AttemptID] = a.Clone()
	return nil
}

// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
func (s *VoteAttemptStore) GetByID(_ context.Context, attemptID string) (*domain.VoteAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[attemptID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return a.Clone(), nil
}

// GetByAccount retrieves all attempts for an account, ordered by created_at ASC.
func (s *VoteAttemptStore) GetByAccount(_ context.Context, account string) ([]*domain.VoteAttempt, error) {
	account = domain.CanonicalAddress(account)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VoteAttempt
	for _, a := range s.data {
		if a.Account == account {
			result = append(result, a.Clone())
		}
	}

	sortAttempts(result)
	return result, nil
}

// GetByTimeRange retrieves attempts created within [start, end] (inclusive).
func (s *VoteAttemptStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.VoteAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VoteAttempt
	for _, a := range s.data {
		if a.CreatedAt >= start && a.CreatedAt <= end {
			result = append(result, a.Clone())
		}
	}

	sortAttempts(result)
	return result, nil
}

// sortAttempts orders by created_at, then attempt_id for determinism.
func sortAttempts(attempts []*domain.VoteAttempt) {
	sort.Slice(attempts, func(i, j int) bool {
		if attempts[i].CreatedAt != attempts[j].CreatedAt {
			return attempts[i].CreatedAt < attempts[j].CreatedAt
		}
		return attempts[i].AttemptID < attempts[j].AttemptID
	})
}
