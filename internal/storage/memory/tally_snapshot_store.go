package memory

import (
	"context"
	"sort"
	"sync"

	"edu-voting/internal/domain"
	"edu-voting/internal/storage"
)

type tallyKey struct {
	contract    string
	candidateID uint64
}

// TallySnapshotStore is an in-memory implementation of storage.TallySnapshotStore.
type TallySnapshotStore struct {
	mu   sync.RWMutex
	data map[tallyKey][]*domain.TallyPoint // sorted by timestamp_ms
}

// NewTallySnapshotStore creates a new in-memory tally snapshot store.
func NewTallySnapshotStore() *TallySnapshotStore {
	return &TallySnapshotStore{
		data: make(map[tallyKey][]*domain.TallyPoint),
	}
}

// Compile-time interface check.
var _ storage.TallySnapshotStore = (*TallySnapshotStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate key.
func (s *TallySnapshotStore) InsertBulk(_ context.Context, points []*domain.TallyPoint) error {
	if len(points) == 0 {
		return nil
	}

	type fullKey struct {
		tallyKey
		timestampMs int64
	}
	seen := make(map[fullKey]struct{}, len(points))
	for _, p := range points {
		if err := storage.ValidateTallyPoint(p); err != nil {
			return err
		}
		k := fullKey{tallyKey{domain.CanonicalAddress(p.ContractAddress), p.CandidateID}, p.TimestampMs}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		for _, existing := range s.data[tallyKey{domain.CanonicalAddress(p.ContractAddress), p.CandidateID}] {
			if existing.TimestampMs == p.TimestampMs {
				return storage.ErrDuplicateKey
			}
		}
	}

	for _, p := range points {
		pointCopy := *p
		pointCopy.ContractAddress = domain.CanonicalAddress(p.ContractAddress)
		k := tallyKey{pointCopy.ContractAddress, p.CandidateID}
		series := append(s.data[k], &pointCopy)
		sort.Slice(series, func(i, j int) bool {
			return series[i].TimestampMs < series[j].TimestampMs
		})
		s.data[k] = series
	}
	return nil
}

// GetByCandidateID retrieves all points for a candidate, ordered by timestamp ASC.
func (s *TallySnapshotStore) GetByCandidateID(_ context.Context, contract string, candidateID uint64) ([]*domain.TallyPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyPoints(s.data[tallyKey{domain.CanonicalAddress(contract), candidateID}], nil), nil
}

// GetByTimeRange retrieves points for a candidate within [start, end] (inclusive).
func (s *TallySnapshotStore) GetByTimeRange(_ context.Context, contract string, candidateID uint64, start, end int64) ([]*domain.TallyPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyPoints(s.data[tallyKey{domain.CanonicalAddress(contract), candidateID}], func(p *domain.TallyPoint) bool {
		return p.TimestampMs >= start && p.TimestampMs <= end
	}), nil
}

// GetLatest retrieves the most recent point per candidate, ordered by candidate_id ASC.
func (s *TallySnapshotStore) GetLatest(_ context.Context, contract string) ([]*domain.TallyPoint, error) {
	contract = domain.CanonicalAddress(contract)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TallyPoint
	for k, series := range s.data {
		if k.contract != contract || len(series) == 0 {
			continue
		}
		latest := *series[len(series)-1]
		result = append(result, &latest)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CandidateID < result[j].CandidateID
	})
	return result, nil
}

func copyPoints(series []*domain.TallyPoint, keep func(*domain.TallyPoint) bool) []*domain.TallyPoint {
	var result []*domain.TallyPoint
	for _, p := range series {
		if keep != nil && !keep(p) {
			continue
		}
		pointCopy := *p
		result = append(result, &pointCopy)
	}
	return result
}
