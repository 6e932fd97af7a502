package storage

import (
	"context"

	"edu-voting/internal/domain"
)

// VoteAttemptStore provides access to vote_attempts storage.
// Only settled attempts are journaled; the journal is append-only.
type VoteAttemptStore interface {
	// Insert adds a settled attempt. Returns ErrDuplicateKey if attempt_id exists
	// and ErrInvalidInput if the attempt is still pending.
	Insert(ctx context.Context, a *domain.VoteAttempt) error

	// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, attemptID string) (*domain.VoteAttempt, error)

	// GetByAccount retrieves all attempts for an account, ordered by created_at ASC.
	GetByAccount(ctx context.Context, account string) ([]*domain.VoteAttempt, error)

	// GetByTimeRange retrieves attempts created within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.VoteAttempt, error)
}

// TallySnapshotStore provides access to tally_snapshots storage.
type TallySnapshotStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (contract_address, candidate_id, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.TallyPoint) error

	// GetByCandidateID retrieves all points for a candidate, ordered by timestamp ASC.
	GetByCandidateID(ctx context.Context, contract string, candidateID uint64) ([]*domain.TallyPoint, error)

	// GetByTimeRange retrieves points for a candidate within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, contract string, candidateID uint64, start, end int64) ([]*domain.TallyPoint, error)

	// GetLatest retrieves the most recent point per candidate, ordered by candidate_id ASC.
	GetLatest(ctx context.Context, contract string) ([]*domain.TallyPoint, error)
}
