package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"edu-voting/internal/domain"
	"edu-voting/internal/storage"
)

// VoteAttemptStore implements storage.VoteAttemptStore using PostgreSQL.
type VoteAttemptStore struct {
	pool *Pool
}

// NewVoteAttemptStore creates a new VoteAttemptStore.
func NewVoteAttemptStore(pool *Pool) *VoteAttemptStore {
	return &VoteAttemptStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VoteAttemptStore = (*VoteAttemptStore)(nil)

const voteAttemptColumns = `attempt_id, account, candidate_id, chain_id, outcome,
	tx_hash, block_number, reason, created_at, settled_at`

// Insert adds a settled attempt. Returns ErrDuplicateKey if attempt_id exists.
func (s *VoteAttemptStore) Insert(ctx context.Context, a *domain.VoteAttempt) (err error) {
	if err := storage.ValidateAttempt(a); err != nil {
		return err
	}

	start := time.Now()
	defer func() { observe("insert_vote_attempt", start, err) }()

	query := `
		INSERT INTO vote_attempts (` + voteAttemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var blockNumber *int64
	if a.BlockNumber != nil {
		v := int64(*a.BlockNumber)
		blockNumber = &v
	}

	_, err = s.pool.Exec(ctx, query,
		a.AttemptID,
		domain.CanonicalAddress(a.Account),
		int64(a.CandidateID),
		int64(a.ChainID),
		string(a.Outcome),
		a.TxHash,
		blockNumber,
		a.Reason,
		a.CreatedAt,
		*a.SettledAt,
	)
	if err != nil {
		if classify(err) == storage.ErrDuplicateKey {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert vote attempt: %w", err)
	}
	return nil
}

// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
func (s *VoteAttemptStore) GetByID(ctx context.Context, attemptID string) (a *domain.VoteAttempt, err error) {
	start := time.Now()
	defer func() { observe("get_vote_attempt", start, err) }()

	query := `SELECT ` + voteAttemptColumns + ` FROM vote_attempts WHERE attempt_id = $1`

	a, err = scanVoteAttempt(s.pool.QueryRow(ctx, query, attemptID))
	if err != nil {
		if classify(err) == storage.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get vote attempt by id: %w", err)
	}
	return a, nil
}

// GetByAccount retrieves all attempts for an account, ordered by created_at ASC.
func (s *VoteAttemptStore) GetByAccount(ctx context.Context, account string) (attempts []*domain.VoteAttempt, err error) {
	start := time.Now()
	defer func() { observe("get_vote_attempts_by_account", start, err) }()

	query := `
		SELECT ` + voteAttemptColumns + `
		FROM vote_attempts
		WHERE account = $1
		ORDER BY created_at ASC, attempt_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.CanonicalAddress(account))
	if err != nil {
		return nil, fmt.Errorf("get vote attempts by account: %w", err)
	}
	defer rows.Close()

	return scanVoteAttempts(rows)
}

// GetByTimeRange retrieves attempts created within [start, end] (inclusive).
func (s *VoteAttemptStore) GetByTimeRange(ctx context.Context, start, end int64) (attempts []*domain.VoteAttempt, err error) {
	began := time.Now()
	defer func() { observe("get_vote_attempts_by_time_range", began, err) }()

	query := `
		SELECT ` + voteAttemptColumns + `
		FROM vote_attempts
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at ASC, attempt_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get vote attempts by time range: %w", err)
	}
	defer rows.Close()

	return scanVoteAttempts(rows)
}

// scanVoteAttempt scans a single row into a VoteAttempt.
func scanVoteAttempt(row pgx.Row) (*domain.VoteAttempt, error) {
	var a domain.VoteAttempt
	var outcome string
	var candidateID, chainID int64
	var blockNumber *int64
	var settledAt int64

	err := row.Scan(
		&a.AttemptID,
		&a.Account,
		&candidateID,
		&chainID,
		&outcome,
		&a.TxHash,
		&blockNumber,
		&a.Reason,
		&a.CreatedAt,
		&settledAt,
	)
	if err != nil {
		return nil, err
	}

	a.CandidateID = uint64(candidateID)
	a.ChainID = uint64(chainID)
	a.Outcome = domain.VoteOutcome(outcome)
	a.SettledAt = &settledAt
	if blockNumber != nil {
		v := uint64(*blockNumber)
		a.BlockNumber = &v
	}
	return &a, nil
}

// scanVoteAttempts scans multiple rows into a slice of VoteAttempt.
func scanVoteAttempts(rows pgx.Rows) ([]*domain.VoteAttempt, error) {
	var attempts []*domain.VoteAttempt

	for rows.Next() {
		a, err := scanVoteAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vote attempt row: %w", err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote attempt rows: %w", err)
	}

	return attempts, nil
}
