package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edu-voting/internal/domain"
	"edu-voting/internal/storage"
)

func newAttempt(id, account string, candidateID uint64, createdAt int64, outcome domain.VoteOutcome) *domain.VoteAttempt {
	return &domain.VoteAttempt{
		AttemptID:   id,
		Account:     account,
		CandidateID: candidateID,
		ChainID:     domain.RequiredChainID,
		Outcome:     outcome,
		CreatedAt:   createdAt,
		SettledAt:   ptr(createdAt + 5000),
	}
}

func TestVoteAttemptStore_InsertAndGetByID(t *testing.T) {
	pool := setupTestDB(t)

	store := NewVoteAttemptStore(pool)
	ctx := context.Background()

	attempt := newAttempt("attempt-001", "0xABC0000000000000000000000000000000000001", 2, 1700000000000, domain.VoteConfirmed)
	attempt.TxHash = ptr("0xdeadbeef")
	attempt.BlockNumber = ptr(uint64(42))

	err := store.Insert(ctx, attempt)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "attempt-001")
	require.NoError(t, err)

	assert.Equal(t, attempt.AttemptID, retrieved.AttemptID)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", retrieved.Account)
	assert.Equal(t, attempt.CandidateID, retrieved.CandidateID)
	assert.Equal(t, attempt.ChainID, retrieved.ChainID)
	assert.Equal(t, domain.VoteConfirmed, retrieved.Outcome)
	require.NotNil(t, retrieved.TxHash)
	assert.Equal(t, "0xdeadbeef", *retrieved.TxHash)
	require.NotNil(t, retrieved.BlockNumber)
	assert.Equal(t, uint64(42), *retrieved.BlockNumber)
	assert.Nil(t, retrieved.Reason)
	assert.Equal(t, attempt.CreatedAt, retrieved.CreatedAt)
	assert.Equal(t, *attempt.SettledAt, *retrieved.SettledAt)
}

func TestVoteAttemptStore_InsertRejectedWithReason(t *testing.T) {
	pool := setupTestDB(t)

	store := NewVoteAttemptStore(pool)
	ctx := context.Background()

	attempt := newAttempt("attempt-rej", "0xabc", 1, 1700000000000, domain.VoteRejected)
	attempt.Reason = ptr("execution reverted: already voted")

	require.NoError(t, store.Insert(ctx, attempt))

	retrieved, err := store.GetByID(ctx, "attempt-rej")
	require.NoError(t, err)
	assert.Equal(t, domain.VoteRejected, retrieved.Outcome)
	require.NotNil(t, retrieved.Reason)
	assert.Equal(t, "execution reverted: already voted", *retrieved.Reason)
	assert.Nil(t, retrieved.TxHash)
	assert.Nil(t, retrieved.BlockNumber)
}

func TestVoteAttemptStore_InsertDuplicate(t *testing.T) {
	pool := setupTestDB(t)

	store := NewVoteAttemptStore(pool)
	ctx := context.Background()

	attempt := newAttempt("attempt-dup", "0xabc", 1, 1700000000000, domain.VoteConfirmed)

	require.NoError(t, store.Insert(ctx, attempt))

	err := store.Insert(ctx, attempt)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestVoteAttemptStore_InsertPending(t *testing.T) {
	pool := setupTestDB(t)

	store := NewVoteAttemptStore(pool)

	attempt := newAttempt("attempt-pending", "0xabc", 1, 1700000000000, domain.VotePending)
	attempt.SettledAt = nil

	err := store.Insert(context.Background(), attempt)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestVoteAttemptStore_GetByIDNotFound(t *testing.T) {
	pool := setupTestDB(t)

	store := NewVoteAttemptStore(pool)

	_, err := store.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVoteAttemptStore_GetByAccount(t *testing.T) {
	pool := setupTestDB(t)

	store := NewVoteAttemptStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newAttempt("a-2", "0xabc", 1, 2000, domain.VoteConfirmed)))
	require.NoError(t, store.Insert(ctx, newAttempt("a-1", "0xabc", 2, 1000, domain.VoteRejected)))
	require.NoError(t, store.Insert(ctx, newAttempt("b-1", "0xdef", 1, 1500, domain.VoteConfirmed)))

	attempts, err := store.GetByAccount(ctx, "0xABC")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "a-1", attempts[0].AttemptID)
	assert.Equal(t, "a-2", attempts[1].AttemptID)
}

func TestVoteAttemptStore_GetByTimeRange(t *testing.T) {
	pool := setupTestDB(t)

	store := NewVoteAttemptStore(pool)
	ctx := context.Background()

	for i, ts := range []int64{1000, 2000, 3000} {
		id := []string{"r-1", "r-2", "r-3"}[i]
		require.NoError(t, store.Insert(ctx, newAttempt(id, "0xabc", 1, ts, domain.VoteRejected)))
	}

	attempts, err := store.GetByTimeRange(ctx, 1500, 3000)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, int64(2000), attempts[0].CreatedAt)
	assert.Equal(t, int64(3000), attempts[1].CreatedAt)
}

func TestVoteAttemptStore_AppendOnly(t *testing.T) {
	pool := setupTestDB(t)

	store := NewVoteAttemptStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newAttempt("immutable", "0xabc", 1, 1000, domain.VoteConfirmed)))

	_, err := pool.Exec(ctx, `UPDATE vote_attempts SET outcome = 'REJECTED' WHERE attempt_id = 'immutable'`)
	assert.ErrorIs(t, classify(err), storage.ErrDuplicateKey)

	_, err = pool.Exec(ctx, `DELETE FROM vote_attempts WHERE attempt_id = 'immutable'`)
	assert.Error(t, err)
}
