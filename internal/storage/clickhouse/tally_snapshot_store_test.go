package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edu-voting/internal/domain"
	"edu-voting/internal/storage"
	chstore "edu-voting/internal/storage/clickhouse"
)

const testContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"

func syncPoints(ts int64, votes ...uint64) []*domain.TallyPoint {
	names := []string{"Alice", "Bob", "Carol"}
	points := make([]*domain.TallyPoint, len(votes))
	for i, v := range votes {
		points[i] = &domain.TallyPoint{
			ContractAddress: testContract,
			CandidateID:     uint64(i + 1),
			Name:            names[i],
			VoteCount:       v,
			TimestampMs:     ts,
		}
	}
	return points
}

func TestTallySnapshotStore_InsertBulk(t *testing.T) {
	conn := setupTestDB(t)

	store := chstore.NewTallySnapshotStore(conn)
	ctx := context.Background()

	assert.NoError(t, store.InsertBulk(ctx, nil))

	require.NoError(t, store.InsertBulk(ctx, syncPoints(1000, 1, 2)))
	require.NoError(t, store.InsertBulk(ctx, syncPoints(2000, 3, 2)))

	got, err := store.GetByCandidateID(ctx, testContract, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, uint64(1), got[0].VoteCount)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, uint64(3), got[1].VoteCount)
}

func TestTallySnapshotStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn := setupTestDB(t)

	store := chstore.NewTallySnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, syncPoints(1000, 1)))

	err := store.InsertBulk(ctx, syncPoints(1000, 1))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTallySnapshotStore_GetByTimeRange(t *testing.T) {
	conn := setupTestDB(t)

	store := chstore.NewTallySnapshotStore(conn)
	ctx := context.Background()

	for _, ts := range []int64{1000, 2000, 3000} {
		require.NoError(t, store.InsertBulk(ctx, syncPoints(ts, uint64(ts/1000))))
	}

	got, err := store.GetByTimeRange(ctx, testContract, 1, 1500, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[1].TimestampMs)
}

func TestTallySnapshotStore_GetLatest(t *testing.T) {
	conn := setupTestDB(t)

	store := chstore.NewTallySnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, syncPoints(1000, 1, 0, 4)))
	require.NoError(t, store.InsertBulk(ctx, syncPoints(2000, 2, 1, 4)))

	latest, err := store.GetLatest(ctx, testContract)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	for i, want := range []uint64{2, 1, 4} {
		assert.Equal(t, uint64(i+1), latest[i].CandidateID)
		assert.Equal(t, want, latest[i].VoteCount)
		assert.Equal(t, int64(2000), latest[i].TimestampMs)
	}
}
