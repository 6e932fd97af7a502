package voting_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractstub "edu-voting/internal/contract/stub"
	"edu-voting/internal/domain"
	"edu-voting/internal/voting"
	walletstub "edu-voting/internal/wallet/stub"
)

func TestSession_StartRestoresAuthorisedAccount(t *testing.T) {
	f := newFixture(t, domain.RequiredChainID, []string{"Alice", "Bob"}, []uint64{5, 3}, voting.DefaultVoteConfig())
	f.wallet.Update(func(w *walletstub.Wallet) { w.Authorised = []string{testAccount} })

	require.NoError(t, f.session.Start(context.Background()))

	snap := f.session.Snapshot()
	assert.True(t, snap.Connected)
	assert.Equal(t, canonical(testAccount), snap.Account.Address)
	assert.Equal(t, domain.NetworkCorrect, snap.Network.Status)
	assert.Len(t, snap.Candidates.Candidates, 2)

	requests, _, _ := f.wallet.Calls()
	assert.Equal(t, 0, requests, "silent reconnection never prompts")
}

func TestSession_StartWithoutAuthorisedAccount(t *testing.T) {
	f := newFixture(t, domain.RequiredChainID, []string{"Alice"}, []uint64{0}, voting.DefaultVoteConfig())

	require.NoError(t, f.session.Start(context.Background()))

	snap := f.session.Snapshot()
	assert.False(t, snap.Connected)
	assert.Equal(t, domain.NetworkUnknown, snap.Network.Status)
	assert.Equal(t, 0, f.caller.syncs())
	assert.True(t, snap.Error.IsZero())
}

func TestSession_Refresh(t *testing.T) {
	f := newFixture(t, domain.RequiredChainID, []string{"Alice"}, []uint64{0}, voting.DefaultVoteConfig())
	ctx := context.Background()

	_, err := f.session.Refresh(ctx)
	assert.ErrorIs(t, err, voting.ErrNotReady)
	assert.True(t, f.session.Snapshot().Error.IsZero(), "background refresh does not write the error slot")

	_, err = f.session.Connect(ctx)
	require.NoError(t, err)

	require.NoError(t, contractstub.Seed(f.node, []string{"Alice", "Bob"}, []uint64{2, 0}))
	list, err := f.session.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Candidates, 2)
	assert.Equal(t, uint64(2), f.session.Snapshot().Candidates.TotalVotes())
}

func TestSession_HasVoted(t *testing.T) {
	f := newFixture(t, domain.RequiredChainID, []string{"Alice"}, []uint64{0}, voting.DefaultVoteConfig())
	ctx := context.Background()

	_, err := f.session.Connect(ctx)
	require.NoError(t, err)

	other := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	require.NoError(t, contractstub.SetVoted(f.node, other, true))

	voted, err := f.session.HasVoted(ctx, other.Hex())
	require.NoError(t, err)
	assert.True(t, voted)

	snap := f.session.Snapshot()
	require.NotNil(t, snap.HasVoted)
	assert.False(t, *snap.HasVoted, "another account's flag is not stored")

	require.NoError(t, contractstub.SetVoted(f.node, common.HexToAddress(testAccount), true))
	voted, err = f.session.HasVoted(ctx, testAccount)
	require.NoError(t, err)
	assert.True(t, voted)
	assert.True(t, *f.session.Snapshot().HasVoted)
}

func TestSession_SnapshotIsDeepCopy(t *testing.T) {
	f := newFixture(t, domain.RequiredChainID, []string{"Alice"}, []uint64{4}, voting.DefaultVoteConfig())

	_, err := f.session.SubmitVote(context.Background(), 1)
	require.NoError(t, err)

	snap := f.session.Snapshot()
	snap.Candidates.Candidates[0].VoteCount = 999
	*snap.LastVote.TxHash = "mutated"
	*snap.HasVoted = false

	fresh := f.session.Snapshot()
	assert.Equal(t, uint64(4), fresh.Candidates.Candidates[0].VoteCount)
	assert.NotEqual(t, "mutated", *fresh.LastVote.TxHash)
	assert.True(t, *fresh.HasVoted)
}

func TestSession_ContractAddress(t *testing.T) {
	f := newFixture(t, domain.RequiredChainID, nil, nil, voting.DefaultVoteConfig())
	assert.Equal(t, canonical(testContract.Hex()), f.session.ContractAddress())
}

func TestSession_HasVotedFailureRecordsError(t *testing.T) {
	f := newFixture(t, domain.RequiredChainID, []string{"Alice"}, []uint64{0}, voting.DefaultVoteConfig())

	_, err := f.session.HasVoted(context.Background(), "not-an-address")
	require.ErrorIs(t, err, voting.ErrLedgerReadFailed)

	slot := f.session.Snapshot().Error
	assert.Equal(t, domain.ComponentLedger, slot.Component)
	assert.Contains(t, slot.Message, "invalid address")
}
