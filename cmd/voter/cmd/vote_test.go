package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edu-voting/internal/domain"
)

// blockingSubmitter settles only after release is closed.
type blockingSubmitter struct {
	release  chan struct{}
	finished chan struct{}
}

func (b *blockingSubmitter) SubmitVote(ctx context.Context, id uint64) (*domain.VoteAttempt, error) {
	<-b.release
	close(b.finished)
	return &domain.VoteAttempt{CandidateID: id, Outcome: domain.VoteConfirmed}, nil
}

func TestSubmitAndWait_StopsWaitingWithoutAborting(t *testing.T) {
	s := &blockingSubmitter{release: make(chan struct{}), finished: make(chan struct{})}

	attempt, err := submitAndWait(context.Background(), s, 1, 20*time.Millisecond)
	assert.ErrorIs(t, err, errStillPending)
	assert.Nil(t, attempt)

	select {
	case <-s.finished:
		t.Fatal("vote settled before release")
	default:
	}

	close(s.release)
	select {
	case <-s.finished:
	case <-time.After(time.Second):
		t.Fatal("vote did not keep running after the wait expired")
	}
}

func TestSubmitAndWait_NoLimit(t *testing.T) {
	s := &blockingSubmitter{release: make(chan struct{}), finished: make(chan struct{})}
	close(s.release)

	attempt, err := submitAndWait(context.Background(), s, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), attempt.CandidateID)
	assert.Equal(t, domain.VoteConfirmed, attempt.Outcome)
}
