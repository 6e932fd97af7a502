package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"edu-voting/internal/domain"
	"edu-voting/internal/storage"
)

func settledAttempt(id, account string, candidateID uint64, createdAt int64, outcome domain.VoteOutcome) *domain.VoteAttempt {
	settledAt := createdAt + 1000
	txHash := "0x" + id
	return &domain.VoteAttempt{
		AttemptID:   id,
		Account:     account,
		CandidateID: candidateID,
		ChainID:     domain.RequiredChainID,
		Outcome:     outcome,
		TxHash:      &txHash,
		CreatedAt:   createdAt,
		SettledAt:   &settledAt,
	}
}

func TestVoteAttemptStore_InsertAndGet(t *testing.T) {
	store := NewVoteAttemptStore()
	ctx := context.Background()

	a := settledAttempt("a1", "0xabc", 2, 1704067200000, domain.VoteConfirmed)

	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.CandidateID != 2 {
		t.Errorf("CandidateID mismatch: got %d, want 2", got.CandidateID)
	}
	if got.Outcome != domain.VoteConfirmed {
		t.Errorf("Outcome mismatch: got %s", got.Outcome)
	}
	if got.TxHash == nil || *got.TxHash != "0xa1" {
		t.Errorf("TxHash mismatch: got %v", got.TxHash)
	}
}

func TestVoteAttemptStore_ReturnsCopies(t *testing.T) {
	store := NewVoteAttemptStore()
	ctx := context.Background()

	a := settledAttempt("a1", "0xabc", 1, 1000, domain.VoteConfirmed)
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the input after insert must not affect the store
	*a.TxHash = "mutated"

	got, _ := store.GetByID(ctx, "a1")
	if *got.TxHash != "0xa1" {
		t.Errorf("stored attempt was mutated through caller pointer: %s", *got.TxHash)
	}

	*got.TxHash = "mutated again"
	again, _ := store.GetByID(ctx, "a1")
	if *again.TxHash != "0xa1" {
		t.Errorf("stored attempt was mutated through returned pointer: %s", *again.TxHash)
	}
}

func TestVoteAttemptStore_DuplicateKey(t *testing.T) {
	store := NewVoteAttemptStore()
	ctx := context.Background()

	a := settledAttempt("a1", "0xabc", 1, 1000, domain.VoteRejected)

	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, a)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestVoteAttemptStore_RejectsPending(t *testing.T) {
	store := NewVoteAttemptStore()

	err := store.Insert(context.Background(), &domain.VoteAttempt{
		AttemptID:   "p1",
		Account:     "0xabc",
		CandidateID: 1,
		Outcome:     domain.VotePending,
		CreatedAt:   1000,
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestVoteAttemptStore_NotFound(t *testing.T) {
	store := NewVoteAttemptStore()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestVoteAttemptStore_GetByAccount(t *testing.T) {
	store := NewVoteAttemptStore()
	ctx := context.Background()

	attempts := []*domain.VoteAttempt{
		settledAttempt("a3", "0xabc", 1, 3000, domain.VoteConfirmed),
		settledAttempt("a1", "0xabc", 2, 1000, domain.VoteRejected),
		settledAttempt("b1", "0xdef", 1, 2000, domain.VoteConfirmed),
	}
	for _, a := range attempts {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByAccount(ctx, "0xABC")
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 attempts, got %d", len(got))
	}
	if got[0].AttemptID != "a1" || got[1].AttemptID != "a3" {
		t.Errorf("Expected [a1 a3] ordered by created_at, got [%s %s]", got[0].AttemptID, got[1].AttemptID)
	}
}

func TestVoteAttemptStore_GetByTimeRange(t *testing.T) {
	store := NewVoteAttemptStore()
	ctx := context.Background()

	for i, ts := range []int64{1000, 2000, 3000, 4000} {
		a := settledAttempt(string(rune('a'+i)), "0xabc", 1, ts, domain.VoteRejected)
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByTimeRange(ctx, 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 attempts in range, got %d", len(got))
	}
	if got[0].CreatedAt != 2000 || got[1].CreatedAt != 3000 {
		t.Errorf("Unexpected range result: %d, %d", got[0].CreatedAt, got[1].CreatedAt)
	}
}

func TestVoteAttemptStore_ConcurrentInsert(t *testing.T) {
	store := NewVoteAttemptStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	// Same attempt inserted concurrently: exactly one succeeds
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Insert(ctx, settledAttempt("same", "0xabc", 1, 1000, domain.VoteConfirmed))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, storage.ErrDuplicateKey):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if ok != 1 || dup != 9 {
		t.Errorf("Expected 1 success and 9 duplicates, got %d and %d", ok, dup)
	}
}
