package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edu-voting/internal/domain"
	"edu-voting/internal/storage/memory"
)

const contract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func sampleList() domain.CandidateList {
	return domain.CandidateList{
		Candidates: []domain.Candidate{
			{ID: 1, Name: "Alice", VoteCount: 3},
			{ID: 2, Name: "Bob, Jr.", VoteCount: 1},
			{ID: 3, Name: "Carol", VoteCount: 0},
		},
		FetchedAt: 10_000,
	}
}

func TestGenerate_SharesAndLeaders(t *testing.T) {
	r, err := NewGenerator(nil).WithClock(func() time.Time { return fixedNow }).
		Generate(context.Background(), contract, sampleList(), time.Hour)
	require.NoError(t, err)

	assert.Equal(t, fixedNow, r.GeneratedAt)
	assert.Equal(t, strings.ToLower(contract), r.ContractAddress)
	assert.Equal(t, uint64(4), r.TotalVotes)
	assert.Equal(t, []uint64{1}, r.Leaders)
	assert.Zero(t, r.Window, "no history store configured")
	require.Len(t, r.Rows, 3)
	assert.InDelta(t, 0.75, r.Rows[0].Share, 1e-9)
	assert.InDelta(t, 0.25, r.Rows[1].Share, 1e-9)
	assert.Nil(t, r.Rows[0].Change)
}

func TestGenerate_Ties(t *testing.T) {
	list := domain.CandidateList{Candidates: []domain.Candidate{
		{ID: 1, Name: "A", VoteCount: 2},
		{ID: 2, Name: "B", VoteCount: 2},
		{ID: 3, Name: "C", VoteCount: 1},
	}}
	r, err := NewGenerator(nil).Generate(context.Background(), contract, list, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, r.Leaders)
	assert.True(t, r.IsLeader(2))
	assert.False(t, r.IsLeader(3))
}

func TestGenerate_NoVotes(t *testing.T) {
	list := domain.CandidateList{Candidates: []domain.Candidate{{ID: 1, Name: "A"}}}
	r, err := NewGenerator(nil).Generate(context.Background(), contract, list, 0)
	require.NoError(t, err)
	assert.Empty(t, r.Leaders)
	assert.Zero(t, r.Rows[0].Share)
}

func TestGenerate_ChangeFromHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTallySnapshotStore()
	addr := strings.ToLower(contract)
	require.NoError(t, store.InsertBulk(ctx, []*domain.TallyPoint{
		{ContractAddress: addr, CandidateID: 1, Name: "Alice", VoteCount: 0, TimestampMs: 1_000},
		{ContractAddress: addr, CandidateID: 1, Name: "Alice", VoteCount: 1, TimestampMs: 5_000},
		{ContractAddress: addr, CandidateID: 2, Name: "Bob, Jr.", VoteCount: 1, TimestampMs: 5_000},
	}))

	// window covers [4000, 10000]
	r, err := NewGenerator(store).Generate(ctx, contract, sampleList(), 6*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 6*time.Second, r.Window)
	require.NotNil(t, r.Rows[0].Change)
	assert.Equal(t, int64(2), *r.Rows[0].Change)
	require.NotNil(t, r.Rows[1].Change)
	assert.Equal(t, int64(0), *r.Rows[1].Change)
	assert.Nil(t, r.Rows[2].Change, "no history for candidate 3")
}

func TestRenderCSV(t *testing.T) {
	r, err := NewGenerator(nil).Generate(context.Background(), contract, sampleList(), 0)
	require.NoError(t, err)

	out, err := RenderCSV(r)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "candidate_id,name,votes,share,leader", lines[0])
	assert.Equal(t, "1,Alice,3,0.750000,true", lines[1])
	assert.Equal(t, `2,"Bob, Jr.",1,0.250000,false`, lines[2])
}

func TestRenderMarkdown(t *testing.T) {
	r, err := NewGenerator(nil).WithClock(func() time.Time { return fixedNow }).
		Generate(context.Background(), contract, sampleList(), 0)
	require.NoError(t, err)

	md := RenderMarkdown(r)
	assert.Contains(t, md, "# Tally Report")
	assert.Contains(t, md, "Generated: 2026-01-02T03:04:05Z")
	assert.Contains(t, md, "| Total Votes | 4 |")
	assert.Contains(t, md, "| 1 | **Alice** | 3 | 75.00% |")
	assert.Contains(t, md, "| 3 | Carol | 0 | 0.00% |")
}

func TestRenderMarkdown_Empty(t *testing.T) {
	r, err := NewGenerator(nil).Generate(context.Background(), contract, domain.CandidateList{}, 0)
	require.NoError(t, err)
	assert.Contains(t, RenderMarkdown(r), "No candidates registered.")
}

func TestRender_Formats(t *testing.T) {
	r, err := NewGenerator(nil).Generate(context.Background(), contract, sampleList(), 0)
	require.NoError(t, err)

	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, f, r))
			assert.Contains(t, buf.String(), "Alice")
		})
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, r))
	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.TotalVotes, decoded.TotalVotes)

	assert.Error(t, Render(&buf, Format("yaml"), r))
}

func TestRenderTable(t *testing.T) {
	r, err := NewGenerator(nil).Generate(context.Background(), contract, sampleList(), 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, r))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "ID"))
	assert.Contains(t, out, "Alice *")
	assert.Contains(t, out, "TOTAL")
}
