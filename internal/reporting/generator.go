package reporting

import (
	"context"
	"fmt"
	"time"

	"edu-voting/internal/domain"
	"edu-voting/internal/storage"
)

// Generator builds reports from a candidate list and, optionally, tally history.
type Generator struct {
	tallies storage.TallySnapshotStore
	now     func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator. tallies may be nil.
func NewGenerator(tallies storage.TallySnapshotStore) *Generator {
	return &Generator{
		tallies: tallies,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report for list. When window > 0 and a history store is
// configured, each row carries the change since the earliest point recorded
// in [FetchedAt-window, FetchedAt].
func (g *Generator) Generate(ctx context.Context, contract string, list domain.CandidateList, window time.Duration) (*Report, error) {
	contract = domain.CanonicalAddress(contract)
	total := list.TotalVotes()

	r := &Report{
		GeneratedAt:     g.now(),
		ContractAddress: contract,
		FetchedAt:       list.FetchedAt,
		TotalVotes:      total,
		Rows:            make([]Row, 0, len(list.Candidates)),
	}

	var best uint64
	for _, c := range list.Candidates {
		row := Row{ID: c.ID, Name: c.Name, Votes: c.VoteCount}
		if total > 0 {
			row.Share = float64(c.VoteCount) / float64(total)
		}
		r.Rows = append(r.Rows, row)

		switch {
		case c.VoteCount == 0:
		case c.VoteCount > best:
			best = c.VoteCount
			r.Leaders = []uint64{c.ID}
		case c.VoteCount == best:
			r.Leaders = append(r.Leaders, c.ID)
		}
	}

	if g.tallies == nil || window <= 0 || list.FetchedAt == 0 {
		return r, nil
	}

	r.Window = window
	start := list.FetchedAt - window.Milliseconds()
	for i := range r.Rows {
		points, err := g.tallies.GetByTimeRange(ctx, contract, r.Rows[i].ID, start, list.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("load history for candidate %d: %w", r.Rows[i].ID, err)
		}
		if len(points) == 0 {
			continue
		}
		change := int64(r.Rows[i].Votes) - int64(points[0].VoteCount)
		r.Rows[i].Change = &change
	}

	return r, nil
}
