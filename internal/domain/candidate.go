package domain

// Candidate represents a single entry in the contract's candidate registry.
type Candidate struct {
	ID        uint64 `json:"id"`         // 1-based, contiguous
	Name      string `json:"name"`       // display name as stored on the contract
	VoteCount uint64 `json:"vote_count"` // tally at FetchedAt of the owning list
}

// CandidateList is an ordered snapshot of all candidates.
// Replaced wholesale on every successful sync; never patched in place.
type CandidateList struct {
	Candidates []Candidate `json:"candidates"` // ascending by ID
	FetchedAt  int64       `json:"fetched_at"` // Unix timestamp in milliseconds, 0 if never synced
}

// Clone returns a deep copy of the list.
func (l CandidateList) Clone() CandidateList {
	out := CandidateList{FetchedAt: l.FetchedAt}
	if l.Candidates != nil {
		out.Candidates = make([]Candidate, len(l.Candidates))
		copy(out.Candidates, l.Candidates)
	}
	return out
}

// Count returns the number of candidates.
func (l CandidateList) Count() uint64 {
	return uint64(len(l.Candidates))
}

// Contains reports whether id is a valid candidate id in this list.
func (l CandidateList) Contains(id uint64) bool {
	return id >= 1 && id <= l.Count()
}

// TotalVotes returns the sum of all vote counts.
func (l CandidateList) TotalVotes() uint64 {
	var total uint64
	for _, c := range l.Candidates {
		total += c.VoteCount
	}
	return total
}
