package domain

// TallyPoint is one candidate's vote count observed at a sync.
// Corresponds to tally_snapshots table in ClickHouse.
type TallyPoint struct {
	ContractAddress string `json:"contract_address"` // lower-case hex
	CandidateID     uint64 `json:"candidate_id"`     // 1-based candidate id
	Name            string `json:"name"`             // candidate name at sync time
	VoteCount       uint64 `json:"vote_count"`       // tally at TimestampMs
	TimestampMs     int64  `json:"timestamp_ms"`     // sync FetchedAt (ms)
}

// TallyPointsFromList expands a CandidateList into one point per candidate.
func TallyPointsFromList(contract string, list CandidateList) []TallyPoint {
	points := make([]TallyPoint, 0, len(list.Candidates))
	for _, c := range list.Candidates {
		points = append(points, TallyPoint{
			ContractAddress: contract,
			CandidateID:     c.ID,
			Name:            c.Name,
			VoteCount:       c.VoteCount,
			TimestampMs:     list.FetchedAt,
		})
	}
	return points
}
