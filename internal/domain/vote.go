package domain

// VoteOutcome is the lifecycle state of a vote attempt.
type VoteOutcome string

const (
	VotePending   VoteOutcome = "PENDING"
	VoteConfirmed VoteOutcome = "CONFIRMED"
	VoteRejected  VoteOutcome = "REJECTED"
)

// String returns the string representation of VoteOutcome.
func (o VoteOutcome) String() string {
	return string(o)
}

// IsValid checks if the outcome is a valid value.
func (o VoteOutcome) IsValid() bool {
	return o == VotePending || o == VoteConfirmed || o == VoteRejected
}

// IsSettled reports whether the attempt reached a terminal outcome.
func (o VoteOutcome) IsSettled() bool {
	return o == VoteConfirmed || o == VoteRejected
}

// VoteAttempt records one vote submission.
// Corresponds to vote_attempts table in PostgreSQL.
type VoteAttempt struct {
	AttemptID   string      `json:"attempt_id"` // PRIMARY KEY, deterministic hash
	Account     string      `json:"account"`    // voter address, lower-case
	CandidateID uint64      `json:"candidate_id"`
	ChainID     uint64      `json:"chain_id"`
	Outcome     VoteOutcome `json:"outcome"`
	TxHash      *string     `json:"tx_hash,omitempty"` // nil if never sent
	BlockNumber *uint64     `json:"block_number,omitempty"`
	Reason      *string     `json:"reason,omitempty"` // raw failure reason for Rejected
	CreatedAt   int64       `json:"created_at"`       // Unix timestamp in milliseconds
	SettledAt   *int64      `json:"settled_at,omitempty"`
}

// Clone returns a deep copy of the attempt.
func (a *VoteAttempt) Clone() *VoteAttempt {
	if a == nil {
		return nil
	}
	out := *a
	if a.TxHash != nil {
		v := *a.TxHash
		out.TxHash = &v
	}
	if a.BlockNumber != nil {
		v := *a.BlockNumber
		out.BlockNumber = &v
	}
	if a.Reason != nil {
		v := *a.Reason
		out.Reason = &v
	}
	if a.SettledAt != nil {
		v := *a.SettledAt
		out.SettledAt = &v
	}
	return &out
}
