package storage

import "edu-voting/internal/domain"

// ValidateAttempt checks that a is a journalable settled attempt.
func ValidateAttempt(a *domain.VoteAttempt) error {
	if a == nil || a.AttemptID == "" || a.Account == "" || a.CandidateID == 0 {
		return ErrInvalidInput
	}
	if !a.Outcome.IsSettled() || a.SettledAt == nil {
		return ErrInvalidInput
	}
	return nil
}

// ValidateTallyPoint checks that p has a contract and a 1-based candidate id.
func ValidateTallyPoint(p *domain.TallyPoint) error {
	if p == nil || p.ContractAddress == "" || p.CandidateID == 0 {
		return ErrInvalidInput
	}
	return nil
}
