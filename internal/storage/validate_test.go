package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"edu-voting/internal/domain"
)

func TestValidateAttempt(t *testing.T) {
	settled := int64(2000)

	tests := []struct {
		name    string
		attempt *domain.VoteAttempt
		wantErr bool
	}{
		{"nil", nil, true},
		{"missing id", &domain.VoteAttempt{Account: "0x01", CandidateID: 1, Outcome: domain.VoteConfirmed, SettledAt: &settled}, true},
		{"pending", &domain.VoteAttempt{AttemptID: "a", Account: "0x01", CandidateID: 1, Outcome: domain.VotePending}, true},
		{"settled without timestamp", &domain.VoteAttempt{AttemptID: "a", Account: "0x01", CandidateID: 1, Outcome: domain.VoteRejected}, true},
		{"zero candidate", &domain.VoteAttempt{AttemptID: "a", Account: "0x01", Outcome: domain.VoteConfirmed, SettledAt: &settled}, true},
		{"confirmed", &domain.VoteAttempt{AttemptID: "a", Account: "0x01", CandidateID: 1, Outcome: domain.VoteConfirmed, SettledAt: &settled}, false},
		{"rejected", &domain.VoteAttempt{AttemptID: "a", Account: "0x01", CandidateID: 2, Outcome: domain.VoteRejected, SettledAt: &settled}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttempt(tt.attempt)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTallyPoint(t *testing.T) {
	assert.ErrorIs(t, ValidateTallyPoint(nil), ErrInvalidInput)
	assert.ErrorIs(t, ValidateTallyPoint(&domain.TallyPoint{CandidateID: 1}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateTallyPoint(&domain.TallyPoint{ContractAddress: "0x01"}), ErrInvalidInput)
	assert.NoError(t, ValidateTallyPoint(&domain.TallyPoint{ContractAddress: "0x01", CandidateID: 1}))
}
