// Package voting implements the client-side voting session: wallet
// connection, network validation, candidate synchronisation and vote
// submission over one shared AppState.
package voting

import (
	"errors"
	"sync"
	"time"

	"edu-voting/internal/domain"
)

// Snapshot is a deep copy of AppState for presentation.
type Snapshot struct {
	Account     domain.Account       `json:"account"`
	Connected   bool                 `json:"connected"`
	Network     domain.NetworkState  `json:"network"`
	Candidates  domain.CandidateList `json:"candidates"`
	Error       domain.ErrorState    `json:"error"`
	PendingVote *domain.VoteAttempt  `json:"pending_vote,omitempty"`
	LastVote    *domain.VoteAttempt  `json:"last_vote,omitempty"`
	HasVoted    *bool                `json:"has_voted,omitempty"` // nil until read for the connected account
}

// AppState is the single mutable state of a session.
// The mutex is never held across I/O.
type AppState struct {
	mu sync.Mutex

	account    domain.Account
	network    domain.NetworkState
	candidates domain.CandidateList
	errState   domain.ErrorState
	pending    map[string]*domain.VoteAttempt // keyed by account address
	lastVote   *domain.VoteAttempt
	hasVoted   *bool

	now func() int64
}

// NewAppState creates an empty state for the required chain.
func NewAppState(requiredChainID uint64) *AppState {
	return &AppState{
		network: domain.NewNetworkState(requiredChainID),
		pending: make(map[string]*domain.VoteAttempt),
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Snapshot returns a deep copy of the current state.
func (s *AppState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Account:    s.account,
		Connected:  !s.account.IsZero(),
		Network:    s.network,
		Candidates: s.candidates.Clone(),
		Error:      s.errState,
		LastVote:   s.lastVote.Clone(),
	}
	if p, ok := s.pending[s.account.Address]; ok {
		snap.PendingVote = p.Clone()
	}
	if s.hasVoted != nil {
		v := *s.hasVoted
		snap.HasVoted = &v
	}
	return snap
}

// Account returns the connected account and whether one is set.
func (s *AppState) Account() (domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, !s.account.IsZero()
}

func (s *AppState) setAccount(a domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account != a {
		s.hasVoted = nil
	}
	s.account = a
}

// clearAccount drops the account and resets the network to Unknown.
func (s *AppState) clearAccount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = domain.Account{}
	s.network = domain.NewNetworkState(s.network.RequiredChainID)
	s.hasVoted = nil
}

// Network returns the current network state.
func (s *AppState) Network() domain.NetworkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

func (s *AppState) setNetwork(status domain.NetworkStatus, current uint64) domain.NetworkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.network.Status = status
	if current != 0 {
		s.network.CurrentChainID = current
	}
	return s.network
}

// Candidates returns a copy of the last published candidate list.
func (s *AppState) Candidates() domain.CandidateList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidates.Clone()
}

func (s *AppState) publishCandidates(list domain.CandidateList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = list.Clone()
}

// Error returns the current error slot.
func (s *AppState) Error() domain.ErrorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errState
}

// fail writes err into the error slot and returns it.
func (s *AppState) fail(err error) error {
	if err == nil {
		return nil
	}

	component := domain.ComponentConnection
	msg := err.Error()
	var e *Error
	if errors.As(err, &e) {
		component = e.Component
		msg = e.Message
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.errState = domain.ErrorState{Message: msg, Component: component, At: s.now()}
	return err
}

// clearError empties the slot if component set it.
func (s *AppState) clearError(component domain.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errState.Component == component {
		s.errState = domain.ErrorState{}
	}
}

// claimPending reserves the account's pending slot for attempt.
func (s *AppState) claimPending(attempt *domain.VoteAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[attempt.Account]; ok {
		return ErrAlreadyPending
	}
	s.pending[attempt.Account] = attempt.Clone()
	return nil
}

// settlePending releases the pending slot and records the settled attempt.
func (s *AppState) settlePending(attempt *domain.VoteAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, attempt.Account)
	s.lastVote = attempt.Clone()
	if attempt.Outcome == domain.VoteConfirmed && attempt.Account == s.account.Address {
		voted := true
		s.hasVoted = &voted
	}
}

// PendingCount returns the number of in-flight attempts.
func (s *AppState) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// setHasVoted records the voters(account) result if account is still connected.
func (s *AppState) setHasVoted(account string, voted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account.Address != account {
		return
	}
	s.hasVoted = &voted
}

func (s *AppState) timestamp() int64 {
	return s.now()
}
