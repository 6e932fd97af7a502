// Package contract binds the voting contract ABI to the JSON-RPC node client.
package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"edu-voting/internal/evm"
)

// ErrUnexpectedOutput is returned when a call returns data that does not match the ABI.
var ErrUnexpectedOutput = errors.New("unexpected contract output")

// ErrUnknownEvent is returned when a log does not belong to a known contract event.
var ErrUnknownEvent = errors.New("unknown event")

var parsedABI abi.ABI

func init() {
	var err error
	parsedABI, err = abi.JSON(strings.NewReader(VotingABI))
	if err != nil {
		panic(fmt.Sprintf("parse voting ABI: %v", err))
	}
}

// Caller is the subset of evm.NodeClient needed for read calls.
type Caller interface {
	CallContract(ctx context.Context, msg evm.CallMsg) ([]byte, error)
}

// CandidateRecord is a single getCandidate result.
type CandidateRecord struct {
	Name      string
	VoteCount *big.Int
}

// VotedEvent is a decoded Voted log.
type VotedEvent struct {
	Voter       common.Address
	CandidateID uint64
	TxHash      common.Hash
	BlockNumber uint64
}

// CandidateAddedEvent is a decoded CandidateAdded log.
type CandidateAddedEvent struct {
	CandidateID uint64
	Name        string
	BlockNumber uint64
}

// Candidate accessors. Both return (string name, uint256 voteCount).
const (
	AccessorGetCandidate = "getCandidate"
	AccessorCandidates   = "candidates"
)

// Voting is a read binding for the voting contract.
type Voting struct {
	address  common.Address
	caller   Caller
	accessor string
}

// Option configures a Voting binding.
type Option func(*Voting)

// WithCandidateAccessor selects the method Candidate reads through.
// Empty keeps getCandidate.
func WithCandidateAccessor(name string) Option {
	return func(v *Voting) {
		if name != "" {
			v.accessor = name
		}
	}
}

// NewVoting creates a binding for the contract at address.
func NewVoting(address common.Address, caller Caller, opts ...Option) *Voting {
	v := &Voting{address: address, caller: caller, accessor: AccessorGetCandidate}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Address returns the contract address.
func (v *Voting) Address() common.Address {
	return v.address
}

// CandidatesCount returns the number of registered candidates.
func (v *Voting) CandidatesCount(ctx context.Context) (uint64, error) {
	out, err := v.call(ctx, "candidatesCount")
	if err != nil {
		return 0, err
	}
	n, err := bigOutput(out, 0)
	if err != nil {
		return 0, fmt.Errorf("candidatesCount: %w", err)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("candidatesCount: %w: %s overflows uint64", ErrUnexpectedOutput, n)
	}
	return n.Uint64(), nil
}

// GetCandidate returns the candidate with the given id (1-based).
func (v *Voting) GetCandidate(ctx context.Context, id uint64) (CandidateRecord, error) {
	return v.candidate(ctx, AccessorGetCandidate, id)
}

// Candidates reads the public candidates mapping directly.
func (v *Voting) Candidates(ctx context.Context, id uint64) (CandidateRecord, error) {
	return v.candidate(ctx, AccessorCandidates, id)
}

// Candidate reads candidate id through the configured accessor.
func (v *Voting) Candidate(ctx context.Context, id uint64) (CandidateRecord, error) {
	return v.candidate(ctx, v.accessor, id)
}

func (v *Voting) candidate(ctx context.Context, method string, id uint64) (CandidateRecord, error) {
	out, err := v.call(ctx, method, new(big.Int).SetUint64(id))
	if err != nil {
		return CandidateRecord{}, err
	}
	if len(out) != 2 {
		return CandidateRecord{}, fmt.Errorf("%s(%d): %w: %d values", method, id, ErrUnexpectedOutput, len(out))
	}
	name, ok := out[0].(string)
	if !ok {
		return CandidateRecord{}, fmt.Errorf("%s(%d): %w: name is %T", method, id, ErrUnexpectedOutput, out[0])
	}
	count, err := bigOutput(out, 1)
	if err != nil {
		return CandidateRecord{}, fmt.Errorf("%s(%d): %w", method, id, err)
	}
	return CandidateRecord{Name: name, VoteCount: count}, nil
}

// HasVoted reports whether account has already voted (voters mapping).
func (v *Voting) HasVoted(ctx context.Context, account common.Address) (bool, error) {
	out, err := v.call(ctx, "voters", account)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("voters: %w: %d values", ErrUnexpectedOutput, len(out))
	}
	voted, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("voters: %w: got %T", ErrUnexpectedOutput, out[0])
	}
	return voted, nil
}

func (v *Voting) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := v.caller.CallContract(ctx, evm.CallMsg{To: v.address, Data: data})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := parsedABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func bigOutput(out []interface{}, i int) (*big.Int, error) {
	if len(out) <= i {
		return nil, fmt.Errorf("%w: missing value %d", ErrUnexpectedOutput, i)
	}
	n, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: value %d is %T", ErrUnexpectedOutput, i, out[i])
	}
	return n, nil
}

// PackVote encodes calldata for vote(candidateID).
func PackVote(candidateID uint64) ([]byte, error) {
	return parsedABI.Pack("vote", new(big.Int).SetUint64(candidateID))
}

// PackGetCandidate encodes calldata for getCandidate(id).
func PackGetCandidate(id uint64) ([]byte, error) {
	return parsedABI.Pack("getCandidate", new(big.Int).SetUint64(id))
}

// PackCandidates encodes calldata for candidates(id).
func PackCandidates(id uint64) ([]byte, error) {
	return parsedABI.Pack(AccessorCandidates, new(big.Int).SetUint64(id))
}

// PackCandidatesCount encodes calldata for candidatesCount().
func PackCandidatesCount() ([]byte, error) {
	return parsedABI.Pack("candidatesCount")
}

// PackVoters encodes calldata for voters(account).
func PackVoters(account common.Address) ([]byte, error) {
	return parsedABI.Pack("voters", account)
}

// EncodeCandidate ABI-encodes a getCandidate return value.
func EncodeCandidate(name string, voteCount uint64) ([]byte, error) {
	return parsedABI.Methods["getCandidate"].Outputs.Pack(name, new(big.Int).SetUint64(voteCount))
}

// EncodeUint ABI-encodes a single uint256 return value.
func EncodeUint(n uint64) ([]byte, error) {
	return parsedABI.Methods["candidatesCount"].Outputs.Pack(new(big.Int).SetUint64(n))
}

// EncodeBool ABI-encodes a single bool return value.
func EncodeBool(b bool) ([]byte, error) {
	return parsedABI.Methods["voters"].Outputs.Pack(b)
}

// VotedTopic is the event signature hash of Voted.
func VotedTopic() common.Hash {
	return parsedABI.Events["Voted"].ID
}

// CandidateAddedTopic is the event signature hash of CandidateAdded.
func CandidateAddedTopic() common.Hash {
	return parsedABI.Events["CandidateAdded"].ID
}

// ParseVoted decodes a Voted log. Both arguments are indexed.
func ParseVoted(log evm.Log) (VotedEvent, error) {
	if len(log.Topics) != 3 || log.Topics[0] != VotedTopic() {
		return VotedEvent{}, ErrUnknownEvent
	}
	id := new(big.Int).SetBytes(log.Topics[2].Bytes())
	if !id.IsUint64() {
		return VotedEvent{}, fmt.Errorf("Voted: %w: candidate id overflows uint64", ErrUnexpectedOutput)
	}
	return VotedEvent{
		Voter:       common.BytesToAddress(log.Topics[1].Bytes()),
		CandidateID: id.Uint64(),
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
	}, nil
}

// ParseCandidateAdded decodes a CandidateAdded log.
func ParseCandidateAdded(log evm.Log) (CandidateAddedEvent, error) {
	if len(log.Topics) != 2 || log.Topics[0] != CandidateAddedTopic() {
		return CandidateAddedEvent{}, ErrUnknownEvent
	}
	id := new(big.Int).SetBytes(log.Topics[1].Bytes())
	if !id.IsUint64() {
		return CandidateAddedEvent{}, fmt.Errorf("CandidateAdded: %w: candidate id overflows uint64", ErrUnexpectedOutput)
	}
	out, err := parsedABI.Unpack("CandidateAdded", log.Data)
	if err != nil {
		return CandidateAddedEvent{}, fmt.Errorf("unpack CandidateAdded: %w", err)
	}
	name, _ := out[0].(string)
	return CandidateAddedEvent{
		CandidateID: id.Uint64(),
		Name:        name,
		BlockNumber: log.BlockNumber,
	}, nil
}

// EncodeString ABI-encodes the non-indexed CandidateAdded payload.
func EncodeString(s string) ([]byte, error) {
	return parsedABI.Events["CandidateAdded"].Inputs.NonIndexed().Pack(s)
}
