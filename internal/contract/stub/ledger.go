// Package stub seeds stub nodes with voting contract state.
package stub

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"edu-voting/internal/contract"
	evmstub "edu-voting/internal/evm/stub"
)

// Seed registers candidatesCount, getCandidate and candidates responses on node.
// names[i] is candidate i+1; votes is indexed the same way.
func Seed(node *evmstub.Node, names []string, votes []uint64) error {
	if len(names) != len(votes) {
		return fmt.Errorf("seed: %d names, %d vote counts", len(names), len(votes))
	}

	countCall, err := contract.PackCandidatesCount()
	if err != nil {
		return err
	}
	countOut, err := contract.EncodeUint(uint64(len(names)))
	if err != nil {
		return err
	}
	node.SetResponse(countCall, countOut)

	for i, name := range names {
		id := uint64(i + 1)
		out, err := contract.EncodeCandidate(name, votes[i])
		if err != nil {
			return err
		}
		for _, pack := range []func(uint64) ([]byte, error){contract.PackGetCandidate, contract.PackCandidates} {
			call, err := pack(id)
			if err != nil {
				return err
			}
			node.SetResponse(call, out)
		}
	}
	return nil
}

// SetVoted registers the voters(account) response on node.
func SetVoted(node *evmstub.Node, account common.Address, voted bool) error {
	call, err := contract.PackVoters(account)
	if err != nil {
		return err
	}
	out, err := contract.EncodeBool(voted)
	if err != nil {
		return err
	}
	node.SetResponse(call, out)
	return nil
}

// FailCandidate makes getCandidate(id) fail with err.
func FailCandidate(node *evmstub.Node, id uint64, err error) error {
	call, packErr := contract.PackGetCandidate(id)
	if packErr != nil {
		return packErr
	}
	node.SetCallError(call, err)
	return nil
}
