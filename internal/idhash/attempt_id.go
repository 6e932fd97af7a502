package idhash

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"edu-voting/internal/domain"
)

// ComputeAttemptID computes a deterministic attempt_id using Keccak256.
// Formula: KECCAK256(account|candidate_id|chain_id|created_at)
// The account is canonicalised first. Returns hex-encoded hash (64 characters).
func ComputeAttemptID(
	account string,
	candidateID uint64,
	chainID uint64,
	createdAt int64,
) string {
	data := fmt.Sprintf("%s|%d|%d|%d",
		domain.CanonicalAddress(account),
		candidateID,
		chainID,
		createdAt,
	)

	hash := crypto.Keccak256([]byte(data))
	return hex.EncodeToString(hash)
}
