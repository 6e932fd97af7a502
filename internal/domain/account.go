package domain

import "strings"

// Account is the wallet identity authorised for this session.
// The zero value means no account is connected.
type Account struct {
	Address string `json:"address"` // lower-case hex, 0x-prefixed
}

// NewAccount returns an Account with the canonical lower-case address.
func NewAccount(address string) Account {
	return Account{Address: CanonicalAddress(address)}
}

// CanonicalAddress trims and lower-cases an address.
func CanonicalAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsZero reports whether no account is set.
func (a Account) IsZero() bool {
	return a.Address == ""
}
