package domain

// RequiredChainID is the chain id of the network hosting the voting contract (0xA045C).
const RequiredChainID uint64 = 0xA045C

// NetworkStatus represents the outcome of network validation.
type NetworkStatus string

const (
	NetworkUnknown     NetworkStatus = "UNKNOWN"
	NetworkCorrect     NetworkStatus = "CORRECT"
	NetworkSwitching   NetworkStatus = "SWITCHING"
	NetworkUnavailable NetworkStatus = "UNAVAILABLE"
)

// AllNetworkStatuses lists every status value.
var AllNetworkStatuses = []NetworkStatus{
	NetworkUnknown,
	NetworkCorrect,
	NetworkSwitching,
	NetworkUnavailable,
}

// String returns the string representation of NetworkStatus.
func (s NetworkStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s NetworkStatus) IsValid() bool {
	switch s {
	case NetworkUnknown, NetworkCorrect, NetworkSwitching, NetworkUnavailable:
		return true
	}
	return false
}

// NetworkState is the wallet's current network relative to the required one.
type NetworkState struct {
	CurrentChainID  uint64        `json:"current_chain_id"` // 0 until first read
	RequiredChainID uint64        `json:"required_chain_id"`
	Status          NetworkStatus `json:"status"`
}

// NewNetworkState returns an Unknown state for the required chain.
func NewNetworkState(required uint64) NetworkState {
	return NetworkState{RequiredChainID: required, Status: NetworkUnknown}
}

// IsCorrect reports whether the wallet is on the required chain.
func (n NetworkState) IsCorrect() bool {
	return n.Status == NetworkCorrect && n.CurrentChainID == n.RequiredChainID
}
