package domain

// Component identifies which part of the client produced an error.
type Component string

const (
	ComponentConnection Component = "connection"
	ComponentNetwork    Component = "network"
	ComponentLedger     Component = "ledger"
	ComponentVote       Component = "vote"
)

// String returns the string representation of Component.
func (c Component) String() string {
	return string(c)
}

// ErrorState is the single user-visible error slot.
// The zero value means no error.
type ErrorState struct {
	Message   string    `json:"message"`
	Component Component `json:"component"`
	At        int64     `json:"at"` // Unix timestamp in milliseconds
}

// IsZero reports whether no error is set.
func (e ErrorState) IsZero() bool {
	return e.Message == ""
}
