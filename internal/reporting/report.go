package reporting

import "time"

// Report is a rendered view of one candidate list.
type Report struct {
	GeneratedAt     time.Time `json:"generated_at"`
	ContractAddress string    `json:"contract_address"`
	FetchedAt       int64     `json:"fetched_at"` // list FetchedAt, Unix ms

	TotalVotes uint64   `json:"total_votes"`
	Leaders    []uint64 `json:"leaders"` // candidate ids sharing the highest count; empty when no votes

	// Window is the look-back used for Change; zero when history was not consulted.
	Window time.Duration `json:"window_ns,omitempty"`

	// Rows are sorted by candidate id ascending.
	Rows []Row `json:"rows"`
}

// Row is one candidate line.
type Row struct {
	ID    uint64  `json:"id"`
	Name  string  `json:"name"`
	Votes uint64  `json:"votes"`
	Share float64 `json:"share"` // Votes / TotalVotes, 0 when TotalVotes is 0

	// Change is the vote delta over Window, nil without history.
	Change *int64 `json:"change,omitempty"`
}

// IsLeader reports whether id is among the leaders.
func (r *Report) IsLeader(id uint64) bool {
	for _, l := range r.Leaders {
		if l == id {
			return true
		}
	}
	return false
}

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists all supported formats.
var Formats = []Format{FormatTable, FormatCSV, FormatMarkdown, FormatJSON}
