package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Tally Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Contract | `%s` |\n", r.ContractAddress))
	sb.WriteString(fmt.Sprintf("| Fetched At (ms) | %d |\n", r.FetchedAt))
	sb.WriteString(fmt.Sprintf("| Candidates | %d |\n", len(r.Rows)))
	sb.WriteString(fmt.Sprintf("| Total Votes | %d |\n", r.TotalVotes))
	sb.WriteString("\n")

	sb.WriteString("## Candidates\n\n")
	if len(r.Rows) == 0 {
		sb.WriteString("No candidates registered.\n\n")
		return sb.String()
	}

	if r.Window > 0 {
		sb.WriteString(fmt.Sprintf("| ID | Name | Votes | Share | Change (%s) |\n", r.Window))
		sb.WriteString("|----|------|-------|-------|--------|\n")
	} else {
		sb.WriteString("| ID | Name | Votes | Share |\n")
		sb.WriteString("|----|------|-------|-------|\n")
	}
	for _, row := range r.Rows {
		name := escapeCell(row.Name)
		if r.IsLeader(row.ID) {
			name = "**" + name + "**"
		}
		line := fmt.Sprintf("| %d | %s | %d | %.2f%% |", row.ID, name, row.Votes, row.Share*100)
		if r.Window > 0 {
			line += fmt.Sprintf(" %s |", formatChange(row.Change))
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func formatChange(c *int64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%+d", *c)
}
