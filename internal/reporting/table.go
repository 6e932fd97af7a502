package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// RenderTable writes report rows as an aligned plain-text table.
func RenderTable(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := "ID\tNAME\tVOTES\tSHARE"
	if r.Window > 0 {
		header += "\tCHANGE"
	}
	fmt.Fprintln(tw, header)

	for _, row := range r.Rows {
		marker := ""
		if r.IsLeader(row.ID) {
			marker = " *"
		}
		line := fmt.Sprintf("%d\t%s%s\t%d\t%.1f%%", row.ID, row.Name, marker, row.Votes, row.Share*100)
		if r.Window > 0 {
			line += "\t" + formatChange(row.Change)
		}
		fmt.Fprintln(tw, line)
	}
	fmt.Fprintf(tw, "\tTOTAL\t%d\t\n", r.TotalVotes)

	return tw.Flush()
}

// Render writes r to w in the given format.
func Render(w io.Writer, format Format, r *Report) error {
	switch format {
	case FormatTable, "":
		return RenderTable(w, r)
	case FormatCSV:
		out, err := RenderCSV(r)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, RenderMarkdown(r))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
