package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// RenderCSV renders report rows as CSV.
func RenderCSV(r *Report) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{"candidate_id", "name", "votes", "share", "leader"}
	if r.Window > 0 {
		header = append(header, "change")
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, row := range r.Rows {
		rec := []string{
			strconv.FormatUint(row.ID, 10),
			row.Name,
			strconv.FormatUint(row.Votes, 10),
			fmt.Sprintf("%.6f", row.Share),
			strconv.FormatBool(r.IsLeader(row.ID)),
		}
		if r.Window > 0 {
			change := ""
			if row.Change != nil {
				change = strconv.FormatInt(*row.Change, 10)
			}
			rec = append(rec, change)
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
