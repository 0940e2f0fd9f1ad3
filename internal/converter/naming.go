package converter

import (
	"strings"

	"github.com/ginjaninja78/ack-file-processor/internal/reason"
	"github.com/ginjaninja78/ack-file-processor/internal/recordset"
)

// Summary holds the values used to name an output file and address the
// client notification.
type Summary struct {
	Agents     []string
	AgentNames []string
	Reasons    []string
	Rows       int
	ErrorRows  int
}

// Summarize collects the distinct agents, agent names and translated reason
// texts of a record set, each in first-seen order with blanks skipped.
func Summarize(rs *recordset.RecordSet) Summary {
	s := Summary{
		Agents:     distinct(rs.Values(ColumnAgentNumber), nil),
		AgentNames: distinct(rs.Values(ColumnAgentName), nil),
		Reasons:    distinct(rs.Values(ColumnTransactionReason), reason.Translate),
		Rows:       rs.Len(),
	}

	for _, v := range rs.Values(ColumnIsError) {
		if strings.EqualFold(v, "TRUE") {
			s.ErrorRows++
		}
	}

	return s
}

// GenerateFilename derives the output name for a transformed ack file.
//
// With agents and reasons present the name is
// Ack_<agents>_<year>_<month>_<reasons>.csv, otherwise
// Ack_processed_<year>_<month>_<fallback>.
func GenerateFilename(rs *recordset.RecordSet, year, month, fallback string) string {
	s := Summarize(rs)

	if len(s.Agents) > 0 && len(s.Reasons) > 0 {
		return "Ack_" + strings.Join(s.Agents, "_") + "_" + year + "_" + month + "_" +
			strings.Join(s.Reasons, "_") + ".csv"
	}

	return "Ack_processed_" + year + "_" + month + "_" + fallback
}

func distinct(values []string, fn func(string) string) []string {
	seen := make(map[string]bool, len(values))
	var out []string

	for _, v := range values {
		v = strings.TrimSpace(v)
		if fn != nil {
			v = fn(v)
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}

	return out
}
