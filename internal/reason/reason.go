// Package reason translates ack-file transaction reason codes into the labels
// used by the error mapping table and output file names.
package reason

import (
	"strconv"
	"strings"
)

// Labels for the known numeric codes. 1 and 5 are both sales.
var labels = map[int]string{
	1: "Sales",
	2: "Payments",
	3: "Cancels",
	5: "Sales",
}

// Translate returns the label for a reason code, or the code unchanged when it
// is not a known integer. Integral decimals such as "2.0" count as integers.
func Translate(code string) string {
	n, ok := asInt(code)
	if !ok {
		return code
	}
	if label, known := labels[n]; known {
		return label
	}
	return code
}

func asInt(code string) (int, bool) {
	s := strings.TrimSpace(code)
	if s == "" {
		return 0, false
	}

	if isDigits(s) {
		n, err := strconv.Atoi(s)
		return n, err == nil
	}

	// Spreadsheet exports write whole numbers as "1.0".
	if whole, frac, found := strings.Cut(s, "."); found && isDigits(whole) && strings.Trim(frac, "0") == "" {
		n, err := strconv.Atoi(whole)
		return n, err == nil
	}

	return 0, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
