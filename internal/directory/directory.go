// Package directory resolves client notification recipients from the client
// contact list, keyed by uppercased account (agent number).
package directory

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/csvparser"
	"github.com/ginjaninja78/ack-file-processor/internal/xlsxparser"
)

const (
	ColumnAccount = "Account"
	ColumnEmail   = "Email"
)

// ErrMissingColumns is returned when the client list lacks Account or Email.
var ErrMissingColumns = errors.New("client list must contain Account and Email columns")

// Directory maps uppercased accounts to their email addresses.
type Directory struct {
	emails map[string][]string
}

// Load builds a directory from a raw table. Email cells may hold several
// addresses separated by semicolons. Blank and "nan" addresses are skipped
// and duplicates within an account are removed. Rows for the same account
// are merged.
func Load(headers []string, rows [][]string) (*Directory, error) {
	account, email := -1, -1
	for i, h := range headers {
		switch h {
		case ColumnAccount:
			account = i
		case ColumnEmail:
			email = i
		}
	}
	if account < 0 || email < 0 {
		return nil, ErrMissingColumns
	}

	d := &Directory{emails: make(map[string][]string)}

	for _, row := range rows {
		if account >= len(row) || email >= len(row) {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(row[account]))
		if key == "" {
			continue
		}

		for _, addr := range strings.Split(row[email], ";") {
			addr = strings.TrimSpace(addr)
			if addr == "" || strings.EqualFold(addr, "nan") {
				continue
			}
			if !contains(d.emails[key], addr) {
				d.emails[key] = append(d.emails[key], addr)
			}
		}
	}

	return d, nil
}

// LoadFile reads a client list from a .csv or .xlsx file.
func LoadFile(path string, settings config.CSVSettings) (*Directory, error) {
	var (
		table *csvparser.Table
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = xlsxparser.ReadTable(path, "")
	default:
		table, err = csvparser.ReadTableFile(path, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client list %s: %w", filepath.Base(path), err)
	}

	return Load(table.Headers, table.Rows)
}

// Len returns the number of accounts with at least one address.
func (d *Directory) Len() int {
	return len(d.emails)
}

// Lookup returns the addresses for an account, matched case-insensitively.
func (d *Directory) Lookup(account string) []string {
	return d.emails[strings.ToUpper(strings.TrimSpace(account))]
}

// Recipients returns the sorted, de-duplicated addresses for all of the
// given agents. Agents without an entry are ignored.
func (d *Directory) Recipients(agents []string) []string {
	seen := make(map[string]bool)
	var out []string

	for _, agent := range agents {
		for _, addr := range d.Lookup(agent) {
			if !seen[addr] {
				seen[addr] = true
				out = append(out, addr)
			}
		}
	}

	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
