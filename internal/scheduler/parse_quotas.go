package scheduler

import (
	"regexp"
	"strconv"
	"strings"
)

// QuotaRow is one parsed filesystem quota line.
type QuotaRow struct {
	Type string
	Path string
	Size float64
	Unit string
}

var quotaLineRE = regexp.MustCompile(`(?i)^\s*([a-z][a-z ]*[a-z])\s+(/\S*)\s+([\d.]+)\s*([a-zA-Z]+)`)

// ParseQuotas extracts quota rows from a `type-words path size unit ...`
// formatted report. Lines that don't match the grammar are silently
// skipped — quota reporting is best-effort display, never load-bearing for
// the allocator.
func ParseQuotas(text string) []QuotaRow {
	var rows []QuotaRow
	for _, line := range splitNonEmptyLines(text) {
		m := quotaLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		size, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		rows = append(rows, QuotaRow{
			Type: strings.TrimSpace(m[1]),
			Path: m[2],
			Size: size,
			Unit: m[4],
		})
	}
	return rows
}
