package scheduler

import (
	"strconv"
	"strings"

	rverrors "github.com/rvcli/rv/pkg/errors"
)

// AllocationRow is one row of the account allocations table.
type AllocationRow struct {
	Account   string
	Balance   float64
	Reserved  float64
	Available float64
}

// ParseAllocations parses the fixed-column allocations table: rows of
// "account balance reserved available". The header line (if present,
// recognized by a non-numeric second field) is skipped.
func ParseAllocations(text string) ([]AllocationRow, error) {
	var rows []AllocationRow
	for _, line := range splitNonEmptyLines(text) {
		fields := strings.Fields(line)
		if len(fields) != 4 {
			continue
		}

		balance, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue // header row or malformed line — skip rather than fail the whole table
		}
		reserved, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, rverrors.WrapParse("allocation reserved column", line)
		}
		available, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, rverrors.WrapParse("allocation available column", line)
		}

		rows = append(rows, AllocationRow{
			Account:   fields[0],
			Balance:   balance,
			Reserved:  reserved,
			Available: available,
		})
	}
	return rows, nil
}
