package scheduler

import (
	"strconv"
	"strings"

	"github.com/rvcli/rv/internal/model"
	"github.com/rvcli/rv/internal/pathutil"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// ParseAccountingHistory parses the accounting history listing:
// pipe-delimited id|name|state|elapsed|exit|partition|nodes. Sub-job rows
// (ids containing a ".", e.g. batch/extern steps) are skipped — only the
// top-level job record is meaningful to the allocator.
func ParseAccountingHistory(text string) ([]model.JobAccounting, error) {
	var records []model.JobAccounting
	for _, line := range splitNonEmptyLines(text) {
		fields := strings.Split(line, "|")
		if len(fields) != 7 {
			return nil, rverrors.WrapParse("accounting record", line)
		}

		if strings.Contains(fields[0], ".") {
			continue
		}

		elapsed, err := pathutil.ParseDuration(normalizeSchedulerTime(fields[3]))
		if err != nil {
			elapsed = 0
		}

		exitCode := parseExitCode(fields[4])

		records = append(records, model.JobAccounting{
			ID:             fields[0],
			Name:           fields[1],
			State:          lookupJobState(fields[2]),
			ElapsedSeconds: elapsed,
			ExitCode:       exitCode,
		})
	}
	return records, nil
}

// parseExitCode handles the accounting "exit:signal" form (e.g. "0:0",
// "1:9"), returning just the exit code half. Unparseable input yields 0.
func parseExitCode(s string) int {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		s = s[:idx]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
