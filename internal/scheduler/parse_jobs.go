package scheduler

import (
	"strings"

	"github.com/rvcli/rv/internal/model"
	"github.com/rvcli/rv/internal/pathutil"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// jobStateTable maps the scheduler's short state codes to the closed
// model.JobState enum. Anything unrecognized maps to model.StateUnknown
// rather than erroring — live listings must never fail the caller over one
// unrecognized row.
var jobStateTable = map[string]model.JobState{
	"PD": model.StatePending,
	"R":  model.StateRunning,
	"CG": model.StateCompleting,
	"CD": model.StateCompleted,
	"F":  model.StateFailed,
	"CA": model.StateCancelled,
	"TO": model.StateTimeout,

	"PENDING":    model.StatePending,
	"RUNNING":    model.StateRunning,
	"COMPLETING": model.StateCompleting,
	"COMPLETED":  model.StateCompleted,
	"FAILED":     model.StateFailed,
	"CANCELLED":  model.StateCancelled,
	"TIMEOUT":    model.StateTimeout,
}

func lookupJobState(raw string) model.JobState {
	if state, ok := jobStateTable[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return state
	}
	return model.StateUnknown
}

// ParseLiveJobs parses the live-jobs listing: one pipe-delimited record per
// line, fields id|name|state|elapsed|limit|partition|gres|nodelist|reason.
func ParseLiveJobs(text string) ([]model.Job, error) {
	var jobs []model.Job
	for _, line := range splitNonEmptyLines(text) {
		fields := strings.Split(line, "|")
		if len(fields) != 9 {
			return nil, rverrors.WrapParse("live job record", line)
		}

		elapsedSeconds, err := pathutil.ParseDuration(normalizeSchedulerTime(fields[3]))
		if err != nil {
			elapsedSeconds = 0
		}
		limitSeconds, err := pathutil.ParseDuration(normalizeSchedulerTime(fields[4]))
		if err != nil {
			limitSeconds = 0
		}

		var nodes []string
		if fields[7] != "" {
			nodes, err = ExpandNodelist(fields[7])
			if err != nil {
				return nil, err
			}
		}

		jobs = append(jobs, model.Job{
			ID:               fields[0],
			Name:             fields[1],
			State:            lookupJobState(fields[2]),
			ElapsedSeconds:   elapsedSeconds,
			ElapsedFormatted: fields[3],
			LimitSeconds:     limitSeconds,
			LimitFormatted:   fields[4],
			Partition:        fields[5],
			Resource:         fields[6],
			Nodes:            nodes,
			Reason:           fields[8],
		})
	}
	return jobs, nil
}

// normalizeSchedulerTime maps the scheduler's "UNLIMITED"/"INVALID"
// sentinels to a value pathutil.ParseDuration can round-trip through (both
// collapse to 0; callers that need to distinguish them read ElapsedFormatted
// / LimitFormatted instead).
func normalizeSchedulerTime(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNLIMITED", "INVALID", "":
		return "0"
	default:
		return s
	}
}

func splitNonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
