package remoteexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	rverrors "github.com/rvcli/rv/pkg/errors"
)

// batchDelimiter separates each command's output in an ExecBatch response.
// It is unlikely to appear in legitimate command output in practice.
const batchDelimiter = "___RV_DELIM___"

// ExecBatch joins commands with ";" so a failing command does not
// short-circuit the rest, runs them as one remote invocation, echoes
// batchDelimiter between each command's output, and splits the combined
// stdout back into per-command strings. The result preserves input order.
func (e *Executor) ExecBatch(ctx context.Context, commands []string, timeout time.Duration) ([]string, error) {
	if len(commands) == 0 {
		return nil, nil
	}

	parts := make([]string, 0, len(commands)*2-1)
	for i, cmd := range commands {
		parts = append(parts, cmd)
		if i != len(commands)-1 {
			parts = append(parts, fmt.Sprintf("echo '%s'", batchDelimiter))
		}
	}
	script := strings.Join(parts, "; ")

	out, err := e.Exec(ctx, script, timeout)
	if err != nil {
		if rv, ok := err.(*rverrors.RVError); ok && rv.Kind == rverrors.KindRemoteExit {
			// A non-zero exit from any one command still produced output on
			// the delimiter-joined stream; fall through and split it so the
			// caller can see which specific command's section is empty.
		} else {
			return nil, err
		}
	}

	sections := strings.Split(out, batchDelimiter)
	results := make([]string, len(commands))
	for i := range commands {
		if i < len(sections) {
			results[i] = strings.Trim(sections[i], "\n")
		}
	}
	return results, nil
}
