// Package tail polls log files on the remote host and streams new
// content locally until the job reaches a terminal state, then resolves
// the job's final exit code from accounting history.
package tail

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rvcli/rv/internal/model"
)

// Stream selects which of a job's output files to follow.
type Stream string

const (
	StreamOut  Stream = "out"
	StreamErr  Stream = "err"
	StreamBoth Stream = "both"
)

// Options configures one Tail call.
type Options struct {
	Stream Stream

	// NodeCount is 1 for a single-node job; >1 switches to per-node file
	// tailing, with outPath/errPath treated as %d-templated patterns, or
	// given a -nodeK suffix before the extension when they have no %d (see
	// nodeFilePath).
	NodeCount int

	// NodeFilter, if non-nil, limits tailing to one node index (0-based).
	NodeFilter *int

	// Raw disables progress-bar scrubbing.
	Raw bool

	// Silent suppresses printed output entirely; Tail still polls until
	// termination and returns the final result.
	Silent bool

	// PollInterval defaults to 2s.
	PollInterval time.Duration

	// Writer receives printed lines; defaults to os.Stdout.
	Writer io.Writer
}

// Result is the outcome of a completed Tail call.
type Result struct {
	FinalState model.JobState
	ExitCode   int
}

// execBatcher is the subset of internal/remoteexec.Executor Tail needs.
type execBatcher interface {
	ExecBatch(ctx context.Context, commands []string, timeout time.Duration) ([]string, error)
}

// jobStatusSource is the subset of internal/scheduler.Adapter Tail needs
// to detect job termination and resolve the final exit code.
type jobStatusSource interface {
	ListJobs(ctx context.Context) ([]model.Job, error)
	ListHistory(ctx context.Context, since time.Time) ([]model.JobAccounting, error)
}

// Tailer polls a job's log files and its scheduler status until the job
// finishes.
type Tailer struct {
	exec   execBatcher
	status jobStatusSource
}

// NewTailer builds a Tailer bound to a remote executor and a scheduler
// status source.
func NewTailer(exec execBatcher, status jobStatusSource) *Tailer {
	return &Tailer{exec: exec, status: status}
}

const defaultPollInterval = 2 * time.Second
const batchTimeout = 15 * time.Second

// preambleFallbackPolls is how many polls a multi-node tail waits for
// per-node files to show content before falling back to the sbatch-level
// files (spec.md §4.5: "preamble failure before per-node output begins").
const preambleFallbackPolls = 3

// Tail polls outPath/errPath (or their per-node expansions) until jobID
// reaches a terminal state, printing new content as it arrives.
func (t *Tailer) Tail(ctx context.Context, jobID, outPath, errPath string, opts Options) (Result, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.NodeCount <= 0 {
		opts.NodeCount = 1
	}

	files := t.trackedFiles(outPath, errPath, opts)
	counts := make(map[string]int, len(files))
	for _, f := range files {
		counts[f.path] = 0
	}

	fallbackPath := []fileRef{
		{path: outPath, kind: kindOut, node: -1},
		{path: errPath, kind: kindErr, node: -1},
	}
	fellBack := opts.NodeCount <= 1
	pollsSinceStart := 0

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		state, exitCode, terminal, err := t.pollState(ctx, jobID)
		if err != nil {
			return Result{}, err
		}

		grew, err := t.pollFiles(ctx, files, counts, opts)
		if err != nil {
			return Result{}, err
		}
		if !opts.Silent {
			printGrowth(opts.Writer, grew, opts.Raw)
		}

		pollsSinceStart++
		if !fellBack && pollsSinceStart >= preambleFallbackPolls {
			// The sbatch-level stderr is not tracked yet, so its line count is
			// read here and kept out of counts (its content prints in full).
			observed := make(map[string]int, len(counts)+1)
			for p, n := range counts {
				observed[p] = n
			}
			wc, err := t.exec.ExecBatch(ctx, []string{fmt.Sprintf("wc -l %s 2>/dev/null | awk '{print $1}' || echo 0", shellQuote(errPath))}, batchTimeout)
			if err != nil {
				return Result{}, err
			}
			if len(wc) > 0 {
				observed[errPath] = parseLineCount(wc[0])
			}
			if shouldFallBackToSbatchLevel(files, observed, fallbackPath) {
				files = fallbackPath
				for _, f := range files {
					if _, ok := counts[f.path]; !ok {
						counts[f.path] = 0
					}
				}
				fellBack = true
			}
		}

		if terminal {
			// one final poll to catch any content written between the
			// scheduler reporting termination and the file reaching its
			// final size.
			grew, err := t.pollFiles(ctx, files, counts, opts)
			if err != nil {
				return Result{}, err
			}
			if !opts.Silent {
				printGrowth(opts.Writer, grew, opts.Raw)
			}
			return Result{FinalState: state, ExitCode: exitCode}, nil
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

type fileKind int

const (
	kindOut fileKind = iota
	kindErr
)

type fileRef struct {
	path string
	kind fileKind
	node int // -1 for the sbatch-level (non-per-node) file
}

// trackedFiles expands outPath/errPath into the set of files to poll,
// applying Options.Stream, Options.NodeCount, and Options.NodeFilter.
func (t *Tailer) trackedFiles(outPath, errPath string, opts Options) []fileRef {
	var refs []fileRef

	addPair := func(out, err string, node int) {
		if opts.Stream != StreamErr {
			refs = append(refs, fileRef{path: out, kind: kindOut, node: node})
		}
		if opts.Stream != StreamOut {
			refs = append(refs, fileRef{path: err, kind: kindErr, node: node})
		}
	}

	if opts.NodeCount <= 1 {
		addPair(outPath, errPath, -1)
		return refs
	}

	for i := 0; i < opts.NodeCount; i++ {
		if opts.NodeFilter != nil && *opts.NodeFilter != i {
			continue
		}
		addPair(nodeFilePath(outPath, i), nodeFilePath(errPath, i), i)
	}
	return refs
}

// nodeFilePath substitutes a node index into a %d-templated path pattern,
// or appends a -nodeK suffix before the extension if the pattern has no
// placeholder.
func nodeFilePath(pattern string, node int) string {
	if strings.Contains(pattern, "%d") {
		return fmt.Sprintf(pattern, node)
	}
	ext := ""
	base := pattern
	if idx := strings.LastIndex(pattern, "."); idx >= 0 {
		ext = pattern[idx:]
		base = pattern[:idx]
	}
	return fmt.Sprintf("%s-node%d%s", base, node, ext)
}

// pollState fetches the job's current state, returning the accounting
// exit code once the job is terminal. "Terminal" here means the job is no
// longer in the live listing and accounting history has resolved it, or
// it is directly observed in a terminal state in the live listing.
func (t *Tailer) pollState(ctx context.Context, jobID string) (state model.JobState, exitCode int, terminal bool, err error) {
	jobs, err := t.status.ListJobs(ctx)
	if err != nil {
		return "", 0, false, err
	}
	for _, j := range jobs {
		if j.ID == jobID {
			if j.State.IsTerminal() {
				exitCode := 0
				if j.State != model.StateCompleted {
					exitCode = 1
				}
				return j.State, exitCode, true, nil
			}
			return j.State, 0, false, nil
		}
	}

	// Not in the live listing: check accounting history.
	history, err := t.status.ListHistory(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		return "", 0, false, err
	}
	for _, rec := range history {
		if rec.ID == jobID {
			return rec.State, rec.ExitCode, true, nil
		}
	}

	// Well-known accounting lag: neither listing has it yet. Treat as
	// still running rather than failing the tail.
	return model.StateUnknown, 0, false, nil
}

type growthLine struct {
	node int
	kind fileKind
	text string
}

// pollFiles batches a wc -l check across all tracked files, then a
// tail+head for every file whose line count grew, returning the new
// lines in file order.
func (t *Tailer) pollFiles(ctx context.Context, files []fileRef, counts map[string]int, opts Options) ([]growthLine, error) {
	if len(files) == 0 {
		return nil, nil
	}

	wcCommands := make([]string, len(files))
	for i, f := range files {
		wcCommands[i] = fmt.Sprintf("wc -l %s 2>/dev/null | awk '{print $1}' || echo 0", shellQuote(f.path))
	}
	wcOut, err := t.exec.ExecBatch(ctx, wcCommands, batchTimeout)
	if err != nil {
		return nil, err
	}

	type grownFile struct {
		ref        fileRef
		prev, curr int
	}
	var grown []grownFile
	for i, f := range files {
		curr := parseLineCount(wcOut[i])
		prev := counts[f.path]
		if curr > prev {
			grown = append(grown, grownFile{ref: f, prev: prev, curr: curr})
		}
		counts[f.path] = curr
	}
	if len(grown) == 0 {
		return nil, nil
	}

	tailCommands := make([]string, len(grown))
	for i, g := range grown {
		delta := g.curr - g.prev
		tailCommands[i] = fmt.Sprintf("tail -n +%d %s 2>/dev/null | head -n %d", g.prev+1, shellQuote(g.ref.path), delta)
	}
	tailOut, err := t.exec.ExecBatch(ctx, tailCommands, batchTimeout)
	if err != nil {
		return nil, err
	}

	var lines []growthLine
	for i, g := range grown {
		for _, text := range splitLines(tailOut[i]) {
			if !opts.Raw && isProgressBarLine(text) {
				continue
			}
			lines = append(lines, growthLine{node: g.ref.node, kind: g.ref.kind, text: text})
		}
	}
	return lines, nil
}

func printGrowth(w io.Writer, lines []growthLine, raw bool) {
	for _, l := range lines {
		prefix := ""
		if l.node >= 0 {
			prefix = fmt.Sprintf("[node%d]", l.node)
		}
		if l.kind == kindErr {
			prefix += "[stderr]"
		}
		if prefix != "" {
			fmt.Fprintf(w, "%s %s\n", prefix, l.text)
		} else {
			fmt.Fprintln(w, l.text)
		}
	}
}

// shouldFallBackToSbatchLevel reports whether every per-node file is still
// empty while the sbatch-level stderr already has content — a preamble
// failure before any per-node output began.
func shouldFallBackToSbatchLevel(files []fileRef, counts map[string]int, fallback []fileRef) bool {
	for _, f := range files {
		if f.node >= 0 && counts[f.path] > 0 {
			return false
		}
	}
	for _, f := range fallback {
		if f.kind == kindErr && counts[f.path] > 0 {
			return true
		}
	}
	return false
}

var progressBarRE = regexp.MustCompile(`\d{1,3}%\|`)

// isProgressBarLine reports whether text looks like a progress-bar
// refresh line — a carriage return mid-line, or an "NN%|...|" meter —
// that should be scrubbed unless Options.Raw is set.
func isProgressBarLine(text string) bool {
	if strings.ContainsRune(text, '\r') {
		return true
	}
	return progressBarRE.MatchString(text)
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func parseLineCount(s string) int {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
