// Package scheduler turns the cluster scheduler's text CLI surface into
// typed data: pure parsers for each report format, plus an Adapter that
// issues the underlying commands over a remote executor and parses their
// output.
package scheduler

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rvcli/rv/internal/model"
	slurmctx "github.com/rvcli/rv/pkg/context"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// executor is the subset of internal/remoteexec.Executor the Adapter needs.
// Depending on this narrow interface instead of the concrete type keeps
// this package testable without a real SSH connection.
type executor interface {
	Exec(ctx context.Context, command string, timeout time.Duration) (string, error)
	ExecBatch(ctx context.Context, commands []string, timeout time.Duration) ([]string, error)
	WriteFile(ctx context.Context, remotePath string, data []byte, timeout time.Duration) error
}

// Adapter is the scheduler's command-and-parse boundary: every Adapter
// method issues one or more remote commands and returns typed data.
type Adapter struct {
	exec    executor
	user    string
	account string
}

// NewAdapter builds an Adapter bound to a specific cluster user/account.
func NewAdapter(exec executor, user, account string) *Adapter {
	return &Adapter{exec: exec, user: user, account: account}
}

const defaultAdapterTimeout = 30 * time.Second

const liveJobsFormat = `%i|%j|%T|%M|%l|%P|%b|%N|%r`

// ListJobs returns the live jobs for the configured user.
func (a *Adapter) ListJobs(ctx context.Context) ([]model.Job, error) {
	cmd := fmt.Sprintf(`squeue -u %s --noheader -o %q`, shellArg(a.user), liveJobsFormat)
	out, err := a.exec.Exec(ctx, cmd, defaultAdapterTimeout)
	if err != nil {
		return nil, err
	}
	return ParseLiveJobs(out)
}

// ListHistory returns accounting records since the given time.
func (a *Adapter) ListHistory(ctx context.Context, since time.Time) ([]model.JobAccounting, error) {
	listCtx, cancel := slurmctx.WithTimeout(ctx, slurmctx.OpList, nil)
	defer cancel()

	cmd := fmt.Sprintf(
		`sacct -u %s -S %s --noheader -X -P --format=JobID,JobName,State,Elapsed,ExitCode,Partition,NodeList`,
		shellArg(a.user), since.Format("2006-01-02T15:04:05"),
	)
	out, err := a.exec.Exec(listCtx, cmd, defaultAdapterTimeout)
	if err != nil {
		return nil, slurmctx.WrapOperationError(err, "listHistory", slurmctx.DefaultTimeoutConfig().List)
	}
	return ParseAccountingHistory(out)
}

var submittedJobRE = regexp.MustCompile(`Submitted batch job (\d+)`)

// Submit writes scriptText to a temp path on the remote host and submits
// it, returning the new job id.
func (a *Adapter) Submit(ctx context.Context, scriptText string) (string, error) {
	submitCtx, cancel := slurmctx.WithTimeout(ctx, slurmctx.OpSubmit, nil)
	defer cancel()

	remotePath := fmt.Sprintf("/tmp/rv-submit-%d.sh", time.Now().UnixNano())
	if err := a.exec.WriteFile(submitCtx, remotePath, []byte(scriptText), defaultAdapterTimeout); err != nil {
		return "", slurmctx.WrapOperationError(err, "submit", slurmctx.DefaultTimeoutConfig().Submit)
	}

	cmd := fmt.Sprintf("sbatch %s; rm -f %s", shellArg(remotePath), shellArg(remotePath))
	out, err := a.exec.Exec(submitCtx, cmd, defaultAdapterTimeout)
	if err != nil {
		return "", slurmctx.WrapOperationError(err, "submit", slurmctx.DefaultTimeoutConfig().Submit)
	}

	m := submittedJobRE.FindStringSubmatch(out)
	if m == nil {
		return "", rverrors.New(rverrors.KindParse, "sbatch did not report a job id: "+strings.TrimSpace(out))
	}
	return m[1], nil
}

// Cancel cancels a single job.
func (a *Adapter) Cancel(ctx context.Context, jobID string) error {
	_, err := a.exec.Exec(ctx, fmt.Sprintf("scancel %s", shellArg(jobID)), defaultAdapterTimeout)
	return err
}

// CancelMany cancels several jobs in one remote call.
func (a *Adapter) CancelMany(ctx context.Context, jobIDs []string) error {
	if len(jobIDs) == 0 {
		return nil
	}
	args := make([]string, len(jobIDs))
	for i, id := range jobIDs {
		args[i] = shellArg(id)
	}
	_, err := a.exec.Exec(ctx, fmt.Sprintf("scancel %s", strings.Join(args, " ")), defaultAdapterTimeout)
	return err
}

var probeStartRE = regexp.MustCompile(`to start at (\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`)

// ProbeResult is the outcome of a dry-run submission request.
type ProbeResult struct {
	// EstimatedStart is nil if the scheduler did not emit a start-time
	// estimate for this probe.
	EstimatedStart *time.Time
}

// Probe issues a dry-run submission and extracts the estimated start time.
func (a *Adapter) Probe(ctx context.Context, partition, gres string, count int, walltimeSeconds int, account string, features []string) (ProbeResult, error) {
	cmd := a.probeCommand(partition, gres, count, walltimeSeconds, account, features)
	out, err := a.exec.Exec(ctx, cmd, defaultAdapterTimeout)
	if err != nil {
		if rv, ok := err.(*rverrors.RVError); ok && rv.Kind == rverrors.KindRemoteExit {
			// A nonzero exit from --test-only still prints the estimate line
			// on stdout in practice; fall through and parse it.
		} else {
			return ProbeResult{}, err
		}
	}
	return parseProbeOutput(out), nil
}

// ProbeSpec is one dry-run request within a ProbeBatch call.
type ProbeSpec struct {
	Partition       string
	GRES            string
	Count           int
	WalltimeSeconds int
	Account         string
	Features        []string
}

// ProbeBatch issues many dry-run submission requests in a single remote
// round trip (spec.md §4.3.2: "send all probes for all types in one
// batched remote call"). Results are returned in the same order as specs.
func (a *Adapter) ProbeBatch(ctx context.Context, specs []ProbeSpec) ([]ProbeResult, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	probeCtx, cancel := slurmctx.WithTimeout(ctx, slurmctx.OpProbe, nil)
	defer cancel()

	commands := make([]string, len(specs))
	for i, s := range specs {
		commands[i] = a.probeCommand(s.Partition, s.GRES, s.Count, s.WalltimeSeconds, s.Account, s.Features)
	}
	outputs, err := a.exec.ExecBatch(probeCtx, commands, defaultAdapterTimeout)
	if err != nil {
		return nil, slurmctx.WrapOperationError(err, "probeBatch", slurmctx.DefaultTimeoutConfig().Probe)
	}
	results := make([]ProbeResult, len(specs))
	for i, out := range outputs {
		results[i] = parseProbeOutput(out)
	}
	return results, nil
}

func (a *Adapter) probeCommand(partition, gres string, count int, walltimeSeconds int, account string, features []string) string {
	var b strings.Builder
	b.WriteString("sbatch --test-only")
	fmt.Fprintf(&b, " --partition=%s", shellArg(partition))
	if gres != "" {
		fmt.Fprintf(&b, " --gres=%s:%d", shellArg(gres), count)
	}
	fmt.Fprintf(&b, " --time=%s", shellArg(formatSecondsForCLI(walltimeSeconds)))
	if account != "" {
		fmt.Fprintf(&b, " --account=%s", shellArg(account))
	}
	if len(features) > 0 {
		fmt.Fprintf(&b, " --constraint=%s", shellArg(strings.Join(features, "&")))
	}
	b.WriteString(" --wrap=true")
	return b.String()
}

func parseProbeOutput(out string) ProbeResult {
	m := probeStartRE.FindStringSubmatch(out)
	if m == nil {
		return ProbeResult{}
	}
	ts, err := time.Parse("2006-01-02T15:04:05", m[1])
	if err != nil {
		return ProbeResult{}
	}
	return ProbeResult{EstimatedStart: &ts}
}

// WriteEnvFile serializes vars to a per-job env file on the remote host
// that the job's script sources at start and then removes.
func (a *Adapter) WriteEnvFile(ctx context.Context, jobID string, vars map[string]string) error {
	var b strings.Builder
	for k, v := range vars {
		fmt.Fprintf(&b, "export %s=%s\n", k, shellArg(v))
	}
	return a.exec.WriteFile(ctx, envFilePath(jobID), []byte(b.String()), defaultAdapterTimeout)
}

// envFilePath is the remote path the batch script preamble sources for a
// job's per-job environment (spec.md §8 invariant 8: env/<jobId>.env).
func envFilePath(jobID string) string {
	return fmt.Sprintf("env/%s.env", jobID)
}

// SystemState bundles the four most commonly polled listings, fetched in a
// single remote round trip.
type SystemState struct {
	Nodes      []NodeInfo
	Running    []model.Job
	Pending    []model.Job
	FairShare  float64
}

// GetSystemState batches nodes + running + pending + fairshare into one
// ExecBatch call.
func (a *Adapter) GetSystemState(ctx context.Context) (SystemState, error) {
	commands := []string{
		`sinfo --noheader -N -o "%N %t %G %C %m"`,
		fmt.Sprintf(`squeue -u %s -t RUNNING --noheader -o %q`, shellArg(a.user), liveJobsFormat),
		fmt.Sprintf(`squeue -u %s -t PENDING --noheader -o %q`, shellArg(a.user), liveJobsFormat),
		fmt.Sprintf(`sshare -U -u %s --noheader`, shellArg(a.user)),
	}

	results, err := a.exec.ExecBatch(ctx, commands, defaultAdapterTimeout)
	if err != nil {
		return SystemState{}, err
	}
	if len(results) != 4 {
		return SystemState{}, rverrors.New(rverrors.KindParse, "getSystemState: unexpected batch result count")
	}

	nodes, err := ParseNodeInventory(results[0])
	if err != nil {
		return SystemState{}, err
	}
	running, err := ParseLiveJobs(results[1])
	if err != nil {
		return SystemState{}, err
	}
	pending, err := ParseLiveJobs(results[2])
	if err != nil {
		return SystemState{}, err
	}
	fairShare := ParseFairShare(results[3], a.user)

	return SystemState{Nodes: nodes, Running: running, Pending: pending, FairShare: fairShare}, nil
}

// NodeGRES looks up the gres string advertised by each of nodes in one
// remote call, for the allocator's post-submission verification step
// (spec.md §4.3.7).
func (a *Adapter) NodeGRES(ctx context.Context, nodes []string) (map[string]string, error) {
	if len(nodes) == 0 {
		return map[string]string{}, nil
	}
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n
	}
	cmd := fmt.Sprintf(`sinfo --noheader -N -n %s -o "%%N %%G"`, shellArg(strings.Join(names, ",")))
	out, err := a.exec.Exec(ctx, cmd, defaultAdapterTimeout)
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(nodes))
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		result[fields[0]] = strings.TrimSpace(fields[1])
	}
	return result, nil
}

// shellArg quotes a value for safe interpolation into a scheduler command
// line built by this package.
func shellArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// formatSecondsForCLI renders a walltime in seconds as the scheduler's
// --time HH:MM:SS flag value.
func formatSecondsForCLI(totalSeconds int) string {
	hours := totalSeconds / 3600
	rem := totalSeconds % 3600
	minutes := rem / 60
	seconds := rem % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
