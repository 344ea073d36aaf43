package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rvcli/rv/internal/model"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// fakeExecutor is an in-memory stand-in for internal/remoteexec.Executor,
// keyed by the exact command string each Adapter method is expected to
// issue — it never touches a real SSH connection.
type fakeExecutor struct {
	execResponses  map[string]string
	execErrors     map[string]error
	batchResponses []string
	batchErr       error

	writtenPath string
	writtenData []byte

	lastCommands []string
}

func (f *fakeExecutor) Exec(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if err, ok := f.execErrors[command]; ok {
		return f.execResponses[command], err
	}
	if out, ok := f.execResponses[command]; ok {
		return out, nil
	}
	return "", nil
}

func (f *fakeExecutor) ExecBatch(ctx context.Context, commands []string, timeout time.Duration) ([]string, error) {
	f.lastCommands = commands
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.batchResponses, nil
}

func (f *fakeExecutor) WriteFile(ctx context.Context, remotePath string, data []byte, timeout time.Duration) error {
	f.writtenPath = remotePath
	f.writtenData = data
	return nil
}

func TestAdapter_ListJobs(t *testing.T) {
	fake := &fakeExecutor{execResponses: map[string]string{}}
	a := NewAdapter(fake, "alice", "gpu")

	cmd := `squeue -u 'alice' --noheader -o "%i|%j|%T|%M|%l|%P|%b|%N|%r"`
	fake.execResponses[cmd] = "1|train|R|00:01:00|01:00:00|gpu|gpu:a100_80:1|udc-an1|None\n"

	jobs, err := a.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "1" || jobs[0].State != model.StateRunning {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestAdapter_Submit(t *testing.T) {
	// Submit's remote path embeds a nanosecond timestamp, so the fake
	// answers any command with a fixed sbatch response rather than matching
	// on an exact command string.
	fake := &fakeExecutor{}
	wrapped := &recordingExecutor{fakeExecutor: fake, sbatchOutput: "Submitted batch job 4242\n"}
	a := NewAdapter(wrapped, "alice", "gpu")

	id, err := a.Submit(context.Background(), "#!/bin/bash\necho hi\n")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "4242" {
		t.Errorf("Submit id = %q, want 4242", id)
	}
	if wrapped.writtenData == nil {
		t.Error("Submit did not write the script to the remote host")
	}
}

// recordingExecutor wraps fakeExecutor but answers every Exec call with a
// fixed response, since Submit's remote path embeds a nanosecond timestamp
// that can't be matched exactly in a table.
type recordingExecutor struct {
	*fakeExecutor
	sbatchOutput string
}

func (r *recordingExecutor) Exec(ctx context.Context, command string, timeout time.Duration) (string, error) {
	return r.sbatchOutput, nil
}

func TestAdapter_Submit_NoJobIDReported(t *testing.T) {
	fake := &fakeExecutor{}
	wrapped := &recordingExecutor{fakeExecutor: fake, sbatchOutput: "sbatch: error: something broke\n"}
	a := NewAdapter(wrapped, "alice", "gpu")

	if _, err := a.Submit(context.Background(), "#!/bin/bash\n"); err == nil {
		t.Error("expected an error when sbatch does not report a job id")
	}
}

func TestAdapter_Cancel(t *testing.T) {
	fake := &fakeExecutor{execResponses: map[string]string{
		`scancel '123'`: "",
	}}
	a := NewAdapter(fake, "alice", "gpu")
	if err := a.Cancel(context.Background(), "123"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
}

func TestAdapter_CancelMany_Empty(t *testing.T) {
	fake := &fakeExecutor{}
	a := NewAdapter(fake, "alice", "gpu")
	if err := a.CancelMany(context.Background(), nil); err != nil {
		t.Fatalf("CancelMany(nil): %v", err)
	}
}

func TestAdapter_Probe_ParsesEstimatedStart(t *testing.T) {
	fake := &fakeExecutor{execResponses: map[string]string{}}
	wrapped := &probeExecutor{fakeExecutor: fake, out: "sbatch: Job 99 to start at 2026-08-01T10:00:00 using 1 processors"}
	a := NewAdapter(wrapped, "alice", "gpu")

	result, err := a.Probe(context.Background(), "gpu", "a100_80", 1, 3600, "gpu", nil)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if result.EstimatedStart == nil {
		t.Fatal("expected a non-nil EstimatedStart")
	}
	want := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if !result.EstimatedStart.Equal(want) {
		t.Errorf("EstimatedStart = %v, want %v", result.EstimatedStart, want)
	}
}

func TestAdapter_Probe_RemoteExitStillParsesEstimate(t *testing.T) {
	fake := &fakeExecutor{}
	wrapped := &probeExecutor{
		fakeExecutor: fake,
		out:          "to start at 2026-08-01T10:00:00",
		err:          rverrors.New(rverrors.KindRemoteExit, "nonzero exit"),
	}
	a := NewAdapter(wrapped, "alice", "gpu")

	result, err := a.Probe(context.Background(), "gpu", "a100_80", 1, 3600, "gpu", nil)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if result.EstimatedStart == nil {
		t.Fatal("expected estimate to survive a KindRemoteExit error")
	}
}

type probeExecutor struct {
	*fakeExecutor
	out string
	err error
}

func (p *probeExecutor) Exec(ctx context.Context, command string, timeout time.Duration) (string, error) {
	return p.out, p.err
}

func TestAdapter_WriteEnvFile(t *testing.T) {
	fake := &fakeExecutor{}
	a := NewAdapter(fake, "alice", "gpu")
	if err := a.WriteEnvFile(context.Background(), "4242", map[string]string{"FOO": "bar"}); err != nil {
		t.Fatalf("WriteEnvFile: %v", err)
	}
	if fake.writtenPath != "env/4242.env" {
		t.Errorf("writtenPath = %q, want env/4242.env", fake.writtenPath)
	}
}

func TestAdapter_GetSystemState(t *testing.T) {
	fake := &fakeExecutor{
		batchResponses: []string{
			"udc-an1 idle gpu:a100_80:4 0/32/0/32 256000\n",
			"1|train|R|00:01:00|01:00:00|gpu|gpu:a100_80:1|udc-an1|None\n",
			"",
			"gpu alice 1 0.5 100 0.5 0.9 0.6\n",
		},
	}
	a := NewAdapter(fake, "alice", "gpu")

	state, err := a.GetSystemState(context.Background())
	if err != nil {
		t.Fatalf("GetSystemState: %v", err)
	}
	if len(state.Nodes) != 1 || len(state.Running) != 1 || len(state.Pending) != 0 {
		t.Errorf("state = %+v", state)
	}
	if state.FairShare != 0.6 {
		t.Errorf("state.FairShare = %v, want 0.6", state.FairShare)
	}
	if len(fake.lastCommands) != 4 {
		t.Errorf("GetSystemState issued %d commands, want 4 batched in one call", len(fake.lastCommands))
	}
}

func TestAdapter_GetSystemState_WrongResultCount(t *testing.T) {
	fake := &fakeExecutor{batchResponses: []string{"only one"}}
	a := NewAdapter(fake, "alice", "gpu")
	if _, err := a.GetSystemState(context.Background()); err == nil {
		t.Error("expected an error when the batch returns the wrong number of results")
	}
}

func TestAdapter_ProbeBatch_IssuesOneRemoteCall(t *testing.T) {
	fake := &fakeExecutor{
		batchResponses: []string{
			"sbatch: Job 1 to start at 2026-08-01T10:00:00 using 1 processors",
			"sbatch: job cannot be scheduled",
		},
	}
	a := NewAdapter(fake, "alice", "gpu")

	results, err := a.ProbeBatch(context.Background(), []ProbeSpec{
		{Partition: "gpu-a100", GRES: "a100_80", Count: 2, WalltimeSeconds: 1800, Account: "gpu"},
		{Partition: "gpu-v100", GRES: "v100", Count: 2, WalltimeSeconds: 1800, Account: "gpu"},
	})
	if err != nil {
		t.Fatalf("ProbeBatch: %v", err)
	}
	if len(fake.lastCommands) != 2 {
		t.Fatalf("ProbeBatch issued %d commands, want 2 batched in one call", len(fake.lastCommands))
	}
	if results[0].EstimatedStart == nil {
		t.Error("expected results[0] to carry an estimated start")
	}
	if results[1].EstimatedStart != nil {
		t.Error("expected results[1] to have no estimated start")
	}
}

func TestAdapter_ProbeBatch_Empty(t *testing.T) {
	fake := &fakeExecutor{}
	a := NewAdapter(fake, "alice", "gpu")
	results, err := a.ProbeBatch(context.Background(), nil)
	if err != nil || results != nil {
		t.Errorf("ProbeBatch(nil) = %v, %v, want nil, nil", results, err)
	}
}

func TestAdapter_ProbeBatch_DeadlineExceededIsWrappedWithOperationName(t *testing.T) {
	fake := &fakeExecutor{batchErr: context.DeadlineExceeded}
	a := NewAdapter(fake, "alice", "gpu")

	_, err := a.ProbeBatch(context.Background(), []ProbeSpec{
		{Partition: "gpu-a100", GRES: "a100_80", Count: 2, WalltimeSeconds: 1800},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "probeBatch") {
		t.Errorf("error = %q, want it to name the probeBatch operation", err.Error())
	}
}

func TestAdapter_NodeGRES(t *testing.T) {
	fake := &fakeExecutor{execResponses: map[string]string{
		`sinfo --noheader -N -n 'udc-an1,udc-an2' -o "%N %G"`: "udc-an1 gpu:a100_80:4\nudc-an2 gpu:a100_80:4\n",
	}}
	a := NewAdapter(fake, "alice", "gpu")

	result, err := a.NodeGRES(context.Background(), []string{"udc-an1", "udc-an2"})
	if err != nil {
		t.Fatalf("NodeGRES: %v", err)
	}
	if result["udc-an1"] != "gpu:a100_80:4" || result["udc-an2"] != "gpu:a100_80:4" {
		t.Errorf("NodeGRES = %+v", result)
	}
}

func TestAdapter_NodeGRES_Empty(t *testing.T) {
	fake := &fakeExecutor{}
	a := NewAdapter(fake, "alice", "gpu")
	result, err := a.NodeGRES(context.Background(), nil)
	if err != nil || len(result) != 0 {
		t.Errorf("NodeGRES(nil) = %+v, %v", result, err)
	}
}
