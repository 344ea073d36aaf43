// Package model holds the allocation engine's data types: the immutable
// request shape, the strategies derived from it, and the submissions,
// jobs, and local records those strategies produce.
package model

import (
	"time"

	"github.com/rvcli/rv/internal/gpuspec"
)

// JobState is a closed enum of the scheduler's job lifecycle states, as
// observed through live listings and accounting history.
type JobState string

const (
	StatePending    JobState = "PENDING"
	StateRunning    JobState = "RUNNING"
	StateCompleting JobState = "COMPLETING"
	StateCompleted  JobState = "COMPLETED"
	StateFailed     JobState = "FAILED"
	StateCancelled  JobState = "CANCELLED"
	StateTimeout    JobState = "TIMEOUT"
	StateUnknown    JobState = "UNKNOWN"
)

// IsTerminal reports whether a job in this state will never transition
// again.
func (s JobState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateTimeout:
		return true
	default:
		return false
	}
}

// IsTransitional reports whether the live listing reported a state that
// needs resolving against accounting history before it can be trusted
// (spec.md §4.5 termination handling).
func (s JobState) IsTransitional() bool {
	return s == StateCompleting || s == StateUnknown
}

// StrategyKind is a closed enum of submission plan shapes.
type StrategyKind string

const (
	KindDirect      StrategyKind = "direct"
	KindBackfill    StrategyKind = "backfill"
	KindCheckpoint  StrategyKind = "checkpoint"
	KindMIG         StrategyKind = "mig"
	KindInteractive StrategyKind = "interactive"
)

// Topology is a closed enum: a strategy is either confined to one node or
// split across two.
type Topology string

const (
	TopologySingleNode Topology = "single-node"
	TopologyMultiNode  Topology = "multi-node"
)

// UserRequest is the immutable input to the allocator: what the user asked
// for. Nothing in the allocator ever mutates a UserRequest.
type UserRequest struct {
	GPUCount int

	// GPUType is nil when the user did not pin a hardware class and the
	// compatibility filter should consider the whole table.
	GPUType *gpuspec.GPUType

	TotalTimeSeconds   int
	TotalTimeFormatted string

	JobName string
	Account string
	User    string

	Command string
	WorkDir string
	Venv    string

	// MemoryGB is nil when the user did not request explicit memory; the
	// script synthesizer falls back to the partition default.
	MemoryGB *int

	// VRAMFloorGB defaults to 0 (no floor).
	VRAMFloorGB int

	NotifyEndpoint  string
	SharedCachePath string

	// Labels is supplemental free-form metadata copied into the job's
	// comment field; it carries no invariant.
	Labels map[string]string
}

// BackfillProbe is the per-GPU-type outcome of the scheduler's "when would
// this start" dry run, collapsed to the largest immediately-schedulable
// walltime (spec.md §3, §4.3.2).
type BackfillProbe struct {
	GPUType gpuspec.GPUType

	MaxBackfillSeconds int

	// FullyBackfillable is true when every walltime on the probe grid
	// backfilled — no cliff was found.
	FullyBackfillable bool
}

// Strategy is one concrete submission plan.
type Strategy struct {
	ID string

	Kind StrategyKind

	GPUType   gpuspec.GPUType
	Partition string
	Resource  string

	WalltimeSeconds int

	// TimeMinSeconds is 0 when unset; otherwise a floor the scheduler may
	// use to start the job in a shorter slot than Walltime.
	TimeMinSeconds int

	GPUsPerNode int
	Nodes       int
	Topology    Topology

	Checkpoint bool

	EstimatedSU          float64
	EstimatedWaitSeconds int
	BackfillEligible     bool

	ConstraintFeatures []string

	Label string
	Score float64
}

// Submission is a Strategy after it has been accepted by the scheduler.
type Submission struct {
	Strategy Strategy

	JobID string
	State JobState
	Nodes []string

	// LastPolledAt supplements the monitor loop so vanished-job
	// reconciliation can log how stale the last observation was.
	LastPolledAt time.Time
}

// Job is a single record from the scheduler's live listing.
type Job struct {
	ID        string
	Name      string
	State     JobState
	Partition string
	Resource  string

	ElapsedSeconds   int
	ElapsedFormatted string
	LimitSeconds     int
	LimitFormatted   string

	Nodes  []string
	Reason string
}

// JobAccounting is a single record from the scheduler's historical
// accounting listing.
type JobAccounting struct {
	ID    string
	Name  string
	State JobState

	ElapsedSeconds int
	ExitCode       int
}

// RequestRecord is the local, persistent record of one logical request:
// every strategy submitted for it, keyed by a client-generated id.
type RequestRecord struct {
	ID string

	JobIDs   []string
	Topology Topology

	Timestamp time.Time

	VCSBranch string
	VCSCommit string
	VCSDirty  bool

	SnapshotPath string
}

// TunnelEntry is the local, persistent record of one active port-forward.
type TunnelEntry struct {
	PID        int
	LocalPort  int
	RemotePort int
	Node       string
	JobID      string
	StartedAt  time.Time
}

// EnvStore is the local, persistent mapping of environment variables
// injected into every submitted job.
type EnvStore map[string]string
