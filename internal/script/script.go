// Package script synthesizes the batch script text submitted for a
// Strategy: directives, environment, notification hooks, and one of three
// body shapes (simple, multi-node, checkpoint).
package script

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rvcli/rv/internal/model"
	"github.com/rvcli/rv/internal/pathutil"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// Options bundles the site-specific values the synthesizer needs that
// don't live on the Strategy or UserRequest themselves.
type Options struct {
	// ScratchDir is the user's scratch filesystem root; cache directories
	// for uv/pip/HF/VLLM are created under it.
	ScratchDir string

	// Modules are scheduler modules loaded in the preamble, in order.
	Modules []string

	// NotifyEndpoint is the URL the notification helper POSTs to. Empty
	// disables notifications entirely.
	NotifyEndpoint string

	// NotifySecret is the HMAC-SHA256 key baked into the script as a
	// literal — a shared secret with the receiver, not a per-user secret
	// (spec.md §9's explicit warning about this tradeoff).
	NotifySecret string
}

// Synthesize renders the batch script text for strategy, submitting req.
func Synthesize(strategy model.Strategy, req model.UserRequest, opts Options) (string, error) {
	data := newTemplateData(strategy, req, opts)

	var tmpl string
	switch {
	case strategy.Checkpoint:
		tmpl = checkpointTemplate
	case strategy.Topology == model.TopologyMultiNode:
		tmpl = multiNodeTemplate
	default:
		tmpl = simpleTemplate
	}

	parsed, err := parsedTemplate(tmpl)
	if err != nil {
		return "", rverrors.Wrap(rverrors.KindConfig, err, "parse batch script template")
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, data); err != nil {
		return "", rverrors.Wrap(rverrors.KindConfig, err, "render batch script")
	}
	return buf.String(), nil
}

// templateData is the flattened view the templates render against —
// kept separate from model.Strategy/model.UserRequest so the templates
// never need nested-field syntax or method calls on domain types.
type templateData struct {
	JobName   string
	Account   string
	Partition string
	GRES      string
	Walltime  string
	TimeMin   string

	Nodes       int
	GPUsPerNode int
	CPUsPerTask int
	MemoryMB    int

	ConstraintFeatures string

	Command string
	WorkDir string
	Venv    string

	Modules []string

	ScratchDir      string
	SharedCachePath string

	NotifyEnabled  bool
	NotifyEndpoint string
	NotifySecret   string
	User           string

	TotalTimeSeconds int
}

func newTemplateData(s model.Strategy, req model.UserRequest, opts Options) templateData {
	memoryMB := 0
	if req.MemoryGB != nil {
		memoryMB = *req.MemoryGB * 1024
	}

	return templateData{
		JobName:   req.JobName,
		Account:   req.Account,
		Partition: s.Partition,
		GRES:      s.Resource,
		Walltime:  pathutil.FormatSeconds(s.WalltimeSeconds),
		TimeMin:   formatOptionalSeconds(s.TimeMinSeconds),

		Nodes:       s.Nodes,
		GPUsPerNode: s.GPUsPerNode,
		CPUsPerTask: cpusPerTask(s.GPUsPerNode),
		MemoryMB:    memoryMB,

		ConstraintFeatures: strings.Join(s.ConstraintFeatures, "&"),

		Command: req.Command,
		WorkDir: req.WorkDir,
		Venv:    req.Venv,

		Modules: opts.Modules,

		ScratchDir:      opts.ScratchDir,
		SharedCachePath: req.SharedCachePath,

		NotifyEnabled:  opts.NotifyEndpoint != "",
		NotifyEndpoint: opts.NotifyEndpoint,
		NotifySecret:   opts.NotifySecret,
		User:           req.User,

		TotalTimeSeconds: req.TotalTimeSeconds,
	}
}

func formatOptionalSeconds(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	return pathutil.FormatSeconds(seconds)
}

// cpusPerTask is a conservative one-CPU-per-GPU policy; sites that want a
// different ratio configure it via Options in a future revision.
func cpusPerTask(gpusPerNode int) int {
	if gpusPerNode <= 0 {
		return 1
	}
	return gpusPerNode
}

func masterPortExpr() string {
	return fmt.Sprintf("$((29500 + SLURM_JOB_ID %% %d))", masterPortRange)
}

const masterPortRange = 1000
