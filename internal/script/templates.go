package script

import (
	"strings"
	"text/template"
)

var funcMap = template.FuncMap{
	"masterPortExpr": masterPortExpr,
	"hasMasterPort":  hasMasterPort,
}

// hasMasterPort reports whether command already passes a master-port-style
// flag, so the synthesizer doesn't double-inject one (spec.md §4.4: "unless
// already present").
func hasMasterPort(command string) bool {
	return strings.Contains(command, "--master-port") ||
		strings.Contains(command, "--master_port") ||
		strings.Contains(command, "--nnodes")
}

var parsedCache = map[string]*template.Template{}

// parsedTemplate parses name once and caches the result; the three shapes
// are fixed strings known at compile time, so a parse error here is a
// programming error, not a runtime condition.
func parsedTemplate(body string) (*template.Template, error) {
	if t, ok := parsedCache[body]; ok {
		return t, nil
	}
	t, err := template.New("script").Funcs(funcMap).Parse(preambleTemplate + body)
	if err != nil {
		return nil, err
	}
	parsedCache[body] = t
	return t, nil
}

// preambleTemplate is shared by all three shapes: batch directives, module
// loads, per-job env file sourcing, the notification helper, venv
// activation, cache directory setup, and the working-directory change
// (spec.md §4.4, steps 1-7).
const preambleTemplate = `#!/bin/bash
#SBATCH --job-name={{.JobName}}
#SBATCH --partition={{.Partition}}
#SBATCH --gres={{.GRES}}
#SBATCH --time={{.Walltime}}
{{- if .TimeMin}}
#SBATCH --time-min={{.TimeMin}}
{{- end}}
{{- if .Account}}
#SBATCH --account={{.Account}}
{{- end}}
{{- if gt .Nodes 1}}
#SBATCH --nodes={{.Nodes}}
#SBATCH --ntasks-per-node=1
#SBATCH --output=%x-%j-node%N.out
#SBATCH --error=%x-%j-node%N.err
{{- else}}
#SBATCH --output=%x-%j.out
#SBATCH --error=%x-%j.err
{{- end}}
#SBATCH --cpus-per-task={{.CPUsPerTask}}
{{- if gt .MemoryMB 0}}
#SBATCH --mem={{.MemoryMB}}M
{{- end}}
{{- if .ConstraintFeatures}}
#SBATCH --constraint={{.ConstraintFeatures}}
{{- end}}

set -uo pipefail

{{range .Modules}}
module load {{.}}
{{- end}}

if [ -f "env/${SLURM_JOB_ID}.env" ]; then
  source "env/${SLURM_JOB_ID}.env"
  rm -f "env/${SLURM_JOB_ID}.env"
fi

notify_event() {
{{- if .NotifyEnabled}}
  local event="$1"
  local epoch
  epoch=$(date +%s)
  local ts
  ts=$(date -u +%Y-%m-%dT%H:%M:%SZ)
  local sig
  sig=$(printf '%s' "{{.User}}:${SLURM_JOB_ID}:${event}:${epoch}" \
    | openssl dgst -sha256 -hmac "{{.NotifySecret}}" | sed 's/^.* //')
  curl -s -X POST "{{.NotifyEndpoint}}" \
    -H 'Content-Type: application/json' \
    -d "{\"user\":\"{{.User}}\",\"jobId\":\"${SLURM_JOB_ID}\",\"jobName\":\"{{.JobName}}\",\"event\":\"${event}\",\"node\":\"${SLURMD_NODENAME:-}\",\"ts\":\"${ts}\",\"epoch\":${epoch},\"sig\":\"${sig}\"}" \
    >/dev/null 2>&1 || true
{{- else}}
  :
{{- end}}
}

notify_event STARTED

{{- if .Venv}}
source "{{.Venv}}/bin/activate"
{{- end}}

export OMP_NUM_THREADS={{.CPUsPerTask}}
export MASTER_PORT={{masterPortExpr}}
export TOKENIZERS_PARALLELISM=false
export UV_CACHE_DIR="{{.ScratchDir}}/.cache/uv"
export PIP_CACHE_DIR="{{.ScratchDir}}/.cache/pip"
{{- if .SharedCachePath}}
export HF_HOME="{{.SharedCachePath}}"
{{- else}}
export HF_HOME="{{.ScratchDir}}/.cache/huggingface"
{{- end}}
export VLLM_CACHE_DIR="{{.ScratchDir}}/.cache/vllm"
export RV_CHECKPOINT_DIR="{{.ScratchDir}}/checkpoints/${SLURM_JOB_ID}"
export CHECKPOINT_DIR="${RV_CHECKPOINT_DIR}"
mkdir -p "${RV_CHECKPOINT_DIR}"

{{- if .WorkDir}}
cd "{{.WorkDir}}"
{{- end}}
`

// simpleTemplate appends the user command with an injected --master-port
// flag unless hasMasterPort finds --master-port, --master_port or --nnodes
// already in it; whether the command is a distributed launcher at all is
// not checked. Then an epilogue reports the exit code and emits the
// terminal notification event.
const simpleTemplate = `
{{.Command}} {{if not (hasMasterPort .Command)}}--master-port=$MASTER_PORT{{end}}
rv_exit_code=$?
if [ "$rv_exit_code" -eq 0 ]; then
  notify_event COMPLETED
else
  notify_event FAILED
fi
exit "$rv_exit_code"
`

// multiNodeTemplate configures NCCL and rendezvous env vars, derives
// MASTER_ADDR from the first node in the allocation, and runs the command
// via srun so RANK/WORLD_SIZE/NODE_RANK are set inside the per-task
// context rather than the batch body (spec.md §4.4 multi-node shape).
const multiNodeTemplate = `
export NCCL_DEBUG=WARN
export NCCL_IB_DISABLE=0
export MASTER_ADDR=$(scontrol show hostnames "$SLURM_JOB_NODELIST" | head -n1)

srun --label bash -c '
  export RANK=$SLURM_PROCID
  export WORLD_SIZE=$SLURM_NTASKS
  export NODE_RANK=$SLURM_NODEID
  {{.Command}} {{if not (hasMasterPort .Command)}}--nnodes={{.Nodes}} --node-rank=$NODE_RANK --master-addr=$MASTER_ADDR --master-port=$MASTER_PORT{{end}}
'
rv_exit_code=$?
if [ "$rv_exit_code" -eq 0 ]; then
  notify_event COMPLETED
else
  notify_event FAILED
fi
exit "$rv_exit_code"
`

// checkpointTemplate wraps the command in a timeout derived from the job's
// end time as reported by squeue, minus a 10-minute buffer (falling back to
// the total requested time minus 10 minutes), so a time-min underrun is
// honored, and resubmits itself on a non-total-elapsed failure.
const checkpointTemplate = `
rv_end_epoch=$(date -d "$(squeue -h -j "$SLURM_JOB_ID" -o %e)" +%s 2>/dev/null || echo 0)
rv_now_epoch=$(date +%s)
rv_budget_seconds=$(( rv_end_epoch > rv_now_epoch ? rv_end_epoch - rv_now_epoch - 600 : {{.TotalTimeSeconds}} - 600 ))
if [ "$rv_budget_seconds" -lt 60 ]; then
  rv_budget_seconds=60
fi

timeout "${rv_budget_seconds}s" {{.Command}}
rv_exit_code=$?

rv_total_elapsed=$(( ${RV_TOTAL_ELAPSED:-0} + rv_budget_seconds ))

if [ "$rv_exit_code" -ne 0 ] && [ "$rv_total_elapsed" -lt {{.TotalTimeSeconds}} ]; then
  notify_event FAILED
  notify_event RESUBMITTED
  RV_TOTAL_ELAPSED="$rv_total_elapsed" sbatch --export=ALL,RV_TOTAL_ELAPSED="$rv_total_elapsed" "$0"
  exit 0
fi

if [ "$rv_exit_code" -eq 0 ]; then
  notify_event COMPLETED
else
  notify_event FAILED
fi
exit "$rv_exit_code"
`
