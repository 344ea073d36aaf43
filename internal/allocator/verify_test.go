package allocator

import (
	"context"
	"testing"

	"github.com/rvcli/rv/internal/gpuspec"
	"github.com/rvcli/rv/internal/model"
)

type fakeGRESProber struct {
	byNode map[string]string
}

func (f *fakeGRESProber) NodeGRES(ctx context.Context, nodes []string) (map[string]string, error) {
	out := make(map[string]string, len(nodes))
	for _, n := range nodes {
		out[n] = f.byNode[n]
	}
	return out, nil
}

func submissionFor(gpuType gpuspec.GPUType, topology model.Topology, gpusPerNode int, nodes []string) model.Submission {
	return model.Submission{
		Strategy: model.Strategy{
			GPUType:     gpuType,
			Topology:    topology,
			GPUsPerNode: gpusPerNode,
		},
		JobID: "1",
		State: model.StateRunning,
		Nodes: nodes,
	}
}

func TestVerify_ExactMatchNoMismatch(t *testing.T) {
	adapter := &fakeGRESProber{byNode: map[string]string{"udc-an1": "gpu:a100_80:4"}}
	winner := submissionFor(gpuspec.A100_80, model.TopologySingleNode, 4, []string{"udc-an1"})

	v, err := Verify(context.Background(), adapter, winner)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if v.Mismatch {
		t.Error("expected no mismatch on an exact label match")
	}
	if v.ObservedGPULabel != "a100_80" || v.ObservedCount != 4 {
		t.Errorf("observed = %s/%d, want a100_80/4", v.ObservedGPULabel, v.ObservedCount)
	}
}

func TestVerify_GenuineTypeMismatch(t *testing.T) {
	adapter := &fakeGRESProber{byNode: map[string]string{"udc-an1": "gpu:v100:1"}}
	winner := submissionFor(gpuspec.A100_80, model.TopologySingleNode, 1, []string{"udc-an1"})

	v, err := Verify(context.Background(), adapter, winner)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !v.Mismatch {
		t.Error("expected a mismatch: requested a100_80, observed v100")
	}
}

func TestVerify_AmbiguousA100LabelNotFlagged(t *testing.T) {
	adapter := &fakeGRESProber{byNode: map[string]string{"udc-an1": "gpu:a100:4"}}

	for _, want := range []gpuspec.GPUType{gpuspec.A100_40, gpuspec.A100_80} {
		winner := submissionFor(want, model.TopologySingleNode, 4, []string{"udc-an1"})
		v, err := Verify(context.Background(), adapter, winner)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if v.Mismatch {
			t.Errorf("want=%s: bare 'a100' label is ambiguous and should not be flagged as a mismatch", want)
		}
	}
}

func TestVerify_UnambiguousA100VariantMismatchIsFlagged(t *testing.T) {
	adapter := &fakeGRESProber{byNode: map[string]string{"udc-an1": "gpu:a100_40:4"}}
	winner := submissionFor(gpuspec.A100_80, model.TopologySingleNode, 4, []string{"udc-an1"})

	v, err := Verify(context.Background(), adapter, winner)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !v.Mismatch {
		t.Error("expected a mismatch: requested a100_80, observed the a100_40 variant specifically")
	}
}

func TestVerify_MultiNodeWithoutInfiniBandWarns(t *testing.T) {
	adapter := &fakeGRESProber{byNode: map[string]string{"udc-an1": "gpu:v100:1"}}
	winner := submissionFor(gpuspec.V100, model.TopologyMultiNode, 1, []string{"udc-an1", "udc-an2"})

	v, err := Verify(context.Background(), adapter, winner)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(v.Warnings) == 0 {
		t.Fatal("expected a topology warning for multi-node on a partition without InfiniBand")
	}
}

func TestVerify_MultiGPUWithoutNVLinkWarns(t *testing.T) {
	adapter := &fakeGRESProber{byNode: map[string]string{"udc-an1": "gpu:rtx3090:2"}}
	winner := submissionFor(gpuspec.RTX3090, model.TopologySingleNode, 2, []string{"udc-an1"})

	v, err := Verify(context.Background(), adapter, winner)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(v.Warnings) == 0 {
		t.Fatal("expected a topology warning for multi-GPU on a partition without NVLink")
	}
}

func TestVerify_NoHazardsNoWarnings(t *testing.T) {
	adapter := &fakeGRESProber{byNode: map[string]string{"udc-an1": "gpu:a100_80:4"}}
	winner := submissionFor(gpuspec.A100_80, model.TopologySingleNode, 4, []string{"udc-an1"})

	v, err := Verify(context.Background(), adapter, winner)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(v.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", v.Warnings)
	}
}
