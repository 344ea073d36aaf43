package scheduler

import (
	"testing"

	"github.com/rvcli/rv/internal/model"
)

func TestParseLiveJobs(t *testing.T) {
	text := "123|train|R|01:02:03|02:00:00|gpu|gpu:a100_80:2|udc-an[1-2]|None\n" +
		"124|infer|PD|00:00:00|UNLIMITED|gpu|||\n"

	jobs, err := ParseLiveJobs(text)
	if err != nil {
		t.Fatalf("ParseLiveJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d, want 2", len(jobs))
	}

	first := jobs[0]
	if first.ID != "123" || first.State != model.StateRunning {
		t.Errorf("jobs[0] = %+v", first)
	}
	if first.ElapsedSeconds != 3723 {
		t.Errorf("jobs[0].ElapsedSeconds = %d, want 3723", first.ElapsedSeconds)
	}
	if len(first.Nodes) != 2 || first.Nodes[0] != "udc-an1" {
		t.Errorf("jobs[0].Nodes = %v", first.Nodes)
	}

	second := jobs[1]
	if second.State != model.StatePending {
		t.Errorf("jobs[1].State = %v, want PENDING", second.State)
	}
	if second.LimitSeconds != 0 {
		t.Errorf("jobs[1].LimitSeconds = %d, want 0 for UNLIMITED", second.LimitSeconds)
	}
}

func TestParseLiveJobs_MalformedRow(t *testing.T) {
	if _, err := ParseLiveJobs("too|few|fields"); err == nil {
		t.Error("expected an error for a malformed row")
	}
}

func TestLookupJobState_UnknownFallsBack(t *testing.T) {
	if got := lookupJobState("WEIRD_STATE"); got != model.StateUnknown {
		t.Errorf("lookupJobState(unknown) = %v, want StateUnknown", got)
	}
}
