package store

import (
	"testing"
	"time"

	"github.com/rvcli/rv/internal/model"
)

func TestAppendRequest_AssignsIDAndTimestamp(t *testing.T) {
	withTempHome(t)

	record, err := AppendRequest(model.RequestRecord{JobIDs: []string{"1"}})
	if err != nil {
		t.Fatalf("AppendRequest: %v", err)
	}
	if record.ID == "" {
		t.Error("expected AppendRequest to assign an id")
	}
	if record.Timestamp.IsZero() {
		t.Error("expected AppendRequest to assign a timestamp")
	}

	records, err := LoadRequests()
	if err != nil {
		t.Fatalf("LoadRequests: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %+v, want 1", records)
	}
}

func TestSaveRequests_PrunesOlderThanSevenDays(t *testing.T) {
	withTempHome(t)

	fresh := model.RequestRecord{ID: "fresh", Timestamp: time.Now()}
	stale := model.RequestRecord{ID: "stale", Timestamp: time.Now().Add(-8 * 24 * time.Hour)}

	if err := SaveRequests([]model.RequestRecord{fresh, stale}); err != nil {
		t.Fatalf("SaveRequests: %v", err)
	}

	records, err := LoadRequests()
	if err != nil {
		t.Fatalf("LoadRequests: %v", err)
	}
	if len(records) != 1 || records[0].ID != "fresh" {
		t.Errorf("records = %+v, want only the fresh record", records)
	}
}
