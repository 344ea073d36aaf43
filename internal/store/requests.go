package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/rvcli/rv/internal/model"
)

const requestsFilename = "requests.json"

// requestRetention is how long a RequestRecord survives before being
// pruned on write (spec.md §3: "Pruned after 7 days").
const requestRetention = 7 * 24 * time.Hour

type requestsFile struct {
	Requests []model.RequestRecord `json:"requests"`
}

// LoadRequests returns the full request history, unpruned — pruning
// happens on write, not on read, so a record stays visible right up to
// the moment it ages out.
func LoadRequests() ([]model.RequestRecord, error) {
	var f requestsFile
	if err := readJSON(requestsFilename, &f); err != nil {
		return nil, err
	}
	return f.Requests, nil
}

// SaveRequests writes records to requests.json after pruning anything
// older than requestRetention.
func SaveRequests(records []model.RequestRecord) error {
	return writeJSON(requestsFilename, requestsFile{Requests: pruneOldRequests(records)})
}

// AppendRequest adds record (assigning a new id if it has none) to the
// history and persists it.
func AppendRequest(record model.RequestRecord) (model.RequestRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	records, err := LoadRequests()
	if err != nil {
		return model.RequestRecord{}, err
	}
	records = append(records, record)
	if err := SaveRequests(records); err != nil {
		return model.RequestRecord{}, err
	}
	return record, nil
}

func pruneOldRequests(records []model.RequestRecord) []model.RequestRecord {
	cutoff := time.Now().Add(-requestRetention)
	kept := records[:0]
	for _, r := range records {
		if r.Timestamp.After(cutoff) {
			kept = append(kept, r)
		}
	}
	return kept
}
