package store

import (
	"github.com/shirou/gopsutil/v3/process"

	"github.com/rvcli/rv/internal/model"
)

const forwardsFilename = "forwards.json"

type forwardsFile struct {
	Forwards []model.TunnelEntry `json:"forwards"`
}

// LoadForwards returns the active port-forward registry, pruned of any
// entry whose pid no longer exists in the local process table (spec.md §8
// invariant: "a TunnelEntry is kept only while its pid exists").
func LoadForwards() ([]model.TunnelEntry, error) {
	var f forwardsFile
	if err := readJSON(forwardsFilename, &f); err != nil {
		return nil, err
	}

	live := pruneDeadTunnels(f.Forwards)
	if len(live) != len(f.Forwards) {
		if err := writeJSON(forwardsFilename, forwardsFile{Forwards: live}); err != nil {
			return nil, err
		}
	}
	return live, nil
}

// SaveForwards overwrites forwards.json with entries, as-is (no pruning —
// callers that want pruning should go through LoadForwards first).
func SaveForwards(entries []model.TunnelEntry) error {
	return writeJSON(forwardsFilename, forwardsFile{Forwards: entries})
}

// AddForward appends entry to the registry.
func AddForward(entry model.TunnelEntry) error {
	entries, err := LoadForwards()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	return SaveForwards(entries)
}

// RemoveForward removes the entry with the given pid, if present.
func RemoveForward(pid int) error {
	entries, err := LoadForwards()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.PID != pid {
			kept = append(kept, e)
		}
	}
	return SaveForwards(kept)
}

func pruneDeadTunnels(entries []model.TunnelEntry) []model.TunnelEntry {
	var live []model.TunnelEntry
	for _, e := range entries {
		if pidIsAlive(e.PID) {
			live = append(live, e)
		}
	}
	return live
}

func pidIsAlive(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}
