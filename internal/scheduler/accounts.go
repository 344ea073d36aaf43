package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// QOSInfo is one row of the cluster's QOS table — a supplemented query
// (spec.md doesn't name it, but the allocations/quotas/fair-share trio it
// does name implies this one's naturally adjacent home).
type QOSInfo struct {
	Name          string
	Priority      int
	MaxWalltime   string
	MaxJobsPerUser int
}

// ListQOS returns the cluster's QOS definitions. Parse failures are
// swallowed (returns what parsed, nil error) per spec.md §7's "non-critical
// auxiliary query" policy — a malformed QOS table never fails its caller.
func (a *Adapter) ListQOS(ctx context.Context) ([]QOSInfo, error) {
	out, err := a.exec.Exec(ctx, `sacctmgr show qos --noheader --parsable2 format=Name,Priority,MaxWall,MaxJobsPU`, defaultAdapterTimeout)
	if err != nil {
		return nil, nil
	}
	return parseQOSTable(out), nil
}

func parseQOSTable(text string) []QOSInfo {
	var rows []QOSInfo
	for _, line := range splitNonEmptyLines(text) {
		fields := strings.Split(line, "|")
		if len(fields) < 4 {
			continue
		}
		priority, _ := strconv.Atoi(strings.TrimSpace(fields[1]))
		maxJobs, _ := strconv.Atoi(strings.TrimSpace(fields[3]))
		rows = append(rows, QOSInfo{
			Name:           fields[0],
			Priority:       priority,
			MaxWalltime:    fields[2],
			MaxJobsPerUser: maxJobs,
		})
	}
	return rows
}

// AssociationInfo is one row of the user/account association table — the
// binding between a user, account, and QOS set.
type AssociationInfo struct {
	User    string
	Account string
	QOS     []string
}

// ListAssociations returns the association rows for the configured user.
// Like ListQOS, failures here are swallowed: best-effort display data.
func (a *Adapter) ListAssociations(ctx context.Context) ([]AssociationInfo, error) {
	cmd := fmt.Sprintf(`sacctmgr show assoc user=%s --noheader --parsable2 format=User,Account,QOS`, shellArg(a.user))
	out, err := a.exec.Exec(ctx, cmd, defaultAdapterTimeout)
	if err != nil {
		return nil, nil
	}
	return parseAssociationTable(out), nil
}

func parseAssociationTable(text string) []AssociationInfo {
	var rows []AssociationInfo
	for _, line := range splitNonEmptyLines(text) {
		fields := strings.Split(line, "|")
		if len(fields) < 3 {
			continue
		}
		var qosList []string
		for _, q := range strings.Split(fields[2], ",") {
			q = strings.TrimSpace(q)
			if q != "" {
				qosList = append(qosList, q)
			}
		}
		rows = append(rows, AssociationInfo{
			User:    fields[0],
			Account: fields[1],
			QOS:     qosList,
		})
	}
	return rows
}
