package present

import (
	"fmt"
	"strconv"

	"github.com/felixgeelhaar/apidrift/internal/drift"
)

// GroupBy selects the grouping key.
type GroupBy string

const (
	GroupByEndpoint GroupBy = "endpoint"
	GroupByField    GroupBy = "field"
	GroupByStatus   GroupBy = "status"
	GroupByNone     GroupBy = "none"
)

// GroupByValues lists the accepted grouping names.
var GroupByValues = []string{string(GroupByEndpoint), string(GroupByField), string(GroupByStatus), string(GroupByNone)}

// ParseGroupBy accepts a grouping name; empty means none.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(s); g {
	case "":
		return GroupByNone, nil
	case GroupByEndpoint, GroupByField, GroupByStatus, GroupByNone:
		return g, nil
	}
	return "", fmt.Errorf("unknown grouping %q", s)
}

// Group is a labelled run of findings.
type Group struct {
	Key      string          `json:"group" yaml:"group"`
	Findings []drift.Finding `json:"findings" yaml:"findings"`
}

// GroupFindings partitions findings by key. Groups appear in the order
// their first finding does, and findings keep their order within a group.
func GroupFindings(findings []drift.Finding, by GroupBy) []Group {
	if by == GroupByNone || by == "" {
		return []Group{{Key: "all", Findings: findings}}
	}

	var groups []Group
	index := make(map[string]int)
	for _, f := range findings {
		key := groupKey(f, by)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Findings = append(groups[i].Findings, f)
	}
	return groups
}

func groupKey(f drift.Finding, by GroupBy) string {
	switch by {
	case GroupByEndpoint:
		return f.Method + " " + f.Path
	case GroupByField:
		if f.FieldPath == "" {
			return "status-code"
		}
		return f.FieldPath
	case GroupByStatus:
		if f.StatusCode == 0 {
			return "field"
		}
		return strconv.Itoa(f.StatusCode)
	default:
		return "all"
	}
}
