// Package grouping derives the report board from the full report listing: it
// counts reports per (building, concern) group, collapses each group to its
// newest member, filters by building and concern, and drills into one group.
//
// Every function is pure. Input slices are never modified and the listing is
// expected newest-first, which is the order the listing endpoint returns.
package grouping

import (
	"sort"

	"report-hub/models"
)

const (
	AllBuildings = "All Buildings"
	AllConcerns  = "All Concerns"
)

// GroupKey identifies a duplicate group. Two reports are duplicates when they
// name the same building and the same concern, compared case-sensitively.
type GroupKey struct {
	Building string `json:"building"`
	Concern  string `json:"concern"`
}

func KeyOf(r models.Report) GroupKey {
	return GroupKey{Building: r.Building, Concern: r.Concern}
}

// String renders the key for display only. Distinct keys may render the same
// way ("A-B","C" and "A","B-C"), so never use the string form for equality.
func (k GroupKey) String() string {
	return k.Building + "-" + k.Concern
}

// Less orders keys by building, then concern.
func (k GroupKey) Less(o GroupKey) bool {
	if k.Building != o.Building {
		return k.Building < o.Building
	}
	return k.Concern < o.Concern
}

// CountGroups returns how many reports fall into each group.
func CountGroups(reports []models.Report) map[GroupKey]int {
	counts := make(map[GroupKey]int, len(reports))
	for _, r := range reports {
		counts[KeyOf(r)]++
	}
	return counts
}

// Representatives keeps the first report seen for every group and drops the
// rest. With newest-first input the kept report is the most recent one.
func Representatives(reports []models.Report) []models.Report {
	seen := make(map[GroupKey]struct{}, len(reports))
	out := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		k := KeyOf(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Filter narrows reports to an exact building and concern. An empty value or
// the matching "All" sentinel lets every report through on that field.
func Filter(reports []models.Report, building, concern string) []models.Report {
	anyBuilding := building == "" || building == AllBuildings
	anyConcern := concern == "" || concern == AllConcerns

	out := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if !anyBuilding && r.Building != building {
			continue
		}
		if !anyConcern && r.Concern != concern {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortByGroup returns a copy ordered by group key. Reports within a group keep
// their relative order.
func SortByGroup(reports []models.Report) []models.Report {
	out := make([]models.Report, len(reports))
	copy(out, reports)
	sort.SliceStable(out, func(i, j int) bool {
		return KeyOf(out[i]).Less(KeyOf(out[j]))
	})
	return out
}

// Members returns every report of the group in input order.
func Members(reports []models.Report, key GroupKey) []models.Report {
	out := make([]models.Report, 0)
	for _, r := range reports {
		if KeyOf(r) == key {
			out = append(out, r)
		}
	}
	return out
}

// BuildingOptions lists the "All" sentinel followed by each distinct building
// present in reports, in first-seen order. Empty values are left out since an
// empty filter already means "all".
func BuildingOptions(reports []models.Report) []string {
	return options(reports, AllBuildings, func(r models.Report) string { return r.Building })
}

// ConcernOptions is BuildingOptions for concerns.
func ConcernOptions(reports []models.Report) []string {
	return options(reports, AllConcerns, func(r models.Report) string { return r.Concern })
}

func options(reports []models.Report, sentinel string, field func(models.Report) string) []string {
	out := []string{sentinel}
	seen := map[string]struct{}{}
	for _, r := range reports {
		v := field(r)
		// a report with an empty value has no option of its own; it is listed
		// under the "All" filter and reachable by drilling into its group
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
