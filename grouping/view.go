package grouping

import (
	"fmt"

	"report-hub/models"
)

// State is the board's UI state. It is a value: the With*, Select, Back and
// ToggleDuplicates methods return a new State and leave the receiver alone.
type State struct {
	BuildingFilter string
	ConcernFilter  string
	ShowDuplicates bool
	SelectedGroup  *GroupKey
}

// DefaultState shows one report per group with no filters applied.
func DefaultState() State {
	return State{BuildingFilter: AllBuildings, ConcernFilter: AllConcerns}
}

func (s State) WithBuilding(building string) State {
	s.BuildingFilter = building
	return s
}

func (s State) WithConcern(concern string) State {
	s.ConcernFilter = concern
	return s
}

// ToggleDuplicates flips duplicate mode and leaves any open group.
func (s State) ToggleDuplicates() State {
	s.ShowDuplicates = !s.ShowDuplicates
	s.SelectedGroup = nil
	return s
}

// Select opens the drill-down for key. Filters and duplicate mode are kept so
// Back restores the previous list.
func (s State) Select(key GroupKey) State {
	k := key
	s.SelectedGroup = &k
	return s
}

func (s State) Back() State {
	s.SelectedGroup = nil
	return s
}

// Item is one rendered report with its group bookkeeping.
type Item struct {
	Report    models.Report `json:"report"`
	GroupKey  GroupKey      `json:"groupKey"`
	GroupSize int           `json:"groupSize"`
	// SimilarCount is the number of other reports in the group. It is only set
	// in the collapsed list, where it backs the drill-down affordance.
	SimilarCount int    `json:"similarCount"`
	SimilarLabel string `json:"similarLabel,omitempty"`
	// Badge is set in duplicate mode for reports whose group has company.
	Badge string `json:"badge,omitempty"`
}

type View struct {
	BuildingOptions []string  `json:"buildingOptions"`
	ConcernOptions  []string  `json:"concernOptions"`
	ShowDuplicates  bool      `json:"showDuplicates"`
	SelectedGroup   *GroupKey `json:"selectedGroup"`
	Items           []Item    `json:"items"`
}

// Derive computes what the board shows for reports under state s.
//
// With a selected group the view is exactly that group's members, ignoring
// filters and duplicate mode. Otherwise the list is collapsed to one report
// per group (or left whole in duplicate mode), filtered, and in duplicate
// mode sorted by group key.
func Derive(reports []models.Report, s State) View {
	counts := CountGroups(reports)
	v := View{
		BuildingOptions: BuildingOptions(reports),
		ConcernOptions:  ConcernOptions(reports),
		ShowDuplicates:  s.ShowDuplicates,
	}

	if s.SelectedGroup != nil {
		key := *s.SelectedGroup
		v.SelectedGroup = &key
		members := Members(reports, key)
		v.Items = make([]Item, 0, len(members))
		for _, r := range members {
			v.Items = append(v.Items, Item{Report: r, GroupKey: key, GroupSize: counts[key]})
		}
		return v
	}

	base := reports
	if !s.ShowDuplicates {
		base = Representatives(reports)
	}
	list := Filter(base, s.BuildingFilter, s.ConcernFilter)
	if s.ShowDuplicates {
		list = SortByGroup(list)
	}

	v.Items = make([]Item, 0, len(list))
	for _, r := range list {
		key := KeyOf(r)
		it := Item{Report: r, GroupKey: key, GroupSize: counts[key]}
		if s.ShowDuplicates {
			if it.GroupSize > 1 {
				it.Badge = fmt.Sprintf("%d in group", it.GroupSize)
			}
		} else if similar := it.GroupSize - 1; similar > 0 {
			it.SimilarCount = similar
			it.SimilarLabel = SimilarLabel(similar)
		}
		v.Items = append(v.Items, it)
	}
	return v
}

// SimilarLabel is the drill-down affordance text for n other reports.
func SimilarLabel(n int) string {
	if n == 1 {
		return "View 1 similar report"
	}
	return fmt.Sprintf("View %d similar reports", n)
}
