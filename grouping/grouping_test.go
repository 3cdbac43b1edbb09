package grouping_test

import (
	"testing"
	"time"

	"report-hub/grouping"
	"report-hub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func report(building, concern string, age time.Duration) models.Report {
	return models.Report{
		ID:          primitive.NewObjectID(),
		Heading:     building + " " + concern,
		Description: "details",
		Building:    building,
		Concern:     concern,
		Status:      models.StatusPending,
		CreatedAt:   t0.Add(-age),
	}
}

// sample is newest-first, as the listing endpoint returns it.
func sample() []models.Report {
	return []models.Report{
		report("Library", "Plumbing", 0),
		report("Canteen", "Electrical", time.Minute),
		report("Library", "Plumbing", 2*time.Minute),
		report("Gymnasium", "Safety", 3*time.Minute),
		report("Library", "Electrical", 4*time.Minute),
		report("Library", "Plumbing", 5*time.Minute),
	}
}

func TestCountGroups_MatchesMembership(t *testing.T) {
	reports := sample()
	counts := grouping.CountGroups(reports)

	require.Len(t, counts, 4)
	for key, n := range counts {
		assert.Len(t, grouping.Members(reports, key), n, key.String())
	}
	assert.Equal(t, 3, counts[grouping.GroupKey{Building: "Library", Concern: "Plumbing"}])
}

func TestCountGroups_DelimiterDoesNotCollide(t *testing.T) {
	reports := []models.Report{
		report("A-B", "C", 0),
		report("A", "B-C", time.Minute),
	}
	counts := grouping.CountGroups(reports)

	assert.Len(t, counts, 2)
	assert.Equal(t, "A-B-C", grouping.KeyOf(reports[0]).String())
	assert.Equal(t, "A-B-C", grouping.KeyOf(reports[1]).String())
	assert.Len(t, grouping.Representatives(reports), 2)
}

func TestRepresentatives_OnePerGroupNewestKept(t *testing.T) {
	reports := sample()
	reps := grouping.Representatives(reports)

	require.Len(t, reps, 4)
	seen := map[grouping.GroupKey]bool{}
	for _, r := range reps {
		k := grouping.KeyOf(r)
		assert.False(t, seen[k], "duplicate representative for %s", k)
		seen[k] = true
	}
	assert.Equal(t, reports[0].ID, reps[0].ID)
	assert.Equal(t, reps, grouping.Representatives(reports))
	assert.Equal(t, reps, grouping.Representatives(reps))
}

func TestRepresentatives_DoesNotModifyInput(t *testing.T) {
	reports := sample()
	before := append([]models.Report(nil), reports...)
	grouping.Representatives(reports)
	grouping.SortByGroup(reports)
	assert.Equal(t, before, reports)
}

func TestFilter_IsNarrowing(t *testing.T) {
	reports := sample()
	all := grouping.Filter(reports, grouping.AllBuildings, grouping.AllConcerns)
	require.Equal(t, reports, all)

	cases := []struct{ building, concern string }{
		{"Library", grouping.AllConcerns},
		{grouping.AllBuildings, "Plumbing"},
		{"Library", "Electrical"},
		{"Nowhere", "Plumbing"},
		{"", ""},
	}
	for _, tc := range cases {
		got := grouping.Filter(reports, tc.building, tc.concern)
		for _, r := range got {
			assert.Contains(t, all, r)
			if tc.building != "" && tc.building != grouping.AllBuildings {
				assert.Equal(t, tc.building, r.Building)
			}
			if tc.concern != "" && tc.concern != grouping.AllConcerns {
				assert.Equal(t, tc.concern, r.Concern)
			}
		}
	}
	assert.Empty(t, grouping.Filter(reports, "Nowhere", grouping.AllConcerns))
	assert.Len(t, grouping.Filter(reports, "Library", grouping.AllConcerns), 4)
}

func TestSortByGroup_StableByBuildingThenConcern(t *testing.T) {
	reports := sample()
	sorted := grouping.SortByGroup(reports)

	require.Len(t, sorted, len(reports))
	for i := 1; i < len(sorted); i++ {
		assert.False(t, grouping.KeyOf(sorted[i]).Less(grouping.KeyOf(sorted[i-1])))
	}
	assert.Equal(t, "Canteen", sorted[0].Building)
	// the three Library/Plumbing reports stay newest-first
	lp := grouping.Members(sorted, grouping.GroupKey{Building: "Library", Concern: "Plumbing"})
	assert.Equal(t, []primitive.ObjectID{reports[0].ID, reports[2].ID, reports[5].ID},
		[]primitive.ObjectID{lp[0].ID, lp[1].ID, lp[2].ID})
}

func TestOptions(t *testing.T) {
	reports := sample()
	assert.Equal(t, []string{grouping.AllBuildings, "Library", "Canteen", "Gymnasium"}, grouping.BuildingOptions(reports))
	assert.Equal(t, []string{grouping.AllConcerns, "Plumbing", "Electrical", "Safety"}, grouping.ConcernOptions(reports))
}

func TestOptions_EmptyInput(t *testing.T) {
	assert.Equal(t, []string{grouping.AllBuildings}, grouping.BuildingOptions(nil))
	assert.Equal(t, []string{grouping.AllConcerns}, grouping.ConcernOptions(nil))
}

func TestOptions_EmptyValuesOnlyUnderAll(t *testing.T) {
	reports := []models.Report{
		{ID: primitive.NewObjectID(), Building: "", Concern: "Plumbing"},
		{ID: primitive.NewObjectID(), Building: "Library", Concern: ""},
	}
	assert.Equal(t, []string{grouping.AllBuildings, "Library"}, grouping.BuildingOptions(reports))
	assert.Equal(t, []string{grouping.AllConcerns, "Plumbing"}, grouping.ConcernOptions(reports))

	assert.Len(t, grouping.Filter(reports, grouping.AllBuildings, grouping.AllConcerns), 2)
	assert.Empty(t, grouping.Filter(reports, "Library", "Plumbing"))

	members := grouping.Members(reports, grouping.GroupKey{Building: "", Concern: "Plumbing"})
	require.Len(t, members, 1)
	assert.Equal(t, reports[0].ID, members[0].ID)
}
