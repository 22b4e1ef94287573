package analysis

import (
	"sort"
	"strings"

	"stock-watch/src/analysis/core"
	"stock-watch/src/models"
)

// -----------------------------------------------------------------------------

// AggregateGroups builds one aggregate per group from the snapshots that were
// fetched successfully. Members without a snapshot are ignored; a group with
// no data reports zero change and "0.00" volume.
func AggregateGroups(groups map[string][]string, snapshots map[string]*models.MSnapshot) []models.MGroupAggregate {
	out := make([]models.MGroupAggregate, 0, len(groups))

	for name, members := range groups {
		var changes []float64
		var volumes []float64

		for _, symbol := range members {
			snap, ok := snapshots[strings.ToUpper(symbol)]
			if !ok || snap == nil {
				continue
			}
			changes = append(changes, snap.PercentChange)
			volumes = append(volumes, core.ParseLargeNumber(snap.Volume))
		}

		out = append(out, models.MGroupAggregate{
			Name:             name,
			Members:          len(members),
			Counted:          len(changes),
			AvgPercentChange: core.Round2(core.Mean(changes)),
			TotalVolume:      core.FormatLargeNumber(core.Sum(volumes)),
		})
	}

	// map iteration order is random; name order is the stable baseline
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// -----------------------------------------------------------------------------

// SortGroups orders aggregates by percent_change/change (average change,
// descending), volume (total volume, descending), or name otherwise.
func SortGroups(groups []models.MGroupAggregate, sortBy string) {
	var less func(a, b models.MGroupAggregate) bool

	switch sortBy {
	case SortPercentChange, SortChange:
		less = func(a, b models.MGroupAggregate) bool { return a.AvgPercentChange > b.AvgPercentChange }
	case SortVolume:
		less = func(a, b models.MGroupAggregate) bool {
			return core.ParseLargeNumber(a.TotalVolume) > core.ParseLargeNumber(b.TotalVolume)
		}
	default:
		less = func(a, b models.MGroupAggregate) bool { return a.Name < b.Name }
	}

	sort.SliceStable(groups, func(i, j int) bool { return less(groups[i], groups[j]) })
}

// -----------------------------------------------------------------------------

// GroupMembers returns the upper-cased, de-duplicated union of all members.
func GroupMembers(groups map[string][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, members := range groups {
		for _, m := range members {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
