package query

import (
	"context"
	"sort"
	"time"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
)

// campusByArea maps the site's area ids onto library locations.
var campusByArea = map[string]string{
	"20": "KIT Süd", "19": "KIT Süd", "21": "KIT Süd", "42": "KIT Süd",
	"34": "KIT Süd", "35": "KIT Süd", "44": "KIT Süd", "40": "KIT Süd",
	"25": "KIT Süd", "24": "KIT Süd", "37": "KIT Süd",
	"26": "KIT Nord",
	"32": "DHBW",
	"28": "HsKa", "29": "HsKa",
}

const campusUnknown = "Unbekannt"

// CampusStats aggregates one campus' seats for a day: how many exist, how
// many are free, and who holds the occupied ones.
type CampusStats struct {
	Campus  string
	Total   int
	Free    int
	ByGroup map[string]int
}

// Campus resolves an area id to its campus name.
func Campus(areaID string) string {
	if campus, ok := campusByArea[areaID]; ok {
		return campus
	}
	return campusUnknown
}

// OccupancyStats sums the day's occupancy over all areas, grouped by
// campus. The result is sorted by campus name so messages render stably.
func OccupancyStats(ctx context.Context, src AvailabilitySource, date time.Time) ([]CampusStats, error) {
	byCampus := make(map[string]*CampusStats)

	scanned := false
	var firstErr error
	for _, area := range src.Areas() {
		grid, err := src.RoomEntries(ctx, date, area.ID, nil)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		scanned = true

		campus := Campus(area.ID)
		stats, ok := byCampus[campus]
		if !ok {
			stats = &CampusStats{Campus: campus, ByGroup: make(map[string]int)}
			byCampus[campus] = stats
		}
		for _, entries := range grid.Slots {
			for _, entry := range entries {
				stats.Total++
				switch entry.State {
				case models.StateFree:
					stats.Free++
				case models.StateOccupied, models.StateMine:
					if entry.Occupier != "" {
						stats.ByGroup[entry.Occupier]++
					}
				}
			}
		}
	}
	if !scanned && firstErr != nil {
		return nil, firstErr
	}

	out := make([]CampusStats, 0, len(byCampus))
	for _, stats := range byCampus {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Campus < out[j].Campus })
	return out, nil
}
