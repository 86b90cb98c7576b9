package backend

import "time"

const (
	// defaultGridTTL applies to day grids for future dates and quiet hours.
	defaultGridTTL = 30 * time.Minute
	// todayGridTTL applies to today's grid during the contested daytime.
	todayGridTTL = 5 * time.Minute
	// releaseGridTTL applies right after a booking-release offset, when
	// seats churn within seconds.
	releaseGridTTL = 20 * time.Second
	// releaseWindow is how long after each release offset the short TTL holds.
	releaseWindow = 5 * time.Minute

	// todayCutoffHour ends the contested daytime; after it, today's grid
	// barely changes until the late-evening release.
	todayCutoffHour = 18

	metadataTTL = 7 * 24 * time.Hour
)

// cacheTTL picks the cache lifetime for a day grid requested for the given
// date. Grids for future dates are stable and get the long lifetime. Grids
// for today expire faster, and fastest inside the release windows where new
// slots open up and fill within moments.
func cacheTTL(requested, now time.Time, releases []int) time.Duration {
	ry, rm, rd := requested.Date()
	ny, nm, nd := now.Date()
	if ry != ny || rm != nm || rd != nd {
		return defaultGridTTL
	}

	secondOfDay := now.Hour()*3600 + now.Minute()*60 + now.Second()
	window := int(releaseWindow / time.Second)
	for _, release := range releases {
		if secondOfDay >= release && secondOfDay < release+window {
			return releaseGridTTL
		}
	}

	if now.Hour() < todayCutoffHour || now.Hour() >= 23 {
		return todayGridTTL
	}
	return defaultGridTTL
}
