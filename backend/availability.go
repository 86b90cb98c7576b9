package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/parser"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/store"
)

// RoomEntries returns the seat grid for one (date, area) pair. Anonymous
// requests (nil jar) are served from the cache when a fresh copy exists;
// authenticated requests always hit the site, because the grid then carries
// per-user writable markers that must never leak into the shared cache.
func (b *Backend) RoomEntries(ctx context.Context, date time.Time, area string, jar models.CookieJar) (models.DayGrid, error) {
	key := store.RoomEntriesKey(date, area)
	if jar != nil {
		b.metrics.IncCache("bypass")
	} else {
		raw, err := b.store.Get(ctx, key)
		if err == nil {
			var grid models.DayGrid
			if err := json.Unmarshal(raw, &grid); err == nil {
				b.metrics.IncCache("hit")
				grid.Cached = true
				return grid, nil
			}
			slog.Warn("drop undecodable cached grid", slog.String("key", key))
		}
		b.metrics.IncCache("miss")
	}

	res, err := b.get(ctx, dayURL(date, area), jar, true)
	if err != nil {
		return models.DayGrid{}, err
	}
	if res.status != http.StatusOK {
		classified := TransportError{Err: fmt.Errorf("day view status %d", res.status)}
		b.metrics.IncError(errorTypeLabel(classified))
		return models.DayGrid{}, classified
	}

	grid, _, err := parser.ParseDayGrid(res.body, area)
	if err != nil {
		b.metrics.IncError(errorTypeLabel(err))
		return models.DayGrid{}, err
	}

	if jar == nil {
		raw, err := json.Marshal(grid)
		if err == nil {
			ttl := cacheTTL(date, b.now(), b.cfg.ReleaseOffsets)
			if err := b.store.Set(ctx, key, raw, ttl); err != nil {
				slog.Error("cache day grid", slog.String("key", key), slog.Any("error", err))
			}
		}
	}
	return grid, nil
}

// DayEntries fetches the grids of several areas for one date. A nil area
// list means all discovered areas. Areas whose page cannot be fetched or
// parsed are skipped with a log line; the first error is reported alongside
// whatever was collected.
func (b *Backend) DayEntries(ctx context.Context, date time.Time, areas []models.Area, jar models.CookieJar) (map[string]models.DayGrid, error) {
	if areas == nil {
		areas = b.areas
	}

	grids := make(map[string]models.DayGrid, len(areas))
	var firstErr error
	for _, area := range areas {
		grid, err := b.RoomEntries(ctx, date, area.ID, jar)
		if err != nil {
			slog.Warn("skip area",
				slog.String("area", area.ID),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		grids[area.ID] = grid
	}
	return grids, firstErr
}

// OpeningTimes returns the opening-hours notice from the site's front page.
func (b *Backend) OpeningTimes(ctx context.Context) (string, error) {
	res, err := b.get(ctx, "", nil, true)
	if err != nil {
		return "", err
	}
	if res.status != http.StatusOK {
		return "", TransportError{Err: fmt.Errorf("front page status %d", res.status)}
	}
	return parser.ParseOpeningTimes(res.body)
}
