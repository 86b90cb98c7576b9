// Package backend implements the site-automation engine against the
// library's seat-reservation site: session management behind an image
// challenge, availability parsing with an adaptive cache, the two-phase
// booking transaction, and reservation listing and cancellation.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/config"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/parser"
	"github.com/Craeckie/KIT-Sitzplatzreservervierung/store"
)

// bookingBaseSeconds is the seconds-of-day offset of the first daytime slot
// in the site's booking form contract; later slots follow in one-minute
// steps. The offsets are form tokens, not wall-clock times.
const bookingBaseSeconds = 43200

// Backend holds the per-process context for talking to the reservation
// site. Site metadata (areas, daytime slots) is discovered at construction
// and immutable afterwards.
type Backend struct {
	cfg     *config.Config
	store   store.Store
	base    *url.URL
	metrics *Metrics

	follow   *http.Client
	noFollow *http.Client

	areas    []models.Area
	areaName map[string]string
	daytimes []models.Daytime

	now func() time.Time
}

// New builds a Backend and discovers site metadata, from the store when a
// fresh copy is cached there, otherwise from the site itself.
func New(ctx context.Context, cfg *config.Config, st store.Store) (*Backend, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	proxy := http.ProxyFromEnvironment
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		proxy = http.ProxyURL(proxyURL)
	}

	b := &Backend{
		cfg:     cfg,
		store:   st,
		base:    base,
		metrics: NewMetrics(),
		now:     time.Now,
	}
	b.follow, b.noFollow = newClients(proxy, cfg.Timeout)

	if err := b.loadMetadata(ctx); err != nil {
		return nil, fmt.Errorf("discover site metadata: %w", err)
	}
	return b, nil
}

// Metrics exposes the client's Prometheus registry.
func (b *Backend) Metrics() *Metrics {
	return b.metrics
}

// Areas returns the discovered areas in site order.
func (b *Backend) Areas() []models.Area {
	out := make([]models.Area, len(b.areas))
	copy(out, b.areas)
	return out
}

// AreaName resolves an area id to its display name.
func (b *Backend) AreaName(id string) string {
	if name, ok := b.areaName[id]; ok {
		return name
	}
	return id
}

// Daytimes returns the discovered daytime slots in site order.
func (b *Backend) Daytimes() []models.Daytime {
	out := make([]models.Daytime, len(b.daytimes))
	copy(out, b.daytimes)
	return out
}

func (b *Backend) loadMetadata(ctx context.Context) error {
	if b.readCachedMetadata(ctx) {
		return nil
	}

	front, err := b.get(ctx, "", nil, true)
	if err != nil {
		return err
	}
	if front.status != http.StatusOK {
		return TransportError{Err: fmt.Errorf("front page status %d", front.status)}
	}
	areas, err := parser.ParseAreas(front.body)
	if err != nil {
		return err
	}

	day, err := b.get(ctx, dayURL(b.now(), areas[0].ID), nil, true)
	if err != nil {
		return err
	}
	if day.status != http.StatusOK {
		return TransportError{Err: fmt.Errorf("day view status %d", day.status)}
	}
	_, rowLabels, err := parser.ParseDayGrid(day.body, areas[0].ID)
	if err != nil {
		return err
	}
	daytimes := make([]models.Daytime, len(rowLabels))
	for i, label := range rowLabels {
		daytimes[i] = models.Daytime{
			Index:   i,
			Name:    label,
			Seconds: bookingBaseSeconds + 60*i,
		}
	}

	b.setMetadata(areas, daytimes)
	b.writeCachedMetadata(ctx)
	slog.Info("site metadata discovered",
		slog.Int("areas", len(areas)),
		slog.Int("daytimes", len(daytimes)),
	)
	return nil
}

func (b *Backend) readCachedMetadata(ctx context.Context) bool {
	rawAreas, err := b.store.Get(ctx, store.MetaKey("areas"))
	if err != nil {
		return false
	}
	rawDaytimes, err := b.store.Get(ctx, store.MetaKey("daytimes"))
	if err != nil {
		return false
	}

	var areas []models.Area
	var daytimes []models.Daytime
	if json.Unmarshal(rawAreas, &areas) != nil || json.Unmarshal(rawDaytimes, &daytimes) != nil {
		return false
	}
	if len(areas) == 0 || len(daytimes) == 0 {
		return false
	}
	b.setMetadata(areas, daytimes)
	return true
}

func (b *Backend) writeCachedMetadata(ctx context.Context) {
	rawAreas, err := json.Marshal(b.areas)
	if err != nil {
		return
	}
	rawDaytimes, err := json.Marshal(b.daytimes)
	if err != nil {
		return
	}
	if err := b.store.Set(ctx, store.MetaKey("areas"), rawAreas, metadataTTL); err != nil {
		slog.Error("cache area metadata", slog.Any("error", err))
	}
	if err := b.store.Set(ctx, store.MetaKey("daytimes"), rawDaytimes, metadataTTL); err != nil {
		slog.Error("cache daytime metadata", slog.Any("error", err))
	}
}

func (b *Backend) setMetadata(areas []models.Area, daytimes []models.Daytime) {
	b.areas = areas
	b.daytimes = daytimes
	b.areaName = make(map[string]string, len(areas))
	for _, area := range areas {
		b.areaName[area.ID] = area.Name
	}
}

// dayURL builds the day-view path for one (date, area) pair.
func dayURL(date time.Time, area string) string {
	return fmt.Sprintf("day.php?year=%d&month=%d&day=%d&area=%s",
		date.Year(), int(date.Month()), date.Day(), area)
}
