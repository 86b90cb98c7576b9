// Package query builds user-facing views on top of the availability grids:
// seat searches across days and areas, grouped booking lists, and occupancy
// statistics per campus.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
)

// AvailabilitySource is the slice of the reservation client the queries
// need: site metadata and day grids.
type AvailabilitySource interface {
	Areas() []models.Area
	AreaName(id string) string
	Daytimes() []models.Daytime
	RoomEntries(ctx context.Context, date time.Time, area string, jar models.CookieJar) (models.DayGrid, error)
}

var weekdayAbbrev = [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"}

// FormatDay renders a date the way the bot prints it, "Mo, 31.08.".
func FormatDay(date time.Time) string {
	return fmt.Sprintf("%s, %02d.%02d.", weekdayAbbrev[int(date.Weekday())], date.Day(), int(date.Month()))
}

// SearchBookings scans dayCount days starting at start and collects every
// seat in the wanted state. nil daytimes means all slots, nil areas means
// all discovered areas. Areas that cannot be fetched are skipped; the scan
// fails only when every area of every day failed.
func SearchBookings(ctx context.Context, src AvailabilitySource, start time.Time, dayCount int, state models.SeatState, daytimes []int, areas []models.Area, jar models.CookieJar) ([]models.Booking, error) {
	if areas == nil {
		areas = src.Areas()
	}
	if daytimes == nil {
		for _, slot := range src.Daytimes() {
			daytimes = append(daytimes, slot.Index)
		}
	}
	slotNames := src.Daytimes()

	var bookings []models.Booking
	var firstErr error
	fetched := false
	for dayOffset := 0; dayOffset < dayCount; dayOffset++ {
		date := start.AddDate(0, 0, dayOffset)
		for _, area := range areas {
			grid, err := src.RoomEntries(ctx, date, area.ID, jar)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			fetched = true
			for _, slot := range daytimes {
				if slot < 0 || slot >= len(slotNames) {
					continue
				}
				for _, entry := range grid.Slots[slot] {
					if entry.State != state {
						continue
					}
					bookings = append(bookings, models.Booking{
						Date:     date,
						Daytime:  slot,
						Seat:     entry,
						AreaName: src.AreaName(area.ID),
					})
				}
			}
		}
	}
	if !fetched && firstErr != nil {
		return nil, firstErr
	}
	return bookings, nil
}

// Group is a set of seats sharing one date and daytime slot.
type Group struct {
	Date    string
	Daytime string
	Seats   []string
}

// GroupBookings collapses a booking list into per-slot groups, preserving
// the order of first appearance. Each seat is rendered as "area seat".
func GroupBookings(bookings []models.Booking, daytimes []models.Daytime) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, booking := range bookings {
		date := FormatDay(booking.Date)
		daytime := ""
		if booking.Daytime >= 0 && booking.Daytime < len(daytimes) {
			daytime = titleCase(daytimes[booking.Daytime].Name)
		}

		key := date + "\x00" + daytime
		seat := strings.TrimSpace(booking.AreaName + " " + booking.Seat.Seat)
		if at, ok := index[key]; ok {
			groups[at].Seats = append(groups[at].Seats, seat)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, Group{
			Date:    date,
			Daytime: daytime,
			Seats:   []string{seat},
		})
	}
	return groups
}

func titleCase(text string) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
