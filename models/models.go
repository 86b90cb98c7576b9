// Package models defines data structures shared across the reservation client.
package models

import "time"

// SeatState describes one cell of the availability grid. The numeric values
// are part of the cache encoding and must stay stable.
type SeatState int

const (
	StateFree     SeatState = 1
	StateOccupied SeatState = 2
	StateMine     SeatState = 3
	// StateUnknown marks cells whose class markers matched no known rule.
	// It is never folded into free or occupied.
	StateUnknown SeatState = 4
)

func (s SeatState) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateOccupied:
		return "occupied"
	case StateMine:
		return "mine"
	default:
		return "unknown"
	}
}

// Area is a room or zone grouping multiple seats.
type Area struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Daytime is one of the day's fixed booking periods, in site order.
// Seconds is the seconds-of-day offset used in booking payloads.
type Daytime struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Seconds int    `json:"seconds"`
}

// SeatEntry is one bookable position within an area for one daytime slot.
// Occupier is set exactly when State is occupied or unknown. EntryID is only
// present for cells the site exposes it on (owned bookings) and is the handle
// for cancellation.
type SeatEntry struct {
	Area     string    `json:"area"`
	Seat     string    `json:"seat"`
	RoomID   string    `json:"room_id"`
	State    SeatState `json:"state"`
	Occupier string    `json:"occupier,omitempty"`
	EntryID  string    `json:"entry_id,omitempty"`
}

// DayGrid maps daytime index to the ordered seats of one (date, area) view.
type DayGrid struct {
	Slots map[int][]SeatEntry `json:"slots"`

	// Cached is set on grids reconstructed from the store rather than
	// parsed live. It is not part of the cache encoding.
	Cached bool `json:"-"`
}

// Booking is a read-only projection produced by the search layer.
type Booking struct {
	Date     time.Time `json:"date"`
	Daytime  int       `json:"daytime"`
	Seat     SeatEntry `json:"seat"`
	AreaName string    `json:"area_name"`
}

// Reservation is an existing booking as reported by the site's report
// endpoint. Daytime is the leading slot label when the report carries one.
type Reservation struct {
	ID      string `json:"id"`
	Room    string `json:"room"`
	Seat    string `json:"seat"`
	Date    string `json:"date"`
	Daytime string `json:"daytime,omitempty"`
}

// Credentials is a stored library account. User holds the canonical account
// number once a login has revealed it.
type Credentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Cookie is one session cookie in store encoding.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Path   string `json:"path,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// CookieJar is an immutable session snapshot. Transport calls take a jar and
// hand back a merged copy; nothing mutates a jar in place.
type CookieJar []Cookie

// Merge returns a new jar with cookies from other overriding same-named
// cookies in j, preserving first-seen order.
func (j CookieJar) Merge(other CookieJar) CookieJar {
	merged := make(CookieJar, 0, len(j)+len(other))
	index := make(map[string]int, len(j))
	for _, c := range j {
		index[c.Name] = len(merged)
		merged = append(merged, c)
	}
	for _, c := range other {
		if i, ok := index[c.Name]; ok {
			merged[i] = c
			continue
		}
		index[c.Name] = len(merged)
		merged = append(merged, c)
	}
	return merged
}
