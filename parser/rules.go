// Package parser extracts structured data from the reservation site's
// server-rendered pages. All functions are pure: bytes in, structures out.
package parser

import (
	"fmt"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/models"
)

// StructureError reports a missing HTML landmark. The page layout has
// changed or an error page came back; results carrying this error must not
// be cached.
type StructureError struct {
	Landmark string
}

func (e StructureError) Error() string {
	return fmt.Sprintf("page structure: %s not found", e.Landmark)
}

// stateRules maps cell class markers to seat states. Order is the
// precedence: the first marker present in the class set wins, everything
// else is unknown.
var stateRules = []struct {
	marker string
	state  models.SeatState
}{
	{"new", models.StateFree},
	{"private", models.StateOccupied},
	{"writable", models.StateMine},
}

// occupierRules maps cell class markers to occupier categories, again in
// precedence order.
var occupierRules = []struct {
	marker string
	label  string
}{
	{"I", "Interne Buchungen"},
	{"K", "KIT Studenten"},
	{"D", "DHBW Studenten"},
	{"H", "HsKa Studenten"},
	{"G", "Private Buchungen"},
	{"P", "Personal"},
}

// OccupierSpecial is reported for occupied cells matching no occupier rule.
const OccupierSpecial = "special"

// StateFromClasses resolves a cell's class set to a seat state.
func StateFromClasses(classes []string) models.SeatState {
	set := classSet(classes)
	for _, rule := range stateRules {
		if set[rule.marker] {
			return rule.state
		}
	}
	return models.StateUnknown
}

// OccupierFromClasses resolves the occupier category for a cell. Free and
// mine cells never have one.
func OccupierFromClasses(state models.SeatState, classes []string) string {
	if state == models.StateFree || state == models.StateMine {
		return ""
	}
	set := classSet(classes)
	for _, rule := range occupierRules {
		if set[rule.marker] {
			return rule.label
		}
	}
	return OccupierSpecial
}

func classSet(classes []string) map[string]bool {
	set := make(map[string]bool, len(classes))
	for _, class := range classes {
		set[class] = true
	}
	return set
}
