/*
Package sickday provides the core sick-day reconciliation engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking sick-day
  periods per person and suspending/resuming the home-automation routines
  mapped to them. Multiple people can be sick at once and can share routines;
  a routine stays off while any active sick day owns it, and comes back on
  the moment nobody needs it off anymore.

KEY CONCEPTS IN THIS FILE (types.go):
  - EntityID / PersonID / AutomationID: Type-safe identifiers
  - SickDayRecord: One person's active sick day (end date + owned routines)
  - ActiveState: All active sick days, persisted as one document
  - Mapping: Person-to-automation configuration (read-only for the engine)

DESIGN PRINCIPLES:
  1. Ownership: A record only ever tracks the automations THIS engine turned
     off for it. Routines that were already off are never claimed.
  2. Ref-counting: "Still needed" is a pure function over ActiveState, so the
     shared-automation logic is testable without any platform I/O.
  3. Type Safety: Strong typing for IDs prevents mixing person entities,
     automation entities, and display names.

SEE ALSO:
  - engine.go: Activate/Deactivate/Extend/CheckExpirations
  - store.go: Persistence interfaces
  - ports.go: Automation control port (platform abstraction)
*/
package sickday

import "sort"

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EntityID is a raw platform entity identifier (e.g. "automation.kid_1_morning",
// "input_boolean.sick_day_active"). Person and automation IDs narrow it.
type EntityID string

// PersonID identifies a person entity (e.g. "person.kid_1").
type PersonID string

// AutomationID identifies an automation entity (e.g. "automation.kid_1_morning").
type AutomationID string

func (p PersonID) Entity() EntityID     { return EntityID(p) }
func (a AutomationID) Entity() EntityID { return EntityID(a) }

// =============================================================================
// WELL-KNOWN ENTITIES AND NOTIFICATION CHANNELS
// =============================================================================

// EntityActive is the global "a sick day is active" indicator toggle.
const EntityActive EntityID = "input_boolean.sick_day_active"

// Dashboard helper entities installed by the package bundle. The driver
// samples the toggles; onboarding and the wizard populate the dropdown.
const (
	EntityPersonSelect  EntityID = "input_select.sick_day_person"
	EntityDurationType  EntityID = "input_select.sick_day_duration_type"
	EntityNumDays       EntityID = "input_number.sick_day_num_days"
	EntityEndDate       EntityID = "input_datetime.sick_day_end_date"
	EntitySubmit        EntityID = "input_boolean.sick_day_submit"
	EntityCancel        EntityID = "input_boolean.sick_day_cancel"
	EntityExtend        EntityID = "input_boolean.sick_day_extend"
	EntitySetupComplete EntityID = "input_boolean.sick_day_setup_complete"
)

// Notification IDs. Notifications are upserted by ID, so re-sending replaces
// the previous one instead of piling up.
const (
	NotificationConfirmation = "sick_day_confirmation"
	NotificationExpiration   = "sick_day_expiration"
	NotificationOnboarding   = "sick_day_onboarding"
)

// Automation on/off states as reported by the platform. Anything else
// ("unknown", "unavailable", ...) is treated as neither.
const (
	StateOn  = "on"
	StateOff = "off"
)

// =============================================================================
// MAPPING - Person-to-automation configuration
// =============================================================================

// Mapping associates each person with the automations to suspend during their
// sick days. It is created by the wizard (or edited by hand) and read-only
// from the engine's perspective. List order is preserved; values may be empty.
type Mapping map[PersonID][]AutomationID

// People returns the mapped person IDs in sorted order.
func (m Mapping) People() []PersonID {
	people := make([]PersonID, 0, len(m))
	for pid := range m {
		people = append(people, pid)
	}
	sort.Slice(people, func(i, j int) bool { return people[i] < people[j] })
	return people
}

// =============================================================================
// SICK DAY RECORD - One person's active sick day
// =============================================================================

// SickDayRecord is the persisted state for one active sick day.
//
// DisabledAutomations holds ONLY the automations this engine actually turned
// off when the record was created. Automations that were already off (shared
// with another sick day, or off for unrelated reasons) are excluded, so a
// later cancel never force-enables something this record didn't disable.
type SickDayRecord struct {
	// EndDate is the last covered calendar date, zero-padded ISO (YYYY-MM-DD).
	// Zero-padded ISO dates compare correctly as plain strings.
	EndDate string `json:"end_date"`

	// DisabledAutomations are the automations owned by this record.
	DisabledAutomations []AutomationID `json:"disabled_automations"`
}

// Expired reports whether the record's end date has been reached.
func (r SickDayRecord) Expired(today string) bool {
	return r.EndDate <= today
}

// =============================================================================
// ACTIVE STATE - All active sick days, persisted as one document
// =============================================================================

// ActiveState is the full set of active sick days keyed by person. It is
// loaded and saved as one unit on every mutation; a person appears at most
// once. The ref-count surface is the union of DisabledAutomations across all
// records: an automation is "needed off" iff at least one record owns it.
type ActiveState map[PersonID]SickDayRecord

// CurrentlyDisabled returns the set of automations owned by any active record.
func (s ActiveState) CurrentlyDisabled() map[AutomationID]struct{} {
	disabled := make(map[AutomationID]struct{})
	for _, rec := range s {
		for _, auto := range rec.DisabledAutomations {
			disabled[auto] = struct{}{}
		}
	}
	return disabled
}

// DisabledBy returns automation -> owning person for every record except the
// excluded one. Used during activation to tell "off because another sick day
// owns it" apart from "off for reasons we don't track".
func (s ActiveState) DisabledBy(excluding PersonID) map[AutomationID]PersonID {
	owners := make(map[AutomationID]PersonID)
	for pid, rec := range s {
		if pid == excluding {
			continue
		}
		for _, auto := range rec.DisabledAutomations {
			owners[auto] = pid
		}
	}
	return owners
}

// Expired returns the people whose sick day has ended as of today, in sorted
// order so notifications and re-enable passes are deterministic.
func (s ActiveState) Expired(today string) []PersonID {
	var expired []PersonID
	for pid, rec := range s {
		if rec.Expired(today) {
			expired = append(expired, pid)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i] < expired[j] })
	return expired
}

// People returns the active person IDs in sorted order.
func (s ActiveState) People() []PersonID {
	people := make([]PersonID, 0, len(s))
	for pid := range s {
		people = append(people, pid)
	}
	sort.Slice(people, func(i, j int) bool { return people[i] < people[j] })
	return people
}
