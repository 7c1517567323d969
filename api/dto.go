/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for the wizard and sick-day API. These types
  decouple the internal domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import "github.com/warp/sickday-helper/sickday"

// =============================================================================
// STATUS / WIZARD
// =============================================================================

// StatusDTO summarizes setup and sick-day state for the wizard landing page.
type StatusDTO struct {
	WizardCompleted   bool   `json:"wizard_completed"`
	WizardCompletedAt string `json:"wizard_completed_at,omitempty"`
	MappingExists     bool   `json:"mapping_exists"`
	HasActiveSickDays bool   `json:"has_active_sick_days"`
	MappingCount      int    `json:"mapping_count"`
}

// WizardCompleteRequest carries the mapping the user confirmed in the wizard.
type WizardCompleteRequest struct {
	Mapping sickday.Mapping `json:"mapping"`
}

// =============================================================================
// SICK DAYS
// =============================================================================

// SickDayDTO represents one active sick day in API responses.
type SickDayDTO struct {
	PersonID            string   `json:"person_id"`
	PersonName          string   `json:"person_name"`
	EndDate             string   `json:"end_date"`
	DisabledAutomations []string `json:"disabled_automations"`
}

// DurationRequest carries a duration spec: a day count ("days") or an
// explicit ISO end date ("date"). DurationValue arrives as a number or a
// string depending on the client, hence the loose typing.
type DurationRequest struct {
	PersonID      string `json:"person_id"`
	DurationType  string `json:"duration_type"`
	DurationValue any    `json:"duration_value"`
}

// CancelRequest identifies the sick day to cancel.
type CancelRequest struct {
	PersonID string `json:"person_id"`
}

// SickDayResponse acknowledges an activate/extend with the computed end date.
type SickDayResponse struct {
	OK      bool   `json:"ok"`
	EndDate string `json:"end_date,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
