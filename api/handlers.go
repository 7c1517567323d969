/*
handlers.go - HTTP API handlers for the sick day helper

PURPOSE:
  Exposes the wizard and the sick-day engine via REST. Handles HTTP
  request/response and JSON serialization, delegating all state mutation to
  the engine; this layer never writes the sick-day document itself.

ENDPOINTS:
  Wizard:
    GET    /api/status              Setup + sick-day status summary
    GET    /api/discovery           People/automations + suggested mapping
    GET    /api/mapping             Current person-to-automation mapping
    POST   /api/mapping             Replace the mapping
    POST   /api/wizard/complete     Save mapping, mark setup done
    POST   /api/wizard/reset        Re-arm the wizard

  Sick days:
    GET    /api/sick-days           List active sick days
    POST   /api/sick-days/activate  Start a sick day
    POST   /api/sick-days/cancel    Cancel a sick day
    POST   /api/sick-days/extend    Move a sick day's end date

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unresolved person, nothing active to cancel
  - 500: Store or platform failures

SECURITY NOTE:
  No authentication; the server is reachable only through the supervisor's
  authenticated ingress.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/warp/sickday-helper/discovery"
	"github.com/warp/sickday-helper/sickday"
)

// Platform is the slice of the HA client the HTTP surface needs beyond the
// engine: discovery, dropdown updates, and notification dismissal.
type Platform interface {
	discovery.Platform
	FriendlyName(ctx context.Context, id sickday.EntityID) (string, error)
	DismissNotification(ctx context.Context, notificationID string) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine   *sickday.Engine
	Mapping  sickday.MappingStore
	Wizard   sickday.WizardStore
	Platform Platform

	// Now is the clock used for duration computation; overridable in tests.
	Now func() time.Time
}

// NewHandler creates a handler over the engine, stores, and platform client.
func NewHandler(engine *sickday.Engine, mapping sickday.MappingStore, wizard sickday.WizardStore, platform Platform) *Handler {
	return &Handler{
		Engine:   engine,
		Mapping:  mapping,
		Wizard:   wizard,
		Platform: platform,
		Now:      time.Now,
	}
}

// =============================================================================
// STATUS / DISCOVERY
// =============================================================================

// GetStatus returns the setup and sick-day status summary.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.Mapping.LoadMapping()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load mapping", err)
		return
	}
	hasActive, err := h.Engine.HasActive()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load sick-day state", err)
		return
	}

	writeJSON(w, http.StatusOK, StatusDTO{
		WizardCompleted:   h.Wizard.WizardCompleted(),
		WizardCompletedAt: h.Wizard.WizardCompletedAt(),
		MappingExists:     h.Mapping.MappingExists(),
		HasActiveSickDays: hasActive,
		MappingCount:      len(mapping),
	})
}

// GetDiscovery returns discovered entities and the suggested mapping.
func (h *Handler) GetDiscovery(w http.ResponseWriter, r *http.Request) {
	summary, err := discovery.GetSummary(r.Context(), h.Platform)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Discovery failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// MAPPING
// =============================================================================

// GetMapping returns the current person-to-automation mapping.
func (h *Handler) GetMapping(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.Mapping.LoadMapping()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load mapping", err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

// SaveMapping replaces the person-to-automation mapping.
func (h *Handler) SaveMapping(w http.ResponseWriter, r *http.Request) {
	var mapping sickday.Mapping
	if err := json.NewDecoder(r.Body).Decode(&mapping); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Mapping.SaveMapping(mapping); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save mapping", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// =============================================================================
// WIZARD
// =============================================================================

// CompleteWizard saves the confirmed mapping, marks setup done, refreshes the
// person dropdown, and dismisses the onboarding notification.
func (h *Handler) CompleteWizard(w http.ResponseWriter, r *http.Request) {
	var req WizardCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Mapping == nil {
		req.Mapping = sickday.Mapping{}
	}

	if err := h.Mapping.SaveMapping(req.Mapping); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save mapping", err)
		return
	}
	if err := h.Wizard.MarkWizardCompleted(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark wizard completed", err)
		return
	}

	ctx := r.Context()
	var names []string
	for _, pid := range req.Mapping.People() {
		name, err := h.Platform.FriendlyName(ctx, pid.Entity())
		if err != nil || name == "" {
			name = string(pid)
		}
		names = append(names, name)
	}
	if len(names) > 0 {
		if err := h.Platform.SetSelectOptions(ctx, sickday.EntityPersonSelect, names); err != nil {
			log.Printf("[API] Could not update person dropdown (entity may not exist yet): %v", err)
		}
	}

	if err := h.Platform.DismissNotification(ctx, sickday.NotificationOnboarding); err != nil {
		log.Printf("[API] Could not dismiss onboarding notification: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ResetWizard re-arms the wizard for another run.
func (h *Handler) ResetWizard(w http.ResponseWriter, r *http.Request) {
	if err := h.Wizard.MarkWizardIncomplete(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset wizard", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// =============================================================================
// SICK DAYS
// =============================================================================

// ListSickDays returns all active sick days with display names.
func (h *Handler) ListSickDays(w http.ResponseWriter, r *http.Request) {
	active, err := h.Engine.ListActive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sick days", err)
		return
	}

	dtos := make([]SickDayDTO, len(active))
	for i, rec := range active {
		automations := make([]string, len(rec.DisabledAutomations))
		for j, a := range rec.DisabledAutomations {
			automations[j] = string(a)
		}
		dtos[i] = SickDayDTO{
			PersonID:            string(rec.Person),
			PersonName:          rec.DisplayName,
			EndDate:             rec.EndDate,
			DisabledAutomations: automations,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ActivateSickDay starts a sick day for a mapped, not-yet-active person.
func (h *Handler) ActivateSickDay(w http.ResponseWriter, r *http.Request) {
	var req DurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PersonID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required", nil)
		return
	}

	pid := sickday.PersonID(req.PersonID)
	mapping, err := h.Mapping.LoadMapping()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load mapping", err)
		return
	}
	if _, ok := mapping[pid]; !ok {
		writeError(w, http.StatusBadRequest, "Person "+req.PersonID+" not found in mapping", nil)
		return
	}

	active, err := h.Engine.IsActive(pid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load sick-day state", err)
		return
	}
	if active {
		writeError(w, http.StatusBadRequest, "Sick day already active for "+req.PersonID, nil)
		return
	}

	endDate := h.computeEndDate(req.DurationType, req.DurationValue)
	if _, err := h.Engine.Activate(r.Context(), req.PersonID, endDate); err != nil {
		status := http.StatusInternalServerError
		if sickday.IsNotFound(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "Failed to activate sick day", err)
		return
	}
	writeJSON(w, http.StatusOK, SickDayResponse{OK: true, EndDate: endDate})
}

// CancelSickDay cancels a person's active sick day.
func (h *Handler) CancelSickDay(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PersonID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required", nil)
		return
	}

	if _, err := h.Engine.Deactivate(r.Context(), sickday.PersonID(req.PersonID)); err != nil {
		status := http.StatusInternalServerError
		if sickday.IsNotFound(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "No active sick day for "+req.PersonID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ExtendSickDay replaces the end date of an active sick day.
func (h *Handler) ExtendSickDay(w http.ResponseWriter, r *http.Request) {
	var req DurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PersonID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required", nil)
		return
	}

	endDate := h.computeEndDate(req.DurationType, req.DurationValue)
	if _, err := h.Engine.Extend(r.Context(), req.PersonID, endDate); err != nil {
		status := http.StatusInternalServerError
		if sickday.IsNotFound(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "No active sick day to extend for "+req.PersonID, err)
		return
	}
	writeJSON(w, http.StatusOK, SickDayResponse{OK: true, EndDate: endDate})
}

// =============================================================================
// HELPERS
// =============================================================================

// computeEndDate maps a duration spec to an end date: day counts become
// today + N (clamped); explicit dates pass through verbatim.
func (h *Handler) computeEndDate(durationType string, value any) string {
	if durationType == "date" {
		if s, ok := value.(string); ok && s != "" {
			return s
		}
		return sickday.EndDateFor(h.Now(), 1)
	}

	days := 1
	switch v := value.(type) {
	case float64: // JSON numbers decode as float64
		days = int(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			days = int(f)
		}
	}
	return sickday.EndDateFor(h.Now(), days)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
