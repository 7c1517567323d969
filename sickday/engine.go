/*
engine.go - Sick-day state reconciliation engine

PURPOSE:
  Owns the five operations on sick-day state: Activate, Deactivate, Extend,
  CheckExpirations, and VerifyStartup. Computes the shared-automation
  ref-count effect across all concurrently active records and recovers
  consistency after an external state change or a process restart.

OWNERSHIP RULE:
  An activation only records the automations IT turned off. Automations that
  were already off are reported (shared or skipped) but never claimed, so a
  later cancel can neither turn off something another record still needs nor
  force-enable something this record didn't disable.

ORDERING RULE:
  Deactivation and expiration delete the departing record BEFORE recomputing
  which automations are still needed. Reordering this double-counts the
  departing record's own claim and wrongly keeps its automations off.

CONCURRENCY:
  The poll driver and the HTTP surface both trigger operations against the
  same documents. A single engine mutex serializes every load-mutate-save
  sequence, so ref-counting stays correct under concurrent cancel+activate.

SEE ALSO:
  - types.go: ActiveState set algebra
  - notify.go: Notification text builders
  - driver/driver.go, api/handlers.go: Callers
*/
package sickday

import (
	"context"
	"log"
	"sync"
	"time"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine reconciles sick-day state against the automation platform.
type Engine struct {
	State   StateStore
	Mapping MappingStore
	Control ControlPort

	// Indicator is the global "sick day active" toggle.
	Indicator EntityID

	// Now is the clock; overridable in tests.
	Now func() time.Time

	mu sync.Mutex
}

// NewEngine creates an engine over the given store and control port.
func NewEngine(state StateStore, mapping MappingStore, control ControlPort) *Engine {
	return &Engine{
		State:     state,
		Mapping:   mapping,
		Control:   control,
		Indicator: EntityActive,
		Now:       time.Now,
	}
}

func (e *Engine) today() string {
	return e.Now().Format(ISODate)
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// SharedAutomation is an automation found off and owned by another record.
type SharedAutomation struct {
	Automation AutomationID
	Owner      PersonID
}

// SkippedAutomation is an automation found off without a tracked owner.
type SkippedAutomation struct {
	Automation AutomationID
	State      string
}

// ActivationSummary reports the per-automation breakdown of an activation.
type ActivationSummary struct {
	Person      PersonID
	DisplayName string
	EndDate     string
	Disabled    []AutomationID
	Shared      []SharedAutomation
	Skipped     []SkippedAutomation
	Failed      []AutomationID
}

// CancelSummary reports the effect of a cancellation.
type CancelSummary struct {
	Person      PersonID
	DisplayName string
	Reenabled   []AutomationID
	KeptOff     []AutomationID
	Failed      []AutomationID
}

// ExtendSummary reports an end-date extension.
type ExtendSummary struct {
	Person      PersonID
	DisplayName string
	OldEndDate  string
	NewEndDate  string
}

// ExpiredSickDay reports one person handled by an expiration pass.
type ExpiredSickDay struct {
	Person      PersonID
	DisplayName string
	EndDate     string
	Reenabled   []AutomationID
	KeptOff     []AutomationID
}

// ExpirationSummary reports one CheckExpirations pass. Nil when nothing expired.
type ExpirationSummary struct {
	Expired []ExpiredSickDay
}

// ActiveSickDay is one active record with its resolved display name.
type ActiveSickDay struct {
	Person              PersonID
	DisplayName         string
	EndDate             string
	DisabledAutomations []AutomationID
}

// =============================================================================
// PERSON RESOLUTION
// =============================================================================

// ResolvePerson accepts a person entity ID or a display name and returns the
// canonical person ID, or ErrPersonNotFound.
func (e *Engine) ResolvePerson(ctx context.Context, ref string) (PersonID, error) {
	mapping, err := e.Mapping.LoadMapping()
	if err != nil {
		return "", err
	}
	return e.resolveAgainst(ctx, mapping, ref)
}

func (e *Engine) resolveAgainst(ctx context.Context, mapping Mapping, ref string) (PersonID, error) {
	// Direct match: the entity ID was used as the reference.
	if _, ok := mapping[PersonID(ref)]; ok {
		return PersonID(ref), nil
	}

	// Match by display name, queried live from the platform.
	for _, pid := range mapping.People() {
		name, err := e.Control.FriendlyName(ctx, pid.Entity())
		if err != nil {
			continue
		}
		if name == ref {
			return pid, nil
		}
	}

	return "", &PersonNotFoundError{Ref: ref}
}

// friendlyOrID resolves a display name, falling back to the raw entity ID.
func (e *Engine) friendlyOrID(ctx context.Context, id EntityID) string {
	name, err := e.Control.FriendlyName(ctx, id)
	if err != nil || name == "" {
		return string(id)
	}
	return name
}

// =============================================================================
// ACTIVATE
// =============================================================================

// Activate starts a sick day for a person (entity ID or display name) ending
// on endDate. Automations mapped to the person are turned off and recorded as
// owned; automations already off are reported but never claimed. Partial
// control failures are recorded in the summary, not fatal; only an
// unresolvable person or an empty mapping entry rejects the operation.
func (e *Engine) Activate(ctx context.Context, personRef, endDate string) (*ActivationSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mapping, err := e.Mapping.LoadMapping()
	if err != nil {
		return nil, err
	}

	pid, err := e.resolveAgainst(ctx, mapping, personRef)
	if err != nil {
		log.Printf("[Engine] Cannot resolve person: %s", personRef)
		e.notify(ctx, "Sick Day Helper - Error",
			notFoundMessage(personRef), NotificationConfirmation)
		return nil, err
	}

	automations := mapping[pid]
	if len(automations) == 0 {
		log.Printf("[Engine] No automations mapped for %s", pid)
		e.notify(ctx, "Sick Day Helper",
			nothingMappedMessage(personRef), NotificationConfirmation)
		return nil, &NoAutomationsError{Person: pid}
	}

	state, err := e.State.LoadState()
	if err != nil {
		return nil, err
	}
	alreadyDisabledBy := state.DisabledBy(pid)

	summary := &ActivationSummary{
		Person:      pid,
		DisplayName: e.friendlyOrID(ctx, pid.Entity()),
		EndDate:     endDate,
	}

	// Classify each mapped automation in list order. Only "was on, turned
	// off now" ends up owned by this record.
	for _, auto := range automations {
		current, err := e.Control.StateValue(ctx, auto.Entity())
		if err != nil {
			summary.Failed = append(summary.Failed, auto)
			log.Printf("[Engine] Failed to query %s: %v", auto, err)
			continue
		}
		switch {
		case current == StateOn:
			if err := e.Control.TurnOff(ctx, auto.Entity()); err != nil {
				summary.Failed = append(summary.Failed, auto)
				log.Printf("[Engine] Failed to disable %s: %v", auto, err)
				continue
			}
			summary.Disabled = append(summary.Disabled, auto)
			log.Printf("[Engine] Disabled automation: %s", auto)
		case hasOwner(alreadyDisabledBy, auto):
			summary.Shared = append(summary.Shared, SharedAutomation{
				Automation: auto,
				Owner:      alreadyDisabledBy[auto],
			})
			log.Printf("[Engine] Shared automation %s (already off via %s)", auto, alreadyDisabledBy[auto])
		default:
			summary.Skipped = append(summary.Skipped, SkippedAutomation{Automation: auto, State: current})
			log.Printf("[Engine] Skipped %s (state: %s)", auto, current)
		}
	}

	state[pid] = SickDayRecord{
		EndDate:             endDate,
		DisabledAutomations: summary.Disabled,
	}
	if err := e.State.SaveState(state); err != nil {
		return nil, err
	}

	if err := e.Control.TurnOn(ctx, e.Indicator); err != nil {
		log.Printf("[Engine] Failed to set active indicator: %v", err)
	}

	e.notify(ctx, "Sick Day Helper - Activated",
		e.activationMessage(ctx, summary), NotificationConfirmation)

	log.Printf("[Engine] Sick day activated for %s until %s (%d disabled, %d shared, %d skipped, %d failed)",
		pid, endDate, len(summary.Disabled), len(summary.Shared), len(summary.Skipped), len(summary.Failed))
	return summary, nil
}

func hasOwner(owners map[AutomationID]PersonID, auto AutomationID) bool {
	_, ok := owners[auto]
	return ok
}

// =============================================================================
// DEACTIVATE (cancel)
// =============================================================================

// Deactivate cancels a person's sick day and re-enables the automations it
// owned, except those still needed by another active record. Returns
// ErrNoActiveSickDay if the person has no record.
func (e *Engine) Deactivate(ctx context.Context, pid PersonID) (*CancelSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.State.LoadState()
	if err != nil {
		return nil, err
	}
	rec, ok := state[pid]
	if !ok {
		log.Printf("[Engine] No active sick day for %s", pid)
		return nil, &NoActiveSickDayError{Person: pid}
	}

	// Delete first: the departing record must not count toward "still
	// needed" or its own automations would never come back on.
	delete(state, pid)
	if err := e.State.SaveState(state); err != nil {
		return nil, err
	}

	summary := &CancelSummary{
		Person:      pid,
		DisplayName: e.friendlyOrID(ctx, pid.Entity()),
	}
	summary.Reenabled, summary.KeptOff, summary.Failed = e.reenable(ctx, rec.DisabledAutomations, state)

	if len(state) == 0 {
		if err := e.Control.TurnOff(ctx, e.Indicator); err != nil {
			log.Printf("[Engine] Failed to clear active indicator: %v", err)
		}
	}

	if err := e.Control.DismissNotification(ctx, NotificationExpiration); err != nil {
		log.Printf("[Engine] Could not dismiss expiration notification: %v", err)
	}

	e.notify(ctx, "Sick Day Helper - Cancelled",
		cancellationMessage(summary), NotificationConfirmation)

	log.Printf("[Engine] Sick day deactivated for %s (%d re-enabled, %d kept off)",
		pid, len(summary.Reenabled), len(summary.KeptOff))
	return summary, nil
}

// reenable turns owned automations back on unless a remaining record still
// needs them off. Failures are soft: logged and reported, never fatal.
func (e *Engine) reenable(ctx context.Context, owned []AutomationID, remaining ActiveState) (reenabled, keptOff, failed []AutomationID) {
	stillNeeded := remaining.CurrentlyDisabled()
	for _, auto := range owned {
		if _, needed := stillNeeded[auto]; needed {
			keptOff = append(keptOff, auto)
			continue
		}
		if err := e.Control.TurnOn(ctx, auto.Entity()); err != nil {
			failed = append(failed, auto)
			log.Printf("[Engine] Failed to re-enable %s: %v", auto, err)
			continue
		}
		reenabled = append(reenabled, auto)
		log.Printf("[Engine] Re-enabled automation: %s", auto)
	}
	if len(keptOff) > 0 {
		log.Printf("[Engine] Kept %d automation(s) off (still needed by other sick days): %v", len(keptOff), keptOff)
	}
	return reenabled, keptOff, failed
}

// =============================================================================
// EXTEND
// =============================================================================

// Extend replaces the end date of an existing sick day. The owned automation
// list is untouched; extension changes nothing but the expiry.
func (e *Engine) Extend(ctx context.Context, personRef, newEndDate string) (*ExtendSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pid, err := e.ResolvePerson(ctx, personRef)
	if err != nil {
		log.Printf("[Engine] Cannot resolve person for extend: %s", personRef)
		return nil, err
	}

	state, err := e.State.LoadState()
	if err != nil {
		return nil, err
	}
	rec, ok := state[pid]
	if !ok {
		log.Printf("[Engine] No active sick day to extend for %s", pid)
		return nil, &NoActiveSickDayError{Person: pid}
	}

	summary := &ExtendSummary{
		Person:      pid,
		DisplayName: e.friendlyOrID(ctx, pid.Entity()),
		OldEndDate:  rec.EndDate,
		NewEndDate:  newEndDate,
	}

	rec.EndDate = newEndDate
	state[pid] = rec
	if err := e.State.SaveState(state); err != nil {
		return nil, err
	}

	if err := e.Control.DismissNotification(ctx, NotificationExpiration); err != nil {
		log.Printf("[Engine] Could not dismiss expiration notification: %v", err)
	}

	e.notify(ctx, "Sick Day Helper - Extended",
		extensionMessage(summary), NotificationConfirmation)

	log.Printf("[Engine] Sick day extended for %s: %s -> %s", pid, summary.OldEndDate, newEndDate)
	return summary, nil
}

// =============================================================================
// EXPIRATION
// =============================================================================

// CheckExpirations ends every sick day whose end date has been reached,
// applying the same delete-then-recompute re-enable logic as Deactivate, and
// sends one combined notification for the whole pass. With nothing expired it
// is a pure no-op: no write, no notification, nil summary.
func (e *Engine) CheckExpirations(ctx context.Context) (*ExpirationSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.State.LoadState()
	if err != nil {
		return nil, err
	}

	expired := state.Expired(e.today())
	if len(expired) == 0 {
		return nil, nil
	}

	summary := &ExpirationSummary{}
	for _, pid := range expired {
		rec := state[pid]

		// Same ordering rule as Deactivate: delete, persist, then recompute.
		delete(state, pid)
		if err := e.State.SaveState(state); err != nil {
			return summary, err
		}

		item := ExpiredSickDay{
			Person:      pid,
			DisplayName: e.friendlyOrID(ctx, pid.Entity()),
			EndDate:     rec.EndDate,
		}
		item.Reenabled, item.KeptOff, _ = e.reenable(ctx, rec.DisabledAutomations, state)
		summary.Expired = append(summary.Expired, item)
	}

	if len(state) == 0 {
		if err := e.Control.TurnOff(ctx, e.Indicator); err != nil {
			log.Printf("[Engine] Failed to clear active indicator: %v", err)
		}
	}

	e.notify(ctx, "Sick Day Helper - Expired",
		expirationMessage(summary), NotificationExpiration)

	log.Printf("[Engine] Expired sick days auto-deactivated: %v", expired)
	return summary, nil
}

// =============================================================================
// STARTUP VERIFICATION
// =============================================================================

// VerifyStartup reconciles persisted records against observed reality after a
// restart. Automations recorded as disabled but found on were re-enabled
// externally and are dropped from tracking; automations whose state cannot be
// queried are conservatively kept. Returns whether the document changed; it
// is only written when it did, so a second run on unchanged external state
// writes nothing.
func (e *Engine) VerifyStartup(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.State.LoadState()
	if err != nil {
		return false, err
	}

	changed := false
	for _, pid := range state.People() {
		rec := state[pid]
		var stillDisabled []AutomationID
		for _, auto := range rec.DisabledAutomations {
			current, err := e.Control.StateValue(ctx, auto.Entity())
			if err != nil {
				// Fail safe toward "still owned" rather than losing the claim.
				stillDisabled = append(stillDisabled, auto)
				continue
			}
			if current == StateOff {
				stillDisabled = append(stillDisabled, auto)
			} else {
				log.Printf("[Engine] Automation %s was re-enabled externally, removing from tracking", auto)
				changed = true
			}
		}
		if len(stillDisabled) != len(rec.DisabledAutomations) {
			rec.DisabledAutomations = stillDisabled
			state[pid] = rec
		}
	}

	if changed {
		if err := e.State.SaveState(state); err != nil {
			return true, err
		}
		log.Printf("[Engine] State updated after startup verification")
	}
	return changed, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// ListActive returns every active sick day with its resolved display name,
// sorted by person ID.
func (e *Engine) ListActive(ctx context.Context) ([]ActiveSickDay, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.State.LoadState()
	if err != nil {
		return nil, err
	}

	active := make([]ActiveSickDay, 0, len(state))
	for _, pid := range state.People() {
		rec := state[pid]
		active = append(active, ActiveSickDay{
			Person:              pid,
			DisplayName:         e.friendlyOrID(ctx, pid.Entity()),
			EndDate:             rec.EndDate,
			DisabledAutomations: rec.DisabledAutomations,
		})
	}
	return active, nil
}

// IsActive reports whether a person currently has a sick day record.
func (e *Engine) IsActive(pid PersonID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.State.LoadState()
	if err != nil {
		return false, err
	}
	_, ok := state[pid]
	return ok, nil
}

// HasActive reports whether any sick day record exists at all.
func (e *Engine) HasActive() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.State.LoadState()
	if err != nil {
		return false, err
	}
	return len(state) > 0, nil
}

// notify sends a persistent notification, logging failures instead of
// propagating them; notifications are best-effort everywhere.
func (e *Engine) notify(ctx context.Context, title, message, notificationID string) {
	if err := e.Control.Notify(ctx, title, message, notificationID); err != nil {
		log.Printf("[Engine] Failed to send notification %s: %v", notificationID, err)
	}
}
