/*
Package driver runs the poll/schedule loop for the sick day helper.

PURPOSE:
  Periodically samples the three command toggles the dashboard exposes
  (submit / cancel / extend), translates them into engine calls with a
  resolved person and a computed end date, and resets each toggle after
  dispatch. On a much longer interval it checks for expired sick days.

DESIGN:
  - gocron scheduler with two jobs: toggle poll (seconds-scale) and
    expiration check (minutes-scale), each in singleton mode so a slow tick
    is never overlapped by the next one.
  - Toggle resets are unconditional: a failed engine call must not wedge the
    dashboard toggle permanently on.
  - A tick failure (or panic) is logged and the loop continues; a single bad
    tick never terminates the process.

STARTUP:
  Run Startup() once before Start(): it verifies persisted state against
  observed automation states (restart recovery) and does an initial
  expiration pass, both only when any record exists.

SEE ALSO:
  - sickday/engine.go: The operations dispatched here
  - cmd/server/main.go: Wiring
*/
package driver

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/warp/sickday-helper/sickday"
)

// DurationNumDays is the duration-type dropdown option for a day count; the
// other option reads the end-date helper instead.
const DurationNumDays = "Number of Days"

// noneSelected is the placeholder option of the person dropdown.
const noneSelected = "(none)"

// =============================================================================
// DRIVER
// =============================================================================

// Driver polls the dashboard toggles and schedules expiration checks.
type Driver struct {
	Engine  *sickday.Engine
	Control sickday.ControlPort

	PollInterval       time.Duration
	ExpirationInterval time.Duration

	// Now is the clock; overridable in tests.
	Now func() time.Time

	scheduler gocron.Scheduler
}

// New creates a driver over the engine and control port.
func New(engine *sickday.Engine, control sickday.ControlPort, pollInterval, expirationInterval time.Duration) (*Driver, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Driver{
		Engine:             engine,
		Control:            control,
		PollInterval:       pollInterval,
		ExpirationInterval: expirationInterval,
		Now:                time.Now,
		scheduler:          s,
	}, nil
}

// Startup runs the one-time recovery tasks: verify persisted state against
// live automation states, then an initial expiration pass. Both are skipped
// when no record exists.
func (d *Driver) Startup(ctx context.Context) error {
	hasActive, err := d.Engine.HasActive()
	if err != nil {
		return err
	}
	if !hasActive {
		return nil
	}

	log.Printf("[Driver] Active sick days found, verifying state...")
	if _, err := d.Engine.VerifyStartup(ctx); err != nil {
		return err
	}
	if _, err := d.Engine.CheckExpirations(ctx); err != nil {
		return err
	}
	return nil
}

// Start registers the poll and expiration jobs and begins the loop.
func (d *Driver) Start(ctx context.Context) error {
	_, err := d.scheduler.NewJob(
		gocron.DurationJob(d.PollInterval),
		gocron.NewTask(d.tick, ctx),
		gocron.WithName("toggle-poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create poll job: %w", err)
	}

	_, err = d.scheduler.NewJob(
		gocron.DurationJob(d.ExpirationInterval),
		gocron.NewTask(d.expirationTick, ctx),
		gocron.WithName("expiration-check"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create expiration job: %w", err)
	}

	d.scheduler.Start()
	log.Printf("[Driver] Started (poll=%v, expiration=%v)", d.PollInterval, d.ExpirationInterval)
	return nil
}

// Stop shuts the scheduler down, waiting for a running tick to finish.
func (d *Driver) Stop() error {
	log.Printf("[Driver] Stopping")
	return d.scheduler.Shutdown()
}

// =============================================================================
// POLL TICK
// =============================================================================

// tick samples the three command toggles and dispatches any found on. Each
// toggle is reset regardless of the dispatch outcome.
func (d *Driver) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Driver] Recovered from tick panic: %v", r)
		}
	}()

	if d.toggleOn(ctx, sickday.EntitySubmit) {
		if err := d.handleSubmit(ctx); err != nil {
			log.Printf("[Driver] Submit failed: %v", err)
		}
		d.resetToggle(ctx, sickday.EntitySubmit)
	}

	if d.toggleOn(ctx, sickday.EntityCancel) {
		if err := d.handleCancel(ctx); err != nil {
			log.Printf("[Driver] Cancel failed: %v", err)
		}
		d.resetToggle(ctx, sickday.EntityCancel)
	}

	if d.toggleOn(ctx, sickday.EntityExtend) {
		if err := d.handleExtend(ctx); err != nil {
			log.Printf("[Driver] Extend failed: %v", err)
		}
		d.resetToggle(ctx, sickday.EntityExtend)
	}
}

// expirationTick runs an expiration pass when any record exists.
func (d *Driver) expirationTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Driver] Recovered from expiration tick panic: %v", r)
		}
	}()

	hasActive, err := d.Engine.HasActive()
	if err != nil {
		log.Printf("[Driver] Could not read state for expiration check: %v", err)
		return
	}
	if !hasActive {
		return
	}
	if _, err := d.Engine.CheckExpirations(ctx); err != nil {
		log.Printf("[Driver] Expiration check failed: %v", err)
	}
}

func (d *Driver) toggleOn(ctx context.Context, id sickday.EntityID) bool {
	state, err := d.Control.StateValue(ctx, id)
	if err != nil {
		log.Printf("[Driver] Could not read toggle %s: %v", id, err)
		return false
	}
	return state == sickday.StateOn
}

func (d *Driver) resetToggle(ctx context.Context, id sickday.EntityID) {
	if err := d.Control.TurnOff(ctx, id); err != nil {
		log.Printf("[Driver] Could not reset toggle %s: %v", id, err)
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

func (d *Driver) handleSubmit(ctx context.Context) error {
	log.Printf("[Driver] Submit triggered")
	person := d.selectedPerson(ctx)
	if person == "" {
		log.Printf("[Driver] No person selected, ignoring submit")
		return nil
	}
	_, err := d.Engine.Activate(ctx, person, d.computeEndDate(ctx))
	return err
}

func (d *Driver) handleCancel(ctx context.Context) error {
	log.Printf("[Driver] Cancel triggered")
	pid, ok, err := d.resolveCancelTarget(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("[Driver] Could not determine which sick day to cancel")
		return nil
	}
	if _, err := d.Engine.Deactivate(ctx, pid); err != nil {
		return err
	}
	d.resetPersonSelect(ctx)
	return nil
}

// selectControl is implemented by control ports that can drive input_select
// helpers. The dropdown reset is skipped when the port cannot.
type selectControl interface {
	SelectOption(ctx context.Context, id sickday.EntityID, option string) error
}

// resetPersonSelect puts the person dropdown back on the placeholder so a
// stale selection doesn't linger after a cancel.
func (d *Driver) resetPersonSelect(ctx context.Context) {
	sc, ok := d.Control.(selectControl)
	if !ok {
		return
	}
	if err := sc.SelectOption(ctx, sickday.EntityPersonSelect, noneSelected); err != nil {
		log.Printf("[Driver] Could not reset person dropdown: %v", err)
	}
}

func (d *Driver) handleExtend(ctx context.Context) error {
	log.Printf("[Driver] Extend triggered")
	person := d.selectedPerson(ctx)
	if person == "" {
		log.Printf("[Driver] No person selected, ignoring extend")
		return nil
	}
	_, err := d.Engine.Extend(ctx, person, d.computeEndDate(ctx))
	return err
}

// selectedPerson reads the person dropdown, empty when nothing is selected.
func (d *Driver) selectedPerson(ctx context.Context) string {
	person, err := d.Control.StateValue(ctx, sickday.EntityPersonSelect)
	if err != nil {
		log.Printf("[Driver] Could not read person selection: %v", err)
		return ""
	}
	if person == noneSelected {
		return ""
	}
	return person
}

// computeEndDate derives the end date from the duration helpers: a day count
// (clamped, defaulting to 1 on parse failure) or an explicit date, with a
// 1-day fallback when the date helper is unset.
func (d *Driver) computeEndDate(ctx context.Context) string {
	durationType, err := d.Control.StateValue(ctx, sickday.EntityDurationType)
	if err != nil {
		durationType = DurationNumDays
	}

	if durationType == DurationNumDays {
		raw, err := d.Control.StateValue(ctx, sickday.EntityNumDays)
		days := 1
		if err == nil {
			// input_number reports a float-formatted string ("3.0").
			if f, perr := strconv.ParseFloat(raw, 64); perr == nil {
				days = int(f)
			}
		}
		return sickday.EndDateFor(d.Now(), days)
	}

	endDate, err := d.Control.StateValue(ctx, sickday.EntityEndDate)
	if err == nil && endDate != "" && endDate != "unknown" {
		return endDate
	}
	return sickday.EndDateFor(d.Now(), 1)
}

// resolveCancelTarget matches the dropdown selection against active records
// by ID or display name; with exactly one active record that record is the
// fallback.
func (d *Driver) resolveCancelTarget(ctx context.Context) (sickday.PersonID, bool, error) {
	active, err := d.Engine.ListActive(ctx)
	if err != nil {
		return "", false, err
	}
	if len(active) == 0 {
		return "", false, nil
	}

	selected, err := d.Control.StateValue(ctx, sickday.EntityPersonSelect)
	if err != nil {
		selected = ""
	}
	for _, rec := range active {
		if string(rec.Person) == selected || rec.DisplayName == selected {
			return rec.Person, true, nil
		}
	}

	if len(active) == 1 {
		return active[0].Person, true, nil
	}
	return "", false, nil
}
