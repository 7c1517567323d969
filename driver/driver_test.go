package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sickday-helper/sickday"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type memStore struct {
	state   sickday.ActiveState
	mapping sickday.Mapping
}

func (m *memStore) LoadState() (sickday.ActiveState, error) {
	if m.state == nil {
		m.state = sickday.ActiveState{}
	}
	return m.state, nil
}
func (m *memStore) SaveState(state sickday.ActiveState) error { m.state = state; return nil }
func (m *memStore) LoadMapping() (sickday.Mapping, error) { return m.mapping, nil }
func (m *memStore) SaveMapping(mapping sickday.Mapping) error { m.mapping = mapping; return nil }
func (m *memStore) MappingExists() bool { return m.mapping != nil }

type fakeControl struct {
	states    map[sickday.EntityID]string
	names     map[sickday.EntityID]string
	stateErrs map[sickday.EntityID]error
	turnedOff []sickday.EntityID
	selected  map[sickday.EntityID]string
}

func newFakeControl() *fakeControl {
	return &fakeControl{
		states:    map[sickday.EntityID]string{},
		names:     map[sickday.EntityID]string{},
		stateErrs: map[sickday.EntityID]error{},
	}
}

func (f *fakeControl) StateValue(_ context.Context, id sickday.EntityID) (string, error) {
	if err := f.stateErrs[id]; err != nil {
		return "", err
	}
	return f.states[id], nil
}

func (f *fakeControl) TurnOn(_ context.Context, id sickday.EntityID) error {
	f.states[id] = sickday.StateOn
	return nil
}

func (f *fakeControl) TurnOff(_ context.Context, id sickday.EntityID) error {
	f.states[id] = sickday.StateOff
	f.turnedOff = append(f.turnedOff, id)
	return nil
}

func (f *fakeControl) FriendlyName(_ context.Context, id sickday.EntityID) (string, error) {
	name, ok := f.names[id]
	if !ok {
		return "", errors.New("entity not found")
	}
	return name, nil
}

func (f *fakeControl) Notify(context.Context, string, string, string) error { return nil }
func (f *fakeControl) DismissNotification(context.Context, string) error    { return nil }

func (f *fakeControl) SelectOption(_ context.Context, id sickday.EntityID, option string) error {
	if f.selected == nil {
		f.selected = map[sickday.EntityID]string{}
	}
	f.selected[id] = option
	return nil
}

func fixedNow() time.Time {
	return time.Date(2025, time.January, 28, 9, 0, 0, 0, time.UTC)
}

func newTestDriver(t *testing.T) (*Driver, *memStore, *fakeControl) {
	t.Helper()

	store := &memStore{
		mapping: sickday.Mapping{
			"person.kid_1": {"automation.morning_wake"},
			"person.kid_2": {"automation.evening_homework"},
		},
	}
	control := newFakeControl()
	control.states["automation.morning_wake"] = sickday.StateOn
	control.states["automation.evening_homework"] = sickday.StateOn
	control.names["person.kid_1"] = "Kid One"
	control.names["person.kid_2"] = "Kid Two"

	engine := sickday.NewEngine(store, store, control)
	engine.Now = fixedNow

	d, err := New(engine, control, time.Second, time.Minute)
	require.NoError(t, err)
	d.Now = fixedNow
	return d, store, control
}

// =============================================================================
// END DATE COMPUTATION TESTS
// =============================================================================

func TestComputeEndDate_NumberOfDays(t *testing.T) {
	d, _, control := newTestDriver(t)
	ctx := context.Background()

	control.states[sickday.EntityDurationType] = DurationNumDays
	// input_number reports a float-formatted string.
	control.states[sickday.EntityNumDays] = "3.0"

	assert.Equal(t, "2025-01-31", d.computeEndDate(ctx))
}

func TestComputeEndDate_NumberOfDays_UnparseableDefaultsToOne(t *testing.T) {
	d, _, control := newTestDriver(t)
	ctx := context.Background()

	control.states[sickday.EntityDurationType] = DurationNumDays
	control.states[sickday.EntityNumDays] = "unknown"

	assert.Equal(t, "2025-01-29", d.computeEndDate(ctx))
}

func TestComputeEndDate_ExplicitDate(t *testing.T) {
	d, _, control := newTestDriver(t)
	ctx := context.Background()

	control.states[sickday.EntityDurationType] = "Specific End Date"
	control.states[sickday.EntityEndDate] = "2025-02-14"

	assert.Equal(t, "2025-02-14", d.computeEndDate(ctx))
}

func TestComputeEndDate_UnsetDate_FallsBackToOneDay(t *testing.T) {
	d, _, control := newTestDriver(t)
	ctx := context.Background()

	control.states[sickday.EntityDurationType] = "Specific End Date"
	control.states[sickday.EntityEndDate] = "unknown"

	assert.Equal(t, "2025-01-29", d.computeEndDate(ctx))
}

// =============================================================================
// TOGGLE DISPATCH TESTS
// =============================================================================

func TestTick_Submit_ActivatesAndResetsToggle(t *testing.T) {
	// GIVEN: The submit toggle is on with Kid One selected for 2 days
	// WHEN: A poll tick runs
	// THEN: A sick day is activated and the toggle is reset

	d, store, control := newTestDriver(t)
	ctx := context.Background()

	control.states[sickday.EntitySubmit] = sickday.StateOn
	control.states[sickday.EntityPersonSelect] = "Kid One"
	control.states[sickday.EntityDurationType] = DurationNumDays
	control.states[sickday.EntityNumDays] = "2.0"

	d.tick(ctx)

	rec, ok := store.state["person.kid_1"]
	require.True(t, ok)
	assert.Equal(t, "2025-01-30", rec.EndDate)
	assert.Equal(t, sickday.StateOff, control.states[sickday.EntitySubmit])
	assert.Contains(t, control.turnedOff, sickday.EntitySubmit)
}

func TestTick_Submit_FailureStillResetsToggle(t *testing.T) {
	// GIVEN: The submit toggle is on but the selected person cannot be resolved
	// WHEN: A poll tick runs
	// THEN: Nothing is activated but the toggle is still reset

	d, store, control := newTestDriver(t)
	ctx := context.Background()

	control.states[sickday.EntitySubmit] = sickday.StateOn
	control.states[sickday.EntityPersonSelect] = "Nobody We Know"

	d.tick(ctx)

	assert.Empty(t, store.state)
	assert.Equal(t, sickday.StateOff, control.states[sickday.EntitySubmit],
		"a failed dispatch must not wedge the toggle on")
}

func TestTick_Submit_NoSelection_Ignored(t *testing.T) {
	d, store, control := newTestDriver(t)
	ctx := context.Background()

	control.states[sickday.EntitySubmit] = sickday.StateOn
	control.states[sickday.EntityPersonSelect] = "(none)"

	d.tick(ctx)

	assert.Empty(t, store.state)
	assert.Equal(t, sickday.StateOff, control.states[sickday.EntitySubmit])
}

func TestTick_Cancel_SingleActiveFallback(t *testing.T) {
	// GIVEN: Exactly one active sick day and no matching dropdown selection
	// WHEN: The cancel toggle fires
	// THEN: That sick day is cancelled

	d, store, control := newTestDriver(t)
	ctx := context.Background()

	_, err := d.Engine.Activate(ctx, "person.kid_1", "2025-02-01")
	require.NoError(t, err)

	control.states[sickday.EntityCancel] = sickday.StateOn
	control.states[sickday.EntityPersonSelect] = "(none)"

	d.tick(ctx)

	assert.Empty(t, store.state)
	assert.Equal(t, sickday.StateOff, control.states[sickday.EntityCancel])
	assert.Equal(t, "(none)", control.selected[sickday.EntityPersonSelect],
		"the dropdown is reset after a cancel")
}

func TestTick_Extend_UpdatesEndDate(t *testing.T) {
	d, store, control := newTestDriver(t)
	ctx := context.Background()

	_, err := d.Engine.Activate(ctx, "person.kid_1", "2025-01-30")
	require.NoError(t, err)

	control.states[sickday.EntityExtend] = sickday.StateOn
	control.states[sickday.EntityPersonSelect] = "Kid One"
	control.states[sickday.EntityDurationType] = DurationNumDays
	control.states[sickday.EntityNumDays] = "5.0"

	d.tick(ctx)

	assert.Equal(t, "2025-02-02", store.state["person.kid_1"].EndDate)
	assert.Equal(t, sickday.StateOff, control.states[sickday.EntityExtend])
}

func TestTick_NoTogglesOn_NoEffect(t *testing.T) {
	d, store, control := newTestDriver(t)

	d.tick(context.Background())

	assert.Empty(t, store.state)
	assert.Empty(t, control.turnedOff)
}

// =============================================================================
// CANCEL TARGET RESOLUTION TESTS
// =============================================================================

func TestResolveCancelTarget_MatchesByDisplayName(t *testing.T) {
	d, _, control := newTestDriver(t)
	ctx := context.Background()

	_, err := d.Engine.Activate(ctx, "person.kid_1", "2025-02-01")
	require.NoError(t, err)
	_, err = d.Engine.Activate(ctx, "person.kid_2", "2025-02-01")
	require.NoError(t, err)

	control.states[sickday.EntityPersonSelect] = "Kid Two"

	pid, ok, err := d.resolveCancelTarget(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sickday.PersonID("person.kid_2"), pid)
}

func TestResolveCancelTarget_AmbiguousWithoutSelection(t *testing.T) {
	d, _, control := newTestDriver(t)
	ctx := context.Background()

	_, err := d.Engine.Activate(ctx, "person.kid_1", "2025-02-01")
	require.NoError(t, err)
	_, err = d.Engine.Activate(ctx, "person.kid_2", "2025-02-01")
	require.NoError(t, err)

	control.states[sickday.EntityPersonSelect] = "(none)"

	_, ok, err := d.resolveCancelTarget(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "two active sick days and no selection is ambiguous")
}

func TestResolveCancelTarget_NoActive(t *testing.T) {
	d, _, _ := newTestDriver(t)

	_, ok, err := d.resolveCancelTarget(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// STARTUP TESTS
// =============================================================================

func TestStartup_NoActiveRecords_NoOp(t *testing.T) {
	d, _, _ := newTestDriver(t)

	require.NoError(t, d.Startup(context.Background()))
}

func TestStartup_ExpiresOverdueSickDays(t *testing.T) {
	// GIVEN: A persisted sick day whose end date passed while the process
	//        was down
	// WHEN: Startup recovery runs
	// THEN: The sick day is ended and its automation re-enabled

	d, store, control := newTestDriver(t)
	ctx := context.Background()

	store.state = sickday.ActiveState{
		"person.kid_1": {
			EndDate:             "2025-01-27",
			DisabledAutomations: []sickday.AutomationID{"automation.morning_wake"},
		},
	}
	control.states["automation.morning_wake"] = sickday.StateOff

	require.NoError(t, d.Startup(ctx))

	assert.Empty(t, store.state)
	assert.Equal(t, sickday.StateOn, control.states["automation.morning_wake"])
}
