package sickday_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/sickday-helper/sickday"
)

// =============================================================================
// REF-COUNT SET ALGEBRA TESTS
// =============================================================================

func TestActiveState_CurrentlyDisabled_UnionAcrossRecords(t *testing.T) {
	state := sickday.ActiveState{
		personKid1: {EndDate: "2025-02-01", DisabledAutomations: []sickday.AutomationID{autoA, autoB}},
		personKid2: {EndDate: "2025-02-03", DisabledAutomations: []sickday.AutomationID{autoB, autoC}},
	}

	disabled := state.CurrentlyDisabled()

	assert.Len(t, disabled, 3)
	assert.Contains(t, disabled, autoA)
	assert.Contains(t, disabled, autoB)
	assert.Contains(t, disabled, autoC)
}

func TestActiveState_DisabledBy_ExcludesGivenPerson(t *testing.T) {
	// The activating person's own prior record must not count as "another
	// record owns it", or re-activation would misreport everything as shared.
	state := sickday.ActiveState{
		personKid1: {DisabledAutomations: []sickday.AutomationID{autoA, autoB}},
		personKid2: {DisabledAutomations: []sickday.AutomationID{autoC}},
	}

	owners := state.DisabledBy(personKid1)

	assert.NotContains(t, owners, autoA)
	assert.NotContains(t, owners, autoB)
	assert.Equal(t, personKid2, owners[autoC])
}

func TestActiveState_Expired_EndDateReached(t *testing.T) {
	state := sickday.ActiveState{
		personKid1: {EndDate: "2025-02-01"},
		personKid2: {EndDate: "2025-02-03"},
	}

	assert.Empty(t, state.Expired("2025-01-31"))
	assert.Equal(t, []sickday.PersonID{personKid1}, state.Expired("2025-02-01"),
		"a sick day ends on its end date")
	assert.Equal(t, []sickday.PersonID{personKid1, personKid2}, state.Expired("2025-02-03"))
}

func TestSickDayRecord_Expired_LexicographicCompare(t *testing.T) {
	rec := sickday.SickDayRecord{EndDate: "2025-02-01"}

	assert.False(t, rec.Expired("2025-01-09"), "zero-padded dates compare correctly as strings")
	assert.True(t, rec.Expired("2025-02-01"))
	assert.True(t, rec.Expired("2025-12-31"))
}

// =============================================================================
// DURATION / DATE TESTS
// =============================================================================

func TestClampDays_Bounds(t *testing.T) {
	assert.Equal(t, 1, sickday.ClampDays(0))
	assert.Equal(t, 1, sickday.ClampDays(-5))
	assert.Equal(t, 3, sickday.ClampDays(3))
	assert.Equal(t, 365, sickday.ClampDays(365))
	assert.Equal(t, 365, sickday.ClampDays(9000))
}

func TestEndDateFor_AddsDays(t *testing.T) {
	now := time.Date(2025, time.January, 30, 22, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-01-31", sickday.EndDateFor(now, 1))
	assert.Equal(t, "2025-02-02", sickday.EndDateFor(now, 3), "crosses the month boundary")
	assert.Equal(t, "2025-01-31", sickday.EndDateFor(now, 0), "clamped up to the minimum")
}
