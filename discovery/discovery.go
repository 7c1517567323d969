/*
Package discovery finds people and automations on the platform and suggests
a person-to-automation mapping for the setup wizard.

PURPOSE:
  Pre-populates wizard suggestions only. Nothing here feeds the ref-counting
  logic: a suggestion the user rejects never exists as far as the engine is
  concerned. Matching is fuzzy name-token overlap between person and
  automation entity IDs ("person.kid_1" matches
  "automation.kid_1_morning_routine" on the "kid_1" token).

SEE ALSO:
  - onboarding.go: First-run flow built on these discoveries
  - api/handlers.go: Wizard endpoint exposing the summary
*/
package discovery

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/warp/sickday-helper/ha"
	"github.com/warp/sickday-helper/sickday"
)

// Platform is the slice of the HA client discovery needs.
type Platform interface {
	GetStates(ctx context.Context) ([]ha.State, error)
	SetSelectOptions(ctx context.Context, id sickday.EntityID, options []string) error
	TurnOn(ctx context.Context, id sickday.EntityID) error
	Notify(ctx context.Context, title, message, notificationID string) error
}

// Person is a discovered person entity.
type Person struct {
	EntityID     sickday.PersonID `json:"entity_id"`
	FriendlyName string           `json:"friendly_name"`
}

// Automation is a discovered automation entity.
type Automation struct {
	EntityID     sickday.AutomationID `json:"entity_id"`
	FriendlyName string               `json:"friendly_name"`
	State        string               `json:"state"`
}

// Summary aggregates discovery data for the wizard welcome step.
type Summary struct {
	People           []Person        `json:"people"`
	Automations      []Automation    `json:"automations"`
	SuggestedMapping sickday.Mapping `json:"suggested_mapping"`
	Counts           SummaryCounts   `json:"counts"`
}

type SummaryCounts struct {
	People      int `json:"people"`
	Automations int `json:"automations"`
}

// =============================================================================
// ENTITY DISCOVERY
// =============================================================================

// Discover lists person and automation entities, sorted by entity ID.
func Discover(ctx context.Context, platform Platform) ([]Person, []Automation, error) {
	states, err := platform.GetStates(ctx)
	if err != nil {
		return nil, nil, err
	}

	var people []Person
	var automations []Automation
	for i := range states {
		s := &states[i]
		switch {
		case strings.HasPrefix(s.EntityID, "person."):
			people = append(people, Person{
				EntityID:     sickday.PersonID(s.EntityID),
				FriendlyName: friendlyOrID(s),
			})
		case strings.HasPrefix(s.EntityID, "automation."):
			automations = append(automations, Automation{
				EntityID:     sickday.AutomationID(s.EntityID),
				FriendlyName: friendlyOrID(s),
				State:        s.State,
			})
		}
	}

	sort.Slice(people, func(i, j int) bool { return people[i].EntityID < people[j].EntityID })
	sort.Slice(automations, func(i, j int) bool { return automations[i].EntityID < automations[j].EntityID })
	return people, automations, nil
}

func friendlyOrID(s *ha.State) string {
	if name := s.FriendlyName(); name != "" {
		return name
	}
	return s.EntityID
}

// GetSummary runs discovery and suggestion for the wizard.
func GetSummary(ctx context.Context, platform Platform) (*Summary, error) {
	people, automations, err := Discover(ctx, platform)
	if err != nil {
		return nil, err
	}
	return &Summary{
		People:           people,
		Automations:      automations,
		SuggestedMapping: SuggestMapping(people, automations),
		Counts: SummaryCounts{
			People:      len(people),
			Automations: len(automations),
		},
	}, nil
}

// =============================================================================
// NAME MATCHING
// =============================================================================

var tokenSplit = regexp.MustCompile(`[_\s]+`)

// NameTokens extracts matchable tokens from an entity ID.
//
//	"person.kid_1"                     -> {"kid", "1", "kid_1"}
//	"automation.kid_1_morning_routine" -> {"kid", "1", "kid_1", "morning", ...}
//
// Adjacent token pairs are included so multi-word names match precisely.
func NameTokens(entityID string) map[string]struct{} {
	name := entityID
	if i := strings.IndexByte(entityID, '.'); i >= 0 {
		name = entityID[i+1:]
	}
	parts := tokenSplit.Split(strings.ToLower(name), -1)

	tokens := make(map[string]struct{})
	for _, p := range parts {
		if p != "" {
			tokens[p] = struct{}{}
		}
	}
	for i := 0; i+1 < len(parts); i++ {
		tokens[parts[i]+"_"+parts[i+1]] = struct{}{}
	}
	return tokens
}

// SuggestMapping proposes automations for each person by name-token overlap.
// Single-character tokens are too generic to match on and are ignored.
func SuggestMapping(people []Person, automations []Automation) sickday.Mapping {
	mapping := sickday.Mapping{}
	for _, person := range people {
		matchTokens := make(map[string]struct{})
		for tok := range NameTokens(string(person.EntityID)) {
			if len(tok) > 1 {
				matchTokens[tok] = struct{}{}
			}
		}

		var matched []sickday.AutomationID
		for _, auto := range automations {
			autoTokens := NameTokens(string(auto.EntityID))
			if overlaps(matchTokens, autoTokens) {
				matched = append(matched, auto.EntityID)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
		mapping[person.EntityID] = matched
	}
	return mapping
}

func overlaps(a, b map[string]struct{}) bool {
	for tok := range a {
		if _, ok := b[tok]; ok {
			return true
		}
	}
	return false
}
