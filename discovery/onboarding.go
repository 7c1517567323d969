/*
onboarding.go - First-run onboarding flow

PURPOSE:
  When no mapping exists yet, discover people and automations, save a
  suggested mapping, populate the person dropdown, and explain the result in
  a notification. The user refines the suggestion in the wizard afterwards.
*/
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/warp/sickday-helper/sickday"
)

// ErrNoPeople is returned when the platform has no person entities at all.
var ErrNoPeople = errors.New("no person entities found")

// RunOnboarding discovers entities, saves a suggested mapping, and announces
// it. Returns ErrNoPeople (after notifying) when there is nobody to map.
func RunOnboarding(ctx context.Context, platform Platform, store sickday.MappingStore) error {
	log.Printf("[Onboarding] Starting onboarding...")

	people, automations, err := Discover(ctx, platform)
	if err != nil {
		return fmt.Errorf("discover entities: %w", err)
	}
	log.Printf("[Onboarding] Discovered %d person(s) and %d automation(s)", len(people), len(automations))

	if len(people) == 0 {
		notifyErr := platform.Notify(ctx, "Sick Day Helper - Setup",
			"No `person.*` entities found. Please create Person entities in Home Assistant before using Sick Day Helper.",
			sickday.NotificationOnboarding)
		if notifyErr != nil {
			log.Printf("[Onboarding] Could not send setup notification: %v", notifyErr)
		}
		return ErrNoPeople
	}

	mapping := SuggestMapping(people, automations)
	if err := store.SaveMapping(mapping); err != nil {
		return fmt.Errorf("save suggested mapping: %w", err)
	}

	// Populate the person dropdown with display names.
	names := make([]string, 0, len(people))
	for _, p := range people {
		names = append(names, p.FriendlyName)
	}
	if err := platform.SetSelectOptions(ctx, sickday.EntityPersonSelect, names); err != nil {
		log.Printf("[Onboarding] Could not populate person dropdown (entity may not exist yet): %v", err)
	}

	if err := platform.Notify(ctx, "Sick Day Helper - Setup Complete",
		onboardingMessage(people, mapping), sickday.NotificationOnboarding); err != nil {
		log.Printf("[Onboarding] Could not send onboarding notification: %v", err)
	}

	if err := platform.TurnOn(ctx, sickday.EntitySetupComplete); err != nil {
		log.Printf("[Onboarding] Could not set setup_complete flag (entity may not exist yet): %v", err)
	}

	log.Printf("[Onboarding] Onboarding complete")
	return nil
}

func onboardingMessage(people []Person, mapping sickday.Mapping) string {
	lines := []string{"Sick Day Helper has auto-detected the following mapping:\n"}
	for _, p := range people {
		autos := mapping[p.EntityID]
		if len(autos) == 0 {
			lines = append(lines, fmt.Sprintf("**%s** (`%s`): _(no automations matched)_\n", p.FriendlyName, p.EntityID))
			continue
		}
		var autoLines []string
		for _, a := range autos {
			autoLines = append(autoLines, fmt.Sprintf("  - `%s`", a))
		}
		lines = append(lines, fmt.Sprintf("**%s** (`%s`):\n%s\n", p.FriendlyName, p.EntityID, strings.Join(autoLines, "\n")))
	}
	lines = append(lines, "To edit this mapping, open the Sick Day Helper wizard (or edit mapping.json) and restart the add-on to apply changes.")
	return strings.Join(lines, "\n")
}
