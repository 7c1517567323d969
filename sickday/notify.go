/*
notify.go - Notification message builders

PURPOSE:
  Renders the markdown bodies for the persistent notifications the engine
  sends: activation breakdown, cancellation, extension, and the combined
  expiration report. Partial success is always spelled out so a reader sees
  what was disabled, what was already paused by someone else, what was
  skipped, and what failed.
*/
package sickday

import (
	"context"
	"fmt"
	"strings"
)

func notFoundMessage(ref string) string {
	return fmt.Sprintf("Could not find person '%s' in mapping.", ref)
}

func nothingMappedMessage(ref string) string {
	return fmt.Sprintf("No automations are mapped for %s. Edit the mapping in the wizard (or mapping.json) to add automations.", ref)
}

// activationMessage renders the full per-automation breakdown. Display names
// are resolved live, falling back to raw IDs.
func (e *Engine) activationMessage(ctx context.Context, s *ActivationSummary) string {
	parts := []string{
		fmt.Sprintf("Sick day activated for **%s** until **%s**.", s.DisplayName, s.EndDate),
	}

	var disabledLines []string
	for _, auto := range s.Disabled {
		disabledLines = append(disabledLines, fmt.Sprintf("- %s", e.friendlyOrID(ctx, auto.Entity())))
	}
	parts = append(parts, fmt.Sprintf("\nDisabled automations (%d):", len(s.Disabled)))
	if len(disabledLines) > 0 {
		parts = append(parts, strings.Join(disabledLines, "\n"))
	} else {
		parts = append(parts, "_(none)_")
	}

	if len(s.Shared) > 0 {
		var sharedLines []string
		for _, sh := range s.Shared {
			sharedLines = append(sharedLines, fmt.Sprintf("- %s _(shared with %s)_",
				e.friendlyOrID(ctx, sh.Automation.Entity()),
				e.friendlyOrID(ctx, sh.Owner.Entity())))
		}
		parts = append(parts, fmt.Sprintf("\nAlready paused (%d):", len(s.Shared)))
		parts = append(parts, strings.Join(sharedLines, "\n"))
	}

	if len(s.Skipped) > 0 {
		var skippedLines []string
		for _, sk := range s.Skipped {
			skippedLines = append(skippedLines, fmt.Sprintf("- %s _(was %s)_",
				e.friendlyOrID(ctx, sk.Automation.Entity()), sk.State))
		}
		parts = append(parts, fmt.Sprintf("\nSkipped (%d):", len(s.Skipped)))
		parts = append(parts, strings.Join(skippedLines, "\n"))
	}

	if len(s.Failed) > 0 {
		var failedLines []string
		for _, auto := range s.Failed {
			failedLines = append(failedLines, fmt.Sprintf("- %s", e.friendlyOrID(ctx, auto.Entity())))
		}
		parts = append(parts, fmt.Sprintf("\nFailed (%d):", len(s.Failed)))
		parts = append(parts, strings.Join(failedLines, "\n"))
	}

	return strings.Join(parts, "\n")
}

func cancellationMessage(s *CancelSummary) string {
	msg := fmt.Sprintf("Sick day cancelled for **%s**. %d automation(s) re-enabled.",
		s.DisplayName, len(s.Reenabled))
	if len(s.Failed) > 0 {
		msg += fmt.Sprintf(" %d automation(s) could not be re-enabled.", len(s.Failed))
	}
	return msg
}

func extensionMessage(s *ExtendSummary) string {
	return fmt.Sprintf("Sick day for **%s** extended from %s to **%s**.",
		s.DisplayName, s.OldEndDate, s.NewEndDate)
}

// expirationMessage renders one combined report for every sick day that
// expired in a single pass.
func expirationMessage(s *ExpirationSummary) string {
	lines := []string{"The following sick day(s) have expired and automations have been re-enabled:\n"}
	for _, item := range s.Expired {
		lines = append(lines, fmt.Sprintf("- **%s** (ended %s): %d automation(s) re-enabled",
			item.DisplayName, item.EndDate, len(item.Reenabled)))
		if len(item.KeptOff) > 0 {
			lines = append(lines, fmt.Sprintf("  - %d automation(s) kept off (still needed by another sick day)",
				len(item.KeptOff)))
		}
	}
	return strings.Join(lines, "\n")
}
