/*
ports.go - Automation control port (platform abstraction)

PURPOSE:
  Defines the capability interface the engine uses to talk to the
  home-automation platform: query automation state, flip automations and the
  active indicator on/off, resolve display names, and manage notifications.

CONTRACT:
  Every call may fail. Timeouts and bounded retries are owned by the
  implementation (see package ha), so a call either completes or returns an
  error in bounded time; the engine treats failures as per-automation soft
  errors except where an operation says otherwise.

IMPLEMENTATIONS:
  - ha/client.go: Home Assistant REST client (production)
  - sickday tests: in-memory fake

SEE ALSO:
  - engine.go: The only consumer inside this package
*/
package sickday

import "context"

// ControlPort is the engine's view of the home-automation platform.
type ControlPort interface {
	// StateValue returns the current state string of an entity
	// ("on", "off", "unknown", ...).
	StateValue(ctx context.Context, id EntityID) (string, error)

	// TurnOn / TurnOff flip an entity (automation or toggle).
	TurnOn(ctx context.Context, id EntityID) error
	TurnOff(ctx context.Context, id EntityID) error

	// FriendlyName resolves an entity's human-readable display name.
	FriendlyName(ctx context.Context, id EntityID) (string, error)

	// Notify creates or replaces the persistent notification with the given ID.
	Notify(ctx context.Context, title, message, notificationID string) error

	// DismissNotification removes a persistent notification if present.
	DismissNotification(ctx context.Context, notificationID string) error
}
