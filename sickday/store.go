/*
store.go - Persistence interfaces for the sick-day documents

PURPOSE:
  Defines the interface between the engine and durable storage. Every
  document is loaded and saved whole; there are no partial updates. The
  store holds no business logic and never interprets record contents.

DOCUMENTS:
  StateStore:   person -> SickDayRecord (owned and written by the engine)
  MappingStore: person -> automation list (written by the wizard, read-only
                from the engine)
  WizardStore:  first-run setup completion flag (independent lifecycle,
                included because it shares the store)

LOAD CONTRACT:
  Load of a missing or corrupt document returns an empty document and a nil
  error; corruption is logged by the implementation. The system self-heals
  by rebuilding state incrementally rather than refusing to start.

SAVE CONTRACT:
  Saves are atomic (write to a temporary location, then rename over the
  canonical file) so a crash mid-write never leaves a torn document.

IMPLEMENTATIONS:
  - store/jsonfile/jsonfile.go: Production JSON-file store

SEE ALSO:
  - engine.go: Read-modify-write sequences over these interfaces
*/
package sickday

// StateStore persists the active sick-day document.
type StateStore interface {
	LoadState() (ActiveState, error)
	SaveState(state ActiveState) error
}

// MappingStore persists the person-to-automation mapping document.
type MappingStore interface {
	LoadMapping() (Mapping, error)
	SaveMapping(mapping Mapping) error
	MappingExists() bool
}

// WizardStore persists the first-run wizard completion flag.
type WizardStore interface {
	WizardCompleted() bool
	WizardCompletedAt() string
	MarkWizardCompleted() error
	MarkWizardIncomplete() error
}
