/*
jsonfile.go - JSON-file implementation of the sick-day document stores

PURPOSE:
  Persists the three documents (mapping, active state, wizard state) as
  whole-file JSON snapshots in a single data directory. Pure storage: no
  business logic, no interpretation of record contents.

ATOMICITY:
  Every save writes to a temporary file in the same directory and renames it
  over the canonical file. A crash mid-write leaves either the old document
  or the new one, never a torn one.

CORRUPTION:
  A missing document loads as an empty document. A corrupt document also
  loads as an empty document (logged), and the engine self-heals by rebuilding
  state incrementally rather than refusing to start.

FILES:
  mapping.json  { "person.x": ["automation.a", ...], ... }
  state.json    { "person.x": { "end_date": "...", "disabled_automations": [...] }, ... }
  wizard.json   { "completed": true, "completed_at": "..." }

SEE ALSO:
  - sickday/store.go: The interfaces implemented here
*/
package jsonfile

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/warp/sickday-helper/sickday"
)

const (
	mappingFile = "mapping.json"
	stateFile   = "state.json"
	wizardFile  = "wizard.json"
)

// Store is a JSON-file-backed document store. A single mutex serializes all
// file access; read-modify-write atomicity across operations is the engine's
// responsibility.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates the data directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory path.
func (s *Store) Dir() string { return s.dir }

// =============================================================================
// RAW DOCUMENT I/O
// =============================================================================

// readJSON loads a document into out. Missing and corrupt files both leave
// out untouched and return nil; corruption is logged.
func (s *Store) readJSON(name string, out any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("[Store] Corrupt JSON file %s, treating as empty: %v", path, err)
		return nil
	}
	return nil
}

// writeJSON atomically replaces a document: write a temp file, then rename.
func (s *Store) writeJSON(name string, doc any) error {
	path := filepath.Join(s.dir, name)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// MAPPING DOCUMENT
// =============================================================================

// LoadMapping returns the person-to-automation mapping, empty if absent.
func (s *Store) LoadMapping() (sickday.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping := sickday.Mapping{}
	if err := s.readJSON(mappingFile, &mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// SaveMapping replaces the mapping document.
func (s *Store) SaveMapping(mapping sickday.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeJSON(mappingFile, mapping); err != nil {
		return err
	}
	log.Printf("[Store] Saved mapping with %d person(s)", len(mapping))
	return nil
}

// MappingExists reports whether a mapping document has ever been written.
func (s *Store) MappingExists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(filepath.Join(s.dir, mappingFile))
	return err == nil
}

// =============================================================================
// ACTIVE STATE DOCUMENT
// =============================================================================

// LoadState returns the active sick-day document, empty if absent or corrupt.
func (s *Store) LoadState() (sickday.ActiveState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := sickday.ActiveState{}
	if err := s.readJSON(stateFile, &state); err != nil {
		return nil, err
	}
	return state, nil
}

// SaveState replaces the active sick-day document.
func (s *Store) SaveState(state sickday.ActiveState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeJSON(stateFile, state)
}

// =============================================================================
// WIZARD STATE DOCUMENT
// =============================================================================

type wizardState struct {
	Completed   bool   `json:"completed"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func (s *Store) loadWizard() wizardState {
	var w wizardState
	if err := s.readJSON(wizardFile, &w); err != nil {
		log.Printf("[Store] Could not read wizard state: %v", err)
	}
	return w
}

// WizardCompleted reports whether first-run setup has completed.
func (s *Store) WizardCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadWizard().Completed
}

// WizardCompletedAt returns the timestamp of the last wizard completion,
// empty if the wizard has not completed.
func (s *Store) WizardCompletedAt() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.loadWizard()
	if !w.Completed {
		return ""
	}
	return w.CompletedAt
}

// MarkWizardCompleted records first-run setup as done.
func (s *Store) MarkWizardCompleted() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeJSON(wizardFile, wizardState{
		Completed:   true,
		CompletedAt: time.Now().Format(time.RFC3339),
	})
}

// MarkWizardIncomplete resets the wizard for a re-run.
func (s *Store) MarkWizardIncomplete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeJSON(wizardFile, wizardState{Completed: false})
}
