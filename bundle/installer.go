/*
Package bundle installs the static Home Assistant package YAML.

PURPOSE:
  The dashboard helpers (toggles, selects, number/date inputs) are defined
  in a package YAML shipped with the add-on. On startup this is copied into
  the host's packages directory so Home Assistant picks the entities up.
  The copy is skipped when the installed file is already identical, and a
  bundle that does not parse as YAML is refused rather than installed.
*/
package bundle

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Install copies the package YAML at src into destDir, validating it first.
// Returns true if the file was written (new or updated), false when the
// installed copy is already up to date.
func Install(src, destDir string) (bool, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("read bundle %s: %w", src, err)
	}

	// Never hand Home Assistant a bundle that doesn't parse.
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("bundle %s is not valid YAML: %w", src, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return false, fmt.Errorf("create packages directory %s: %w", destDir, err)
	}

	dest := filepath.Join(destDir, filepath.Base(src))
	if existing, err := os.ReadFile(dest); err == nil && bytes.Equal(existing, data) {
		log.Printf("[Bundle] Package YAML already up to date")
		return false, nil
	}

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return false, fmt.Errorf("install bundle to %s: %w", dest, err)
	}
	log.Printf("[Bundle] Installed package YAML to %s", dest)
	return true, nil
}
