package bundle_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sickday-helper/bundle"
)

const validYAML = `
input_boolean:
  sick_day_active:
    name: Sick Day Active
  sick_day_submit:
    name: Submit Sick Day
input_select:
  sick_day_person:
    name: Who is sick?
    options:
      - "(none)"
`

func writeBundle(t *testing.T, content string) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "sick_day_helper.yaml")
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))
	return src
}

func TestInstall_FreshInstall(t *testing.T) {
	src := writeBundle(t, validYAML)
	destDir := filepath.Join(t.TempDir(), "packages")

	installed, err := bundle.Install(src, destDir)
	require.NoError(t, err)
	assert.True(t, installed)

	data, err := os.ReadFile(filepath.Join(destDir, "sick_day_helper.yaml"))
	require.NoError(t, err)
	assert.Equal(t, validYAML, string(data))
}

func TestInstall_AlreadyUpToDate_NoWrite(t *testing.T) {
	src := writeBundle(t, validYAML)
	destDir := t.TempDir()

	installed, err := bundle.Install(src, destDir)
	require.NoError(t, err)
	require.True(t, installed)

	installed, err = bundle.Install(src, destDir)
	require.NoError(t, err)
	assert.False(t, installed, "identical installed copy should be left alone")
}

func TestInstall_UpdatedBundle_Overwrites(t *testing.T) {
	src := writeBundle(t, validYAML)
	destDir := t.TempDir()

	_, err := bundle.Install(src, destDir)
	require.NoError(t, err)

	updated := validYAML + "input_boolean_extra: {}\n"
	require.NoError(t, os.WriteFile(src, []byte(updated), 0o644))

	installed, err := bundle.Install(src, destDir)
	require.NoError(t, err)
	assert.True(t, installed)

	data, err := os.ReadFile(filepath.Join(destDir, "sick_day_helper.yaml"))
	require.NoError(t, err)
	assert.Equal(t, updated, string(data))
}

func TestInstall_InvalidYAML_Refused(t *testing.T) {
	src := writeBundle(t, "input_boolean: [unclosed")
	destDir := t.TempDir()

	installed, err := bundle.Install(src, destDir)

	require.Error(t, err)
	assert.False(t, installed)
	_, statErr := os.Stat(filepath.Join(destDir, "sick_day_helper.yaml"))
	assert.True(t, os.IsNotExist(statErr), "an invalid bundle must never be installed")
}

func TestInstall_MissingSource(t *testing.T) {
	_, err := bundle.Install(filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir())
	require.Error(t, err)
}
