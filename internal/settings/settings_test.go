package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

func TestOpenCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	st, err := Open(path, "./data/input")
	require.NoError(t, err)
	assert.Equal(t, "./data/input", st.Get().DataFolder)
	assert.Nil(t, st.Get().LastReload)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSettingsPersistAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	data := filepath.Join(dir, "input")
	require.NoError(t, os.Mkdir(data, 0o755))

	st, err := Open(path, "./data/input")
	require.NoError(t, err)
	_, err = st.SetDataFolder(data)
	require.NoError(t, err)

	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, st.RecordReload(at, map[string]int{"Historico_Performance.csv": 365}))

	again, err := Open(path, "./ignored")
	require.NoError(t, err)
	got := again.Get()
	assert.Equal(t, data, got.DataFolder)
	require.NotNil(t, got.LastReload)
	assert.True(t, at.Equal(*got.LastReload))
	assert.Equal(t, 365, got.FilesLoaded["Historico_Performance.csv"])
}

func TestSetDataFolderRequiresExistingDir(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "settings.json"), "./data/input")
	require.NoError(t, err)

	_, err = st.SetDataFolder(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, "./data/input", st.DataFolder())
}

func TestFailedFilesKeepPreviousCounts(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "settings.json"), "in")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, st.RecordReload(now, map[string]int{"a.csv": 1, "b.csv": 2}))
	require.NoError(t, st.RecordReload(now, map[string]int{"a.csv": 5}))

	assert.Equal(t, map[string]int{"a.csv": 5, "b.csv": 2}, st.Get().FilesLoaded)
}
