package experiment

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAppendLoad(t *testing.T) {
	dir := t.TempDir()
	c, err := Init(dir)
	require.NoError(t, err)
	assert.Empty(t, c.Labels)
	assert.Equal(t, Path(dir), c.FilePath())

	b, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, "ID,GROUP LABEL\n", string(b))

	require.NoError(t, c.Append("0001", "control"))
	require.NoError(t, c.Append(" 0002 ", "high fat, week 2"))
	require.NoError(t, c.Append("0001", "treated"))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []Label{
		{ID: "0001", Group: "control"},
		{ID: "0002", Group: "high fat, week 2"},
		{ID: "0001", Group: "treated"},
	}, loaded.Labels)

	g, ok := loaded.Lookup("0001")
	assert.True(t, ok)
	assert.Equal(t, "treated", g)
	_, ok = loaded.Lookup("0003")
	assert.False(t, ok)

	// Init on an existing config loads it instead of truncating.
	again, err := Init(dir)
	require.NoError(t, err)
	assert.Len(t, again.Labels, 3)
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	c, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Nil(t, c)

	var nilCfg *Config
	_, ok := nilCfg.Lookup("0001")
	assert.False(t, ok)
}

func TestLoadRejectsWrongHeader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir+"/config", 0o755))
	require.NoError(t, os.WriteFile(Path(dir), []byte("SUBJECT,GROUP\n1,a\n"), 0o644))
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ID,GROUP LABEL")
}

func TestAppendRequiresID(t *testing.T) {
	c, err := Init(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, c.Append("  ", "x"))
}
