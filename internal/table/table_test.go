package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tab, err := Parse(strings.NewReader(" A , B,C\n1,2,3\n4,5\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, tab.Header)
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "5", ""}}, tab.Rows)

	_, err = Parse(strings.NewReader("A,B\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	_, err = Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestColumnSelectDrop(t *testing.T) {
	tab := New([]string{"A", "B", "C"})
	tab.Rows = [][]string{{"1", "2", "3"}, {"4", "5", "6"}, {"7", "8", "9"}}

	assert.Equal(t, 1, tab.Index("B"))
	assert.Equal(t, -1, tab.Index("Z"))
	col, ok := tab.Column("C")
	require.True(t, ok)
	assert.Equal(t, []string{"3", "6", "9"}, col)
	_, ok = tab.Column("Z")
	assert.False(t, ok)

	sel := tab.Select([]int{2, 0})
	assert.Equal(t, [][]string{{"7", "8", "9"}, {"1", "2", "3"}}, sel.Rows)

	dropped := tab.Drop("B", "missing")
	assert.Equal(t, []string{"A", "C"}, dropped.Header)
	assert.Equal(t, []string{"4", "6"}, dropped.Rows[1])
	// The source table is untouched.
	assert.Len(t, tab.Header, 3)
	assert.Same(t, tab, tab.Drop("missing"))
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	tab := New([]string{"ID", "NOTE"})
	tab.Rows = [][]string{{"1", "a, quoted \"note\""}, {"2", ""}}
	path := filepath.Join(dir, "t.csv")
	require.NoError(t, tab.Write(path))
	assert.NoFileExists(t, path+".tmp")

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, tab, got)

	rec := filepath.Join(dir, "r.csv")
	require.NoError(t, WriteRecords(rec, [][]string{{"0001", "1.5"}, {"0002", ""}}))
	b, err := os.ReadFile(rec)
	require.NoError(t, err)
	assert.Equal(t, "0001,1.5\n0002,\n", string(b))
}
