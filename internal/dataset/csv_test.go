package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schools.csv")
	content := "Name,Province,Status\nAero Flight School,Gauteng,Candidate\nBlue Sky Aviation,Western Cape,Needs Review\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := ReadCSV(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Province", "Status"}, table.Columns())
	assert.Equal(t, 2, table.RowCount())
	assert.Equal(t, "Blue Sky Aviation", table.Get(1, "Name"))
}

func TestReadCSV_RaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	content := "Name,Province,Status\nAero,Gauteng\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, "", table.Get(0, "Status"))
}

func TestReadCSV_MissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReadCSV_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	table := New(
		[]string{"Name", "Status"},
		[][]string{{"Aero Flight School", "Verified"}, {"Blue Sky, Pty Ltd", "Candidate"}},
	)

	path := filepath.Join(dir, "out.csv")
	require.NoError(t, WriteCSV(table, path))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, table.Columns(), got.Columns())
	assert.Equal(t, table.RowCount(), got.RowCount())
	// Quoting survives values containing the delimiter.
	assert.Equal(t, "Blue Sky, Pty Ltd", got.Get(1, "Name"))
}
