package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeWorkbook(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, row := range rows {
		r := sheet.AddRow()
		for _, v := range row {
			r.AddCell().SetString(v)
		}
	}

	path := filepath.Join(t.TempDir(), "schools.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX_FirstSheetByDefault(t *testing.T) {
	path := writeWorkbook(t, "Schools", [][]string{
		{"Name", "Province", "Status"},
		{"Aero Flight School", "Gauteng", "Candidate"},
	})

	table, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Province", "Status"}, table.Columns())
	require.Equal(t, 1, table.RowCount())
	assert.Equal(t, "Aero Flight School", table.Get(0, "Name"))
}

func TestReadXLSX_NamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Schools", [][]string{
		{"Name"},
		{"Blue Sky Aviation"},
	})

	table, err := ReadXLSX(path, "Schools")
	require.NoError(t, err)
	assert.Equal(t, "Blue Sky Aviation", table.Get(0, "Name"))

	_, err = ReadXLSX(path, "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	assert.Error(t, err)
}
