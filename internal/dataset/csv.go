package dataset

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
)

// ReadCSV loads a CSV file into a Table. The first row is the header.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read csv")
	}
	if len(records) == 0 {
		return nil, eris.New("dataset: csv has no header row")
	}

	return New(records[0], records[1:]), nil
}

// WriteCSV writes the table back out, preserving column order.
func WriteCSV(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "dataset: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns()); err != nil {
		return eris.Wrap(err, "dataset: write header")
	}
	for i := 0; i < t.RowCount(); i++ {
		if err := w.Write(t.Row(i)); err != nil {
			return eris.Wrapf(err, "dataset: write row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "dataset: flush csv")
	}
	return nil
}
