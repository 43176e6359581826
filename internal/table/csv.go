package table

import (
	"compress/gzip"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV reads a table from CSV. The first record is the header. Empty
// fields become null cells; everything else stays a string.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "table: read CSV header")
	}

	t, err := New(header...)
	if err != nil {
		return nil, err
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "table: read CSV record")
		}
		cells := make([]any, len(record))
		for i, f := range record {
			if f == "" {
				continue
			}
			cells[i] = f
		}
		if err := t.AppendRow(cells...); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// WriteCSV writes the table as CSV with a header row. Null cells are
// written as empty fields.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.cols); err != nil {
		return eris.Wrap(err, "table: write CSV header")
	}

	record := make([]string, len(t.cols))
	for _, row := range t.rows {
		for i, v := range row {
			record[i], _ = AsString(v)
		}
		if err := writer.Write(record); err != nil {
			return eris.Wrap(err, "table: write CSV record")
		}
	}

	writer.Flush()
	return eris.Wrap(writer.Error(), "table: flush CSV")
}

// ReadFile reads a table from a CSV file, transparently decompressing
// files with a .gz suffix.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, eris.Wrapf(err, "table: gunzip %s", path)
		}
		defer gz.Close()
		r = gz
	}

	return ReadCSV(r)
}

// WriteFile writes the table to a CSV file, gzip-compressing when the path
// ends in .gz.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "table: create %s", path)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		if err := t.WriteCSV(gz); err != nil {
			return err
		}
		return eris.Wrapf(gz.Close(), "table: close gzip %s", path)
	}

	return t.WriteCSV(f)
}
