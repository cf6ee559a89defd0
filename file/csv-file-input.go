package file

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/stream"
)

// CSVUrlReader reads the URL column from a delimited file with a header row.
// Other columns are ignored.
type CSVUrlReader struct {
	log       logger.Logger
	csvReader *csv.Reader
	column    string
	colIdx    int
	rowCount  int
}

// NewCSVUrlReader reads the header from r and finds column, matching names case-insensitively after
// trimming spaces and any byte order mark.
// An error is returned if the header cannot be read or has no such column.
func NewCSVUrlReader(log logger.Logger, r io.Reader, column string) (*CSVUrlReader, error) {
	f := &CSVUrlReader{log: log, column: column, colIdx: -1}
	f.csvReader = csv.NewReader(r)
	f.csvReader.FieldsPerRecord = -1 // rows may be ragged.
	f.csvReader.LazyQuotes = true
	f.csvReader.ReuseRecord = true
	header, err := f.csvReader.Read()
	if err == io.EOF {
		return nil, errors.New("input is empty; expected a header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "error reading CSV header")
	}
	for idx, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if strings.EqualFold(name, column) {
			f.colIdx = idx
			break
		}
	}
	if f.colIdx < 0 {
		return nil, errors.Errorf("CSV header %v has no column %q", header, column)
	}
	log.Debug("CSVUrlReader found column ", column, " at index ", f.colIdx)
	return f, nil
}

// Next returns the next row of input or io.EOF when there are no more rows.
// Rows that are too short to contain the URL column are returned with an empty Url.
func (f *CSVUrlReader) Next() (stream.RawInputRow, error) {
	rec, err := f.csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return stream.RawInputRow{}, io.EOF
		}
		return stream.RawInputRow{}, errors.Wrap(err, "error reading CSV row")
	}
	f.rowCount++
	line, _ := f.csvReader.FieldPos(0)
	row := stream.RawInputRow{LineNumber: line}
	if f.colIdx < len(rec) {
		row.Url = strings.TrimSpace(rec[f.colIdx])
	} else {
		f.log.Debug("row at line ", line, " has no value for column ", f.column)
	}
	return row, nil
}

// RowCount returns the number of data rows read so far.
func (f *CSVUrlReader) RowCount() int {
	return f.rowCount
}
