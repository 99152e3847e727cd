package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"docadmin-backend-go/internal/models"
)

// ExpectedHeader returns the CSV header for a schema: the id column followed
// by the field names in schema order.
func ExpectedHeader(fields []models.FieldDef) []string {
	header := make([]string, 0, len(fields)+1)
	header = append(header, "id")
	for _, f := range models.SortFields(fields) {
		header = append(header, f.Name)
	}
	return header
}

// ExportCSV serializes a document set to RFC4180 CSV in schema order. Values
// containing commas, quotes or newlines are quoted with doubled quotes.
func ExportCSV(docs []models.Document, fields []models.FieldDef) ([]byte, error) {
	ordered := models.SortFields(fields)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ExpectedHeader(fields)); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	row := make([]string, len(ordered)+1)
	for _, doc := range docs {
		row[0] = doc.ID
		for i, f := range ordered {
			row[i+1] = StringifyValue(doc.Get(f.Name))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row for document %q: %w", doc.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv output: %w", err)
	}
	return buf.Bytes(), nil
}

// csvRow is one parsed import row: the optional document id plus the raw
// string value per schema field, ready for coercion.
type csvRow struct {
	Line   int
	ID     string
	Values map[string]string
}

// parseCSV reads an import payload. The first record must equal the expected
// header exactly or the whole import is rejected with ErrHeaderMismatch
// before any row is looked at. Rows with the wrong column count are returned
// in skipped, not fatal to the batch.
func parseCSV(data []byte, fields []models.FieldDef) (rows []csvRow, skipped []RowError, err error) {
	ordered := models.SortFields(fields)
	expected := ExpectedHeader(fields)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // column-count errors are handled per row below

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unable to read header row: %v", ErrHeaderMismatch, err)
	}
	if !equalHeader(header, expected) {
		return nil, nil, fmt.Errorf("%w: expected %v, got %v", ErrHeaderMismatch, expected, header)
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped = append(skipped, RowError{Line: parseErr.Line, Message: parseErr.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("failed to read csv rows: %w", err)
		}
		// Physical line the row starts on; quoted fields may span several
		// lines, so a per-record counter would drift.
		line, _ := r.FieldPos(0)
		if len(record) != len(expected) {
			skipped = append(skipped, RowError{
				Line:    line,
				Message: fmt.Sprintf("expected %d columns, got %d", len(expected), len(record)),
			})
			continue
		}

		values := make(map[string]string, len(ordered))
		for i, f := range ordered {
			values[f.Name] = record[i+1]
		}
		rows = append(rows, csvRow{Line: line, ID: record[0], Values: values})
	}
	return rows, skipped, nil
}

func equalHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
