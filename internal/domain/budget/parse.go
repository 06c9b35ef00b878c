package budget

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// maxLoggedParseErrors caps how many CSV structure problems are logged per file.
const maxLoggedParseErrors = 3

var (
	oleSignature = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	zipSignature = []byte("PK\x03\x04")
)

// Parser turns uploaded files into canonical rows.
type Parser struct {
	Schema Schema
}

func NewParser() *Parser {
	return &Parser{Schema: DefaultSchema()}
}

// ParseRows picks a strategy from the file extension. Spreadsheets read the
// first sheet only; anything that is not .xlsx/.xls is read as CSV.
//
// .xls is sniffed: BIFF files go to the legacy reader, OOXML files saved
// under the old extension go to excelize, and anything else (usually a
// text export renamed by the finance system) is read as CSV.
func (p *Parser) ParseRows(ctx context.Context, data []byte, filename string) ([]Row, error) {
	var (
		records []Record
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		records, err = readWorkbook(data)
	case ".xls":
		switch {
		case bytes.HasPrefix(data, oleSignature):
			records, err = readLegacyWorkbook(data)
		case bytes.HasPrefix(data, zipSignature):
			records, err = readWorkbook(data)
		default:
			records = readCSV(ctx, data)
		}
	default:
		records = readCSV(ctx, data)
	}
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if row, ok := p.Schema.Normalize(rec); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// readCSV never fails: malformed lines are logged and skipped, and lines
// with the wrong number of fields are logged and kept.
func readCSV(ctx context.Context, data []byte) []Record {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	// a quote inside an unquoted field (12" mains) is literal text
	r.LazyQuotes = true

	var (
		header   []string
		records  []Record
		problems []string
		count    int
	)
	report := func(msg string) {
		if count < maxLoggedParseErrors {
			problems = append(problems, msg)
		}
		count++
	}

	for {
		line, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report(err.Error())
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			break
		}
		if header == nil {
			header = uniqueHeaders(line)
			continue
		}
		if len(line) != len(header) {
			pos, _ := r.FieldPos(0)
			report(fmt.Sprintf("record on line %d: expected %d fields, got %d", pos, len(header), len(line)))
		}
		records = append(records, csvRecord(header, line))
	}

	if count > 0 {
		zerolog.Ctx(ctx).Warn().
			Int("errors", count).
			Strs("first_errors", problems).
			Int("rows_recovered", len(records)).
			Msg("csv parse errors")
	}
	return records
}

// csvRecord pairs cells with headers. Short lines leave trailing headers
// out of the record; extra cells are ignored.
func csvRecord(header, line []string) Record {
	n := min(len(header), len(line))
	rec := make(Record, 0, n)
	for i := 0; i < n; i++ {
		rec = append(rec, Field{Key: header[i], Value: line[i]})
	}
	return rec
}

// uniqueHeaders suffixes repeated header names with _1, _2, ...
func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		if c, ok := seen[h]; ok {
			seen[h] = c + 1
			out[i] = fmt.Sprintf("%s_%d", h, c+1)
			continue
		}
		seen[h] = 0
		out[i] = h
	}
	return out
}

func readWorkbook(data []byte) ([]Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	return workbookRecords(rows), nil
}

// readLegacyWorkbook reads BIFF (.xls) files. The reader panics on some
// malformed streams, so panics surface as ErrUnreadableWorkbook.
func readLegacyWorkbook(data []byte) (records []Record, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			records, err = nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, rec)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	if wb == nil {
		return nil, fmt.Errorf("%w: no workbook stream", ErrUnreadableWorkbook)
	}
	if wb.NumSheets() == 0 {
		return nil, nil
	}

	sheet := wb.GetSheet(0)
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		rows = append(rows, legacyCells(sheet, i))
	}
	return workbookRecords(rows), nil
}

// legacyCells returns nil for row indexes the sheet has no record for;
// WorkSheet.Row dereferences a nil row in that case.
func legacyCells(sheet *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()
	row := sheet.Row(i)
	cells = make([]string, row.LastCol())
	for c := row.FirstCol(); c < row.LastCol(); c++ {
		cells[c] = row.Col(c)
	}
	return cells
}

// workbookRecords turns a sheet grid into records keyed by its first row.
func workbookRecords(rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}

	header := workbookHeaders(rows[0])
	records := make([]Record, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		if blankRow(cells) {
			continue
		}
		// every header gets a field; missing or empty cells are nil
		rec := make(Record, len(header))
		for i, h := range header {
			rec[i] = Field{Key: h}
			if i < len(cells) && cells[i] != "" {
				rec[i].Value = cells[i]
			}
		}
		records = append(records, rec)
	}
	return records
}

func workbookHeaders(raw []string) []string {
	named := make([]string, len(raw))
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = "__EMPTY"
		}
		named[i] = h
	}
	return uniqueHeaders(named)
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
