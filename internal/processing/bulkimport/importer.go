package bulkimport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aidesbz/shortlink/internal/processing/shortlinks"
	"github.com/xuri/excelize/v2"
)

// Columns is the fixed logical layout of an import spreadsheet. Rows are
// addressed positionally; the incoming header row is discarded and replaced
// with these names on export.
var Columns = [...]string{
	"name", "firstName", "email", "phone", "url",
	"salutation", "code", "postalCode", "utm", "city",
}

const (
	colPhone    = 3
	colURL      = 4
	colCampaign = 8

	sheetName = "FileSheet"
)

// LinkCreator mints and persists one link record per eligible row.
type LinkCreator interface {
	CreateLink(ctx context.Context, in shortlinks.CreateLinkInput) (*shortlinks.Link, error)
}

// Importer reads a tabular upload, shortens each row's URL, and renders the
// annotated workbook. Row order is preserved; creates are independent and not
// transactional across the batch.
type Importer struct {
	links LinkCreator
}

func NewImporter(links LinkCreator) *Importer {
	return &Importer{links: links}
}

// Result carries the rendered workbook and per-batch counters.
type Result struct {
	File    *bytes.Buffer
	Rows    int
	Created int
}

// Process transforms one uploaded workbook. A row with a non-empty url cell
// gets a link record and its cell rewritten to the short link; an empty url
// cell passes through untouched. A create failure aborts the batch with no
// output (rows already persisted stay persisted).
func (imp *Importer) Process(ctx context.Context, upload io.Reader) (*Result, error) {
	in, err := excelize.OpenReader(upload)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer in.Close()

	rows, err := in.GetRows(in.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) > 0 {
		rows = rows[1:] // header row is positional, not trusted
	}

	out := excelize.NewFile()
	defer out.Close()
	out.SetSheetName(out.GetSheetName(0), sheetName)

	if err := writeHeader(out); err != nil {
		return nil, err
	}

	created := 0
	for i, raw := range rows {
		row := padRow(raw)

		if url := strings.TrimSpace(row[colURL]); url != "" {
			link, err := imp.links.CreateLink(ctx, shortlinks.CreateLinkInput{
				URL:      url,
				Phone:    row[colPhone],
				Campaign: row[colCampaign],
			})
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			row[colURL] = link.Short
			created++
		}

		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := out.SetCellStr(sheetName, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := out.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	return &Result{File: buf, Rows: len(rows), Created: created}, nil
}

func writeHeader(out *excelize.File) error {
	for col, heading := range Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := out.SetCellStr(sheetName, cell, heading); err != nil {
			return err
		}
	}

	bold, err := out.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	return out.SetCellStyle(sheetName, "A1", last, bold)
}

// padRow widens a sparse row to the fixed column count. excelize trims
// trailing empty cells.
func padRow(raw []string) []string {
	row := make([]string, len(Columns))
	copy(row, raw)
	return row
}
