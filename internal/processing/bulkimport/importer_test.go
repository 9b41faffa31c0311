package bulkimport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aidesbz/shortlink/internal/processing/shortlinks"
	"github.com/xuri/excelize/v2"
)

type mockCreator struct {
	created []shortlinks.CreateLinkInput
	err     error
}

func (m *mockCreator) CreateLink(_ context.Context, in shortlinks.CreateLinkInput) (*shortlinks.Link, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, in)
	code := fmt.Sprintf("cd%03d", len(m.created))
	return &shortlinks.Link{
		Code:     code,
		URL:      in.URL,
		Short:    "https://aides.bz/" + code,
		Phone:    in.Phone,
		Campaign: in.Campaign,
	}, nil
}

func buildWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellStr(sheet, cell, value); err != nil {
				t.Fatal(err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func readRows(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func dataRow(name, phone, url, utm string) []string {
	return []string{name, "first", "a@b.c", phone, url, "mr", "x", "75000", utm, "Paris"}
}

func TestProcess_RewritesURLCell(t *testing.T) {
	creator := &mockCreator{}
	imp := NewImporter(creator)

	in := buildWorkbook(t, [][]string{
		{"nom", "prenom", "mail", "phone", "lien", "civilite", "code", "code_postal", "utm", "ville"},
		dataRow("Dupont", "0611111111", "https://example.com/a", "spring"),
	})

	res, err := imp.Process(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows != 1 || res.Created != 1 {
		t.Fatalf("got rows=%d created=%d, want 1/1", res.Rows, res.Created)
	}
	if len(creator.created) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(creator.created))
	}
	if creator.created[0].Campaign != "spring" {
		t.Errorf("persisted campaign %q, want %q", creator.created[0].Campaign, "spring")
	}
	if creator.created[0].Phone != "0611111111" {
		t.Errorf("persisted phone %q, want passthrough", creator.created[0].Phone)
	}

	rows := readRows(t, res.File)
	if len(rows) != 2 {
		t.Fatalf("output has %d rows, want header + 1", len(rows))
	}
	for i, want := range Columns {
		if rows[0][i] != want {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], want)
		}
	}
	if rows[1][colURL] != "https://aides.bz/cd001" {
		t.Errorf("url cell = %q, want rewritten short link", rows[1][colURL])
	}
	if rows[1][0] != "Dupont" {
		t.Errorf("name cell = %q, want passthrough", rows[1][0])
	}
}

func TestProcess_EmptyURLPassesThrough(t *testing.T) {
	creator := &mockCreator{}
	imp := NewImporter(creator)

	in := buildWorkbook(t, [][]string{
		{"nom", "prenom", "mail", "phone", "lien", "civilite", "code", "code_postal", "utm", "ville"},
		dataRow("NoLink", "0622222222", "", "spring"),
	})

	res, err := imp.Process(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 0 {
		t.Errorf("created = %d, want 0", res.Created)
	}
	if len(creator.created) != 0 {
		t.Errorf("no record should be persisted for an empty url cell")
	}

	rows := readRows(t, res.File)
	if len(rows) != 2 {
		t.Fatalf("output has %d rows, want header + 1", len(rows))
	}
	// excelize trims trailing empties; the url cell must be absent or empty.
	if len(rows[1]) > colURL && rows[1][colURL] != "" {
		t.Errorf("url cell = %q, want empty", rows[1][colURL])
	}
}

func TestProcess_PreservesRowOrder(t *testing.T) {
	creator := &mockCreator{}
	imp := NewImporter(creator)

	in := buildWorkbook(t, [][]string{
		{"nom", "prenom", "mail", "phone", "lien", "civilite", "code", "code_postal", "utm", "ville"},
		dataRow("row1", "01", "https://example.com/1", "c"),
		dataRow("row2", "02", "", "c"),
		dataRow("row3", "03", "https://example.com/3", "c"),
	})

	res, err := imp.Process(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	rows := readRows(t, res.File)
	if len(rows) != 4 {
		t.Fatalf("output has %d rows, want header + 3", len(rows))
	}
	for i, name := range []string{"row1", "row2", "row3"} {
		if rows[i+1][0] != name {
			t.Errorf("row %d name = %q, want %q", i+1, rows[i+1][0], name)
		}
	}
	if rows[1][colURL] != "https://aides.bz/cd001" {
		t.Errorf("row1 url = %q", rows[1][colURL])
	}
	if rows[3][colURL] != "https://aides.bz/cd002" {
		t.Errorf("row3 url = %q", rows[3][colURL])
	}
}

func TestProcess_CreateFailureAbortsBatch(t *testing.T) {
	creator := &mockCreator{err: errors.New("store unavailable")}
	imp := NewImporter(creator)

	in := buildWorkbook(t, [][]string{
		{"nom", "prenom", "mail", "phone", "lien", "civilite", "code", "code_postal", "utm", "ville"},
		dataRow("row1", "01", "https://example.com/1", "c"),
	})

	if _, err := imp.Process(context.Background(), in); err == nil {
		t.Fatal("expected create failure to abort the batch")
	}
}

func TestProcess_NotAWorkbook(t *testing.T) {
	imp := NewImporter(&mockCreator{})

	if _, err := imp.Process(context.Background(), bytes.NewBufferString("not an xlsx")); err == nil {
		t.Fatal("expected error for malformed upload")
	}
}

func TestProcess_HeaderOnly(t *testing.T) {
	imp := NewImporter(&mockCreator{})

	in := buildWorkbook(t, [][]string{
		{"nom", "prenom", "mail", "phone", "lien", "civilite", "code", "code_postal", "utm", "ville"},
	})

	res, err := imp.Process(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows != 0 || res.Created != 0 {
		t.Errorf("got rows=%d created=%d, want 0/0", res.Rows, res.Created)
	}

	rows := readRows(t, res.File)
	if len(rows) != 1 {
		t.Fatalf("output has %d rows, want header only", len(rows))
	}
}
