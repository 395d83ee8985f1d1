package roster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/joelkehle/college-assistant/internal/collegesearch"
)

const hdSample = "\ufeffUNITID,INSTNM,IALIAS,CITY,STABBR,WEBADDR\n" +
	"174066,University of Minnesota-Twin Cities,UMN,Minneapolis,MN,www.umn.edu/\n" +
	"173258,\"Carleton College\",,Northfield,mn,www.carleton.edu/\n" +
	"999999,   ,,Nowhere,XX,\n" +
	"173902,Macalester College,,Saint Paul,MN\n"

func TestParseCSVIPEDSColumns(t *testing.T) {
	r, err := ParseCSV(strings.NewReader(hdSample), "hd.csv", ColumnMap{})
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if r.NameColumn != "INSTNM" || r.Source != "hd.csv" {
		t.Fatalf("unexpected roster header %+v", r)
	}
	want := []collegesearch.InstitutionRecord{
		{UnitID: "174066", Name: "University of Minnesota-Twin Cities", City: "Minneapolis", State: "MN", URL: "www.umn.edu/", Source: collegesearch.SourceRoster},
		{UnitID: "173258", Name: "Carleton College", City: "Northfield", State: "MN", URL: "www.carleton.edu/", Source: collegesearch.SourceRoster},
		{UnitID: "173902", Name: "Macalester College", City: "Saint Paul", State: "MN", Source: collegesearch.SourceRoster},
	}
	if diff := cmp.Diff(want, r.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseCSVCustomColumnsCaseInsensitive(t *testing.T) {
	data := "id,school_name,st\n1,Reed College,OR\n"
	r, err := ParseCSV(strings.NewReader(data), "custom", ColumnMap{UnitID: "ID", Name: "School_Name", State: "ST"})
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if r.NameColumn != "school_name" || len(r.Records) != 1 || r.Records[0].State != "OR" || r.Records[0].UnitID != "1" {
		t.Fatalf("unexpected roster %+v", r)
	}
}

func TestParseCSVMissingNameColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("UNITID,NAME\n1,Reed College\n"), "bad.csv", ColumnMap{})
	var schemaErr *collegesearch.SchemaError
	if !errors.As(err, &schemaErr) || schemaErr.Column != "INSTNM" {
		t.Fatalf("expected schema error, got %v", err)
	}
	if diff := cmp.Diff([]string{"UNITID", "NAME"}, schemaErr.Have); diff != "" {
		t.Fatalf("have mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""), "empty.csv", ColumnMap{})
	var schemaErr *collegesearch.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestParseCSVWindows1252(t *testing.T) {
	// 0xE9 is "é" in Windows-1252 and invalid on its own in UTF-8.
	data := []byte("UNITID,INSTNM\n1,Universit\xe9 Laval\n")
	r, err := ParseCSV(strings.NewReader(string(data)), "latin.csv", ColumnMap{})
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if r.Records[0].Name != "Université Laval" {
		t.Fatalf("name=%q", r.Records[0].Name)
	}
}

func TestFileSourceLoadsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hd.csv")
	if err := os.WriteFile(path, []byte(hdSample), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(path, DefaultColumns)
	first, err := src.LoadRoster(context.Background())
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := src.LoadRoster(context.Background())
	if err != nil {
		t.Fatalf("second LoadRoster: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cached roster differs (-first +second):\n%s", diff)
	}
}

func TestFileSourceMissingFileIsUnavailable(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.csv"), DefaultColumns)
	_, err := src.LoadRoster(context.Background())
	if !errors.Is(err, collegesearch.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}
