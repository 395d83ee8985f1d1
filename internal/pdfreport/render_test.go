package pdfreport

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/college-assistant/internal/collegesearch"
)

func sampleResult() collegesearch.PipelineResult {
	return collegesearch.PipelineResult{
		Request: collegesearch.Request{RequestID: "req-1", Query: "physics <colleges>"},
		Institutions: []collegesearch.InstitutionRecord{
			{Name: "Carleton College", City: "Northfield", State: "MN", Source: collegesearch.SourceRoster},
		},
		Source:   collegesearch.SourceRoster,
		Metadata: collegesearch.PipelineMetadata{Model: "gemini-<test>", CompletedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func TestBuildDocumentWrapsReport(t *testing.T) {
	doc, err := BuildDocument(sampleResult())
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	for _, want := range []string{
		"<!doctype html>",
		"<strong>Model:</strong> gemini-&lt;test&gt;",
		"<strong>Source:</strong> roster",
		"Carleton College",
		"<table>",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document missing %q:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "class='notice'") {
		t.Fatalf("unexpected unavailable notice")
	}
}

func TestBuildDocumentFlagsUnavailableData(t *testing.T) {
	r := sampleResult()
	r.DataUnavailable = true
	doc, err := BuildDocument(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc, "Institution data was unavailable") {
		t.Fatalf("missing unavailable notice:\n%s", doc)
	}
}

func TestRenderWithoutBrowser(t *testing.T) {
	r := &Renderer{}
	if r.Available() {
		t.Fatal("empty renderer should not be available")
	}
	if _, err := r.Render(context.Background(), sampleResult()); !errors.Is(err, ErrNoBrowser) {
		t.Fatalf("err = %v, want ErrNoBrowser", err)
	}
}

func TestRenderPDF(t *testing.T) {
	r := NewRenderer("")
	if !r.Available() {
		t.Skip("no chromium available")
	}
	pdf, err := r.Render(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a pdf: %q", pdf[:min(len(pdf), 16)])
	}
}

func TestPrintParamsFollowLayout(t *testing.T) {
	p := NewRenderer("/bin/true").WithLayout(Letter).printParams()
	if p.PaperWidth != 8.5 || p.PaperHeight != 11 || p.MarginBottom != 0.75 || p.MarginLeft != 0.45 {
		t.Fatalf("unexpected params %+v", p)
	}
	if !p.DisplayHeaderFooter || !strings.Contains(p.FooterTemplate, "pageNumber") {
		t.Fatalf("footer not configured: %+v", p)
	}

	a4 := NewRenderer("/bin/true").printParams()
	if a4.PaperWidth != A4.Width || a4.PaperHeight != A4.Height {
		t.Fatalf("default layout = %vx%v, want A4", a4.PaperWidth, a4.PaperHeight)
	}
}
