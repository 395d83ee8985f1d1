package collegesearch

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var reportRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

func BuildReportMarkdown(result PipelineResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# College Information Assistant\n\n")
	fmt.Fprintf(&b, "- Query: %s\n", safe(result.Request.Query))
	fmt.Fprintf(&b, "- Request ID: %s\n", safe(result.Request.RequestID))
	fmt.Fprintf(&b, "- Date: %s\n\n", reportTime(result).Format(time.RFC3339))

	for _, n := range result.Notices {
		fmt.Fprintf(&b, "> %s\n\n", n)
	}

	if strings.TrimSpace(result.Interpretation.RawText) != "" {
		fmt.Fprintf(&b, "## Assistant Response\n\n%s\n\n", strings.TrimSpace(result.Interpretation.RawText))
	}
	if len(result.Interpretation.CandidateNames) > 0 {
		fmt.Fprintf(&b, "## Extracted Schools\n\n")
		for _, name := range result.Interpretation.CandidateNames {
			fmt.Fprintf(&b, "- %s\n", escapeCell(name))
		}
		b.WriteString("\n")
	}

	buildResultsTable(&b, result)
	buildMatchTable(&b, result)
	return b.String()
}

func buildResultsTable(b *strings.Builder, result PipelineResult) {
	fmt.Fprintf(b, "## Institutions\n\n")
	if result.Lookup != nil {
		if result.Lookup.State != "" {
			fmt.Fprintf(b, "Searched College Scorecard for `%s` in `%s`.\n\n", result.Lookup.Keyword, result.Lookup.State)
		} else {
			fmt.Fprintf(b, "Searched College Scorecard for `%s`.\n\n", result.Lookup.Keyword)
		}
	}
	if len(result.Institutions) == 0 {
		if result.DataUnavailable {
			fmt.Fprintf(b, "No results: institution data was unavailable.\n\n")
		} else {
			fmt.Fprintf(b, "No matching institutions found.\n\n")
		}
		return
	}
	fmt.Fprintf(b, "| # | Name | City | State | Admission Rate |\n")
	fmt.Fprintf(b, "|---|---|---|---|---|\n")
	for i, rec := range result.Institutions {
		name := escapeCell(rec.Name)
		if rec.URL != "" {
			name = fmt.Sprintf("[%s](%s)", name, websiteURL(rec.URL))
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s | %s |\n", i+1, name, safe(escapeCell(rec.City)), safe(rec.State), formatRate(rec.AdmissionRate))
	}
	b.WriteString("\n")
}

func buildMatchTable(b *strings.Builder, result PipelineResult) {
	if len(result.Matches) == 0 {
		return
	}
	fmt.Fprintf(b, "## Roster Matching\n\n")
	fmt.Fprintf(b, "| Candidate | Best Roster Match | Score | Accepted |\n")
	fmt.Fprintf(b, "|---|---|---|---|\n")
	for _, m := range result.Matches {
		best := "n/a"
		if m.Record != nil {
			best = escapeCell(m.Record.Name)
		}
		fmt.Fprintf(b, "| %s | %s | %.1f | %t |\n", escapeCell(m.Candidate), best, m.Score, m.Accepted)
	}
	b.WriteString("\n")
}

// RenderReportHTML converts a markdown report to an HTML fragment.
func RenderReportHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := reportRenderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func reportTime(result PipelineResult) time.Time {
	if !result.Metadata.CompletedAt.IsZero() {
		return result.Metadata.CompletedAt
	}
	return time.Now()
}

func formatRate(rate *float64) string {
	if rate == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *rate*100)
}

func websiteURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func safe(s string) string {
	if strings.TrimSpace(s) == "" {
		return "n/a"
	}
	return s
}
