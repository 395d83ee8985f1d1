package collegesearch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractNames(t *testing.T) {
	e := newTestExtractor(t)
	cases := []struct {
		text string
		want []string
	}{
		{
			text: "Consider Carleton College or the University of Minnesota.",
			want: []string{"Carleton College", "University of Minnesota"},
		},
		{
			text: "Both St. Olaf College and Massachusetts Institute of Technology have strong programs.",
			want: []string{"St. Olaf College", "Massachusetts Institute of Technology"},
		},
		{
			text: "The University of Minnesota. Both campuses are large.",
			want: []string{"University of Minnesota"},
		},
		{
			text: "Texas A&M University and College of William and Mary",
			want: []string{"Texas A&M University", "College of William and Mary"},
		},
		{
			text: "Consider the University of Minnesota and Carleton College.",
			want: []string{"University of Minnesota", "Carleton College"},
		},
		{
			text: "Look at the University of Michigan and Ohio State University.",
			want: []string{"University of Michigan", "Ohio State University"},
		},
		{
			text: "University of Chicago & Northwestern University both offer economics.",
			want: []string{"University of Chicago", "Northwestern University"},
		},
		{
			text: "Macalester College and Carleton College are close together.",
			want: []string{"Macalester College", "Carleton College"},
		},
		{
			text: "The College of William and Mary and Georgetown University.",
			want: []string{"College of William and Mary", "Georgetown University"},
		},
		{
			text: "A good college is hard to find. College is expensive.",
			want: []string{},
		},
		{
			text: "",
			want: []string{},
		},
	}
	for _, tc := range cases {
		got := e.Extract(tc.text)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("Extract(%q) mismatch (-want +got):\n%s", tc.text, diff)
		}
	}
}

func TestExtractDeduplicatesInOrder(t *testing.T) {
	e := newTestExtractor(t)
	got := e.Extract("Grinnell College is great. I loved Grinnell College and Carleton College.")
	if diff := cmp.Diff([]string{"Grinnell College", "Carleton College"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	e := newTestExtractor(t)
	text := "You could look at Oberlin College, Reed College, or the University of Chicago."
	first := e.Extract(text)
	second := e.Extract(text)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
}

func TestExtractCustomPatternUsesNameGroup(t *testing.T) {
	e, err := NewNameExtractor(ExtractorConfig{
		Patterns: []string{`attend (?P<name>[A-Z]{3,5})\b`},
	})
	if err != nil {
		t.Fatalf("NewNameExtractor: %v", err)
	}
	got := e.Extract("Many students attend UCLA or Reed College.")
	if diff := cmp.Diff([]string{"Reed College", "UCLA"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestNewNameExtractorRejectsBadPattern(t *testing.T) {
	_, err := NewNameExtractor(ExtractorConfig{Patterns: []string{"("}})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "extract.patterns" {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestBuildNamePatternNeedsTokens(t *testing.T) {
	if _, err := BuildNamePattern([]string{" ", ""}); err == nil {
		t.Fatal("expected error")
	}
}
