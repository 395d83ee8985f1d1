package collegesearch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testRoster() Roster {
	return Roster{
		Source:     "test",
		Columns:    []string{"UNITID", "INSTNM", "CITY", "STABBR"},
		NameColumn: "INSTNM",
		Records: []InstitutionRecord{
			{UnitID: "174066", Name: "University of Minnesota-Twin Cities", City: "Minneapolis", State: "MN", Source: SourceRoster},
			{UnitID: "173258", Name: "Carleton College", City: "Northfield", State: "MN", Source: SourceRoster},
			{UnitID: "174233", Name: "University of Minnesota-Duluth", City: "Duluth", State: "MN", Source: SourceRoster},
			{UnitID: "173902", Name: "Macalester College", City: "Saint Paul", State: "MN", Source: SourceRoster},
		},
	}
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(nil, DefaultThreshold)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func recordNames(records []InstitutionRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestResolveAcceptsCloseVariant(t *testing.T) {
	r := newTestResolver(t)
	got, matches, err := r.Resolve([]string{"Univ of Minnesota Twin Cities"}, testRoster())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"University of Minnesota-Twin Cities"}, recordNames(got)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if len(matches) != 1 || !matches[0].Accepted || matches[0].Score < DefaultThreshold {
		t.Fatalf("unexpected match %+v", matches)
	}
}

func TestResolveRejectsUnknownName(t *testing.T) {
	r := newTestResolver(t)
	got, matches, err := r.Resolve([]string{"Ocean State College"}, testRoster())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %v", recordNames(got))
	}
	if len(matches) != 1 || matches[0].Accepted {
		t.Fatalf("expected rejected match, got %+v", matches)
	}
}

func TestResolveDeduplicatesAndKeepsOrder(t *testing.T) {
	r := newTestResolver(t)
	got, matches, err := r.Resolve([]string{
		"Macalester College",
		"Carleton College",
		"Ocean State College",
		"Carleton College Northfield",
		"Macalester College",
	}, testRoster())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"Macalester College", "Carleton College"}, recordNames(got)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if len(matches) != 5 {
		t.Fatalf("expected one match result per candidate, got %d", len(matches))
	}
}

func TestResolveTieGoesToCloserName(t *testing.T) {
	r := newTestResolver(t)
	// Both campuses contain every candidate word, so the token-set score ties at 100.
	got, matches, err := r.Resolve([]string{"University of Minnesota"}, testRoster())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if matches[0].Score != 100 {
		t.Fatalf("expected tied score 100, got %v", matches[0].Score)
	}
	if diff := cmp.Diff([]string{"University of Minnesota-Duluth"}, recordNames(got)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveFullTieGoesToEarlierRow(t *testing.T) {
	r := newTestResolver(t)
	roster := testRoster()
	roster.Records = []InstitutionRecord{
		{UnitID: "1", Name: "Saint John's University"},
		{UnitID: "2", Name: "Saint John's University"},
	}
	got, _, err := r.Resolve([]string{"Saint Johns University"}, roster)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || got[0].UnitID != "1" {
		t.Fatalf("expected first row, got %+v", got)
	}
}

func TestResolveEmptyCandidates(t *testing.T) {
	r := newTestResolver(t)
	got, matches, err := r.Resolve(nil, Roster{})
	if err != nil || got == nil || len(got) != 0 || matches != nil {
		t.Fatalf("got=%v matches=%v err=%v", got, matches, err)
	}
}

func TestResolveEmptyRosterIsDataUnavailable(t *testing.T) {
	r := newTestResolver(t)
	roster := testRoster()
	roster.Records = nil
	_, _, err := r.Resolve([]string{"Carleton College"}, roster)
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestResolveSchemaMismatch(t *testing.T) {
	r := newTestResolver(t)
	roster := testRoster()
	roster.Columns = []string{"UNITID", "NAME"}
	_, _, err := r.Resolve([]string{"Carleton College"}, roster)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) || schemaErr.Column != "INSTNM" {
		t.Fatalf("expected schema error, got %v", err)
	}
	if errors.Is(err, ErrDataUnavailable) {
		t.Fatal("schema error must not read as data unavailable")
	}

	roster.NameColumn = ""
	if _, _, err := r.Resolve([]string{"x"}, roster); !errors.As(err, &schemaErr) {
		t.Fatalf("expected schema error for unset column, got %v", err)
	}
}

func TestNewResolverValidatesThreshold(t *testing.T) {
	for _, th := range []float64{-1, 100.5} {
		if _, err := NewResolver(nil, th); err == nil {
			t.Fatalf("expected error for threshold %v", th)
		}
	}
	r, err := NewResolver(Ratio, 0)
	if err != nil || r.Threshold() != 0 {
		t.Fatalf("r=%v err=%v", r, err)
	}
}

func TestResolveNamesJoinedByConjunction(t *testing.T) {
	e := newTestExtractor(t)
	r := newTestResolver(t)
	candidates := e.Extract("Consider Macalester College and the University of Minnesota Twin Cities and Carleton College.")
	got, matches, err := r.Resolve(candidates, testRoster())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"Macalester College", "University of Minnesota-Twin Cities", "Carleton College"}
	if diff := cmp.Diff(want, recordNames(got)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s\ncandidates: %q", diff, candidates)
	}
	for _, m := range matches {
		if !m.Accepted {
			t.Fatalf("candidate %q not accepted: %+v", m.Candidate, m)
		}
	}
}
