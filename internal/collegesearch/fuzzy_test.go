package collegesearch

import (
	"errors"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"University of Minnesota-Twin Cities": "university of minnesota twin cities",
		"  Université   Laval ":               "universite laval",
		"Texas A&M University":                "texas a m university",
		"---":                                 "",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q)=%q want %q", in, got, want)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("abc", "abc"); got != 100 {
		t.Fatalf("identical=%v", got)
	}
	if got := Ratio("", ""); got != 100 {
		t.Fatalf("both empty=%v", got)
	}
	if got := Ratio("abc", ""); got != 0 {
		t.Fatalf("one empty=%v", got)
	}
	// 2*M/T with M=4 matching chars and T=13, rounded
	if got := Ratio("kitten", "sitting"); got < 61 || got > 62 {
		t.Fatalf("kitten/sitting=%v", got)
	}
}

func TestTokenSetRatio(t *testing.T) {
	a := NormalizeName("Univ of Minnesota Twin Cities")
	b := NormalizeName("University of Minnesota-Twin Cities")
	if got := TokenSetRatio(a, b); got < DefaultThreshold {
		t.Fatalf("expected >= %v, got %v", DefaultThreshold, got)
	}
	if got := TokenSetRatio("carleton college", "college carleton"); got != 100 {
		t.Fatalf("reordered=%v", got)
	}
	if got := TokenSetRatio("carleton college", "carleton college northfield"); got != 100 {
		t.Fatalf("subset=%v", got)
	}
	if got := TokenSetRatio("ocean state college", "university of minnesota twin cities"); got >= DefaultThreshold {
		t.Fatalf("unrelated names scored %v", got)
	}
	if got := TokenSetRatio("", "anything"); got != 0 {
		t.Fatalf("empty=%v", got)
	}
	if got := TokenSetRatio("", ""); got != 100 {
		t.Fatalf("empty=%v", got)
	}
}

func TestTokenSortRatio(t *testing.T) {
	if got := TokenSortRatio("b a", "a b"); got != 100 {
		t.Fatalf("got %v", got)
	}
}

func TestScorerByName(t *testing.T) {
	for _, name := range []string{"", ScorerTokenSet, ScorerTokenSort, ScorerRatio} {
		if s, err := ScorerByName(name); err != nil || s == nil {
			t.Fatalf("ScorerByName(%q): %v", name, err)
		}
	}
	_, err := ScorerByName("jaro")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestScoresAreWholeNumbers(t *testing.T) {
	for _, s := range []Scorer{Ratio, TokenSortRatio, TokenSetRatio} {
		got := s("macalester college", "carleton college")
		if got != float64(int(got)) || got <= 0 || got >= 100 {
			t.Fatalf("score %v not an integer in (0,100)", got)
		}
	}
}
