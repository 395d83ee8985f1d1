package collegesearch

import "testing"

func TestFilterWholeWordDenylist(t *testing.T) {
	f := NewFilter(DefaultDenylist)
	cases := []struct {
		query string
		want  bool
	}{
		{"tell me about politics and college", false},
		{"engineering colleges in MN", true},
		{"local politics club", false},
		{"POLITICS", false},
		{"politics, economics", false},
		{"colleges with a political science major", true},
		{"pharmacy programs for drugstore managers", true},
		{"schools near Alcoholics Anonymous meetings", true},
		{"", true},
	}
	for _, tc := range cases {
		if got := f.Allowed(tc.query); got != tc.want {
			t.Fatalf("Allowed(%q)=%t want %t", tc.query, got, tc.want)
		}
	}
}

func TestFilterMultiWordTerm(t *testing.T) {
	f := NewFilter([]string{"Online  Gambling", " "})
	if f.Allowed("colleges that teach online gambling law") {
		t.Fatal("expected phrase to be rejected")
	}
	if !f.Allowed("online courses about gambling history") {
		t.Fatal("expected split phrase to be allowed")
	}
	if got := f.Terms(); len(got) != 1 || got[0] != "online gambling" {
		t.Fatalf("unexpected terms %v", got)
	}
}

func TestFilterEmptyDenylistAllowsEverything(t *testing.T) {
	f := NewFilter(nil)
	if !f.Allowed("politics") {
		t.Fatal("expected empty denylist to allow")
	}
	var nilFilter *Filter
	if !nilFilter.Allowed("politics") {
		t.Fatal("expected nil filter to allow")
	}
}
