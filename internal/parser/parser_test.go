package parser

import (
	"testing"
)

func TestRawMatches_Order(t *testing.T) {
	got := RawMatches("See [[A.md]] then [[b/C.md#intro]].\nAgain [[A.md]].")
	want := []string{"A.md", "b/C.md#intro", "A.md"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRawMatches_NoClosingBracket(t *testing.T) {
	if got := RawMatches("broken [[A.md] and [[]]"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestSplitTarget(t *testing.T) {
	cases := map[string]string{
		"A.md":           "A.md",
		"  A.md  ":       "A.md",
		"A.md#section":   "A.md",
		"A.md # a # b":   "A.md",
		"#only-fragment": "",
		"   ":            "",
		"dir/B.md#x#y":   "dir/B.md",
	}
	for in, want := range cases {
		if got := SplitTarget(in); got != want {
			t.Errorf("SplitTarget(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"HUB-DOCS.md":                      "HUB-DOCS.md",
		"docs/HUB-DOCS.md":                 "HUB-DOCS.md",
		"memory/HUB-DOCS.md":               "HUB-DOCS.md",
		"openkit-memory/HUB-DOCS.md":       "HUB-DOCS.md",
		"memory/docs/CONTEXT.md":           "CONTEXT.md",
		"requirements/HUB-REQUIREMENTS.md": "requirements/HUB-REQUIREMENTS.md",
		"mydocs/A.md":                      "mydocs/A.md",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWikilinks_SkipsEmptyTargets(t *testing.T) {
	links := Wikilinks("x.md", "[[ ]] [[#frag]] [[docs/A.md#top]]")
	if len(links) != 1 {
		t.Fatalf("len(links) = %d, want 1", len(links))
	}
	l := links[0]
	if l.Source != "x.md" || l.Raw != "docs/A.md" || l.Target != "A.md" {
		t.Errorf("link = %+v", l)
	}
}

func TestHasWikilink(t *testing.T) {
	if !HasWikilink("text [[A.md]]") {
		t.Error("expected match")
	}
	if HasWikilink("text [A.md] and [[]]") {
		t.Error("expected no match")
	}
}
