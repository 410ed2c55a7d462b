package doctor

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/starford/openkit/internal/models"
)

func docs(pairs ...string) []models.Document {
	var out []models.Document
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Document{Path: pairs[i], Content: pairs[i+1]})
	}
	return out
}

func TestCheckInlineLinks(t *testing.T) {
	cases := []struct {
		name string
		docs []models.Document
		want bool
	}{
		{"no links anywhere", docs("a.md", "# A\n\n## Related\n"), false},
		{"links only after Related", docs("a.md", "# A\n\n## Related\n\n- [[b.md]]\n"), false},
		{"link before Related", docs("a.md", "# A\nsee [[b.md]]\n## Related\n- [[c.md]]\n"), true},
		{"link without Related heading", docs("a.md", "# A\nsee [[b.md]]\n"), true},
		{
			"one qualifying document is enough",
			docs(
				"a.md", "# A\n## Related\n- [[b.md]]\n",
				"b.md", "# B\ninline [[a.md]]\n## Related\n",
			),
			true,
		},
		{"empty set", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := checkInlineLinks(tc.docs); got != tc.want {
				t.Errorf("checkInlineLinks = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckRelatedSections(t *testing.T) {
	hubs := []string{"A.md", "sub/B.md"}

	ok, err := checkRelatedSections(docs(
		"A.md", "## Related\n",
		"sub/B.md", "text\n## Related\n- x\n",
	), hubs)
	if err != nil || !ok {
		t.Fatalf("all hubs present: ok=%v err=%v", ok, err)
	}

	ok, err = checkRelatedSections(docs(
		"A.md", "## Related\n",
		"sub/B.md", "## Relations\n",
	), hubs)
	if err != nil || ok {
		t.Fatalf("missing heading: ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestCheckRelatedSections_MissingHubIsIOError(t *testing.T) {
	_, err := checkRelatedSections(docs("A.md", "## Related\n"), []string{"A.md", "sub/B.md"})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestCheckRelatedSections_StopsAtFirstFailingHub(t *testing.T) {
	ok, err := checkRelatedSections(docs("A.md", "no heading\n"), []string{"A.md", "missing.md"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected check to fail")
	}
}

func TestBrokenWikilinks(t *testing.T) {
	set := docs(
		"HUB-DOCS.md", "[[CONTEXT.md]] [[MISSING.md#x]] [[docs/CONTEXT.md]]",
		"CONTEXT.md", "[[memory/HUB-DOCS.md#top]] [[GONE.md]] [[ #only ]]",
	)
	broken := brokenWikilinks(set)
	want := []string{
		"HUB-DOCS.md -> [[MISSING.md]]",
		"CONTEXT.md -> [[GONE.md]]",
	}
	if len(broken) != len(want) {
		t.Fatalf("broken = %v, want %v", broken, want)
	}
	for i := range want {
		if got := broken[i].String(); got != want[i] {
			t.Errorf("broken[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestBrokenWikilinks_KeepsRawPrefix(t *testing.T) {
	broken := brokenWikilinks(docs("a.md", "[[docs/NOPE.md]]"))
	if len(broken) != 1 || broken[0].Target != "docs/NOPE.md" {
		t.Fatalf("broken = %+v", broken)
	}
}

func TestStaleDocs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	set := []models.Document{
		{Path: "fresh.md", UpdatedAt: now.Add(-time.Hour)},
		{Path: "edge.md", UpdatedAt: now.Add(-StaleAfter)},
		{Path: "old.md", UpdatedAt: now.Add(-StaleAfter - time.Second)},
		{Path: "future.md", UpdatedAt: now.Add(24 * time.Hour)},
	}
	if got := staleDocs(set, now, StaleAfter); got != 1 {
		t.Errorf("staleDocs = %d, want 1", got)
	}
}
