package diff

import (
	"strings"
	"testing"

	"github.com/podraft/podraft/catalog"
)

func mustParse(t *testing.T, text string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return c
}

func msgids(entries []*catalog.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.MsgID
	}
	return out
}

func TestExtractNewAndChangedInCurrentOrder(t *testing.T) {
	base := mustParse(t, `msgid ""
msgstr ""

msgid "x"
msgstr ""

msgid "y"
msgstr ""
`)
	current := mustParse(t, `msgid ""
msgstr ""

msgid "x2"
msgstr ""

msgid "y"
msgstr ""

msgid "z"
msgstr ""
`)

	got := Extract(base, current)
	want := []string{"x2", "z"}
	if len(got) != 2 || got[0].MsgID != want[0] || got[1].MsgID != want[1] {
		t.Fatalf("Extract = %v, want %v", msgids(got), want)
	}
}

func TestExtractSkipsReviewedEntries(t *testing.T) {
	base := mustParse(t, `msgid ""
msgstr ""
`)
	current := mustParse(t, `msgid ""
msgstr ""

msgid "reviewed"
msgstr "검토됨"

#, fuzzy
msgid "draft"
msgstr "초안"

msgid "empty"
msgstr ""
`)

	got := Extract(base, current)
	want := []string{"draft", "empty"}
	if len(got) != 2 || got[0].MsgID != want[0] || got[1].MsgID != want[1] {
		t.Fatalf("Extract = %v, want %v", msgids(got), want)
	}
}

func TestExtractIgnoresRemovedEntries(t *testing.T) {
	base := mustParse(t, `msgid ""
msgstr ""

msgid "removed"
msgstr ""
`)
	current := mustParse(t, `msgid ""
msgstr ""
`)

	if got := Extract(base, current); len(got) != 0 {
		t.Fatalf("Extract = %v, want empty", msgids(got))
	}
}

func TestExtractDetectsPluralSourceChange(t *testing.T) {
	base := mustParse(t, `msgid ""
msgstr ""

msgid "file"
msgid_plural "files"
msgstr[0] ""
`)
	current := mustParse(t, `msgid ""
msgstr ""

msgid "file"
msgid_plural "the files"
msgstr[0] ""
`)

	got := Extract(base, current)
	if len(got) != 1 || got[0].MsgID != "file" {
		t.Fatalf("Extract = %v, want [file]", msgids(got))
	}
}

func TestPendingQueuesFuzzyOrEmpty(t *testing.T) {
	current := mustParse(t, `msgid ""
msgstr ""

msgid "done"
msgstr "완료"

#, fuzzy
msgid "stale"
msgstr "옛것"

msgid "todo"
msgstr ""

#~ msgid "gone"
#~ msgstr ""
`)

	got := Pending(current)
	want := []string{"stale", "todo"}
	if len(got) != 2 || got[0].MsgID != want[0] || got[1].MsgID != want[1] {
		t.Fatalf("Pending = %v, want %v", msgids(got), want)
	}
}
