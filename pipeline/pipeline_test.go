package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/podraft/podraft/backend"
	"github.com/podraft/podraft/catalog"
	"github.com/podraft/podraft/config"
	"github.com/podraft/podraft/merge"
)

type fakeBackend struct {
	calls    int
	failText string
	seen     []string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Translate(_ context.Context, req backend.Request) ([]string, error) {
	f.calls++
	f.seen = append(f.seen, req.Texts...)
	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if f.failText != "" && text == f.failText {
			return nil, &backend.Error{Provider: "fake", Err: fmt.Errorf("refused %q", text)}
		}
		out[i] = "ko:" + text
	}
	return out, nil
}

const inputPO = `msgid ""
msgstr ""
"Project-Id-Version: demo 1.0\n"
"Language: ko\n"
"MIME-Version: 1.0\n"
"Content-Type: text/plain; charset=UTF-8\n"

#: src/main.c:10
msgid "Hello"
msgstr ""

#: src/main.c:20
msgid "Open"
msgstr ""

#: src/main.c:30
msgid "Done"
msgstr "완료"
`

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "ko.po")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing input: %v", err)
	}
	return path
}

func testConfig(input string) *config.Config {
	cfg := config.Default()
	cfg.Language = "ko"
	cfg.Input = input
	cfg.Output = input
	return cfg
}

func TestRun_DraftsUntranslatedEntries(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, inputPO)

	fb := &fakeBackend{}
	summary, err := Run(context.Background(), testConfig(input), fb, Options{Generator: "podraft test"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Sent != 2 {
		t.Errorf("Sent = %d, want 2", summary.Sent)
	}
	want := merge.Report{Translated: 2, Unchanged: 1}
	if summary.Report != want {
		t.Errorf("Report = %+v, want %+v", summary.Report, want)
	}

	out, err := catalog.ParseFile(input)
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	hello := out.Lookup(catalog.Key{MsgID: "Hello"})
	if hello.MsgStr != "ko:Hello" {
		t.Errorf("Hello = %q", hello.MsgStr)
	}
	if !hello.HasTranslatorComment(merge.Marker) {
		t.Error("draft marker missing")
	}
	if got := out.Lookup(catalog.Key{MsgID: "Done"}).MsgStr; got != "완료" {
		t.Errorf("reviewed entry changed to %q", got)
	}
	if got := out.HeaderField("X-Generator"); got != "podraft test" {
		t.Errorf("X-Generator = %q", got)
	}
}

func TestRun_SecondRunSendsNothing(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, inputPO)

	fb := &fakeBackend{}
	if _, err := Run(context.Background(), testConfig(input), fb, Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	summary, err := Run(context.Background(), testConfig(input), fb, Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Sent != 0 {
		t.Errorf("second run Sent = %d, want 0", summary.Sent)
	}
	if fb.calls != 1 {
		t.Errorf("backend called %d times total, want 1", fb.calls)
	}
}

func TestRun_FailedEntriesRetriedOnNextRun(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, inputPO)

	cfg := testConfig(input)
	cfg.BatchSize = 1

	fb := &fakeBackend{failText: "Open"}
	summary, err := Run(context.Background(), cfg, fb, Options{})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if summary.Report.Failed != 1 || summary.Report.Translated != 1 {
		t.Fatalf("first Report = %+v", summary.Report)
	}

	// The failure is resolved; the next run sends only the failed entry.
	fb2 := &fakeBackend{}
	summary2, err := Run(context.Background(), cfg, fb2, Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary2.Sent != 1 {
		t.Errorf("second run Sent = %d, want 1", summary2.Sent)
	}
	if len(fb2.seen) != 1 || fb2.seen[0] != "Open" {
		t.Errorf("second run sent %v, want [Open]", fb2.seen)
	}
}

func TestRun_DiffAgainstBase(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, inputPO)

	basePO := `msgid ""
msgstr ""
"Language: ko\n"

msgid "Hello"
msgstr ""
`
	base := filepath.Join(dir, "base.po")
	if err := os.WriteFile(base, []byte(basePO), 0644); err != nil {
		t.Fatalf("writing base: %v", err)
	}

	cfg := testConfig(input)
	cfg.Base = base

	fb := &fakeBackend{}
	summary, err := Run(context.Background(), cfg, fb, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// "Hello" is in the base, so only "Open" is new.
	if summary.Sent != 1 {
		t.Errorf("Sent = %d, want 1", summary.Sent)
	}
	if len(fb.seen) != 1 || fb.seen[0] != "Open" {
		t.Errorf("sent %v, want [Open]", fb.seen)
	}
}

func TestRun_SeparateOutputLeavesInputUntouched(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, inputPO)
	output := filepath.Join(dir, "out", "ko.po")
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(input)
	cfg.Output = output

	if _, err := Run(context.Background(), cfg, &fakeBackend{}, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	in, err := os.ReadFile(input)
	if err != nil {
		t.Fatal(err)
	}
	if string(in) != inputPO {
		t.Error("input file was modified")
	}
	out, err := catalog.ParseFile(output)
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if out.Lookup(catalog.Key{MsgID: "Hello"}).MsgStr != "ko:Hello" {
		t.Error("output not drafted")
	}
}

func TestRun_NoLockDisablesLedger(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, inputPO)

	fb := &fakeBackend{failText: "Hello"}
	cfg := testConfig(input)
	cfg.BatchSize = 5

	// Whole batch fails, nothing is drafted.
	if _, err := Run(context.Background(), cfg, fb, Options{NoLock: true}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "podraft.lock")); !os.IsNotExist(err) {
		t.Error("lock file created despite NoLock")
	}

	fb2 := &fakeBackend{}
	summary, err := Run(context.Background(), cfg, fb2, Options{NoLock: true})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Sent != 2 {
		t.Errorf("Sent = %d, want 2", summary.Sent)
	}
}

func TestRun_BadInputPath(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.po"))
	_, err := Run(context.Background(), cfg, &fakeBackend{}, Options{})
	if err == nil || !strings.Contains(err.Error(), "missing.po") {
		t.Errorf("got %v, want parse error naming the file", err)
	}
}
