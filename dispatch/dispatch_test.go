package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/podraft/podraft/backend"
	"github.com/podraft/podraft/batch"
	"github.com/podraft/podraft/catalog"
)

// fakeBackend translates by prefixing "ko:" to every text. failKeys lists
// source texts whose batch should fail, failures counts how many times a
// batch fails before succeeding.
type fakeBackend struct {
	mu       sync.Mutex
	calls    int
	failures int
	failText string
	skipText string
	delay    time.Duration
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Translate(_ context.Context, req backend.Request) ([]string, error) {
	f.mu.Lock()
	f.calls++
	remaining := f.failures
	if f.failures > 0 {
		f.failures--
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if f.failText != "" && text == f.failText {
			return nil, &backend.Error{Provider: "fake", Err: fmt.Errorf("refused %q", text)}
		}
		if remaining > 0 {
			return nil, &backend.Error{Provider: "fake", Err: fmt.Errorf("transient")}
		}
		if f.skipText != "" && text == f.skipText {
			out[i] = ""
			continue
		}
		out[i] = "ko:" + text
	}
	return out, nil
}

func makeBatches(t *testing.T, size int, texts ...string) []batch.Batch {
	t.Helper()
	entries := make([]*catalog.Entry, len(texts))
	for i, text := range texts {
		entries[i] = &catalog.Entry{MsgID: text}
	}
	batches, err := batch.Make(entries, size)
	if err != nil {
		t.Fatalf("batch.Make: %v", err)
	}
	return batches
}

func TestRun_TranslatesAllInOrder(t *testing.T) {
	fb := &fakeBackend{delay: 5 * time.Millisecond}
	d := New(fb, Options{Workers: 3, Language: "ko"})

	batches := makeBatches(t, 2, "a", "b", "c", "d", "e")
	results, err := d.Run(context.Background(), batches)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, res := range results {
		if res.Batch != i {
			t.Errorf("results[%d].Batch = %d, want %d", i, res.Batch, i)
		}
		for _, er := range res.Entries {
			if er.Status != StatusTranslated {
				t.Errorf("entry %q status = %q", er.Key.MsgID, er.Status)
			}
			if er.Text != "ko:"+er.Key.MsgID {
				t.Errorf("entry %q text = %q", er.Key.MsgID, er.Text)
			}
		}
	}
}

func TestRun_FailedBatchDoesNotPoisonOthers(t *testing.T) {
	fb := &fakeBackend{failText: "c"}
	d := New(fb, Options{Workers: 1})

	// size 1: "c" gets its own batch
	results, err := d.Run(context.Background(), makeBatches(t, 1, "a", "c", "e"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if results[0].Entries[0].Status != StatusTranslated {
		t.Errorf("batch 0: %+v", results[0].Entries[0])
	}
	if results[2].Entries[0].Status != StatusTranslated {
		t.Errorf("batch 2: %+v", results[2].Entries[0])
	}
	failed := results[1].Entries[0]
	if failed.Status != StatusFailed {
		t.Fatalf("batch 1 status = %q, want failed", failed.Status)
	}
	if !strings.Contains(failed.Detail, "refused") {
		t.Errorf("Detail = %q", failed.Detail)
	}
}

func TestRun_RetriesTransientFailure(t *testing.T) {
	fb := &fakeBackend{failures: 1}
	d := New(fb, Options{Retries: 2})

	results, err := d.Run(context.Background(), makeBatches(t, 5, "a"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Entries[0].Status != StatusTranslated {
		t.Errorf("status = %q after retry", results[0].Entries[0].Status)
	}
	if fb.calls != 2 {
		t.Errorf("calls = %d, want 2", fb.calls)
	}
}

func TestRun_ExhaustedRetriesMarkFailed(t *testing.T) {
	fb := &fakeBackend{failures: 10}
	d := New(fb, Options{Retries: 1})

	results, err := d.Run(context.Background(), makeBatches(t, 5, "a", "b"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, er := range results[0].Entries {
		if er.Status != StatusFailed {
			t.Errorf("entry %q status = %q, want failed", er.Key.MsgID, er.Status)
		}
	}
	if fb.calls != 2 {
		t.Errorf("calls = %d, want 2 (initial + 1 retry)", fb.calls)
	}
}

func TestRun_MissingTranslationSkipped(t *testing.T) {
	fb := &fakeBackend{skipText: "b"}
	d := New(fb, Options{})

	results, err := d.Run(context.Background(), makeBatches(t, 5, "a", "b", "c"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	entries := results[0].Entries
	if entries[0].Status != StatusTranslated || entries[2].Status != StatusTranslated {
		t.Errorf("neighbors of skipped entry affected: %+v", entries)
	}
	if entries[1].Status != StatusSkipped {
		t.Errorf("entries[1].Status = %q, want skipped", entries[1].Status)
	}
	if entries[1].Text != "" {
		t.Errorf("skipped entry has text %q", entries[1].Text)
	}
}

func TestRun_CanceledContextFailsPendingBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fb := &fakeBackend{}
	d := New(fb, Options{})

	results, err := d.Run(ctx, makeBatches(t, 1, "a", "b"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, res := range results {
		for _, er := range res.Entries {
			if er.Status != StatusFailed {
				t.Errorf("batch %d status = %q, want failed", i, er.Status)
			}
		}
	}
	if fb.calls != 0 {
		t.Errorf("backend called %d times after cancel", fb.calls)
	}
}

func TestRun_EmptyBatches(t *testing.T) {
	d := New(&fakeBackend{}, Options{})
	results, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results", len(results))
	}
}

func TestRun_ProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	fb := &fakeBackend{}
	d := New(fb, Options{
		OnProgress: func(done, total int) {
			mu.Lock()
			seen = append(seen, done)
			mu.Unlock()
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
		},
	})

	if _, err := d.Run(context.Background(), makeBatches(t, 1, "a", "b", "c")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("progress called %d times, want 3", len(seen))
	}
	if seen[len(seen)-1] != 3 {
		t.Errorf("final done = %d, want 3", seen[len(seen)-1])
	}
}
