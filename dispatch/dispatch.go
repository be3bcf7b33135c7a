// Package dispatch fans translation batches out to a bounded worker pool
// and reassembles the results in batch order. Each batch is an independent
// unit of work: one failing batch never blocks or poisons the others.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/podraft/podraft/backend"
	"github.com/podraft/podraft/batch"
	"github.com/podraft/podraft/catalog"
	"github.com/podraft/podraft/glossary"
)

// DefaultWorkers is the pool size when the configuration does not set one.
// Local backends are usually serialized anyway, and hosted ones rate limit.
const DefaultWorkers = 1

// Entry statuses.
const (
	StatusTranslated = "translated"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// EntryResult is the outcome for a single catalog entry.
type EntryResult struct {
	Key    catalog.Key
	Text   string
	Status string
	Detail string
}

// Result is the outcome of one batch, tagged with its original index so
// callers can rely on deterministic ordering regardless of completion order.
type Result struct {
	Batch   int
	Entries []EntryResult
}

// Options controls the dispatch behavior.
type Options struct {
	// Workers is the pool size; 0 means DefaultWorkers.
	Workers int
	// Retries is how many times a failed batch is re-sent before its
	// entries are marked failed.
	Retries int
	// Glossary holds the full term map; only terms occurring in a batch
	// are forwarded with it.
	Glossary map[string]string
	// Examples are few-shot pairs sent with every batch.
	Examples [][2]string
	// Language is the target language code.
	Language string
	// LanguageName is the human-readable target language name.
	LanguageName string
	// RequestDelay spaces out batch submissions.
	RequestDelay time.Duration
	// OnProgress is called after each batch completes.
	OnProgress func(done, total int)
	// OnLog emits log messages during dispatch.
	OnLog func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return DefaultWorkers
}

// Dispatcher sends batches to a backend through a bounded pool.
type Dispatcher struct {
	backend backend.Backend
	opts    Options
}

func New(b backend.Backend, opts Options) *Dispatcher {
	return &Dispatcher{backend: b, opts: opts}
}

// Run translates all batches and returns one Result per batch, ordered by
// batch index. Cancellation marks the remaining batches failed instead of
// dropping them, so the merge report stays complete.
func (d *Dispatcher) Run(ctx context.Context, batches []batch.Batch) ([]Result, error) {
	results := make([]Result, len(batches))
	if len(batches) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(d.opts.effectiveWorkers())
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)

	for i, bt := range batches {
		select {
		case <-ctx.Done():
			results[bt.Index] = failedResult(bt, "canceled: "+ctx.Err().Error())
			continue
		default:
		}

		if i > 0 && d.opts.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				results[bt.Index] = failedResult(bt, "canceled: "+ctx.Err().Error())
				continue
			case <-time.After(d.opts.RequestDelay):
			}
		}

		bt := bt
		wg.Add(1)
		// Submit blocks when all workers are busy, bounding in-flight work
		// to the pool size.
		if err := pool.Submit(func() {
			defer wg.Done()
			results[bt.Index] = d.translateBatch(ctx, bt)

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			if d.opts.OnProgress != nil {
				d.opts.OnProgress(n, len(batches))
			}
		}); err != nil {
			wg.Done()
			results[bt.Index] = failedResult(bt, "submitting batch: "+err.Error())
		}
	}

	wg.Wait()
	return results, nil
}

// translateBatch sends one batch, retrying whole-batch failures. Entries the
// backend answered are marked translated; positions it left blank are marked
// skipped so a later run can pick them up again.
func (d *Dispatcher) translateBatch(ctx context.Context, bt batch.Batch) Result {
	texts := make([]string, len(bt.Entries))
	for i, e := range bt.Entries {
		texts[i] = e.MsgID
	}

	req := backend.Request{
		Texts:        texts,
		Glossary:     glossary.ForTexts(d.opts.Glossary, texts),
		Examples:     d.opts.Examples,
		Language:     d.opts.Language,
		LanguageName: d.opts.LanguageName,
	}

	var lastErr error
	for attempt := 0; attempt <= d.opts.Retries; attempt++ {
		select {
		case <-ctx.Done():
			return failedResult(bt, "canceled: "+ctx.Err().Error())
		default:
		}

		translations, err := d.backend.Translate(ctx, req)
		if err != nil {
			lastErr = err
			if attempt < d.opts.Retries {
				d.opts.log("batch %d attempt %d failed: %v, retrying", bt.Index+1, attempt+1, err)
			}
			continue
		}
		return successResult(bt, translations)
	}

	return failedResult(bt, lastErr.Error())
}

func successResult(bt batch.Batch, translations []string) Result {
	res := Result{Batch: bt.Index, Entries: make([]EntryResult, len(bt.Entries))}
	for i, e := range bt.Entries {
		er := EntryResult{Key: e.Key()}
		if i < len(translations) && translations[i] != "" {
			er.Text = translations[i]
			er.Status = StatusTranslated
		} else {
			er.Status = StatusSkipped
			er.Detail = "no translation returned"
		}
		res.Entries[i] = er
	}
	return res
}

func failedResult(bt batch.Batch, detail string) Result {
	res := Result{Batch: bt.Index, Entries: make([]EntryResult, len(bt.Entries))}
	for i, e := range bt.Entries {
		res.Entries[i] = EntryResult{Key: e.Key(), Status: StatusFailed, Detail: detail}
	}
	return res
}
