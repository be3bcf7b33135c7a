// Package pipeline runs the full drafting flow: parse the catalogs, extract
// what needs translation, batch it, dispatch it to a backend, merge the
// results, and write the output catalog atomically.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/podraft/podraft/backend"
	"github.com/podraft/podraft/batch"
	"github.com/podraft/podraft/catalog"
	"github.com/podraft/podraft/config"
	"github.com/podraft/podraft/diff"
	"github.com/podraft/podraft/dispatch"
	"github.com/podraft/podraft/glossary"
	"github.com/podraft/podraft/langmeta"
	"github.com/podraft/podraft/lockfile"
	"github.com/podraft/podraft/merge"
)

// Options controls a pipeline run.
type Options struct {
	// Generator is written to the merged catalog's X-Generator field.
	Generator string
	// NoLock disables the podraft.lock ledger for this run.
	NoLock bool
	// OnProgress is called after each batch completes.
	OnProgress func(done, total int)
	// OnLog emits log messages during the run.
	OnLog func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// Summary describes what a run did.
type Summary struct {
	// Sent is the number of entries dispatched to the backend.
	Sent int
	// Batches is the number of batches dispatched.
	Batches int
	// Report counts per-entry outcomes of the merge.
	Report merge.Report
	// Conflicts lists keys the merge could not apply cleanly.
	Conflicts []catalog.Key
	// OutputPath is where the merged catalog was written.
	OutputPath string
}

// Run drafts translations for one catalog. The input catalog is read, the
// untranslated entries (restricted by the base catalog and the lock ledger
// when present) are sent through the backend, and the merged result is
// written to the configured output path.
func Run(ctx context.Context, cfg *config.Config, b backend.Backend, opts Options) (*Summary, error) {
	current, err := catalog.ParseFile(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cfg.Input, err)
	}

	pending, err := extractPending(cfg, current)
	if err != nil {
		return nil, err
	}

	target := lockfile.TargetKey(cfg.Output)
	var lf *lockfile.File
	if !opts.NoLock {
		lf, err = lockfile.Load(filepath.Dir(cfg.Input))
		if err != nil {
			return nil, err
		}
		pending = filterUndrafted(lf, target, pending)
	}

	summary := &Summary{Sent: len(pending), OutputPath: cfg.Output}

	if len(pending) == 0 {
		opts.log("nothing to translate")
		countUnchanged(current, &summary.Report)
		if cfg.Output != cfg.Input {
			if err := current.WriteFile(cfg.Output); err != nil {
				return nil, err
			}
		}
		return summary, nil
	}

	terms, err := glossary.Load(cfg.Glossary)
	if err != nil {
		return nil, fmt.Errorf("loading glossary: %w", err)
	}
	examples, err := glossary.Examples(cfg.Examples, cfg.ExampleCount)
	if err != nil {
		return nil, fmt.Errorf("loading examples: %w", err)
	}

	batches, err := batch.Make(pending, cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	summary.Batches = len(batches)
	opts.log("translating %d entries in %d batches via %s", len(pending), len(batches), b.Name())

	d := dispatch.New(b, dispatch.Options{
		Workers:      cfg.Workers,
		Retries:      cfg.MaxRetries,
		Glossary:     terms,
		Examples:     examples,
		Language:     cfg.Language,
		LanguageName: langmeta.Name(cfg.Language),
		RequestDelay: cfg.RequestDelay(),
		OnProgress:   opts.OnProgress,
		OnLog:        opts.OnLog,
	})
	results, err := d.Run(ctx, batches)
	if err != nil {
		return nil, err
	}

	ensureLanguageHeader(current, cfg.Language)

	merged, report, err := merge.Apply(current, results, merge.Options{Generator: opts.Generator})
	if err != nil {
		var conflict *merge.ConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		summary.Conflicts = conflict.Keys
		opts.log("merge completed with conflicts: %v", conflict)
	}
	summary.Report = *report

	if err := merged.WriteFile(cfg.Output); err != nil {
		return nil, err
	}

	if lf != nil {
		recordDrafted(lf, target, merged, results)
		lf.Clean(target, merged)
		if err := lf.Save(); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// extractPending picks the entries to translate: a diff against the base
// catalog when one is configured, otherwise every untranslated or fuzzy
// entry of the current catalog.
func extractPending(cfg *config.Config, current *catalog.Catalog) ([]*catalog.Entry, error) {
	if cfg.Base == "" {
		return diff.Pending(current), nil
	}
	base, err := catalog.ParseFile(cfg.Base)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cfg.Base, err)
	}
	return diff.Extract(base, current), nil
}

// filterUndrafted drops entries whose source text was already drafted in a
// previous run according to the lock ledger.
func filterUndrafted(lf *lockfile.File, target string, entries []*catalog.Entry) []*catalog.Entry {
	out := entries[:0]
	for _, e := range entries {
		if lf.IsChanged(target, e) {
			out = append(out, e)
		}
	}
	return out
}

// recordDrafted updates the ledger for every entry that received a draft.
func recordDrafted(lf *lockfile.File, target string, merged *catalog.Catalog, results []dispatch.Result) {
	for _, res := range results {
		for _, er := range res.Entries {
			if er.Status != dispatch.StatusTranslated {
				continue
			}
			if e := merged.Lookup(er.Key); e != nil {
				lf.Update(target, e)
			}
		}
	}
}

// ensureLanguageHeader fills in Language and Plural-Forms when drafting from
// a bare template whose header has no target language yet.
func ensureLanguageHeader(c *catalog.Catalog, lang string) {
	if c.Header == nil {
		return
	}
	if c.HeaderField("Language") == "" {
		c.SetHeaderField("Language", lang)
	}
	if c.HeaderField("Plural-Forms") == "" {
		c.SetHeaderField("Plural-Forms", langmeta.PluralForms(lang))
	}
}

func countUnchanged(c *catalog.Catalog, r *merge.Report) {
	for _, e := range c.Entries {
		if !e.Obsolete {
			r.Unchanged++
		}
	}
}
