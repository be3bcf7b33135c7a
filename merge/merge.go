// Package merge applies dispatched translation results back onto a catalog.
// The merge is non-destructive: the input catalog is never modified, entries
// the backend did not answer keep their bytes, and already-translated
// entries are never overwritten.
package merge

import (
	"fmt"
	"strings"
	"time"

	"github.com/podraft/podraft/catalog"
	"github.com/podraft/podraft/dispatch"
)

// Marker is the translator comment stamped onto every entry filled by a
// backend, so reviewers can find unreviewed drafts.
const Marker = "Initial translation by AI."

// ConflictError reports results whose keys are missing from the catalog or
// whose entries were already translated. The merge still completes; callers
// decide whether a conflict is fatal.
type ConflictError struct {
	Keys []catalog.Key
}

func (e *ConflictError) Error() string {
	keys := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		if k.MsgCtxt != "" {
			keys[i] = fmt.Sprintf("%q (context %q)", k.MsgID, k.MsgCtxt)
		} else {
			keys[i] = fmt.Sprintf("%q", k.MsgID)
		}
	}
	return fmt.Sprintf("merge conflicts for %d entries: %s", len(e.Keys), strings.Join(keys, ", "))
}

// Report counts entry outcomes across one merge.
type Report struct {
	Translated int
	Failed     int
	Skipped    int
	Unchanged  int
}

// Options controls the merge behavior.
type Options struct {
	// Generator is written to the X-Generator header field.
	Generator string
	// LastTranslator is written to the Last-Translator header field
	// when set.
	LastTranslator string
	// Now overrides the revision timestamp, mainly for tests.
	Now time.Time
}

// Apply returns a new catalog with translated results filled in. Entries
// keep catalog order. The returned error, if any, is a *ConflictError and
// indicates the merge completed with warnings, not that it failed.
func Apply(src *catalog.Catalog, results []dispatch.Result, opts Options) (*catalog.Catalog, *Report, error) {
	out := catalog.New()
	if src.Header != nil {
		out.Header = src.Header.Clone()
	}
	for _, e := range src.Entries {
		if err := out.Add(e.Clone()); err != nil {
			return nil, nil, err
		}
	}

	report := &Report{}
	var conflicts []catalog.Key
	touched := make(map[catalog.Key]bool)

	for _, res := range results {
		for _, er := range res.Entries {
			touched[er.Key] = true
			switch er.Status {
			case dispatch.StatusFailed:
				report.Failed++
				continue
			case dispatch.StatusSkipped:
				report.Skipped++
				continue
			}

			entry := out.Lookup(er.Key)
			if entry == nil {
				conflicts = append(conflicts, er.Key)
				report.Skipped++
				continue
			}
			if entry.IsTranslated() && !entry.IsFuzzy() {
				// Translated between extraction and merge. Keep the
				// existing translation.
				conflicts = append(conflicts, er.Key)
				report.Unchanged++
				continue
			}

			entry.MsgStr = er.Text
			entry.SetFuzzy(false)
			if !entry.HasTranslatorComment(Marker) {
				entry.TranslatorComments = append(entry.TranslatorComments, Marker)
			}
			report.Translated++
		}
	}

	for _, e := range out.Entries {
		if e.Obsolete || touched[e.Key()] {
			continue
		}
		report.Unchanged++
	}

	if report.Translated > 0 {
		stampHeader(out, opts)
	}

	if len(conflicts) > 0 {
		return out, report, &ConflictError{Keys: conflicts}
	}
	return out, report, nil
}

// stampHeader records that this catalog revision was produced by a draft run.
func stampHeader(c *catalog.Catalog, opts Options) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	c.SetHeaderField("PO-Revision-Date", now.Format("2006-01-02 15:04-0700"))
	if opts.LastTranslator != "" {
		c.SetHeaderField("Last-Translator", opts.LastTranslator)
	}
	if opts.Generator != "" {
		c.SetHeaderField("X-Generator", opts.Generator)
	}
}
