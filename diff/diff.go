// Package diff selects the catalog entries that still need a translation
// draft: entries new or changed relative to a base snapshot, or — when no
// base is available — entries that are untranslated or fuzzy.
//
// Entries that already carry a non-empty, non-fuzzy translation are never
// re-queued: they are considered human-reviewed. Entries present in the
// base but removed from the current catalog are not reported; deletions
// carry no work for the translator.
package diff

import (
	"github.com/podraft/podraft/catalog"
)

// Extract compares a current catalog against a base snapshot and returns
// the current entries whose source text is absent from base or textually
// different from the base entry with the same key, in current catalog
// order. Already-reviewed entries are excluded.
func Extract(base, current *catalog.Catalog) []*catalog.Entry {
	var out []*catalog.Entry
	for _, e := range current.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		if e.IsTranslated() {
			continue
		}
		old := base.Lookup(e.Key())
		if old == nil || old.MsgIDPlural != e.MsgIDPlural {
			out = append(out, e)
		}
	}
	return out
}

// Pending returns the entries needing a draft when no base snapshot
// exists: untranslated or fuzzy, in catalog order.
func Pending(current *catalog.Catalog) []*catalog.Entry {
	var out []*catalog.Entry
	for _, e := range current.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		if !e.IsTranslated() {
			out = append(out, e)
		}
	}
	return out
}
