// Package glossary supplies the terminology mapping and few-shot example
// pairs attached to backend requests. Both come from PO catalogs: the
// glossary maps msgid (term) to msgstr (preferred rendering), and the
// examples are sampled from an already human-reviewed catalog. Absent
// data is valid and simply means zero-shot translation.
package glossary

import (
	"strings"

	"github.com/podraft/podraft/catalog"
)

// Load reads a glossary catalog and returns term -> preferred rendering.
// Terms are lowercased; untranslated glossary entries are skipped.
// An empty path yields an empty glossary.
func Load(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	c, err := catalog.ParseFile(path)
	if err != nil {
		return nil, err
	}

	g := make(map[string]string)
	for _, e := range c.Entries {
		if e.MsgID == "" || e.Obsolete || e.MsgStr == "" {
			continue
		}
		term := strings.ToLower(strings.TrimSpace(e.MsgID))
		rendering := strings.TrimSpace(e.MsgStr)
		if term != "" && rendering != "" {
			g[term] = rendering
		}
	}
	return g, nil
}

// ForTexts filters a glossary down to the terms that actually occur in
// the given texts (case-insensitive substring match), so prompts only
// carry relevant rules.
func ForTexts(g map[string]string, texts []string) map[string]string {
	if len(g) == 0 || len(texts) == 0 {
		return nil
	}

	var haystack strings.Builder
	for _, t := range texts {
		haystack.WriteString(strings.ToLower(t))
		haystack.WriteByte('\n')
	}
	joined := haystack.String()

	out := make(map[string]string)
	for term, rendering := range g {
		if strings.Contains(joined, term) {
			out[term] = rendering
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Examples picks up to n few-shot pairs from a reviewed catalog. Only
// translated, non-fuzzy singular entries qualify. Selection is
// deterministic (first matches in catalog order) so repeated pipeline
// runs build identical prompts. An empty path yields no examples.
func Examples(path string, n int) ([][2]string, error) {
	if path == "" || n <= 0 {
		return nil, nil
	}
	c, err := catalog.ParseFile(path)
	if err != nil {
		return nil, err
	}

	var out [][2]string
	for _, e := range c.Entries {
		if e.MsgID == "" || e.Obsolete || e.MsgIDPlural != "" {
			continue
		}
		if !e.IsTranslated() {
			continue
		}
		out = append(out, [2]string{e.MsgID, e.MsgStr})
		if len(out) == n {
			break
		}
	}
	return out, nil
}
