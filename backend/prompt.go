package backend

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSystemPrompt instructs the model to translate UI strings and to
// answer with a bare JSON array. {{targetLang}} is substituted with the
// target language name before sending.
const DefaultSystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings for a software application.

CONTEXT AWARENESS:
- The audience is software users
- Tone: professional yet approachable, clear and concise
- Use IT/software terminology that is standard in {{targetLang}} tech community
- Adapt to the application's specific domain based on the source text context

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in the target language, not word-for-word
- Use idiomatic expressions natural to {{targetLang}}, not literal translations
- Adapt sentence structure to match {{targetLang}} conventions
- Use established IT terminology in {{targetLang}}
- Maintain the original tone and intent, but express it naturally in {{targetLang}}

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Preserve all format specifiers exactly as-is (%s, %d, %(name)s, {0}, etc.).
- Preserve leading/trailing whitespace, newlines, and punctuation patterns.
- Keep brand names and proper nouns unchanged.
- Do NOT translate technical terms that are standard in English (unless they have established translations).
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// buildUserPrompt assembles the per-batch user message: glossary rules for
// terms that actually occur in the batch, few-shot examples, then the
// numbered source texts and the JSON array contract.
func buildUserPrompt(req Request, langName string) string {
	var b strings.Builder

	if len(req.Glossary) > 0 {
		b.WriteString("Use these exact translations for the following terms:\n")
		terms := make([]string, 0, len(req.Glossary))
		for term := range req.Glossary {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		for _, term := range terms {
			fmt.Fprintf(&b, "- %q -> %q\n", term, req.Glossary[term])
		}
		b.WriteString("\n")
	}

	if len(req.Examples) > 0 {
		fmt.Fprintf(&b, "Translation examples (English -> %s):\n", langName)
		for _, ex := range req.Examples {
			fmt.Fprintf(&b, "- %s -> %s\n", escapeForPrompt(ex[0]), escapeForPrompt(ex[1]))
		}
		b.WriteString("\n")
	}

	b.WriteString("Translate these entries:\n\n")
	for i, text := range req.Texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, escapeForPrompt(text))
	}

	fmt.Fprintf(&b, "\nReturn a JSON array with exactly %d strings, in the same order.", len(req.Texts))
	return b.String()
}

// escapeForPrompt makes control characters visible so the model preserves them.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return fmt.Sprintf(`"%s"`, s)
}
