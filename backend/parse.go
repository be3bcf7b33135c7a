package backend

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// alignTranslations parses the model response and returns exactly one
// translation per source text. Positions the model left out come back as ""
// so callers can mark them skipped instead of failing the whole batch.
//
// Two response shapes are accepted: a JSON array of strings (the requested
// contract, aligned positionally) and an object mapping source text to
// translation (some models answer this way despite instructions).
func alignTranslations(content string, texts []string) ([]string, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code blocks if present
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	if mapped, ok := tryObjectForm(content, texts); ok {
		return mapped, nil
	}

	// Find the outer JSON array
	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	// Fix escape sequences that break JSON parsing. Models sometimes emit
	// sequences like \[dq] or \& without doubling the backslash.
	content = fixInvalidJSONEscapes(content)

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation response as JSON array: %w\nResponse: %s",
			err, truncate(content, 300))
	}
	if len(translations) == 0 {
		return nil, fmt.Errorf("got 0 translations, expected %d", len(texts))
	}

	out := make([]string, len(texts))
	copy(out, translations)
	return out, nil
}

// tryObjectForm handles a {"source": "translation", ...} response by looking
// up each source text. Returns ok=false when the content is not an object.
func tryObjectForm(content string, texts []string) ([]string, bool) {
	body := content
	startIdx := strings.Index(body, "{")
	endIdx := strings.LastIndex(body, "}")
	if startIdx < 0 || endIdx <= startIdx {
		return nil, false
	}
	// An array of objects is not the object form
	if arrIdx := strings.Index(body, "["); arrIdx >= 0 && arrIdx < startIdx {
		return nil, false
	}
	body = fixInvalidJSONEscapes(body[startIdx : endIdx+1])

	var mapped map[string]string
	if err := json.Unmarshal([]byte(body), &mapped); err != nil {
		return nil, false
	}

	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = mapped[text]
	}
	return out, true
}

// fixInvalidJSONEscapes escapes backslashes that do not start a valid JSON
// escape sequence inside string values: \& becomes \\&, \[dq] becomes \\[dq].
func fixInvalidJSONEscapes(jsonContent string) string {
	var fixed strings.Builder
	inQuote := false
	escaped := false

	for i := 0; i < len(jsonContent); i++ {
		c := jsonContent[i]

		if c == '"' && !escaped {
			inQuote = !inQuote
			fixed.WriteByte(c)
			escaped = false
			continue
		}

		if inQuote && c == '\\' && !escaped {
			if i+1 < len(jsonContent) {
				next := jsonContent[i+1]
				// Valid JSON escapes: \" \\ \/ \b \f \n \r \t \uXXXX
				if next == '"' || next == '\\' || next == '/' ||
					next == 'b' || next == 'f' || next == 'n' ||
					next == 'r' || next == 't' || next == 'u' {
					fixed.WriteByte(c)
					escaped = true
					continue
				}
				fixed.WriteString("\\\\")
				escaped = false
				continue
			}
			// Backslash at end of content
			fixed.WriteString("\\\\")
			escaped = false
			continue
		}

		fixed.WriteByte(c)
		escaped = (c == '\\' && !escaped)
	}

	return fixed.String()
}
