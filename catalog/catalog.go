// Package catalog implements reading and writing of gettext PO/POT
// message catalogs. Parsing is strict about entry identity (duplicate
// msgid/msgctxt pairs are rejected) and serialization round-trips the
// input byte-for-byte apart from blank-line normalization between entries.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// FormatError describes malformed catalog text. It aborts parsing for
// the whole file: a catalog with broken entries cannot be merged safely.
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("catalog format error at line %d: %s", e.Line, e.Msg)
	}
	return "catalog format error: " + e.Msg
}

// Key identifies an entry within one catalog. The msgctxt disambiguates
// entries sharing a msgid.
type Key struct {
	MsgID   string
	MsgCtxt string
}

func (k Key) String() string {
	if k.MsgCtxt == "" {
		return fmt.Sprintf("%q", k.MsgID)
	}
	return fmt.Sprintf("%q (context %q)", k.MsgID, k.MsgCtxt)
}

// Entry represents a single translatable message in a PO file.
type Entry struct {
	// TranslatorComments are lines starting with "# ".
	TranslatorComments []string
	// ExtractedComments are lines starting with "#.".
	ExtractedComments []string
	// References are source code locations, lines starting with "#:".
	References []string
	// Flags are format flags, lines starting with "#,".
	Flags []string
	// PreviousMsgID stores the previous msgid for fuzzy entries ("#|" lines).
	PreviousMsgID string

	// MsgCtxt is the message context (msgctxt).
	MsgCtxt string
	// MsgID is the untranslated string.
	MsgID string
	// MsgIDPlural is the untranslated plural string.
	MsgIDPlural string
	// MsgStr is the translated string (singular or the only form).
	MsgStr string
	// MsgStrPlural maps plural form index to translated string.
	MsgStrPlural map[int]string

	// Obsolete marks entries prefixed with "#~".
	Obsolete bool
}

// Key returns the entry's identity within its catalog.
func (e *Entry) Key() Key {
	return Key{MsgID: e.MsgID, MsgCtxt: e.MsgCtxt}
}

// IsTranslated returns true if the entry has a non-empty, non-fuzzy translation.
func (e *Entry) IsTranslated() bool {
	if e.MsgID == "" {
		return false // header entry
	}
	if e.IsFuzzy() {
		return false
	}
	if e.MsgIDPlural != "" {
		for _, v := range e.MsgStrPlural {
			if v == "" {
				return false
			}
		}
		return len(e.MsgStrPlural) > 0
	}
	return e.MsgStr != ""
}

// IsFuzzy returns true if the entry is marked fuzzy.
func (e *Entry) IsFuzzy() bool {
	for _, f := range e.Flags {
		if f == "fuzzy" {
			return true
		}
	}
	return false
}

// SetFuzzy adds or removes the fuzzy flag.
func (e *Entry) SetFuzzy(fuzzy bool) {
	if fuzzy && !e.IsFuzzy() {
		e.Flags = append(e.Flags, "fuzzy")
	} else if !fuzzy {
		filtered := make([]string, 0, len(e.Flags))
		for _, f := range e.Flags {
			if f != "fuzzy" {
				filtered = append(filtered, f)
			}
		}
		e.Flags = filtered
	}
}

// HasFlag checks if a specific flag is present.
func (e *Entry) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// HasTranslatorComment checks for an exact translator comment line.
func (e *Entry) HasTranslatorComment(comment string) bool {
	for _, c := range e.TranslatorComments {
		if c == comment {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	c.TranslatorComments = append([]string(nil), e.TranslatorComments...)
	c.ExtractedComments = append([]string(nil), e.ExtractedComments...)
	c.References = append([]string(nil), e.References...)
	c.Flags = append([]string(nil), e.Flags...)
	if e.MsgStrPlural != nil {
		c.MsgStrPlural = make(map[int]string, len(e.MsgStrPlural))
		for i, v := range e.MsgStrPlural {
			c.MsgStrPlural[i] = v
		}
	}
	return &c
}

// Catalog represents a parsed PO/POT file: a header plus an ordered
// sequence of entries, with an index for O(1) lookup by key.
type Catalog struct {
	// Header is the metadata entry (msgid "").
	Header *Entry
	// Entries are the translatable message entries, in file order.
	Entries []*Entry

	index map[Key]*Entry // non-obsolete entries only
}

// New creates a new empty catalog.
func New() *Catalog {
	return &Catalog{
		Header: &Entry{MsgID: "", MsgStr: ""},
		index:  make(map[Key]*Entry),
	}
}

// Add appends an entry and indexes it. Duplicate non-obsolete keys are
// rejected so entry identity stays unique within the catalog.
func (c *Catalog) Add(e *Entry) error {
	if !e.Obsolete {
		if c.index == nil {
			c.index = make(map[Key]*Entry)
		}
		if _, dup := c.index[e.Key()]; dup {
			return &FormatError{Msg: fmt.Sprintf("duplicate entry %s", e.Key())}
		}
		c.index[e.Key()] = e
	}
	c.Entries = append(c.Entries, e)
	return nil
}

// Lookup finds a non-obsolete entry by key.
func (c *Catalog) Lookup(k Key) *Entry {
	return c.index[k]
}

// HeaderField returns a header field value by name.
func (c *Catalog) HeaderField(name string) string {
	if c.Header == nil {
		return ""
	}
	for _, line := range strings.Split(c.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			if strings.EqualFold(key, name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// SetHeaderField sets a header field value, appending the field if absent.
func (c *Catalog) SetHeaderField(name, value string) {
	if c.Header == nil {
		c.Header = &Entry{MsgID: "", MsgStr: ""}
	}

	lines := strings.Split(c.Header.MsgStr, "\n")
	found := false
	for i, line := range lines {
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			if strings.EqualFold(key, name) {
				lines[i] = name + ": " + value
				found = true
				break
			}
		}
	}
	if !found {
		// Insert before trailing empty line
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = append(lines[:len(lines)-1], name+": "+value, "")
		} else {
			lines = append(lines, name+": "+value)
		}
	}
	c.Header.MsgStr = strings.Join(lines, "\n")
}

// Stats returns translation statistics over non-obsolete entries.
func (c *Catalog) Stats() (total, translated, fuzzy, untranslated int) {
	for _, e := range c.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		total++
		if e.IsFuzzy() {
			fuzzy++
		} else if e.IsTranslated() {
			translated++
		} else {
			untranslated++
		}
	}
	return
}

// Parse reads a PO/POT catalog from a reader.
func Parse(r io.Reader) (*Catalog, error) {
	c := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var current *Entry
	var lastField string // tracks the last msgid/msgstr/etc. field for multiline strings
	lineNum := 0

	flush := func() error {
		if current == nil {
			return nil
		}
		if current.MsgID == "" && !current.Obsolete {
			c.Header = current
		} else {
			if err := c.Add(current); err != nil {
				return &FormatError{Line: lineNum, Msg: fmt.Sprintf("duplicate entry %s", current.Key())}
			}
		}
		current = nil
		lastField = ""
		return nil
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Empty line separates entries
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		if current == nil {
			current = &Entry{
				MsgStrPlural: make(map[int]string),
			}
		}

		// Handle obsolete entries
		if strings.HasPrefix(line, "#~ ") {
			current.Obsolete = true
			line = line[3:]
		}

		// Comment lines
		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "#~") {
			if strings.HasPrefix(line, "#:") {
				refs := strings.TrimSpace(line[2:])
				current.References = append(current.References, refs)
			} else if strings.HasPrefix(line, "#,") {
				flagStr := strings.TrimSpace(line[2:])
				for _, flag := range strings.Split(flagStr, ",") {
					flag = strings.TrimSpace(flag)
					if flag != "" {
						current.Flags = append(current.Flags, flag)
					}
				}
			} else if strings.HasPrefix(line, "#.") {
				current.ExtractedComments = append(current.ExtractedComments, strings.TrimSpace(line[2:]))
			} else if strings.HasPrefix(line, "#|") {
				prev := strings.TrimSpace(line[2:])
				if strings.HasPrefix(prev, "msgid ") {
					val, err := unquote(strings.TrimPrefix(prev, "msgid "))
					if err != nil {
						return nil, &FormatError{Line: lineNum, Msg: err.Error()}
					}
					current.PreviousMsgID = val
				}
			} else {
				comment := line[1:]
				if strings.HasPrefix(comment, " ") {
					comment = comment[1:]
				}
				current.TranslatorComments = append(current.TranslatorComments, comment)
			}
			continue
		}

		// msgctxt
		if strings.HasPrefix(line, "msgctxt ") {
			val, err := unquote(strings.TrimPrefix(line, "msgctxt "))
			if err != nil {
				return nil, &FormatError{Line: lineNum, Msg: err.Error()}
			}
			current.MsgCtxt = val
			lastField = "msgctxt"
			continue
		}

		// msgid_plural
		if strings.HasPrefix(line, "msgid_plural ") {
			val, err := unquote(strings.TrimPrefix(line, "msgid_plural "))
			if err != nil {
				return nil, &FormatError{Line: lineNum, Msg: err.Error()}
			}
			current.MsgIDPlural = val
			lastField = "msgid_plural"
			continue
		}

		// msgid
		if strings.HasPrefix(line, "msgid ") {
			val, err := unquote(strings.TrimPrefix(line, "msgid "))
			if err != nil {
				return nil, &FormatError{Line: lineNum, Msg: err.Error()}
			}
			current.MsgID = val
			lastField = "msgid"
			continue
		}

		// msgstr[N]
		if strings.HasPrefix(line, "msgstr[") {
			var idx int
			n, err := fmt.Sscanf(line, "msgstr[%d]", &idx)
			if err != nil || n != 1 {
				return nil, &FormatError{Line: lineNum, Msg: "invalid msgstr index: " + line}
			}
			bracketEnd := strings.Index(line, "] ")
			if bracketEnd < 0 {
				return nil, &FormatError{Line: lineNum, Msg: "invalid msgstr format: " + line}
			}
			val, uerr := unquote(line[bracketEnd+2:])
			if uerr != nil {
				return nil, &FormatError{Line: lineNum, Msg: uerr.Error()}
			}
			current.MsgStrPlural[idx] = val
			lastField = fmt.Sprintf("msgstr[%d]", idx)
			continue
		}

		// msgstr
		if strings.HasPrefix(line, "msgstr ") {
			val, err := unquote(strings.TrimPrefix(line, "msgstr "))
			if err != nil {
				return nil, &FormatError{Line: lineNum, Msg: err.Error()}
			}
			current.MsgStr = val
			lastField = "msgstr"
			continue
		}

		// Continuation line (starts with ")
		if strings.HasPrefix(line, "\"") {
			val, err := unquote(line)
			if err != nil {
				return nil, &FormatError{Line: lineNum, Msg: err.Error()}
			}
			switch {
			case lastField == "msgctxt":
				current.MsgCtxt += val
			case lastField == "msgid":
				current.MsgID += val
			case lastField == "msgid_plural":
				current.MsgIDPlural += val
			case lastField == "msgstr":
				current.MsgStr += val
			case strings.HasPrefix(lastField, "msgstr["):
				var idx int
				fmt.Sscanf(lastField, "msgstr[%d]", &idx)
				current.MsgStrPlural[idx] += val
			default:
				return nil, &FormatError{Line: lineNum, Msg: "string continuation without a preceding field"}
			}
			continue
		}

		return nil, &FormatError{Line: lineNum, Msg: "unrecognized line: " + truncateLine(line)}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	return c, nil
}

// ParseFile reads a PO/POT catalog from disk.
func ParseFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Write writes the catalog to a writer.
func (c *Catalog) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if c.Header != nil {
		if err := writeEntry(bw, c.Header); err != nil {
			return err
		}
	}

	for _, e := range c.Entries {
		fmt.Fprintln(bw)
		if err := writeEntry(bw, e); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFile writes the catalog to disk atomically: the content is written
// to a temp file in the same directory and renamed over the target, so a
// crash mid-write never leaves a partial catalog behind.
func (c *Catalog) WriteFile(path string) error {
	dir, base := splitPath(path)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := c.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func splitPath(path string) (dir, base string) {
	idx := strings.LastIndexByte(path, os.PathSeparator)
	if idx < 0 {
		return ".", path
	}
	return path[:idx], path[idx+1:]
}

func writeEntry(w *bufio.Writer, e *Entry) error {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}

	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}

	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}

	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}

	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}

	if e.PreviousMsgID != "" {
		fmt.Fprintf(w, "#| msgid %s\n", quote(e.PreviousMsgID))
	}

	if e.MsgCtxt != "" {
		writeQuotedField(w, prefix+"msgctxt", e.MsgCtxt)
	}

	writeQuotedField(w, prefix+"msgid", e.MsgID)

	if e.MsgIDPlural != "" {
		writeQuotedField(w, prefix+"msgid_plural", e.MsgIDPlural)
	}

	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		indices := make([]int, 0, len(e.MsgStrPlural))
		for idx := range e.MsgStrPlural {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			writeQuotedField(w, fmt.Sprintf("%smsgstr[%d]", prefix, idx), e.MsgStrPlural[idx])
		}
	} else {
		writeQuotedField(w, prefix+"msgstr", e.MsgStr)
	}

	return nil
}

// writeQuotedField writes a PO field with proper multiline quoting.
func writeQuotedField(w *bufio.Writer, field, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", field, quote(value))
		return
	}

	// Multiline: use empty string on first line
	fmt.Fprintf(w, "%s \"\"\n", field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s\n", quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s\n", quote(part))
		}
	}
}

// quote produces a PO-style quoted string.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

// unquote removes PO-style quoting. Unlike gettext tools we hard-fail on
// unterminated strings instead of passing the raw text through.
func unquote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' {
		return "", fmt.Errorf("expected quoted string, got %q", truncateLine(s))
	}
	if s[len(s)-1] != '"' || endsWithEscapedQuote(s) {
		return "", fmt.Errorf("unterminated string: %q", truncateLine(s))
	}
	s = s[1 : len(s)-1]

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				result.WriteByte('\n')
				i++
			case 't':
				result.WriteByte('\t')
				i++
			case '\\':
				result.WriteByte('\\')
				i++
			case '"':
				result.WriteByte('"')
				i++
			default:
				result.WriteByte(s[i])
			}
		} else if s[i] == '"' {
			return "", fmt.Errorf("unescaped quote inside string: %q", truncateLine(s))
		} else {
			result.WriteByte(s[i])
		}
	}
	return result.String(), nil
}

// endsWithEscapedQuote reports whether the closing quote of a quoted
// string is actually escaped, i.e. the string is unterminated.
func endsWithEscapedQuote(s string) bool {
	if len(s) < 2 {
		return false
	}
	backslashes := 0
	for i := len(s) - 2; i >= 1 && s[i] == '\\'; i-- {
		backslashes++
	}
	return backslashes%2 == 1
}

func truncateLine(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}

// MakeHeader creates a standard PO file header entry.
func MakeHeader(project, version, bugsEmail, language, pluralForms string) *Entry {
	now := time.Now().UTC().Format("2006-01-02 15:04+0000")

	headerStr := fmt.Sprintf(
		"Project-Id-Version: %s %s\n"+
			"Report-Msgid-Bugs-To: %s\n"+
			"POT-Creation-Date: %s\n"+
			"PO-Revision-Date: %s\n"+
			"Last-Translator: \n"+
			"Language-Team: \n"+
			"Language: %s\n"+
			"MIME-Version: 1.0\n"+
			"Content-Type: text/plain; charset=UTF-8\n"+
			"Content-Transfer-Encoding: 8bit\n"+
			"Plural-Forms: %s\n",
		project, version, bugsEmail, now, now, language, pluralForms,
	)

	return &Entry{
		MsgID:  "",
		MsgStr: headerStr,
	}
}
