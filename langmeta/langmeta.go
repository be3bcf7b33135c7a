// Package langmeta provides a shared language metadata registry
// (native names and gettext Plural-Forms rules) used by prompt
// construction, header creation, and the CLI UI.
package langmeta

import "strings"

// Meta describes per-language metadata.
type Meta struct {
	// Name is the language name in the language itself.
	Name string
	// PluralForms is the gettext Plural-Forms header value.
	PluralForms string
}

const (
	pluralsOne     = "nplurals=1; plural=0;"
	pluralsDefault = "nplurals=2; plural=(n != 1);"
	pluralsGT1     = "nplurals=2; plural=(n > 1);"
	pluralsSlavic  = "nplurals=3; plural=(n%10==1 && n%100!=11 ? 0 : n%10>=2 && n%10<=4 && (n%100<10 || n%100>=20) ? 1 : 2);"
)

// Registry contains canonical language metadata.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"ar":    {Name: "العربية", PluralForms: "nplurals=6; plural=(n==0 ? 0 : n==1 ? 1 : n==2 ? 2 : n%100>=3 && n%100<=10 ? 3 : n%100>=11 ? 4 : 5);"},
	"bg":    {Name: "Български", PluralForms: pluralsDefault},
	"cs":    {Name: "Čeština", PluralForms: "nplurals=3; plural=(n==1 ? 0 : n>=2 && n<=4 ? 1 : 2);"},
	"da":    {Name: "Dansk", PluralForms: pluralsDefault},
	"de":    {Name: "Deutsch", PluralForms: pluralsDefault},
	"el":    {Name: "Ελληνικά", PluralForms: pluralsDefault},
	"en":    {Name: "English", PluralForms: pluralsDefault},
	"en-GB": {Name: "English (UK)", PluralForms: pluralsDefault},
	"es":    {Name: "Español", PluralForms: pluralsDefault},
	"fi":    {Name: "Suomi", PluralForms: pluralsDefault},
	"fr":    {Name: "Français", PluralForms: pluralsGT1},
	"he":    {Name: "עברית", PluralForms: pluralsDefault},
	"hi":    {Name: "हिन्दी", PluralForms: pluralsDefault},
	"hr":    {Name: "Hrvatski", PluralForms: pluralsSlavic},
	"hu":    {Name: "Magyar", PluralForms: pluralsDefault},
	"id":    {Name: "Bahasa Indonesia", PluralForms: pluralsOne},
	"it":    {Name: "Italiano", PluralForms: pluralsDefault},
	"ja":    {Name: "日本語", PluralForms: pluralsOne},
	"ko":    {Name: "한국어", PluralForms: pluralsOne},
	"lt":    {Name: "Lietuvių", PluralForms: "nplurals=3; plural=(n%10==1 && n%100!=11 ? 0 : n%10>=2 && (n%100<10 || n%100>=20) ? 1 : 2);"},
	"lv":    {Name: "Latviešu", PluralForms: "nplurals=3; plural=(n%10==1 && n%100!=11 ? 0 : n != 0 ? 1 : 2);"},
	"ms":    {Name: "Bahasa Melayu", PluralForms: pluralsOne},
	"nb":    {Name: "Norsk bokmål", PluralForms: pluralsDefault},
	"nl":    {Name: "Nederlands", PluralForms: pluralsDefault},
	"nn":    {Name: "Norsk nynorsk", PluralForms: pluralsDefault},
	"no":    {Name: "Norsk", PluralForms: pluralsDefault},
	"pl":    {Name: "Polski", PluralForms: "nplurals=3; plural=(n==1 ? 0 : n%10>=2 && n%10<=4 && (n%100<10 || n%100>=20) ? 1 : 2);"},
	"pt":    {Name: "Português", PluralForms: pluralsGT1},
	"pt-BR": {Name: "Português (Brasil)", PluralForms: pluralsGT1},
	"ro":    {Name: "Română", PluralForms: "nplurals=3; plural=(n==1 ? 0 : (n==0 || (n%100 > 0 && n%100 < 20)) ? 1 : 2);"},
	"ru":    {Name: "Русский", PluralForms: pluralsSlavic},
	"sk":    {Name: "Slovenčina", PluralForms: "nplurals=3; plural=(n==1 ? 0 : n>=2 && n<=4 ? 1 : 2);"},
	"sr":    {Name: "Српски", PluralForms: pluralsSlavic},
	"sv":    {Name: "Svenska", PluralForms: pluralsDefault},
	"th":    {Name: "ไทย", PluralForms: pluralsOne},
	"tr":    {Name: "Türkçe", PluralForms: pluralsDefault},
	"uk":    {Name: "Українська", PluralForms: pluralsSlavic},
	"vi":    {Name: "Tiếng Việt", PluralForms: pluralsOne},
	"zh":    {Name: "中文", PluralForms: pluralsOne},
	"zh-CN": {Name: "简体中文", PluralForms: pluralsOne},
	"zh-TW": {Name: "繁體中文", PluralForms: pluralsOne},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks.
// Unknown languages get the code back as a display name and the
// Germanic two-form plural rule.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang, PluralForms: pluralsDefault}
}

// Name returns the native name for a language code.
func Name(lang string) string {
	return Resolve(lang).Name
}

// PluralForms returns the gettext Plural-Forms header value for a language.
func PluralForms(lang string) string {
	return Resolve(lang).PluralForms
}

// NPlurals parses the nplurals count from a Plural-Forms header value.
// Returns 2 when the value is missing or malformed.
func NPlurals(pluralForms string) int {
	for _, part := range strings.Split(pluralForms, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "nplurals=") {
			n := 0
			for _, ch := range strings.TrimPrefix(part, "nplurals=") {
				if ch < '0' || ch > '9' {
					n = 0
					break
				}
				n = n*10 + int(ch-'0')
			}
			if n > 0 {
				return n
			}
		}
	}
	return 2
}
