// Package i18n serves the UI and email string tables.
//
// Lookups never fail silently: the result says whether the text came from
// the requested language, from the English fallback, or was not found.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

// DefaultLanguage is used when a key is missing in the requested language.
const DefaultLanguage = "en"

//go:embed locales/*.json
var localeFS embed.FS

// Kind classifies a lookup result.
type Kind int

const (
	Found Kind = iota
	FallbackUsed
	Missing
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case FallbackUsed:
		return "fallback"
	default:
		return "missing"
	}
}

// Result is the outcome of a lookup. For Missing, Text holds the raw key.
type Result struct {
	Kind Kind
	Text string
	Key  string
}

// Catalog holds flattened string tables keyed by language then dotted key.
type Catalog struct {
	tables map[string]map[string]string
}

// Load parses the embedded catalogues.
func Load() (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	c := &Catalog{tables: make(map[string]map[string]string, len(entries))}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		raw, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var tree map[string]any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		c.tables[strings.TrimSuffix(e.Name(), ".json")] = flat
	}
	if _, ok := c.tables[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("missing %s catalogue", DefaultLanguage)
	}
	return c, nil
}

// MustLoad is Load for package-level initialisation.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]any:
			flatten(key, val, out)
		}
	}
}

// Languages returns the available language codes in sorted order.
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.tables))
	for l := range c.tables {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Supports reports whether lang has its own catalogue.
func (c *Catalog) Supports(lang string) bool {
	_, ok := c.tables[normalize(lang)]
	return ok
}

// Lookup resolves a dotted key such as "plans.checkout".
func (c *Catalog) Lookup(lang, key string) Result {
	lang = normalize(lang)
	if t, ok := c.tables[lang]; ok {
		if s, ok := t[key]; ok {
			return Result{Kind: Found, Text: s, Key: key}
		}
	}
	if s, ok := c.tables[DefaultLanguage][key]; ok {
		return Result{Kind: FallbackUsed, Text: s, Key: key}
	}
	return Result{Kind: Missing, Text: key, Key: key}
}

// Text is Lookup without the classification.
func (c *Catalog) Text(lang, key string) string {
	return c.Lookup(lang, key).Text
}

// Flatten returns every key known in the default language resolved for lang,
// along with the keys that had to fall back.
func (c *Catalog) Flatten(lang string) (map[string]string, []string) {
	base := c.tables[DefaultLanguage]
	out := make(map[string]string, len(base))
	var fallbacks []string
	for key := range base {
		r := c.Lookup(lang, key)
		out[key] = r.Text
		if r.Kind == FallbackUsed {
			fallbacks = append(fallbacks, key)
		}
	}
	sort.Strings(fallbacks)
	return out, fallbacks
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
