package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator holds the messages of one language.
type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator reads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T returns the message for key formatted with args, or the key itself when unknown.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) has(key string) bool {
	_, ok := t.translations[key]
	return ok
}

// Catalog picks a translator per account language and falls back to the default one.
type Catalog struct {
	fallback *Translator
	byLang   map[string]*Translator
}

// NewCatalog loads every locales/*.yaml in fsys. defaultLang must be among them.
func NewCatalog(fsys fs.FS, defaultLang string) (*Catalog, error) {
	files, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, err
	}
	c := &Catalog{byLang: make(map[string]*Translator, len(files))}
	for _, f := range files {
		lang := strings.TrimSuffix(path.Base(f), ".yaml")
		t, err := NewTranslator(fsys, lang)
		if err != nil {
			return nil, err
		}
		c.byLang[lang] = t
	}
	fb, ok := c.byLang[normLang(defaultLang)]
	if !ok {
		return nil, fmt.Errorf("no translation file for default language %q", defaultLang)
	}
	c.fallback = fb
	return c, nil
}

// For returns the translator for lang ("pt-BR" resolves to "pt").
func (c *Catalog) For(lang string) *Translator {
	if t, ok := c.byLang[normLang(lang)]; ok {
		return t
	}
	return c.fallback
}

// T translates key for lang, using the default language for keys the language lacks.
func (c *Catalog) T(lang, key string, args ...interface{}) string {
	t := c.For(lang)
	if !t.has(key) {
		t = c.fallback
	}
	return t.T(key, args...)
}

func normLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
