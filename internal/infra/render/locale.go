package render

import (
	"strings"

	"notice-dispatch/internal/domain/entity"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/ja"
	ut "github.com/go-playground/universal-translator"
)

// DefaultLocale is used when neither the user nor the configuration names one.
const DefaultLocale = "en"

// supportedLocales lists the CLDR data compiled into the binary.
func supportedLocales() []locales.Translator {
	return []locales.Translator{en.New(), fr.New(), de.New(), es.New(), ja.New()}
}

// Catalog holds translators for every supported locale.
type Catalog struct {
	uni         *ut.UniversalTranslator
	defaultCode string
}

// NewCatalog builds a catalog whose fallback is defaultLocale. An unknown
// defaultLocale falls back to English.
func NewCatalog(defaultLocale string) *Catalog {
	all := supportedLocales()
	fallback := all[0]
	for _, l := range all {
		if l.Locale() == normalizeLocale(defaultLocale) {
			fallback = l
		}
	}
	return &Catalog{uni: ut.New(fallback, all...), defaultCode: fallback.Locale()}
}

// Default returns the code of the fallback locale.
func (c *Catalog) Default() string {
	return c.defaultCode
}

// AddTranslation registers text for key in locale, replacing earlier text.
func (c *Catalog) AddTranslation(locale, key, text string) error {
	trans, found := c.uni.GetTranslator(normalizeLocale(locale))
	if !found {
		return &UnsupportedLocaleError{Locale: locale}
	}
	return trans.Add(key, text, true)
}

// Translator returns the translator for locale and whether it was supported.
// Unsupported locales get the fallback translator.
func (c *Catalog) Translator(locale string) (ut.Translator, bool) {
	code := normalizeLocale(locale)
	if trans, found := c.uni.GetTranslator(code); found {
		return trans, true
	}
	if base, _, ok := strings.Cut(code, "_"); ok {
		if trans, found := c.uni.GetTranslator(base); found {
			return trans, true
		}
	}
	return c.uni.GetFallback(), false
}

// Resolve returns the locale a user's notices are rendered in: the user's own
// when it is supported, the catalog default otherwise.
func (c *Catalog) Resolve(user *entity.User) string {
	if user == nil || user.Locale == "" {
		return c.defaultCode
	}
	trans, ok := c.Translator(user.Locale)
	if !ok {
		return c.defaultCode
	}
	return trans.Locale()
}

// normalizeLocale maps BCP 47 tags like "en-US" to CLDR codes like "en_US".
func normalizeLocale(tag string) string {
	return strings.ReplaceAll(strings.TrimSpace(tag), "-", "_")
}

// UnsupportedLocaleError is returned when a translation targets a locale
// whose CLDR data is not compiled in.
type UnsupportedLocaleError struct {
	Locale string
}

func (e *UnsupportedLocaleError) Error() string {
	return "unsupported locale: " + e.Locale
}
