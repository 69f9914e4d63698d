package render

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"
	"time"
)

// Formats every renderer must produce.
const (
	FormatShort   = "short"
	FormatFull    = "full"
	FormatSubject = "subject"
	FormatNotice  = "notice"
)

// Formats lists the formats in the order they are usually rendered.
var Formats = []string{FormatShort, FormatFull, FormatSubject, FormatNotice}

// fallbackLabel keys the templates used when a label has none of its own.
const fallbackLabel = "_default"

var builtinTemplates = map[string]string{
	FormatShort:   `{{with .notice_type}}{{.Display}}{{end}}`,
	FormatSubject: `{{with .site_name}}[{{.}}] {{end}}{{with .notice_type}}{{.Display}}{{end}}`,
	FormatNotice:  `{{with .message}}{{.}}{{else}}{{with .notice_type}}{{.Description}}{{end}}{{end}}`,
	FormatFull: `{{with .recipient}}{{.Username}},{{end}}

{{with .message}}{{.}}{{else}}{{with .notice_type}}{{.Description}}{{end}}{{end}}
{{with .sender}}
{{t "sent_by"}} {{.Username}}{{end}}
{{with .base_url}}
{{.}}{{end}}
`,
}

var builtinTranslations = map[string]map[string]string{
	"en": {"sent_by": "Sent by"},
	"fr": {"sent_by": "Envoyé par"},
	"de": {"sent_by": "Gesendet von"},
	"es": {"sent_by": "Enviado por"},
	"ja": {"sent_by": "送信者:"},
}

// TemplateRenderer renders notices with text/template.
type TemplateRenderer struct {
	catalog *Catalog

	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewTemplateRenderer returns a renderer holding only the built-in templates.
func NewTemplateRenderer(catalog *Catalog) (*TemplateRenderer, error) {
	r := &TemplateRenderer{catalog: catalog, templates: make(map[string]*template.Template)}
	for locale, msgs := range builtinTranslations {
		for key, text := range msgs {
			if err := catalog.AddTranslation(locale, key, text); err != nil {
				return nil, fmt.Errorf("add translation %s/%s: %w", locale, key, err)
			}
		}
	}
	for format, src := range builtinTemplates {
		if err := r.Add(fallbackLabel, format, "", src); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add parses src as the template for (label, format, locale). An empty locale
// registers the template used for every locale without a dedicated one.
func (r *TemplateRenderer) Add(label, format, locale, src string) error {
	key := templateKey(label, format, normalizeLocale(locale))
	tmpl, err := template.New(key).Funcs(placeholderFuncs).Option("missingkey=zero").Parse(src)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", key, err)
	}

	r.mu.Lock()
	r.templates[key] = tmpl
	r.mu.Unlock()
	return nil
}

// LoadFS loads every "<label>/<format>.txt" and "<label>/<format>.<locale>.txt"
// file found in fsys.
func (r *TemplateRenderer) LoadFS(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".txt" {
			return nil
		}
		label := path.Dir(p)
		if label == "." || strings.Contains(label, "/") {
			return nil
		}
		format, locale, _ := strings.Cut(strings.TrimSuffix(path.Base(p), ".txt"), ".")

		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read template %s: %w", p, err)
		}
		return r.Add(label, format, locale, string(src))
	})
}

// Render executes the best template for (label, format, locale):
// the exact locale, then its base language, then the locale-neutral
// template, each first for label and then for the generic fallback.
func (r *TemplateRenderer) Render(ctx context.Context, label, format, locale string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	trans, _ := r.catalog.Translator(locale)
	code := trans.Locale()

	tmpl := r.lookup(label, format, code)
	if tmpl == nil {
		return "", fmt.Errorf("no %q template for %q", format, label)
	}

	clone, err := tmpl.Clone()
	if err != nil {
		return "", fmt.Errorf("clone template: %w", err)
	}
	clone.Funcs(template.FuncMap{
		"t": func(key string, params ...string) string {
			if s, err := trans.T(key, params...); err == nil {
				return s
			}
			if fb, err := r.catalog.uni.GetFallback().T(key, params...); err == nil {
				return fb
			}
			return key
		},
		"date":   func(t time.Time) string { return trans.FmtDateMedium(t) },
		"number": func(v float64, digits uint64) string { return trans.FmtNumber(v, digits) },
	})

	var buf bytes.Buffer
	if err := clone.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s/%s: %w", label, format, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (r *TemplateRenderer) lookup(label, format, code string) *template.Template {
	candidates := []string{code}
	if base, _, ok := strings.Cut(code, "_"); ok {
		candidates = append(candidates, base)
	}
	candidates = append(candidates, "")

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range []string{label, fallbackLabel} {
		for _, c := range candidates {
			if tmpl, ok := r.templates[templateKey(l, format, c)]; ok {
				return tmpl
			}
		}
	}
	return nil
}

func templateKey(label, format, locale string) string {
	if locale == "" {
		return label + "/" + format
	}
	return label + "/" + format + "." + locale
}

// placeholderFuncs lets templates parse before the per-call funcs are bound.
var placeholderFuncs = template.FuncMap{
	"t":      func(key string, params ...string) string { return key },
	"date":   func(t time.Time) string { return t.String() },
	"number": func(v float64, digits uint64) string { return fmt.Sprint(v) },
}
