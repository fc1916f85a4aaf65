// Package page renders the enrollment form and its legal documents as HTML
// using pongo2 templates styled by go-theme tokens.
package page

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/presenter"
)

//go:embed templates/*.tpl
var templateFiles embed.FS

const (
	partialForm     = "page.form"
	partialDocument = "page.document"
)

// TemplatesFS exposes the bundled page templates so callers can copy them
// into a template directory and override individual files.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return templateFiles
	}
	return sub
}

// Options configures a Renderer.
type Options struct {
	Title     string
	BasePath  string
	Theme     string
	Variant   string
	Themes    *Themes
	Documents Documents
	// TemplateDir overrides bundled templates with files from disk.
	TemplateDir string
}

// Option mutates Options.
type Option func(*Options)

// WithTitle sets the page heading.
func WithTitle(title string) Option {
	return func(o *Options) {
		if strings.TrimSpace(title) != "" {
			o.Title = title
		}
	}
}

// WithBasePath sets the prefix used for links and API calls.
func WithBasePath(base string) Option {
	return func(o *Options) {
		o.BasePath = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithTheme selects a registered theme and variant.
func WithTheme(name, variant string) Option {
	return func(o *Options) {
		o.Theme = name
		o.Variant = variant
	}
}

// WithThemes replaces the theme set.
func WithThemes(themes *Themes) Option {
	return func(o *Options) {
		if themes != nil {
			o.Themes = themes
		}
	}
}

// WithDocuments sets the legal documents.
func WithDocuments(docs Documents) Option {
	return func(o *Options) {
		o.Documents = docs
	}
}

// WithTemplateDir loads templates from dir before the bundled ones.
func WithTemplateDir(dir string) Option {
	return func(o *Options) {
		o.TemplateDir = strings.TrimSpace(dir)
	}
}

// Renderer produces the enrollment page.
type Renderer struct {
	engine *Engine
	opts   Options
	config *theme.RendererConfig
	css    string
}

// New builds a renderer. The theme selection is resolved once.
func New(opts ...Option) (*Renderer, error) {
	options := Options{Title: "Student Enrollment Form"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}
	if options.Themes == nil {
		themes, err := NewThemes()
		if err != nil {
			return nil, err
		}
		options.Themes = themes
	}
	if options.Documents.Terms.Slug == "" {
		options.Documents = DefaultDocuments()
	}

	selection, err := options.Themes.Select(options.Theme, options.Variant)
	if err != nil {
		return nil, err
	}
	cfg := RendererConfig(selection)

	engineOpts := []EngineOption{WithFS(TemplatesFS())}
	if options.TemplateDir != "" {
		engineOpts = append(engineOpts, WithBaseDir(options.TemplateDir))
	}
	engine, err := NewEngine(engineOpts...)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		engine: engine,
		opts:   options,
		config: cfg,
		css:    cssVarsStyle(cfg.CSSVars),
	}, nil
}

// Documents returns the configured documents.
func (r *Renderer) Documents() Documents {
	return r.opts.Documents
}

// Theme returns the resolved theme configuration.
func (r *Renderer) Theme() *theme.RendererConfig {
	return r.config
}

// Form writes the page for fields and the current presentation state.
func (r *Renderer) Form(w io.Writer, name string, fields []form.Field, view presenter.View) error {
	if r == nil {
		return errors.New("page: renderer is nil")
	}
	docs := []Document{r.opts.Documents.Terms, r.opts.Documents.Privacy}
	v := newFormView(r.layout(r.opts.Title), name, fields, view, docs)
	return r.engine.Render(w, r.partial(partialForm, "enrollment"), v)
}

// Document writes one legal document page.
func (r *Renderer) Document(w io.Writer, doc Document) error {
	if r == nil {
		return errors.New("page: renderer is nil")
	}
	v := documentView{layoutView: r.layout(doc.Title), Body: doc.Body}
	return r.engine.Render(w, r.partial(partialDocument, "document"), v)
}

func (r *Renderer) layout(title string) layoutView {
	return layoutView{Title: title, BasePath: r.opts.BasePath, Theme: r.themeView()}
}

func (r *Renderer) themeView() themeView {
	view := themeView{CSS: r.css}
	if r.config != nil {
		view.Name = r.config.Theme
		view.Variant = r.config.Variant
		if r.config.AssetURL != nil {
			view.Stylesheet = r.config.AssetURL("page.stylesheet")
		}
	}
	return view
}

func (r *Renderer) partial(key, fallback string) string {
	if r.config != nil {
		if name := strings.TrimSpace(r.config.Partials[key]); name != "" {
			return name
		}
	}
	return fallback
}
