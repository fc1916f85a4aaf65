package page

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

const templateExt = ".tpl"

// EngineOption configures the template engine before construction.
type EngineOption func(*engineConfig)

type engineConfig struct {
	baseDir   string
	templates fs.FS
}

// WithBaseDir loads templates from a directory on disk. Templates found
// there shadow the embedded ones.
func WithBaseDir(dir string) EngineOption {
	return func(cfg *engineConfig) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from files.
func WithFS(files fs.FS) EngineOption {
	return func(cfg *engineConfig) {
		cfg.templates = files
	}
}

// view is a page model that knows its own template context.
type view interface {
	context() pongo2.Context
}

// Engine renders page views with pongo2. Parsed templates are cached by
// name.
type Engine struct {
	set *pongo2.TemplateSet

	mu     sync.Mutex
	parsed map[string]*pongo2.Template
}

// NewEngine builds an engine. At least one template source is required;
// a base directory is searched before the file system.
func NewEngine(options ...EngineOption) (*Engine, error) {
	var cfg engineConfig
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		local, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("page: template dir: %w", err)
		}
		loaders = append(loaders, local)
	}
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}
	if len(loaders) == 0 {
		return nil, errors.New("page: need a template directory or fs.FS")
	}

	registerFilters()
	return &Engine{
		set:    pongo2.NewSet("enrollment", loaders...),
		parsed: make(map[string]*pongo2.Template),
	}, nil
}

// Render executes the named template (".tpl" may be omitted) for v. Nothing
// is written to w when execution fails.
func (e *Engine) Render(w io.Writer, name string, v view) error {
	if e == nil || e.set == nil {
		return errors.New("page: engine is nil")
	}
	if !strings.HasSuffix(name, templateExt) {
		name += templateExt
	}
	tmpl, err := e.lookup(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(v.context(), &buf); err != nil {
		return fmt.Errorf("page: execute %q: %w", name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

func (e *Engine) lookup(name string) (*pongo2.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.parsed[name]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("page: load template %q: %w", name, err)
	}
	e.parsed[name] = tmpl
	return tmpl, nil
}

var filtersOnce sync.Once

func registerFilters() {
	filtersOnce.Do(func() {
		if !pongo2.FilterExists("unstar") {
			_ = pongo2.RegisterFilter("unstar", filterUnstar)
		}
	})
}

// filterUnstar drops required markers from a label.
func filterUnstar(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(strings.ReplaceAll(in.String(), "*", ""))), nil
}
