package page

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
)

// DefaultThemeName is the theme bundled with the page renderer.
const DefaultThemeName = "enrollment"

// DefaultManifest describes the bundled look: a light base and a dark
// variant, both expressed as design tokens.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			"primary":    "#667eea",
			"accent":     "#764ba2",
			"background": "#f5f7fb",
			"surface":    "#ffffff",
			"text":       "#1f2937",
			"muted":      "#6b7280",
			"success":    "#16a34a",
			"error":      "#dc2626",
			"info":       "#2563eb",
			"radius":     "8px",
		},
		Templates: map[string]string{
			"page.form":     "enrollment.tpl",
			"page.document": "document.tpl",
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"background": "#111827",
					"surface":    "#1f2937",
					"text":       "#f3f4f6",
					"muted":      "#9ca3af",
				},
			},
		},
	}
}

// Themes holds registered manifests and resolves selections from them.
type Themes struct {
	mu             sync.RWMutex
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

var _ theme.ThemeSelector = (*Themes)(nil)

// NewThemes validates and registers manifests. The first manifest becomes
// the default theme; with none given the bundled manifest is used.
func NewThemes(manifests ...*theme.Manifest) (*Themes, error) {
	if len(manifests) == 0 {
		manifests = []*theme.Manifest{DefaultManifest()}
	}
	registry := theme.NewRegistry()
	t := &Themes{manifests: make(map[string]*theme.Manifest, len(manifests))}
	for _, manifest := range manifests {
		if manifest == nil {
			continue
		}
		if err := registry.Register(manifest); err != nil {
			return nil, fmt.Errorf("page: register theme %q: %w", manifest.Name, err)
		}
		t.manifests[manifest.Name] = manifest
		if t.defaultTheme == "" {
			t.defaultTheme = manifest.Name
		}
	}
	if t.defaultTheme == "" {
		return nil, errors.New("page: no theme manifests")
	}
	return t, nil
}

// SetDefault changes the theme and variant used when a selection leaves
// them empty.
func (t *Themes) SetDefault(name, variant string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	manifest, ok := t.manifests[name]
	if !ok {
		return fmt.Errorf("page: unknown theme %q", name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return fmt.Errorf("page: theme %q has no variant %q", name, variant)
		}
	}
	t.defaultTheme = name
	t.defaultVariant = variant
	return nil
}

// Select resolves a theme and variant, falling back to the defaults.
func (t *Themes) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	name = strings.TrimSpace(name)
	variant = strings.TrimSpace(variant)
	if name == "" {
		name = t.defaultTheme
		if variant == "" {
			variant = t.defaultVariant
		}
	}
	manifest, ok := t.manifests[name]
	if !ok {
		return nil, fmt.Errorf("page: unknown theme %q", name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("page: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// RendererConfig flattens a selection: variant tokens, templates and asset
// files override the base ones, and every token becomes a CSS variable.
func RendererConfig(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil || selection.Manifest == nil {
		return nil
	}
	manifest := selection.Manifest
	tokens := mergeStrings(manifest.Tokens, nil)
	partials := mergeStrings(manifest.Templates, nil)
	files := mergeStrings(manifest.Assets.Files, nil)
	prefix := manifest.Assets.Prefix

	if variant, ok := manifest.Variants[selection.Variant]; ok {
		tokens = mergeStrings(tokens, variant.Tokens)
		partials = mergeStrings(partials, variant.Templates)
		files = mergeStrings(files, variant.Assets.Files)
		if variant.Assets.Prefix != "" {
			prefix = variant.Assets.Prefix
		}
	}

	vars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		vars["--"+key] = value
	}

	return &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: partials,
		Tokens:   tokens,
		CSSVars:  vars,
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok || file == "" {
				return ""
			}
			if prefix == "" {
				return file
			}
			return path.Join(prefix, file)
		},
	}
}

// cssVarsStyle renders CSS variables as a :root block in a stable order.
func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range keys {
		b.WriteString("  ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}

func mergeStrings(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range override {
		out[key] = value
	}
	return out
}
