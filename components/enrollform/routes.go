package enrollform

import (
	"fmt"
	"net/http"
	"strings"
)

// Mux is the minimal interface required to register a net/http handler.
// It is satisfied by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// MountPath returns the pattern the component is registered under for
// basePath.
func MountPath(basePath string) string {
	base := normalizeBase(basePath)
	return base + "/"
}

// RegisterRoutes registers the component under basePath on mux and returns
// the registered pattern.
func RegisterRoutes(mux Mux, basePath string, fns ...OptionFn) (string, error) {
	return RegisterRoutesWithOptions(mux, basePath, NewOptions(fns...))
}

// RegisterRoutesWithOptions registers the component using a pre-built
// Options value. basePath replaces opts.BasePath.
func RegisterRoutesWithOptions(mux Mux, basePath string, opts Options) (string, error) {
	if mux == nil {
		return "", fmt.Errorf("enrollform: missing mux")
	}
	opts.BasePath = normalizeBase(basePath)
	h, err := HandlerWithOptions(opts)
	if err != nil {
		return "", err
	}
	pattern := MountPath(basePath)
	if opts.BasePath != "" {
		h = http.StripPrefix(opts.BasePath, h)
	}
	mux.Handle(pattern, h)
	return pattern, nil
}

// normalizeBase returns "" for the root, otherwise a path with a leading
// slash and no trailing slash.
func normalizeBase(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	basePath = strings.TrimRight(basePath, "/")
	if basePath == "" {
		return ""
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return basePath
}
