package enrollform

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/goliatone/go-enrollment/pkg/page"
	"github.com/goliatone/go-enrollment/pkg/presenter"
	"github.com/goliatone/go-enrollment/pkg/session"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes int64 = 64 << 10

// GuardFunc rejects a request by returning an error. Errors implementing
// HTTPError choose the status code.
type GuardFunc func(r *http.Request) error

// ViewSource supplies the presentation state rendered into pages and
// snapshots. *presenter.Recorder satisfies it.
type ViewSource interface {
	View() presenter.View
}

type Options struct {
	Session  *session.Session
	Views    ViewSource
	Renderer *page.Renderer
	API      *openapi3.T

	// BasePath is the mount prefix. Plain form posts are redirected to it.
	// RegisterRoutes sets it.
	BasePath     string
	MaxBodyBytes int64
	Guard        GuardFunc
	Logger       *zap.Logger
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		MaxBodyBytes: DefaultMaxBodyBytes,
		Logger:       zap.NewNop(),
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	opts.BasePath = normalizeBase(opts.BasePath)
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

func WithSession(s *session.Session) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Session = s
	}
}

// WithViews sets the presentation state source, usually the recorder the
// session presents to.
func WithViews(v ViewSource) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Views = v
	}
}

// WithRenderer enables the HTML page and document routes.
func WithRenderer(r *page.Renderer) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Renderer = r
	}
}

// WithAPI enables the description route and field event validation.
func WithAPI(doc *openapi3.T) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.API = doc
	}
}

func WithBasePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.BasePath = path
	}
}

func WithMaxBodyBytes(n int64) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxBodyBytes = n
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithLogger(logger *zap.Logger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}
