package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/goliatone/go-enrollment/pkg/draft"
	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/openapi"
	"github.com/goliatone/go-enrollment/pkg/page"
	"github.com/goliatone/go-enrollment/pkg/presenter"
	"github.com/goliatone/go-enrollment/pkg/rules"
	"github.com/goliatone/go-enrollment/pkg/session"
	"github.com/goliatone/go-enrollment/pkg/submission"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithDefinition replaces the embedded enrollment form definition.
func WithDefinition(def form.Definition) Option {
	return func(o *Orchestrator) {
		o.definition = &def
	}
}

// WithCalendar pins the clock and time zone used for date rules and bounds.
func WithCalendar(cal rules.Calendar) Option {
	return func(o *Orchestrator) {
		o.calendar = &cal
	}
}

// WithRegistry injects the predicate registry used to compile custom rules.
// The default registry is built against the configured calendar.
func WithRegistry(registry *rules.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithKV selects the draft backend. Defaults to an in-memory store.
func WithKV(kv draft.KV) Option {
	return func(o *Orchestrator) {
		o.kv = kv
	}
}

// WithDraftKey overrides the key drafts are stored under.
func WithDraftKey(key string) Option {
	return func(o *Orchestrator) {
		o.draftKey = key
	}
}

// WithAcceptor selects the remote acceptor. Defaults to the simulated one.
func WithAcceptor(acceptor submission.Acceptor) Option {
	return func(o *Orchestrator) {
		o.acceptor = acceptor
	}
}

// WithPresenters adds presenters next to the recorder that backs pages and
// snapshots.
func WithPresenters(presenters ...presenter.Presenter) Option {
	return func(o *Orchestrator) {
		o.presenters = append(o.presenters, presenters...)
	}
}

// WithBannerTTL sets how long non-error banners stay in the recorded view.
func WithBannerTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.bannerTTL = ttl
	}
}

// WithSessionOptions forwards options to the session, typically timings.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *Orchestrator) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// WithPageOptions forwards options to the page renderer.
func WithPageOptions(opts ...page.Option) Option {
	return func(o *Orchestrator) {
		o.pageOpts = append(o.pageOpts, opts...)
	}
}

// WithAPIOptions forwards options to the API description builder.
func WithAPIOptions(opts ...openapi.Option) Option {
	return func(o *Orchestrator) {
		o.apiOpts = append(o.apiOpts, opts...)
	}
}

// WithLogger sets the logger handed to every stage.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator assembles enrollment sessions. Missing dependencies fall back
// to the built-in implementations so callers can start with New().
type Orchestrator struct {
	definition  *form.Definition
	calendar    *rules.Calendar
	registry    *rules.Registry
	kv          draft.KV
	draftKey    string
	acceptor    submission.Acceptor
	presenters  []presenter.Presenter
	bannerTTL   time.Duration
	sessionOpts []session.Option
	pageOpts    []page.Option
	apiOpts     []openapi.Option
	logger      *zap.Logger
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		bannerTTL: presenter.DefaultBannerTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	return o
}

// Enrollment is one assembled form instance and everything that serves it.
type Enrollment struct {
	Form     *form.Form
	Engine   *rules.Engine
	Drafts   *draft.Store
	Recorder *presenter.Recorder
	Session  *session.Session
	Renderer *page.Renderer
	API      *openapi3.T
}

// Open builds a new enrollment. The session is not started; call Start.
func (o *Orchestrator) Open(ctx context.Context) (*Enrollment, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cal := rules.NewCalendar(nil, nil)
	if o.calendar != nil {
		cal = *o.calendar
	}
	def := form.DefaultDefinition()
	if o.definition != nil {
		def = *o.definition
	}
	registry := o.registry
	if registry == nil {
		registry = rules.DefaultRegistry(cal)
	}

	f, table, err := def.Build(registry)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build form: %w", err)
	}
	engine := rules.NewEngine(table)

	kv := o.kv
	if kv == nil {
		kv = draft.NewMemoryKV()
	}
	storeOpts := []draft.Option{draft.WithLogger(o.logger)}
	if o.draftKey != "" {
		storeOpts = append(storeOpts, draft.WithKey(o.draftKey))
	}
	drafts := draft.NewStore(kv, storeOpts...)

	acceptor := o.acceptor
	if acceptor == nil {
		acceptor = submission.NewSimulatedAcceptor()
	}

	recorder := presenter.NewRecorder(presenter.WithBannerTTL(o.bannerTTL))
	shown := presenter.Multi(append([]presenter.Presenter{recorder}, o.presenters...)...)

	sessionOpts := append([]session.Option{
		session.WithPresenter(shown),
		session.WithCalendar(cal),
		session.WithLogger(o.logger),
	}, o.sessionOpts...)
	sess, err := session.New(f, engine, drafts, acceptor, sessionOpts...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: new session: %w", err)
	}

	renderer, err := page.New(o.pageOpts...)
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("orchestrator: page renderer: %w", err)
	}

	doc, err := openapi.Describe(ctx, f, table, o.apiOpts...)
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("orchestrator: describe api: %w", err)
	}

	return &Enrollment{
		Form:     f,
		Engine:   engine,
		Drafts:   drafts,
		Recorder: recorder,
		Session:  sess,
		Renderer: renderer,
		API:      doc,
	}, nil
}

// Start starts the session: date bounds, draft restore and autosave.
func (e *Enrollment) Start(ctx context.Context) error {
	return e.Session.Start(ctx)
}

// Close stops the session and its timers.
func (e *Enrollment) Close() error {
	return e.Session.Close()
}
