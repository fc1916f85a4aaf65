package presenter

import (
	"sync"
	"time"

	"github.com/goliatone/go-enrollment/pkg/rules"
)

// DefaultBannerTTL is how long info and success banners stay visible.
const DefaultBannerTTL = 5 * time.Second

// Banner is a form-level message.
type Banner struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Shown    time.Time `json:"shown"`
}

// View is a snapshot of everything a Recorder has been told to show.
type View struct {
	Fields map[string]rules.Result `json:"fields"`
	Banner *Banner                 `json:"banner,omitempty"`
	Busy   bool                    `json:"busy"`
	Focus  string                  `json:"focus,omitempty"`
}

// Recorder keeps the latest presentation state in memory so it can be
// served as a snapshot.
type Recorder struct {
	mu     sync.Mutex
	fields map[string]rules.Result
	banner *Banner
	busy   bool
	focus  string
	ttl    time.Duration
	now    func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithBannerTTL sets how long non-error banners remain visible. Zero keeps
// them until replaced.
func WithBannerTTL(ttl time.Duration) RecorderOption {
	return func(r *Recorder) {
		if ttl >= 0 {
			r.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for banner expiry.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder returns an empty recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		fields: make(map[string]rules.Result),
		ttl:    DefaultBannerTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

func (r *Recorder) Field(result rules.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[result.FieldID] = result
}

func (r *Recorder) ClearField(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fields, id)
}

func (r *Recorder) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields = make(map[string]rules.Result)
	r.focus = ""
}

func (r *Recorder) Banner(severity Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banner = &Banner{Severity: severity, Message: message, Shown: r.now()}
}

func (r *Recorder) Busy(busy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = busy
}

func (r *Recorder) Focus(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus = id
}

// View returns a copy of the current state. Expired non-error banners are
// dropped.
func (r *Recorder) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.banner != nil && r.banner.Severity != SeverityError && r.ttl > 0 {
		if r.now().Sub(r.banner.Shown) >= r.ttl {
			r.banner = nil
		}
	}

	view := View{
		Fields: make(map[string]rules.Result, len(r.fields)),
		Busy:   r.busy,
		Focus:  r.focus,
	}
	for id, result := range r.fields {
		view.Fields[id] = result
	}
	if r.banner != nil {
		banner := *r.banner
		view.Banner = &banner
	}
	return view
}

// Invalid returns the ids of fields currently shown as invalid.
func (v View) Invalid() []string {
	var out []string
	for id, result := range v.Fields {
		if result.Status == rules.StatusInvalid {
			out = append(out, id)
		}
	}
	return out
}
