package enrollform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/openapi"
	"github.com/goliatone/go-enrollment/pkg/page"
	"github.com/goliatone/go-enrollment/pkg/presenter"
	"github.com/goliatone/go-enrollment/pkg/rules"
	"github.com/goliatone/go-enrollment/pkg/session"
	"github.com/goliatone/go-enrollment/pkg/submission"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// Snapshot is the JSON view of the session.
type Snapshot struct {
	Name   string         `json:"name"`
	Fields []form.Field   `json:"fields"`
	View   presenter.View `json:"view"`
	State  string         `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type fieldEvent struct {
	Event   string
	Value   string
	Checked bool
}

type handler struct {
	opts Options
	mux  *http.ServeMux
}

// Handler builds the component handler with default options plus any
// overrides. A session is required.
func Handler(fns ...OptionFn) (http.Handler, error) {
	return HandlerWithOptions(NewOptions(fns...))
}

// HandlerWithOptions builds the handler from a pre-constructed Options value.
func HandlerWithOptions(opts Options) (http.Handler, error) {
	opts = NewOptions(func(o *Options) { *o = opts })
	if opts.Session == nil {
		return nil, errors.New("enrollform: missing session")
	}
	if opts.Views == nil {
		opts.Views = emptyViews{}
	}

	h := &handler{opts: opts, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/form", h.getForm)
	h.mux.HandleFunc("POST /api/fields/{id}", h.fieldEvent)
	h.mux.HandleFunc("POST /api/draft", h.saveDraft)
	h.mux.HandleFunc("DELETE /api/draft", h.resetForm)
	h.mux.HandleFunc("POST /api/reset", h.resetForm)
	h.mux.HandleFunc("POST /api/unload", h.unload)
	h.mux.HandleFunc("POST /api/submit", h.submit)
	if opts.API != nil {
		h.mux.HandleFunc("GET /api/openapi.json", h.describe)
	}
	if opts.Renderer != nil {
		h.mux.HandleFunc("GET /{$}", h.formPage)
		docs := opts.Renderer.Documents()
		for _, doc := range []page.Document{docs.Terms, docs.Privacy} {
			if doc.Slug == "" {
				continue
			}
			h.mux.Handle("GET /"+doc.Slug, h.document(doc))
		}
	}
	return h, nil
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if h.opts.Guard != nil {
		if err := h.opts.Guard(r); err != nil {
			writeGuardError(w, err)
			return
		}
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	}
	h.mux.ServeHTTP(w, r)
}

func (h *handler) getForm(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w, http.StatusOK)
}

func (h *handler) fieldEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	event, err := h.decodeFieldEvent(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	s := h.opts.Session
	switch event.Event {
	case "input":
		err = s.Input(id, event.Value, event.Checked)
	case "change":
		err = s.Change(r.Context(), id, event.Value, event.Checked)
	case "blur":
		_, err = s.Blur(id)
	case "focus":
		err = s.Focus(id)
	default:
		err = StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("enrollform: unknown event %q", event.Event)}
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, http.StatusOK)
}

func (h *handler) decodeFieldEvent(r *http.Request) (fieldEvent, error) {
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		return fieldEvent{}, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("enrollform: decode event: %w", err)}
	}
	if h.opts.API != nil {
		if err := openapi.ValidateFieldEvent(h.opts.API, body); err != nil {
			return fieldEvent{}, StatusError{Code: http.StatusBadRequest, Err: err}
		}
	}
	event := fieldEvent{}
	event.Event, _ = body["event"].(string)
	event.Value, _ = body["value"].(string)
	event.Checked, _ = body["checked"].(bool)
	return event, nil
}

func (h *handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	posted, err := h.commitPosted(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.opts.Session.SaveDraft(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	if posted {
		h.redirect(w, r)
		return
	}
	h.writeSnapshot(w, http.StatusOK)
}

func (h *handler) resetForm(w http.ResponseWriter, r *http.Request) {
	posted := isFormPost(r)
	raw := r.URL.Query().Get("confirm")
	if posted {
		if err := r.ParseForm(); err != nil {
			h.writeError(w, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}
		raw = r.PostFormValue("confirm")
	}
	confirmed, _ := strconv.ParseBool(raw)

	if _, err := h.opts.Session.Reset(r.Context(), confirmed); err != nil {
		h.writeError(w, err)
		return
	}
	if posted {
		h.redirect(w, r)
		return
	}
	h.writeSnapshot(w, http.StatusOK)
}

func (h *handler) unload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.commitPosted(r); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.opts.Session.Unload(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	posted, err := h.commitPosted(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out, err := h.opts.Session.Submit(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.opts.Logger.Info("enrollform: submission finished",
		zap.String("attempt", out.AttemptID),
		zap.String("outcome", string(out.Kind)),
	)
	if posted && out.Kind != submission.OutcomeRejected {
		h.redirect(w, r)
		return
	}
	writeJSON(w, outcomeStatus(out.Kind), out)
}

func (h *handler) describe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.opts.API)
}

func (h *handler) formPage(w http.ResponseWriter, r *http.Request) {
	f := h.opts.Session.Form()
	var buf bytes.Buffer
	if err := h.opts.Renderer.Form(&buf, f.Name(), f.Fields(), h.opts.Views.View()); err != nil {
		h.writeError(w, fmt.Errorf("enrollform: render page: %w", err))
		return
	}
	writeHTML(w, buf.Bytes())
}

func (h *handler) document(doc page.Document) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := h.opts.Renderer.Document(&buf, doc); err != nil {
			h.writeError(w, fmt.Errorf("enrollform: render %s: %w", doc.Slug, err))
			return
		}
		writeHTML(w, buf.Bytes())
	})
}

// commitPosted applies an HTML form body to the session. It reports whether
// the request was a form post.
func (h *handler) commitPosted(r *http.Request) (bool, error) {
	if !isFormPost(r) {
		return false, nil
	}
	if err := r.ParseForm(); err != nil {
		return true, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("enrollform: parse form: %w", err)}
	}
	values := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		values[key] = r.PostForm.Get(key)
	}
	return true, h.opts.Session.Commit(r.Context(), values)
}

func (h *handler) redirect(w http.ResponseWriter, r *http.Request) {
	target := h.opts.BasePath
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *handler) snapshot() Snapshot {
	s := h.opts.Session
	return Snapshot{
		Name:   s.Form().Name(),
		Fields: s.Form().Fields(),
		View:   h.opts.Views.View(),
		State:  s.Coordinator().State().String(),
	}
}

func (h *handler) writeSnapshot(w http.ResponseWriter, code int) {
	writeJSON(w, code, h.snapshot())
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.opts.Logger.Error("enrollform: request failed", zap.Error(err))
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var httpErr HTTPError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &httpErr):
		return httpErr.StatusCode()
	case errors.Is(err, form.ErrUnknownField):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrNotStarted):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func outcomeStatus(kind submission.OutcomeKind) int {
	switch kind {
	case submission.OutcomeRejected:
		return http.StatusConflict
	case submission.OutcomeInvalid:
		return http.StatusUnprocessableEntity
	case submission.OutcomeFailure:
		return http.StatusBadGateway
	}
	return http.StatusOK
}

func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeGuardError(w http.ResponseWriter, err error) {
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	writeJSON(w, code, errorResponse{Error: http.StatusText(code)})
}

type emptyViews struct{}

func (emptyViews) View() presenter.View {
	return presenter.View{Fields: map[string]rules.Result{}}
}
