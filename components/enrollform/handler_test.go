package enrollform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/goliatone/go-enrollment/pkg/draft"
	"github.com/goliatone/go-enrollment/pkg/openapi"
	"github.com/goliatone/go-enrollment/pkg/page"
	"github.com/goliatone/go-enrollment/pkg/presenter"
	"github.com/goliatone/go-enrollment/pkg/rules"
	"github.com/goliatone/go-enrollment/pkg/session"
	"github.com/goliatone/go-enrollment/pkg/submission"
	"github.com/goliatone/go-enrollment/pkg/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	session  *session.Session
	store    *draft.Store
	recorder *presenter.Recorder
	mux      *http.ServeMux
}

func succeed() submission.Acceptor {
	return submission.NewSimulatedAcceptor(
		submission.WithDelay(0),
		submission.WithRandom(func() float64 { return 0 }),
	)
}

func newFixture(t *testing.T, acceptor submission.Acceptor, fns ...OptionFn) fixture {
	t.Helper()
	ctx := testsupport.Context()

	f, engine := testsupport.EnrollmentForm(t)
	store := draft.NewStore(draft.NewMemoryKV())
	rec := presenter.NewRecorder()
	if acceptor == nil {
		acceptor = succeed()
	}
	s, err := session.New(f, engine, store, acceptor,
		session.WithPresenter(rec),
		session.WithCalendar(testsupport.Calendar(testsupport.Today)),
		session.WithAutosave(0),
		session.WithDebounce(time.Millisecond),
		session.WithResetDelay(time.Hour),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start session: %v", err)
	}

	renderer, err := page.New(page.WithBasePath("/enroll"))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	doc, err := openapi.Describe(ctx, f, engine.Table(), openapi.WithBasePath("/enroll"))
	if err != nil {
		t.Fatalf("describe: %v", err)
	}

	mux := http.NewServeMux()
	base := []OptionFn{WithSession(s), WithViews(rec), WithRenderer(renderer), WithAPI(doc)}
	if _, err := RegisterRoutes(mux, "/enroll", append(base, fns...)...); err != nil {
		t.Fatalf("register routes: %v", err)
	}
	return fixture{session: s, store: store, recorder: rec, mux: mux}
}

func (fx fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	return rec
}

func (fx fixture) post(t *testing.T, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestGetForm_ReturnsSnapshot(t *testing.T) {
	fx := newFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/enroll/api/form", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content-type, got %q", ct)
	}
	snap := decode[Snapshot](t, rec)
	if snap.Name != "studentForm" || snap.State != "idle" {
		t.Fatalf("unexpected snapshot header: %q %q", snap.Name, snap.State)
	}
	if len(snap.Fields) != len(fx.session.Form().Fields()) {
		t.Fatalf("expected %d fields, got %d", len(fx.session.Form().Fields()), len(snap.Fields))
	}
	for _, field := range snap.Fields {
		if field.ID == "dateOfBirth" && field.Max != "2010-10-16" {
			t.Fatalf("date bounds missing from snapshot: %+v", field)
		}
	}
}

func TestFieldEvent_BlurPresentsResult(t *testing.T) {
	fx := newFixture(t, nil)

	rec := fx.do(t, http.MethodPost, "/enroll/api/fields/firstName", `{"event":"blur"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body)
	}
	snap := decode[Snapshot](t, rec)
	got := snap.View.Fields["firstName"]
	if got.Status != rules.StatusInvalid || got.Message != "First Name is required" {
		t.Fatalf("unexpected field state: %+v", got)
	}

	rec = fx.do(t, http.MethodPost, "/enroll/api/fields/firstName", `{"event":"focus"}`)
	snap = decode[Snapshot](t, rec)
	if _, shown := snap.View.Fields["firstName"]; shown {
		t.Fatalf("focus must clear the field state")
	}
}

func TestFieldEvent_ChangeSavesDraft(t *testing.T) {
	fx := newFixture(t, nil)

	rec := fx.do(t, http.MethodPost, "/enroll/api/fields/city", `{"event":"change","value":"Paris"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body)
	}
	saved, found := fx.store.Load(testsupport.Context())
	if !found || saved["city"] != "Paris" {
		t.Fatalf("draft not saved: %v", saved)
	}

	rec = fx.do(t, http.MethodPost, "/enroll/api/fields/terms", `{"event":"change","checked":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if terms, _ := fx.session.Form().Field("terms"); !terms.Checked {
		t.Fatalf("checkbox change not applied")
	}
}

func TestFieldEvent_Errors(t *testing.T) {
	fx := newFixture(t, nil)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "malformed json", path: "firstName", body: `{`, want: http.StatusBadRequest},
		{name: "event outside schema", path: "firstName", body: `{"event":"shout"}`, want: http.StatusBadRequest},
		{name: "wrong value type", path: "firstName", body: `{"event":"input","value":7}`, want: http.StatusBadRequest},
		{name: "unknown field", path: "nickname", body: `{"event":"blur"}`, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := fx.do(t, http.MethodPost, "/enroll/api/fields/"+tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body)
			}
			payload := decode[errorResponse](t, rec)
			if payload.Error == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestSubmit_StatusByOutcome(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		fx := newFixture(t, nil)
		rec := fx.do(t, http.MethodPost, "/enroll/api/submit", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d", rec.Code)
		}
		out := decode[submission.Outcome](t, rec)
		if out.Kind != submission.OutcomeInvalid || out.FirstInvalid != "firstName" {
			t.Fatalf("unexpected outcome: %+v", out)
		}
	})

	t.Run("success", func(t *testing.T) {
		fx := newFixture(t, nil)
		testsupport.FillValid(t, fx.session.Form())
		fx.store.Save(testsupport.Context(), fx.session.Form().Fields())

		rec := fx.do(t, http.MethodPost, "/enroll/api/submit", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body)
		}
		out := decode[submission.Outcome](t, rec)
		if out.Kind != submission.OutcomeSuccess || !strings.HasPrefix(out.Receipt.ID, "ST") {
			t.Fatalf("unexpected outcome: %+v", out)
		}
		if _, found := fx.store.Load(testsupport.Context()); found {
			t.Fatalf("draft must be cleared after success")
		}
	})

	t.Run("failure", func(t *testing.T) {
		fail := submission.NewSimulatedAcceptor(
			submission.WithDelay(0),
			submission.WithRandom(func() float64 { return 0.99 }),
		)
		fx := newFixture(t, fail)
		testsupport.FillValid(t, fx.session.Form())

		rec := fx.do(t, http.MethodPost, "/enroll/api/submit", "")
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected status 502, got %d", rec.Code)
		}
		if banner := fx.recorder.View().Banner; banner == nil || banner.Message != submission.FailureMessage {
			t.Fatalf("unexpected banner: %+v", banner)
		}
	})
}

func TestSubmit_ConcurrentRequestIsRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := submission.AcceptorFunc(func(ctx context.Context, _ submission.Record) (submission.Receipt, error) {
		close(entered)
		<-release
		return submission.Receipt{ID: "ST1"}, nil
	})
	fx := newFixture(t, blocking)
	testsupport.FillValid(t, fx.session.Form())

	done := make(chan int)
	go func() {
		done <- fx.do(t, http.MethodPost, "/enroll/api/submit", "").Code
	}()
	<-entered

	rec := fx.do(t, http.MethodPost, "/enroll/api/submit", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	if out := decode[submission.Outcome](t, rec); out.Kind != submission.OutcomeRejected {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("first submission: expected status 200, got %d", code)
	}
}

func TestFormPost_SubmitRedirectsToPage(t *testing.T) {
	fx := newFixture(t, nil)
	values := url.Values{}
	for id, value := range testsupport.ValidValues() {
		values.Set(id, value)
	}
	values.Set("terms", "on")

	rec := fx.post(t, "/enroll/api/submit", values)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d: %s", rec.Code, rec.Body)
	}
	if loc := rec.Header().Get("Location"); loc != "/enroll" {
		t.Fatalf("unexpected redirect: %q", loc)
	}
	if banner := fx.recorder.View().Banner; banner == nil || banner.Message != submission.SuccessMessage {
		t.Fatalf("unexpected banner: %+v", banner)
	}
}

func TestFormPost_SaveDraft(t *testing.T) {
	fx := newFixture(t, nil)

	rec := fx.post(t, "/enroll/api/draft", url.Values{"city": {"Lyon"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	saved, _ := fx.store.Load(testsupport.Context())
	if saved["city"] != "Lyon" {
		t.Fatalf("posted value not saved: %v", saved)
	}
	if banner := fx.recorder.View().Banner; banner == nil || banner.Message != session.DraftSavedMessage {
		t.Fatalf("unexpected banner: %+v", banner)
	}
}

func TestReset(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := testsupport.Context()
	if err := fx.session.Change(ctx, "city", "Oslo", false); err != nil {
		t.Fatalf("change: %v", err)
	}

	rec := fx.do(t, http.MethodDelete, "/enroll/api/draft", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if city, _ := fx.session.Form().Field("city"); city.Value != "Oslo" {
		t.Fatalf("unconfirmed reset must not clear values")
	}

	rec = fx.do(t, http.MethodDelete, "/enroll/api/draft?confirm=true", "")
	snap := decode[Snapshot](t, rec)
	if snap.View.Banner == nil || snap.View.Banner.Message != session.ResetMessage {
		t.Fatalf("unexpected banner: %+v", snap.View.Banner)
	}
	if _, found := fx.store.Load(ctx); found {
		t.Fatalf("reset must clear the draft")
	}

	_ = fx.session.Change(ctx, "city", "Oslo", false)
	rec = fx.post(t, "/enroll/api/reset", url.Values{"confirm": {"true"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if city, _ := fx.session.Form().Field("city"); city.Value != "" {
		t.Fatalf("posted reset did not clear values")
	}
}

func TestUnload_SavesSilently(t *testing.T) {
	fx := newFixture(t, nil)
	if err := fx.session.Input("state", "Bavaria", false); err != nil {
		t.Fatalf("input: %v", err)
	}

	rec := fx.do(t, http.MethodPost, "/enroll/api/unload", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if saved, _ := fx.store.Load(testsupport.Context()); saved["state"] != "Bavaria" {
		t.Fatalf("unload did not save: %v", saved)
	}
	if fx.recorder.View().Banner != nil {
		t.Fatalf("unload must not show a banner")
	}
}

func TestPages(t *testing.T) {
	fx := newFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/enroll/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<form id="studentForm"`) || !strings.Contains(body, `action="/enroll/api/submit"`) {
		t.Fatalf("unexpected page: %s", body)
	}

	rec = fx.do(t, http.MethodGet, "/enroll/terms", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Terms and Conditions") {
		t.Fatalf("terms page: %d %s", rec.Code, rec.Body)
	}
	if rec = fx.do(t, http.MethodGet, "/enroll/privacy", ""); rec.Code != http.StatusOK {
		t.Fatalf("privacy page: %d", rec.Code)
	}
	if rec = fx.do(t, http.MethodGet, "/enroll/cookies", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown document, got %d", rec.Code)
	}
}

func TestDescribeRoute(t *testing.T) {
	fx := newFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/enroll/api/openapi.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	payload := decode[map[string]any](t, rec)
	if payload["openapi"] != "3.0.3" {
		t.Fatalf("unexpected document: %v", payload["openapi"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	fx := newFixture(t, nil)
	rec := fx.do(t, http.MethodGet, "/enroll/api/submit", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestGuard(t *testing.T) {
	fx := newFixture(t, nil, WithGuard(func(r *http.Request) error {
		if r.Header.Get("X-Token") == "" {
			return StatusError{Code: http.StatusUnauthorized, Err: errors.New("missing token")}
		}
		return nil
	}))

	rec := fx.do(t, http.MethodGet, "/enroll/api/form", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/enroll/api/form", nil)
	req.Header.Set("X-Token", "t")
	ok := httptest.NewRecorder()
	fx.mux.ServeHTTP(ok, req)
	if ok.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", ok.Code)
	}
}

func TestClosedSession(t *testing.T) {
	fx := newFixture(t, nil)
	_ = fx.session.Close()

	rec := fx.do(t, http.MethodPost, "/enroll/api/draft", "")
	if rec.Code != http.StatusGone {
		t.Fatalf("expected status 410, got %d", rec.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	fx := newFixture(t, nil, WithMaxBodyBytes(16))
	rec := fx.do(t, http.MethodPost, "/enroll/api/fields/city", `{"event":"change","value":"a very long city name"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rec.Code)
	}
}

func TestStatusError(t *testing.T) {
	err := StatusError{Code: http.StatusTeapot}
	if err.Error() != http.StatusText(http.StatusTeapot) || err.StatusCode() != http.StatusTeapot {
		t.Fatalf("unexpected status error: %v %d", err, err.StatusCode())
	}
	wrapped := StatusError{Err: errors.New("boom")}
	if wrapped.StatusCode() != http.StatusInternalServerError || !errors.Is(wrapped, wrapped.Err) {
		t.Fatalf("unexpected wrapped error: %v", wrapped)
	}
}

func TestComponent_RegisterRoutes(t *testing.T) {
	fx := newFixture(t, nil)

	component := New(WithSession(fx.session), WithViews(fx.recorder), WithMaxBodyBytes(0))
	if got := component.Options().MaxBodyBytes; got != DefaultMaxBodyBytes {
		t.Fatalf("expected default body limit, got %d", got)
	}

	mux := http.NewServeMux()
	pattern, err := component.RegisterRoutes(mux, "/apply/")
	if err != nil {
		t.Fatalf("register routes: %v", err)
	}
	if pattern != "/apply/" {
		t.Fatalf("unexpected mount pattern %q", pattern)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apply/api/form", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if _, err := New().Handler(); err == nil {
		t.Fatalf("expected error without a session")
	}
}
