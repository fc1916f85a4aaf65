package prompt

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/goliatone/go-enrollment/pkg/draft"
	"github.com/goliatone/go-enrollment/pkg/presenter"
	"github.com/goliatone/go-enrollment/pkg/session"
	"github.com/goliatone/go-enrollment/pkg/submission"
	"github.com/goliatone/go-enrollment/pkg/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubDriver replays scripted answers. Like survey, it re-asks when a
// validator rejects an answer.
type stubDriver struct {
	inputs    []string
	selects   []int
	textAreas []string
	confirms  []bool
	infos     []string
	err       error

	inputPos, selectPos, textPos, confirmPos int
	rejected                                 int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	for s.inputPos < len(s.inputs) {
		val := s.inputs[s.inputPos]
		s.inputPos++
		if cfg.Validator != nil && cfg.Validator(val) != nil {
			s.rejected++
			continue
		}
		return val, nil
	}
	return "", errors.New("no input scripted")
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	for s.textPos < len(s.textAreas) {
		val := s.textAreas[s.textPos]
		s.textPos++
		if cfg.Validator != nil && cfg.Validator(val) != nil {
			s.rejected++
			continue
		}
		return val, nil
	}
	return "", errors.New("no textarea scripted")
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selects) {
		return -1, errors.New("no select scripted")
	}
	val := s.selects[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirms) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirms[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

type fixture struct {
	session  *session.Session
	store    *draft.Store
	recorder *presenter.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f, engine := testsupport.EnrollmentForm(t)
	store := draft.NewStore(draft.NewMemoryKV())
	rec := presenter.NewRecorder()
	acceptor := submission.NewSimulatedAcceptor(submission.WithDelay(0), submission.WithRandom(func() float64 { return 0 }))
	s, err := session.New(f, engine, store, acceptor,
		session.WithPresenter(rec),
		session.WithCalendar(testsupport.Calendar(testsupport.Today)),
		session.WithAutosave(0),
		session.WithResetDelay(time.Hour),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return fixture{session: s, store: store, recorder: rec}
}

func happyDriver() *stubDriver {
	return &stubDriver{
		inputs: []string{
			"Ada",                             // firstName
			"Lovelace",                        // lastName
			"nope", "ada@example.com",         // email, first answer rejected
			"",                                // phone (optional)
			"2000-12-10",                      // dateOfBirth
			"abc123456",                       // studentId
			"2024-09-01",                      // enrollmentDate
			"London",                          // city
			"Greater London",                  // state
			"SW1Y 4JH",                        // zipCode
			"Mary Somerville",                 // emergencyName
			"+44 20 7946 0958",                // emergencyPhone
			"",                                // emergencyEmail (optional)
		},
		selects:   []int{0, 1, 2, 1},
		textAreas: []string{"12", "12 St James's Square"},
		confirms:  []bool{false, false, true, true},
	}
}

func TestFill_HappyPathSubmits(t *testing.T) {
	fx := newFixture(t)
	driver := happyDriver()
	filler, err := NewFiller(fx.session, WithDriver(driver))
	if err != nil {
		t.Fatalf("new filler: %v", err)
	}

	out, err := filler.Fill(context.Background())
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if out.Kind != submission.OutcomeSuccess {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if driver.rejected != 2 {
		t.Fatalf("expected two rejected answers, got %d", driver.rejected)
	}
	if driver.confirmPos != 4 {
		t.Fatalf("expected terms to be re-asked, confirms used = %d", driver.confirmPos)
	}
	if _, found := fx.store.Load(context.Background()); found {
		t.Fatalf("draft should be cleared after a successful submission")
	}
	course, _ := fx.session.Form().Field("course")
	if course.Value != "computer-science" {
		t.Fatalf("course = %q", course.Value)
	}
}

func TestFill_DeclineSavesDraft(t *testing.T) {
	fx := newFixture(t)
	driver := happyDriver()
	driver.confirms[3] = false

	filler, _ := NewFiller(fx.session, WithDriver(driver))
	if _, err := filler.Fill(context.Background()); !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
	rec, found := fx.store.Load(context.Background())
	if !found || rec["studentId"] != "abc123456" || rec["terms"] != true {
		t.Fatalf("draft not saved: %v", rec)
	}
	if banner := fx.recorder.View().Banner; banner == nil || banner.Message != session.DraftSavedMessage {
		t.Fatalf("unexpected banner: %+v", banner)
	}
}

func TestFill_AbortSavesDraftSilently(t *testing.T) {
	fx := newFixture(t)
	filler, _ := NewFiller(fx.session, WithDriver(&stubDriver{err: ErrAborted}))
	if _, err := filler.Fill(context.Background()); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if _, found := fx.store.Load(context.Background()); !found {
		t.Fatalf("expected a draft after abort")
	}
	if fx.recorder.View().Banner != nil {
		t.Fatalf("abort saves without a banner")
	}
}

func TestFill_GivesUpAfterMaxAttempts(t *testing.T) {
	fx := newFixture(t)
	testsupport.FillValid(t, fx.session.Form())
	_ = fx.session.Form().SetChecked("terms", false)

	driver := &stubDriver{
		inputs:   []string{""},
		confirms: []bool{false, false, false, false},
	}
	filler, _ := NewFiller(fx.session, WithDriver(driver), WithOnlyMissing(), WithMaxAttempts(3))
	_, err := filler.Fill(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if driver.confirmPos != 4 {
		t.Fatalf("expected newsletter once and terms three times, got %d confirms", driver.confirmPos)
	}
}

func TestFill_OnlyMissingSkipsValidFields(t *testing.T) {
	fx := newFixture(t)
	testsupport.FillValid(t, fx.session.Form())

	driver := &stubDriver{
		inputs:   []string{"mary@example.org"},
		confirms: []bool{true, true},
	}
	filler, _ := NewFiller(fx.session, WithDriver(driver), WithOnlyMissing())
	out, err := filler.Fill(context.Background())
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if out.Kind != submission.OutcomeSuccess {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if driver.inputPos != 1 || driver.selectPos != 0 || driver.textPos != 0 {
		t.Fatalf("valid fields were asked again: inputs=%d selects=%d texts=%d", driver.inputPos, driver.selectPos, driver.textPos)
	}
}

func TestNewFiller_RequiresSession(t *testing.T) {
	if _, err := NewFiller(nil); err == nil {
		t.Fatalf("expected error")
	}
}
