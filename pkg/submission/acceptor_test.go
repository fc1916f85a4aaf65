package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSimulatedAcceptor_SuccessAndFailure(t *testing.T) {
	at := time.UnixMilli(1792152000000)
	cases := []struct {
		name    string
		draw    float64
		wantID  string
		wantErr error
	}{
		{name: "below rate succeeds", draw: 0.5, wantID: "ST1792152000000"},
		{name: "at rate fails", draw: 0.9, wantErr: ErrServer},
		{name: "above rate fails", draw: 0.95, wantErr: ErrServer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draw := tc.draw
			a := NewSimulatedAcceptor(
				WithDelay(0),
				WithRandom(func() float64 { return draw }),
				WithNow(func() time.Time { return at }),
			)
			receipt, err := a.Accept(context.Background(), Record{})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if receipt.ID != tc.wantID {
				t.Fatalf("id = %q, want %q", receipt.ID, tc.wantID)
			}
		})
	}
}

func TestSimulatedAcceptor_HonoursCancellation(t *testing.T) {
	a := NewSimulatedAcceptor(WithDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Accept(ctx, Record{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatedAcceptor_Defaults(t *testing.T) {
	a := NewSimulatedAcceptor(WithSuccessRate(7))
	if a.delay != DefaultDelay {
		t.Fatalf("delay = %s", a.delay)
	}
	if a.rate != 1 {
		t.Fatalf("rate should be clamped to 1, got %v", a.rate)
	}
}

func TestHTTPAcceptor_PostsRecordWithCorrelationID(t *testing.T) {
	var gotHeader string
	var gotBody Record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		gotHeader = r.Header.Get(RequestIDHeader)
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"R-7"}`))
	}))
	defer srv.Close()

	a, err := NewHTTPAcceptor(srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new acceptor: %v", err)
	}
	ctx := WithAttemptID(context.Background(), "attempt-1")
	receipt, err := a.Accept(ctx, Record{"firstName": "Ada"})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if receipt.ID != "R-7" {
		t.Fatalf("receipt = %+v", receipt)
	}
	if gotHeader != "attempt-1" {
		t.Fatalf("request id header = %q", gotHeader)
	}
	if diff := cmp.Diff(Record{"firstName": "Ada"}, gotBody); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPAcceptor_Non2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(RequestIDHeader) == "" {
			t.Errorf("missing request id")
		}
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a, err := NewHTTPAcceptor(srv.URL, WithTimeout(time.Second), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new acceptor: %v", err)
	}
	if _, err := a.Accept(context.Background(), Record{}); !errors.Is(err, ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
}

func TestNewHTTPAcceptor_RequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPAcceptor("  "); err == nil {
		t.Fatalf("expected error")
	}
}
