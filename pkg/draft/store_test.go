package draft

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-enrollment/pkg/form"
)

func sampleForm(t *testing.T) *form.Form {
	t.Helper()
	f, err := form.New("studentForm",
		form.Field{ID: "firstName", Label: "First Name *"},
		form.Field{ID: "course", Kind: form.KindSelect, Options: []form.Option{{Value: "law"}}},
		form.Field{ID: "newsletter", Kind: form.KindCheckbox},
		form.Field{ID: "terms", Kind: form.KindCheckbox, Value: "accepted"},
	)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	return f
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv)

	src := sampleForm(t)
	_ = src.SetValue("firstName", "  Ada ")
	_ = src.SetValue("course", "law")
	_ = src.SetChecked("terms", true)
	store.Save(ctx, src.Fields())

	_, found, err := kv.Get(ctx, DefaultKey)
	if err != nil || !found {
		t.Fatalf("expected draft under %q, found=%v err=%v", DefaultKey, found, err)
	}
	rec, ok := store.Load(ctx)
	if !ok {
		t.Fatalf("expected draft to load")
	}
	want := Record{"firstName": "  Ada ", "course": "law", "newsletter": false, "terms": true}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	dst := sampleForm(t)
	applied := Restore(dst, rec)
	if diff := cmp.Diff([]string{"firstName", "course", "newsletter", "terms"}, applied); diff != "" {
		t.Fatalf("applied mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(src.Fields(), dst.Fields()); diff != "" {
		t.Fatalf("restored form differs (-want +got):\n%s", diff)
	}
}

func TestCapture_IgnoresCheckboxValueAttribute(t *testing.T) {
	f := sampleForm(t)
	rec := Capture(f.Fields())
	if rec["terms"] != false {
		t.Fatalf("expected unchecked box to be stored as false, got %#v", rec["terms"])
	}
}

func TestRestore_SkipsUnknownKeys(t *testing.T) {
	f := sampleForm(t)
	applied := Restore(f, Record{
		"firstName":  "Grace",
		"middleName": "Brewster",
		"terms":      "true",
		"legacy":     true,
	})
	if diff := cmp.Diff([]string{"firstName", "terms"}, applied); diff != "" {
		t.Fatalf("applied mismatch (-want +got):\n%s", diff)
	}
	terms, _ := f.Field("terms")
	if !terms.Checked || terms.Value != "accepted" {
		t.Fatalf("unexpected terms state: %+v", terms)
	}
}

func TestStore_LoadMissingKey(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := NewStore(NewMemoryKV(), WithLogger(zap.New(core)))

	if rec, ok := store.Load(context.Background()); ok || rec != nil {
		t.Fatalf("expected no draft, got %#v", rec)
	}
	if logs.Len() != 0 {
		t.Fatalf("a missing draft must not be logged, got %d entries", logs.Len())
	}
}

func TestStore_LoadMalformedIsLoggedAndIgnored(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	kv := NewMemoryKV()
	store := NewStore(kv, WithLogger(zap.New(core)), WithKey("custom"))

	for _, payload := range []string{"{not json", "null", `["a","b"]`} {
		_ = kv.Put(ctx, "custom", []byte(payload))
		if rec, ok := store.Load(ctx); ok || rec != nil {
			t.Fatalf("payload %q: expected no draft, got %#v", payload, rec)
		}
	}
	if got := logs.FilterMessage("draft: discarding malformed draft").Len(); got != 3 {
		t.Fatalf("expected three warnings, got %d", got)
	}
}

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingKV) Put(context.Context, string, []byte) error         { return f.err }
func (f failingKV) Delete(context.Context, string) error              { return f.err }

func TestStore_StorageErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	store := NewStore(failingKV{err: errors.New("quota exceeded")}, WithLogger(zap.New(core)))

	store.Save(ctx, sampleForm(t).Fields())
	if _, ok := store.Load(ctx); ok {
		t.Fatalf("expected load to report no draft")
	}
	store.Clear(ctx)

	if got := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); got != 3 {
		t.Fatalf("expected three error logs, got %d", got)
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv)
	store.Save(ctx, sampleForm(t).Fields())
	store.Clear(ctx)

	if _, found, _ := kv.Get(ctx, DefaultKey); found {
		t.Fatalf("expected draft key to be gone")
	}
}
