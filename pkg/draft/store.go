package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-enrollment/pkg/form"
)

// DefaultKey is the fixed key drafts are stored under.
const DefaultKey = "studentFormDraft"

// Record maps field ids to a string value, or a bool for checkboxes.
type Record map[string]any

// Capture builds a record from field snapshots. Checkboxes contribute their
// checked state; their value attribute is ignored.
func Capture(fields []form.Field) Record {
	rec := make(Record, len(fields))
	for _, field := range fields {
		if field.IsCheckbox() {
			rec[field.ID] = field.Checked
			continue
		}
		rec[field.ID] = field.Value
	}
	return rec
}

// Restore writes rec into f: string fields take the stored value verbatim,
// checkboxes take the stored checked state. Keys with no matching field are
// skipped. The ids that were applied are returned in document order.
func Restore(f *form.Form, rec Record) []string {
	var applied []string
	for _, field := range f.Fields() {
		raw, ok := rec[field.ID]
		if !ok {
			continue
		}
		var err error
		if field.IsCheckbox() {
			err = f.SetChecked(field.ID, truthy(raw))
		} else {
			err = f.SetValue(field.ID, stringify(raw))
		}
		if err == nil {
			applied = append(applied, field.ID)
		}
	}
	return applied
}

// Store saves, loads and clears the draft of one form.
type Store struct {
	kv     KV
	key    string
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			s.key = trimmed
		}
	}
}

// WithLogger sets the logger used to report swallowed errors.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore wraps kv.
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		key:    DefaultKey,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Key returns the storage key.
func (s *Store) Key() string {
	return s.key
}

// Save persists the current values of fields, overwriting any previous
// draft. Failures are logged and dropped.
func (s *Store) Save(ctx context.Context, fields []form.Field) {
	payload, err := json.Marshal(Capture(fields))
	if err != nil {
		s.logger.Error("draft: encode", zap.String("key", s.key), zap.Error(err))
		return
	}
	if err := s.kv.Put(ctx, s.key, payload); err != nil {
		s.logger.Error("draft: save", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.logger.Debug("draft: saved", zap.String("key", s.key), zap.Int("fields", len(fields)))
}

// Load returns the stored draft. A missing key, unreadable storage or
// malformed content all yield (nil, false); the latter two are logged.
func (s *Store) Load(ctx context.Context) (Record, bool) {
	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.Error("draft: load", zap.String("key", s.key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	rec, err := decode(raw)
	if err != nil {
		s.logger.Warn("draft: discarding malformed draft", zap.String("key", s.key), zap.Error(err))
		return nil, false
	}
	return rec, true
}

// Clear deletes the stored draft. Failures are logged and dropped.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.logger.Error("draft: clear", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.logger.Debug("draft: cleared", zap.String("key", s.key))
}

func decode(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("draft: record is not an object")
	}
	return rec, nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != "" && !strings.EqualFold(v, "false")
	case float64:
		return v != 0
	default:
		return false
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
