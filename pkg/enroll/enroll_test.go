package enroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxauth/voxauth/pkg/feature"
	"github.com/voxauth/voxauth/pkg/kv"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(kv.NewMemory())
}

func testEncoding(seed float64) *feature.Encoding {
	data := make([]float64, 4*3)
	for i := range data {
		data[i] = seed + float64(i)
	}
	return &feature.Encoding{Type: feature.Spectrogram, Frames: 4, Bins: 3, Data: data}
}

func TestRegisterAndFetchIdentity(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.RegisterIdentity(ctx, "alice", "Alice", "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	ident, err := s.Identity(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if ident.Name != "Alice" || ident.Email != "alice@example.com" {
		t.Errorf("identity = %+v", ident)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if err := s.RegisterIdentity(ctx, "alice", "Alice", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterIdentity(ctx, "alice", "Alice 2", ""); !errors.Is(err, ErrIdentityExists) {
		t.Errorf("err = %v, want ErrIdentityExists", err)
	}
}

func TestIdentityNotFound(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if _, err := s.Identity(ctx, "ghost"); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("err = %v, want ErrIdentityNotFound", err)
	}
	if _, err := s.AddSample(ctx, "ghost", testEncoding(0), 0); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("AddSample err = %v, want ErrIdentityNotFound", err)
	}
}

func TestAddSampleAndTemplate(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if err := s.RegisterIdentity(ctx, "alice", "Alice", ""); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Template(ctx, "alice"); !errors.Is(err, ErrNoSamples) {
		t.Errorf("empty template err = %v, want ErrNoSamples", err)
	}

	if _, err := s.AddSample(ctx, "alice", testEncoding(1), 0.9); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSample(ctx, "alice", testEncoding(2), 0.8); err != nil {
		t.Fatal(err)
	}

	tpl, err := s.Template(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(tpl.Samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(tpl.Samples))
	}
	if encs := tpl.Encodings(); len(encs) != 2 || encs[0].Frames != 4 {
		t.Errorf("Encodings() = %d entries", len(encs))
	}
}

func TestSampleIsolatedFromCallerMutation(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if err := s.RegisterIdentity(ctx, "alice", "Alice", ""); err != nil {
		t.Fatal(err)
	}
	enc := testEncoding(1)
	if _, err := s.AddSample(ctx, "alice", enc, 0); err != nil {
		t.Fatal(err)
	}
	enc.Data[0] = 999 // caller mutates after storing

	tpl, err := s.Template(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if tpl.Samples[0].Encoding.Data[0] == 999 {
		t.Error("stored encoding aliases caller's slice")
	}
}

func TestTemplatesEligibleOnly(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	for _, id := range []string{"alice", "bob", "carol"} {
		if err := s.RegisterIdentity(ctx, id, id, ""); err != nil {
			t.Fatal(err)
		}
	}
	// carol has no samples and must not appear.
	if _, err := s.AddSample(ctx, "alice", testEncoding(1), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSample(ctx, "bob", testEncoding(2), 0); err != nil {
		t.Fatal(err)
	}

	tpls, err := s.Templates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tpls) != 2 {
		t.Errorf("got %d eligible identities, want 2", len(tpls))
	}
	if _, ok := tpls["carol"]; ok {
		t.Error("carol has no samples but appears in Templates")
	}
}

func TestRemoveIdentity(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if err := s.RegisterIdentity(ctx, "alice", "Alice", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSample(ctx, "alice", testEncoding(1), 0); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveIdentity(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Identity(ctx, "alice"); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("err = %v, want ErrIdentityNotFound", err)
	}
	tpls, err := s.Templates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tpls) != 0 {
		t.Errorf("samples survived identity removal: %v", tpls)
	}
}

func TestAttemptLog(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	attempts := []Attempt{
		{Identity: "alice", Success: true, Score: 0.91, At: base},
		{Identity: "unknown", Success: false, Score: 0.12, At: base.Add(time.Minute)},
		{Identity: "bob", Success: false, Score: 0.61, At: base.Add(2 * time.Minute)},
	}
	for _, a := range attempts {
		if err := s.RecordAttempt(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Attempts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d attempts, want 3", len(got))
	}
	// Chronological order from the date+nanosecond key layout.
	for i, a := range attempts {
		if got[i].Identity != a.Identity || got[i].Success != a.Success {
			t.Errorf("attempt %d = %+v, want %+v", i, got[i], a)
		}
	}
}

func TestRecordAttemptFillsTimestamp(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	if err := s.RecordAttempt(ctx, Attempt{Identity: "unknown", Score: 0}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Attempts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].At.IsZero() {
		t.Errorf("attempt timestamp not filled: %+v", got)
	}
}
