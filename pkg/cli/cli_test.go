package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/voxauth/voxauth/pkg/verify"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{95 * time.Second, "1m35.0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{3 * 1024 * 1024, "3.00 MB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestOutputFormats(t *testing.T) {
	result := map[string]any{"identity": "s1", "score": 0.91}

	var buf bytes.Buffer
	if err := Output(result, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"identity": "s1"`) {
		t.Fatalf("json output missing identity: %s", buf.String())
	}

	buf.Reset()
	if err := Output(result, OutputOptions{Format: FormatYAML, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "identity: s1") {
		t.Fatalf("yaml output missing identity: %s", buf.String())
	}

	if err := Output(result, OutputOptions{Format: "csv", Writer: &buf}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestStylesDecision(t *testing.T) {
	s := NewStyles(DefaultTheme)
	for d, want := range map[verify.Decision]string{
		verify.Accept:        "ACCEPT",
		verify.PossibleMatch: "POSSIBLE MATCH",
		verify.Reject:        "REJECT",
	} {
		if got := s.Decision(d); !strings.Contains(got, want) {
			t.Errorf("Decision(%v) = %q, want substring %q", d, got, want)
		}
	}
}
