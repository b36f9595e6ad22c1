package audit

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestCursor_RoundTrip(t *testing.T) {
	t.Parallel()

	want := cursor{OccurredAt: time.Date(2026, 3, 1, 9, 30, 0, 123456000, time.UTC), Seq: 42}
	got, err := decodeCursor(encodeCursor(want))
	if err != nil {
		t.Fatalf("decodeCursor: %v", err)
	}
	if !got.OccurredAt.Equal(want.OccurredAt) || got.Seq != want.Seq {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	t.Parallel()

	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "!!!"},
		{"no separator", enc("12345")},
		{"bad timestamp", enc("abc|1")},
		{"bad seq", enc("12345|x")},
		{"zero seq", enc("12345|0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := decodeCursor(tt.token); err == nil {
				t.Error("expected error")
			}
		})
	}
}
