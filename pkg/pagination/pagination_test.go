package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	original := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC),
		ID:        uuid.New(),
	}
	decoded, err := ParseCursor(EncodeCursor(original))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if decoded == nil {
		t.Fatal("expected a cursor")
	}
	if !decoded.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("timestamp drifted: %s vs %s", decoded.CreatedAt, original.CreatedAt)
	}
	if decoded.ID != original.ID {
		t.Errorf("id drifted: %s vs %s", decoded.ID, original.ID)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	t.Parallel()

	cursor, err := ParseCursor("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cursor != nil {
		t.Fatal("blank cursor should decode to nil")
	}
}

func TestParseCursorInvalid(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"not-base64!", "bm8tcGlwZQ==", "YmFkfGN1cnNvcg=="} {
		if _, err := ParseCursor(value); err == nil {
			t.Errorf("expected error for %q", value)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	t.Parallel()

	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Errorf("zero should default, got %d", got)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Errorf("negative should default, got %d", got)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Errorf("oversized should cap, got %d", got)
	}
	if got := NormalizeLimit(7); got != 7 {
		t.Errorf("in-range should pass through, got %d", got)
	}
	if got := LimitWithBuffer(7); got != 8 {
		t.Errorf("buffer should add one, got %d", got)
	}
}
