package fingerprint

import (
	"errors"
	"strings"
	"testing"
)

func TestCanvasHash(t *testing.T) {
	t.Parallel()

	first, err := CanvasHash()
	if err != nil {
		t.Fatalf("CanvasHash() error = %v", err)
	}
	if len(first) != canvasSliceLen {
		t.Errorf("len(CanvasHash()) = %d, expected %d", len(first), canvasSliceLen)
	}

	second, err := CanvasHash()
	if err != nil {
		t.Fatalf("CanvasHash() error = %v", err)
	}
	if first != second {
		t.Errorf("CanvasHash() not stable: %q vs %q", first, second)
	}
}

func TestTailSlice(t *testing.T) {
	t.Parallel()

	if _, err := tailSlice("short"); !errors.Is(err, errShortEncoding) {
		t.Errorf("tailSlice(short) error = %v, expected errShortEncoding", err)
	}

	encoded := strings.Repeat("a", 100) + strings.Repeat("b", canvasSliceLen) + strings.Repeat("c", canvasTailSkip)
	got, err := tailSlice(encoded)
	if err != nil {
		t.Fatalf("tailSlice() error = %v", err)
	}
	if got != strings.Repeat("b", canvasSliceLen) {
		t.Errorf("tailSlice() = %q", got)
	}
}
