package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// installedFonts resolves only the listed names, all to Go Regular.
type installedFonts map[string]bool

func (f installedFonts) Face(name string) (font.Face, bool) {
	if !f[name] {
		return nil, false
	}
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, false
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: probeSize, DPI: 72})
	if err != nil {
		return nil, false
	}
	return face, true
}

func TestCountFonts(t *testing.T) {
	t.Parallel()

	t.Run("nothing installed", func(t *testing.T) {
		t.Parallel()
		if got := CountFonts(installedFonts{}, ReferenceFonts); got != 0 {
			t.Errorf("CountFonts() = %d, expected 0", got)
		}
	})

	t.Run("nil source", func(t *testing.T) {
		t.Parallel()
		if got := CountFonts(nil, ReferenceFonts); got != 0 {
			t.Errorf("CountFonts() = %d, expected 0", got)
		}
	})

	t.Run("everything installed", func(t *testing.T) {
		t.Parallel()
		all := installedFonts{}
		for _, name := range ReferenceFonts {
			all[name] = true
		}
		if got := CountFonts(all, ReferenceFonts); got != len(ReferenceFonts) {
			t.Errorf("CountFonts() = %d, expected %d", got, len(ReferenceFonts))
		}
	})

	t.Run("monotonic in installed fonts", func(t *testing.T) {
		t.Parallel()

		installed := installedFonts{}
		previous := CountFonts(installed, ReferenceFonts)
		for _, name := range ReferenceFonts {
			installed[name] = true
			got := CountFonts(installed, ReferenceFonts)
			if got < previous {
				t.Fatalf("count dropped from %d to %d after installing %q", previous, got, name)
			}
			if got < 0 || got > len(ReferenceFonts) {
				t.Fatalf("count %d out of range", got)
			}
			previous = got
		}
	})

	t.Run("unknown names are ignored", func(t *testing.T) {
		t.Parallel()
		src := installedFonts{"Not A Reference Font": true, "Georgia": true}
		if got := CountFonts(src, ReferenceFonts); got != 1 {
			t.Errorf("CountFonts() = %d, expected 1", got)
		}
	})
}

// closeTracker wraps each face it hands out and counts Close calls.
type closeTracker struct {
	installedFonts
	opened, closed int
}

type trackedFace struct {
	font.Face
	tracker *closeTracker
}

func (f trackedFace) Close() error {
	f.tracker.closed++
	return f.Face.Close()
}

func (c *closeTracker) Face(name string) (font.Face, bool) {
	face, ok := c.installedFonts.Face(name)
	if !ok {
		return nil, false
	}
	c.opened++
	return trackedFace{Face: face, tracker: c}, true
}

func TestCountFonts_ClosesFaces(t *testing.T) {
	t.Parallel()

	src := &closeTracker{installedFonts: installedFonts{"Arial": true, "Georgia": true, "Impact": true}}
	if got := CountFonts(src, ReferenceFonts); got != 3 {
		t.Errorf("CountFonts() = %d, expected 3", got)
	}
	if src.opened != 3 || src.closed != src.opened {
		t.Errorf("opened %d faces, closed %d", src.opened, src.closed)
	}
}

func TestReferenceFontsLength(t *testing.T) {
	t.Parallel()

	if len(ReferenceFonts) != 15 {
		t.Errorf("len(ReferenceFonts) = %d, expected 15", len(ReferenceFonts))
	}
}

func TestDirFontSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := filepath.Join(dir, "truetype", "dejavu")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "DejaVuSans-Bold.ttf"), goregular.TTF, 0o600); err != nil {
		t.Fatalf("write font: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Arial.ttf"), []byte("not a font"), 0o600); err != nil {
		t.Fatalf("write font: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("Verdana"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	src := NewDirFontSource(dir, filepath.Join(dir, "missing"))

	if _, ok := src.Face("DejaVu Sans"); !ok {
		t.Error("expected DejaVu Sans to resolve")
	}
	if _, ok := src.Face("Arial"); ok {
		t.Error("expected corrupt Arial to be rejected")
	}
	if _, ok := src.Face("Verdana"); ok {
		t.Error("expected non-font file to be ignored")
	}
	if _, ok := src.Face(""); ok {
		t.Error("expected empty name to be rejected")
	}

	if got := CountFonts(src, ReferenceFonts); got != 1 {
		t.Errorf("CountFonts() = %d, expected 1", got)
	}
}

func TestFontKey(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"Times New Roman": "timesnewroman",
		"times-new-roman": "timesnewroman",
		"Comic_Sans.MS":   "comicsansms",
		"":                "",
	}
	for in, want := range testCases {
		if got := fontKey(in); got != want {
			t.Errorf("fontKey(%q) = %q, expected %q", in, got, want)
		}
	}
}
