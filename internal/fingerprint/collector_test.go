package fingerprint

import (
	"context"
	"errors"
	"net"
	"testing"

	"golang.org/x/image/font"

	"github.com/nao1215/decoyscan/internal/model"
)

func fakeEnvironment() Environment {
	return Environment{
		Getenv:   envFrom(map[string]string{"TZ": "Europe/Paris", "LANG": "fr_FR.UTF-8"}),
		Readlink: noLink,
		TermSize: func() (int, int, error) { return 80, 24, nil },
		Interfaces: func() ([]net.Interface, error) {
			return []net.Interface{{Name: "eth0", Flags: net.FlagUp}}, nil
		},
		LookPath: func(string) (string, error) { return "", errors.New("not found") },
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()

	c := NewCollector("1.0.0",
		WithEnvironment(fakeEnvironment()),
		WithFontSource(installedFonts{"Arial": true, "Helvetica": true}),
		WithUserAgent("custom-agent/1.0"),
	)

	fp, ok := c.Collect(context.Background())
	if !ok {
		t.Fatal("expected successful collection")
	}

	want := model.Fingerprint{
		UserAgent:          "custom-agent/1.0",
		ScreenResolution:   "80x24",
		TimezoneName:       "Europe/Paris",
		BrowserLocale:      "fr-FR",
		ConnectionClass:    ConnectionEthernet,
		PluginCount:        0,
		CanvasFingerprint:  fp.CanvasFingerprint,
		FontsDetectedCount: 2,
	}
	if fp != want {
		t.Errorf("Collect() = %+v, expected %+v", fp, want)
	}
	if len(fp.CanvasFingerprint) != canvasSliceLen {
		t.Errorf("canvas fingerprint = %q", fp.CanvasFingerprint)
	}
}

func TestCollectCanvasSentinels(t *testing.T) {
	t.Parallel()

	t.Run("blocked", func(t *testing.T) {
		t.Parallel()
		c := NewCollector("", WithEnvironment(fakeEnvironment()), WithCanvasBlocked(true), WithFontSource(installedFonts{}))
		fp, _ := c.Collect(context.Background())
		if fp.CanvasFingerprint != model.CanvasBlocked {
			t.Errorf("CanvasFingerprint = %q, expected %q", fp.CanvasFingerprint, model.CanvasBlocked)
		}
	})

	t.Run("render error", func(t *testing.T) {
		t.Parallel()
		c := NewCollector("", WithEnvironment(fakeEnvironment()), WithFontSource(installedFonts{}))
		c.canvas = func() (string, error) { return "", errors.New("no surface") }
		fp, ok := c.Collect(context.Background())
		if fp.CanvasFingerprint != model.CanvasUnavailable {
			t.Errorf("CanvasFingerprint = %q, expected %q", fp.CanvasFingerprint, model.CanvasUnavailable)
		}
		if !ok {
			t.Error("other probes should still succeed")
		}
	})

	t.Run("render panic", func(t *testing.T) {
		t.Parallel()
		c := NewCollector("", WithEnvironment(fakeEnvironment()), WithFontSource(installedFonts{}))
		c.canvas = func() (string, error) { panic("driver crashed") }
		fp, _ := c.Collect(context.Background())
		if fp.CanvasFingerprint != model.CanvasUnavailable {
			t.Errorf("CanvasFingerprint = %q, expected %q", fp.CanvasFingerprint, model.CanvasUnavailable)
		}
	})
}

// panickingFonts fails every lookup.
type panickingFonts struct{}

func (panickingFonts) Face(string) (font.Face, bool) { panic("font subsystem gone") }

func TestCollectAllProbesFail(t *testing.T) {
	t.Parallel()

	boom := func() { panic("unavailable") }
	env := Environment{
		Getenv:     func(string) string { boom(); return "" },
		Readlink:   func(string) (string, error) { boom(); return "", nil },
		TermSize:   func() (int, int, error) { boom(); return 0, 0, nil },
		Interfaces: func() ([]net.Interface, error) { boom(); return nil, nil },
		LookPath:   func(string) (string, error) { boom(); return "", nil },
	}
	c := NewCollector("", WithEnvironment(env), WithFontSource(panickingFonts{}), WithUserAgent("ua"))
	c.canvas = func() (string, error) { boom(); return "", nil }

	fp, ok := c.Collect(context.Background())
	if ok {
		t.Error("expected collection to report failure")
	}

	want := model.DefaultFingerprint()
	want.UserAgent = "ua"
	if fp != want {
		t.Errorf("Collect() = %+v, expected %+v", fp, want)
	}
}

func TestCollectCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fp, ok := NewCollector("", WithEnvironment(fakeEnvironment())).Collect(ctx)
	if ok {
		t.Error("expected no probes to run")
	}
	if fp.ScreenResolution != model.Unknown {
		t.Errorf("ScreenResolution = %q, expected sentinel", fp.ScreenResolution)
	}
}
