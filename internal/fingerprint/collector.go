package fingerprint

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/decoyscan/internal/model"
)

// Collector gathers a model.Fingerprint from the host.
type Collector struct {
	userAgent   string
	blockCanvas bool
	fonts       FontSource
	fontNames   []string
	env         Environment
	canvas      func() (string, error)
	logger      *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithUserAgent overrides the reported agent string.
func WithUserAgent(ua string) Option {
	return func(c *Collector) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithCanvasBlocked makes the canvas probe report model.CanvasBlocked
// without rendering.
func WithCanvasBlocked(blocked bool) Option {
	return func(c *Collector) {
		c.blockCanvas = blocked
	}
}

// WithFontSource sets where reference fonts are looked up.
func WithFontSource(src FontSource) Option {
	return func(c *Collector) {
		c.fonts = src
	}
}

// WithEnvironment replaces host accessors, mainly for tests.
func WithEnvironment(env Environment) Option {
	return func(c *Collector) {
		c.env = env.withDefaults()
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		c.logger = logger
	}
}

// NewCollector creates a collector reading the real host.
func NewCollector(version string, opts ...Option) *Collector {
	c := &Collector{
		userAgent: DefaultUserAgent(version),
		fonts:     NewSystemFontSource(),
		fontNames: ReferenceFonts,
		env:       HostEnvironment(),
		canvas:    CanvasHash,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs every probe. ok is false only when no probe produced a
// value of its own, in which case the result equals
// model.DefaultFingerprint apart from the user agent.
func (c *Collector) Collect(ctx context.Context) (fp model.Fingerprint, ok bool) {
	fp = model.DefaultFingerprint()
	fp.UserAgent = c.userAgent

	succeeded := 0
	run := func(name string, probe func() error) {
		if ctx.Err() != nil {
			return
		}
		if err := recoverProbe(probe); err != nil {
			c.logger.Debug("fingerprint probe failed", "probe", name, "error", err)
			return
		}
		succeeded++
	}

	run("canvas", func() error {
		if c.blockCanvas {
			fp.CanvasFingerprint = model.CanvasBlocked
			return nil
		}
		hash, err := c.canvas()
		if err != nil {
			return err
		}
		fp.CanvasFingerprint = hash
		return nil
	})
	run("fonts", func() error {
		fp.FontsDetectedCount = CountFonts(c.fonts, c.fontNames)
		return nil
	})
	run("screen", func() error {
		fp.ScreenResolution = ScreenResolution(c.env)
		return nil
	})
	run("timezone", func() error {
		fp.TimezoneName = TimezoneName(c.env)
		return nil
	})
	run("locale", func() error {
		fp.BrowserLocale = Locale(c.env)
		return nil
	})
	run("connection", func() error {
		fp.ConnectionClass = ConnectionClass(c.env)
		return nil
	})
	run("plugins", func() error {
		fp.PluginCount = PluginCount(c.env)
		return nil
	})

	return fp, succeeded > 0
}

// recoverProbe runs probe and turns a panic into an error.
func recoverProbe(probe func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return probe()
}
