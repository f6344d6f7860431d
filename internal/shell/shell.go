package shell

import (
	"context"
	"log/slog"

	"github.com/nao1215/decoyscan/internal/report"
)

// Shell plays the animation and then renders the last-known report.
type Shell struct {
	animation *Animation
	holder    *Holder
	writer    report.Writer
	logger    *slog.Logger
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) {
		s.logger = logger
	}
}

// New creates a Shell reading from holder and rendering with writer.
func New(animation *Animation, holder *Holder, writer report.Writer, opts ...Option) *Shell {
	s := &Shell{
		animation: animation,
		holder:    holder,
		writer:    writer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run plays the animation and renders the last-known report. It reports
// whether anything was rendered; when collection has not published yet,
// nothing is written and the caller renders once collection completes.
func (s *Shell) Run(ctx context.Context) (bool, error) {
	progress := s.animation.Run(ctx)
	s.logger.Debug("animation finished", "progress", progress)

	current, ok := s.holder.Load()
	if !ok {
		s.logger.Debug("no record published yet")
		return false, nil
	}
	if _, err := s.writer.Write(current); err != nil {
		return true, err
	}
	return true, nil
}
