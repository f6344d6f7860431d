package shell

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"
)

// Defaults for the progress animation.
const (
	DefaultDuration = 6 * time.Second
	DefaultTick     = 150 * time.Millisecond

	barWidth = 30
)

// stage is a status line shown once progress passes from.
type stage struct {
	from  float64
	label string
}

var stages = []stage{
	{0, "Initializing scan engine"},
	{12, "Checking network exposure"},
	{30, "Scanning running processes"},
	{50, "Inspecting browser profiles"},
	{70, "Verifying system integrity"},
	{88, "Compiling security report"},
}

// Animation draws a progress bar that reaches 100% after roughly Duration.
// Each tick advances by a random amount averaging 100*Tick/Duration.
type Animation struct {
	out         io.Writer
	duration    time.Duration
	tick        time.Duration
	interactive bool
	jitter      func() float64
}

// AnimationOption configures an Animation.
type AnimationOption func(*Animation)

// WithDuration sets the expected time to reach 100%. Zero skips the
// animation entirely.
func WithDuration(d time.Duration) AnimationOption {
	return func(a *Animation) {
		if d >= 0 {
			a.duration = d
		}
	}
}

// WithTick sets the redraw interval.
func WithTick(d time.Duration) AnimationOption {
	return func(a *Animation) {
		if d > 0 {
			a.tick = d
		}
	}
}

// WithInteractive redraws the bar in place. When false only stage changes
// are printed, one per line.
func WithInteractive(interactive bool) AnimationOption {
	return func(a *Animation) {
		a.interactive = interactive
	}
}

// WithJitter replaces the random source. f must return values in [0, 1).
func WithJitter(f func() float64) AnimationOption {
	return func(a *Animation) {
		if f != nil {
			a.jitter = f
		}
	}
}

// NewAnimation creates an Animation writing to out.
func NewAnimation(out io.Writer, opts ...AnimationOption) *Animation {
	a := &Animation{
		out:         out,
		duration:    DefaultDuration,
		tick:        DefaultTick,
		interactive: true,
		jitter:      rand.Float64,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run animates until progress reaches 100% or ctx is done. It returns the
// final progress.
func (a *Animation) Run(ctx context.Context) float64 {
	if a.duration == 0 {
		return 100
	}

	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()

	mean := 100 * float64(a.tick) / float64(a.duration)
	progress := 0.0
	lastStage := a.draw(progress, -1)

	for progress < 100 {
		select {
		case <-ctx.Done():
			a.finish()
			return progress
		case <-ticker.C:
			// Increments are uniform in [0.5, 1.5) of the mean step.
			progress = min(100, progress+mean*(0.5+a.jitter()))
			lastStage = a.draw(progress, lastStage)
		}
	}
	a.finish()
	return progress
}

// draw renders one frame and returns the index of the current stage.
func (a *Animation) draw(progress float64, lastStage int) int {
	idx := stageAt(progress)
	if a.interactive {
		filled := int(progress / 100 * barWidth)
		fmt.Fprintf(a.out, "\r[%s%s] %3.0f%%  %-32s",
			strings.Repeat("#", filled),
			strings.Repeat(".", barWidth-filled),
			progress,
			stages[idx].label,
		)
		return idx
	}
	if idx != lastStage {
		fmt.Fprintf(a.out, "%3.0f%%  %s\n", progress, stages[idx].label)
	}
	return idx
}

func (a *Animation) finish() {
	if a.interactive {
		fmt.Fprintln(a.out)
	}
}

func stageAt(progress float64) int {
	idx := 0
	for i, s := range stages {
		if progress >= s.from {
			idx = i
		}
	}
	return idx
}
