package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/decoyscan/internal/assemble"
	"github.com/nao1215/decoyscan/internal/model"
	"github.com/nao1215/decoyscan/internal/sink"
)

// Step is one independent branch of a collection pass.
//
// Do must write only the Partials field it owns. A returned error is
// logged; the branch's partial is still used as written.
type Step interface {
	Do(ctx context.Context, partials *assemble.Partials) error
	Name() string
}

// Outcome is everything a pass produced.
type Outcome struct {
	// Record is the assembled record. It is valid whatever the sink did.
	Record model.VisitorRecord

	// Failures lists sub-collections that produced no value.
	Failures []model.Failure

	// Result is the persistence outcome.
	Result sink.Result
}

// Pipeline runs steps concurrently and assembles their output.
type Pipeline struct {
	steps    []Step
	classify bool
	sink     sink.Sink
	logger   *slog.Logger

	now         func() time.Time
	newID       func() string
	onAssembled func(model.VisitorRecord, []model.Failure)
	onStored    func(Outcome)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSink sets where records are persisted. The default stores nothing
// and reports not_configured.
func WithSink(s sink.Sink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithClassify enables the relay heuristic.
func WithClassify(enabled bool) Option {
	return func(p *Pipeline) {
		p.classify = enabled
	}
}

// WithClock replaces time.Now for the capture timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSessionIDs replaces the session identifier generator.
func WithSessionIDs(newID func() string) Option {
	return func(p *Pipeline) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// WithOnAssembled registers a callback that receives the record as soon
// as it is assembled, before persistence starts.
func WithOnAssembled(fn func(model.VisitorRecord, []model.Failure)) Option {
	return func(p *Pipeline) {
		p.onAssembled = fn
	}
}

// WithOnStored registers a callback that receives the finished outcome
// once the sink has returned.
func WithOnStored(fn func(Outcome)) Option {
	return func(p *Pipeline) {
		p.onStored = fn
	}
}

// New creates a Pipeline with no steps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
		sink:  sink.NotConfigured{},
		now:   time.Now,
		newID: assemble.NewSessionID,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in the order they were added.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs one pass. It never fails: collection problems end up in
// Outcome.Failures and persistence problems in Outcome.Result.
func (p *Pipeline) Execute(ctx context.Context) Outcome {
	id := p.newID()
	logger := p.logger.With("session_id", id)
	start := time.Now()
	logger.Debug("starting collection", "steps", p.StepCount())

	partials := assemble.Partials{Classify: p.classify}

	// Steps never cancel each other, so the plain group is used.
	var g errgroup.Group
	for _, step := range p.steps {
		g.Go(func() error {
			logger.Debug("executing step", "step", step.Name())
			if err := runStep(ctx, step, &partials); err != nil {
				logger.Warn("step failed", "step", step.Name(), "error", err)
				return nil
			}
			logger.Debug("step completed", "step", step.Name())
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // steps always return nil

	record, failures := assemble.Combine(id, p.now(), partials)
	logger.Info("record assembled",
		"failures", len(failures),
		"address_resolved", record.HasPublicAddress(),
		"threat_tier", record.ThreatTier.String(),
		"elapsed", time.Since(start),
	)

	if p.onAssembled != nil {
		p.onAssembled(record, failures)
	}

	result := sink.StoreRun(ctx, p.sink, record, failures)
	switch result.Status {
	case sink.StatusFailed:
		logger.Warn("record not persisted", "status_code", result.StatusCode, "error", result.Err)
	case sink.StatusNotConfigured:
		logger.Debug("persistence disabled")
	default:
		logger.Debug("record persisted")
	}

	out := Outcome{Record: record, Failures: failures, Result: result}
	if p.onStored != nil {
		p.onStored(out)
	}
	return out
}

// runStep runs step and turns a panic into an error.
func runStep(ctx context.Context, step Step, partials *assemble.Partials) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v", step.Name(), r)
		}
	}()
	return step.Do(ctx, partials)
}
