package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/decoyscan/internal/config"
	"github.com/nao1215/decoyscan/internal/model"
)

// Status is the outcome of a store attempt.
type Status string

const (
	// StatusStored means the record was accepted.
	StatusStored Status = "stored"

	// StatusNotConfigured means persistence is disabled; nothing was sent.
	StatusNotConfigured Status = "not_configured"

	// StatusFailed means the write was attempted and did not succeed.
	StatusFailed Status = "failed"
)

// ErrNotConfigured is carried by results of an unconfigured sink.
var ErrNotConfigured = errors.New("storage endpoint or key not configured")

// Result describes a store attempt.
type Result struct {
	Status Status

	// StatusCode is the HTTP status for REST sinks, otherwise 0.
	StatusCode int

	// Err is set when Status is StatusFailed or StatusNotConfigured.
	Err error
}

// OK reports whether the record was stored.
func (r Result) OK() bool {
	return r.Status == StatusStored
}

// Sink persists a record.
type Sink interface {
	Store(ctx context.Context, record model.VisitorRecord) Result
}

// RunRecorder is implemented by sinks that also keep the failures of the
// run that produced the record.
type RunRecorder interface {
	StoreRun(ctx context.Context, record model.VisitorRecord, failures []model.Failure) Result
}

// StoreRun writes record to s, passing failures along when s keeps them.
func StoreRun(ctx context.Context, s Sink, record model.VisitorRecord, failures []model.Failure) Result {
	if rr, ok := s.(RunRecorder); ok {
		return rr.StoreRun(ctx, record, failures)
	}
	return s.Store(ctx, record)
}

// New returns the sink for storage: unconfigured when URL or Key is
// missing, a LibSQLSink for libsql:// URLs, otherwise a RESTSink.
func New(storage config.Storage, opts ...Option) Sink {
	if !storage.Configured() {
		return NotConfigured{}
	}
	if storage.IsLibSQL() {
		return NewLibSQL(storage, opts...)
	}
	return NewREST(storage, opts...)
}

// NotConfigured is the sink used when persistence is disabled.
type NotConfigured struct{}

// Store makes no network call.
func (NotConfigured) Store(context.Context, model.VisitorRecord) Result {
	return Result{Status: StatusNotConfigured, Err: ErrNotConfigured}
}

// options are shared by the concrete sinks.
type options struct {
	logger *slog.Logger
	client HTTPDoer
}

// Option configures a sink.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient sets the client used by RESTSink.
func WithHTTPClient(client HTTPDoer) Option {
	return func(o *options) {
		o.client = client
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Multi writes to a primary sink and any number of secondary sinks.
// The primary's result is returned; secondary failures are only logged.
type Multi struct {
	primary     Sink
	secondaries []Sink
	logger      *slog.Logger
}

// NewMulti creates a fan-out sink.
func NewMulti(primary Sink, secondaries []Sink, opts ...Option) *Multi {
	o := buildOptions(opts)
	return &Multi{primary: primary, secondaries: secondaries, logger: o.logger}
}

// Store writes record everywhere.
func (m *Multi) Store(ctx context.Context, record model.VisitorRecord) Result {
	return m.StoreRun(ctx, record, nil)
}

// StoreRun writes record and failures everywhere.
func (m *Multi) StoreRun(ctx context.Context, record model.VisitorRecord, failures []model.Failure) Result {
	result := StoreRun(ctx, m.primary, record, failures)
	for _, s := range m.secondaries {
		if r := StoreRun(ctx, s, record, failures); r.Status == StatusFailed {
			m.logger.Warn("secondary sink failed", "error", r.Err)
		}
	}
	return result
}
