package sink

import (
	"context"
	"log/slog"

	"github.com/nao1215/decoyscan/internal/config"
	"github.com/nao1215/decoyscan/internal/database"
	"github.com/nao1215/decoyscan/internal/model"
)

// LibSQLSink inserts records into a libsql/Turso database. The connection
// is opened per write so an unreachable database only affects that write.
type LibSQLSink struct {
	url    string
	token  string
	open   func(ctx context.Context, url, token string) (recordStore, error)
	logger *slog.Logger
}

// recordStore is a RecordSaver owned by the sink.
type recordStore interface {
	RecordSaver
	Close() error
}

// NewLibSQL creates a LibSQLSink for storage.
func NewLibSQL(storage config.Storage, opts ...Option) *LibSQLSink {
	o := buildOptions(opts)
	return &LibSQLSink{
		url:   storage.URL,
		token: storage.Key,
		open: func(ctx context.Context, url, token string) (recordStore, error) {
			return database.OpenLibSQL(ctx, url, token)
		},
		logger: o.logger,
	}
}

// Store inserts record.
func (s *LibSQLSink) Store(ctx context.Context, record model.VisitorRecord) Result {
	return s.StoreRun(ctx, record, nil)
}

// StoreRun inserts record together with the run's failures.
func (s *LibSQLSink) StoreRun(ctx context.Context, record model.VisitorRecord, failures []model.Failure) Result {
	db, err := s.open(ctx, s.url, s.token)
	if err != nil {
		s.logger.Warn("failed to connect to record database", "error", err)
		return Result{Status: StatusFailed, Err: err}
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Debug("failed to close record database", "error", err)
		}
	}()

	if err := db.SaveRecord(ctx, record, failures); err != nil {
		s.logger.Warn("failed to persist record", "error", err)
		return Result{Status: StatusFailed, Err: err}
	}
	return Result{Status: StatusStored}
}
