package sink

import (
	"context"
	"log/slog"

	"github.com/nao1215/decoyscan/internal/model"
)

// RecordSaver is the write side of database.RecordDB.
type RecordSaver interface {
	SaveRecord(ctx context.Context, record model.VisitorRecord, failures []model.Failure) error
}

// JournalSink keeps a local copy of every record for the history command.
type JournalSink struct {
	db     RecordSaver
	logger *slog.Logger
}

// NewJournal wraps an open database. The caller keeps ownership of db.
func NewJournal(db RecordSaver, opts ...Option) *JournalSink {
	o := buildOptions(opts)
	return &JournalSink{db: db, logger: o.logger}
}

// Store journals record.
func (j *JournalSink) Store(ctx context.Context, record model.VisitorRecord) Result {
	return j.StoreRun(ctx, record, nil)
}

// StoreRun journals record and the run's failures.
func (j *JournalSink) StoreRun(ctx context.Context, record model.VisitorRecord, failures []model.Failure) Result {
	if err := j.db.SaveRecord(ctx, record, failures); err != nil {
		j.logger.Warn("failed to journal record", "error", err)
		return Result{Status: StatusFailed, Err: err}
	}
	return Result{Status: StatusStored}
}
