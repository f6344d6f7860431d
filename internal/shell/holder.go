package shell

import (
	"slices"
	"sync/atomic"

	"github.com/nao1215/decoyscan/internal/model"
	"github.com/nao1215/decoyscan/internal/report"
)

// Holder keeps the last-known report. It is safe for concurrent use.
type Holder struct {
	current atomic.Pointer[report.Report]
}

// Publish replaces the last-known report. The record and failures are
// copied so later changes by the caller are not observed.
func (h *Holder) Publish(record model.VisitorRecord, failures []model.Failure, storage string) {
	record.LeakedAddresses = record.Leaked()
	h.current.Store(&report.Report{
		Record:   record,
		Failures: slices.Clone(failures),
		Storage:  storage,
	})
}

// Load returns the last-known report, or false when nothing has been
// published yet.
func (h *Holder) Load() (*report.Report, bool) {
	r := h.current.Load()
	if r == nil {
		return nil, false
	}
	return r, true
}
