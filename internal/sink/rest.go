package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/decoyscan/internal/config"
	"github.com/nao1215/decoyscan/internal/model"
)

// DefaultRESTTimeout bounds one POST.
const DefaultRESTTimeout = 10 * time.Second

// HTTPDoer is the subset of *http.Client used by RESTSink.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTSink posts records as JSON to a REST table endpoint.
type RESTSink struct {
	url    string
	key    string
	client HTTPDoer
	logger *slog.Logger
}

// NewREST creates a RESTSink for storage.
func NewREST(storage config.Storage, opts ...Option) *RESTSink {
	o := buildOptions(opts)
	client := o.client
	if client == nil {
		client = &http.Client{Timeout: DefaultRESTTimeout}
	}
	return &RESTSink{
		url:    storage.URL,
		key:    storage.Key,
		client: client,
		logger: o.logger,
	}
}

// Store posts record. Any 2xx response counts as stored.
func (s *RESTSink) Store(ctx context.Context, record model.VisitorRecord) Result {
	body, err := json.Marshal(record)
	if err != nil {
		return s.fail(0, fmt.Errorf("failed to serialize record: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return s.fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(0, fmt.Errorf("failed to post record: %w", err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.fail(resp.StatusCode, fmt.Errorf("store rejected record: status %d", resp.StatusCode))
	}

	s.logger.Debug("record stored", "session_id", record.SessionID, "status", resp.StatusCode)
	return Result{Status: StatusStored, StatusCode: resp.StatusCode}
}

func (s *RESTSink) fail(code int, err error) Result {
	s.logger.Warn("failed to persist record", "status", code, "error", err)
	return Result{Status: StatusFailed, StatusCode: code, Err: err}
}
