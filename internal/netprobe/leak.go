package netprobe

import (
	"context"
	"log/slog"
	"time"
)

// DefaultLeakWindow bounds the whole negotiation session.
const DefaultLeakWindow = 2 * time.Second

// Session is a transient negotiation session that surfaces address
// candidates as they are gathered.
type Session interface {
	// Candidates yields raw candidate addresses. It is closed when the
	// session has finished gathering.
	Candidates() <-chan string

	// Close tears the session down.
	Close() error
}

// SessionOpener opens a new Session.
type SessionOpener interface {
	Open(ctx context.Context) (Session, error)
}

// LeakProbe harvests locally bound and reflexive addresses from a
// negotiation session.
type LeakProbe struct {
	opener SessionOpener
	window time.Duration
	logger *slog.Logger
}

// LeakOption configures a LeakProbe.
type LeakOption func(*LeakProbe)

// WithWindow sets how long the session may gather candidates.
func WithWindow(window time.Duration) LeakOption {
	return func(p *LeakProbe) {
		if window > 0 {
			p.window = window
		}
	}
}

// WithLeakLogger sets the logger.
func WithLeakLogger(logger *slog.Logger) LeakOption {
	return func(p *LeakProbe) {
		p.logger = logger
	}
}

// NewLeakProbe creates a probe that opens sessions with opener.
// A nil opener yields a probe that always reports nothing.
func NewLeakProbe(opener SessionOpener, opts ...LeakOption) *LeakProbe {
	p := &LeakProbe{
		opener: opener,
		window: DefaultLeakWindow,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ResolveLeakedAddresses returns every distinct IPv4 candidate the session
// surfaced within the window, in discovery order. The session is closed
// exactly once, at the deadline or as soon as gathering completes. The
// result is never nil.
func (p *LeakProbe) ResolveLeakedAddresses(ctx context.Context) []string {
	addresses := []string{}
	if p.opener == nil {
		return addresses
	}

	ctx, cancel := context.WithTimeout(ctx, p.window)
	defer cancel()

	session, err := p.opener.Open(ctx)
	if err != nil {
		p.logger.Debug("negotiation session unavailable", "error", err)
		return addresses
	}
	defer func() {
		if err := session.Close(); err != nil {
			p.logger.Debug("failed to close negotiation session", "error", err)
		}
	}()

	seen := make(map[string]struct{})
	candidates := session.Candidates()
	for {
		select {
		case raw, ok := <-candidates:
			if !ok {
				return addresses
			}
			address, valid := NormalizeAddress(raw)
			if !valid {
				continue
			}
			if _, dup := seen[address]; dup {
				continue
			}
			seen[address] = struct{}{}
			addresses = append(addresses, address)
		case <-ctx.Done():
			return addresses
		}
	}
}
