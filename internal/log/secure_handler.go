package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"apikey":              true,
	"api_key":             true,
	"api-key":             true,
	"storage_key":         true,
	"password":            true,
	"secret":              true,
	"token":               true,
	"auth_token":          true,
	"access_token":        true,
	"credentials":         true,
}

// sensitiveKeywords mask any key that contains them. The bare word "key"
// is excluded; it matches too many harmless names.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// sensitivePatterns mask values regardless of their key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// ipv4Pattern captures the first three octets of an IPv4 address.
var ipv4Pattern = regexp.MustCompile(`\b((?:\d{1,3}\.){3})\d{1,3}\b`)

// MaskValue replaces masked values.
const MaskValue = "***REDACTED***"

// SecureHandler masks credentials and, optionally, addresses before
// passing records to the wrapped handler.
type SecureHandler struct {
	handler         slog.Handler
	redactAddresses bool
}

// HandlerOption configures a SecureHandler.
type HandlerOption func(*SecureHandler)

// WithAddressRedaction truncates IPv4 addresses in logged values.
func WithAddressRedaction(enabled bool) HandlerOption {
	return func(h *SecureHandler) {
		h.redactAddresses = enabled
	}
}

// NewSecureHandler wraps handler, or slog.Default().Handler() when nil.
func NewSecureHandler(handler slog.Handler, opts ...HandlerOption) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &SecureHandler{handler: handler}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and its message.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	msg := r.Message
	if h.redactAddresses {
		msg = redactAddresses(msg)
	}

	sanitized := slog.NewRecord(r.Time, r.Level, msg, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs sanitizes attrs before adding them.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized), redactAddresses: h.redactAddresses}
}

// WithGroup returns a handler for the named group.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name), redactAddresses: h.redactAddresses}
}

func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			sanitized[i] = h.sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || containsSensitiveKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		if h.redactAddresses {
			return slog.String(a.Key, redactAddresses(s))
		}
	case slog.KindAny:
		if list, ok := a.Value.Any().([]string); ok && h.redactAddresses {
			out := make([]string, len(list))
			for i, s := range list {
				out[i] = redactAddresses(s)
			}
			return slog.Any(a.Key, out)
		}
	}
	return a
}

func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// redactAddresses replaces the last octet of every IPv4 address with "x".
func redactAddresses(s string) string {
	return ipv4Pattern.ReplaceAllString(s, "${1}x")
}

// Options selects the logger output.
type Options struct {
	// Verbose logs at Debug level; otherwise Warn.
	Verbose bool

	// JSON writes JSON lines instead of text.
	JSON bool

	// RedactAddresses truncates IPv4 addresses in log output.
	RedactAddresses bool
}

// New returns a logger writing sanitized records to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if opts.JSON {
		base = slog.NewJSONHandler(w, handlerOpts)
	} else {
		base = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewSecureHandler(base, WithAddressRedaction(opts.RedactAddresses)))
}
