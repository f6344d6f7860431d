package egress

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSOCKS5Client(t *testing.T) {
	t.Parallel()

	t.Run("valid proxy address creates client", func(t *testing.T) {
		t.Parallel()

		client, err := NewSOCKS5Client("127.0.0.1:9050")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.ProxyAddress() != "127.0.0.1:9050" {
			t.Errorf("ProxyAddress() = %q, expected %q", client.ProxyAddress(), "127.0.0.1:9050")
		}
		if !client.IsProxied() {
			t.Error("expected proxied client")
		}
	})

	t.Run("invalid address returns sentinel", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"", "127.0.0.1", ":9050", "127.0.0.1:", "127.0.0.1:0", "127.0.0.1:70000"} {
			_, err := NewSOCKS5Client(addr)
			if !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("NewSOCKS5Client(%q) error = %v, expected ErrInvalidProxyAddress", addr, err)
			}
		}
	})
}

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		address  string
		expected bool
	}{
		{"valid IPv4 with port", "127.0.0.1:9050", true},
		{"valid localhost with port", "localhost:1080", true},
		{"valid hostname with port", "proxy.example.com:1080", true},
		{"empty string", "", false},
		{"no port", "127.0.0.1", false},
		{"empty host", ":9050", false},
		{"empty port", "127.0.0.1:", false},
		{"non numeric port", "127.0.0.1:socks", false},
		{"multiple colons", "127.0.0.1:9050:extra", false},
		{"only colon", ":", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tc.address); got != tc.expected {
				t.Errorf("isValidProxyAddress(%q) = %v, expected %v", tc.address, got, tc.expected)
			}
		})
	}
}

func TestDirectHTTPClient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"ip":"198.51.100.7"}`)
	}))
	t.Cleanup(server.Close)

	client := Direct()
	if client.IsProxied() {
		t.Fatal("direct client reports proxied")
	}

	httpClient := client.HTTPClient(5 * time.Second)
	if httpClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, expected 5s", httpClient.Timeout)
	}

	resp, err := httpClient.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != `{"ip":"198.51.100.7"}` {
		t.Errorf("body = %q", body)
	}
}

func TestDialContextHonoursCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	client := &Client{dialer: blockingDialer{release: release}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.dialContext(ctx, "tcp", "203.0.113.1:80")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("dialContext error = %v, expected deadline exceeded", err)
	}
}

// blockingDialer blocks every dial until release is closed.
type blockingDialer struct {
	release chan struct{}
}

func (d blockingDialer) Dial(string, string) (net.Conn, error) {
	<-d.release
	return nil, errors.New("released")
}

func TestProxyStatus(t *testing.T) {
	t.Parallel()

	t.Run("String", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			status   ProxyStatus
			expected string
		}{
			{ProxyStatusOK, "OK"},
			{ProxyStatusWrongType, "wrong type (not SOCKS5)"},
			{ProxyStatusCannotConnect, "cannot connect"},
			{ProxyStatusTimeout, "timeout"},
			{ProxyStatus(99), "unknown"},
		}
		for _, tc := range testCases {
			if got := tc.status.String(); got != tc.expected {
				t.Errorf("ProxyStatus(%d).String() = %q, expected %q", tc.status, got, tc.expected)
			}
		}
	})

	t.Run("Err", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			status      ProxyStatus
			expectedErr error
		}{
			{ProxyStatusOK, nil},
			{ProxyStatusWrongType, ErrProxyNotSOCKS5},
			{ProxyStatusCannotConnect, ErrProxyCannotConnect},
			{ProxyStatusTimeout, ErrProxyTimeout},
		}
		for _, tc := range testCases {
			if err := tc.status.Err(); !errors.Is(err, tc.expectedErr) {
				t.Errorf("ProxyStatus(%d).Err() = %v, expected %v", tc.status, err, tc.expectedErr)
			}
		}
		if ProxyStatus(99).Err() == nil {
			t.Error("expected error for unknown status")
		}
	})
}

func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("unused port returns CannotConnect", func(t *testing.T) {
		t.Parallel()

		if status := CheckProxy(context.Background(), unusedAddress(t)); status != ProxyStatusCannotConnect {
			t.Errorf("CheckProxy() = %v, expected %v", status, ProxyStatusCannotConnect)
		}
	})

	t.Run("SOCKS5 proxy returns OK", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, func(conn net.Conn) {
			greeting := make([]byte, 3)
			if _, err := io.ReadFull(conn, greeting); err != nil {
				return
			}
			_, _ = conn.Write([]byte{0x05, 0x00})

			buf := make([]byte, 256)
			_, _ = conn.Read(buf)
			// Host unreachable is still a SOCKS5 reply.
			_, _ = conn.Write([]byte{0x05, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
		})

		if status := CheckProxy(context.Background(), addr); status != ProxyStatusOK {
			t.Errorf("CheckProxy() = %v, expected %v", status, ProxyStatusOK)
		}
	})

	t.Run("HTTP server returns WrongType", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = io.ReadFull(conn, buf)
			_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		})

		if status := CheckProxy(context.Background(), addr); status != ProxyStatusWrongType {
			t.Errorf("CheckProxy() = %v, expected %v", status, ProxyStatusWrongType)
		}
	})

	t.Run("proxy requiring auth returns WrongType", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, func(conn net.Conn) {
			buf := make([]byte, 3)
			_, _ = io.ReadFull(conn, buf)
			_, _ = conn.Write([]byte{0x05, 0xFF})
		})

		if status := CheckProxy(context.Background(), addr); status != ProxyStatusWrongType {
			t.Errorf("CheckProxy() = %v, expected %v", status, ProxyStatusWrongType)
		}
	})
}

// serveOnce accepts a single connection on a loopback listener and hands it
// to handle.
func serveOnce(t *testing.T, handle func(net.Conn)) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()

	return listener.Addr().String()
}

// unusedAddress returns a loopback address nothing listens on.
func unusedAddress(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()
	return addr
}
