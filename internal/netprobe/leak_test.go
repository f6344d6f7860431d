package netprobe

import (
	"context"
	"errors"
	"net"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSession emits a fixed candidate list and optionally stays open.
type fakeSession struct {
	ch     chan string
	closes atomic.Int32
}

func (s *fakeSession) Candidates() <-chan string { return s.ch }

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	return nil
}

type fakeOpener struct {
	session *fakeSession
	err     error
}

func (o fakeOpener) Open(context.Context) (Session, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.session, nil
}

// newFakeSession pre-fills candidates; when complete is true the channel is
// closed after them.
func newFakeSession(complete bool, candidates ...string) *fakeSession {
	ch := make(chan string, len(candidates))
	for _, c := range candidates {
		ch <- c
	}
	if complete {
		close(ch)
	}
	return &fakeSession{ch: ch}
}

func TestResolveLeakedAddresses(t *testing.T) {
	t.Parallel()

	t.Run("dedupes in discovery order and ignores non IPv4", func(t *testing.T) {
		t.Parallel()

		session := newFakeSession(true,
			"192.168.1.20", "fe80::1", "203.0.113.9:54321", "192.168.1.20", "garbage", "10.8.0.2",
		)
		p := NewLeakProbe(fakeOpener{session: session})

		got := p.ResolveLeakedAddresses(context.Background())
		want := []string{"192.168.1.20", "203.0.113.9", "10.8.0.2"}
		if !slices.Equal(got, want) {
			t.Errorf("ResolveLeakedAddresses() = %v, expected %v", got, want)
		}
		if n := session.closes.Load(); n != 1 {
			t.Errorf("session closed %d times, expected 1", n)
		}
	})

	t.Run("terminates within window with zero candidates", func(t *testing.T) {
		t.Parallel()

		session := newFakeSession(false)
		p := NewLeakProbe(fakeOpener{session: session}, WithWindow(100*time.Millisecond))

		start := time.Now()
		got := p.ResolveLeakedAddresses(context.Background())
		elapsed := time.Since(start)

		if got == nil || len(got) != 0 {
			t.Errorf("ResolveLeakedAddresses() = %#v, expected empty non-nil", got)
		}
		if elapsed < 100*time.Millisecond || elapsed > time.Second {
			t.Errorf("probe returned after %v, expected about the window", elapsed)
		}
		if n := session.closes.Load(); n != 1 {
			t.Errorf("session closed %d times, expected 1", n)
		}
	})

	t.Run("candidates found before the deadline are kept", func(t *testing.T) {
		t.Parallel()

		session := newFakeSession(false, "172.16.0.4")
		p := NewLeakProbe(fakeOpener{session: session}, WithWindow(50*time.Millisecond))

		got := p.ResolveLeakedAddresses(context.Background())
		if !slices.Equal(got, []string{"172.16.0.4"}) {
			t.Errorf("ResolveLeakedAddresses() = %v", got)
		}
		if n := session.closes.Load(); n != 1 {
			t.Errorf("session closed %d times, expected 1", n)
		}
	})

	t.Run("open failure yields empty set", func(t *testing.T) {
		t.Parallel()

		p := NewLeakProbe(fakeOpener{err: errors.New("blocked")})
		got := p.ResolveLeakedAddresses(context.Background())
		if got == nil || len(got) != 0 {
			t.Errorf("ResolveLeakedAddresses() = %#v, expected empty non-nil", got)
		}
	})

	t.Run("nil opener yields empty set", func(t *testing.T) {
		t.Parallel()

		got := NewLeakProbe(nil).ResolveLeakedAddresses(context.Background())
		if got == nil || len(got) != 0 {
			t.Errorf("ResolveLeakedAddresses() = %#v, expected empty non-nil", got)
		}
	})
}

func TestHostCandidates(t *testing.T) {
	t.Parallel()

	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
		&net.IPNet{IP: net.ParseIP("192.168.0.10"), Mask: net.CIDRMask(24, 32)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("10.8.0.6"), Mask: net.CIDRMask(24, 32)},
	}

	got := hostCandidates(addrs)
	want := []string{"192.168.0.10", "10.8.0.6"}
	if !slices.Equal(got, want) {
		t.Errorf("hostCandidates() = %v, expected %v", got, want)
	}
}

func TestSTUNGathererHostOnly(t *testing.T) {
	t.Parallel()

	g := &STUNGatherer{
		InterfaceAddrs: func() ([]net.Addr, error) {
			return []net.Addr{
				&net.IPNet{IP: net.ParseIP("192.168.50.2"), Mask: net.CIDRMask(24, 32)},
				&net.IPNet{IP: net.ParseIP("10.0.0.3"), Mask: net.CIDRMask(8, 32)},
			}, nil
		},
	}

	got := NewLeakProbe(g).ResolveLeakedAddresses(context.Background())
	want := []string{"192.168.50.2", "10.0.0.3"}
	if !slices.Equal(got, want) {
		t.Errorf("ResolveLeakedAddresses() = %v, expected %v", got, want)
	}
}

func TestSTUNGathererOpenErrors(t *testing.T) {
	t.Parallel()

	t.Run("interface listing fails", func(t *testing.T) {
		t.Parallel()

		g := &STUNGatherer{InterfaceAddrs: func() ([]net.Addr, error) {
			return nil, errors.New("permission denied")
		}}
		if _, err := g.Open(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("nothing to gather from", func(t *testing.T) {
		t.Parallel()

		g := &STUNGatherer{InterfaceAddrs: func() ([]net.Addr, error) { return nil, nil }}
		if _, err := g.Open(context.Background()); !errors.Is(err, ErrNoCandidateSources) {
			t.Errorf("Open() error = %v, expected ErrNoCandidateSources", err)
		}
	})
}

func TestSTUNSessionCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	s := &stunSession{candidates: make(chan string), done: make(chan struct{})}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close() = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
}
