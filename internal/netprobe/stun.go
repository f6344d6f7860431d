package netprobe

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"

	"github.com/pion/stun"
)

// DefaultSTUNServers are queried for server-reflexive candidates.
var DefaultSTUNServers = []string{
	"stun.l.google.com:19302",
	"stun1.l.google.com:19302",
}

// ErrNoCandidateSources is returned when a gatherer has neither STUN
// servers nor interfaces to read from.
var ErrNoCandidateSources = errors.New("no candidate sources configured")

// InterfaceAddrsFunc lists the host's interface addresses.
type InterfaceAddrsFunc func() ([]net.Addr, error)

// STUNGatherer opens sessions that gather host candidates from local
// interfaces and server-reflexive candidates from STUN binding requests.
// The UDP requests are sent directly and never through the HTTP egress
// route.
type STUNGatherer struct {
	// Servers are STUN servers in host:port form.
	Servers []string

	// InterfaceAddrs lists local addresses. nil means net.InterfaceAddrs.
	InterfaceAddrs InterfaceAddrsFunc
}

// NewSTUNGatherer returns a gatherer for servers, or DefaultSTUNServers
// when servers is empty.
func NewSTUNGatherer(servers []string) *STUNGatherer {
	if len(servers) == 0 {
		servers = DefaultSTUNServers
	}
	return &STUNGatherer{
		Servers:        servers,
		InterfaceAddrs: net.InterfaceAddrs,
	}
}

// Open starts gathering. It fails only when the local interfaces cannot be
// listed or there is nothing to gather from.
func (g *STUNGatherer) Open(ctx context.Context) (Session, error) {
	list := g.InterfaceAddrs
	if list == nil {
		list = net.InterfaceAddrs
	}
	addrs, err := list()
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 && len(g.Servers) == 0 {
		return nil, ErrNoCandidateSources
	}

	s := &stunSession{
		candidates: make(chan string),
		done:       make(chan struct{}),
	}
	go s.gather(ctx, hostCandidates(addrs), g.Servers)
	return s, nil
}

// hostCandidates keeps non-loopback IPv4 interface addresses.
func hostCandidates(addrs []net.Addr) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		prefix, err := netip.ParsePrefix(a.String())
		if err != nil {
			continue
		}
		ip := prefix.Addr()
		if !ip.Is4() || ip.IsLoopback() || ip.IsUnspecified() {
			continue
		}
		out = append(out, ip.String())
	}
	return out
}

type stunSession struct {
	candidates chan string
	done       chan struct{}
	closeOnce  sync.Once

	mu      sync.Mutex
	closed  bool
	clients []*stun.Client
}

func (s *stunSession) Candidates() <-chan string {
	return s.candidates
}

// Close stops gathering and releases every STUN client.
func (s *stunSession) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		s.closed = true
		clients := s.clients
		s.clients = nil
		s.mu.Unlock()

		for _, c := range clients {
			if err := c.Close(); err != nil && !errors.Is(err, stun.ErrClientClosed) {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (s *stunSession) gather(ctx context.Context, hosts, servers []string) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(s.candidates)
	}()

	for _, h := range hosts {
		if !s.emit(ctx, h) {
			return
		}
	}

	for _, server := range servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if addr, ok := s.bind(server); ok {
				s.emit(ctx, addr)
			}
		}()
	}
}

// emit delivers a candidate unless the session is over.
func (s *stunSession) emit(ctx context.Context, candidate string) bool {
	select {
	case s.candidates <- candidate:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// bind sends one binding request and returns the XOR-mapped address.
func (s *stunSession) bind(server string) (string, bool) {
	c, err := stun.Dial("udp4", server)
	if err != nil {
		return "", false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = c.Close()
		return "", false
	}
	s.clients = append(s.clients, c)
	s.mu.Unlock()

	var mapped string
	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	err = c.Do(msg, func(ev stun.Event) {
		if ev.Error != nil {
			return
		}
		var xor stun.XORMappedAddress
		if err := xor.GetFrom(ev.Message); err != nil {
			return
		}
		mapped = xor.IP.String()
	})
	if err != nil || mapped == "" {
		return "", false
	}
	return mapped, true
}
