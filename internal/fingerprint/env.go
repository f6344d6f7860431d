package fingerprint

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/term"
	"golang.org/x/text/language"

	"github.com/nao1215/decoyscan/internal/model"
)

// Connection classes reported by ConnectionClass.
const (
	ConnectionWiFi     = "wifi"
	ConnectionEthernet = "ethernet"
	ConnectionCellular = "cellular"
	ConnectionTunnel   = "tunnel"
)

// browserBinaries are looked up on PATH to estimate the plugin count.
var browserBinaries = []string{
	"firefox",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"brave-browser",
	"microsoft-edge",
	"opera",
	"vivaldi",
	"safari",
}

// Environment is the set of host accessors the collector reads from.
// Every field may be nil, in which case the real host is used.
type Environment struct {
	Getenv     func(string) string
	Readlink   func(string) (string, error)
	TermSize   func() (width, height int, err error)
	Interfaces func() ([]net.Interface, error)
	LookPath   func(string) (string, error)
}

// HostEnvironment reads from the running process and host.
func HostEnvironment() Environment {
	return Environment{
		Getenv:   os.Getenv,
		Readlink: os.Readlink,
		TermSize: func() (int, int, error) {
			return term.GetSize(int(os.Stdout.Fd()))
		},
		Interfaces: net.Interfaces,
		LookPath:   exec.LookPath,
	}
}

func (e Environment) withDefaults() Environment {
	host := HostEnvironment()
	if e.Getenv == nil {
		e.Getenv = host.Getenv
	}
	if e.Readlink == nil {
		e.Readlink = host.Readlink
	}
	if e.TermSize == nil {
		e.TermSize = host.TermSize
	}
	if e.Interfaces == nil {
		e.Interfaces = host.Interfaces
	}
	if e.LookPath == nil {
		e.LookPath = host.LookPath
	}
	return e
}

// DefaultUserAgent builds the agent string reported when none is configured.
func DefaultUserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("decoyscan/%s (%s; %s) %s", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// ScreenResolution returns the terminal size as "WIDTHxHEIGHT".
func ScreenResolution(env Environment) string {
	w, h, err := env.TermSize()
	if err != nil || w <= 0 || h <= 0 {
		return model.Unknown
	}
	return fmt.Sprintf("%dx%d", w, h)
}

// TimezoneName returns the IANA zone from TZ, then from the /etc/localtime
// link, then from the process location.
func TimezoneName(env Environment) string {
	if tz := strings.TrimPrefix(env.Getenv("TZ"), ":"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			return tz
		}
	}

	if target, err := env.Readlink("/etc/localtime"); err == nil {
		if _, name, ok := strings.Cut(target, "zoneinfo/"); ok && name != "" {
			return name
		}
	}

	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}
	return model.Unknown
}

// Locale returns the BCP 47 tag from LC_ALL, LC_MESSAGES or LANG.
func Locale(env Environment) string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		raw := env.Getenv(key)
		if raw == "" {
			continue
		}
		if tag, ok := parseLocale(raw); ok {
			return tag
		}
	}
	return model.Unknown
}

// parseLocale turns POSIX values like "fr_FR.UTF-8@euro" into "fr-FR".
func parseLocale(raw string) (string, bool) {
	value, _, _ := strings.Cut(raw, ".")
	value, _, _ = strings.Cut(value, "@")
	if value == "" || value == "C" || value == "POSIX" {
		return "", false
	}
	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return "", false
	}
	return tag.String(), true
}

// ConnectionClass classifies the host's active link by interface name.
// A physical link wins over a tunnel.
func ConnectionClass(env Environment) string {
	ifaces, err := env.Interfaces()
	if err != nil {
		return model.Unknown
	}

	tunnel := false
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		switch class := classifyInterface(iface.Name); class {
		case ConnectionTunnel:
			tunnel = true
		case "":
		default:
			return class
		}
	}
	if tunnel {
		return ConnectionTunnel
	}
	return model.Unknown
}

func classifyInterface(name string) string {
	n := strings.ToLower(name)
	switch {
	case hasAnyPrefix(n, "wl", "wifi", "ath", "ra"):
		return ConnectionWiFi
	case hasAnyPrefix(n, "wwan", "rmnet", "ccmni", "pdp_ip"):
		return ConnectionCellular
	case hasAnyPrefix(n, "tun", "tap", "wg", "utun", "ppp", "ipsec", "tailscale", "zt"):
		return ConnectionTunnel
	case hasAnyPrefix(n, "eth", "en", "em", "eno", "ens", "enp"):
		return ConnectionEthernet
	default:
		return ""
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// PluginCount counts known browser executables on PATH.
func PluginCount(env Environment) int {
	count := 0
	for _, name := range browserBinaries {
		if _, err := env.LookPath(name); err == nil {
			count++
		}
	}
	return count
}
