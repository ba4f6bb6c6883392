package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"sjsage522/passoworker/logger"
)

// unreachable is the latency recorded for a proxy that failed its probe
const unreachable = time.Hour

// ProxyManager selects the proxy the browser is launched with
type ProxyManager interface {
	UpdateProxies(ctx context.Context) error
	GetFastestProxy(ctx context.Context) (*ProxyInfo, error)
	GetTopProxies(n int) []ProxyInfo
}

// ProxyInfo holds proxy information with latency
type ProxyInfo struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Type     string        `json:"type"`
	Latency  time.Duration `json:"latency"`
	LastTest time.Time     `json:"last_test"`
	Working  bool          `json:"working"`
}

// Address returns host:port
func (p ProxyInfo) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// URL returns the proxy in the scheme://host:port form Chrome's
// --proxy-server flag accepts
func (p ProxyInfo) URL() string {
	return p.Type + "://" + p.Address()
}

// ParseProxy accepts "host:port" (socks5 assumed) or "scheme://host:port"
// with scheme one of socks5, socks4, http, https.
func ParseProxy(entry string) (*ProxyInfo, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil, fmt.Errorf("proxy: empty entry")
	}
	if !strings.Contains(entry, "://") {
		entry = "socks5://" + entry
	}

	u, err := url.Parse(entry)
	if err != nil {
		return nil, fmt.Errorf("proxy: parse %q: %w", entry, err)
	}
	switch u.Scheme {
	case "socks5", "socks4", "http", "https":
	default:
		return nil, fmt.Errorf("proxy: unsupported scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("proxy: missing host in %q", entry)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("proxy: invalid port in %q", entry)
	}

	return &ProxyInfo{Host: host, Port: port, Type: u.Scheme}, nil
}

// ProxyManagerImpl probes a configured proxy list and ranks it by latency
type ProxyManagerImpl struct {
	candidates     []ProxyInfo
	proxies        []ProxyInfo
	mutex          sync.RWMutex
	lastUpdate     time.Time
	updateInterval time.Duration
	probeTimeout   time.Duration
	concurrency    int
	log            *logger.Logger
}

// NewProxyManager creates a manager over entries. Malformed entries are
// logged and skipped.
func NewProxyManager(entries []string) *ProxyManagerImpl {
	log := logger.ForProxy()
	pm := &ProxyManagerImpl{
		updateInterval: 30 * time.Minute,
		probeTimeout:   5 * time.Second,
		concurrency:    10,
		log:            log,
	}
	for _, entry := range entries {
		p, err := ParseProxy(entry)
		if err != nil {
			log.Warn().Err(err).Msg("skipping proxy entry")
			continue
		}
		pm.candidates = append(pm.candidates, *p)
	}
	return pm
}

// Len returns the number of usable configured entries
func (pm *ProxyManagerImpl) Len() int {
	return len(pm.candidates)
}

// UpdateProxies probes every candidate concurrently and keeps the working
// ones sorted fastest first.
func (pm *ProxyManagerImpl) UpdateProxies(ctx context.Context) error {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if len(pm.candidates) == 0 {
		return fmt.Errorf("proxy: no proxies configured")
	}

	tested := make([]ProxyInfo, len(pm.candidates))
	copy(tested, pm.candidates)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, pm.concurrency)
	for i := range tested {
		wg.Add(1)
		go func(proxy *ProxyInfo) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			pm.testProxyLatency(ctx, proxy)
		}(&tested[i])
	}
	wg.Wait()

	var working []ProxyInfo
	for _, p := range tested {
		if p.Working {
			working = append(working, p)
		}
	}
	sort.Slice(working, func(i, j int) bool {
		return working[i].Latency < working[j].Latency
	})

	pm.proxies = working
	pm.lastUpdate = time.Now()

	pm.log.Info().
		Int("configured", len(pm.candidates)).
		Int("working", len(working)).
		Msg("proxy list probed")

	if len(working) == 0 {
		return fmt.Errorf("proxy: none of %d proxies answered", len(pm.candidates))
	}
	return nil
}

// testProxyLatency dials the proxy and, for SOCKS5, checks the greeting
func (pm *ProxyManagerImpl) testProxyLatency(ctx context.Context, proxy *ProxyInfo) {
	dialCtx, cancel := context.WithTimeout(ctx, pm.probeTimeout)
	defer cancel()

	var d net.Dialer
	start := time.Now()
	conn, err := d.DialContext(dialCtx, "tcp", proxy.Address())
	proxy.LastTest = time.Now()
	if err != nil {
		pm.log.Debug().Str("proxy", proxy.Address()).Err(err).Msg("TCP connection failed")
		proxy.Working = false
		proxy.Latency = unreachable
		return
	}
	defer conn.Close()

	if proxy.Type == "socks5" && !pm.testSOCKS5Handshake(conn) {
		pm.log.Debug().Str("proxy", proxy.Address()).Msg("SOCKS5 handshake failed")
		proxy.Working = false
		proxy.Latency = unreachable
		return
	}

	proxy.Working = true
	proxy.Latency = time.Since(start)
	pm.log.Debug().Str("proxy", proxy.Address()).Dur("latency", proxy.Latency).Msg("proxy working")
}

func (pm *ProxyManagerImpl) testSOCKS5Handshake(conn net.Conn) bool {
	conn.SetDeadline(time.Now().Add(3 * time.Second))
	defer conn.SetDeadline(time.Time{})

	// VER=5, NMETHODS=1, METHODS=0 (no authentication)
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return false
	}

	resp := make([]byte, 2)
	if _, err := conn.Read(resp); err != nil {
		return false
	}
	return resp[0] == 0x05 && resp[1] == 0x00
}

// GetFastestProxy returns the fastest working proxy, re-probing when the
// last probe is older than the update interval.
func (pm *ProxyManagerImpl) GetFastestProxy(ctx context.Context) (*ProxyInfo, error) {
	pm.mutex.RLock()
	stale := time.Since(pm.lastUpdate) > pm.updateInterval
	pm.mutex.RUnlock()

	if stale {
		if err := pm.UpdateProxies(ctx); err != nil {
			pm.log.Warn().Err(err).Msg("failed to update proxies")
		}
	}

	pm.mutex.RLock()
	defer pm.mutex.RUnlock()
	if len(pm.proxies) == 0 {
		return nil, fmt.Errorf("proxy: no working proxies available")
	}
	fastest := pm.proxies[0]
	pm.log.Info().Str("proxy", fastest.URL()).Dur("latency", fastest.Latency).Msg("selected fastest proxy")
	return &fastest, nil
}

// GetTopProxies returns up to n working proxies, fastest first
func (pm *ProxyManagerImpl) GetTopProxies(n int) []ProxyInfo {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()
	if n > len(pm.proxies) {
		n = len(pm.proxies)
	}
	out := make([]ProxyInfo, n)
	copy(out, pm.proxies[:n])
	return out
}
