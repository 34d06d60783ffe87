package proxy

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Proxy is a single proxy endpoint with health tracking.
type Proxy struct {
	URL           *url.URL
	Failures      int
	Successes     int
	LastUsed      time.Time
	Disabled      bool
	DisabledUntil time.Time
}

// Pool rotates over a set of proxies, temporarily disabling ones that keep
// failing. It is safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	proxies     []*Proxy
	current     int
	maxFailures int
	cooldown    time.Duration
}

// Config defines settings for the proxy pool.
type Config struct {
	// MaxFailures before a proxy is disabled temporarily.
	MaxFailures int
	// Cooldown is how long a proxy stays disabled after hitting MaxFailures.
	Cooldown time.Duration
}

// NewPool creates an empty proxy pool. Zero config values get defaults.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// Add parses and appends a proxy URL to the pool.
func (p *Pool) Add(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("proxy: invalid url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("proxy: url %q missing scheme or host", rawURL)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.proxies = append(p.proxies, &Proxy{URL: u})
	return nil
}

// AddFromFile loads proxy URLs from a file, one per line. Blank lines and
// lines starting with '#' are skipped.
func (p *Pool) AddFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := p.Add(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Next returns the next healthy proxy URL in round-robin order, or nil if
// the pool is empty or every proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return nil
	}

	now := time.Now()
	for i := 0; i < len(p.proxies); i++ {
		candidate := p.proxies[p.current%len(p.proxies)]
		p.current++

		if candidate.Disabled {
			if now.Before(candidate.DisabledUntil) {
				continue
			}
			// Cooldown expired, give it another chance.
			candidate.Disabled = false
			candidate.Failures = 0
		}

		candidate.LastUsed = now
		return candidate.URL
	}
	return nil
}

// MarkSuccess records a successful request through the given proxy.
func (p *Pool) MarkSuccess(u *url.URL) error {
	return p.mark(u, func(px *Proxy) {
		px.Successes++
		px.Failures = 0
	})
}

// MarkFailure records a failed request through the given proxy, disabling it
// once it reaches the failure threshold.
func (p *Pool) MarkFailure(u *url.URL) error {
	return p.mark(u, func(px *Proxy) {
		px.Failures++
		if px.Failures >= p.maxFailures {
			px.Disabled = true
			px.DisabledUntil = time.Now().Add(p.cooldown)
		}
	})
}

func (p *Pool) mark(u *url.URL, fn func(*Proxy)) error {
	if u == nil {
		return fmt.Errorf("proxy: nil url")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, px := range p.proxies {
		if px.URL.String() == u.String() {
			fn(px)
			return nil
		}
	}
	return fmt.Errorf("proxy: %s not in pool", u)
}

// Len returns the number of proxies in the pool, healthy or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}
