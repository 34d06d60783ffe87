// Package engine drives registered search-engine plugins end-to-end: build
// queries, pace and fetch them, extract and clean the result pages, and
// merge every plugin's subdomains into one deduplicated set.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MattiaPrimavera/yass/internal/extract"
	"github.com/MattiaPrimavera/yass/internal/plugin"
	"github.com/MattiaPrimavera/yass/internal/scraper"
)

// Config configures an Engine.
type Config struct {
	// Fetcher performs the HTTP queries; a default one is built when nil.
	Fetcher *scraper.Fetcher
	Logger  *slog.Logger
	// MaxRounds is how many refinement rounds may follow the first pass.
	// Each round feeds the subdomains collected so far back into the
	// query as exclusions, so engines surface results the earlier pages
	// crowded out. 0 means a single pass.
	MaxRounds int
	// Jitter randomizes each plugin's inter-request delay by up to this
	// fraction of the delay.
	Jitter float64
	// OnResult, when set, is called once per unique subdomain as it is
	// discovered, with the name of the plugin that found it first.
	OnResult func(pluginName, subdomain string)
}

// Engine fans a target domain out to every registered plugin. Plugins run
// concurrently and independently; the registry is the only shared state and
// is read-only.
type Engine struct {
	registry  *plugin.Registry
	fetcher   *scraper.Fetcher
	logger    *slog.Logger
	maxRounds int
	jitter    float64
	onResult  func(string, string)
}

// New creates an Engine over a populated registry.
func New(registry *plugin.Registry, cfg Config) (*Engine, error) {
	if registry == nil {
		return nil, errors.New("engine: nil registry")
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		var err error
		fetcher, err = scraper.NewFetcher(scraper.Config{})
		if err != nil {
			return nil, err
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		registry:  registry,
		fetcher:   fetcher,
		logger:    logger,
		maxRounds: cfg.MaxRounds,
		jitter:    cfg.Jitter,
		onResult:  cfg.OnResult,
	}, nil
}

// Result is the outcome of one enumeration run.
type Result struct {
	Domain     string
	Subdomains []string // sorted, lowercase, deduplicated
	Stats      []PluginStats
}

// PluginStats describes how one plugin's run went.
type PluginStats struct {
	Plugin     string
	State      string
	Queries    int
	Discovered int
	Challenge  string
	Err        string
	Duration   time.Duration
}

// Discover runs every registered plugin against the target domain and
// returns the union of discovered subdomains, minus the exclusions and the
// bare target. One plugin failing never fails the run; cancellation does.
func (e *Engine) Discover(ctx context.Context, domain string, exclusions []string) ([]string, error) {
	result, err := e.Run(ctx, domain, exclusions)
	if err != nil {
		return nil, err
	}
	return result.Subdomains, nil
}

// Run is Discover plus per-plugin statistics.
func (e *Engine) Run(ctx context.Context, domain string, exclusions []string) (*Result, error) {
	target := extract.CanonicalDomain(domain)
	if target == "" {
		return nil, errors.New("engine: empty target domain")
	}

	excluded := make(map[string]struct{}, len(exclusions))
	for _, sub := range exclusions {
		excluded[extract.CanonicalDomain(sub)] = struct{}{}
	}

	plugins := e.registry.Plugins()
	sets := make([]map[string]struct{}, len(plugins))
	stats := make([]PluginStats, len(plugins))

	// Streaming callback dedupe across plugins, for this run only.
	var emitMu sync.Mutex
	emitted := make(map[string]struct{})
	emit := func(name, sub string) {
		if e.onResult == nil {
			return
		}
		emitMu.Lock()
		_, dup := emitted[sub]
		if !dup {
			emitted[sub] = struct{}{}
		}
		emitMu.Unlock()
		if !dup {
			e.onResult(name, sub)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range plugins {
		i, p := i, p
		g.Go(func() error {
			set, st, err := e.runPlugin(gctx, p, target, excluded, emit)
			if err != nil {
				return err
			}
			sets[i] = set
			stats[i] = st
			return nil
		})
	}
	// A canceled run contributes nothing, not a partial set.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	union := make(map[string]struct{})
	for _, set := range sets {
		for sub := range set {
			if sub == target {
				continue
			}
			if _, skip := excluded[sub]; skip {
				continue
			}
			union[sub] = struct{}{}
		}
	}

	subdomains := make([]string, 0, len(union))
	for sub := range union {
		subdomains = append(subdomains, sub)
	}
	sort.Strings(subdomains)

	e.logger.Info("enumeration finished",
		"domain", target,
		"plugins", len(plugins),
		"subdomains", len(subdomains),
	)

	return &Result{
		Domain:     target,
		Subdomains: subdomains,
		Stats:      stats,
	}, nil
}
