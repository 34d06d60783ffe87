package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/MattiaPrimavera/yass/internal/extract"
	"github.com/MattiaPrimavera/yass/internal/metrics"
	"github.com/MattiaPrimavera/yass/internal/plugin"
	"github.com/MattiaPrimavera/yass/internal/scraper"
	"github.com/MattiaPrimavera/yass/pkg/ratelimit"
)

// runState tracks where a plugin run is in its query/extract/clean cycle.
type runState int

const (
	stateIdle runState = iota
	stateQuerying
	stateExtracting
	stateCleaning
	stateDone
	stateFailed
)

func (s runState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateQuerying:
		return "querying"
	case stateExtracting:
		return "extracting"
	case stateCleaning:
		return "cleaning"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// runPlugin executes one plugin against the target. The returned error is
// non-nil only on cancellation; a fetch failure resolves the plugin to an
// empty set so the other plugins' results survive. Each refinement round
// repeats the query/extract/clean cycle with everything collected so far
// added to the exclusions.
func (e *Engine) runPlugin(
	ctx context.Context,
	p *plugin.Plugin,
	target string,
	excluded map[string]struct{},
	emit func(pluginName, subdomain string),
) (map[string]struct{}, PluginStats, error) {
	start := time.Now()
	stats := PluginStats{Plugin: p.Name}
	logger := e.logger.With("plugin", p.Name, "domain", target)

	// Pacing is per plugin instance; plugins never delay each other.
	limiter := ratelimit.NewLimiter(p.Descriptor.Delay(), e.jitter)

	state := stateIdle
	setState := func(next runState) {
		state = next
		logger.Debug("plugin run state", "state", state.String())
	}

	collected := make(map[string]struct{})
	for round := 0; ; round++ {
		queries := p.BuildQueries(target, mergeExclusions(excluded, collected))

		added := 0
		for _, query := range queries {
			setState(stateQuerying)
			if err := limiter.Wait(ctx); err != nil {
				return nil, stats, err
			}

			page, err := e.fetcher.Fetch(ctx, query)
			// Anchor pacing at request completion so the gap holds as
			// seen by the engine, not just at scheduling time.
			limiter.Stamp()
			stats.Queries++
			recordQuery(p.Name, page, err)

			if err != nil {
				if ctx.Err() != nil {
					return nil, stats, ctx.Err()
				}
				setState(stateFailed)
				var fetchErr *scraper.FetchError
				if errors.As(err, &fetchErr) && fetchErr.Challenge != "" {
					metrics.ChallengesDetected.WithLabelValues(p.Name, fetchErr.Challenge).Inc()
					stats.Challenge = fetchErr.Challenge
				}
				stats.State = state.String()
				stats.Err = err.Error()
				stats.Duration = time.Since(start)
				logger.Warn("query failed, plugin aggregates as empty", "url", query, "err", err)
				return make(map[string]struct{}), stats, nil
			}

			setState(stateExtracting)
			fragments, err := fragmentsFrom(p, page)
			if err != nil {
				// Malformed document or selector: this query yields
				// nothing, the plugin carries on.
				logger.Warn("extraction failed, skipping query", "url", query, "err", err)
				continue
			}

			setState(stateCleaning)
			for _, sub := range p.CleanFragments(fragments, target) {
				sub = strings.ToLower(sub)
				if sub == target {
					continue
				}
				if _, skip := excluded[sub]; skip {
					continue
				}
				if _, dup := collected[sub]; dup {
					continue
				}
				collected[sub] = struct{}{}
				added++
				metrics.SubdomainsDiscovered.WithLabelValues(p.Name).Inc()
				emit(p.Name, sub)
			}
		}

		if added == 0 || round >= e.maxRounds {
			break
		}
	}

	setState(stateDone)
	stats.State = state.String()
	stats.Discovered = len(collected)
	stats.Duration = time.Since(start)
	logger.Info("plugin finished", "queries", stats.Queries, "subdomains", stats.Discovered)
	return collected, stats, nil
}

func fragmentsFrom(p *plugin.Plugin, page *scraper.Page) ([]string, error) {
	doc, err := extract.Document(page.Body)
	if err != nil {
		return nil, err
	}
	sel, err := extract.Select(doc, p.Descriptor.SubdomainsSelector)
	if err != nil {
		return nil, err
	}
	return p.ExtractFragments(sel), nil
}

func recordQuery(name string, page *scraper.Page, err error) {
	status := 0
	var duration time.Duration
	if page != nil {
		status = page.StatusCode
		duration = page.Duration
	}
	metrics.RecordQuery(name, status, duration, err != nil)
}

// mergeExclusions combines the caller's exclusions with the subdomains
// collected in earlier rounds, sorted so query URLs are deterministic.
func mergeExclusions(excluded, collected map[string]struct{}) []string {
	out := make([]string, 0, len(excluded)+len(collected))
	for sub := range excluded {
		if sub != "" {
			out = append(out, sub)
		}
	}
	for sub := range collected {
		out = append(out, sub)
	}
	sort.Strings(out)
	return out
}
