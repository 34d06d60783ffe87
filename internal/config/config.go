// Package config loads the declarative plugin-registration surface: a YAML
// file describing search-engine descriptors and fetch settings, assembled
// into a registry and engine at process start.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MattiaPrimavera/yass/internal/engine"
	"github.com/MattiaPrimavera/yass/internal/fingerprint"
	"github.com/MattiaPrimavera/yass/internal/plugin"
	"github.com/MattiaPrimavera/yass/internal/scraper"
	"github.com/MattiaPrimavera/yass/pkg/proxy"
	"github.com/MattiaPrimavera/yass/pkg/useragent"
)

// Plugin mirrors plugin.Descriptor in YAML. Delays are float seconds, as in
// the descriptor contract.
type Plugin struct {
	SearchURL          string `yaml:"search_url"`
	QueryParam         string `yaml:"query_param"`
	IncludeParam       string `yaml:"include_param"`
	ExcludeParam       string `yaml:"exclude_param"`
	SubdomainsSelector string `yaml:"subdomains_selector"`
	// RequestDelay is in seconds. Omitted means the default pacing; an
	// explicit 0 disables pacing for this plugin.
	RequestDelay *float64 `yaml:"request_delay"`
	PageParam    string   `yaml:"page_param"`
	MaxPages     int      `yaml:"max_pages"`
	PageStep     int      `yaml:"page_step"`
}

// Fetch holds the HTTP settings shared by every plugin's queries.
type Fetch struct {
	Timeout      float64  `yaml:"timeout"` // seconds
	MaxRedirects int      `yaml:"max_redirects"`
	CookieJar    bool     `yaml:"cookie_jar"`
	Fingerprint  string   `yaml:"fingerprint"`
	UserAgents   []string `yaml:"user_agents"`
	Proxies      []string `yaml:"proxies"`
	ProxyFile    string   `yaml:"proxy_file"`
}

// Engine holds orchestration settings.
type Engine struct {
	MaxRounds int     `yaml:"max_rounds"`
	Jitter    float64 `yaml:"jitter"`
}

// Config is the root of the YAML file.
type Config struct {
	Engine     Engine            `yaml:"engine"`
	Fetch      Fetch             `yaml:"fetch"`
	UseBuiltin bool              `yaml:"use_builtin"`
	Plugins    map[string]Plugin `yaml:"plugins"`
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, rejecting unknown fields so typos in plugin
// definitions surface instead of silently falling back to defaults.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (p Plugin) descriptor() plugin.Descriptor {
	var delay time.Duration
	if p.RequestDelay != nil {
		if *p.RequestDelay == 0 {
			delay = plugin.NoRequestDelay
		} else {
			delay = time.Duration(*p.RequestDelay * float64(time.Second))
		}
	}
	return plugin.Descriptor{
		SearchURL:          p.SearchURL,
		QueryParam:         p.QueryParam,
		IncludeParam:       p.IncludeParam,
		ExcludeParam:       p.ExcludeParam,
		SubdomainsSelector: p.SubdomainsSelector,
		RequestDelay:       delay,
		PageParam:          p.PageParam,
		MaxPages:           p.MaxPages,
		PageStep:           p.PageStep,
	}
}

// Registry builds a plugin registry from the config. Built-in plugins come
// first when enabled, then config-defined plugins in name order. A plugin
// failing validation is skipped and reported; the rest still register, so
// the returned registry is usable even when the error is non-nil.
func (c *Config) Registry() (*plugin.Registry, error) {
	reg := plugin.NewRegistry()

	var errs []error
	if c.UseBuiltin {
		if err := reg.RegisterAll(plugin.Builtin()...); err != nil {
			errs = append(errs, err)
		}
	}

	names := make([]string, 0, len(c.Plugins))
	for name := range c.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := &plugin.Plugin{Name: name, Descriptor: c.Plugins[name].descriptor()}
		if err := reg.Register(p); err != nil {
			errs = append(errs, err)
		}
	}

	return reg, errors.Join(errs...)
}

// FetcherConfig translates the fetch section into a scraper config.
func (c *Config) FetcherConfig() (scraper.Config, error) {
	profile, err := fingerprint.ParseProfile(c.Fetch.Fingerprint)
	if err != nil {
		return scraper.Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := scraper.Config{
		Timeout:      time.Duration(c.Fetch.Timeout * float64(time.Second)),
		MaxRedirects: c.Fetch.MaxRedirects,
		UseCookieJar: c.Fetch.CookieJar,
		Fingerprint:  profile,
	}
	if len(c.Fetch.UserAgents) > 0 {
		cfg.UAPool = useragent.NewPool(c.Fetch.UserAgents)
	}

	if len(c.Fetch.Proxies) > 0 || c.Fetch.ProxyFile != "" {
		pool := proxy.NewPool(proxy.Config{})
		for _, raw := range c.Fetch.Proxies {
			if err := pool.Add(raw); err != nil {
				return scraper.Config{}, fmt.Errorf("config: %w", err)
			}
		}
		if c.Fetch.ProxyFile != "" {
			if err := pool.AddFromFile(c.Fetch.ProxyFile); err != nil {
				return scraper.Config{}, fmt.Errorf("config: %w", err)
			}
		}
		cfg.ProxyPool = pool
	}

	return cfg, nil
}

// Build assembles the full engine: registry, fetcher and orchestrator. The
// returned error may be non-nil while the engine is still usable, when it
// only reports plugins that failed to register.
func (c *Config) Build(logger *slog.Logger) (*engine.Engine, error) {
	reg, regErr := c.Registry()
	if reg.Len() == 0 {
		if regErr != nil {
			return nil, regErr
		}
		return nil, errors.New("config: no plugins configured")
	}

	fetchCfg, err := c.FetcherConfig()
	if err != nil {
		return nil, err
	}
	fetcher, err := scraper.NewFetcher(fetchCfg)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(reg, engine.Config{
		Fetcher:   fetcher,
		Logger:    logger,
		MaxRounds: c.Engine.MaxRounds,
		Jitter:    c.Engine.Jitter,
	})
	if err != nil {
		return nil, err
	}
	return eng, regErr
}
