// Package plugin defines the declarative contract for a search-engine
// integration: a Descriptor of URL-construction parameters plus optional
// override behaviors for building queries, extracting fragments and
// cleaning them into subdomains.
package plugin

import (
	"fmt"
	"time"
)

// Descriptor defaults. The include and exclude parameters are pre-encoded
// operator tokens and are appended to query strings verbatim.
const (
	DefaultQueryParam   = "q"
	DefaultIncludeParam = "site%3A"
	DefaultExcludeParam = "-site%3A"
	DefaultRequestDelay = 250 * time.Millisecond
)

// NoRequestDelay disables pacing for a descriptor. A zero RequestDelay
// selects the default, so unpaced engines set this sentinel instead.
const NoRequestDelay time.Duration = -1

// Descriptor declares how to query one search engine. SearchURL and
// SubdomainsSelector are mandatory; every other field has a default.
type Descriptor struct {
	// SearchURL is the engine's search endpoint, without query parameters.
	SearchURL string
	// QueryParam names the search-term parameter, default "q".
	QueryParam string
	// IncludeParam is the pre-encoded inclusion operator prefixed to the
	// target domain, default "site%3A". It must not be URL-encoded again.
	IncludeParam string
	// ExcludeParam is the pre-encoded exclusion operator prefixed to each
	// excluded subdomain, default "-site%3A".
	ExcludeParam string
	// SubdomainsSelector is a CSS selector locating the subdomain-bearing
	// elements in a result page.
	SubdomainsSelector string
	// RequestDelay is the minimum pause between consecutive requests to
	// this engine, default 250ms. NoRequestDelay turns pacing off.
	RequestDelay time.Duration

	// PageParam, when set, makes the default builder emit one query per
	// result page, with PageParam counting up in steps of PageStep
	// (default 1) for MaxPages pages.
	PageParam string
	MaxPages  int
	PageStep  int
}

// ConfigurationError reports a Descriptor that cannot drive a plugin. It is
// fatal for the affected plugin at registration time and for that plugin
// only.
type ConfigurationError struct {
	Plugin string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("plugin %s: field %s: %s", e.Plugin, e.Field, e.Reason)
}

// Validate checks the descriptor's invariants on behalf of the named plugin.
func (d Descriptor) Validate(name string) error {
	if d.SearchURL == "" {
		return &ConfigurationError{Plugin: name, Field: "search_url", Reason: "required field is empty"}
	}
	if d.SubdomainsSelector == "" {
		return &ConfigurationError{Plugin: name, Field: "subdomains_selector", Reason: "required field is empty"}
	}
	if d.RequestDelay < 0 && d.RequestDelay != NoRequestDelay {
		return &ConfigurationError{Plugin: name, Field: "request_delay", Reason: "must not be negative"}
	}
	if d.MaxPages < 0 {
		return &ConfigurationError{Plugin: name, Field: "max_pages", Reason: "must not be negative"}
	}
	return nil
}

// withDefaults fills unset optional fields. Pure: the receiver is copied.
func (d Descriptor) withDefaults() Descriptor {
	if d.QueryParam == "" {
		d.QueryParam = DefaultQueryParam
	}
	if d.IncludeParam == "" {
		d.IncludeParam = DefaultIncludeParam
	}
	if d.ExcludeParam == "" {
		d.ExcludeParam = DefaultExcludeParam
	}
	if d.RequestDelay == 0 {
		d.RequestDelay = DefaultRequestDelay
	} else if d.RequestDelay == NoRequestDelay {
		d.RequestDelay = 0
	}
	if d.PageStep <= 0 {
		d.PageStep = 1
	}
	return d
}

// Delay returns the effective inter-request delay for this descriptor.
func (d Descriptor) Delay() time.Duration {
	return d.withDefaults().RequestDelay
}
