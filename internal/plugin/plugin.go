package plugin

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MattiaPrimavera/yass/internal/extract"
)

// URLFunc builds the query URLs for one run against an engine. It must
// return a finite sequence; multiple entries mean pagination.
type URLFunc func(d Descriptor, domain string, exclude []string) []string

// ExtractFunc turns the elements matched by the descriptor's selector into
// raw fragments.
type ExtractFunc func(sel *goquery.Selection) []string

// CleanFunc normalizes raw fragments into subdomains of the target domain.
type CleanFunc func(fragments []string, domain string) []string

// Plugin binds a Descriptor to an engine name plus optional overrides of
// the three behaviors. A nil override means the shared default applies, so
// most engines are pure data.
type Plugin struct {
	Name       string
	Descriptor Descriptor

	URL     URLFunc
	Extract ExtractFunc
	Clean   CleanFunc
}

// BuildQueries returns the query URLs for a run, dispatching to the URL
// override when present.
func (p *Plugin) BuildQueries(domain string, exclude []string) []string {
	if p.URL != nil {
		return p.URL(p.Descriptor, domain, exclude)
	}
	return BuildQueries(p.Descriptor, domain, exclude)
}

// ExtractFragments returns the raw fragments from matched elements,
// dispatching to the Extract override when present.
func (p *Plugin) ExtractFragments(sel *goquery.Selection) []string {
	if p.Extract != nil {
		return p.Extract(sel)
	}
	return extract.Fragments(sel)
}

// CleanFragments returns the accepted subdomains from raw fragments,
// dispatching to the Clean override when present.
func (p *Plugin) CleanFragments(fragments []string, domain string) []string {
	if p.Clean != nil {
		return p.Clean(fragments, domain)
	}
	return extract.Subdomains(fragments, domain)
}

// BuildQueries is the default query builder. It appends the include pair
// `query_param=include_param<domain>` to the search URL, then one exclude
// pair `query_param=exclude_param<subdomain>` per exclusion. The domain and
// subdomain values are URL-encoded; the include/exclude operators are
// already encoded and appended as-is. When the descriptor declares a
// PageParam, one query per page is produced.
func BuildQueries(d Descriptor, domain string, exclude []string) []string {
	d = d.withDefaults()

	var b strings.Builder
	b.WriteString(d.SearchURL)
	if strings.Contains(d.SearchURL, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString(d.QueryParam)
	b.WriteByte('=')
	b.WriteString(d.IncludeParam)
	b.WriteString(url.QueryEscape(domain))

	for _, sub := range dedupe(exclude) {
		b.WriteByte('&')
		b.WriteString(d.QueryParam)
		b.WriteByte('=')
		b.WriteString(d.ExcludeParam)
		b.WriteString(url.QueryEscape(sub))
	}

	query := b.String()
	if d.PageParam == "" || d.MaxPages <= 1 {
		return []string{query}
	}

	queries := make([]string, 0, d.MaxPages)
	for page := 0; page < d.MaxPages; page++ {
		queries = append(queries, fmt.Sprintf("%s&%s=%d", query, d.PageParam, page*d.PageStep))
	}
	return queries
}

// dedupe drops duplicate exclusions (case-insensitive) while preserving
// order.
func dedupe(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
