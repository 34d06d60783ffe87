package extract

import (
	"net/url"
	"strings"
)

// Subdomains normalizes raw fragments into canonical subdomains of the
// target domain. Fragments are arbitrary text or link targets scraped from
// a result page: redirect wrappers, schemes, paths, query strings and
// surrounding chrome are all stripped. A host survives only if it sits
// strictly below the target on a label boundary, so for target
// "example.com" the host "mail.example.com" is kept while "example.com"
// itself, "evilexample.com" and "example.com.evil.net" are all dropped.
// Rejected fragments are noise, not errors.
func Subdomains(fragments []string, domain string) []string {
	target := CanonicalDomain(domain)
	if target == "" {
		return nil
	}

	var out []string
	for _, fragment := range fragments {
		out = append(out, hostsIn(fragment, target)...)
	}
	return out
}

// CanonicalDomain lowercases a domain and trims stray dots and whitespace.
func CanonicalDomain(domain string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// hostsIn scans one fragment for hostname-shaped tokens that are strict
// subdomains of target.
func hostsIn(fragment, target string) []string {
	f := strings.ToLower(fragment)
	// Redirect wrappers often percent-encode the destination URL.
	if unescaped, err := url.QueryUnescape(f); err == nil {
		f = unescaped
	}

	suffix := "." + target
	var hosts []string
	for _, token := range splitHostTokens(f) {
		// Trim only dots: a hyphen at a token edge makes the label
		// invalid, and rewriting the token would guess at a host the
		// page never named.
		token = strings.Trim(token, ".")
		if token == target || !strings.HasSuffix(token, suffix) {
			continue
		}
		if validLabels(strings.TrimSuffix(token, suffix)) {
			hosts = append(hosts, token)
		}
	}
	return hosts
}

// splitHostTokens breaks a fragment into maximal runs of hostname
// characters. Anything else (slashes, spaces, '=', '?', unicode ellipses)
// terminates a token, which strips schemes, paths and query strings for
// free.
func splitHostTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r == '.' || r == '-':
			return false
		}
		return true
	})
}

// validLabels reports whether prefix is a non-empty dot-separated sequence
// of valid DNS labels.
func validLabels(prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, label := range strings.Split(prefix, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	return true
}
