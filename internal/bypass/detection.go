package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Detector inspects a search-engine response and reports whether the engine
// served a block or challenge page instead of results.
type Detector func(statusCode int, header http.Header, body []byte) (detected bool, source string)

// DefaultDetectors returns the standard list of challenge detectors for the
// engines the built-in plugins talk to.
func DefaultDetectors() []Detector {
	return []Detector{
		detectGoogleSorry,
		detectRecaptcha,
		detectCloudflare,
		detectRateLimited,
	}
}

// Detect runs the response through the given detectors and returns the first
// matching source name.
func Detect(statusCode int, header http.Header, body []byte, detectors []Detector) (string, bool) {
	for _, d := range detectors {
		if detected, source := d(statusCode, header, body); detected {
			return source, true
		}
	}
	return "", false
}

// detectGoogleSorry matches Google's "unusual traffic" interstitial, which is
// served with 429 or sometimes 200 from the /sorry/ endpoint.
func detectGoogleSorry(statusCode int, header http.Header, body []byte) (bool, string) {
	if bytes.Contains(body, []byte("unusual traffic from your computer network")) ||
		bytes.Contains(body, []byte("/sorry/index")) {
		return true, "google-sorry"
	}
	return false, ""
}

// detectRecaptcha matches generic CAPTCHA challenge pages.
func detectRecaptcha(statusCode int, header http.Header, body []byte) (bool, string) {
	if bytes.Contains(body, []byte("g-recaptcha")) ||
		bytes.Contains(body, []byte("h-captcha")) ||
		bytes.Contains(body, []byte("cf-turnstile")) {
		return true, "captcha"
	}
	return false, ""
}

// detectCloudflare matches Cloudflare block and browser-check pages, which
// front several of the smaller engines.
func detectCloudflare(statusCode int, header http.Header, body []byte) (bool, string) {
	if statusCode != http.StatusForbidden && statusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header.Get("Server")), "cloudflare") {
		return true, "cloudflare"
	}
	if bytes.Contains(body, []byte("cf-browser-verification")) ||
		bytes.Contains(body, []byte("Attention Required! | Cloudflare")) {
		return true, "cloudflare"
	}
	return false, ""
}

// detectRateLimited matches plain throttling responses without a challenge
// body, e.g. Bing and DuckDuckGo under load.
func detectRateLimited(statusCode int, header http.Header, body []byte) (bool, string) {
	if statusCode == http.StatusTooManyRequests {
		return true, "rate-limited"
	}
	if statusCode == http.StatusServiceUnavailable && header.Get("Retry-After") != "" {
		return true, "rate-limited"
	}
	return false, ""
}
