// Package extract turns search-engine result pages into candidate subdomain
// strings: a goquery document, a CSS selector over it, and a cleaner that
// normalizes whatever the selector matched.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// ExtractionError reports a result document or selector that could not be
// processed. It is recoverable: the affected query contributes no fragments.
type ExtractionError struct {
	Selector string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("extract: selector %q: %v", e.Selector, e.Err)
	}
	return fmt.Sprintf("extract: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Document parses an HTML response body.
func Document(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}
	return doc, nil
}

// Select applies a CSS selector to a parsed document. The selector is
// compiled explicitly so that a malformed one surfaces as an
// ExtractionError instead of a panic. Matching nothing is not an error.
func Select(doc *goquery.Document, selector string) (*goquery.Selection, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &ExtractionError{Selector: selector, Err: err}
	}
	return doc.FindMatcher(matcher), nil
}

// Fragments produces the raw candidate strings from matched elements: the
// trimmed text content of each element, plus its link target when present.
func Fragments(sel *goquery.Selection) []string {
	if sel == nil {
		return nil
	}

	var fragments []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			fragments = append(fragments, text)
		}
		if href, ok := s.Attr("href"); ok {
			if href = strings.TrimSpace(href); href != "" {
				fragments = append(fragments, href)
			}
		}
	})
	return fragments
}
