package plugin

import "time"

// Builtin returns the bundled search-engine plugins. They are pure
// descriptors: every engine here works with the default url/extract/clean
// behaviors. Delays are tuned per engine; Google and Baidu throttle
// aggressively.
func Builtin() []*Plugin {
	return []*Plugin{
		{
			Name: "google",
			Descriptor: Descriptor{
				SearchURL:          "https://www.google.com/search",
				SubdomainsSelector: "div#search cite",
				RequestDelay:       500 * time.Millisecond,
				PageParam:          "start",
				PageStep:           10,
			},
		},
		{
			Name: "bing",
			Descriptor: Descriptor{
				SearchURL:          "https://www.bing.com/search",
				SubdomainsSelector: "ol#b_results li.b_algo cite",
				PageParam:          "first",
				PageStep:           10,
			},
		},
		{
			Name: "yahoo",
			Descriptor: Descriptor{
				SearchURL:          "https://search.yahoo.com/search",
				QueryParam:         "p",
				SubdomainsSelector: "div#web ol li div.compTitle span",
			},
		},
		{
			Name: "duckduckgo",
			Descriptor: Descriptor{
				SearchURL:          "https://html.duckduckgo.com/html/",
				SubdomainsSelector: "a.result__url",
				RequestDelay:       500 * time.Millisecond,
			},
		},
		{
			Name: "ask",
			Descriptor: Descriptor{
				SearchURL:          "https://www.ask.com/web",
				SubdomainsSelector: "div.PartialSearchResults-item a.PartialSearchResults-item-title-link",
				PageParam:          "page",
			},
		},
		{
			Name: "baidu",
			Descriptor: Descriptor{
				SearchURL:          "https://www.baidu.com/s",
				QueryParam:         "wd",
				SubdomainsSelector: "div#content_left h3.t a",
				RequestDelay:       500 * time.Millisecond,
				PageParam:          "pn",
				PageStep:           10,
			},
		},
	}
}
