// Package discover finds lecture watch URLs linked or embedded in HTML
// pages such as course sites and LMS pages.
package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"lecturetube/internal/httputil"
)

// linkAttrs are the element/attribute pairs that can point at a player.
var linkAttrs = []struct {
	selector string
	attr     string
}{
	{"a[href]", "href"},
	{"iframe[src]", "src"},
	{"[data-src]", "data-src"},
	{"link[href]", "href"},
}

// Matcher reports whether a URL is a watch page worth returning.
type Matcher func(url string) bool

// Page fetches pageURL and returns the watch URLs it references.
func Page(ctx context.Context, client *http.Client, pageURL string, match Matcher) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	resp, err := httputil.Get(ctx, client, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &httputil.StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	// Redirects change the base for relative links.
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	return Links(doc, base, match), nil
}

// Links extracts matching URLs from doc, resolving relative references
// against base. Duplicates are dropped; document order is kept.
func Links(doc *goquery.Document, base *url.URL, match Matcher) []string {
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = u
		}
	}

	seen := make(map[string]bool)
	var links []string

	// Walk every candidate element once, in document order.
	doc.Find("a[href], iframe[src], [data-src], link[href]").Each(func(_ int, s *goquery.Selection) {
		for _, la := range linkAttrs {
			if !s.Is(la.selector) {
				continue
			}
			raw, _ := s.Attr(la.attr)
			u := resolve(base, raw)
			if u == "" || seen[u] || !match(u) {
				continue
			}
			seen[u] = true
			links = append(links, u)
		}
	})

	return links
}

func resolve(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return ""
	}
	u, err := base.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}
