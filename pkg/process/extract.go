package process

import (
	"io"
	"log/slog"
	"strings"

	"github.com/devraulu/normurl/pkg/normalize"
	whatwgurl "github.com/nlnwa/whatwg-url/url"
	"golang.org/x/net/html"
)

type Outlink struct {
	Original   string
	Normalized string
}

type Extraction struct {
	Outlinks []Outlink
	Title    string
	// Skipped counts hrefs that were not http(s) or failed to normalize.
	Skipped int
}

// ExtractLinks parses an HTML document and returns its <a href> targets
// resolved against baseURL (or the document's <base>) and normalized with
// n. Each canonical URL is reported once, in document order.
func ExtractLinks(body io.Reader, baseURL string, n *normalize.Normalizer) (*Extraction, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, err
	}

	base, err := whatwgurl.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	if newBaseStr := findBase(doc); newBaseStr != "" {
		if newBase, err := base.Parse(newBaseStr); err == nil {
			base = newBase
		}
	}

	res := &Extraction{
		Title: strings.TrimSpace(extractTitle(doc)),
	}

	seen := make(map[string]struct{})
	for _, href := range extractHrefs(doc) {
		resolved := resolve(href, base)
		if resolved == "" {
			res.Skipped++
			continue
		}

		normalized, err := n.Normalize(resolved)
		if err != nil {
			slog.Debug("couldn't normalize outlink", slog.String("url", resolved), slog.Any("err", err))
			res.Skipped++
			continue
		}

		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		res.Outlinks = append(res.Outlinks, Outlink{
			Original:   resolved,
			Normalized: normalized,
		})
	}

	return res, nil
}

func findBase(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "base" {
		for _, attr := range n.Attr {
			if attr.Key == "href" {
				return attr.Val
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findBase(c); res != "" {
			return res
		}
	}
	return ""
}

func extractHrefs(n *html.Node) []string {
	var hrefs []string
	if n.Type == html.ElementNode && n.Data == "a" {
		for _, attr := range n.Attr {
			if attr.Key == "href" {
				if val := strings.TrimSpace(attr.Val); val != "" {
					hrefs = append(hrefs, val)
				}
				break
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		hrefs = append(hrefs, extractHrefs(c)...)
	}
	return hrefs
}

func resolve(ref string, base *whatwgurl.Url) string {
	abs, err := base.Parse(ref)
	if err != nil {
		return ""
	}

	scheme := abs.Scheme()
	if scheme != "http" && scheme != "https" {
		return ""
	}

	return abs.String()
}

func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return n.FirstChild.Data
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := extractTitle(c); t != "" {
			return t
		}
	}
	return ""
}
