// Package htmltext turns HTML pages into plain text and links for the
// classifier and the discovery adapters.
package htmltext

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is the parsed form of an HTML document.
type Page struct {
	Title string
	Text  string
	Links []Link
}

// Link is an anchor resolved against the page URL.
type Link struct {
	URL    string
	Anchor string
}

// Parse extracts title, visible text and resolved links from an HTML body.
func Parse(body []byte, pageURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	doc.Find("script, style, noscript, iframe").Remove()

	page := &Page{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	base, baseErr := url.Parse(pageURL)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		resolved := href
		if baseErr == nil {
			if ref, err := url.Parse(href); err == nil {
				resolved = base.ResolveReference(ref).String()
			}
		}
		page.Links = append(page.Links, Link{
			URL:    resolved,
			Anchor: strings.TrimSpace(s.Text()),
		})
	})

	bodySel := doc.Find("body")
	if bodySel.Length() == 0 {
		page.Text = collapse(doc.Text())
	} else {
		page.Text = collapse(bodySel.Text())
	}
	return page, nil
}

// collapse squeezes whitespace runs so classifier offsets stay small.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
