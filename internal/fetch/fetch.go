// Package fetch downloads a web page and reduces it to its visible text.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/amishk599/hireflow/internal/model"
)

const maxBodyBytes = 5 << 20

// Ensure HTTPFetcher implements model.PageFetcher.
var _ model.PageFetcher = (*HTTPFetcher)(nil)

// HTTPFetcher loads pages over HTTP and extracts their text the way a browser
// would show it, minus scripts and styles.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher. An empty userAgent leaves Go's default in place.
func NewHTTPFetcher(client *http.Client, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{client: client, userAgent: userAgent}
}

// Fetch retrieves url and returns its title and visible text.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return model.Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Page{}, &model.HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.Page{}, fmt.Errorf("fetch %s: read body: %w", url, err)
	}

	page, err := Extract(data, resp.Header.Get("Content-Type"))
	if err != nil {
		return model.Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	page.URL = url
	return page, nil
}

// Extract decodes an HTML document to UTF-8 and returns its title and the text
// of everything outside script, style and noscript elements.
func Extract(data []byte, contentType string) (model.Page, error) {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return model.Page{}, fmt.Errorf("decode page: %w", err)
		}
		utf8data = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return model.Page{}, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script,noscript,style,template").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	// Block elements are separated by newlines so adjacent words don't fuse.
	doc.Find("p,li,div,h1,h2,h3,h4,h5,h6,tr,br,section,article").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	body := doc.Find("body")
	var text string
	if body.Length() > 0 {
		text = body.Text()
	} else {
		text = doc.Text()
	}

	return model.Page{Title: title, Text: strings.TrimSpace(text)}, nil
}
