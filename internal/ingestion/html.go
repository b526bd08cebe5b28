package ingestion

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockElements end a line of text when rendered.
const blockElements = "p, div, li, tr, h1, h2, h3, h4, h5, h6, table, section, article, ul, ol, dt, dd, blockquote, pre"

// ExtractHTMLText returns the document title and its visible text with one
// line per block element.
func ExtractHTMLText(html string) (title string, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, nav, footer, iframe, svg").Remove()

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("td, th").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		return title, CleanText(doc.Text()), nil
	}
	return title, CleanText(body.Text()), nil
}
