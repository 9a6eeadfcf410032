package pipeline

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// detailPageText renders a detail page's raw HTML into extraction text: the
// flattened body text plus every table row re-emitted as "cell: cell" lines.
// Announcement schedules usually live in tables, and flattening rows keeps a
// label and its date in the same line for the label-window matchers.
func detailPageText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return htmlToText(rawHTML)
	}

	doc.Find("script, style").Remove()

	parts := make([]string, 0, 64)
	bodyText := normalizeSpace(doc.Find("body").Text())
	if bodyText != "" {
		parts = append(parts, bodyText)
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := make([]string, 0, 4)
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			value := normalizeSpace(cell.Text())
			if value != "" {
				cells = append(cells, value)
			}
		})
		if len(cells) > 1 {
			parts = append(parts, strings.Join(cells, ": "))
		}
	})

	return strings.Join(parts, "\n")
}

// htmlToText strips all markup, leaving plain text.
func htmlToText(s string) string {
	return normalizeSpace(bluemonday.StrictPolicy().Sanitize(s))
}

// sanitizeDescription keeps safe markup for stored program descriptions.
func sanitizeDescription(s string) string {
	return bluemonday.UGCPolicy().Sanitize(s)
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
