package fmarket

import (
	"errors"
	"regexp"
	"strings"

	"fmarket_nav/internal/nav"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var innerWhitespace = regexp.MustCompile(`\s+`)

// ParseTable extracts the body rows of the first table in markup. Each cell's
// text nodes are joined with spaces, so block-level children stay separated
// the way rendered text would be.
func ParseTable(markup string) ([]nav.RawRow, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, errors.New("empty table markup")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errors.New("no table element in markup")
	}

	var rows []nav.RawRow
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var row nav.RawRow
		tr.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, cellText(td))
		})
		rows = append(rows, row)
	})

	return rows, nil
}

func cellText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(strings.Join(parts, " "), " "))
}

func collectText(n *html.Node, parts *[]string) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
