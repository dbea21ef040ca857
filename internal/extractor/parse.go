package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/arashthr/shelfmark/internal/validations"
)

const (
	maxLists    = 2
	maxListItem = 10
	maxKeywords = 10

	noiseSelector       = "script, style, nav, header, footer, aside"
	mainContentSelector = "main, article, .content, #content, .main, #main"
	markedListSelector  = "ul.important, ol.important, ul.list, ol.list, ul.items, ol.items"
	mainListSelector    = "main ul, main ol, article ul, article ol, .content ul, .content ol"
)

// Parse reduces an HTML document to a ContentSummary. pageURL may be nil.
// Domain is left empty; callers know the link they fetched.
func Parse(body []byte, pageURL *url.URL, mainTextLimit int) (ContentSummary, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ContentSummary{}, fmt.Errorf("parse html: %w", err)
	}

	summary := ContentSummary{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaContent(doc, "description"),
		Keywords:    keywords(metaContent(doc, "keywords")),
	}

	// Structured data wins over tag values when present.
	if name, description := structuredData(doc); name != "" || description != "" {
		if name != "" {
			summary.Title = name
		}
		if description != "" {
			summary.Description = description
		}
	}
	summary.Title = validations.CleanUpText(summary.Title)
	summary.Description = validations.CleanUpText(summary.Description)

	doc.Find(noiseSelector).Remove()

	mainContent := doc.Find(mainContentSelector).First()
	if mainContent.Length() == 0 {
		mainContent = doc.Find("body")
	}
	summary.MainText = validations.Truncate(nodeText(mainContent), mainTextLimit)
	summary.ListItems = listItems(doc)

	if pageURL != nil {
		if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
			summary.SiteName = validations.CleanUpText(article.SiteName)
			summary.Language = article.Language
		}
	}
	return summary, nil
}

func metaContent(doc *goquery.Document, name string) string {
	return strings.TrimSpace(doc.Find(`meta[name="` + name + `"]`).First().AttrOr("content", ""))
}

func keywords(content string) []string {
	var result []string
	for _, kw := range strings.Split(content, ",") {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		result = append(result, kw)
		if len(result) == maxKeywords {
			break
		}
	}
	return result
}

// structuredData reads name and description from the first JSON-LD block.
// Malformed data yields empty strings.
func structuredData(doc *goquery.Document) (string, string) {
	raw := doc.Find(`script[type="application/ld+json"]`).First().Text()
	if strings.TrimSpace(raw) == "" {
		return "", ""
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return "", ""
	}
	if list, ok := data.([]any); ok {
		if len(list) == 0 {
			return "", ""
		}
		data = list[0]
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return "", ""
	}
	name, _ := obj["name"].(string)
	description, _ := obj["description"].(string)
	return strings.TrimSpace(name), strings.TrimSpace(description)
}

func listItems(doc *goquery.Document) []string {
	lists := doc.Find(markedListSelector)
	if lists.Length() == 0 {
		lists = doc.Find(mainListSelector)
	}
	var items []string
	lists.Slice(0, min(maxLists, lists.Length())).Each(func(_ int, list *goquery.Selection) {
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			if len(items) == maxListItem {
				return
			}
			if text := nodeText(li); text != "" {
				items = append(items, text)
			}
		})
	})
	return items
}

// nodeText joins the trimmed text nodes under sel with single spaces.
func nodeText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				parts = append(parts, strings.Join(strings.Fields(trimmed), " "))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
