package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	estimateSuffix = " (estimated)"
	h1NotFound     = "(no H1 detected)"
)

// Elements whose text never reaches the rendered page
var hiddenElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Elements that break the rendered text onto a new line
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// ParseDocument builds a navigable tree from UTF-8 markup
func ParseDocument(markup []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// ExtractSignals reads every fact the rules need from the document.
// It has no side effects and never touches the network.
func ExtractSignals(doc *goquery.Document) DocumentSignals {
	signals := DocumentSignals{
		Title:              strings.TrimSpace(doc.Find("title").First().Text()),
		Description:        firstAttr(doc, `meta[name="description"]`, "content"),
		CanonicalURL:       firstAttr(doc, `link[rel="canonical"]`, "href"),
		OGTitle:            firstAttr(doc, `meta[property="og:title"]`, "content"),
		OGDescription:      firstAttr(doc, `meta[property="og:description"]`, "content"),
		OGImage:            firstAttr(doc, `meta[property="og:image"]`, "content"),
		RobotsDirective:    firstAttr(doc, `meta[name="robots"]`, "content"),
		H1Count:            doc.Find("h1").Length(),
		AnchorCount:        doc.Find("a").Length(),
		StylesheetCount:    doc.Find(`link[rel="stylesheet"]`).Length(),
		ScriptWithSrcCount: doc.Find("script[src]").Length(),
	}

	signals.H1Text = headlineText(doc)
	signals.HeadingTagSequence = headingLevels(doc)
	signals.Images = imageSignals(doc)
	signals.StructuredDataTypes = structuredDataTypes(doc)
	signals.BodyPlainText = bodyText(doc)
	signals.SerializedHTMLByteSize = serializedSize(doc)

	return signals
}

func firstAttr(doc *goquery.Document, selector, attr string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr(attr, ""))
}

// headlineText returns the first H1, or a guess from the nearest
// headline-like element when the page has none.
func headlineText(doc *goquery.Document) string {
	if text := strings.TrimSpace(doc.Find("h1").First().Text()); text != "" {
		return text
	}

	fallback := doc.Find("h2, h3, .title, .page-title").First()
	if fallback.Length() > 0 {
		return strings.TrimSpace(fallback.Text()) + estimateSuffix
	}

	return h1NotFound
}

func headingLevels(doc *goquery.Document) []int {
	levels := make([]int, 0)
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		levels = append(levels, int(name[1]-'0'))
	})
	return levels
}

func imageSignals(doc *goquery.Document) []ImageSignal {
	images := make([]ImageSignal, 0)
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		images = append(images, ImageSignal{
			HasAlt:    alt != "",
			HasWidth:  dimensionSet(s.AttrOr("width", "")),
			HasHeight: dimensionSet(s.AttrOr("height", "")),
			IsLazy:    strings.EqualFold(strings.TrimSpace(s.AttrOr("loading", "")), "lazy"),
		})
	})
	return images
}

// dimensionSet reports whether a width/height attribute yields a positive
// integer, reading leading digits the way browsers do ("300px" is 300).
func dimensionSet(value string) bool {
	value = strings.TrimSpace(value)
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(value[:end])
	return err == nil && n > 0
}

// structuredDataTypes collects every @type from the JSON-LD blocks.
// Blocks that fail to parse are skipped.
func structuredDataTypes(doc *goquery.Document) []string {
	types := make([]string, 0)
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}

		switch v := payload.(type) {
		case map[string]any:
			types = appendTypes(types, v["@type"])
		case []any:
			for _, item := range v {
				if obj, ok := item.(map[string]any); ok {
					types = appendTypes(types, obj["@type"])
				}
			}
		}
	})
	return types
}

func appendTypes(types []string, value any) []string {
	switch v := value.(type) {
	case string:
		if v != "" {
			types = append(types, v)
		}
	case []any:
		for _, item := range v {
			if name, ok := item.(string); ok && name != "" {
				types = append(types, name)
			}
		}
	}
	return types
}

// bodyText approximates the rendered text of <body>: hidden elements are
// dropped and block elements start on their own line.
func bodyText(doc *goquery.Document) string {
	var b strings.Builder
	for _, n := range doc.Find("body").Nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if hiddenElements[n.Data] {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// serializedSize is the UTF-8 byte length of the <html> element's markup
func serializedSize(doc *goquery.Document) int {
	markup, err := goquery.OuterHtml(doc.Find("html").First())
	if err != nil {
		return 0
	}
	return len(markup)
}
