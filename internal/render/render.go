// Package render turns stored page content into sanitized, navigable HTML
// for the reader view. The stages run in a fixed order: selective anchor
// un-escaping, allowlist sanitization, then DOM-level transforms (image
// materialization, anchor normalization, section separators). Rendering is
// read-only; failures degrade to the sanitized markup rather than failing
// the page load.
package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	escapedAnchorRe = regexp.MustCompile(`(?is)&lt;a\b([^&]*)&gt;(.*?)&lt;/a&gt;`)
	onHandlerDqRe   = regexp.MustCompile(`(?i)\son[a-z]+\s*=\s*"[^"]*"`)
	onHandlerSqRe   = regexp.MustCompile(`(?i)\son[a-z]+\s*=\s*'[^']*'`)
	jsProtocolRe    = regexp.MustCompile(`(?i)javascript:`)

	imageHrefRe = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp|svg|bmp|tiff)(\?.*)?$`)
	imageURLRe  = regexp.MustCompile(`(?i)https?://[^\s"'<>]+\.(?:png|jpe?g|gif|webp|svg|bmp|tiff)(?:\?[^\s"'<>]*)?`)
)

// Pipeline renders stored content with a fixed sanitization policy.
type Pipeline struct {
	policy *bluemonday.Policy
}

// New creates the reader render pipeline.
func New() *Pipeline {
	return &Pipeline{policy: newPolicy()}
}

// newPolicy builds the fixed tag/attribute allowlist: anchors, images,
// basic text formatting, lists, tables, headings. Everything else,
// scripts and event handlers included, is denied.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"a", "img", "strong", "em", "u", "s", "p", "br",
		"ul", "ol", "li", "blockquote", "code", "pre",
		"h1", "h2", "h3", "h4", "span", "div", "hr",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("href", "src", "alt", "title", "target", "rel", "class", "style").Globally()
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// Sanitize runs only the allowlist policy, for markup that is rendered
// verbatim rather than through the full pipeline, such as a legacy raw
// sidebar.
func (p *Pipeline) Sanitize(content string) string {
	return p.policy.Sanitize(content)
}

// Render runs the full pipeline over stored content.
func (p *Pipeline) Render(content string) string {
	sanitized := p.policy.Sanitize(UnescapeAnchors(content))
	transformed, err := Transform(sanitized)
	if err != nil {
		return sanitized
	}
	return transformed
}

// UnescapeAnchors restores literal anchor markup that the editor widget
// stores escaped, so admins can type raw <a href="...">text</a>. Inline
// event handlers and javascript: URLs are stripped during un-escaping as
// defense in depth; allowlist sanitization still runs afterwards.
func UnescapeAnchors(content string) string {
	return escapedAnchorRe.ReplaceAllStringFunc(content, func(match string) string {
		groups := escapedAnchorRe.FindStringSubmatch(match)
		attrs, inner := groups[1], groups[2]
		attrs = onHandlerDqRe.ReplaceAllString(attrs, "")
		attrs = onHandlerSqRe.ReplaceAllString(attrs, "")
		attrs = jsProtocolRe.ReplaceAllString(attrs, "")
		return "<a" + attrs + ">" + inner + "</a>"
	})
}

// Transform applies the DOM-level reader transforms to sanitized markup:
// image-extension anchors and bare image URLs become lazy <img> elements,
// anchors get safe rel attributes, and a separator follows each h2.
func Transform(content string) (string, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(content), container)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	materializeImageAnchors(container)
	materializeImageURLs(container)
	normalizeAnchors(container)
	insertSectionSeparators(container)

	var buf bytes.Buffer
	for child := container.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// materializeImageAnchors replaces anchors whose href points at an image
// and which contain no image already with an <img> element.
func materializeImageAnchors(root *html.Node) {
	for _, a := range collect(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.A
	}) {
		href := attr(a, "href")
		if href == "" || !imageHrefRe.MatchString(href) || containsImage(a) {
			continue
		}
		img := newImage(href, textContent(a))
		a.Parent.InsertBefore(img, a)
		a.Parent.RemoveChild(a)
	}
}

// materializeImageURLs splits text nodes around bare image URLs and
// replaces each URL with an <img> element.
func materializeImageURLs(root *html.Node) {
	for _, tn := range collect(root, func(n *html.Node) bool {
		return n.Type == html.TextNode && imageURLRe.MatchString(n.Data)
	}) {
		parent := tn.Parent
		if parent == nil || parent.DataAtom == atom.A {
			continue
		}
		text := tn.Data
		last := 0
		for _, loc := range imageURLRe.FindAllStringIndex(text, -1) {
			if loc[0] > last {
				parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[last:loc[0]]}, tn)
			}
			parent.InsertBefore(newImage(text[loc[0]:loc[1]], ""), tn)
			last = loc[1]
		}
		if last < len(text) {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[last:]}, tn)
		}
		parent.RemoveChild(tn)
	}
}

// normalizeAnchors gives every anchor a target (default _self) and merges
// noopener/noreferrer into its rel attribute.
func normalizeAnchors(root *html.Node) {
	for _, a := range collect(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.A
	}) {
		if attr(a, "target") == "" {
			setAttr(a, "target", "_self")
		}
		rel := strings.Fields(attr(a, "rel"))
		for _, required := range []string{"noopener", "noreferrer"} {
			found := false
			for _, r := range rel {
				if r == required {
					found = true
					break
				}
			}
			if !found {
				rel = append(rel, required)
			}
		}
		setAttr(a, "rel", strings.Join(rel, " "))
	}
}

// insertSectionSeparators places an <hr> after each h2 heading.
func insertSectionSeparators(root *html.Node) {
	for _, h2 := range collect(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.H2
	}) {
		hr := &html.Node{Type: html.ElementNode, Data: "hr", DataAtom: atom.Hr}
		if h2.NextSibling != nil {
			h2.Parent.InsertBefore(hr, h2.NextSibling)
		} else {
			h2.Parent.AppendChild(hr)
		}
	}
}

func newImage(src, alt string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "img",
		DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: "src", Val: src},
			{Key: "alt", Val: alt},
			{Key: "loading", Val: "lazy"},
			{Key: "decoding", Val: "async"},
		},
	}
}

// collect gathers matching nodes depth-first before any mutation happens.
func collect(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		walk(child)
	}
	return out
}

func containsImage(n *html.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.DataAtom == atom.Img {
			return true
		}
		if containsImage(child) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
