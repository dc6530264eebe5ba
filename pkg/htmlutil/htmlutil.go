// Package htmlutil analyses and cleans clipboard HTML fragments.
package htmlutil

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CleanOptions tunes Clean.
type CleanOptions struct {
	// StrikethroughToDel rewrites ~~text~~ in text nodes to <del>text</del>.
	StrikethroughToDel bool
}

var (
	strikePattern = regexp.MustCompile(`~~([^~]+?)~~`)
	startFragment = "<!--StartFragment-->"
	endFragment   = "<!--EndFragment-->"
)

// plainTags are the elements a "plain" fragment may contain: wrappers and
// bare paragraphs that carry no structure of their own.
var plainTags = map[string]bool{
	"html": true, "head": true, "body": true, "meta": true, "title": true,
	"style": true, "p": true, "div": true, "span": true, "font": true, "br": true,
}

// ExtractFragment strips a CF_HTML header (Version:/StartHTML: lines) and
// returns the marked fragment when StartFragment/EndFragment comments exist.
func ExtractFragment(s string) string {
	if i := strings.Index(s, startFragment); i >= 0 {
		rest := s[i+len(startFragment):]
		if j := strings.Index(rest, endFragment); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	if strings.HasPrefix(s, "Version:") {
		if i := strings.Index(s, "<"); i >= 0 {
			return s[i:]
		}
	}
	return s
}

// IsPlainFragment reports whether fragment is nothing more than paragraphs of
// plain text: no headings, lists, tables, emphasis, links, code or media.
func IsPlainFragment(fragment string) bool {
	doc, err := html.Parse(strings.NewReader(ExtractFragment(fragment)))
	if err != nil {
		return true
	}
	return onlyPlainElements(doc)
}

func onlyPlainElements(n *html.Node) bool {
	if n.Type == html.ElementNode && !plainTags[n.Data] {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !onlyPlainElements(c) {
			return false
		}
	}
	return true
}

// Clean removes content that document converters cannot use: <svg>
// elements, images pointing at .svg files, <br> inside KaTeX markup, empty
// paragraphs and data-* attributes. Paragraphs directly inside list items are
// unwrapped. The cleaned body content is returned.
func Clean(fragment string, opts CleanOptions) (string, error) {
	doc, err := html.Parse(strings.NewReader(ExtractFragment(fragment)))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		return "", nil
	}

	cleanNode(body, false)
	if opts.StrikethroughToDel {
		strikethroughToDel(body)
	}

	var sb strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", fmt.Errorf("rendering HTML: %w", err)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func cleanNode(n *html.Node, inKatex bool) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type != html.ElementNode {
			c = next
			continue
		}

		switch {
		case c.DataAtom == atom.Svg:
			n.RemoveChild(c)
		case c.DataAtom == atom.Img && strings.HasSuffix(strings.ToLower(attr(c, "src")), ".svg"):
			n.RemoveChild(c)
		case c.DataAtom == atom.Br && inKatex:
			n.RemoveChild(c)
		default:
			dropDataAttrs(c)
			cleanNode(c, inKatex || strings.Contains(attr(c, "class"), "katex"))
			if c.DataAtom == atom.P && isEmptyParagraph(c) {
				n.RemoveChild(c)
			} else if c.DataAtom == atom.Li {
				unwrapParagraphs(c)
			}
		}
		c = next
	}
}

func dropDataAttrs(n *html.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if !strings.HasPrefix(a.Key, "data-") {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func isEmptyParagraph(p *html.Node) bool {
	if findElement(p, atom.Img) != nil || findElement(p, atom.Iframe) != nil ||
		findElement(p, atom.Video) != nil || findElement(p, atom.Audio) != nil {
		return false
	}
	text := strings.ReplaceAll(textContent(p), "\u00a0", "")
	return strings.TrimSpace(text) == ""
}

// unwrapParagraphs turns <li><p>x</p></li> into <li>x</li>.
func unwrapParagraphs(li *html.Node) {
	for c := li.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.DataAtom == atom.P {
			for gc := c.FirstChild; gc != nil; {
				gnext := gc.NextSibling
				c.RemoveChild(gc)
				li.InsertBefore(gc, c)
				gc = gnext
			}
			li.RemoveChild(c)
		}
		c = next
	}
	for li.FirstChild != nil && isBlankText(li.FirstChild) {
		li.RemoveChild(li.FirstChild)
	}
	for li.LastChild != nil && isBlankText(li.LastChild) {
		li.RemoveChild(li.LastChild)
	}
}

func strikethroughToDel(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.ElementNode && (c.DataAtom == atom.Code || c.DataAtom == atom.Pre):
		case c.Type == html.ElementNode:
			strikethroughToDel(c)
		case c.Type == html.TextNode && strings.Contains(c.Data, "~~"):
			replaceStrikes(n, c)
		}
		c = next
	}
}

func replaceStrikes(parent, text *html.Node) {
	matches := strikePattern.FindAllStringSubmatchIndex(text.Data, -1)
	if matches == nil {
		return
	}
	last := 0
	for _, m := range matches {
		if m[0] > last {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text.Data[last:m[0]]}, text)
		}
		del := &html.Node{Type: html.ElementNode, Data: "del", DataAtom: atom.Del}
		del.AppendChild(&html.Node{Type: html.TextNode, Data: text.Data[m[2]:m[3]]})
		parent.InsertBefore(del, text)
		last = m[1]
	}
	if last < len(text.Data) {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text.Data[last:]}, text)
	}
	parent.RemoveChild(text)
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElement(c, a); result != nil {
			return result
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func isBlankText(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}
