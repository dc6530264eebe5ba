package htmlutil

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var headingAtoms = []atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// Title picks a name for the document in fragment: its <title>, else the
// first heading by level (h1 before h2 ...), else the first visible text.
// It returns "" when the fragment has no text at all.
func Title(fragment string) string {
	doc, err := html.Parse(strings.NewReader(ExtractFragment(fragment)))
	if err != nil {
		return ""
	}

	if t := findElement(doc, atom.Title); t != nil {
		if s := collapseSpace(textContent(t)); s != "" {
			return s
		}
	}
	for _, h := range headingAtoms {
		var found string
		walkElements(doc, h, func(n *html.Node) bool {
			found = collapseSpace(textContent(n))
			return found != ""
		})
		if found != "" {
			return found
		}
	}
	return firstText(doc)
}

// walkElements calls fn for each element of kind a in document order until
// fn returns true.
func walkElements(n *html.Node, a atom.Atom, fn func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && n.DataAtom == a && fn(n) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if walkElements(c, a, fn) {
			return true
		}
	}
	return false
}

func firstText(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Head, atom.Script, atom.Style, atom.Template:
			return ""
		}
	}
	if n.Type == html.TextNode {
		return collapseSpace(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := firstText(c); s != "" {
			return s
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
