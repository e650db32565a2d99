package discogs

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n.Type == html.ElementNode && n.DataAtom == a
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if nil == root {
		return nil
	}

	for n := range root.Descendants() {
		if match(n) {
			return n
		}
	}

	return nil
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	if nil == root {
		return nil
	}

	var out []*html.Node
	for n := range root.Descendants() {
		if match(n) {
			out = append(out, n)
		}
	}

	return out
}

func children(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := range n.ChildNodes() {
		if isElement(c, a) {
			out = append(out, c)
		}
	}

	return out
}

func byID(a atom.Atom, id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return isElement(n, a) && attr(n, "id") == id
	}
}

func text(n *html.Node) string {
	if nil == n {
		return ""
	}

	var b strings.Builder
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			b.WriteString(d.Data)
		}
	}

	return b.String()
}
