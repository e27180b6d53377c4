package search

import (
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Document wraps a parsed notice tree together with the namespaces declared
// anywhere in it. Latvian procurement feeds have shipped at least three schema
// generations (namespaced TED-style forms, bare legacy forms, and mixed-case
// vendor exports), so field lookups have to tolerate all of them.
type Document struct {
	root *xmlquery.Node

	// nsURIs holds every distinct namespace URI seen in the tree, in
	// document order.
	nsURIs []string
}

// ParseDocument parses a notice XML document and indexes its namespaces.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{root: root}
	walkElements(root, func(n *xmlquery.Node) bool {
		if uri := n.NamespaceURI; uri != "" && !containsString(doc.nsURIs, uri) {
			doc.nsURIs = append(doc.nsURIs, uri)
		}
		return true
	})
	return doc, nil
}

// Root returns the document node of the parsed tree.
func (d *Document) Root() *xmlquery.Node { return d.root }

// Find resolves a field against the tree using an ordered list of candidate
// tag names. Resolution is fully deterministic: candidates are tried strictly
// in the order given, and for each candidate three passes run in turn:
// exact local-name match under each declared namespace, exact match with no
// namespace, then a case-insensitive substring match on local names. The
// first element found in document order wins; nil means the field is absent.
func (d *Document) Find(tags ...string) *xmlquery.Node {
	return findIn(d.root, d.nsURIs, tags)
}

// FindUnder is Find scoped to the subtree rooted at scope.
func (d *Document) FindUnder(scope *xmlquery.Node, tags ...string) *xmlquery.Node {
	if scope == nil {
		return nil
	}
	return findIn(scope, d.nsURIs, tags)
}

func findIn(scope *xmlquery.Node, nsURIs []string, tags []string) *xmlquery.Node {
	for _, tag := range tags {
		for _, uri := range nsURIs {
			if n := firstElement(scope, func(n *xmlquery.Node) bool {
				return n.Data == tag && n.NamespaceURI == uri
			}); n != nil {
				return n
			}
		}
		if n := firstElement(scope, func(n *xmlquery.Node) bool {
			return n.Data == tag && n.NamespaceURI == ""
		}); n != nil {
			return n
		}
		tagLower := strings.ToLower(tag)
		if n := firstElement(scope, func(n *xmlquery.Node) bool {
			return strings.Contains(strings.ToLower(n.Data), tagLower)
		}); n != nil {
			return n
		}
	}
	return nil
}

// findNamed returns the first descendant of scope whose local name equals any
// of the given names, regardless of namespace.
func findNamed(scope *xmlquery.Node, names ...string) *xmlquery.Node {
	if scope == nil {
		return nil
	}
	for _, name := range names {
		if n := firstElement(scope, func(n *xmlquery.Node) bool {
			return n.Data == name
		}); n != nil {
			return n
		}
	}
	return nil
}

// findAllNamed collects every descendant element of scope whose local name
// equals name, in document order.
func findAllNamed(scope *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	walkElements(scope, func(n *xmlquery.Node) bool {
		if n.Data == name {
			out = append(out, n)
		}
		return true
	})
	return out
}

// firstElement returns the first descendant element (excluding scope itself)
// matching pred, in document order.
func firstElement(scope *xmlquery.Node, pred func(*xmlquery.Node) bool) *xmlquery.Node {
	var found *xmlquery.Node
	walkElements(scope, func(n *xmlquery.Node) bool {
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// walkElements runs fn over every descendant element of n in document order.
// fn returning false stops the walk.
func walkElements(n *xmlquery.Node, fn func(*xmlquery.Node) bool) bool {
	if n == nil {
		return true
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			if !fn(child) {
				return false
			}
		}
		if !walkElements(child, fn) {
			return false
		}
	}
	return true
}

// directText returns the text held directly by an element, excluding text
// nested inside child elements. This matters for mixed content like a
// deadline element that carries a date and a nested TIME child.
func directText(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.TextNode || child.Type == xmlquery.CharDataNode {
			b.WriteString(child.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// fullText returns all text in the subtree, trimmed.
func fullText(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.InnerText())
}

// elementAttr looks up an attribute by local name, trying the given variants
// in order.
func elementAttr(n *xmlquery.Node, names ...string) string {
	if n == nil {
		return ""
	}
	for _, name := range names {
		for _, attr := range n.Attr {
			if attr.Name.Local == name {
				return attr.Value
			}
		}
	}
	return ""
}
