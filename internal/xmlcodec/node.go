package xmlcodec

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// node is one element of a parsed document.
type node struct {
	name     string
	attrs    map[string]string
	children []*node
	text     string
	line     int
}

func (n *node) attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

func (n *node) isNull() bool {
	v, ok := n.attrs[NullAttr]
	return ok && strings.EqualFold(strings.TrimSpace(v), "true")
}

// document is a parsed file: its root element and the namespace prefixes the
// root declares.
type document struct {
	root     *node
	prefixes map[string]string
}

// parseDocument reads r into a node tree. Character data keeps HTML entities
// decoded; elements of mixed content keep only their own text.
func parseDocument(r io.Reader) (*document, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity

	doc := &document{prefixes: map[string]string{}}
	var stack []*node
	var text []*strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			n := &node{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr)), line: line}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					if len(stack) == 0 {
						doc.prefixes[a.Name.Local] = a.Value
					}
					continue
				}
				if a.Name.Space == "" && a.Name.Local == "xmlns" {
					continue
				}
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if doc.root != nil {
					return nil, fmt.Errorf("line %d: multiple root elements", line)
				}
				doc.root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.text = text[len(text)-1].String()
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		}
	}
	if doc.root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return doc, nil
}

// asset returns the element holding the document's single asset. A root
// named Asset is the asset itself.
func (doc *document) asset() (*node, error) {
	if doc.root.name == AssetElement {
		return doc.root, nil
	}
	if len(doc.root.children) != 1 {
		return nil, fmt.Errorf("root element <%s> must contain exactly one asset element, found %d",
			doc.root.name, len(doc.root.children))
	}
	return doc.root.children[0], nil
}
