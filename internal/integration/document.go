package integration

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is the view of a parsed HTML node the decoders work against
type Element interface {
	// Find returns the descendants matching a CSS selector, in document order
	Find(selector string) []Element
	// Children returns the element children
	Children() []Element
	Tag() string
	Attr(name string) (string, bool)
	HasClass(class string) bool
	Text() string
	// HTML returns the outer markup, used for error context
	HTML() string
}

type selectionElement struct {
	sel *goquery.Selection
}

// NewDocument parses an HTML document into an Element rooted at the document node
func NewDocument(r io.Reader) (Element, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the webpage: %w", err)
	}
	return selectionElement{sel: doc.Selection}, nil
}

// NewDocumentFromString parses an HTML string
func NewDocumentFromString(html string) (Element, error) {
	return NewDocument(strings.NewReader(html))
}

// FromSelection wraps the first node of a goquery selection
func FromSelection(sel *goquery.Selection) Element {
	return selectionElement{sel: sel.First()}
}

func wrap(sel *goquery.Selection) []Element {
	els := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		els = append(els, selectionElement{sel: s})
	})
	return els
}

func (e selectionElement) Find(selector string) []Element {
	return wrap(e.sel.Find(selector))
}

func (e selectionElement) Children() []Element {
	return wrap(e.sel.Children())
}

func (e selectionElement) Tag() string {
	return goquery.NodeName(e.sel)
}

func (e selectionElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e selectionElement) HasClass(class string) bool {
	return e.sel.HasClass(class)
}

func (e selectionElement) Text() string {
	return e.sel.Text()
}

func (e selectionElement) HTML() string {
	html, err := goquery.OuterHtml(e.sel)
	if err != nil {
		return e.sel.Text()
	}
	return html
}
