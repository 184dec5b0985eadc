// Package browser drives the chart site through a real Chrome instance.
//
// Reads go through Snapshot: the page's current outer HTML parsed with
// goquery, so extraction works on a consistent view of the revealed rows.
// Interactions (click, keys, script) go to the live page.
package browser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNavigation wraps any failure to load a page.
	ErrNavigation = errors.New("navigation failed")
	// ErrNavigationTimeout is returned when a page or element does not appear in time.
	ErrNavigationTimeout = errors.New("navigation timed out")
	// ErrNotFound is returned when a required element is absent.
	ErrNotFound = errors.New("element not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("browser closed")
)

// Element is one node of a snapshot.
type Element interface {
	Text() (string, error)
	Attr(name string) (string, error)
}

// Snapshot is a parsed, immutable view of a document.
type Snapshot interface {
	FindAll(selector string) []Element
}

// ParseSnapshot parses HTML into a Snapshot.
func ParseSnapshot(html string) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return docSnapshot{doc: doc}, nil
}

type docSnapshot struct {
	doc *goquery.Document
}

func (s docSnapshot) FindAll(selector string) []Element {
	sel := s.doc.Find(selector)
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		out = append(out, nodeElement{sel: node})
	})
	return out
}

type nodeElement struct {
	sel *goquery.Selection
}

func (e nodeElement) Text() (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e nodeElement) Attr(name string) (string, error) {
	return e.sel.AttrOr(name, ""), nil
}
