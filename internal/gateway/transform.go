package gateway

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// containerClasses locate the passage body on a BibleGateway page.
var containerClasses = []string{"passage-text", "passage-content"}

// dropClasses are elements removed with everything inside them.
var dropClasses = map[string]bool{
	"footnote":              true,
	"footnotes":             true,
	"crossreference":        true,
	"crossrefs":             true,
	"passage-other-trans":   true,
	"full-chap-link":        true,
	"versenum":              true,
	"chapternum":            true,
	"publisher-info-bottom": true,
}

// adClassPattern matches advertisement containers.
var adClassPattern = regexp.MustCompile(`(?i)^(ad-|ads?$|advert|dynamic-ad|sponsor)`)

// verseClassPattern matches the structural verse annotation, e.g. "John-3-16"
// or "1John-4-8". The last number is the verse.
var verseClassPattern = regexp.MustCompile(`^\d?[A-Za-z]+-(\d+)-(\d+)$`)

// Clean extracts the passage from a BibleGateway page as plain text. Every
// verse starts on its own line prefixed with its number; paragraphs are
// separated by one blank line.
func Clean(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse HTML: %v", ErrFormat, err)
	}

	containers := findContainers(doc)
	if len(containers) == 0 {
		return "", fmt.Errorf("%w: passage container not found", ErrFormat)
	}

	w := &textWriter{}
	for _, c := range containers {
		w.walk(c)
		w.paragraph()
	}
	if w.verses == 0 {
		return "", fmt.Errorf("%w: no verse markers found", ErrFormat)
	}
	return w.String(), nil
}

// findContainers returns the outermost passage containers in document order.
func findContainers(doc *html.Node) []*html.Node {
	for _, class := range containerClasses {
		var found []*html.Node
		var visit func(n *html.Node)
		visit = func(n *html.Node) {
			if n.Type == html.ElementNode && n.DataAtom == atom.Div && hasClass(n, class) {
				found = append(found, n)
				return
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visit(c)
			}
		}
		visit(doc)
		if len(found) > 0 {
			return found
		}
	}
	return nil
}

// textWriter accumulates cleaned lines while walking the passage DOM.
type textWriter struct {
	lines        []string
	line         strings.Builder
	pendingSpace bool
	activeVerse  string
	verses       int
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c)
		}
		return
	}

	if skip(n) {
		return
	}
	if n.DataAtom == atom.Br {
		w.lineBreak()
		return
	}

	block := isBlock(n)
	if block {
		w.paragraph()
	}
	if verse, key := getVerse(n); key != "" && key != w.activeVerse {
		w.activeVerse = key
		w.verses++
		w.lineBreak()
		w.line.WriteString(verse)
		w.line.WriteByte(' ')
		w.pendingSpace = false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.paragraph()
	}
}

// text appends s with all whitespace runs, including nbsp, collapsed.
func (w *textWriter) text(s string) {
	words := strings.Fields(s)
	if len(words) == 0 {
		if s != "" {
			w.pendingSpace = true
		}
		return
	}
	if startsWithSpace(s) {
		w.pendingSpace = true
	}
	for i, word := range words {
		if w.line.Len() > 0 && (w.pendingSpace || i > 0) && !endsWithSpace(w.line.String()) {
			w.line.WriteByte(' ')
		}
		w.line.WriteString(word)
		w.pendingSpace = false
	}
	if endsWithSpace(s) {
		w.pendingSpace = true
	}
}

// lineBreak ends the current line, if it has content.
func (w *textWriter) lineBreak() {
	if line := strings.TrimSpace(w.line.String()); line != "" {
		w.lines = append(w.lines, line)
	}
	w.line.Reset()
	w.pendingSpace = false
}

// paragraph ends the current line and leaves at most one blank line.
func (w *textWriter) paragraph() {
	w.lineBreak()
	if len(w.lines) > 0 && w.lines[len(w.lines)-1] != "" {
		w.lines = append(w.lines, "")
	}
}

func (w *textWriter) String() string {
	w.lineBreak()
	return strings.TrimSpace(strings.Join(w.lines, "\n"))
}

// getVerse returns the verse number and annotation key of a verse span.
func getVerse(n *html.Node) (verse, key string) {
	if !hasClass(n, "text") {
		return "", ""
	}
	for _, class := range classes(n) {
		if m := verseClassPattern.FindStringSubmatch(class); m != nil {
			return m[2], class
		}
	}
	return "", ""
}

// skip reports whether n and its subtree carry no passage text.
func skip(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Template,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.A, atom.Button, atom.Form:
		return true
	}
	for _, class := range classes(n) {
		if dropClasses[class] || adClassPattern.MatchString(class) {
			return true
		}
	}
	return false
}

func classes(n *html.Node) []string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

func isBlock(n *html.Node) bool {
	// Common block elements. This is not exhaustive but covers BibleGateway structure.
	switch n.DataAtom {
	case atom.P, atom.Div, atom.Blockquote, atom.Ul, atom.Ol, atom.Li, atom.Table, atom.Tr, atom.Section:
		return true
	}
	return false
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeftFunc(s, unicode.IsSpace) != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRightFunc(s, unicode.IsSpace) != s
}
