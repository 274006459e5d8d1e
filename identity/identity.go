// Package identity extracts the strings an item can be recognised by:
// displayed names, link targets, titles, accessible labels and metadata text.
//
// Two strategies exist. Feed items have a stable structure, so Feed only looks
// at channel-style links. Suggestion items vary across layout versions, so
// Suggestion collects from titles, metadata and every link it can find.
package identity

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/hazyhaar/feedhider/dom"
)

// Set is an ordered, de-duplicated list of normalised identity strings.
type Set []string

// Extractor produces the identity set of one item.
type Extractor interface {
	Extract(item dom.Node) Set
}

// Normalize folds case and trims surrounding whitespace.
func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// builder accumulates a Set, dropping empty and repeated strings.
type builder struct {
	seen map[string]struct{}
	out  Set
}

func (b *builder) add(s string) {
	s = Normalize(s)
	if s == "" {
		return
	}
	if b.seen == nil {
		b.seen = make(map[string]struct{})
	}
	if _, ok := b.seen[s]; ok {
		return
	}
	b.seen[s] = struct{}{}
	b.out = append(b.out, s)
}

func (b *builder) addAttr(n dom.Node, name string) {
	if v, ok := n.Attr(name); ok {
		b.add(v)
	}
}

// Feed extracts identities from feed cards: text and target of every link
// whose href starts with one of PathPrefixes.
type Feed struct {
	LinkSelector string
	PathPrefixes []string
}

func (f Feed) Extract(item dom.Node) Set {
	var b builder
	for _, link := range item.QueryAll(f.LinkSelector) {
		href, ok := link.Attr("href")
		if !ok || !hasAnyPrefix(href, f.PathPrefixes) {
			continue
		}
		b.add(link.Text())
		b.add(href)
	}
	return b.out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Suggestion extracts identities from sidebar suggestions. Every link target
// counts, whatever its path.
type Suggestion struct {
	TitleSelector    string
	MetadataSelector string
	LinkSelector     string
}

func (s Suggestion) Extract(item dom.Node) Set {
	var b builder
	for _, t := range item.QueryAll(s.TitleSelector) {
		b.addAttr(t, "title")
		b.add(t.Text())
		b.addAttr(t, "aria-label")
	}
	for _, m := range item.QueryAll(s.MetadataSelector) {
		b.add(m.Text())
	}
	for _, l := range item.QueryAll(s.LinkSelector) {
		b.addAttr(l, "href")
	}
	return b.out
}
