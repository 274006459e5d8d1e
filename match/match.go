// Package match decides whether an item belongs to a blocked channel.
//
// The policy is case-insensitive substring containment: an item matches when
// any of its identity strings contains any blocked name. "Fox" therefore
// matches "Foxtrot Media"; that recall-over-precision trade is intended.
package match

import (
	"strings"

	"github.com/hazyhaar/feedhider/blocklist"
	"github.com/hazyhaar/feedhider/identity"
)

type needle struct {
	folded string
	name   string
}

// Needles is a blocklist prepared for matching. Build it once per pass.
type Needles struct {
	list []needle
}

// Compile folds every blocked name. Names that normalise to the empty
// string are dropped, since they would match everything.
func Compile(list blocklist.List) Needles {
	n := Needles{list: make([]needle, 0, len(list))}
	for _, e := range list {
		f := identity.Normalize(e.Name)
		if f == "" {
			continue
		}
		n.list = append(n.list, needle{folded: f, name: e.Name})
	}
	return n
}

// Empty reports whether nothing can match.
func (n Needles) Empty() bool { return len(n.list) == 0 }

// Len is the number of usable names.
func (n Needles) Len() int { return len(n.list) }

// Match returns the first blocked name (as entered) contained in any
// identity string.
func (n Needles) Match(ids identity.Set) (string, bool) {
	for _, id := range ids {
		for _, nd := range n.list {
			if strings.Contains(id, nd.folded) {
				return nd.name, true
			}
		}
	}
	return "", false
}

// ShouldHide reports whether an item with identities ids must be hidden.
// An empty list never hides anything.
func ShouldHide(ids identity.Set, list blocklist.List) bool {
	if len(list) == 0 {
		return false
	}
	_, ok := Compile(list).Match(ids)
	return ok
}
