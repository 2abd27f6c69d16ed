package models

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// GroupHandler is called for every group during traversal. Returning false
// stops the traversal.
type GroupHandler func(g *Group) bool

// EntryHandler is called for every entry during traversal. Returning false
// stops the traversal.
type EntryHandler func(e *Entry) bool

// Traverse walks the tree below g in pre-order: the entries of a group
// first, then each subgroup followed by its own contents. g itself is not
// visited. Either handler may be nil. Returns false if a handler stopped
// the walk.
func (g *Group) Traverse(gh GroupHandler, eh EntryHandler) bool {
	if eh != nil {
		for _, e := range g.entries {
			if !eh(e) {
				return false
			}
		}
	}
	for _, sub := range g.groups {
		if gh != nil && !gh(sub) {
			return false
		}
		if !sub.Traverse(gh, eh) {
			return false
		}
	}
	return true
}

// AllGroups returns every group below g in pre-order.
func (g *Group) AllGroups() []*Group {
	var out []*Group
	g.Traverse(func(sub *Group) bool {
		out = append(out, sub)
		return true
	}, nil)
	return out
}

// AllEntries returns every entry below g.
func (g *Group) AllEntries() []*Entry {
	var out []*Entry
	g.Traverse(nil, func(e *Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// FindGroup searches g and, when recursive, all its descendants.
func (g *Group) FindGroup(id uuid.UUID, recursive bool) *Group {
	if g.UUID == id {
		return g
	}
	if !recursive {
		for _, sub := range g.groups {
			if sub.UUID == id {
				return sub
			}
		}
		return nil
	}
	var found *Group
	g.Traverse(func(sub *Group) bool {
		if sub.UUID == id {
			found = sub
			return false
		}
		return true
	}, nil)
	return found
}

// FindEntry searches the entries of g and, when recursive, of all descendants.
func (g *Group) FindEntry(id uuid.UUID, recursive bool) *Entry {
	if !recursive {
		for _, e := range g.entries {
			if e.UUID == id {
				return e
			}
		}
		return nil
	}
	var found *Entry
	g.Traverse(nil, func(e *Entry) bool {
		if e.UUID == id {
			found = e
			return false
		}
		return true
	})
	return found
}

// CountObjects returns the number of groups and entries below g.
func (g *Group) CountObjects() (groups, entries int) {
	g.Traverse(func(*Group) bool {
		groups++
		return true
	}, func(*Entry) bool {
		entries++
		return true
	})
	return groups, entries
}

// Path returns the names from the root to g separated by sep.
func (g *Group) Path(sep string, includeRoot bool) string {
	var names []string
	for p := g; p != nil; p = p.parent {
		if p.parent == nil && !includeRoot {
			break
		}
		names = append(names, p.Name)
	}
	slices.Reverse(names)
	return strings.Join(names, sep)
}
