package models

import (
	"slices"
	"strings"
)

// EntryFilter selects entries.
type EntryFilter func(e *Entry) bool

// FindEntries returns all entries below g accepted by filter. Entries in
// groups with searching disabled are skipped unless includeDisabled is set.
func (g *Group) FindEntries(filter EntryFilter, includeDisabled bool) []*Entry {
	var out []*Entry
	g.Traverse(nil, func(e *Entry) bool {
		if !includeDisabled && e.parent != nil && !e.parent.SearchingEnabled() {
			return true
		}
		if filter == nil || filter(e) {
			out = append(out, e)
		}
		return true
	})
	return out
}

// MatchText returns a case-insensitive substring filter over all string
// fields, protected ones included when searchProtected is true, and tags.
func MatchText(text string, searchProtected bool) EntryFilter {
	needle := strings.ToLower(text)
	return func(e *Entry) bool {
		if needle == "" {
			return true
		}
		for _, v := range e.Strings {
			if v.IsProtected() && !searchProtected {
				continue
			}
			if strings.Contains(strings.ToLower(v.String()), needle) {
				return true
			}
		}
		for _, t := range e.Tags {
			if strings.Contains(strings.ToLower(t), needle) {
				return true
			}
		}
		return false
	}
}

// HasTag returns a filter for entries carrying tag, case-insensitive.
func HasTag(tag string) EntryFilter {
	return func(e *Entry) bool {
		return slices.ContainsFunc(e.Tags, func(t string) bool {
			return strings.EqualFold(t, tag)
		})
	}
}

// AllTags returns the sorted, de-duplicated set of tags used below g.
func (g *Group) AllTags() []string {
	set := make(map[string]struct{})
	g.Traverse(func(sub *Group) bool {
		for _, t := range sub.Tags {
			set[t] = struct{}{}
		}
		return true
	}, func(e *Entry) bool {
		for _, t := range e.Tags {
			set[t] = struct{}{}
		}
		return true
	})
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
