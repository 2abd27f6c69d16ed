package models

import (
	"slices"

	"github.com/google/uuid"
)

// Group - группа записей. Родитель владеет потомками, указатель parent
// только обратная ссылка.
type Group struct {
	parent  *Group
	groups  []*Group
	entries []*Entry

	Name                    string
	Notes                   string
	DefaultAutoTypeSequence string
	Tags                    []string

	Times Times

	IconID              int
	UUID                uuid.UUID
	CustomIconUUID      uuid.UUID
	LastTopVisibleEntry uuid.UUID

	EnableAutoType  Tristate
	EnableSearching Tristate
	IsExpanded      bool
}

// Стандартные иконки
const (
	IconFolder     = 48
	IconRecycleBin = 43
	IconKey        = 0
)

// NewGroup creates a group with a fresh identifier.
func NewGroup(name string) *Group {
	return &Group{
		UUID:       NewUUID(),
		Name:       name,
		IconID:     IconFolder,
		Times:      NewTimes(),
		IsExpanded: true,
	}
}

// Parent returns the parent group, nil for the root.
func (g *Group) Parent() *Group {
	return g.parent
}

// Groups returns the direct subgroups. The slice must not be modified.
func (g *Group) Groups() []*Group {
	return g.groups
}

// Entries returns the direct entries. The slice must not be modified.
func (g *Group) Entries() []*Entry {
	return g.entries
}

// Touch updates access and optionally modification time.
func (g *Group) Touch(modified, touchParents bool) {
	now := Now()
	g.Times.LastAccess = now
	g.Times.UsageCount++
	if modified {
		g.Times.LastModification = now
	}
	if touchParents && g.parent != nil {
		g.parent.Touch(modified, true)
	}
}

// AddGroup appends sub. With takeOwnership the parent pointer is set,
// with updateLocation the location changed time is set to now.
func (g *Group) AddGroup(sub *Group, takeOwnership, updateLocation bool) {
	g.InsertGroup(len(g.groups), sub, takeOwnership, updateLocation)
}

// InsertGroup inserts sub at index i, clamped to the valid range.
func (g *Group) InsertGroup(i int, sub *Group, takeOwnership, updateLocation bool) {
	i = max(0, min(i, len(g.groups)))
	g.groups = slices.Insert(g.groups, i, sub)
	if takeOwnership {
		sub.parent = g
	}
	if updateLocation {
		sub.Times.LocationChanged = Now()
	}
}

// AddEntry appends e.
func (g *Group) AddEntry(e *Entry, takeOwnership, updateLocation bool) {
	g.InsertEntry(len(g.entries), e, takeOwnership, updateLocation)
}

// InsertEntry inserts e at index i, clamped to the valid range.
func (g *Group) InsertEntry(i int, e *Entry, takeOwnership, updateLocation bool) {
	i = max(0, min(i, len(g.entries)))
	g.entries = slices.Insert(g.entries, i, e)
	if takeOwnership {
		e.parent = g
	}
	if updateLocation {
		e.Times.LocationChanged = Now()
	}
}

// RemoveGroup detaches a direct subgroup. Returns false if sub is not a child.
func (g *Group) RemoveGroup(sub *Group) bool {
	i := slices.Index(g.groups, sub)
	if i < 0 {
		return false
	}
	g.groups = slices.Delete(g.groups, i, i+1)
	if sub.parent == g {
		sub.parent = nil
	}
	return true
}

// RemoveEntry detaches a direct entry. Returns false if e is not a child.
func (g *Group) RemoveEntry(e *Entry) bool {
	i := slices.Index(g.entries, e)
	if i < 0 {
		return false
	}
	g.entries = slices.Delete(g.entries, i, i+1)
	if e.parent == g {
		e.parent = nil
	}
	return true
}

// IndexOfGroup returns the position of a direct subgroup or -1.
func (g *Group) IndexOfGroup(sub *Group) int {
	return slices.Index(g.groups, sub)
}

// IndexOfEntry returns the position of a direct entry or -1.
func (g *Group) IndexOfEntry(e *Entry) int {
	return slices.Index(g.entries, e)
}

// SetGroupOrder replaces the subgroup order. order must be a permutation of
// the current subgroups, otherwise false is returned and nothing changes.
func (g *Group) SetGroupOrder(order []*Group) bool {
	if !samePermutation(g.groups, order) {
		return false
	}
	g.groups = slices.Clone(order)
	return true
}

// SetEntryOrder replaces the entry order, see SetGroupOrder.
func (g *Group) SetEntryOrder(order []*Entry) bool {
	if !samePermutation(g.entries, order) {
		return false
	}
	g.entries = slices.Clone(order)
	return true
}

func samePermutation[T comparable](cur, next []T) bool {
	if len(cur) != len(next) {
		return false
	}
	seen := make(map[T]int, len(cur))
	for _, v := range cur {
		seen[v]++
	}
	for _, v := range next {
		if seen[v] == 0 {
			return false
		}
		seen[v]--
	}
	return true
}

// IsContainedIn reports whether ancestor is a strict ancestor of g.
func (g *Group) IsContainedIn(ancestor *Group) bool {
	for p := g.parent; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// CanMoveTo reports whether g can become a child of dst without a cycle.
func (g *Group) CanMoveTo(dst *Group) bool {
	return dst != nil && dst != g && !dst.IsContainedIn(g)
}

// MoveTo reparents g under dst and updates its location changed time.
func (g *Group) MoveTo(dst *Group) error {
	if g.parent == nil {
		return ErrRootGroup
	}
	if !g.CanMoveTo(dst) {
		return ErrCycle
	}
	g.parent.RemoveGroup(g)
	dst.AddGroup(g, true, true)
	return nil
}

// MoveTo reparents an entry and updates its location changed time.
func (e *Entry) MoveTo(dst *Group) error {
	if dst == nil {
		return ErrNotFound
	}
	if e.parent != nil {
		e.parent.RemoveEntry(e)
	}
	dst.AddEntry(e, true, true)
	return nil
}

// AssignProperties copies data fields of src into g. Children, identifier
// and parent are kept.
func (g *Group) AssignProperties(src *Group, onlyIfNewer, assignLocationChanged bool) {
	if src == nil || src == g {
		return
	}
	if onlyIfNewer && CompareTimes(src.Times.LastModification, g.Times.LastModification) <= 0 {
		return
	}

	locationChanged := g.Times.LocationChanged

	g.Name = src.Name
	g.Notes = src.Notes
	g.IconID = src.IconID
	g.CustomIconUUID = src.CustomIconUUID
	g.Times = src.Times
	g.IsExpanded = src.IsExpanded
	g.DefaultAutoTypeSequence = src.DefaultAutoTypeSequence
	g.EnableAutoType = src.EnableAutoType
	g.EnableSearching = src.EnableSearching
	g.LastTopVisibleEntry = src.LastTopVisibleEntry
	g.Tags = slices.Clone(src.Tags)

	if !assignLocationChanged {
		g.Times.LocationChanged = locationChanged
	}
}

// CloneDeep copies the group with all descendants. The copy has no parent.
func (g *Group) CloneDeep() *Group {
	c := g.cloneShallow()
	for _, sub := range g.groups {
		c.AddGroup(sub.CloneDeep(), true, false)
	}
	for _, e := range g.entries {
		c.AddEntry(e.Clone(true), true, false)
	}
	return c
}

func (g *Group) cloneShallow() *Group {
	return &Group{
		UUID:                    g.UUID,
		Name:                    g.Name,
		Notes:                   g.Notes,
		DefaultAutoTypeSequence: g.DefaultAutoTypeSequence,
		Tags:                    slices.Clone(g.Tags),
		Times:                   g.Times,
		IconID:                  g.IconID,
		CustomIconUUID:          g.CustomIconUUID,
		LastTopVisibleEntry:     g.LastTopVisibleEntry,
		EnableAutoType:          g.EnableAutoType,
		EnableSearching:         g.EnableSearching,
		IsExpanded:              g.IsExpanded,
	}
}

// Equal compares the group's own fields, children are not compared.
func (g *Group) Equal(o *Group, opts CompareOptions) bool {
	if g == o {
		return true
	}
	if g == nil || o == nil || g.UUID != o.UUID {
		return false
	}
	if opts&CompareIgnoreParentGroup == 0 {
		if parentUUID(g.parent) != parentUUID(o.parent) {
			return false
		}
		if opts&CompareIgnoreLastMod == 0 && CompareTimes(g.Times.LocationChanged, o.Times.LocationChanged) != 0 {
			return false
		}
	}
	return g.Name == o.Name &&
		g.Notes == o.Notes &&
		g.IconID == o.IconID &&
		g.CustomIconUUID == o.CustomIconUUID &&
		g.DefaultAutoTypeSequence == o.DefaultAutoTypeSequence &&
		g.EnableAutoType == o.EnableAutoType &&
		g.EnableSearching == o.EnableSearching &&
		g.LastTopVisibleEntry == o.LastTopVisibleEntry &&
		g.IsExpanded == o.IsExpanded &&
		slices.Equal(g.Tags, o.Tags) &&
		g.Times.equal(o.Times, opts)
}

// AutoTypeEnabled resolves the inherited auto-type setting.
func (g *Group) AutoTypeEnabled() bool {
	for p := g; p != nil; p = p.parent {
		switch p.EnableAutoType {
		case Enabled:
			return true
		case Disabled:
			return false
		}
	}
	return true
}

// SearchingEnabled resolves the inherited searching setting.
func (g *Group) SearchingEnabled() bool {
	for p := g; p != nil; p = p.parent {
		switch p.EnableSearching {
		case Enabled:
			return true
		case Disabled:
			return false
		}
	}
	return true
}
