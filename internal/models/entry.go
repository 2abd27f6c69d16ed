package models

import (
	"slices"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/protect"
)

// Entry - запись базы: набор защищенных строк, вложения, настройки
// автоввода и история предыдущих версий.
type Entry struct {
	parent *Group

	Strings  Strings
	Binaries Binaries
	History  []*Entry
	Tags     []string

	ForegroundColor string
	BackgroundColor string
	OverrideURL     string

	AutoType AutoType
	Times    Times

	IconID         int
	UUID           uuid.UUID
	CustomIconUUID uuid.UUID
}

// NewEntry creates an entry with a fresh identifier and current timestamps.
func NewEntry() *Entry {
	return &Entry{
		UUID:     NewUUID(),
		Strings:  make(Strings),
		Binaries: make(Binaries),
		AutoType: NewAutoType(),
		Times:    NewTimes(),
	}
}

// Parent returns the owning group, nil for detached entries and history items.
func (e *Entry) Parent() *Group {
	return e.parent
}

// Title returns the plaintext title.
func (e *Entry) Title() string {
	return e.Strings.Value(FieldTitle)
}

// SetString stores a field value with the given protection.
func (e *Entry) SetString(name, value string, protected bool) {
	e.Strings.Set(name, protect.NewString(protected, value))
}

// Touch обновляет время доступа и, при modified, время изменения.
// touchParents распространяет изменение на родительские группы.
func (e *Entry) Touch(modified, touchParents bool) {
	now := Now()
	e.Times.LastAccess = now
	e.Times.UsageCount++
	if modified {
		e.Times.LastModification = now
	}
	if touchParents && e.parent != nil {
		e.parent.Touch(modified, true)
	}
}

// Clone returns a deep copy. Protected values are immutable and shared.
// The clone is detached from any parent.
func (e *Entry) Clone(withHistory bool) *Entry {
	c := &Entry{
		UUID:            e.UUID,
		Strings:         e.Strings.Clone(),
		Binaries:        e.Binaries.Clone(),
		Tags:            slices.Clone(e.Tags),
		ForegroundColor: e.ForegroundColor,
		BackgroundColor: e.BackgroundColor,
		OverrideURL:     e.OverrideURL,
		AutoType:        e.AutoType.Clone(),
		Times:           e.Times,
		IconID:          e.IconID,
		CustomIconUUID:  e.CustomIconUUID,
	}
	if withHistory {
		c.History = make([]*Entry, 0, len(e.History))
		for _, h := range e.History {
			c.History = append(c.History, h.Clone(false))
		}
	}
	return c
}

// Duplicate is a deep copy under a new identifier.
func (e *Entry) Duplicate() *Entry {
	c := e.Clone(true)
	c.UUID = NewUUID()
	for _, h := range c.History {
		h.UUID = c.UUID
	}
	return c
}

// AssignProperties copies all data fields of src into e. The identifier
// and the parent are kept. With onlyIfNewer nothing happens unless src was
// modified later than e.
func (e *Entry) AssignProperties(src *Entry, onlyIfNewer, includeHistory, assignLocationChanged bool) {
	if src == nil || src == e {
		return
	}
	if onlyIfNewer && CompareTimes(src.Times.LastModification, e.Times.LastModification) <= 0 {
		return
	}

	locationChanged := e.Times.LocationChanged

	e.Strings = src.Strings.Clone()
	e.Binaries = src.Binaries.Clone()
	e.AutoType = src.AutoType.Clone()
	e.Tags = slices.Clone(src.Tags)
	e.ForegroundColor = src.ForegroundColor
	e.BackgroundColor = src.BackgroundColor
	e.OverrideURL = src.OverrideURL
	e.IconID = src.IconID
	e.CustomIconUUID = src.CustomIconUUID
	e.Times = src.Times

	if !assignLocationChanged {
		e.Times.LocationChanged = locationChanged
	}

	if includeHistory {
		e.History = make([]*Entry, 0, len(src.History))
		for _, h := range src.History {
			c := h.Clone(false)
			c.UUID = e.UUID
			e.History = append(e.History, c)
		}
	}
}

// Equal compares two entries according to opts.
func (e *Entry) Equal(o *Entry, opts CompareOptions) bool {
	if e == o {
		return true
	}
	if e == nil || o == nil {
		return false
	}
	if e.UUID != o.UUID {
		return false
	}

	if opts&CompareIgnoreParentGroup == 0 {
		if parentUUID(e.parent) != parentUUID(o.parent) {
			return false
		}
		if opts&CompareIgnoreLastMod == 0 && CompareTimes(e.Times.LocationChanged, o.Times.LocationChanged) != 0 {
			return false
		}
	}

	if !e.Strings.Equal(o.Strings, opts) || !e.Binaries.Equal(o.Binaries) {
		return false
	}
	if !e.AutoType.Equal(o.AutoType) {
		return false
	}

	if opts&CompareIgnoreHistory == 0 {
		a, b := e.History, o.History
		if opts&CompareIgnoreLastBackup != 0 {
			if len(a) > 0 {
				a = a[:len(a)-1]
			}
			if len(b) > 0 {
				b = b[:len(b)-1]
			}
		}
		if len(a) != len(b) {
			return false
		}
		hopts := opts | CompareIgnoreParentGroup | CompareIgnoreHistory
		hopts &^= CompareIgnoreLastBackup
		for i := range a {
			if !a[i].Equal(b[i], hopts) {
				return false
			}
		}
	}

	if e.IconID != o.IconID || e.CustomIconUUID != o.CustomIconUUID {
		return false
	}
	if e.ForegroundColor != o.ForegroundColor || e.BackgroundColor != o.BackgroundColor ||
		e.OverrideURL != o.OverrideURL {
		return false
	}
	if !e.Times.equal(o.Times, opts) {
		return false
	}
	return slices.Equal(e.Tags, o.Tags)
}

// Size returns an approximation of the memory used by the entry and its
// history, used by history size limits.
func (e *Entry) Size() int64 {
	size := int64(128)
	for name, v := range e.Strings {
		size += int64(len(name) + v.Len())
	}
	for name, v := range e.Binaries {
		size += int64(len(name) + v.Len())
	}
	size += int64(len(e.AutoType.DefaultSequence))
	for _, a := range e.AutoType.Associations {
		size += int64(len(a.Window) + len(a.Sequence))
	}
	size += int64(len(e.ForegroundColor) + len(e.BackgroundColor) + len(e.OverrideURL))
	for _, t := range e.Tags {
		size += int64(len(t))
	}
	for _, h := range e.History {
		size += h.Size()
	}
	return size
}

// AddTag adds a tag unless present. Returns true if the tag was added.
func (e *Entry) AddTag(tag string) bool {
	if tag == "" || slices.Contains(e.Tags, tag) {
		return false
	}
	e.Tags = append(e.Tags, tag)
	return true
}

// RemoveTag removes a tag. Returns true if the tag was present.
func (e *Entry) RemoveTag(tag string) bool {
	i := slices.Index(e.Tags, tag)
	if i < 0 {
		return false
	}
	e.Tags = slices.Delete(e.Tags, i, i+1)
	return true
}

func parentUUID(g *Group) uuid.UUID {
	if g == nil {
		return uuid.Nil
	}
	return g.UUID
}
