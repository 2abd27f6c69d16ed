package merge

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/status"
)

// relocateGroups moves every group whose parent differs between the
// snapshots to the parent of the side that moved it last.
func (m *merger) relocateGroups(org, src *pool) {
	for _, g := range m.local.Root.AllGroups() {
		dst := m.relocationTarget(g.UUID, org, src)
		if dst == nil || dst == g.Parent() {
			continue
		}
		if !g.CanMoveTo(dst) {
			m.log.Debug("group relocation skipped, would create a cycle", "uuid", g.UUID)
			continue
		}
		g.Parent().RemoveGroup(g)
		dst.AddGroup(g, true, false)
		m.res.Relocated++
	}
}

func (m *merger) relocateEntries(org, src *pool) {
	for _, e := range m.local.Root.AllEntries() {
		dst := m.relocationTarget(e.UUID, org, src)
		if dst == nil || dst == e.Parent() {
			continue
		}
		e.Parent().RemoveEntry(e)
		dst.AddEntry(e, true, false)
		m.res.Relocated++
	}
}

// relocationTarget returns the local group an object has to move to, nil
// when it stays.
func (m *merger) relocationTarget(id uuid.UUID, org, src *pool) *models.Group {
	po, ps := org.get(id), src.get(id)
	if po == nil || ps == nil || po.parent == ps.parent {
		return nil
	}
	if models.CompareTimes(ps.location, po.location) <= 0 {
		return nil
	}
	return m.groups[ps.parent]
}

func (m *merger) reorder(g *models.Group, org, src *pool) error {
	if !m.st.ContinueWork() {
		return status.ErrCancelled
	}

	if order, ok := reorderList(g.Groups(), groupUUID, org, src); ok {
		g.SetGroupOrder(order)
		m.res.Reordered++
	}
	if order, ok := reorderList(g.Entries(), entryUUID, org, src); ok {
		g.SetEntryOrder(order)
		m.res.Reordered++
	}

	for _, sub := range g.Groups() {
		if err := m.reorder(sub, org, src); err != nil {
			return err
		}
	}
	return nil
}

func groupUUID(g *models.Group) uuid.UUID { return g.UUID }
func entryUUID(e *models.Entry) uuid.UUID { return e.UUID }

// block - последовательность соседей, идущих подряд в обоих снимках.
// Блок переставляется целиком.
type block[T any] struct {
	items    []T
	location time.Time
	pool     *pool
}

func (b *block[T]) add(item T, at time.Time, p *pool) {
	b.items = append(b.items, item)
	if b.pool == nil || models.CompareTimes(at, b.location) > 0 {
		b.location = at
		b.pool = p
	}
}

// requiresReorder is false when the list already follows the order of
// both snapshots, in which case reordering would be a no-op.
func requiresReorder[T any](items []T, uuidOf func(T) uuid.UUID, org, src *pool) bool {
	return !ascending(items, uuidOf, org) || !ascending(items, uuidOf, src)
}

func ascending[T any](items []T, uuidOf func(T) uuid.UUID, p *pool) bool {
	var last uint64
	for _, it := range items {
		id := p.idOf(uuidOf(it))
		if id == 0 {
			continue
		}
		if id < last {
			return false
		}
		last = id
	}
	return true
}

// reorderList sorts siblings by the side that changed each position last.
// The block with the newest location changed time is the pivot, its
// snapshot decides which blocks go before and after it, then both halves
// are processed the same way.
func reorderList[T any](items []T, uuidOf func(T) uuid.UUID, org, src *pool) ([]T, bool) {
	if len(items) < 2 || !requiresReorder(items, uuidOf, org, src) {
		return nil, false
	}
	blocks := partition(items, uuidOf, org, src)
	if len(blocks) <= 1 {
		return nil, false
	}

	type span struct{ lo, hi int }
	queue := []span{{0, len(blocks) - 1}}
	for len(queue) > 0 {
		sp := queue[0]
		queue = queue[1:]
		if sp.lo >= sp.hi {
			continue
		}

		ip := pivotIndex(blocks, sp.lo, sp.hi)
		pivot := blocks[ip]
		if pivot.pool == nil {
			continue
		}
		idPivot := pivot.pool.idOf(uuidOf(pivot.items[0]))
		if idPivot == 0 {
			continue
		}

		var before, after []*block[T]
		isBefore := true
		for i := sp.lo; i <= sp.hi; i++ {
			if i == ip {
				isBefore = false
				continue
			}
			b := blocks[i]
			if id := pivot.pool.idOf(uuidOf(b.items[0])); id != 0 {
				if id < idPivot {
					before = append(before, b)
				} else {
					after = append(after, b)
				}
				continue
			}
			// Объект неизвестен снимку опорного блока: остается на своей стороне
			if isBefore {
				before = append(before, b)
			} else {
				after = append(after, b)
			}
		}

		j := sp.lo
		for _, b := range before {
			blocks[j] = b
			j++
		}
		newPivot := j
		blocks[j] = pivot
		j++
		for _, b := range after {
			blocks[j] = b
			j++
		}

		if newPivot-1 > sp.lo {
			queue = append(queue, span{sp.lo, newPivot - 1})
		}
		if newPivot+1 < sp.hi {
			queue = append(queue, span{newPivot + 1, sp.hi})
		}
	}

	out := make([]T, 0, len(items))
	for _, b := range blocks {
		out = append(out, b.items...)
	}
	changed := !slices.EqualFunc(out, items, func(a, b T) bool {
		return uuidOf(a) == uuidOf(b)
	})
	return out, changed
}

// partition groups siblings into blocks that are consecutive in both
// snapshots. Objects missing from either snapshot form their own block.
func partition[T any](items []T, uuidOf func(T) uuid.UUID, org, src *pool) []*block[T] {
	siblings := make(map[uuid.UUID]struct{}, len(items))
	for _, it := range items {
		siblings[uuidOf(it)] = struct{}{}
	}

	var blocks []*block[T]
	for u := 0; u < len(items); u++ {
		id := uuidOf(items[u])
		b := &block[T]{}
		p, at := bestPool(id, org, src)
		b.add(items[u], at, p)
		blocks = append(blocks, b)

		idOrg, idSrc := org.idOf(id), src.idOf(id)
		if idOrg == 0 || idSrc == 0 {
			continue
		}

		for x := u + 1; x < len(items); x++ {
			next := uuidOf(items[x])
			nextOrg := nextSibling(org, idOrg, next, siblings)
			if nextOrg == 0 {
				break
			}
			nextSrc := nextSibling(src, idSrc, next, siblings)
			if nextSrc == 0 {
				break
			}

			p, at := bestPool(next, org, src)
			b.add(items[x], at, p)
			u++
			idOrg, idSrc = nextOrg, nextSrc
		}
	}
	return blocks
}

// nextSibling scans the snapshot forward from id for want and gives up at
// the first other sibling.
func nextSibling(p *pool, id uint64, want uuid.UUID, siblings map[uuid.UUID]struct{}) uint64 {
	for next := id + 1; ; next++ {
		it := p.byIndex(next)
		if it == nil {
			return 0
		}
		if it.uuid == want {
			return next
		}
		if _, ok := siblings[it.uuid]; ok {
			return 0
		}
	}
}

func pivotIndex[T any](blocks []*block[T], lo, hi int) int {
	best := lo
	for i := lo + 1; i <= hi; i++ {
		if models.CompareTimes(blocks[i].location, blocks[best].location) > 0 {
			best = i
		}
	}
	return best
}

// mergeLocationChanged sets every location changed time to the newer of
// the two snapshots.
func (m *merger) mergeLocationChanged(org, src *pool) {
	update := func(id uuid.UUID, t *models.Times) {
		p, at := bestPool(id, org, src)
		if p != nil && !at.Equal(t.LocationChanged) {
			t.LocationChanged = at
		}
	}

	root := m.local.Root
	update(root.UUID, &root.Times)
	root.Traverse(func(g *models.Group) bool {
		update(g.UUID, &g.Times)
		return true
	}, func(e *models.Entry) bool {
		update(e.UUID, &e.Times)
		return true
	})
}

// applyDeletions unions the tombstones and removes every object modified
// before its deletion. Groups are removed only when empty. Tombstones of
// surviving objects are dropped.
func (m *merger) applyDeletions() error {
	set := NewTombstoneSet(m.local.DeletedObjects)
	set.Merge(m.src.DeletedObjects)

	if err := m.deleteIn(m.local.Root, set); err != nil {
		return err
	}
	m.local.DeletedObjects = set.Objects()
	return nil
}

// deleteIn обходит дерево в обратном порядке (post-order), чтобы группа,
// опустевшая после удаления детей, удалялась в том же проходе.
func (m *merger) deleteIn(g *models.Group, set *TombstoneSet) error {
	for _, sub := range g.Groups() {
		if err := m.deleteIn(sub, set); err != nil {
			return err
		}
	}

	groups := slices.Clone(g.Groups())
	for i := len(groups) - 1; i >= 0; i-- {
		if !m.st.ContinueWork() {
			return status.ErrCancelled
		}
		sub := groups[i]
		at, ok := set.Get(sub.UUID)
		if !ok {
			continue
		}
		empty := len(sub.Groups()) == 0 && len(sub.Entries()) == 0
		if models.CompareTimes(sub.Times.LastModification, at) < 0 && empty {
			g.RemoveGroup(sub)
			delete(m.groups, sub.UUID)
			m.res.Deleted++
		} else {
			set.Remove(sub.UUID)
		}
	}

	entries := slices.Clone(g.Entries())
	for i := len(entries) - 1; i >= 0; i-- {
		if !m.st.ContinueWork() {
			return status.ErrCancelled
		}
		e := entries[i]
		at, ok := set.Get(e.UUID)
		if !ok {
			continue
		}
		if models.CompareTimes(e.Times.LastModification, at) < 0 {
			g.RemoveEntry(e)
			delete(m.entries, e.UUID)
			m.res.Deleted++
		} else {
			set.Remove(e.UUID)
		}
	}
	return nil
}
