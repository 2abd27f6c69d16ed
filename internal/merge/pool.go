package merge

import (
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/models"
)

// poolItem is the pre-merge position of one object.
type poolItem struct {
	location time.Time
	uuid     uuid.UUID
	parent   uuid.UUID
	id       uint64
}

// pool snapshots the structure of a tree before any mutation. Objects get
// sequential ids in pre-order: a group, its entries, then its subgroups.
type pool struct {
	byUUID map[uuid.UUID]*poolItem
	byID   []*poolItem
}

func newPool(root *models.Group) *pool {
	p := &pool{byUUID: make(map[uuid.UUID]*poolItem)}
	p.addGroup(root)
	return p
}

func (p *pool) add(id, parent uuid.UUID, location time.Time) {
	it := &poolItem{
		uuid:     id,
		parent:   parent,
		location: location,
		id:       uint64(len(p.byID) + 1),
	}
	p.byID = append(p.byID, it)
	p.byUUID[id] = it
}

func (p *pool) addGroup(g *models.Group) {
	var parent uuid.UUID
	if g.Parent() != nil {
		parent = g.Parent().UUID
	}
	p.add(g.UUID, parent, g.Times.LocationChanged)

	for _, e := range g.Entries() {
		p.add(e.UUID, g.UUID, e.Times.LocationChanged)
	}
	for _, sub := range g.Groups() {
		p.addGroup(sub)
	}
}

func (p *pool) get(id uuid.UUID) *poolItem {
	return p.byUUID[id]
}

// idOf returns the pre-order id of an object, 0 when absent.
func (p *pool) idOf(id uuid.UUID) uint64 {
	if it := p.byUUID[id]; it != nil {
		return it.id
	}
	return 0
}

func (p *pool) byIndex(id uint64) *poolItem {
	if id == 0 || id > uint64(len(p.byID)) {
		return nil
	}
	return p.byID[id-1]
}

// bestPool returns the snapshot with the newer location changed time of id.
// Ties go to the local snapshot.
func bestPool(id uuid.UUID, org, src *pool) (*pool, time.Time) {
	var best *pool
	var at time.Time

	if it := org.get(id); it != nil {
		best, at = org, it.location
	}
	if it := src.get(id); it != nil && (best == nil || models.CompareTimes(it.location, at) > 0) {
		best, at = src, it.location
	}
	return best, at
}
