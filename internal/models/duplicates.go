package models

import "github.com/google/uuid"

// HasDuplicateUUIDs reports whether two live objects share an identifier.
// This is a full tree walk.
func (db *Database) HasDuplicateUUIDs() bool {
	seen := map[uuid.UUID]struct{}{db.Root.UUID: {}}
	dup := false
	visit := func(id uuid.UUID) bool {
		if _, ok := seen[id]; ok {
			dup = true
			return false
		}
		seen[id] = struct{}{}
		return true
	}
	db.Root.Traverse(func(g *Group) bool {
		return visit(g.UUID)
	}, func(e *Entry) bool {
		return visit(e.UUID)
	})
	return dup
}

// FixDuplicateUUIDs assigns fresh identifiers to every object whose
// identifier was already seen earlier in pre-order. History items follow
// their entry. Returns the number of reassigned objects.
func (db *Database) FixDuplicateUUIDs() int {
	seen := map[uuid.UUID]struct{}{db.Root.UUID: {}}
	fixed := 0

	fresh := func() uuid.UUID {
		for {
			id := NewUUID()
			if _, ok := seen[id]; !ok {
				return id
			}
		}
	}

	db.Root.Traverse(func(g *Group) bool {
		if _, ok := seen[g.UUID]; ok {
			g.UUID = fresh()
			fixed++
		}
		seen[g.UUID] = struct{}{}
		return true
	}, func(e *Entry) bool {
		if _, ok := seen[e.UUID]; ok {
			e.UUID = fresh()
			for _, h := range e.History {
				h.UUID = e.UUID
			}
			fixed++
		}
		seen[e.UUID] = struct{}{}
		return true
	})

	if fixed > 0 {
		db.Modified = true
	}
	return fixed
}
