package models

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/keys"
)

// Compression - алгоритм сжатия полезной нагрузки
type Compression uint32

const (
	// CompressionNone stores the payload uncompressed
	CompressionNone Compression = 0
	// CompressionGZip compresses the payload with gzip
	CompressionGZip Compression = 1
)

// RecycleBinName is the name of an automatically created recycle bin.
const RecycleBinName = "Recycle Bin"

// DeletedObject - запись об удаленном объекте (tombstone)
type DeletedObject struct {
	DeletionTime time.Time
	UUID         uuid.UUID
}

// Database is the in-memory tree plus the settings needed to write it.
type Database struct {
	Root           *Group
	Key            *keys.CompositeKey
	DeletedObjects []DeletedObject
	Meta           Meta
	KDF            crypto.KDFParameters
	CipherID       uuid.UUID
	Compression    Compression
	InnerStream    crypto.StreamID
	Modified       bool
}

// NewDatabase creates an empty database whose root group has the given name.
func NewDatabase(rootName string, key *keys.CompositeKey) *Database {
	return &Database{
		Root:        NewGroup(rootName),
		Key:         key,
		Meta:        NewMeta(),
		KDF:         crypto.DefaultKDFParameters(),
		CipherID:    crypto.AESCipherUUID,
		Compression: CompressionGZip,
		InnerStream: crypto.StreamSalsa20,
	}
}

// CloneDeep copies the tree, metadata and tombstones. The key is shared.
func (db *Database) CloneDeep() *Database {
	c := *db
	c.Root = db.Root.CloneDeep()
	c.DeletedObjects = slices.Clone(db.DeletedObjects)
	c.Meta = db.Meta.Clone()
	c.KDF.Seed = slices.Clone(db.KDF.Seed)
	return &c
}

// FindGroup looks up a group anywhere in the tree including the root.
func (db *Database) FindGroup(id uuid.UUID) *Group {
	if id == uuid.Nil {
		return nil
	}
	return db.Root.FindGroup(id, true)
}

// FindEntry looks up an entry anywhere in the tree.
func (db *Database) FindEntry(id uuid.UUID) *Entry {
	if id == uuid.Nil {
		return nil
	}
	return db.Root.FindEntry(id, true)
}

// AddDeletedObject records a tombstone. An existing tombstone for the same
// identifier keeps the later deletion time.
func (db *Database) AddDeletedObject(id uuid.UUID, at time.Time) {
	for i := range db.DeletedObjects {
		if db.DeletedObjects[i].UUID == id {
			if CompareTimes(at, db.DeletedObjects[i].DeletionTime) > 0 {
				db.DeletedObjects[i].DeletionTime = at
			}
			return
		}
	}
	db.DeletedObjects = append(db.DeletedObjects, DeletedObject{UUID: id, DeletionTime: at})
}

// RecycleBin returns the recycle bin group if it exists.
func (db *Database) RecycleBin() *Group {
	return db.FindGroup(db.Meta.RecycleBinUUID)
}

func (db *Database) ensureRecycleBin() *Group {
	if bin := db.RecycleBin(); bin != nil {
		return bin
	}
	bin := NewGroup(RecycleBinName)
	bin.IconID = IconRecycleBin
	bin.EnableAutoType = Disabled
	bin.EnableSearching = Disabled
	bin.IsExpanded = false
	db.Root.AddGroup(bin, true, true)

	db.Meta.RecycleBinUUID = bin.UUID
	db.Meta.RecycleBinChanged = Now()
	return bin
}

// InRecycleBin reports whether e lives in the recycle bin.
func (db *Database) InRecycleBin(e *Entry) bool {
	bin := db.RecycleBin()
	if bin == nil || e.parent == nil {
		return false
	}
	return e.parent == bin || e.parent.IsContainedIn(bin)
}

// DeleteEntry moves e to the recycle bin when it is enabled and e is not
// already there. Otherwise e is removed and a tombstone is recorded.
// Returns true if the entry was permanently deleted.
func (db *Database) DeleteEntry(e *Entry, at time.Time) (bool, error) {
	parent := e.parent
	if parent == nil {
		return false, ErrNotFound
	}

	if db.Meta.RecycleBinEnabled && !db.InRecycleBin(e) {
		bin := db.ensureRecycleBin()
		if err := e.MoveTo(bin); err != nil {
			return false, err
		}
		e.Touch(false, false)
		db.Modified = true
		return false, nil
	}

	parent.RemoveEntry(e)
	db.AddDeletedObject(e.UUID, at)
	db.Modified = true
	return true, nil
}

// DeleteGroup moves g to the recycle bin or removes it with all contents,
// recording tombstones for every removed object.
func (db *Database) DeleteGroup(g *Group, at time.Time) (bool, error) {
	parent := g.parent
	if parent == nil {
		return false, ErrRootGroup
	}

	bin := db.RecycleBin()
	inBin := bin != nil && (g == bin || g.IsContainedIn(bin))
	if db.Meta.RecycleBinEnabled && !inBin {
		bin = db.ensureRecycleBin()
		if err := g.MoveTo(bin); err != nil {
			return false, err
		}
		db.Modified = true
		return false, nil
	}

	g.Traverse(func(sub *Group) bool {
		db.AddDeletedObject(sub.UUID, at)
		return true
	}, func(e *Entry) bool {
		db.AddDeletedObject(e.UUID, at)
		return true
	})
	parent.RemoveGroup(g)
	db.AddDeletedObject(g.UUID, at)
	if g.UUID == db.Meta.RecycleBinUUID {
		db.Meta.RecycleBinUUID = uuid.Nil
		db.Meta.RecycleBinChanged = Now()
	}
	db.Modified = true
	return true, nil
}

// MaintainBackups trims the history of every entry to the configured
// limits. Returns true if anything was removed.
func (db *Database) MaintainBackups() bool {
	limits := db.Meta.HistoryLimits()
	deleted := false
	db.Root.Traverse(nil, func(e *Entry) bool {
		if e.MaintainBackups(limits) {
			deleted = true
		}
		return true
	})
	return deleted
}
