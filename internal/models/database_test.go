package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/protect"
)

func TestNewDatabase(t *testing.T) {
	db := NewDatabase("Root", nil)

	assert.Equal(t, "Root", db.Root.Name)
	assert.Equal(t, crypto.AESCipherUUID, db.CipherID)
	assert.Equal(t, CompressionGZip, db.Compression)
	assert.Equal(t, crypto.DefaultTransformRounds, db.KDF.Rounds)
	assert.Equal(t, crypto.StreamSalsa20, db.InnerStream)
	assert.True(t, db.Meta.MemoryProtection.ProtectPassword)
	assert.False(t, db.Meta.MemoryProtection.ProtectTitle)
	assert.Equal(t, int32(DefaultHistoryMaxItems), db.Meta.HistoryMaxItems)
}

func TestDeleteEntry_RecycleBin(t *testing.T) {
	db := NewDatabase("Root", nil)
	e := NewEntry()
	db.Root.AddEntry(e, true, false)
	now := Now()

	// Первое удаление - в корзину
	permanent, err := db.DeleteEntry(e, now)
	require.NoError(t, err)
	assert.False(t, permanent)

	bin := db.RecycleBin()
	require.NotNil(t, bin)
	assert.Equal(t, RecycleBinName, bin.Name)
	assert.Same(t, bin, e.Parent())
	assert.Equal(t, Disabled, bin.EnableSearching)
	assert.True(t, db.InRecycleBin(e))
	assert.Empty(t, db.DeletedObjects)

	// Второе удаление - окончательное
	permanent, err = db.DeleteEntry(e, now)
	require.NoError(t, err)
	assert.True(t, permanent)
	assert.Nil(t, db.FindEntry(e.UUID))
	require.Len(t, db.DeletedObjects, 1)
	assert.Equal(t, e.UUID, db.DeletedObjects[0].UUID)

	_, err = db.DeleteEntry(e, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEntry_NoRecycleBin(t *testing.T) {
	db := NewDatabase("Root", nil)
	db.Meta.RecycleBinEnabled = false
	e := NewEntry()
	db.Root.AddEntry(e, true, false)

	permanent, err := db.DeleteEntry(e, Now())
	require.NoError(t, err)
	assert.True(t, permanent)
	assert.Nil(t, db.RecycleBin())
	assert.Len(t, db.DeletedObjects, 1)
}

func TestDeleteGroup(t *testing.T) {
	db := NewDatabase("Root", nil)
	db.Meta.RecycleBinEnabled = false

	g := NewGroup("g")
	sub := NewGroup("sub")
	e := NewEntry()
	db.Root.AddGroup(g, true, false)
	g.AddGroup(sub, true, false)
	sub.AddEntry(e, true, false)

	permanent, err := db.DeleteGroup(g, Now())
	require.NoError(t, err)
	assert.True(t, permanent)

	ids := make(map[uuid.UUID]bool)
	for _, d := range db.DeletedObjects {
		ids[d.UUID] = true
	}
	assert.True(t, ids[g.UUID])
	assert.True(t, ids[sub.UUID])
	assert.True(t, ids[e.UUID])

	_, err = db.DeleteGroup(db.Root, Now())
	assert.ErrorIs(t, err, ErrRootGroup)
}

func TestDeleteGroup_ToRecycleBin(t *testing.T) {
	db := NewDatabase("Root", nil)
	g := NewGroup("g")
	db.Root.AddGroup(g, true, false)

	permanent, err := db.DeleteGroup(g, Now())
	require.NoError(t, err)
	assert.False(t, permanent)
	assert.Same(t, db.RecycleBin(), g.Parent())

	// Удаление самой корзины сбрасывает ссылку
	bin := db.RecycleBin()
	permanent, err = db.DeleteGroup(bin, Now())
	require.NoError(t, err)
	assert.True(t, permanent)
	assert.Equal(t, uuid.Nil, db.Meta.RecycleBinUUID)
}

func TestAddDeletedObject_KeepsLater(t *testing.T) {
	db := NewDatabase("Root", nil)
	id := NewUUID()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	db.AddDeletedObject(id, t2)
	db.AddDeletedObject(id, t1)
	require.Len(t, db.DeletedObjects, 1)
	assert.Equal(t, t2, db.DeletedObjects[0].DeletionTime)

	db.AddDeletedObject(id, t2.Add(time.Hour))
	assert.Equal(t, t2.Add(time.Hour), db.DeletedObjects[0].DeletionTime)
}

func TestDuplicateUUIDs(t *testing.T) {
	db := NewDatabase("Root", nil)
	a := NewEntry()
	b := NewEntry()
	b.UUID = a.UUID
	b.CreateBackup(nil)
	g := NewGroup("g")
	g.UUID = db.Root.UUID

	db.Root.AddEntry(a, true, false)
	db.Root.AddGroup(g, true, false)
	g.AddEntry(b, true, false)

	assert.True(t, db.HasDuplicateUUIDs())

	fixed := db.FixDuplicateUUIDs()
	assert.Equal(t, 2, fixed)
	assert.False(t, db.HasDuplicateUUIDs())
	assert.NotEqual(t, a.UUID, b.UUID)
	assert.Equal(t, b.UUID, b.History[0].UUID)
	assert.NotEqual(t, db.Root.UUID, g.UUID)
	assert.True(t, db.Modified)

	assert.Zero(t, db.FixDuplicateUUIDs())
}

func TestDatabaseCloneDeep(t *testing.T) {
	db := NewDatabase("Root", nil)
	db.Meta.CustomIcons = append(db.Meta.CustomIcons, &CustomIcon{UUID: NewUUID(), Data: []byte{1}})
	db.AddDeletedObject(NewUUID(), Now())
	e := NewEntry()
	db.Root.AddEntry(e, true, false)

	c := db.CloneDeep()
	c.Meta.CustomIcons[0].Data[0] = 9
	c.DeletedObjects[0].UUID = uuid.Nil
	c.Root.Entries()[0].SetString(FieldTitle, "x", false)

	assert.Equal(t, byte(1), db.Meta.CustomIcons[0].Data[0])
	assert.NotEqual(t, uuid.Nil, db.DeletedObjects[0].UUID)
	assert.Equal(t, "", e.Title())
}

func TestDatabaseMaintainBackups(t *testing.T) {
	db := NewDatabase("Root", nil)
	db.Meta.HistoryMaxItems = 1
	e := NewEntry()
	db.Root.AddEntry(e, true, false)
	e.CreateBackup(nil)
	e.CreateBackup(nil)

	assert.True(t, db.MaintainBackups())
	assert.Len(t, e.History, 1)
	assert.False(t, db.MaintainBackups())
}

func TestFindEntries(t *testing.T) {
	root := NewGroup("Root")
	hidden := NewGroup("hidden")
	hidden.EnableSearching = Disabled
	root.AddGroup(hidden, true, false)

	mail := NewEntry()
	mail.SetString(FieldTitle, "Mail Account", false)
	mail.SetString(FieldPassword, "topsecret", true)
	mail.AddTag("Work")
	root.AddEntry(mail, true, false)

	bank := NewEntry()
	bank.SetString(FieldTitle, "Bank", false)
	bank.AddTag("finance")
	hidden.AddEntry(bank, true, false)

	assert.Equal(t, []*Entry{mail}, root.FindEntries(MatchText("mail", false), false))
	assert.Empty(t, root.FindEntries(MatchText("topsecret", false), false))
	assert.Equal(t, []*Entry{mail}, root.FindEntries(MatchText("TOPSECRET", true), false))
	assert.Equal(t, []*Entry{mail}, root.FindEntries(HasTag("work"), false))
	assert.Empty(t, root.FindEntries(MatchText("bank", false), false))
	assert.Equal(t, []*Entry{bank}, root.FindEntries(MatchText("bank", false), true))
	assert.Len(t, root.FindEntries(nil, true), 2)

	assert.Equal(t, []string{"Work", "finance"}, root.AllTags())
}

func TestStringsEqual(t *testing.T) {
	a := Strings{FieldTitle: protect.NewString(false, "x")}
	b := Strings{FieldTitle: protect.NewString(true, "x"), FieldURL: protect.Empty}

	assert.False(t, a.Equal(b, CompareNone))
	assert.True(t, a.Equal(b, CompareNullEmptyEquivStd))
	assert.True(t, b.Equal(a, CompareNullEmptyEquivStd))

	b["Custom"] = protect.Empty
	assert.False(t, a.Equal(b, CompareNullEmptyEquivStd))
	assert.Equal(t, []string{"Custom", FieldTitle, FieldURL}, b.Keys())
}

func TestMemoryProtection(t *testing.T) {
	mp := MemoryProtection{ProtectURL: true}
	assert.True(t, mp.IsProtected(FieldURL))
	assert.False(t, mp.IsProtected(FieldPassword))
	assert.False(t, mp.IsProtected("Custom"))
}

func TestUUIDCodec(t *testing.T) {
	id := NewUUID()
	got, ok := DecodeUUID(EncodeUUID(id))
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = DecodeUUID("not base64!")
	assert.False(t, ok)
	_, ok = DecodeUUID("AAAA")
	assert.False(t, ok)
	assert.Equal(t, -1, CompareUUID(uuid.Nil, id))
}
