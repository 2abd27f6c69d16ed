package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/status"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newEntry(title, password string, at time.Time) *models.Entry {
	e := models.NewEntry()
	e.SetString(models.FieldTitle, title, false)
	e.SetString(models.FieldPassword, password, true)
	setTimes(&e.Times, at)
	return e
}

func newGroup(name string, at time.Time) *models.Group {
	g := models.NewGroup(name)
	setTimes(&g.Times, at)
	return g
}

func setTimes(t *models.Times, at time.Time) {
	t.Creation = at
	t.LastModification = at
	t.LastAccess = at
	t.LocationChanged = at
}

func newDatabase() *models.Database {
	db := models.NewDatabase("Root", nil)
	setTimes(&db.Root.Times, t0)
	return db
}

func entryTitles(g *models.Group) []string {
	var out []string
	for _, e := range g.Entries() {
		out = append(out, e.Title())
	}
	return out
}

func TestMergeIn_Errors(t *testing.T) {
	db := newDatabase()

	_, err := MergeIn(nil, db, Synchronize, Options{})
	assert.ErrorIs(t, err, ErrNilDatabase)

	_, err = MergeIn(db, nil, Synchronize, Options{})
	assert.ErrorIs(t, err, ErrNilDatabase)

	_, err = MergeIn(db, db.CloneDeep(), Mode(42), Options{})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestMergeIn_SynchronizeIsIdempotent(t *testing.T) {
	local := newDatabase()
	work := newGroup("Work", t0)
	local.Root.AddGroup(work, true, false)
	for _, title := range []string{"a", "b", "c"} {
		work.AddEntry(newEntry(title, "pw-"+title, t0), true, false)
	}
	e := work.Entries()[0]
	e.CreateBackup(nil)
	e.SetString(models.FieldPassword, "changed", true)
	e.Times.LastModification = t0.Add(time.Minute)

	res, err := MergeIn(local, local.CloneDeep(), Synchronize, Options{})
	require.NoError(t, err)
	assert.False(t, res.Changed(), "%+v", res)
	assert.False(t, local.Modified)
	assert.Len(t, e.History, 1)
	assert.Equal(t, []string{"a", "b", "c"}, entryTitles(work))
}

func TestMergeIn_OverwriteIfNewer(t *testing.T) {
	tests := []struct {
		name      string
		localMod  time.Time
		sourceMod time.Time
		want      string
	}{
		{name: "source newer", localMod: t0, sourceMod: t0.Add(time.Hour), want: "source"},
		{name: "local newer", localMod: t0.Add(time.Hour), sourceMod: t0, want: "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := newDatabase()
			le := newEntry("Mail", "local", tt.localMod)
			local.Root.AddEntry(le, true, false)

			source := local.CloneDeep()
			se := source.FindEntry(le.UUID)
			se.SetString(models.FieldPassword, "source", true)
			se.Times.LastModification = tt.sourceMod

			_, err := MergeIn(local, source, OverwriteIfNewer, Options{})
			require.NoError(t, err)

			got := local.FindEntry(le.UUID)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Strings.Value(models.FieldPassword))

			// Проигравшая версия попадает в историю
			require.Len(t, got.History, 1)
			assert.NotEqual(t, tt.want, got.History[0].Strings.Value(models.FieldPassword))

			// Источник не изменяется
			assert.Empty(t, se.History)
			assert.Equal(t, "source", se.Strings.Value(models.FieldPassword))
		})
	}
}

func TestMergeIn_RepeatedMergeDoesNotGrowHistory(t *testing.T) {
	local := newDatabase()
	le := newEntry("Mail", "old", t0)
	local.Root.AddEntry(le, true, false)

	source := local.CloneDeep()
	se := source.FindEntry(le.UUID)
	se.SetString(models.FieldPassword, "new", true)
	se.Times.LastModification = t0.Add(time.Hour)

	for range 3 {
		_, err := MergeIn(local, source, Synchronize, Options{})
		require.NoError(t, err)
	}
	assert.Len(t, local.FindEntry(le.UUID).History, 1)
}

func TestMergeIn_OverwriteExisting(t *testing.T) {
	local := newDatabase()
	le := newEntry("Mail", "local", t0.Add(time.Hour))
	local.Root.AddEntry(le, true, false)

	source := local.CloneDeep()
	se := source.FindEntry(le.UUID)
	se.SetString(models.FieldPassword, "older source", true)
	se.Times.LastModification = t0

	res, err := MergeIn(local, source, OverwriteExisting, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntriesUpdated)
	assert.Equal(t, "older source", le.Strings.Value(models.FieldPassword))
	require.Len(t, le.History, 1)
	assert.Equal(t, "local", le.History[0].Strings.Value(models.FieldPassword))
}

func TestMergeIn_KeepExisting(t *testing.T) {
	local := newDatabase()
	le := newEntry("Mail", "local", t0)
	local.Root.AddEntry(le, true, false)
	local.Meta.DatabaseName = "local"

	source := local.CloneDeep()
	se := source.FindEntry(le.UUID)
	se.SetString(models.FieldPassword, "source", true)
	se.Times.LastModification = t0.Add(time.Hour)
	source.Meta.DatabaseName = "source"
	source.Meta.DatabaseNameChanged = t0.Add(time.Hour)
	source.Root.AddEntry(newEntry("New", "x", t0), true, false)

	res, err := MergeIn(local, source, KeepExisting, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntriesAdded)
	assert.Equal(t, "local", le.Strings.Value(models.FieldPassword))
	assert.Empty(t, le.History)
	assert.Equal(t, "local", local.Meta.DatabaseName)
}

func TestMergeIn_CreateNewUUIDs(t *testing.T) {
	local := newDatabase()
	work := newGroup("Work", t0)
	local.Root.AddGroup(work, true, false)
	work.AddEntry(newEntry("Mail", "pw", t0), true, false)

	res, err := MergeIn(local, local.CloneDeep(), CreateNewUUIDs, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.GroupsAdded)
	assert.Equal(t, 1, res.EntriesAdded)

	groups, entries := local.Root.CountObjects()
	assert.Equal(t, 2, groups)
	assert.Equal(t, 2, entries)
	assert.False(t, local.HasDuplicateUUIDs())
}

func TestMergeIn_NewObjectsKeepHierarchy(t *testing.T) {
	local := newDatabase()
	source := local.CloneDeep()

	parent := newGroup("Parent", t0)
	child := newGroup("Child", t0)
	source.Root.AddGroup(parent, true, false)
	parent.AddGroup(child, true, false)
	e := newEntry("Deep", "pw", t0)
	e.CreateBackup(nil)
	child.AddEntry(e, true, false)

	_, err := MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)

	got := local.FindEntry(e.UUID)
	require.NotNil(t, got)
	assert.Equal(t, child.UUID, got.Parent().UUID)
	assert.Equal(t, parent.UUID, got.Parent().Parent().UUID)
	assert.Len(t, got.History, 1)
	assert.Equal(t, got.UUID, got.History[0].UUID)
}

func TestMergeIn_DeletionWins(t *testing.T) {
	local := newDatabase()
	e := newEntry("Example", "secret123", t0)
	local.Root.AddEntry(e, true, false)
	source := local.CloneDeep()

	// Локально запись удалена позже последнего изменения в источнике
	local.Root.RemoveEntry(e)
	local.AddDeletedObject(e.UUID, t0.Add(time.Hour))

	res, err := MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.Nil(t, local.FindEntry(e.UUID))
	require.Len(t, local.DeletedObjects, 1)
	assert.Equal(t, e.UUID, local.DeletedObjects[0].UUID)
}

func TestMergeIn_ModificationAfterDeletionWins(t *testing.T) {
	local := newDatabase()
	e := newEntry("Example", "secret123", t0)
	local.Root.AddEntry(e, true, false)
	source := local.CloneDeep()
	source.FindEntry(e.UUID).Times.LastModification = t0.Add(2 * time.Hour)

	local.Root.RemoveEntry(e)
	local.AddDeletedObject(e.UUID, t0.Add(time.Hour))

	_, err := MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)
	assert.NotNil(t, local.FindEntry(e.UUID))
	assert.Empty(t, local.DeletedObjects)
}

func TestMergeIn_SourceTombstoneDeletesEmptyGroupOnly(t *testing.T) {
	local := newDatabase()
	empty := newGroup("Empty", t0)
	full := newGroup("Full", t0)
	local.Root.AddGroup(empty, true, false)
	local.Root.AddGroup(full, true, false)
	full.AddEntry(newEntry("keep", "pw", t0), true, false)

	source := local.CloneDeep()
	source.Root.RemoveGroup(source.FindGroup(empty.UUID))
	source.Root.RemoveGroup(source.FindGroup(full.UUID))
	source.AddDeletedObject(empty.UUID, t0.Add(time.Hour))
	source.AddDeletedObject(full.UUID, t0.Add(time.Hour))

	_, err := MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)
	assert.Nil(t, local.FindGroup(empty.UUID))
	assert.NotNil(t, local.FindGroup(full.UUID))
	require.Len(t, local.DeletedObjects, 1)
	assert.Equal(t, empty.UUID, local.DeletedObjects[0].UUID)
}

func TestMergeIn_RelocatesToNewerParent(t *testing.T) {
	local := newDatabase()
	a := newGroup("A", t0)
	b := newGroup("B", t0)
	local.Root.AddGroup(a, true, false)
	local.Root.AddGroup(b, true, false)
	e := newEntry("Mail", "pw", t0)
	a.AddEntry(e, true, false)

	source := local.CloneDeep()
	se := source.FindEntry(e.UUID)
	require.NoError(t, se.MoveTo(source.FindGroup(b.UUID)))
	se.Times.LocationChanged = t0.Add(time.Hour)

	res, err := MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Relocated)
	assert.Same(t, b, e.Parent())
	assert.True(t, e.Times.LocationChanged.Equal(t0.Add(time.Hour)))
}

func TestMergeIn_RelocationNeverCreatesCycle(t *testing.T) {
	local := newDatabase()
	a := newGroup("A", t0)
	b := newGroup("B", t0)
	local.Root.AddGroup(a, true, false)
	local.Root.AddGroup(b, true, false)
	source := local.CloneDeep()

	// Локально A перенесена в B, в источнике B перенесена в A
	require.NoError(t, a.MoveTo(b))
	a.Times.LocationChanged = t0.Add(time.Hour)
	sb := source.FindGroup(b.UUID)
	require.NoError(t, sb.MoveTo(source.FindGroup(a.UUID)))
	sb.Times.LocationChanged = t0.Add(2 * time.Hour)

	_, err := MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)
	assert.Same(t, b, a.Parent())
	assert.Same(t, local.Root, b.Parent())
}

func TestMergeIn_ReordersByNewestLocation(t *testing.T) {
	local := newDatabase()
	for _, title := range []string{"e1", "e2", "e3"} {
		local.Root.AddEntry(newEntry(title, "pw", t0), true, false)
	}
	source := local.CloneDeep()

	// В источнике e3 перемещена в начало
	se3 := source.Root.Entries()[2]
	order := append([]*models.Entry{se3}, source.Root.Entries()[:2]...)
	require.True(t, source.Root.SetEntryOrder(order))
	se3.Times.LocationChanged = t0.Add(time.Hour)

	res, err := MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reordered)
	assert.Equal(t, []string{"e3", "e1", "e2"}, entryTitles(local.Root))

	// Повторная синхронизация ничего не переставляет
	res, err = MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)
	assert.Zero(t, res.Reordered)
	assert.Equal(t, []string{"e3", "e1", "e2"}, entryTitles(local.Root))
}

func TestMergeIn_LocalOrderKeptWhenNewer(t *testing.T) {
	local := newDatabase()
	for _, title := range []string{"e1", "e2", "e3"} {
		local.Root.AddEntry(newEntry(title, "pw", t0), true, false)
	}
	source := local.CloneDeep()

	se3 := source.Root.Entries()[2]
	order := append([]*models.Entry{se3}, source.Root.Entries()[:2]...)
	require.True(t, source.Root.SetEntryOrder(order))
	se3.Times.LocationChanged = t0.Add(time.Hour)

	// Локально e1 перемещена в конец позже
	e1 := local.Root.Entries()[0]
	require.True(t, local.Root.SetEntryOrder(append(local.Root.Entries()[1:3:3], e1)))
	e1.Times.LocationChanged = t0.Add(2 * time.Hour)

	_, err := MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)
	assert.Equal(t, "e1", entryTitles(local.Root)[2])
}

func TestMergeIn_Meta(t *testing.T) {
	local := newDatabase()
	bin := newGroup("Bin", t0)
	local.Root.AddGroup(bin, true, false)
	source := local.CloneDeep()

	source.Meta.DatabaseName = "renamed"
	source.Meta.DatabaseNameChanged = local.Meta.DatabaseNameChanged.Add(time.Hour)
	source.Meta.RecycleBinUUID = models.NewUUID() // группы нет ни в одном дереве
	source.Meta.RecycleBinChanged = local.Meta.RecycleBinChanged.Add(time.Hour)
	local.Meta.RecycleBinUUID = bin.UUID
	source.Meta.CustomData["k"] = "v"
	source.Meta.CustomIcons = append(source.Meta.CustomIcons, &models.CustomIcon{
		UUID: models.NewUUID(),
		Data: []byte{0x89, 'P', 'N', 'G'},
	})

	res, err := MergeIn(local, source, Synchronize, Options{})
	require.NoError(t, err)
	assert.True(t, res.MetaChanged)
	assert.Equal(t, "renamed", local.Meta.DatabaseName)
	assert.Equal(t, bin.UUID, local.Meta.RecycleBinUUID)
	assert.Equal(t, "v", local.Meta.CustomData["k"])
	assert.Len(t, local.Meta.CustomIcons, 1)
}

func TestMergeIn_Cancelled(t *testing.T) {
	local := newDatabase()
	source := local.CloneDeep()
	source.Root.AddEntry(newEntry("x", "pw", t0), true, false)

	st := &status.LoggerMock{
		StartLoggingFunc: func(string) {},
		EndLoggingFunc:   func() {},
		SetProgressFunc:  func(uint32) bool { return true },
		SetTextFunc:      func(string) bool { return true },
		ContinueWorkFunc: func() bool { return false },
	}

	_, err := MergeIn(local, source, Synchronize, Options{Status: st})
	assert.ErrorIs(t, err, status.ErrCancelled)
	assert.Len(t, st.StartLoggingCalls(), 1)
	assert.Len(t, st.EndLoggingCalls(), 1)
}

func TestParseMode(t *testing.T) {
	for m := OverwriteExisting; m <= Synchronize; m++ {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseMode("bogus")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
