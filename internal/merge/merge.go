// Package merge reconciles two copies of a database. The local database is
// changed in place, the source is never modified.
//
// Full-tree walks (duplicate detection, relocation) make a merge O(n log n)
// in typical trees and O(n^2) when sibling lists are heavily reordered.
package merge

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/status"
)

// Options configure MergeIn.
type Options struct {
	Status status.Logger
	Logger *slog.Logger
}

// Result counts the changes applied to the local database.
type Result struct {
	GroupsAdded     int
	EntriesAdded    int
	GroupsUpdated   int
	EntriesUpdated  int
	Relocated       int
	Reordered       int
	Deleted         int
	BackupsCreated  int
	HistoryAdded    int
	DuplicatesFixed int
	MetaChanged     bool
}

// Changed reports whether anything in the local database changed.
func (r *Result) Changed() bool {
	return r.GroupsAdded+r.EntriesAdded+r.GroupsUpdated+r.EntriesUpdated+
		r.Relocated+r.Reordered+r.Deleted+r.BackupsCreated+r.HistoryAdded+
		r.DuplicatesFixed > 0 || r.MetaChanged
}

const (
	groupCompare = models.CompareIgnoreParentGroup | models.CompareIgnoreLastAccess
	entryCompare = models.CompareIgnoreParentGroup | models.CompareIgnoreLastAccess |
		models.CompareIgnoreHistory | models.CompareNullEmptyEquivStd
)

type merger struct {
	local *models.Database
	src   *models.Database
	st    status.Logger
	log   *slog.Logger
	res   *Result

	// группы локального дерева, включая добавленные при слиянии
	groups  map[uuid.UUID]*models.Group
	entries map[uuid.UUID]*models.Entry

	mode Mode
}

// MergeIn merges source into local with the given mode.
//
// A failed merge may leave local partially changed, the caller is expected
// to discard it. The source is deep-copied first and stays untouched.
func MergeIn(local, source *models.Database, mode Mode, opts Options) (*Result, error) {
	if local == nil || source == nil || local.Root == nil || source.Root == nil {
		return nil, ErrNilDatabase
	}
	if _, ok := modeNames[mode]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	st := status.OrNop(opts.Status)
	st.StartLogging("merge")
	defer st.EndLogging()

	src := source.CloneDeep()
	if mode == CreateNewUUIDs {
		assignNewUUIDs(src.Root)
	}

	m := &merger{
		local:   local,
		src:     src,
		mode:    mode,
		st:      st,
		log:     log,
		res:     &Result{},
		groups:  make(map[uuid.UUID]*models.Group),
		entries: make(map[uuid.UUID]*models.Entry),
	}
	m.index()

	// Снимки структуры до любых изменений
	var orgPool, srcPool *pool
	if mode == Synchronize {
		orgPool = newPool(local.Root)
		srcPool = newPool(src.Root)
	}

	if err := m.mergeTree(); err != nil {
		return m.res, err
	}
	st.SetProgress(50)

	if mode == Synchronize {
		m.relocateGroups(orgPool, srcPool)
		m.relocateEntries(orgPool, srcPool)
		if err := m.reorder(local.Root, orgPool, srcPool); err != nil {
			return m.res, err
		}
		m.mergeLocationChanged(orgPool, srcPool)

		// Удаление после перемещений: перемещение может опустошить группу
		if err := m.applyDeletions(); err != nil {
			return m.res, err
		}
	}
	st.SetProgress(80)

	// Ссылки на корзину и шаблоны проверяются по уже слитому дереву
	m.mergeMeta()
	m.mergeCustomIcons()

	if local.MaintainBackups() {
		m.log.Debug("history trimmed after merge")
	}

	if err := m.checkDuplicates(); err != nil {
		return m.res, err
	}

	if m.res.Changed() {
		local.Modified = true
	}
	st.SetProgress(100)
	return m.res, nil
}

func (m *merger) index() {
	m.groups[m.local.Root.UUID] = m.local.Root
	m.local.Root.Traverse(func(g *models.Group) bool {
		m.groups[g.UUID] = g
		return true
	}, func(e *models.Entry) bool {
		m.entries[e.UUID] = e
		return true
	})
}

// localParent maps a source parent to the local group, the local root when
// it is not known.
func (m *merger) localParent(srcParent *models.Group) *models.Group {
	if srcParent != nil {
		if g := m.groups[srcParent.UUID]; g != nil {
			return g
		}
	}
	return m.local.Root
}

func (m *merger) mergeTree() error {
	m.mergeGroup(m.src.Root)

	ok := m.src.Root.Traverse(func(g *models.Group) bool {
		m.mergeGroup(g)
		return m.st.ContinueWork()
	}, func(e *models.Entry) bool {
		m.mergeEntry(e)
		return m.st.ContinueWork()
	})
	if !ok {
		return status.ErrCancelled
	}
	return nil
}

func (m *merger) mergeGroup(sg *models.Group) {
	lg := m.groups[sg.UUID]
	if lg == nil {
		if sg.Parent() == nil {
			// корни с разными идентификаторами сопоставляются друг другу
			m.groups[sg.UUID] = m.local.Root
			return
		}

		ng := models.NewGroup("")
		ng.UUID = sg.UUID
		ng.AssignProperties(sg, false, true)
		m.localParent(sg.Parent()).AddGroup(ng, true, false)
		m.groups[ng.UUID] = ng
		m.res.GroupsAdded++
		return
	}

	if lg.Equal(sg, groupCompare) {
		return
	}

	switch m.mode {
	case OverwriteExisting:
		lg.AssignProperties(sg, false, false)
		m.res.GroupsUpdated++
	case OverwriteIfNewer, Synchronize:
		if compareLastMod(sg.Times, lg.Times) > 0 {
			lg.AssignProperties(sg, true, false)
			m.res.GroupsUpdated++
		}
	}
}

func (m *merger) mergeEntry(se *models.Entry) {
	le := m.entries[se.UUID]
	if le == nil {
		ne := models.NewEntry()
		ne.UUID = se.UUID
		ne.AssignProperties(se, false, true, true)
		m.localParent(se.Parent()).AddEntry(ne, true, false)
		m.entries[ne.UUID] = ne
		m.res.EntriesAdded++
		return
	}

	equal := le.Equal(se, entryCompare)

	// Проигравшая версия сохраняется в истории, если ее копии там еще нет
	if !equal && m.mode != KeepExisting {
		orgBackup := m.mode == OverwriteExisting || compareLastMod(se.Times, le.Times) > 0
		if orgBackup && !se.HasBackupOfData(le, false, true) {
			le.CreateBackup(nil)
			m.res.BackupsCreated++
		}

		srcBackup := m.mode != OverwriteExisting && compareLastMod(le.Times, se.Times) > 0
		if srcBackup && !le.HasBackupOfData(se, false, true) {
			se.CreateBackup(nil)
		}
	}

	if !equal {
		switch m.mode {
		case OverwriteExisting:
			le.AssignProperties(se, false, false, false)
			m.res.EntriesUpdated++
		case OverwriteIfNewer, Synchronize:
			if compareLastMod(se.Times, le.Times) > 0 {
				le.AssignProperties(se, true, false, false)
				m.res.EntriesUpdated++
			}
		}
		m.log.Debug("entry conflict resolved", "uuid", le.UUID, "mode", m.mode)
	}

	m.mergeHistory(le, se)
}

// mergeHistory объединяет истории по времени изменения. Одинаковое время
// считается одной и той же версией.
func (m *merger) mergeHistory(le, se *models.Entry) {
	if slices.EqualFunc(le.History, se.History, func(a, b *models.Entry) bool {
		return compareLastMod(a.Times, b.Times) == 0
	}) {
		return
	}

	byTime := make(map[int64]*models.Entry, len(le.History)+len(se.History))
	for _, h := range le.History {
		byTime[h.Times.LastModification.Unix()] = h
	}
	for _, h := range se.History {
		key := h.Times.LastModification.Unix()
		if _, ok := byTime[key]; ok {
			if m.mode != OverwriteExisting {
				continue
			}
		} else {
			m.res.HistoryAdded++
		}
		c := h.Clone(false)
		c.UUID = le.UUID
		byTime[key] = c
	}

	keys := make([]int64, 0, len(byTime))
	for k := range byTime {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	le.History = make([]*models.Entry, 0, len(keys))
	for _, k := range keys {
		le.History = append(le.History, byTime[k])
	}
}

func (m *merger) checkDuplicates() error {
	if !m.local.HasDuplicateUUIDs() {
		return nil
	}

	// Дубликаты после слияния означают ошибку в алгоритме, а не конфликт данных
	n := m.local.FixDuplicateUUIDs()
	m.res.DuplicatesFixed = n
	m.log.Warn("duplicate identifiers repaired after merge", "count", n)

	if m.local.HasDuplicateUUIDs() {
		return fmt.Errorf("%w: duplicate identifiers remain", ErrInvariant)
	}
	return nil
}

func compareLastMod(a, b models.Times) int {
	return models.CompareTimes(a.LastModification, b.LastModification)
}

func assignNewUUIDs(root *models.Group) {
	root.UUID = models.NewUUID()
	root.Traverse(func(g *models.Group) bool {
		g.UUID = models.NewUUID()
		return true
	}, func(e *models.Entry) bool {
		e.UUID = models.NewUUID()
		for _, h := range e.History {
			h.UUID = e.UUID
		}
		return true
	})
}
