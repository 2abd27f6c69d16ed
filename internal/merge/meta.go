package merge

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/models"
)

// mergeMeta merges database properties. Every field is gated by its own
// changed time.
func (m *merger) mergeMeta() {
	if m.mode == KeepExisting {
		return
	}
	lm, sm := &m.local.Meta, &m.src.Meta
	force := m.mode == OverwriteExisting
	changed := false
	srcNewer := models.CompareTimes(sm.SettingsChanged, lm.SettingsChanged) > 0

	if force || models.CompareTimes(sm.DatabaseNameChanged, lm.DatabaseNameChanged) > 0 {
		changed = changed || lm.DatabaseName != sm.DatabaseName
		lm.DatabaseName = sm.DatabaseName
		lm.DatabaseNameChanged = sm.DatabaseNameChanged
	}
	if force || models.CompareTimes(sm.DatabaseDescriptionChanged, lm.DatabaseDescriptionChanged) > 0 {
		changed = changed || lm.DatabaseDescription != sm.DatabaseDescription
		lm.DatabaseDescription = sm.DatabaseDescription
		lm.DatabaseDescriptionChanged = sm.DatabaseDescriptionChanged
	}
	if force || models.CompareTimes(sm.DefaultUserNameChanged, lm.DefaultUserNameChanged) > 0 {
		changed = changed || lm.DefaultUserName != sm.DefaultUserName
		lm.DefaultUserName = sm.DefaultUserName
		lm.DefaultUserNameChanged = sm.DefaultUserNameChanged
	}

	if force || srcNewer {
		changed = changed || lm.Color != sm.Color || lm.MemoryProtection != sm.MemoryProtection ||
			lm.HistoryMaxItems != sm.HistoryMaxItems || lm.HistoryMaxSize != sm.HistoryMaxSize
		lm.Color = sm.Color
		lm.MemoryProtection = sm.MemoryProtection
		lm.HistoryMaxItems = sm.HistoryMaxItems
		lm.HistoryMaxSize = sm.HistoryMaxSize
		lm.MaintenanceHistoryDays = sm.MaintenanceHistoryDays
		lm.SettingsChanged = sm.SettingsChanged
	}

	// Предпочтительная ссылка берется у стороны с более поздним временем,
	// но только если группа существует в слитом дереве
	prefBin, altBin := lm.RecycleBinUUID, sm.RecycleBinUUID
	if force || models.CompareTimes(sm.RecycleBinChanged, lm.RecycleBinChanged) > 0 {
		prefBin, altBin = sm.RecycleBinUUID, lm.RecycleBinUUID
		lm.RecycleBinEnabled = sm.RecycleBinEnabled
		lm.RecycleBinChanged = sm.RecycleBinChanged
	}
	bin := m.existingGroup(prefBin, altBin)
	changed = changed || bin != lm.RecycleBinUUID
	lm.RecycleBinUUID = bin

	prefTmp, altTmp := lm.EntryTemplatesGroup, sm.EntryTemplatesGroup
	if force || models.CompareTimes(sm.EntryTemplatesGroupChanged, lm.EntryTemplatesGroupChanged) > 0 {
		prefTmp, altTmp = sm.EntryTemplatesGroup, lm.EntryTemplatesGroup
		lm.EntryTemplatesGroupChanged = sm.EntryTemplatesGroupChanged
	}
	tmp := m.existingGroup(prefTmp, altTmp)
	changed = changed || tmp != lm.EntryTemplatesGroup
	lm.EntryTemplatesGroup = tmp

	if lm.CustomData == nil {
		lm.CustomData = make(map[string]string)
	}
	for _, k := range slices.Sorted(maps.Keys(sm.CustomData)) {
		v := sm.CustomData[k]
		if cur, ok := lm.CustomData[k]; !ok || (srcNewer && cur != v) {
			lm.CustomData[k] = v
			changed = true
		}
	}

	if changed {
		m.res.MetaChanged = true
	}
}

// existingGroup returns the first identifier that names a live local group,
// uuid.Nil when neither does.
func (m *merger) existingGroup(pref, alt uuid.UUID) uuid.UUID {
	if m.local.FindGroup(pref) != nil {
		return pref
	}
	if m.local.FindGroup(alt) != nil {
		return alt
	}
	return uuid.Nil
}

// mergeCustomIcons unions the icon lists by identifier. An icon present on
// both sides is replaced when the source copy is newer.
func (m *merger) mergeCustomIcons() {
	lm := &m.local.Meta
	for _, ic := range m.src.Meta.CustomIcons {
		i := lm.FindCustomIcon(ic.UUID)
		if i < 0 {
			cp := *ic
			cp.Data = slices.Clone(ic.Data)
			lm.CustomIcons = append(lm.CustomIcons, &cp)
			m.res.MetaChanged = true
			continue
		}

		cur := lm.CustomIcons[i]
		if models.CompareTimes(ic.LastModification, cur.LastModification) > 0 {
			cp := *ic
			cp.Data = slices.Clone(ic.Data)
			lm.CustomIcons[i] = &cp
			m.res.MetaChanged = true
		}
	}
}
