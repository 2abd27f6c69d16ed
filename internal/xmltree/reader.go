package xmltree

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/protect"
)

type readState int

const (
	stateLeaf readState = iota
	stateNull
	stateDocument
	stateMeta
	stateRoot
	stateMemoryProtection
	stateCustomIcons
	stateCustomIcon
	stateBinaries
	stateCustomData
	stateCustomDataItem
	stateDeletedObjects
	stateDeletedObject
	stateGroup
	stateGroupTimes
	stateEntry
	stateEntryTimes
	stateEntryString
	stateEntryBinary
	stateEntryAutoType
	stateEntryAutoTypeItem
	stateEntryHistory
)

type startHandler func(r *Reader, el xml.StartElement) (readState, error)

// Таблица разбора: для каждого состояния - обработчик открывающего тега
var startHandlers map[readState]startHandler

func init() {
	startHandlers = map[readState]startHandler{
		stateNull:              (*Reader).startNull,
		stateDocument:          (*Reader).startDocument,
		stateMeta:              (*Reader).startMeta,
		stateRoot:              (*Reader).startRoot,
		stateMemoryProtection:  (*Reader).startMemoryProtection,
		stateCustomIcons:       (*Reader).startCustomIcons,
		stateCustomIcon:        (*Reader).startCustomIcon,
		stateBinaries:          (*Reader).startBinaries,
		stateCustomData:        (*Reader).startCustomData,
		stateCustomDataItem:    (*Reader).startCustomDataItem,
		stateDeletedObjects:    (*Reader).startDeletedObjects,
		stateDeletedObject:     (*Reader).startDeletedObject,
		stateGroup:             (*Reader).startGroup,
		stateGroupTimes:        (*Reader).startTimes,
		stateEntry:             (*Reader).startEntry,
		stateEntryTimes:        (*Reader).startTimes,
		stateEntryString:       (*Reader).startEntryString,
		stateEntryBinary:       (*Reader).startEntryBinary,
		stateEntryAutoType:     (*Reader).startEntryAutoType,
		stateEntryAutoTypeItem: (*Reader).startEntryAutoTypeItem,
		stateEntryHistory:      (*Reader).startEntryHistory,
	}
}

// Reader fills a database from the XML payload.
type Reader struct {
	d      *xml.Decoder
	db     *models.Database
	stream *crypto.RandomStream
	format Format

	stack []readState

	groups      []*models.Group
	entry       *models.Entry
	historyBase *models.Entry
	times       *models.Times

	binPool map[string]*protect.Binary

	strKey      string
	strValue    *protect.String
	strExplicit bool
	binKey      string
	binValue    *protect.Binary
	assoc       models.AutoTypeAssociation
	icon        *models.CustomIcon
	deleted     models.DeletedObject
	itemKey     string
	itemValue   string
}

// Read parses the payload into db. db.Root, db.Meta and db.DeletedObjects
// are replaced. stream may be nil for FormatPlain.
func Read(r io.Reader, db *models.Database, stream *crypto.RandomStream, format Format) error {
	if format == FormatEncrypted && stream == nil {
		return fmt.Errorf("%w: random stream required", crypto.ErrUnknownStream)
	}

	xr := &Reader{
		d:       xml.NewDecoder(r),
		db:      db,
		stream:  stream,
		format:  format,
		stack:   []readState{stateNull},
		binPool: make(map[string]*protect.Binary),
	}

	db.Meta = models.NewMeta()
	db.Root = nil
	db.DeletedObjects = nil

	if err := xr.run(); err != nil {
		return err
	}
	if db.Root == nil {
		return fmt.Errorf("%w: no root group", ErrMalformed)
	}
	return nil
}

func (r *Reader) run() error {
	for {
		tok, err := r.d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(r.stack) != 1 {
					return fmt.Errorf("%w: unexpected end of document", ErrMalformed)
				}
				return nil
			}
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			cur := r.stack[len(r.stack)-1]
			next, err := startHandlers[cur](r, t)
			if err != nil {
				return err
			}
			if next != stateLeaf {
				r.stack = append(r.stack, next)
			}
		case xml.EndElement:
			if len(r.stack) <= 1 {
				return fmt.Errorf("%w: unbalanced element %s", ErrMalformed, t.Name.Local)
			}
			cur := r.stack[len(r.stack)-1]
			r.stack = r.stack[:len(r.stack)-1]
			if err := r.end(cur); err != nil {
				return err
			}
		}
	}
}

// skip discards an unknown element with all its content.
func (r *Reader) skip() (readState, error) {
	if err := r.d.Skip(); err != nil {
		return stateLeaf, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return stateLeaf, nil
}

// text reads the character data of a leaf element and consumes its end tag.
// Nested elements are ignored.
func (r *Reader) text() (string, error) {
	var sb strings.Builder
	for {
		tok, err := r.d.Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if err := r.d.Skip(); err != nil {
				return "", fmt.Errorf("%w: %v", ErrMalformed, err)
			}
		case xml.EndElement:
			return sb.String(), nil
		}
	}
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// protectedBytes reads a leaf value. Protected="True" values are base64
// decoded and XORed with the random stream.
func (r *Reader) protectedBytes(el xml.StartElement) (data []byte, protected, explicit bool, err error) {
	s, err := r.text()
	if err != nil {
		return nil, false, false, err
	}

	if v, ok := attr(el, attrProtected); ok && parseBool(v) {
		if r.stream == nil {
			return nil, false, false, fmt.Errorf("%w: protected value without random stream", ErrMalformed)
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, false, false, fmt.Errorf("%w: protected value is not base64", ErrMalformed)
		}
		r.stream.XOR(raw)
		return raw, true, true, nil
	}

	if v, ok := attr(el, attrProtectedInMem); ok && parseBool(v) {
		return []byte(s), true, true, nil
	}
	return []byte(s), false, false, nil
}

func (r *Reader) startNull(el xml.StartElement) (readState, error) {
	if el.Name.Local == elemDocument {
		return stateDocument, nil
	}
	return r.skip()
}

func (r *Reader) startDocument(el xml.StartElement) (readState, error) {
	switch el.Name.Local {
	case elemMeta:
		return stateMeta, nil
	case elemRoot:
		return stateRoot, nil
	}
	return r.skip()
}

func (r *Reader) startMeta(el xml.StartElement) (readState, error) {
	m := &r.db.Meta

	switch el.Name.Local {
	case elemMemoryProt:
		return stateMemoryProtection, nil
	case elemCustomIcons:
		return stateCustomIcons, nil
	case elemBinaries:
		return stateBinaries, nil
	case elemCustomData:
		return stateCustomData, nil
	}

	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}

	switch el.Name.Local {
	case elemGenerator:
		m.Generator = s
	case elemHeaderHash:
		if hash, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s)); err == nil {
			m.HeaderHash = hash
		}
	case elemDbName:
		m.DatabaseName = s
	case elemDbNameChanged:
		m.DatabaseNameChanged = parseTime(s)
	case elemSettingsChanged:
		m.SettingsChanged = parseTime(s)
	case elemDbDesc:
		m.DatabaseDescription = s
	case elemDbDescChanged:
		m.DatabaseDescriptionChanged = parseTime(s)
	case elemDbDefaultUser:
		m.DefaultUserName = s
	case elemDbDefaultUserChanged:
		m.DefaultUserNameChanged = parseTime(s)
	case elemDbMntncHistoryDays:
		m.MaintenanceHistoryDays = uint32(parseUint64(s, 365))
	case elemDbColor:
		m.Color = s
	case elemDbKeyChanged:
		m.MasterKeyChanged = parseTime(s)
	case elemDbKeyChangeRec:
		m.MasterKeyChangeRec = parseInt64(s, -1)
	case elemDbKeyChangeForce:
		m.MasterKeyChangeForce = parseInt64(s, -1)
	case elemRecycleBinEnabled:
		m.RecycleBinEnabled = parseBool(s)
	case elemRecycleBinUUID:
		m.RecycleBinUUID = parseUUID(s)
	case elemRecycleBinChanged:
		m.RecycleBinChanged = parseTime(s)
	case elemEntryTemplatesGroup:
		m.EntryTemplatesGroup = parseUUID(s)
	case elemEntryTemplatesGroupChanged:
		m.EntryTemplatesGroupChanged = parseTime(s)
	case elemHistoryMaxItems:
		m.HistoryMaxItems = int32(parseInt64(s, -1))
	case elemHistoryMaxSize:
		m.HistoryMaxSize = parseInt64(s, -1)
	case elemLastSelectedGroup:
		m.LastSelectedGroup = parseUUID(s)
	case elemLastTopVisibleGroup:
		m.LastTopVisibleGroup = parseUUID(s)
	}
	return stateLeaf, nil
}

func (r *Reader) startMemoryProtection(el xml.StartElement) (readState, error) {
	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}
	mp := &r.db.Meta.MemoryProtection
	switch el.Name.Local {
	case elemProtTitle:
		mp.ProtectTitle = parseBool(s)
	case elemProtUserName:
		mp.ProtectUserName = parseBool(s)
	case elemProtPassword:
		mp.ProtectPassword = parseBool(s)
	case elemProtURL:
		mp.ProtectURL = parseBool(s)
	case elemProtNotes:
		mp.ProtectNotes = parseBool(s)
	}
	return stateLeaf, nil
}

func (r *Reader) startCustomIcons(el xml.StartElement) (readState, error) {
	if el.Name.Local == elemCustomIconItem {
		r.icon = &models.CustomIcon{}
		return stateCustomIcon, nil
	}
	return r.skip()
}

func (r *Reader) startCustomIcon(el xml.StartElement) (readState, error) {
	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}
	switch el.Name.Local {
	case elemCustomIconItemID:
		r.icon.UUID = parseUUID(s)
	case elemCustomIconItemData:
		if data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s)); err == nil {
			r.icon.Data = data
		}
	case elemCustomIconItemName:
		r.icon.Name = s
	case elemLastModTime:
		r.icon.LastModification = parseTime(s)
	}
	return stateLeaf, nil
}

func (r *Reader) startBinaries(el xml.StartElement) (readState, error) {
	if el.Name.Local != elemBinary {
		return r.skip()
	}

	id, _ := attr(el, attrID)
	data, protected, err := r.binaryBytes(el)
	if err != nil {
		return stateLeaf, fmt.Errorf("binary %q: %w", id, err)
	}
	r.binPool[id] = protect.NewBinaryWiped(protected, data)
	return stateLeaf, nil
}

// binaryBytes reads a base64 binary value, optionally XORed with the random
// stream and optionally gzip compressed.
func (r *Reader) binaryBytes(el xml.StartElement) ([]byte, bool, error) {
	s, err := r.text()
	if err != nil {
		return nil, false, err
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, false, fmt.Errorf("%w: binary value is not base64", ErrMalformed)
	}

	protected := false
	if v, ok := attr(el, attrProtected); ok && parseBool(v) {
		if r.stream == nil {
			return nil, false, fmt.Errorf("%w: protected value without random stream", ErrMalformed)
		}
		r.stream.XOR(data)
		protected = true
	} else if v, ok := attr(el, attrProtectedInMem); ok && parseBool(v) {
		protected = true
	}

	if c, ok := attr(el, attrCompressed); ok && parseBool(c) {
		plain, err := gunzip(data)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		crypto.Wipe(data)
		data = plain
	}
	return data, protected, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func (r *Reader) startCustomData(el xml.StartElement) (readState, error) {
	if el.Name.Local == elemStringDictExItem {
		r.itemKey, r.itemValue = "", ""
		return stateCustomDataItem, nil
	}
	return r.skip()
}

func (r *Reader) startCustomDataItem(el xml.StartElement) (readState, error) {
	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}
	switch el.Name.Local {
	case elemKey:
		r.itemKey = s
	case elemValue:
		r.itemValue = s
	}
	return stateLeaf, nil
}

func (r *Reader) startRoot(el xml.StartElement) (readState, error) {
	switch el.Name.Local {
	case elemGroup:
		if len(r.groups) != 0 || r.db.Root != nil {
			return r.skip()
		}
		g := models.NewGroup("")
		r.db.Root = g
		r.groups = append(r.groups, g)
		return stateGroup, nil
	case elemDeletedObjects:
		return stateDeletedObjects, nil
	}
	return r.skip()
}

func (r *Reader) startDeletedObjects(el xml.StartElement) (readState, error) {
	if el.Name.Local == elemDeletedObject {
		r.deleted = models.DeletedObject{}
		return stateDeletedObject, nil
	}
	return r.skip()
}

func (r *Reader) startDeletedObject(el xml.StartElement) (readState, error) {
	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}
	switch el.Name.Local {
	case elemUUID:
		r.deleted.UUID = parseUUID(s)
	case elemDeletionTime:
		r.deleted.DeletionTime = parseTime(s)
	}
	return stateLeaf, nil
}

func (r *Reader) currentGroup() *models.Group {
	return r.groups[len(r.groups)-1]
}

func (r *Reader) startGroup(el xml.StartElement) (readState, error) {
	g := r.currentGroup()

	switch el.Name.Local {
	case elemTimes:
		r.times = &g.Times
		return stateGroupTimes, nil
	case elemGroup:
		sub := models.NewGroup("")
		g.AddGroup(sub, true, false)
		r.groups = append(r.groups, sub)
		return stateGroup, nil
	case elemEntry:
		e := models.NewEntry()
		g.AddEntry(e, true, false)
		r.entry = e
		return stateEntry, nil
	}

	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}

	switch el.Name.Local {
	case elemUUID:
		if id := parseUUID(s); id != uuid.Nil {
			g.UUID = id
		}
	case elemName:
		g.Name = s
	case elemNotes:
		g.Notes = s
	case elemIcon:
		g.IconID = int(parseInt64(s, models.IconFolder))
	case elemCustomIconID:
		g.CustomIconUUID = parseUUID(s)
	case elemIsExpanded:
		g.IsExpanded = parseBool(s)
	case elemGroupDefaultAutoSeq:
		g.DefaultAutoTypeSequence = s
	case elemEnableAutoType:
		g.EnableAutoType = parseTristate(s)
	case elemEnableSearching:
		g.EnableSearching = parseTristate(s)
	case elemLastTopVisibleEntry:
		g.LastTopVisibleEntry = parseUUID(s)
	case elemTags:
		g.Tags = splitTags(s)
	}
	return stateLeaf, nil
}

func (r *Reader) startTimes(el xml.StartElement) (readState, error) {
	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}
	t := r.times
	switch el.Name.Local {
	case elemCreationTime:
		t.Creation = parseTime(s)
	case elemLastModTime:
		t.LastModification = parseTime(s)
	case elemLastAccessTime:
		t.LastAccess = parseTime(s)
	case elemExpiryTime:
		t.Expiry = parseTime(s)
	case elemExpires:
		t.Expires = parseBool(s)
	case elemUsageCount:
		t.UsageCount = parseUint64(s, 0)
	case elemLocationChanged:
		t.LocationChanged = parseTime(s)
	}
	return stateLeaf, nil
}

func (r *Reader) startEntry(el xml.StartElement) (readState, error) {
	e := r.entry

	switch el.Name.Local {
	case elemTimes:
		r.times = &e.Times
		return stateEntryTimes, nil
	case elemString:
		r.strKey, r.strValue, r.strExplicit = "", nil, false
		return stateEntryString, nil
	case elemBinary:
		r.binKey, r.binValue = "", nil
		return stateEntryBinary, nil
	case elemAutoType:
		return stateEntryAutoType, nil
	case elemHistory:
		if r.historyBase != nil {
			// История внутри истории не допускается
			return r.skip()
		}
		r.historyBase = e
		return stateEntryHistory, nil
	}

	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}

	switch el.Name.Local {
	case elemUUID:
		if id := parseUUID(s); id != uuid.Nil {
			e.UUID = id
		}
	case elemIcon:
		e.IconID = int(parseInt64(s, models.IconKey))
	case elemCustomIconID:
		e.CustomIconUUID = parseUUID(s)
	case elemFgColor:
		e.ForegroundColor = s
	case elemBgColor:
		e.BackgroundColor = s
	case elemOverrideURL:
		e.OverrideURL = s
	case elemTags:
		e.Tags = splitTags(s)
	}
	return stateLeaf, nil
}

func (r *Reader) startEntryString(el xml.StartElement) (readState, error) {
	switch el.Name.Local {
	case elemKey:
		s, err := r.text()
		if err != nil {
			return stateLeaf, err
		}
		r.strKey = s
	case elemValue:
		data, protected, explicit, err := r.protectedBytes(el)
		if err != nil {
			return stateLeaf, err
		}
		r.strValue = protect.NewStringFromUTF8(protected, data)
		r.strExplicit = explicit
	default:
		return r.skip()
	}
	return stateLeaf, nil
}

func (r *Reader) startEntryBinary(el xml.StartElement) (readState, error) {
	switch el.Name.Local {
	case elemKey:
		s, err := r.text()
		if err != nil {
			return stateLeaf, err
		}
		r.binKey = s
	case elemValue:
		if ref, ok := attr(el, attrRef); ok {
			if _, err := r.text(); err != nil {
				return stateLeaf, err
			}
			r.binValue = r.binPool[ref]
			if r.binValue == nil {
				r.binValue = protect.NewBinary(false, nil)
			}
			return stateLeaf, nil
		}

		data, protected, err := r.binaryBytes(el)
		if err != nil {
			return stateLeaf, err
		}
		r.binValue = protect.NewBinaryWiped(protected, data)
	default:
		return r.skip()
	}
	return stateLeaf, nil
}

func (r *Reader) startEntryAutoType(el xml.StartElement) (readState, error) {
	at := &r.entry.AutoType
	if el.Name.Local == elemAutoTypeItem {
		r.assoc = models.AutoTypeAssociation{}
		return stateEntryAutoTypeItem, nil
	}

	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}
	switch el.Name.Local {
	case elemAutoTypeEnabled:
		at.Enabled = parseBool(s)
	case elemAutoTypeObfuscation:
		at.ObfuscationOptions = int(parseInt64(s, 0))
	case elemAutoTypeDefaultSeq:
		at.DefaultSequence = s
	}
	return stateLeaf, nil
}

func (r *Reader) startEntryAutoTypeItem(el xml.StartElement) (readState, error) {
	s, err := r.text()
	if err != nil {
		return stateLeaf, err
	}
	switch el.Name.Local {
	case elemWindow:
		r.assoc.Window = s
	case elemKeystrokeSequence:
		r.assoc.Sequence = s
	}
	return stateLeaf, nil
}

func (r *Reader) startEntryHistory(el xml.StartElement) (readState, error) {
	if el.Name.Local != elemEntry {
		return r.skip()
	}
	h := models.NewEntry()
	r.entry = h
	return stateEntry, nil
}

// end finalizes a compound element after its end tag.
func (r *Reader) end(s readState) error {
	switch s {
	case stateGroup:
		r.groups = r.groups[:len(r.groups)-1]
	case stateEntry:
		if r.historyBase != nil && r.entry != r.historyBase {
			r.entry.UUID = r.historyBase.UUID
			r.historyBase.History = append(r.historyBase.History, r.entry)
			r.entry = r.historyBase
			return nil
		}
		r.entry = nil
	case stateEntryHistory:
		r.entry = r.historyBase
		r.historyBase = nil
	case stateEntryString:
		if r.strKey == "" {
			return nil
		}
		v := r.strValue
		if v == nil {
			v = protect.Empty
		}
		// Без явного атрибута защита берется из настроек базы
		if !r.strExplicit && r.db.Meta.MemoryProtection.IsProtected(r.strKey) {
			v = v.WithProtection(true)
		}
		r.entry.Strings.Set(r.strKey, v)
	case stateEntryBinary:
		if r.binKey != "" && r.binValue != nil {
			r.entry.Binaries[r.binKey] = r.binValue
		}
	case stateEntryAutoTypeItem:
		r.entry.AutoType.Associations = append(r.entry.AutoType.Associations, r.assoc)
	case stateCustomIcon:
		if r.icon.UUID != uuid.Nil && len(r.icon.Data) > 0 {
			r.db.Meta.CustomIcons = append(r.db.Meta.CustomIcons, r.icon)
		}
		r.icon = nil
	case stateCustomDataItem:
		if r.itemKey != "" {
			r.db.Meta.CustomData[r.itemKey] = r.itemValue
		}
	case stateDeletedObject:
		if r.deleted.UUID != uuid.Nil {
			r.db.DeletedObjects = append(r.db.DeletedObjects, r.deleted)
		}
	}
	return nil
}
