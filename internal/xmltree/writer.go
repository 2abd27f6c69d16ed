package xmltree

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/protect"
)

// WriteOptions configure Write.
type WriteOptions struct {
	// Stream encrypts protected values, required for FormatEncrypted
	Stream *crypto.RandomStream
	// HeaderHash is stored in Meta when non-empty
	HeaderHash []byte
	Format     Format
}

type writer struct {
	enc  *xml.Encoder
	db   *models.Database
	opts WriteOptions
	err  error

	pool    []*protect.Binary
	poolIDs map[*protect.Binary]string
}

// Write serializes db. Protected flags of standard fields are taken from the
// database memory protection settings, custom fields keep their own flag.
func Write(w io.Writer, db *models.Database, opts WriteOptions) error {
	if opts.Format == FormatEncrypted && opts.Stream == nil {
		return fmt.Errorf("%w: random stream required", crypto.ErrUnknownStream)
	}
	if db.Root == nil {
		return fmt.Errorf("%w: no root group", ErrMalformed)
	}

	xw := &writer{
		enc:     xml.NewEncoder(w),
		db:      db,
		opts:    opts,
		poolIDs: make(map[*protect.Binary]string),
	}
	xw.enc.Indent("", "\t")
	xw.buildPool()

	xw.token(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="utf-8" standalone="yes"`)})
	xw.start(elemDocument)
	xw.writeMeta()
	xw.start(elemRoot)
	xw.writeGroup(db.Root)
	xw.writeDeletedObjects()
	xw.end(elemRoot)
	xw.end(elemDocument)

	if xw.err != nil {
		return xw.err
	}
	if err := xw.enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush XML: %w", err)
	}
	return nil
}

// buildPool de-duplicates attachments by content.
func (w *writer) buildPool() {
	bySum := make(map[[32]byte]string)
	add := func(e *models.Entry) {
		for _, key := range e.Binaries.Keys() {
			b := e.Binaries[key]
			if _, ok := w.poolIDs[b]; ok {
				continue
			}
			sum := b.Sum()
			if id, ok := bySum[sum]; ok {
				w.poolIDs[b] = id
				continue
			}
			id := strconv.Itoa(len(w.pool))
			bySum[sum] = id
			w.poolIDs[b] = id
			w.pool = append(w.pool, b)
		}
	}
	w.db.Root.Traverse(nil, func(e *models.Entry) bool {
		add(e)
		for _, h := range e.History {
			add(h)
		}
		return true
	})
}

func (w *writer) token(t xml.Token) {
	if w.err != nil {
		return
	}
	if err := w.enc.EncodeToken(t); err != nil {
		w.err = fmt.Errorf("failed to write XML: %w", err)
	}
}

func (w *writer) start(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *writer) end(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *writer) leaf(name, value string, attrs ...xml.Attr) {
	w.start(name, attrs...)
	if value != "" {
		w.token(xml.CharData(value))
	}
	w.end(name)
}

func (w *writer) leafTime(name string, t time.Time) {
	w.leaf(name, formatTime(t))
}

func (w *writer) leafBool(name string, b bool) {
	w.leaf(name, formatBool(b))
}

func (w *writer) leafInt(name string, v int64) {
	w.leaf(name, strconv.FormatInt(v, 10))
}

func (w *writer) leafUUID(name string, id uuid.UUID) {
	w.leaf(name, models.EncodeUUID(id))
}

func boolAttr(name string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: valTrue}
}

func (w *writer) writeMeta() {
	m := &w.db.Meta

	w.start(elemMeta)
	generator := m.Generator
	if generator == "" {
		generator = models.DefaultGenerator
	}
	w.leaf(elemGenerator, generator)
	if len(w.opts.HeaderHash) > 0 {
		w.leaf(elemHeaderHash, base64.StdEncoding.EncodeToString(w.opts.HeaderHash))
	}
	w.leafTime(elemSettingsChanged, m.SettingsChanged)
	w.leaf(elemDbName, m.DatabaseName)
	w.leafTime(elemDbNameChanged, m.DatabaseNameChanged)
	w.leaf(elemDbDesc, m.DatabaseDescription)
	w.leafTime(elemDbDescChanged, m.DatabaseDescriptionChanged)
	w.leaf(elemDbDefaultUser, m.DefaultUserName)
	w.leafTime(elemDbDefaultUserChanged, m.DefaultUserNameChanged)
	w.leafInt(elemDbMntncHistoryDays, int64(m.MaintenanceHistoryDays))
	w.leaf(elemDbColor, m.Color)
	w.leafTime(elemDbKeyChanged, m.MasterKeyChanged)
	w.leafInt(elemDbKeyChangeRec, m.MasterKeyChangeRec)
	w.leafInt(elemDbKeyChangeForce, m.MasterKeyChangeForce)

	w.start(elemMemoryProt)
	w.leafBool(elemProtTitle, m.MemoryProtection.ProtectTitle)
	w.leafBool(elemProtUserName, m.MemoryProtection.ProtectUserName)
	w.leafBool(elemProtPassword, m.MemoryProtection.ProtectPassword)
	w.leafBool(elemProtURL, m.MemoryProtection.ProtectURL)
	w.leafBool(elemProtNotes, m.MemoryProtection.ProtectNotes)
	w.end(elemMemoryProt)

	if len(m.CustomIcons) > 0 {
		w.start(elemCustomIcons)
		for _, ic := range m.CustomIcons {
			w.start(elemCustomIconItem)
			w.leafUUID(elemCustomIconItemID, ic.UUID)
			w.leaf(elemCustomIconItemData, base64.StdEncoding.EncodeToString(ic.Data))
			if ic.Name != "" {
				w.leaf(elemCustomIconItemName, ic.Name)
			}
			if !ic.LastModification.IsZero() {
				w.leafTime(elemLastModTime, ic.LastModification)
			}
			w.end(elemCustomIconItem)
		}
		w.end(elemCustomIcons)
	}

	w.leafBool(elemRecycleBinEnabled, m.RecycleBinEnabled)
	w.leafUUID(elemRecycleBinUUID, m.RecycleBinUUID)
	w.leafTime(elemRecycleBinChanged, m.RecycleBinChanged)
	w.leafUUID(elemEntryTemplatesGroup, m.EntryTemplatesGroup)
	w.leafTime(elemEntryTemplatesGroupChanged, m.EntryTemplatesGroupChanged)
	w.leafInt(elemHistoryMaxItems, int64(m.HistoryMaxItems))
	w.leafInt(elemHistoryMaxSize, m.HistoryMaxSize)
	w.leafUUID(elemLastSelectedGroup, m.LastSelectedGroup)
	w.leafUUID(elemLastTopVisibleGroup, m.LastTopVisibleGroup)

	w.writeBinaryPool()

	if len(m.CustomData) > 0 {
		w.start(elemCustomData)
		for _, k := range slices.Sorted(maps.Keys(m.CustomData)) {
			w.start(elemStringDictExItem)
			w.leaf(elemKey, k)
			w.leaf(elemValue, m.CustomData[k])
			w.end(elemStringDictExItem)
		}
		w.end(elemCustomData)
	}

	w.end(elemMeta)
}

func (w *writer) writeBinaryPool() {
	w.start(elemBinaries)
	for i, b := range w.pool {
		attrs := []xml.Attr{{Name: xml.Name{Local: attrID}, Value: strconv.Itoa(i)}}
		data := b.ReadData()

		switch {
		case b.IsProtected():
			// Защищенные данные не сжимаются
			attrs = append(attrs, boolAttr(w.protectedAttr()))
			w.leaf(elemBinary, w.encodeProtected(data), attrs...)
		case w.db.Compression == models.CompressionGZip:
			packed, err := gzipBytes(data)
			if err != nil && w.err == nil {
				w.err = fmt.Errorf("failed to compress binary: %w", err)
			}
			attrs = append(attrs, boolAttr(attrCompressed))
			w.leaf(elemBinary, base64.StdEncoding.EncodeToString(packed), attrs...)
		default:
			w.leaf(elemBinary, base64.StdEncoding.EncodeToString(data), attrs...)
		}
		crypto.Wipe(data)
	}
	w.end(elemBinaries)
}

func (w *writer) protectedAttr() string {
	if w.opts.Format == FormatPlain {
		return attrProtectedInMem
	}
	return attrProtected
}

// encodeProtected XORs data with the random stream in the encrypted format
// and returns base64. data is modified.
func (w *writer) encodeProtected(data []byte) string {
	if w.opts.Format == FormatEncrypted {
		w.opts.Stream.XOR(data)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *writer) writeTimes(t models.Times) {
	w.start(elemTimes)
	w.leafTime(elemCreationTime, t.Creation)
	w.leafTime(elemLastModTime, t.LastModification)
	w.leafTime(elemLastAccessTime, t.LastAccess)
	w.leafTime(elemExpiryTime, t.Expiry)
	w.leafBool(elemExpires, t.Expires)
	w.leaf(elemUsageCount, strconv.FormatUint(t.UsageCount, 10))
	w.leafTime(elemLocationChanged, t.LocationChanged)
	w.end(elemTimes)
}

func (w *writer) writeGroup(g *models.Group) {
	w.start(elemGroup)
	w.leafUUID(elemUUID, g.UUID)
	w.leaf(elemName, g.Name)
	w.leaf(elemNotes, g.Notes)
	w.leafInt(elemIcon, int64(g.IconID))
	if g.CustomIconUUID != uuid.Nil {
		w.leafUUID(elemCustomIconID, g.CustomIconUUID)
	}
	w.writeTimes(g.Times)
	w.leafBool(elemIsExpanded, g.IsExpanded)
	w.leaf(elemGroupDefaultAutoSeq, g.DefaultAutoTypeSequence)
	w.leaf(elemEnableAutoType, g.EnableAutoType.String())
	w.leaf(elemEnableSearching, g.EnableSearching.String())
	w.leafUUID(elemLastTopVisibleEntry, g.LastTopVisibleEntry)
	if len(g.Tags) > 0 {
		w.leaf(elemTags, strings.Join(g.Tags, tagOutputSeparator))
	}

	for _, e := range g.Entries() {
		w.writeEntry(e, false)
	}
	for _, sub := range g.Groups() {
		w.writeGroup(sub)
	}
	w.end(elemGroup)
}

func (w *writer) writeEntry(e *models.Entry, isHistory bool) {
	w.start(elemEntry)
	w.leafUUID(elemUUID, e.UUID)
	w.leafInt(elemIcon, int64(e.IconID))
	if e.CustomIconUUID != uuid.Nil {
		w.leafUUID(elemCustomIconID, e.CustomIconUUID)
	}
	w.leaf(elemFgColor, e.ForegroundColor)
	w.leaf(elemBgColor, e.BackgroundColor)
	w.leaf(elemOverrideURL, e.OverrideURL)
	w.leaf(elemTags, strings.Join(e.Tags, tagOutputSeparator))
	w.writeTimes(e.Times)

	mp := w.db.Meta.MemoryProtection
	for _, key := range e.Strings.Keys() {
		v := e.Strings[key]
		protected := v.IsProtected()
		if models.IsStandardField(key) {
			protected = mp.IsProtected(key)
		}

		w.start(elemString)
		w.leaf(elemKey, key)
		switch {
		case protected && w.opts.Format == FormatPlain:
			// в открытом формате только пометка, значение как есть
			w.leaf(elemValue, v.String(), boolAttr(attrProtectedInMem))
		case protected:
			data := v.ReadUTF8()
			w.leaf(elemValue, w.encodeProtected(data), boolAttr(attrProtected))
			crypto.Wipe(data)
		default:
			w.leaf(elemValue, v.String())
		}
		w.end(elemString)
	}

	for _, key := range e.Binaries.Keys() {
		w.start(elemBinary)
		w.leaf(elemKey, key)
		w.leaf(elemValue, "", xml.Attr{Name: xml.Name{Local: attrRef}, Value: w.poolIDs[e.Binaries[key]]})
		w.end(elemBinary)
	}

	w.start(elemAutoType)
	w.leafBool(elemAutoTypeEnabled, e.AutoType.Enabled)
	w.leafInt(elemAutoTypeObfuscation, int64(e.AutoType.ObfuscationOptions))
	if e.AutoType.DefaultSequence != "" {
		w.leaf(elemAutoTypeDefaultSeq, e.AutoType.DefaultSequence)
	}
	for _, a := range e.AutoType.Associations {
		w.start(elemAutoTypeItem)
		w.leaf(elemWindow, a.Window)
		w.leaf(elemKeystrokeSequence, a.Sequence)
		w.end(elemAutoTypeItem)
	}
	w.end(elemAutoType)

	if !isHistory {
		w.start(elemHistory)
		for _, h := range e.History {
			w.writeEntry(h, true)
		}
		w.end(elemHistory)
	}

	w.end(elemEntry)
}

func (w *writer) writeDeletedObjects() {
	w.start(elemDeletedObjects)
	for _, d := range w.db.DeletedObjects {
		w.start(elemDeletedObject)
		w.leafUUID(elemUUID, d.UUID)
		w.leafTime(elemDeletionTime, d.DeletionTime)
		w.end(elemDeletedObject)
	}
	w.end(elemDeletedObjects)
}

