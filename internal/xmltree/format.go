// Package xmltree projects the database tree to and from the XML payload.
// The reader is a forward-only pull parser driven by an explicit stack of
// states, the writer emits elements in the order the reader expects.
package xmltree

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/models"
)

// Format selects how protected values are stored.
type Format int

const (
	// FormatEncrypted XORs protected values with the inner random stream and
	// marks them with Protected="True". Used inside the container.
	FormatEncrypted Format = iota
	// FormatPlain writes every value in clear text and marks protected
	// values with ProtectInMemory="True". Used for import and export.
	FormatPlain
)

// ErrMalformed indicates a structurally broken payload.
var ErrMalformed = errors.New("malformed XML payload")

const timeLayout = "2006-01-02T15:04:05Z"

// Имена элементов
const (
	elemDocument = "KeePassFile"
	elemMeta     = "Meta"
	elemRoot     = "Root"
	elemGroup    = "Group"
	elemEntry    = "Entry"

	elemGenerator                  = "Generator"
	elemHeaderHash                 = "HeaderHash"
	elemSettingsChanged            = "SettingsChanged"
	elemDbName                     = "DatabaseName"
	elemDbNameChanged              = "DatabaseNameChanged"
	elemDbDesc                     = "DatabaseDescription"
	elemDbDescChanged              = "DatabaseDescriptionChanged"
	elemDbDefaultUser              = "DefaultUserName"
	elemDbDefaultUserChanged       = "DefaultUserNameChanged"
	elemDbMntncHistoryDays         = "MaintenanceHistoryDays"
	elemDbColor                    = "Color"
	elemDbKeyChanged               = "MasterKeyChanged"
	elemDbKeyChangeRec             = "MasterKeyChangeRec"
	elemDbKeyChangeForce           = "MasterKeyChangeForce"
	elemMemoryProt                 = "MemoryProtection"
	elemProtTitle                  = "ProtectTitle"
	elemProtUserName               = "ProtectUserName"
	elemProtPassword               = "ProtectPassword"
	elemProtURL                    = "ProtectURL"
	elemProtNotes                  = "ProtectNotes"
	elemCustomIcons                = "CustomIcons"
	elemCustomIconItem             = "Icon"
	elemCustomIconItemID           = "UUID"
	elemCustomIconItemData         = "Data"
	elemCustomIconItemName         = "Name"
	elemRecycleBinEnabled          = "RecycleBinEnabled"
	elemRecycleBinUUID             = "RecycleBinUUID"
	elemRecycleBinChanged          = "RecycleBinChanged"
	elemEntryTemplatesGroup        = "EntryTemplatesGroup"
	elemEntryTemplatesGroupChanged = "EntryTemplatesGroupChanged"
	elemHistoryMaxItems            = "HistoryMaxItems"
	elemHistoryMaxSize             = "HistoryMaxSize"
	elemLastSelectedGroup          = "LastSelectedGroup"
	elemLastTopVisibleGroup        = "LastTopVisibleGroup"
	elemBinaries                   = "Binaries"
	elemCustomData                 = "CustomData"
	elemStringDictExItem           = "Item"

	elemUUID                = "UUID"
	elemName                = "Name"
	elemNotes               = "Notes"
	elemIcon                = "IconID"
	elemCustomIconID        = "CustomIconUUID"
	elemTimes               = "Times"
	elemIsExpanded          = "IsExpanded"
	elemGroupDefaultAutoSeq = "DefaultAutoTypeSequence"
	elemEnableAutoType      = "EnableAutoType"
	elemEnableSearching     = "EnableSearching"
	elemLastTopVisibleEntry = "LastTopVisibleEntry"
	elemTags                = "Tags"

	elemFgColor     = "ForegroundColor"
	elemBgColor     = "BackgroundColor"
	elemOverrideURL = "OverrideURL"
	elemString      = "String"
	elemBinary      = "Binary"
	elemKey         = "Key"
	elemValue       = "Value"
	elemAutoType    = "AutoType"
	elemHistory     = "History"

	elemCreationTime        = "CreationTime"
	elemLastModTime         = "LastModificationTime"
	elemLastAccessTime      = "LastAccessTime"
	elemExpiryTime          = "ExpiryTime"
	elemExpires             = "Expires"
	elemUsageCount          = "UsageCount"
	elemLocationChanged     = "LocationChanged"
	elemAutoTypeEnabled     = "Enabled"
	elemAutoTypeObfuscation = "DataTransferObfuscation"
	elemAutoTypeDefaultSeq  = "DefaultSequence"
	elemAutoTypeItem        = "Association"
	elemWindow              = "Window"
	elemKeystrokeSequence   = "KeystrokeSequence"
	elemDeletedObjects      = "DeletedObjects"
	elemDeletedObject       = "DeletedObject"
	elemDeletionTime        = "DeletionTime"

	attrProtected      = "Protected"
	attrProtectedInMem = "ProtectInMemory"
	attrRef            = "Ref"
	attrID             = "ID"
	attrCompressed     = "Compressed"
	valTrue            = "True"
	valFalse           = "False"
	valNull            = "null"
	tagSeparators      = ";,:"
	tagOutputSeparator = ";"
)

// Разбор скалярных значений. Некорректное значение не прерывает чтение,
// вместо него используется значение по умолчанию.

// parseTime returns the zero time for malformed input.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(time.Second)
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseBool returns false for malformed input.
func parseBool(s string) bool {
	switch strings.TrimSpace(s) {
	case "True", "true", "1":
		return true
	default:
		return false
	}
}

func formatBool(b bool) string {
	if b {
		return valTrue
	}
	return valFalse
}

// parseTristate returns Inherit for malformed input.
func parseTristate(s string) models.Tristate {
	switch strings.TrimSpace(s) {
	case "True", "true":
		return models.Enabled
	case "False", "false":
		return models.Disabled
	default:
		return models.Inherit
	}
}

func parseInt64(s string, def int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func parseUint64(s string, def uint64) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// parseUUID returns uuid.Nil for malformed input.
func parseUUID(s string) uuid.UUID {
	id, _ := models.DecodeUUID(strings.TrimSpace(s))
	return id
}

func splitTags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(tagSeparators, r)
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
