package models

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultGenerator is written to Meta/Generator.
const DefaultGenerator = "KeepVault"

// MemoryProtection задает, какие стандартные поля хранятся защищенными.
type MemoryProtection struct {
	ProtectTitle    bool
	ProtectUserName bool
	ProtectPassword bool
	ProtectURL      bool
	ProtectNotes    bool
}

// DefaultMemoryProtection protects only the password.
func DefaultMemoryProtection() MemoryProtection {
	return MemoryProtection{ProtectPassword: true}
}

// IsProtected reports the configured protection of a standard field.
// Custom fields return false.
func (m MemoryProtection) IsProtected(field string) bool {
	switch field {
	case FieldTitle:
		return m.ProtectTitle
	case FieldUserName:
		return m.ProtectUserName
	case FieldPassword:
		return m.ProtectPassword
	case FieldURL:
		return m.ProtectURL
	case FieldNotes:
		return m.ProtectNotes
	default:
		return false
	}
}

// CustomIcon is a user supplied PNG icon.
type CustomIcon struct {
	Data             []byte
	Name             string
	LastModification time.Time
	UUID             uuid.UUID
}

// Meta - метаданные базы. Каждое изменяемое поле имеет парную метку
// времени, по которой работает слияние.
type Meta struct {
	CustomData map[string]string

	Generator           string
	DatabaseName        string
	DatabaseDescription string
	DefaultUserName     string
	Color               string

	// HeaderHash is the header digest read from the payload. Only the codec uses it.
	HeaderHash []byte

	CustomIcons []*CustomIcon

	DatabaseNameChanged        time.Time
	DatabaseDescriptionChanged time.Time
	DefaultUserNameChanged     time.Time
	MasterKeyChanged           time.Time
	RecycleBinChanged          time.Time
	EntryTemplatesGroupChanged time.Time
	// SettingsChanged covers fields without their own changed time
	SettingsChanged time.Time

	MasterKeyChangeRec   int64
	MasterKeyChangeForce int64
	HistoryMaxSize       int64

	MemoryProtection MemoryProtection

	RecycleBinUUID      uuid.UUID
	EntryTemplatesGroup uuid.UUID
	LastSelectedGroup   uuid.UUID
	LastTopVisibleGroup uuid.UUID

	MaintenanceHistoryDays uint32
	HistoryMaxItems        int32

	RecycleBinEnabled bool
}

// NewMeta returns metadata of a new database.
func NewMeta() Meta {
	now := Now()
	return Meta{
		CustomData:                 make(map[string]string),
		Generator:                  DefaultGenerator,
		DatabaseNameChanged:        now,
		DatabaseDescriptionChanged: now,
		DefaultUserNameChanged:     now,
		MasterKeyChanged:           now,
		RecycleBinChanged:          now,
		EntryTemplatesGroupChanged: now,
		SettingsChanged:            now,
		MasterKeyChangeRec:         -1,
		MasterKeyChangeForce:       -1,
		HistoryMaxSize:             DefaultHistoryMaxSize,
		HistoryMaxItems:            DefaultHistoryMaxItems,
		MaintenanceHistoryDays:     365,
		MemoryProtection:           DefaultMemoryProtection(),
		RecycleBinEnabled:          true,
	}
}

// HistoryLimits returns the configured history limits.
func (m *Meta) HistoryLimits() HistoryLimits {
	return HistoryLimits{MaxItems: m.HistoryMaxItems, MaxSize: m.HistoryMaxSize}
}

// Clone copies the metadata.
func (m *Meta) Clone() Meta {
	c := *m
	c.CustomData = maps.Clone(m.CustomData)
	if c.CustomData == nil {
		c.CustomData = make(map[string]string)
	}
	c.HeaderHash = slices.Clone(m.HeaderHash)
	c.CustomIcons = make([]*CustomIcon, 0, len(m.CustomIcons))
	for _, ic := range m.CustomIcons {
		cp := *ic
		cp.Data = slices.Clone(ic.Data)
		c.CustomIcons = append(c.CustomIcons, &cp)
	}
	return c
}

// FindCustomIcon returns the index of an icon or -1.
func (m *Meta) FindCustomIcon(id uuid.UUID) int {
	return slices.IndexFunc(m.CustomIcons, func(ic *CustomIcon) bool {
		return ic.UUID == id
	})
}

// SetName updates the database name and its changed time.
func (m *Meta) SetName(name string) {
	m.DatabaseName = name
	m.DatabaseNameChanged = Now()
}

// SetDescription updates the description and its changed time.
func (m *Meta) SetDescription(desc string) {
	m.DatabaseDescription = desc
	m.DatabaseDescriptionChanged = Now()
}

// SetDefaultUserName updates the default user name and its changed time.
func (m *Meta) SetDefaultUserName(name string) {
	m.DefaultUserName = name
	m.DefaultUserNameChanged = Now()
}
