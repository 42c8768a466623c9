package record

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel holds the columns shared by every record table. Embed it as the
// first field of a model struct.
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Token     string    `gorm:"size:32;uniqueIndex;not null" json:"token"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
}

// Record is satisfied by any model embedding BaseModel. The unexported
// methods keep hand-rolled implementations out: a model either embeds
// BaseModel or it is not a record.
type Record interface {
	RecordID() int64
	RecordToken() string
	setToken(string)
	deactivate()
}

// RecordID returns the primary key, zero until the first save.
func (m *BaseModel) RecordID() int64 { return m.ID }

// RecordToken returns the secondary identifier, empty until the first save.
func (m *BaseModel) RecordToken() string { return m.Token }

func (m *BaseModel) setToken(token string) { m.Token = token }

func (m *BaseModel) deactivate() { m.IsActive = false }

// BeforeCreate fills the token for records created directly through GORM
// (Store.Save assigns tokens itself, with a collision probe, before this hook
// runs) and marks the record active. Records are born active; deactivation
// happens through Delete or Update afterwards.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.Token == "" {
		m.Token = NewToken()
	}
	m.IsActive = true
	return nil
}
