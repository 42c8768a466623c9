// Package directory implements the demo user-directory service built on the
// record store.
package directory

import "github.com/thebtf/recordkit/pkg/record"

// User is a directory entry. Embedding record.BaseModel gives it id, token,
// timestamps and the soft-delete flag.
type User struct {
	record.BaseModel
	Email        string `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Name         string `gorm:"size:80" json:"name"`
	PasswordHash string `gorm:"size:100;column:password;not null" json:"-"`
}

// TableName returns the table name for User.
func (User) TableName() string { return "users" }

// Password returns the stored password value (plaintext before the first
// save, bcrypt hash after).
func (u *User) Password() string { return u.PasswordHash }

// SetPassword replaces the stored password value.
func (u *User) SetPassword(v string) { u.PasswordHash = v }

var _ record.PasswordBearer = (*User)(nil)
