package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// AnonymousEmail identifies the placeholder account that owns reports
// submitted without a resolvable user.
const AnonymousEmail = "anonymous@civicreporter.com"

type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" bson:"email" json:"email"`
	Mobile    *string   `gorm:"uniqueIndex;size:32" bson:"mobile,omitempty" json:"mobile,omitempty"`
	Password  string    `gorm:"not null" bson:"password,omitempty" json:"-"`
	Name      string    `gorm:"size:100" bson:"name" json:"name"`
	Role      Role      `gorm:"size:10;not null;default:USER" bson:"role" json:"role"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// IsAnonymous reports whether u is the shared anonymous owner account.
func (u *User) IsAnonymous() bool {
	return u.Email == AnonymousEmail
}
