package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User is a student or an administrator together with the activity counters
// used as badge inputs. The counters are caches: reconcile can rebuild them
// from complaints at any time.
type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Name         string `gorm:"not null" json:"name"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"not null;default:student" json:"role"`

	Reputation          int `gorm:"not null;default:0" json:"reputation"`
	ComplaintsSubmitted int `gorm:"not null;default:0" json:"complaintsSubmitted"`
	ComplaintsResolved  int `gorm:"not null;default:0" json:"complaintsResolved"`

	IsActive bool        `gorm:"not null;default:true;index" json:"isActive"`
	Badges   []UserBadge `gorm:"foreignKey:UserID" json:"badges,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user may triage complaints.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// BeforeCreate fills in a UUID when the caller did not supply one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Principal is the authenticated actor attached to a request.
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanModify reports whether the principal owns the content or is an admin.
func (p Principal) CanModify(ownerID string) bool {
	return p.IsAdmin() || (p.ID != "" && p.ID == ownerID)
}
