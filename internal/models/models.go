package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the classification stored on a UserProfile. RoleUnauthenticated is
// never persisted; it is the derived classification for anonymous callers.
type Role string

const (
	RoleAdmin           Role = "Admin"
	RoleLibrarian       Role = "Librarian"
	RoleMember          Role = "Member"
	RoleUnauthenticated Role = "Unauthenticated"
)

// Valid reports whether r is one of the three persistable roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return true
	}
	return false
}

// Capability codenames attached to users independently of role.
const (
	PermAddBook    = "can_add_book"
	PermChangeBook = "can_change_book"
	PermDeleteBook = "can_delete_book"
)

// DefaultPermissions are seeded at startup so grants can reference them.
func DefaultPermissions() []Permission {
	return []Permission{
		{Codename: PermAddBook, Name: "Can add book"},
		{Codename: PermChangeBook, Name: "Can change book"},
		{Codename: PermDeleteBook, Name: "Can delete book"},
	}
}

type Author struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"size:255;not null;index" json:"name"`
	Books []Book    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"books,omitempty"`
}

func (a *Author) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Book struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	AuthorID        uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Author          Author    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	PublicationYear *int      `json:"publication_year,omitempty"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type Library struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Books []Book    `gorm:"many2many:library_books;" json:"books,omitempty"`
}

func (l *Library) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Librarian is assigned to exactly one library.
type Librarian struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	LibraryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"library_id"`
	Library   Library   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (l *Librarian) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Permission is a coarse capability flag grantable to users. Checks against
// it are independent of the role stored on the profile.
type Permission struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Codename string `gorm:"size:100;uniqueIndex;not null" json:"codename"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

type User struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string       `gorm:"size:150;uniqueIndex;not null" json:"username"`
	PasswordHash string       `gorm:"size:255;not null" json:"-"`
	Permissions  []Permission `gorm:"many2many:user_permissions;" json:"permissions,omitempty"`
	Profile      *UserProfile `gorm:"constraint:OnDelete:CASCADE;" json:"profile,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasPermission reports whether the codename has been granted to the user.
// Permissions must be preloaded.
func (u *User) HasPermission(codename string) bool {
	for _, p := range u.Permissions {
		if p.Codename == codename {
			return true
		}
	}
	return false
}

// UserProfile carries the role for exactly one user. It is created in the
// same transaction as its User and never directly by handler code.
type UserProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Role      Role      `gorm:"size:20;not null;default:'Member'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *UserProfile) String() string {
	return fmt.Sprintf("%s (%s)", p.UserID, p.Role)
}
