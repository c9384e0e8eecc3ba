package models

import "time"

type Role string

const (
	RoleClient  Role = "client"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ParseRole принимает только известные роли; всё остальное (например
// "designer" из старых скриптов) не даёт никаких прав.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleClient, RoleManager, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

func (r Role) Title() string {
	switch r {
	case RoleAdmin:
		return "Администратор"
	case RoleManager:
		return "Менеджер"
	default:
		return "Пользователь"
	}
}

// User: учётная запись пользователя.
type User struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex;size:150;not null"`
	Email        string `gorm:"size:254"`
	PasswordHash string `gorm:"not null"`
	// IsPrivileged: «служебная» учётка (создаётся сидом как суперпользователь).
	IsPrivileged bool `gorm:"not null;default:false"`

	Profile *Profile
}

// Profile связывает пользователя с ролью. Заводится при регистрации.
type Profile struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID       uint   `gorm:"uniqueIndex;not null"`
	DisplayName  string `gorm:"size:200"`
	Role         Role   `gorm:"type:varchar(20);not null;default:client"`
	ConsentGiven bool   `gorm:"not null;default:false"`
}
