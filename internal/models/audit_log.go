package models

import "time"

const (
	EntityRoomPlan = "room_plan"
	EntityCategory = "category"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	UserID uint
	User   User

	Entity   string `gorm:"size:50;not null"` // "room_plan", "category"
	EntityID uint
	Action   string `gorm:"size:50;not null"` // "create", "status_change" и т.п.
	Details  string `gorm:"type:text"`
}
