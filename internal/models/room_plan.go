package models

import "time"

type PlanStatus string

const (
	StatusNew        PlanStatus = "new"
	StatusInProgress PlanStatus = "in_progress"
	StatusCompleted  PlanStatus = "completed"
)

var PlanStatuses = []PlanStatus{StatusNew, StatusInProgress, StatusCompleted}

func (s PlanStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s PlanStatus) Title() string {
	switch s {
	case StatusNew:
		return "Новая"
	case StatusInProgress:
		return "Принято в работу"
	case StatusCompleted:
		return "Выполнено"
	}
	return string(s)
}

// RoomPlan: заявка клиента на дизайн помещения.
type RoomPlan struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"<-:create;not null;index"`
	UpdatedAt time.Time

	OwnerID uint `gorm:"not null;index"`
	Owner   User

	Title       string `gorm:"size:200;not null"`
	Description string `gorm:"type:text;not null"`

	CategoryID uint     `gorm:"not null;index"`
	Category   Category `gorm:"constraint:OnDelete:RESTRICT"`

	PlanImage string     `gorm:"size:255"`
	Status    PlanStatus `gorm:"type:varchar(20);not null;default:new;index"`

	DesignImage  string `gorm:"size:255"`
	AdminComment string `gorm:"type:text"`

	AssignedToID *uint
	AssignedTo   *User `gorm:"constraint:OnDelete:SET NULL"`
}

// CanBeDeleted: удалять можно только новые заявки.
func (p RoomPlan) CanBeDeleted() bool {
	return p.Status == StatusNew
}
