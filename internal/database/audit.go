package database

import (
	"designpro/internal/models"

	"gorm.io/gorm"
)

// CreateAuditLog пишет запись журнала. Передавайте tx, чтобы запись попала в
// ту же транзакцию, что и само изменение.
func CreateAuditLog(db *gorm.DB, userID uint, entity string, entityID uint, action, details string) error {
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	return db.Omit("User").Create(&record).Error
}

// RecentAuditLogs returns the latest entries, newest first.
func RecentAuditLogs(db *gorm.DB, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.
		Preload("User").
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
