package database

import "lcnetwork/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Parents come before the tables that reference them.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserRole{},
		&models.UserActivityLog{},
		&models.UserBlock{},
		&models.Post{},
		&models.PostMedia{},
		&models.Share{},
		&models.Comment{},
		&models.Like{},
		&models.Friendship{},
		&models.ModerationQueueItem{},
		&models.Appeal{},
		&models.ViolationHistory{},
		&models.BannedKeyword{},
		&models.Report{},
		&models.Notification{},
	}
}
