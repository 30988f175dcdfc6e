package models

import "time"

// SystemSetting stores small operational key/value pairs, such as the
// generated admin session secret.
type SystemSetting struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
