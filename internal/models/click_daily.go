package models

// ClickDaily is the per-alias, per-UTC-day click counter. Buckets are
// created on the first click of a day and only ever incremented.
type ClickDaily struct {
	Alias string `gorm:"primaryKey;size:64" json:"alias"`
	Day   string `gorm:"primaryKey;size:10" json:"day"`
	Count int64  `gorm:"not null;default:0" json:"count"`
}

// TableName matches the name used by the aggregation statements.
func (ClickDaily) TableName() string { return "click_daily" }
