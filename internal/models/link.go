package models

// Link maps a short alias to a target URL. Identifiers are opaque base62
// strings assigned at creation; aliases are stored case-normalized and are
// globally unique regardless of lifecycle state.
type Link struct {
	ID           string  `gorm:"primaryKey;size:16" json:"id"`
	Alias        string  `gorm:"uniqueIndex;size:64;not null" json:"alias"`
	Target       string  `gorm:"not null" json:"target"`
	CreatedAt    int64   `gorm:"not null" json:"created_at"`
	ExpiresAt    *int64  `json:"expires_at"`
	PasswordHash *string `json:"-"`
	IsActive     int     `gorm:"not null;default:1" json:"is_active"`
	ClicksTotal  int64   `gorm:"not null;default:0" json:"clicks_total"`
	CreatedBy    *string `json:"created_by"`
}

// TableName keeps the table name aligned with the click counters schema.
func (Link) TableName() string { return "links" }

// Active reports whether the link has not been soft-disabled.
func (l *Link) Active() bool { return l.IsActive != 0 }

// Expired reports whether the link's expiry has passed at the supplied unix
// time. A link exactly at its boundary counts as expired.
func (l *Link) Expired(now int64) bool {
	return l.ExpiresAt != nil && *l.ExpiresAt <= now
}

// Protected reports whether the link requires a password before redirecting.
func (l *Link) Protected() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}
