package db

// Stay is a locally cached listing from the guest's saved stays.
// Data carries the raw API payload; Fingerprint is its sha256 so a
// refresh can tell which listings actually changed.
type Stay struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"index" json:"title"` // Indexed for faster queries
	City        string `gorm:"index" json:"city"`
	Data        string `json:"data"`
	Fingerprint string `json:"fingerprint"`
}
