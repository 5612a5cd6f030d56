package db

// Profile caches the signed-in guest's account details for offline display.
type Profile struct {
	ID          int64  `gorm:"primaryKey" json:"-"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	HomeCity    string `json:"home_city,omitempty"`
}
