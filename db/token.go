package db

// Token holds the session credentials for the signed-in guest.
// Exactly one row exists at a time; the repository pins its ID.
type Token struct {
	ID           int64  `gorm:"primaryKey" json:"-"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}
