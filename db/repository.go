package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StayRepository defines decoupled operations for saved-stay persistence.
type StayRepository interface {
	Put(ctx context.Context, s Stay) error
	GetByID(ctx context.Context, id int) (*Stay, error)
	List(ctx context.Context) ([]Stay, error)
	SearchByTitle(ctx context.Context, titleSubstr string) ([]Stay, error)
	Clear(ctx context.Context) error
}

// TokenRepository defines decoupled operations for token persistence.
type TokenRepository interface {
	Get(ctx context.Context) (*Token, error)
	Upsert(ctx context.Context, token *Token) error
	Clear(ctx context.Context) error
}

// ProfileRepository defines decoupled operations for the cached guest profile.
type ProfileRepository interface {
	Get(ctx context.Context) (*Profile, error)
	Upsert(ctx context.Context, profile *Profile) error
	Clear(ctx context.Context) error
}

// gormStayRepo is a GORM-backed implementation of StayRepository.
// Use constructor NewStayRepository to obtain an instance.
type gormStayRepo struct{ db *gorm.DB }

// gormTokenRepo is a GORM-backed implementation of TokenRepository.
// Use constructor NewTokenRepository to obtain an instance.
type gormTokenRepo struct{ db *gorm.DB }

// gormProfileRepo is a GORM-backed implementation of ProfileRepository.
// Use constructor NewProfileRepository to obtain an instance.
type gormProfileRepo struct{ db *gorm.DB }

// NewStayRepository creates a StayRepository. Accepts *gorm.DB to avoid global access.
func NewStayRepository(db *gorm.DB) StayRepository { return &gormStayRepo{db: db} }

// NewTokenRepository creates a TokenRepository. Accepts *gorm.DB to avoid global access.
func NewTokenRepository(db *gorm.DB) TokenRepository { return &gormTokenRepo{db: db} }

// NewProfileRepository creates a ProfileRepository. Accepts *gorm.DB to avoid global access.
func NewProfileRepository(db *gorm.DB) ProfileRepository { return &gormProfileRepo{db: db} }

func (r *gormStayRepo) Put(ctx context.Context, s Stay) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&s).Error
}

func (r *gormStayRepo) GetByID(ctx context.Context, id int) (*Stay, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var stay Stay
	err := r.db.WithContext(ctx).First(&stay, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stay, nil
}

func (r *gormStayRepo) List(ctx context.Context) ([]Stay, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var stays []Stay
	if err := r.db.WithContext(ctx).Find(&stays).Error; err != nil {
		return nil, err
	}
	return stays, nil
}

func (r *gormStayRepo) SearchByTitle(ctx context.Context, titleSubstr string) ([]Stay, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var stays []Stay
	if err := r.db.WithContext(ctx).Where("title LIKE ?", "%"+titleSubstr+"%").Find(&stays).Error; err != nil {
		return nil, err
	}
	return stays, nil
}

func (r *gormStayRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Stay{}).Error
}

func (r *gormTokenRepo) Get(ctx context.Context) (*Token, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var token Token
	err := r.db.WithContext(ctx).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *gormTokenRepo) Upsert(ctx context.Context, token *Token) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	token.ID = 1
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at"}),
	}).Create(token).Error
}

func (r *gormTokenRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Token{}).Error
}

func (r *gormProfileRepo) Get(ctx context.Context) (*Profile, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var profile Profile
	err := r.db.WithContext(ctx).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *gormProfileRepo) Upsert(ctx context.Context, profile *Profile) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	profile.ID = 1
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "home_city"}),
	}).Create(profile).Error
}

func (r *gormProfileRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Profile{}).Error
}
