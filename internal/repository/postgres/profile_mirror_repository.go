package postgres

import (
	"context"
	"errors"

	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/apperrors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mirrorUpdatedColumns обновляются при повторном входе; created_at сохраняется
var mirrorUpdatedColumns = []string{"display_name", "email", "auth_provider", "last_active_at"}

// ProfileMirrorRepository удаленное зеркало профилей пользователей
type ProfileMirrorRepository struct {
	db *gorm.DB
}

// NewProfileMirrorRepository создает новый экземпляр ProfileMirrorRepository
func NewProfileMirrorRepository(db *gorm.DB) *ProfileMirrorRepository {
	return &ProfileMirrorRepository{
		db: db,
	}
}

// Upsert вставляет строку или обновляет изменяемые поля существующей
func (r *ProfileMirrorRepository) Upsert(ctx context.Context, p *models.UserProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoUpdates: clause.AssignmentColumns(mirrorUpdatedColumns),
		}).
		Create(p).Error
}

// Get получает строку зеркала по uid
func (r *ProfileMirrorRepository) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
