package repository

import (
	"errors"
	"lingua_coach_backend/internal/model"

	"gorm.io/gorm"
)

// ProgressRepository 每用户唯一的长期进度行。Get 在行不存在时返回 (nil, nil)。
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) Get(userID uint) (*model.UserProgress, error) {
	var progress model.UserProgress
	err := r.DB.Where("user_id = ?", userID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) Save(progress *model.UserProgress) error {
	return r.DB.Save(progress).Error
}
