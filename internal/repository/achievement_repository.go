package repository

import (
	"lingua_coach_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) ListUnlocked(userID uint) ([]model.AchievementUnlock, error) {
	var unlocks []model.AchievementUnlock
	err := r.DB.Where("user_id = ?", userID).Order("unlocked_at asc").Find(&unlocks).Error
	if err != nil {
		return nil, err
	}
	return unlocks, nil
}

// Insert 幂等插入解锁记录。唯一索引 + DO NOTHING 吸收并发竞争，
// 返回本次是否真正插入了新行。
func (r *AchievementRepository) Insert(unlock *model.AchievementUnlock) (bool, error) {
	result := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(unlock)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
