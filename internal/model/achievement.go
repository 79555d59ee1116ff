package model

import "time"

// AchievementUnlock 成就解锁记录，只追加；唯一索引保证每个成就至多解锁一次
type AchievementUnlock struct {
	BaseModel
	UserID        uint      `gorm:"uniqueIndex:idx_user_achievement;not null" json:"userId"`
	AchievementID string    `gorm:"size:50;uniqueIndex:idx_user_achievement;not null" json:"achievementId"`
	Category      string    `gorm:"size:30;not null" json:"category"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlockedAt"`
}

func (AchievementUnlock) TableName() string {
	return "achievement_unlocks"
}
