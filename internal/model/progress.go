package model

// UserProgress 每个用户唯一的长期进度行，每次会话完成后更新
type UserProgress struct {
	BaseModel
	UserID              uint   `gorm:"uniqueIndex;not null" json:"userId"`
	CurrentLessonID     uint   `gorm:"not null" json:"currentLessonId"`
	CurrentGrammarIndex int    `gorm:"default:0" json:"currentGrammarIndex"`
	CurrentLevel        int    `gorm:"default:1" json:"currentLevel"` // 1-10
	StreakDays          int    `gorm:"default:0" json:"streakDays"`
	MaxStreakDays       int    `gorm:"default:0" json:"maxStreakDays"`
	LastActiveDate      string `gorm:"size:10" json:"lastActiveDate"`
}

func (UserProgress) TableName() string {
	return "user_progresses"
}
