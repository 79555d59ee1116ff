package model

import "time"

// GrammarMastery 单个语法点的长期掌握度状态，首次作答时惰性创建
// Mastery 始终被钳制在 [0,100]
type GrammarMastery struct {
	BaseModel
	UserID         uint       `gorm:"uniqueIndex:idx_user_grammar;not null" json:"userId"`
	GrammarPointID uint       `gorm:"uniqueIndex:idx_user_grammar;not null" json:"grammarPointId"`
	Mastery        int        `gorm:"default:0" json:"mastery"`
	CorrectStreak  int        `gorm:"default:0" json:"correctStreak"`
	WrongCount7d   int        `gorm:"default:0" json:"wrongCount7d"`
	LastSeenAt     *time.Time `json:"lastSeenAt"`
	NextReviewAt   *time.Time `gorm:"index" json:"nextReviewAt"`
}

func (GrammarMastery) TableName() string {
	return "grammar_masteries"
}

// VocabStrength 单个词汇的记忆强度状态
// IsBlocking 在七日错误数达到 3 后置位，且保持粘性直到外部清除
type VocabStrength struct {
	BaseModel
	UserID       uint       `gorm:"uniqueIndex:idx_user_vocab;not null" json:"userId"`
	VocabWordID  uint       `gorm:"uniqueIndex:idx_user_vocab;not null" json:"vocabWordId"`
	Strength     int        `gorm:"default:0" json:"strength"`
	WrongCount7d int        `gorm:"default:0" json:"wrongCount7d"`
	IsBlocking   bool       `gorm:"default:false" json:"isBlocking"`
	LastSeenAt   *time.Time `json:"lastSeenAt"`
	NextReviewAt *time.Time `gorm:"index" json:"nextReviewAt"`
}

func (VocabStrength) TableName() string {
	return "vocab_strengths"
}
