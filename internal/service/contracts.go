package service

import (
	"lingua_coach_backend/internal/model"
	"time"
)

// 引擎服务只依赖这里声明的存取契约，不直接持有任何全局句柄。
// gorm 仓库实现这些接口；测试用内存伪实现替换。
// 各服务总是按 读当前状态 → 计算 → 写新状态 顺序串行访问存储，
// 单写者假设下不需要跨行事务。

// Clock 当前毫秒级时间与自然日字符串（2006-01-02）
type Clock interface {
	Now() time.Time
	Today() string
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Today() string { return time.Now().Format(model.DateLayout) }

// NewRealClock 返回挂钟时钟
func NewRealClock() Clock { return realClock{} }

// SessionStore 会话记录的持久化契约
type SessionStore interface {
	FindByID(id uint) (*model.StudySession, error)
	// FindInProgress 不存在时返回 (nil, nil)
	FindInProgress(userID uint, date string) (*model.StudySession, error)
	// FindCompleted 查找某日已完成的会话，不存在时返回 (nil, nil)
	FindCompleted(userID uint, date string) (*model.StudySession, error)
	Create(session *model.StudySession) error
	Save(session *model.StudySession) error
	UpdateNarrative(id uint, result string) error
	ListRecentCompleted(userID uint, limit int) ([]model.StudySession, error)
	ListRecentCompletedForLesson(userID, lessonID uint, limit int) ([]model.StudySession, error)
	CountCompleted(userID uint) (int64, error)
	CountWithStars(userID uint, stars int) (int64, error)
}

// MasteryStore 掌握度/强度状态行的持久化契约；Get 系列缺行时返回 (nil, nil)
type MasteryStore interface {
	GetGrammar(userID, grammarPointID uint) (*model.GrammarMastery, error)
	SaveGrammar(row *model.GrammarMastery) error
	ListGrammarFor(userID uint, grammarPointIDs []uint) ([]model.GrammarMastery, error)
	CountGrammarMastered(userID uint, threshold int) (int64, error)
	ListDueGrammar(userID uint, now time.Time, limit int) ([]model.GrammarMastery, error)
	GetVocab(userID, vocabWordID uint) (*model.VocabStrength, error)
	SaveVocab(row *model.VocabStrength) error
	CountVocabSeen(userID uint) (int64, error)
	CountVocabBlocking(userID uint) (int64, error)
	ListDueVocab(userID uint, now time.Time, limit int) ([]model.VocabStrength, error)
}

// ProgressStore 长期进度行；Get 缺行时返回 (nil, nil)
type ProgressStore interface {
	Get(userID uint) (*model.UserProgress, error)
	Save(progress *model.UserProgress) error
}

// AchievementStore 只追加的解锁记录；Insert 幂等，返回是否真正新插入
type AchievementStore interface {
	ListUnlocked(userID uint) ([]model.AchievementUnlock, error)
	Insert(unlock *model.AchievementUnlock) (bool, error)
}

// ContentProvider 只读内容查找；未命中返回包装过的 util.ErrNotFound
type ContentProvider interface {
	Lesson(id uint) (*model.Lesson, error)
	FirstLesson() (*model.Lesson, error)
	NextLesson(after *model.Lesson) (*model.Lesson, error)
	GrammarPoint(id uint) (*model.GrammarPoint, error)
	GrammarPoints(lessonID uint) ([]model.GrammarPoint, error)
	Drill(id uint) (*model.GrammarDrill, error)
	Drills(grammarPointID uint, kind model.DrillKind) ([]model.GrammarDrill, error)
	Vocab(id uint) (*model.VocabWord, error)
	VocabList(lessonID uint) ([]model.VocabWord, error)
	Sentence(id uint) (*model.Sentence, error)
	Sentences(grammarPointID uint) ([]model.Sentence, error)
	KeyPoints(sentenceID uint) ([]model.SentenceKeyPoint, error)
}
