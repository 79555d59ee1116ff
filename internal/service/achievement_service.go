package service

import (
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/srs"
	"time"

	"go.uber.org/zap"
)

// AggregateStats 成就判定用的聚合统计快照
type AggregateStats struct {
	SessionsCompleted int64
	FiveStarSessions  int64
	GrammarMastered   int64
	VocabSeen         int64
	CurrentLevel      int
	BestStreak        int
}

// AchievementRule 一条成就规则：固定 ID + 聚合统计上的判定谓词
type AchievementRule struct {
	ID          string
	Category    string
	Title       string
	Description string
	Check       func(AggregateStats) bool
}

// 成就目录。顺序即展示顺序；ID 一经发布不再变更，解锁记录以 ID 关联。
var achievementCatalog = []AchievementRule{
	{
		ID: "first_session", Category: "session",
		Title: "第一步", Description: "完成第一次学习会话",
		Check: func(s AggregateStats) bool { return s.SessionsCompleted >= 1 },
	},
	{
		ID: "ten_sessions", Category: "session",
		Title: "渐入佳境", Description: "累计完成 10 次学习会话",
		Check: func(s AggregateStats) bool { return s.SessionsCompleted >= 10 },
	},
	{
		ID: "fifty_sessions", Category: "session",
		Title: "持之以恒", Description: "累计完成 50 次学习会话",
		Check: func(s AggregateStats) bool { return s.SessionsCompleted >= 50 },
	},
	{
		ID: "first_five_star", Category: "session",
		Title: "满分时刻", Description: "获得第一个五星会话",
		Check: func(s AggregateStats) bool { return s.FiveStarSessions >= 1 },
	},
	{
		ID: "ten_five_star", Category: "session",
		Title: "精益求精", Description: "累计获得 10 个五星会话",
		Check: func(s AggregateStats) bool { return s.FiveStarSessions >= 10 },
	},
	{
		ID: "grammar_apprentice", Category: "grammar",
		Title: "语法学徒", Description: "掌握 5 个语法点",
		Check: func(s AggregateStats) bool { return s.GrammarMastered >= 5 },
	},
	{
		ID: "grammar_master", Category: "grammar",
		Title: "语法大师", Description: "掌握 25 个语法点",
		Check: func(s AggregateStats) bool { return s.GrammarMastered >= 25 },
	},
	{
		ID: "vocab_collector", Category: "vocab",
		Title: "词汇收藏家", Description: "学习过 100 个词汇",
		Check: func(s AggregateStats) bool { return s.VocabSeen >= 100 },
	},
	{
		ID: "level_5", Category: "level",
		Title: "小有所成", Description: "达到等级 5",
		Check: func(s AggregateStats) bool { return s.CurrentLevel >= 5 },
	},
	{
		ID: "level_10", Category: "level",
		Title: "登峰造极", Description: "达到最高等级 10",
		Check: func(s AggregateStats) bool { return s.CurrentLevel >= MaxLevel },
	},
	{
		ID: "week_streak", Category: "streak",
		Title: "七日之约", Description: "连续学习 7 天",
		Check: func(s AggregateStats) bool { return s.BestStreak >= 7 },
	},
	{
		ID: "month_streak", Category: "streak",
		Title: "三十而立", Description: "连续学习 30 天",
		Check: func(s AggregateStats) bool { return s.BestStreak >= 30 },
	},
}

// AchievementService 在会话结算后对目录逐条求值并幂等落库。
// 判定失败不影响会话结果，由调用方记录日志后吞掉。
type AchievementService struct {
	unlocks  AchievementStore
	sessions SessionStore
	mastery  MasteryStore
	progress ProgressStore
	clock    Clock
	logger   *zap.Logger
}

func NewAchievementService(unlocks AchievementStore, sessions SessionStore,
	mastery MasteryStore, progress ProgressStore, clock Clock, logger *zap.Logger) *AchievementService {
	return &AchievementService{
		unlocks:  unlocks,
		sessions: sessions,
		mastery:  mastery,
		progress: progress,
		clock:    clock,
		logger:   logger,
	}
}

func (s *AchievementService) collectStats(userID uint) (AggregateStats, error) {
	var stats AggregateStats
	var err error

	if stats.SessionsCompleted, err = s.sessions.CountCompleted(userID); err != nil {
		return stats, err
	}
	if stats.FiveStarSessions, err = s.sessions.CountWithStars(userID, 5); err != nil {
		return stats, err
	}
	if stats.GrammarMastered, err = s.mastery.CountGrammarMastered(userID, srs.MasteredThreshold); err != nil {
		return stats, err
	}
	if stats.VocabSeen, err = s.mastery.CountVocabSeen(userID); err != nil {
		return stats, err
	}
	progress, err := s.progress.Get(userID)
	if err != nil {
		return stats, err
	}
	if progress != nil {
		stats.CurrentLevel = progress.CurrentLevel
		stats.BestStreak = progress.StreakDays
		if progress.MaxStreakDays > stats.BestStreak {
			stats.BestStreak = progress.MaxStreakDays
		}
	}
	return stats, nil
}

// Evaluate 逐条检查未解锁的成就，返回本次新解锁的记录。
// 插入幂等，重复结算同一会话不会产生重复解锁。
func (s *AchievementService) Evaluate(userID uint) ([]model.AchievementUnlock, error) {
	stats, err := s.collectStats(userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.unlocks.ListUnlocked(userID)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[string]bool, len(existing))
	for _, u := range existing {
		unlocked[u.AchievementID] = true
	}

	var fresh []model.AchievementUnlock
	now := s.clock.Now()
	for _, rule := range achievementCatalog {
		if unlocked[rule.ID] || !rule.Check(stats) {
			continue
		}
		unlock := model.AchievementUnlock{
			UserID:        userID,
			AchievementID: rule.ID,
			Category:      rule.Category,
			UnlockedAt:    now,
		}
		inserted, err := s.unlocks.Insert(&unlock)
		if err != nil {
			return fresh, err
		}
		if inserted {
			s.logger.Info("解锁成就",
				zap.Uint("userId", userID), zap.String("achievementId", rule.ID))
			fresh = append(fresh, unlock)
		}
	}
	return fresh, nil
}

// AchievementView 目录项及其解锁状态
type AchievementView struct {
	ID          string     `json:"id"`
	Category    string     `json:"category"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// ListAll 按目录顺序返回全部成就及解锁状态
func (s *AchievementService) ListAll(userID uint) ([]AchievementView, error) {
	existing, err := s.unlocks.ListUnlocked(userID)
	if err != nil {
		return nil, err
	}
	unlockedAt := make(map[string]time.Time, len(existing))
	for _, u := range existing {
		unlockedAt[u.AchievementID] = u.UnlockedAt
	}

	out := make([]AchievementView, 0, len(achievementCatalog))
	for _, rule := range achievementCatalog {
		view := AchievementView{
			ID:          rule.ID,
			Category:    rule.Category,
			Title:       rule.Title,
			Description: rule.Description,
		}
		if at, ok := unlockedAt[rule.ID]; ok {
			view.Unlocked = true
			view.UnlockedAt = &at
		}
		out = append(out, view)
	}
	return out, nil
}
