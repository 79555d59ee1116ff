package service

import (
	"fmt"
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/srs"
	"lingua_coach_backend/internal/util"

	"go.uber.org/zap"
)

const defaultQueueLimit = 20

// ReviewService 跨课程的复习队列：汇集所有到期的语法点与词汇，
// 并处理会话之外的单条复习评分。
type ReviewService struct {
	mastery MasteryStore
	content ContentProvider
	clock   Clock
	logger  *zap.Logger
	fastMs  int64
}

func NewReviewService(mastery MasteryStore, content ContentProvider,
	clock Clock, logger *zap.Logger, fastAnswerMs int64) *ReviewService {
	return &ReviewService{
		mastery: mastery,
		content: content,
		clock:   clock,
		logger:  logger,
		fastMs:  fastAnswerMs,
	}
}

// GrammarReviewItem 到期的语法点复习项
type GrammarReviewItem struct {
	GrammarPointID uint   `json:"grammarPointId"`
	Title          string `json:"title"`
	Pattern        string `json:"pattern"`
	Mastery        int    `json:"mastery"`
}

// VocabReviewItem 到期的词汇复习项
type VocabReviewItem struct {
	VocabWordID uint   `json:"vocabWordId"`
	Word        string `json:"word"`
	Reading     string `json:"reading"`
	Meaning     string `json:"meaning"`
	Strength    int    `json:"strength"`
	Blocking    bool   `json:"blocking"`
}

// ReviewQueue 复习队列快照，弱项排在前面
type ReviewQueue struct {
	Grammar       []GrammarReviewItem `json:"grammar"`
	Vocab         []VocabReviewItem   `json:"vocab"`
	DueCount      int                 `json:"dueCount"`
	BlockingCount int64               `json:"blockingCount"`
}

// DueQueue 截至当前时刻到期的全部复习项。
// 状态行引用的内容已被删除时跳过该项，不让残留排期打断队列。
func (s *ReviewService) DueQueue(userID uint, limit int) (*ReviewQueue, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultQueueLimit
	}
	now := s.clock.Now()

	grammarRows, err := s.mastery.ListDueGrammar(userID, now, limit)
	if err != nil {
		return nil, err
	}
	vocabRows, err := s.mastery.ListDueVocab(userID, now, limit)
	if err != nil {
		return nil, err
	}

	queue := &ReviewQueue{
		Grammar: make([]GrammarReviewItem, 0, len(grammarRows)),
		Vocab:   make([]VocabReviewItem, 0, len(vocabRows)),
	}
	for _, row := range grammarRows {
		gp, err := s.content.GrammarPoint(row.GrammarPointID)
		if err != nil {
			s.logger.Warn("复习项指向的语法点不存在，跳过",
				zap.Uint("grammarPointId", row.GrammarPointID), zap.Error(err))
			continue
		}
		queue.Grammar = append(queue.Grammar, GrammarReviewItem{
			GrammarPointID: gp.ID,
			Title:          gp.Title,
			Pattern:        gp.Pattern,
			Mastery:        row.Mastery,
		})
	}
	for _, row := range vocabRows {
		word, err := s.content.Vocab(row.VocabWordID)
		if err != nil {
			s.logger.Warn("复习项指向的词汇不存在，跳过",
				zap.Uint("vocabWordId", row.VocabWordID), zap.Error(err))
			continue
		}
		queue.Vocab = append(queue.Vocab, VocabReviewItem{
			VocabWordID: word.ID,
			Word:        word.Word,
			Reading:     word.Reading,
			Meaning:     word.Meaning,
			Strength:    row.Strength,
			Blocking:    row.IsBlocking,
		})
	}
	queue.DueCount = len(queue.Grammar) + len(queue.Vocab)
	if queue.BlockingCount, err = s.mastery.CountVocabBlocking(userID); err != nil {
		return nil, err
	}
	return queue, nil
}

// 复习自评档位
const (
	RatingAgain = "again" // 没想起来，明天再来
	RatingGood  = "good"  // 想起来了
	RatingEasy  = "easy"  // 毫不费力
)

// RateResult 单条复习评分后的新状态
type RateResult struct {
	Metric       int `json:"metric"` // 掌握度或强度
	IntervalDays int `json:"intervalDays"`
}

// RateGrammar 对单个语法点做复习自评。
// again 按一次答错处理；good 按一次答对；easy 按连续两次答对，间隔拉得更长。
func (s *ReviewService) RateGrammar(userID, grammarPointID uint, rating string) (*RateResult, error) {
	if _, err := s.content.GrammarPoint(grammarPointID); err != nil {
		return nil, err
	}
	correct, err := ratingAnswers(rating)
	if err != nil {
		return nil, err
	}

	row, err := s.mastery.GetGrammar(userID, grammarPointID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &model.GrammarMastery{UserID: userID, GrammarPointID: grammarPointID}
	}
	upd := srs.UpdateGrammar(srs.GrammarState{
		Mastery:       row.Mastery,
		CorrectStreak: row.CorrectStreak,
		WrongCount:    row.WrongCount7d,
	}, correct)

	now := s.clock.Now()
	next := now.AddDate(0, 0, upd.IntervalDays)
	row.Mastery = upd.State.Mastery
	row.CorrectStreak = upd.State.CorrectStreak
	row.WrongCount7d = upd.State.WrongCount
	row.LastSeenAt = &now
	row.NextReviewAt = &next
	if err := s.mastery.SaveGrammar(row); err != nil {
		return nil, err
	}
	return &RateResult{Metric: row.Mastery, IntervalDays: upd.IntervalDays}, nil
}

// RateVocab 对单个词汇做复习自评。easy 视为速答，吃到反应速度加分。
func (s *ReviewService) RateVocab(userID, vocabWordID uint, rating string) (*RateResult, error) {
	if _, err := s.content.Vocab(vocabWordID); err != nil {
		return nil, err
	}

	ans := srs.VocabAnswer{}
	switch rating {
	case RatingAgain:
		ans.Correct = false
	case RatingGood:
		ans.Correct = true
		ans.ElapsedMs = s.fastMs // 不低于阈值，不触发速答加分
	case RatingEasy:
		ans.Correct = true
		ans.ElapsedMs = 1
	default:
		return nil, fmt.Errorf("unknown rating %q: %w", rating, util.ErrInvalidState)
	}

	row, err := s.mastery.GetVocab(userID, vocabWordID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &model.VocabStrength{UserID: userID, VocabWordID: vocabWordID}
	}
	upd := srs.UpdateVocab(srs.VocabState{
		Strength:   row.Strength,
		WrongCount: row.WrongCount7d,
		Blocking:   row.IsBlocking,
	}, ans, s.fastMs)

	now := s.clock.Now()
	next := now.AddDate(0, 0, upd.IntervalDays)
	row.Strength = upd.State.Strength
	row.WrongCount7d = upd.State.WrongCount
	row.IsBlocking = upd.State.Blocking
	row.LastSeenAt = &now
	row.NextReviewAt = &next
	if err := s.mastery.SaveVocab(row); err != nil {
		return nil, err
	}
	return &RateResult{Metric: row.Strength, IntervalDays: upd.IntervalDays}, nil
}

func ratingAnswers(rating string) ([]bool, error) {
	switch rating {
	case RatingAgain:
		return []bool{false}, nil
	case RatingGood:
		return []bool{true}, nil
	case RatingEasy:
		return []bool{true, true}, nil
	default:
		return nil, fmt.Errorf("unknown rating %q: %w", rating, util.ErrInvalidState)
	}
}
