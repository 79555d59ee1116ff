package service

import (
	"errors"
	"fmt"
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/srs"
	"lingua_coach_backend/internal/util"
	"time"

	"go.uber.org/zap"
)

const (
	// MinLevel / MaxLevel 难度等级区间
	MinLevel = 1
	MaxLevel = 10

	// lessonGateSessions 课程完成门槛统计的最近会话数上限
	lessonGateSessions = 7
)

// ProgressService 进度协调器：会话结算后更新掌握度、强度、复习排期、
// 连续学习天数与课程推进。只在会话结算时被调用一次。
type ProgressService struct {
	store    ProgressStore
	mastery  MasteryStore
	sessions SessionStore
	content  ContentProvider
	clock    Clock
	logger   *zap.Logger
	fastMs   int64
}

func NewProgressService(store ProgressStore, mastery MasteryStore, sessions SessionStore,
	content ContentProvider, clock Clock, logger *zap.Logger, fastAnswerMs int64) *ProgressService {
	return &ProgressService{
		store:    store,
		mastery:  mastery,
		sessions: sessions,
		content:  content,
		clock:    clock,
		logger:   logger,
		fastMs:   fastAnswerMs,
	}
}

// ApplySessionResult 把一次已完成会话的全部影响落账：
// 语法掌握度（含例句奖惩）、词汇强度、复习排期、连续天数、等级与课程推进。
// 写入按固定顺序串行执行，任何一步失败即中断并原样上抛。
func (p *ProgressService) ApplySessionResult(session *model.StudySession, st *model.StepState, result *model.SessionResult) error {
	now := p.clock.Now()

	if err := p.applyGrammar(session, st, now); err != nil {
		return err
	}
	if err := p.applyVocab(session.UserID, st.Vocab.Answers, now); err != nil {
		return err
	}
	return p.applyProgress(session, result)
}

// applyGrammar 按语法点分组应用答题序列，然后对会话主语法点施加例句奖惩
func (p *ProgressService) applyGrammar(session *model.StudySession, st *model.StepState, now time.Time) error {
	answers := make([]model.AnswerRecord, 0, len(st.Grammar.Answers)+len(st.Transfer.Answers))
	answers = append(answers, st.Grammar.Answers...)
	answers = append(answers, st.Transfer.Answers...)

	// 按首次出现顺序分组
	order := make([]uint, 0, 4)
	groups := make(map[uint][]bool)
	for _, a := range answers {
		gpID := a.Ref.GrammarPointID
		if gpID == 0 {
			continue
		}
		if _, seen := groups[gpID]; !seen {
			order = append(order, gpID)
		}
		groups[gpID] = append(groups[gpID], a.Correct)
	}

	for _, gpID := range order {
		row, err := p.grammarRow(session.UserID, gpID)
		if err != nil {
			return err
		}
		upd := srs.UpdateGrammar(srs.GrammarState{
			Mastery:       row.Mastery,
			CorrectStreak: row.CorrectStreak,
			WrongCount:    row.WrongCount7d,
		}, groups[gpID])
		row.Mastery = upd.State.Mastery
		row.CorrectStreak = upd.State.CorrectStreak
		row.WrongCount7d = upd.State.WrongCount
		row.LastSeenAt = &now
		next := now.AddDate(0, 0, upd.IntervalDays)
		row.NextReviewAt = &next
		if err := p.mastery.SaveGrammar(row); err != nil {
			return err
		}
	}

	// 例句环节的结果只作用于会话主语法点，逐条结算：
	// 每条通过 → 掌握度 +3（复习排期不变）；只要有未通过 → 下次复习提前到明天
	if len(st.Sentence.Submissions) == 0 {
		return nil
	}
	row, err := p.grammarRow(session.UserID, session.GrammarPointID)
	if err != nil {
		return err
	}
	anyFailed := false
	for _, sub := range st.Sentence.Submissions {
		if sub.Passed {
			row.Mastery = srs.Clamp(row.Mastery+srs.SentencePassBonus, 0, 100)
		} else {
			anyFailed = true
		}
	}
	if anyFailed {
		next := now.AddDate(0, 0, 1)
		row.NextReviewAt = &next
	}
	return p.mastery.SaveGrammar(row)
}

// grammarRow 取出或惰性创建掌握度行
func (p *ProgressService) grammarRow(userID, grammarPointID uint) (*model.GrammarMastery, error) {
	row, err := p.mastery.GetGrammar(userID, grammarPointID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &model.GrammarMastery{UserID: userID, GrammarPointID: grammarPointID}
	}
	return row, nil
}

func (p *ProgressService) applyVocab(userID uint, answers []model.AnswerRecord, now time.Time) error {
	for _, a := range answers {
		row, err := p.mastery.GetVocab(userID, a.Ref.TargetID)
		if err != nil {
			return err
		}
		if row == nil {
			row = &model.VocabStrength{UserID: userID, VocabWordID: a.Ref.TargetID}
		}
		upd := srs.UpdateVocab(srs.VocabState{
			Strength:   row.Strength,
			WrongCount: row.WrongCount7d,
			Blocking:   row.IsBlocking,
		}, srs.VocabAnswer{Correct: a.Correct, ElapsedMs: a.ElapsedMs}, p.fastMs)
		row.Strength = upd.State.Strength
		row.WrongCount7d = upd.State.WrongCount
		row.IsBlocking = upd.State.Blocking
		row.LastSeenAt = &now
		next := now.AddDate(0, 0, upd.IntervalDays)
		row.NextReviewAt = &next
		if err := p.mastery.SaveVocab(row); err != nil {
			return err
		}
	}
	return nil
}

// applyProgress 更新连续天数、等级与课程内推进
func (p *ProgressService) applyProgress(session *model.StudySession, result *model.SessionResult) error {
	progress, err := p.store.Get(session.UserID)
	if err != nil {
		return err
	}
	if progress == nil {
		progress = &model.UserProgress{
			UserID:          session.UserID,
			CurrentLessonID: session.LessonID,
			CurrentLevel:    session.Level,
		}
	}

	p.applyStreak(progress, session.SessionDate)

	if result.LevelChange == srs.LevelUp {
		progress.CurrentLevel = srs.Clamp(progress.CurrentLevel+1, MinLevel, MaxLevel)
	}

	if err := p.advance(progress, session); err != nil {
		return err
	}
	return p.store.Save(progress)
}

// applyStreak 连续天数规则：昨天学过 +1，断档重置为 1，同一天重复结算不变
func (p *ProgressService) applyStreak(progress *model.UserProgress, today string) {
	if progress.LastActiveDate == today {
		return
	}
	if progress.LastActiveDate == previousDay(today) {
		progress.StreakDays++
	} else {
		progress.StreakDays = 1
	}
	if progress.StreakDays > progress.MaxStreakDays {
		progress.MaxStreakDays = progress.StreakDays
	}
	progress.LastActiveDate = today
}

func previousDay(date string) string {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(model.DateLayout)
}

// advance 课程内推进：会话主语法点达到掌握线后前进一格；
// 走完课内所有语法点后检查课程完成门槛，全部满足才进入下一课。
func (p *ProgressService) advance(progress *model.UserProgress, session *model.StudySession) error {
	if session.LessonID != progress.CurrentLessonID {
		return nil
	}

	points, err := p.content.GrammarPoints(progress.CurrentLessonID)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	idx := progress.CurrentGrammarIndex
	if idx < 0 || idx >= len(points) {
		idx = len(points) - 1
	}
	if points[idx].ID != session.GrammarPointID {
		return nil
	}

	row, err := p.mastery.GetGrammar(session.UserID, session.GrammarPointID)
	if err != nil {
		return err
	}
	if row == nil || row.Mastery < srs.MasteredThreshold {
		progress.CurrentGrammarIndex = idx
		return nil
	}

	if idx+1 < len(points) {
		progress.CurrentGrammarIndex = idx + 1
		return nil
	}

	// 课内最后一个语法点也已掌握，检查课程完成门槛
	done, err := p.lessonGatesPassed(session.UserID, progress.CurrentLessonID, points)
	if err != nil {
		return err
	}
	if !done {
		progress.CurrentGrammarIndex = p.weakestIndex(session.UserID, points)
		return nil
	}

	lesson, err := p.content.Lesson(progress.CurrentLessonID)
	if err != nil {
		return err
	}
	next, err := p.content.NextLesson(lesson)
	if errors.Is(err, util.ErrNotFound) {
		// 主线尽头，停在当前课复习
		progress.CurrentGrammarIndex = idx
		return nil
	}
	if err != nil {
		return err
	}
	nextPoints, err := p.content.GrammarPoints(next.ID)
	if err != nil {
		return err
	}
	if len(nextPoints) == 0 {
		progress.CurrentGrammarIndex = idx
		return nil
	}

	p.logger.Info("课程完成，进入下一课",
		zap.Uint("userId", session.UserID),
		zap.Uint("fromLessonId", progress.CurrentLessonID),
		zap.Uint("toLessonId", next.ID))
	progress.CurrentLessonID = next.ID
	progress.CurrentGrammarIndex = 0
	return nil
}

// LessonGateStatus 课程完成三重门槛的实时进度
type LessonGateStatus struct {
	AllMastered      bool    `json:"allMastered"`
	VocabAccuracyAvg float64 `json:"vocabAccuracyAvg"`
	SentencePassAvg  float64 `json:"sentencePassAvg"`
	SessionsCounted  int     `json:"sessionsCounted"`
	Passed           bool    `json:"passed"`
}

// gateStatus 课程完成的三重门槛：
// 课内全部语法点掌握度 ≥80，且最近（至多 7 次）该课会话的
// 词汇正确率均值 ≥0.85、例句通过率均值 ≥0.70。
func (p *ProgressService) gateStatus(userID, lessonID uint, points []model.GrammarPoint) (*LessonGateStatus, error) {
	ids := make([]uint, len(points))
	for i, gp := range points {
		ids[i] = gp.ID
	}
	rows, err := p.mastery.ListGrammarFor(userID, ids)
	if err != nil {
		return nil, err
	}
	mastered := make(map[uint]bool, len(rows))
	for _, row := range rows {
		mastered[row.GrammarPointID] = row.Mastery >= srs.MasteredThreshold
	}

	status := &LessonGateStatus{AllMastered: true}
	for _, id := range ids {
		if !mastered[id] {
			status.AllMastered = false
			break
		}
	}

	recent, err := p.sessions.ListRecentCompletedForLesson(userID, lessonID, lessonGateSessions)
	if err != nil {
		return nil, err
	}
	var vocabSum, passSum float64
	for _, sess := range recent {
		r, err := sess.DecodeResult()
		if err != nil || r == nil {
			continue
		}
		vocabSum += r.VocabAccuracy
		passSum += r.SentencePassRate
		status.SessionsCounted++
	}
	if status.SessionsCounted > 0 {
		n := float64(status.SessionsCounted)
		status.VocabAccuracyAvg = vocabSum / n
		status.SentencePassAvg = passSum / n
	}
	status.Passed = status.AllMastered && status.SessionsCounted > 0 &&
		status.VocabAccuracyAvg >= srs.LessonVocabGate &&
		status.SentencePassAvg >= srs.LessonSentenceGate
	return status, nil
}

func (p *ProgressService) lessonGatesPassed(userID, lessonID uint, points []model.GrammarPoint) (bool, error) {
	status, err := p.gateStatus(userID, lessonID, points)
	if err != nil {
		return false, err
	}
	return status.Passed, nil
}

// weakestIndex 课内第一个未达掌握线的语法点下标，全部达标时回到 0
func (p *ProgressService) weakestIndex(userID uint, points []model.GrammarPoint) int {
	ids := make([]uint, len(points))
	for i, gp := range points {
		ids[i] = gp.ID
	}
	rows, err := p.mastery.ListGrammarFor(userID, ids)
	if err != nil {
		return 0
	}
	mastery := make(map[uint]int, len(rows))
	for _, row := range rows {
		mastery[row.GrammarPointID] = row.Mastery
	}
	for i, gp := range points {
		if mastery[gp.ID] < srs.MasteredThreshold {
			return i
		}
	}
	return 0
}

// JumpToLesson 手动切换到指定课程，定位到课内第一个未掌握的语法点
func (p *ProgressService) JumpToLesson(userID, lessonID uint) (*model.UserProgress, error) {
	lesson, err := p.content.Lesson(lessonID)
	if err != nil {
		return nil, err
	}
	points, err := p.content.GrammarPoints(lesson.ID)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("lesson %d: %w", lessonID, util.ErrNoLessonContent)
	}

	progress, err := p.store.Get(userID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = &model.UserProgress{UserID: userID, CurrentLevel: MinLevel}
	}
	progress.CurrentLessonID = lesson.ID
	progress.CurrentGrammarIndex = p.weakestIndex(userID, points)
	if err := p.store.Save(progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// ProgressOverview 进度总览
type ProgressOverview struct {
	CurrentLessonID     uint   `json:"currentLessonId"`
	LessonTitle         string `json:"lessonTitle"`
	CurrentGrammarIndex int    `json:"currentGrammarIndex"`
	CurrentLevel        int    `json:"currentLevel"`
	StreakDays          int    `json:"streakDays"`
	MaxStreakDays       int    `json:"maxStreakDays"`
	LastActiveDate      string `json:"lastActiveDate"`
	GrammarMastered     int64  `json:"grammarMastered"`
	VocabSeen           int64  `json:"vocabSeen"`
	VocabBlocking       int64  `json:"vocabBlocking"`
	SessionsCompleted   int64  `json:"sessionsCompleted"`
}

// Overview 汇总用户的长期进度；从未学习过的用户返回初始状态
func (p *ProgressService) Overview(userID uint) (*ProgressOverview, error) {
	progress, err := p.store.Get(userID)
	if err != nil {
		return nil, err
	}
	ov := &ProgressOverview{CurrentLevel: MinLevel}
	if progress != nil {
		ov.CurrentLessonID = progress.CurrentLessonID
		ov.CurrentGrammarIndex = progress.CurrentGrammarIndex
		ov.CurrentLevel = progress.CurrentLevel
		ov.StreakDays = progress.StreakDays
		ov.MaxStreakDays = progress.MaxStreakDays
		ov.LastActiveDate = progress.LastActiveDate
		if lesson, err := p.content.Lesson(progress.CurrentLessonID); err == nil {
			ov.LessonTitle = lesson.Title
		}
	}
	if ov.GrammarMastered, err = p.mastery.CountGrammarMastered(userID, srs.MasteredThreshold); err != nil {
		return nil, err
	}
	if ov.VocabSeen, err = p.mastery.CountVocabSeen(userID); err != nil {
		return nil, err
	}
	if ov.VocabBlocking, err = p.mastery.CountVocabBlocking(userID); err != nil {
		return nil, err
	}
	if ov.SessionsCompleted, err = p.sessions.CountCompleted(userID); err != nil {
		return nil, err
	}
	return ov, nil
}

// GrammarPointProgress 课内单个语法点的掌握情况
type GrammarPointProgress struct {
	GrammarPointID uint       `json:"grammarPointId"`
	Title          string     `json:"title"`
	Mastery        int        `json:"mastery"`
	CorrectStreak  int        `json:"correctStreak"`
	Mastered       bool       `json:"mastered"`
	NextReviewAt   *time.Time `json:"nextReviewAt"`
}

// LessonProgress 课内全部语法点的掌握情况，未作答过的点掌握度为 0
func (p *ProgressService) LessonProgress(userID, lessonID uint) ([]GrammarPointProgress, error) {
	if _, err := p.content.Lesson(lessonID); err != nil {
		return nil, err
	}
	points, err := p.content.GrammarPoints(lessonID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(points))
	for i, gp := range points {
		ids[i] = gp.ID
	}
	rows, err := p.mastery.ListGrammarFor(userID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.GrammarMastery, len(rows))
	for _, row := range rows {
		byID[row.GrammarPointID] = row
	}

	out := make([]GrammarPointProgress, 0, len(points))
	for _, gp := range points {
		item := GrammarPointProgress{GrammarPointID: gp.ID, Title: gp.Title}
		if row, ok := byID[gp.ID]; ok {
			item.Mastery = row.Mastery
			item.CorrectStreak = row.CorrectStreak
			item.Mastered = row.Mastery >= srs.MasteredThreshold
			item.NextReviewAt = row.NextReviewAt
		}
		out = append(out, item)
	}
	return out, nil
}

// LessonGates 课程完成门槛的实时进度，供前端展示离结课还差多少
func (p *ProgressService) LessonGates(userID, lessonID uint) (*LessonGateStatus, error) {
	if _, err := p.content.Lesson(lessonID); err != nil {
		return nil, err
	}
	points, err := p.content.GrammarPoints(lessonID)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("lesson %d: %w", lessonID, util.ErrNoLessonContent)
	}
	return p.gateStatus(userID, lessonID, points)
}

// DailyAccuracy 单日会话的结算摘要
type DailyAccuracy struct {
	Date        string  `json:"date"`
	Accuracy    float64 `json:"accuracy"`
	Stars       int     `json:"stars"`
	LevelChange string  `json:"levelChange"`
}

// AccuracyHistory 最近已完成会话的正确率历史，按日期倒序
func (p *ProgressService) AccuracyHistory(userID uint, limit int) ([]DailyAccuracy, error) {
	if limit <= 0 || limit > 90 {
		limit = 30
	}
	sessions, err := p.sessions.ListRecentCompleted(userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]DailyAccuracy, 0, len(sessions))
	for _, sess := range sessions {
		r, err := sess.DecodeResult()
		if err != nil || r == nil {
			continue
		}
		out = append(out, DailyAccuracy{
			Date:        sess.SessionDate,
			Accuracy:    r.Accuracy,
			Stars:       r.Stars,
			LevelChange: r.LevelChange,
		})
	}
	return out, nil
}
