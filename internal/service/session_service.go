package service

import (
	"fmt"
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/srs"
	"lingua_coach_backend/internal/util"

	"go.uber.org/zap"
)

// 单次会话各步骤的题量上限，创建会话时从内容池截取
const (
	maxDrillsPerStep       = 5
	maxVocabPerSession     = 10
	maxSentencesPerSession = 5
)

// SessionService 实现五步学习会话的状态机。
// 每用户每自然日至多一个会话；每次状态变化后整体快照写穿到存储，
// 进程重启后可以从最后一次成功写入恢复。
type SessionService struct {
	sessions SessionStore
	content  ContentProvider
	progress *ProgressService
	clock    Clock
	logger   *zap.Logger
	fastMs   int64
}

func NewSessionService(sessions SessionStore, content ContentProvider,
	progress *ProgressService, clock Clock, logger *zap.Logger, fastAnswerMs int64) *SessionService {
	return &SessionService{
		sessions: sessions,
		content:  content,
		progress: progress,
		clock:    clock,
		logger:   logger,
		fastMs:   fastAnswerMs,
	}
}

// DrillFeedback 答题后的即时反馈，答错时带解析
type DrillFeedback struct {
	Correct       bool   `json:"correct"`
	CorrectOption int    `json:"correctOption"`
	Explanation   string `json:"explanation,omitempty"`
	Remaining     int    `json:"remaining"`
}

// SentenceFeedback 要点提交后的评分反馈
type SentenceFeedback struct {
	HitCount  int     `json:"hitCount"`
	HitRate   float64 `json:"hitRate"`
	Passed    bool    `json:"passed"`
	Remaining int     `json:"remaining"`
}

// StartOrResume 返回今天的会话：进行中会话原样恢复，已完成会话原样返回
// （每个日历日至多一次会话），否则按用户当前进度构造新会话。
// 题目序列在创建时固定，之后不再变化。
func (s *SessionService) StartOrResume(userID uint) (*model.StudySession, *model.StepState, error) {
	today := s.clock.Today()

	existing, err := s.sessions.FindInProgress(userID, today)
	if err != nil {
		return nil, nil, err
	}
	if existing == nil {
		if existing, err = s.sessions.FindCompleted(userID, today); err != nil {
			return nil, nil, err
		}
	}
	if existing != nil {
		st, err := existing.DecodeStepState()
		if err != nil {
			return nil, nil, fmt.Errorf("decode session %d state: %w", existing.ID, err)
		}
		return existing, st, nil
	}

	session, st, err := s.buildSession(userID, today)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, nil, err
	}
	s.logger.Info("创建学习会话",
		zap.Uint("userId", userID),
		zap.Uint("sessionId", session.ID),
		zap.Uint("lessonId", session.LessonID),
		zap.Uint("grammarPointId", session.GrammarPointID))
	return session, st, nil
}

// buildSession 根据进度定位课程与语法点并固定题目计划
func (s *SessionService) buildSession(userID uint, today string) (*model.StudySession, *model.StepState, error) {
	progress, err := s.progress.store.Get(userID)
	if err != nil {
		return nil, nil, err
	}

	var lesson *model.Lesson
	grammarIndex := 0
	level := 1
	if progress == nil {
		if lesson, err = s.content.FirstLesson(); err != nil {
			return nil, nil, err
		}
	} else {
		if lesson, err = s.content.Lesson(progress.CurrentLessonID); err != nil {
			return nil, nil, err
		}
		grammarIndex = progress.CurrentGrammarIndex
		level = progress.CurrentLevel
	}

	points, err := s.content.GrammarPoints(lesson.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(points) == 0 {
		return nil, nil, fmt.Errorf("lesson %d: %w", lesson.ID, util.ErrNoLessonContent)
	}
	if grammarIndex < 0 || grammarIndex >= len(points) {
		grammarIndex = len(points) - 1
	}
	gp := points[grammarIndex]

	recall, err := s.content.Drills(gp.ID, model.DrillRecall)
	if err != nil {
		return nil, nil, err
	}
	transfer, err := s.content.Drills(gp.ID, model.DrillTransfer)
	if err != nil {
		return nil, nil, err
	}
	words, err := s.content.VocabList(lesson.ID)
	if err != nil {
		return nil, nil, err
	}
	sentences, err := s.content.Sentences(gp.ID)
	if err != nil {
		return nil, nil, err
	}

	st := &model.StepState{
		Current:  model.StepGrammar,
		Grammar:  model.DrillStepState{DrillIDs: drillIDs(recall, maxDrillsPerStep)},
		Transfer: model.DrillStepState{DrillIDs: drillIDs(transfer, maxDrillsPerStep)},
		Vocab:    model.VocabStepState{Items: buildVocabItems(words, maxVocabPerSession)},
		Sentence: model.SentenceStepState{SentenceIDs: sentenceIDs(sentences, maxSentencesPerSession)},
	}

	session := &model.StudySession{
		UserID:         userID,
		SessionDate:    today,
		LessonID:       lesson.ID,
		GrammarPointID: gp.ID,
		Level:          level,
		Status:         model.SessionInProgress,
	}
	if err := session.EncodeStepState(st); err != nil {
		return nil, nil, err
	}
	return session, st, nil
}

func drillIDs(drills []model.GrammarDrill, limit int) []uint {
	ids := make([]uint, 0, limit)
	for _, d := range drills {
		if len(ids) >= limit {
			break
		}
		ids = append(ids, d.ID)
	}
	return ids
}

func sentenceIDs(sentences []model.Sentence, limit int) []uint {
	ids := make([]uint, 0, limit)
	for _, sen := range sentences {
		if len(ids) >= limit {
			break
		}
		ids = append(ids, sen.ID)
	}
	return ids
}

// buildVocabItems 为每个词构造四选一的释义题。
// 干扰项取同课程中相邻词汇的释义（循环取），正确项位置由词序决定，
// 整个过程确定性，同样的词表总是产出同样的题目。
func buildVocabItems(words []model.VocabWord, limit int) []model.VocabItem {
	if len(words) > limit {
		words = words[:limit]
	}
	items := make([]model.VocabItem, 0, len(words))
	for i, w := range words {
		optionCount := 4
		if len(words) < optionCount {
			optionCount = len(words)
		}
		answer := i % optionCount
		options := make([]string, optionCount)
		distractor := 1
		for pos := 0; pos < optionCount; pos++ {
			if pos == answer {
				options[pos] = w.Meaning
				continue
			}
			options[pos] = words[(i+distractor)%len(words)].Meaning
			distractor++
		}
		items = append(items, model.VocabItem{
			VocabWordID: w.ID,
			Options:     options,
			Answer:      answer,
		})
	}
	return items
}

// load 取出属于该用户的进行中会话及其状态
func (s *SessionService) load(userID, sessionID uint) (*model.StudySession, *model.StepState, error) {
	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.UserID != userID {
		return nil, nil, fmt.Errorf("session %d: %w", sessionID, util.ErrNotFound)
	}
	if session.Status == model.SessionCompleted {
		return nil, nil, util.ErrSessionCompleted
	}
	st, err := session.DecodeStepState()
	if err != nil {
		return nil, nil, fmt.Errorf("decode session %d state: %w", sessionID, err)
	}
	return session, st, nil
}

func (s *SessionService) save(session *model.StudySession, st *model.StepState) error {
	if err := session.EncodeStepState(st); err != nil {
		return err
	}
	return s.sessions.Save(session)
}

// AnswerDrill 处理第一、二步的练习作答。题目必须按固定顺序作答，
// 答题记录一经追加不可修改。
func (s *SessionService) AnswerDrill(userID, sessionID, drillID uint, selected int, elapsedMs int64) (*DrillFeedback, error) {
	session, st, err := s.load(userID, sessionID)
	if err != nil {
		return nil, err
	}

	var step *model.DrillStepState
	var kind model.QuestionKind
	switch st.Current {
	case model.StepGrammar:
		step, kind = &st.Grammar, model.QuestionGrammarRecall
	case model.StepTransfer:
		step, kind = &st.Transfer, model.QuestionTransfer
	default:
		return nil, util.ErrInvalidState
	}

	if step.Index >= len(step.DrillIDs) {
		return nil, util.ErrStepExhausted
	}
	if step.DrillIDs[step.Index] != drillID {
		return nil, fmt.Errorf("drill %d is not the current question: %w", drillID, util.ErrInvalidState)
	}

	drill, err := s.content.Drill(drillID)
	if err != nil {
		return nil, err
	}

	correct := selected == drill.CorrectOption
	step.Answers = append(step.Answers, model.AnswerRecord{
		Ref: model.QuestionRef{
			Kind:           kind,
			TargetID:       drillID,
			GrammarPointID: drill.GrammarPointID,
		},
		Selected:   selected,
		Correct:    correct,
		ElapsedMs:  elapsedMs,
		AnsweredAt: s.clock.Now(),
	})
	step.Index++

	if err := s.save(session, st); err != nil {
		return nil, err
	}

	fb := &DrillFeedback{
		Correct:       correct,
		CorrectOption: drill.CorrectOption,
		Remaining:     len(step.DrillIDs) - step.Index,
	}
	if !correct {
		fb.Explanation = drill.Explanation
	}
	return fb, nil
}

// AnswerVocab 处理第三步的词汇速认作答，正确答案取会话计划中固定的选项下标
func (s *SessionService) AnswerVocab(userID, sessionID, vocabWordID uint, selected int, elapsedMs int64) (*DrillFeedback, error) {
	session, st, err := s.load(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Current != model.StepVocab {
		return nil, util.ErrInvalidState
	}

	step := &st.Vocab
	if step.Index >= len(step.Items) {
		return nil, util.ErrStepExhausted
	}
	item := step.Items[step.Index]
	if item.VocabWordID != vocabWordID {
		return nil, fmt.Errorf("vocab word %d is not the current question: %w", vocabWordID, util.ErrInvalidState)
	}
	if _, err := s.content.Vocab(vocabWordID); err != nil {
		return nil, err
	}

	correct := selected == item.Answer
	step.Answers = append(step.Answers, model.AnswerRecord{
		Ref: model.QuestionRef{
			Kind:     model.QuestionVocab,
			TargetID: vocabWordID,
		},
		Selected:   selected,
		Correct:    correct,
		ElapsedMs:  elapsedMs,
		AnsweredAt: s.clock.Now(),
	})
	step.Index++

	if err := s.save(session, st); err != nil {
		return nil, err
	}
	return &DrillFeedback{
		Correct:       correct,
		CorrectOption: item.Answer,
		Remaining:     len(step.Items) - step.Index,
	}, nil
}

// SubmitSentence 处理第四步的例句要点提交，按要点覆盖率评分
func (s *SessionService) SubmitSentence(userID, sessionID, sentenceID uint, flagged []uint) (*SentenceFeedback, error) {
	session, st, err := s.load(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Current != model.StepSentence {
		return nil, util.ErrInvalidState
	}

	step := &st.Sentence
	if step.Index >= len(step.SentenceIDs) {
		return nil, util.ErrStepExhausted
	}
	if step.SentenceIDs[step.Index] != sentenceID {
		return nil, fmt.Errorf("sentence %d is not the current question: %w", sentenceID, util.ErrInvalidState)
	}

	keyPoints, err := s.content.KeyPoints(sentenceID)
	if err != nil {
		return nil, err
	}
	expected := make([]uint, len(keyPoints))
	for i, kp := range keyPoints {
		expected[i] = kp.ID
	}

	score := srs.ScoreSentence(flagged, expected)
	step.Submissions = append(step.Submissions, model.SentenceSubmission{
		SentenceID:  sentenceID,
		Flagged:     flagged,
		HitCount:    score.HitCount,
		HitRate:     score.HitRate,
		Passed:      score.Passed,
		SubmittedAt: s.clock.Now(),
	})
	step.Index++

	if err := s.save(session, st); err != nil {
		return nil, err
	}
	return &SentenceFeedback{
		HitCount:  score.HitCount,
		HitRate:   score.HitRate,
		Passed:    score.Passed,
		Remaining: len(step.SentenceIDs) - step.Index,
	}, nil
}

// NextStep 把会话推进到下一步。只允许向前，最后一步之后必须走 Finish。
func (s *SessionService) NextStep(userID, sessionID uint) (*model.StepState, error) {
	session, st, err := s.load(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Current >= model.StepSentence {
		return nil, fmt.Errorf("session is at its final step: %w", util.ErrInvalidState)
	}
	st.Current++
	if err := s.save(session, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Finish 结算会话：计算各项正确率、星级、等级走向与叙述小结，
// 把会话标记为已完成，然后一次性把结果交给进度协调器落账。
// 这是进度协调器唯一的调用点。
func (s *SessionService) Finish(userID, sessionID uint) (*model.StudySession, *model.SessionResult, error) {
	session, st, err := s.load(userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if st.Current != model.StepSentence {
		return nil, nil, fmt.Errorf("session has not reached the final step: %w", util.ErrInvalidState)
	}

	grammarAcc := answerAccuracy(append(append([]model.AnswerRecord{}, st.Grammar.Answers...), st.Transfer.Answers...))
	vocabAcc := answerAccuracy(st.Vocab.Answers)
	hitRate, passRate := sentenceRates(st.Sentence.Submissions)

	accuracy := srs.SessionAccuracy(grammarAcc, vocabAcc, hitRate)
	stars := srs.Stars(accuracy)

	prevDaily, err := s.recentAccuracies(userID, 2)
	if err != nil {
		return nil, nil, err
	}

	result := &model.SessionResult{
		GrammarAccuracy:  grammarAcc,
		VocabAccuracy:    vocabAcc,
		SentenceHitRate:  hitRate,
		SentencePassRate: passRate,
		Accuracy:         accuracy,
		Stars:            stars,
		LevelChange:      srs.DecideLevelChange(prevDaily, accuracy),
		Narrative:        srs.BuildNarrative(stars, grammarAcc, vocabAcc, hitRate),
		FinishedAt:       s.clock.Now(),
	}

	st.Current = model.StepFinished
	session.Status = model.SessionCompleted
	session.Stars = &stars
	if err := session.EncodeResult(result); err != nil {
		return nil, nil, err
	}
	if err := s.save(session, st); err != nil {
		return nil, nil, err
	}

	if err := s.progress.ApplySessionResult(session, st, result); err != nil {
		return nil, nil, fmt.Errorf("apply session %d result: %w", sessionID, err)
	}

	s.logger.Info("会话结算完成",
		zap.Uint("userId", userID),
		zap.Uint("sessionId", sessionID),
		zap.Float64("accuracy", accuracy),
		zap.Int("stars", stars),
		zap.String("levelChange", result.LevelChange))
	return session, result, nil
}

// recentAccuracies 最近已完成会话的综合正确率，按日期倒序
func (s *SessionService) recentAccuracies(userID uint, limit int) ([]float64, error) {
	sessions, err := s.sessions.ListRecentCompleted(userID, limit)
	if err != nil {
		return nil, err
	}
	accs := make([]float64, 0, len(sessions))
	for _, sess := range sessions {
		r, err := sess.DecodeResult()
		if err != nil || r == nil {
			continue
		}
		accs = append(accs, r.Accuracy)
	}
	return accs, nil
}

// answerAccuracy 没有任何作答的步骤视为满分，不拖累星级
func answerAccuracy(answers []model.AnswerRecord) float64 {
	if len(answers) == 0 {
		return 1
	}
	correct := 0
	for _, a := range answers {
		if a.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(answers))
}

func sentenceRates(subs []model.SentenceSubmission) (hitRate, passRate float64) {
	if len(subs) == 0 {
		return 1, 1
	}
	var hits float64
	passed := 0
	for _, sub := range subs {
		hits += sub.HitRate
		if sub.Passed {
			passed++
		}
	}
	return hits / float64(len(subs)), float64(passed) / float64(len(subs))
}
