package service

import (
	"fmt"
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/util"
	"sort"
	"time"

	"go.uber.org/zap"
)

// 内存版存储实现，语义与 gorm 仓库保持一致：
// Get 系列缺行返回 (nil, nil)，内容未命中返回包装过的 util.ErrNotFound。

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Today() string { return c.now.Format(model.DateLayout) }

func (c *fixedClock) advanceDays(days int) { c.now = c.now.AddDate(0, 0, days) }

func newClock(date string) *fixedClock {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return &fixedClock{now: t.Add(9 * time.Hour)}
}

type memSessions struct {
	rows   map[uint]*model.StudySession
	nextID uint
}

func newMemSessions() *memSessions {
	return &memSessions{rows: make(map[uint]*model.StudySession), nextID: 1}
}

func (m *memSessions) FindByID(id uint) (*model.StudySession, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, util.ErrNotFound)
	}
	cp := *row
	return &cp, nil
}

func (m *memSessions) FindInProgress(userID uint, date string) (*model.StudySession, error) {
	for _, row := range m.rows {
		if row.UserID == userID && row.SessionDate == date && row.Status == model.SessionInProgress {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSessions) FindCompleted(userID uint, date string) (*model.StudySession, error) {
	for _, row := range m.rows {
		if row.UserID == userID && row.SessionDate == date && row.Status == model.SessionCompleted {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSessions) Create(session *model.StudySession) error {
	session.ID = m.nextID
	m.nextID++
	cp := *session
	m.rows[session.ID] = &cp
	return nil
}

func (m *memSessions) Save(session *model.StudySession) error {
	cp := *session
	m.rows[session.ID] = &cp
	return nil
}

func (m *memSessions) UpdateNarrative(id uint, result string) error {
	row, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("session %d: %w", id, util.ErrNotFound)
	}
	row.Result = result
	return nil
}

func (m *memSessions) completed(userID uint) []model.StudySession {
	var out []model.StudySession
	for _, row := range m.rows {
		if row.UserID == userID && row.Status == model.SessionCompleted {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionDate > out[j].SessionDate })
	return out
}

func (m *memSessions) ListRecentCompleted(userID uint, limit int) ([]model.StudySession, error) {
	out := m.completed(userID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessions) ListRecentCompletedForLesson(userID, lessonID uint, limit int) ([]model.StudySession, error) {
	var out []model.StudySession
	for _, row := range m.completed(userID) {
		if row.LessonID == lessonID {
			out = append(out, row)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessions) CountCompleted(userID uint) (int64, error) {
	return int64(len(m.completed(userID))), nil
}

func (m *memSessions) CountWithStars(userID uint, stars int) (int64, error) {
	var count int64
	for _, row := range m.completed(userID) {
		if row.Stars != nil && *row.Stars == stars {
			count++
		}
	}
	return count, nil
}

type masteryKey struct {
	userID, targetID uint
}

type memMastery struct {
	grammar map[masteryKey]*model.GrammarMastery
	vocab   map[masteryKey]*model.VocabStrength
	nextID  uint
}

func newMemMastery() *memMastery {
	return &memMastery{
		grammar: make(map[masteryKey]*model.GrammarMastery),
		vocab:   make(map[masteryKey]*model.VocabStrength),
		nextID:  1,
	}
}

func (m *memMastery) GetGrammar(userID, grammarPointID uint) (*model.GrammarMastery, error) {
	row, ok := m.grammar[masteryKey{userID, grammarPointID}]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memMastery) SaveGrammar(row *model.GrammarMastery) error {
	if row.ID == 0 {
		row.ID = m.nextID
		m.nextID++
	}
	cp := *row
	m.grammar[masteryKey{row.UserID, row.GrammarPointID}] = &cp
	return nil
}

func (m *memMastery) ListGrammarFor(userID uint, grammarPointIDs []uint) ([]model.GrammarMastery, error) {
	var out []model.GrammarMastery
	for _, id := range grammarPointIDs {
		if row, ok := m.grammar[masteryKey{userID, id}]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *memMastery) CountGrammarMastered(userID uint, threshold int) (int64, error) {
	var count int64
	for key, row := range m.grammar {
		if key.userID == userID && row.Mastery >= threshold {
			count++
		}
	}
	return count, nil
}

func (m *memMastery) ListDueGrammar(userID uint, now time.Time, limit int) ([]model.GrammarMastery, error) {
	var out []model.GrammarMastery
	for key, row := range m.grammar {
		if key.userID == userID && row.NextReviewAt != nil && !row.NextReviewAt.After(now) {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mastery < out[j].Mastery })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memMastery) GetVocab(userID, vocabWordID uint) (*model.VocabStrength, error) {
	row, ok := m.vocab[masteryKey{userID, vocabWordID}]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memMastery) SaveVocab(row *model.VocabStrength) error {
	if row.ID == 0 {
		row.ID = m.nextID
		m.nextID++
	}
	cp := *row
	m.vocab[masteryKey{row.UserID, row.VocabWordID}] = &cp
	return nil
}

func (m *memMastery) CountVocabSeen(userID uint) (int64, error) {
	var count int64
	for key := range m.vocab {
		if key.userID == userID {
			count++
		}
	}
	return count, nil
}

func (m *memMastery) CountVocabBlocking(userID uint) (int64, error) {
	var count int64
	for key, row := range m.vocab {
		if key.userID == userID && row.IsBlocking {
			count++
		}
	}
	return count, nil
}

func (m *memMastery) ListDueVocab(userID uint, now time.Time, limit int) ([]model.VocabStrength, error) {
	var out []model.VocabStrength
	for key, row := range m.vocab {
		if key.userID == userID && row.NextReviewAt != nil && !row.NextReviewAt.After(now) {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strength < out[j].Strength })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memProgress struct {
	rows   map[uint]*model.UserProgress
	nextID uint
}

func newMemProgress() *memProgress {
	return &memProgress{rows: make(map[uint]*model.UserProgress), nextID: 1}
}

func (m *memProgress) Get(userID uint) (*model.UserProgress, error) {
	row, ok := m.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memProgress) Save(progress *model.UserProgress) error {
	if progress.ID == 0 {
		progress.ID = m.nextID
		m.nextID++
	}
	cp := *progress
	m.rows[progress.UserID] = &cp
	return nil
}

type memAchievements struct {
	rows []model.AchievementUnlock
}

func (m *memAchievements) ListUnlocked(userID uint) ([]model.AchievementUnlock, error) {
	var out []model.AchievementUnlock
	for _, row := range m.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memAchievements) Insert(unlock *model.AchievementUnlock) (bool, error) {
	for _, row := range m.rows {
		if row.UserID == unlock.UserID && row.AchievementID == unlock.AchievementID {
			return false, nil
		}
	}
	unlock.ID = uint(len(m.rows) + 1)
	m.rows = append(m.rows, *unlock)
	return true, nil
}

// memContent 固定的内容定义；零值字段按需填充
type memContent struct {
	lessons   []model.Lesson
	points    map[uint][]model.GrammarPoint
	drills    map[uint]model.GrammarDrill
	vocab     map[uint]model.VocabWord
	sentences map[uint]model.Sentence
	keyPoints map[uint][]model.SentenceKeyPoint
}

func (m *memContent) Lesson(id uint) (*model.Lesson, error) {
	for _, l := range m.lessons {
		if l.ID == id {
			cp := l
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("lesson %d: %w", id, util.ErrNotFound)
}

func (m *memContent) FirstLesson() (*model.Lesson, error) {
	if len(m.lessons) == 0 {
		return nil, fmt.Errorf("first lesson: %w", util.ErrNotFound)
	}
	best := m.lessons[0]
	for _, l := range m.lessons[1:] {
		if l.Order < best.Order {
			best = l
		}
	}
	return &best, nil
}

func (m *memContent) NextLesson(after *model.Lesson) (*model.Lesson, error) {
	var next *model.Lesson
	for i := range m.lessons {
		l := m.lessons[i]
		if l.Order > after.Order && (next == nil || l.Order < next.Order) {
			next = &m.lessons[i]
		}
	}
	if next == nil {
		return nil, fmt.Errorf("lesson after %d: %w", after.ID, util.ErrNotFound)
	}
	cp := *next
	return &cp, nil
}

func (m *memContent) GrammarPoint(id uint) (*model.GrammarPoint, error) {
	for _, pts := range m.points {
		for _, gp := range pts {
			if gp.ID == id {
				cp := gp
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("grammar point %d: %w", id, util.ErrNotFound)
}

func (m *memContent) GrammarPoints(lessonID uint) ([]model.GrammarPoint, error) {
	return m.points[lessonID], nil
}

func (m *memContent) Drill(id uint) (*model.GrammarDrill, error) {
	d, ok := m.drills[id]
	if !ok {
		return nil, fmt.Errorf("drill %d: %w", id, util.ErrNotFound)
	}
	return &d, nil
}

func (m *memContent) Drills(grammarPointID uint, kind model.DrillKind) ([]model.GrammarDrill, error) {
	var out []model.GrammarDrill
	for _, d := range m.drills {
		if d.GrammarPointID == grammarPointID && d.Kind == kind {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memContent) Vocab(id uint) (*model.VocabWord, error) {
	w, ok := m.vocab[id]
	if !ok {
		return nil, fmt.Errorf("vocab word %d: %w", id, util.ErrNotFound)
	}
	return &w, nil
}

func (m *memContent) VocabList(lessonID uint) ([]model.VocabWord, error) {
	var out []model.VocabWord
	for _, w := range m.vocab {
		if w.LessonID == lessonID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memContent) Sentence(id uint) (*model.Sentence, error) {
	s, ok := m.sentences[id]
	if !ok {
		return nil, fmt.Errorf("sentence %d: %w", id, util.ErrNotFound)
	}
	return &s, nil
}

func (m *memContent) Sentences(grammarPointID uint) ([]model.Sentence, error) {
	var out []model.Sentence
	for _, s := range m.sentences {
		if s.GrammarPointID == grammarPointID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memContent) KeyPoints(sentenceID uint) ([]model.SentenceKeyPoint, error) {
	return m.keyPoints[sentenceID], nil
}

// engineFixture 组装一套完整的引擎服务与两课测试内容：
// 第 1 课含语法点 10、11，第 2 课含语法点 20。
// 每个语法点 2 道识记题 + 2 道迁移题，第 1 课 4 个词，每个语法点 1 个例句（3 个要点）。
type engineFixture struct {
	clock       *fixedClock
	sessions    *memSessions
	mastery     *memMastery
	progressSt  *memProgress
	unlocks     *memAchievements
	content     *memContent
	sessionSvc  *SessionService
	progressSvc *ProgressService
	reviewSvc   *ReviewService
	achieveSvc  *AchievementService
}

func newEngineFixture(date string) *engineFixture {
	content := &memContent{
		lessons: []model.Lesson{
			{BaseModel: model.BaseModel{ID: 1}, Title: "第一课", Level: 1, Order: 1},
			{BaseModel: model.BaseModel{ID: 2}, Title: "第二课", Level: 1, Order: 2},
			{BaseModel: model.BaseModel{ID: 3}, Title: "第三课（暂无内容）", Level: 2, Order: 3},
		},
		points: map[uint][]model.GrammarPoint{
			1: {
				{BaseModel: model.BaseModel{ID: 10}, LessonID: 1, Title: "は与が", Order: 1},
				{BaseModel: model.BaseModel{ID: 11}, LessonID: 1, Title: "て形", Order: 2},
			},
			2: {
				{BaseModel: model.BaseModel{ID: 20}, LessonID: 2, Title: "可能形", Order: 1},
			},
		},
		drills:    make(map[uint]model.GrammarDrill),
		vocab:     make(map[uint]model.VocabWord),
		sentences: make(map[uint]model.Sentence),
		keyPoints: make(map[uint][]model.SentenceKeyPoint),
	}

	drillID := uint(100)
	for _, gpID := range []uint{10, 11, 20} {
		for _, kind := range []model.DrillKind{model.DrillRecall, model.DrillTransfer} {
			for i := 0; i < 2; i++ {
				content.drills[drillID] = model.GrammarDrill{
					BaseModel:      model.BaseModel{ID: drillID},
					GrammarPointID: gpID,
					Kind:           kind,
					Prompt:         "选择正确的说法",
					Options:        `["A","B","C","D"]`,
					CorrectOption:  1,
					Explanation:    "正确答案是 B",
				}
				drillID++
			}
		}
	}

	for i := uint(0); i < 4; i++ {
		id := 200 + i
		content.vocab[id] = model.VocabWord{
			BaseModel: model.BaseModel{ID: id},
			LessonID:  1,
			Word:      fmt.Sprintf("词%d", i),
			Meaning:   fmt.Sprintf("释义%d", i),
		}
	}

	for _, gpID := range []uint{10, 11, 20} {
		sid := 300 + gpID
		content.sentences[sid] = model.Sentence{
			BaseModel:      model.BaseModel{ID: sid},
			LessonID:       1,
			GrammarPointID: gpID,
			Text:           "例句",
		}
		content.keyPoints[sid] = []model.SentenceKeyPoint{
			{BaseModel: model.BaseModel{ID: sid*10 + 1}, SentenceID: sid, Label: "要点一"},
			{BaseModel: model.BaseModel{ID: sid*10 + 2}, SentenceID: sid, Label: "要点二"},
			{BaseModel: model.BaseModel{ID: sid*10 + 3}, SentenceID: sid, Label: "要点三"},
		}
	}

	f := &engineFixture{
		clock:      newClock(date),
		sessions:   newMemSessions(),
		mastery:    newMemMastery(),
		progressSt: newMemProgress(),
		unlocks:    &memAchievements{},
		content:    content,
	}
	logger := zap.NewNop()
	f.progressSvc = NewProgressService(f.progressSt, f.mastery, f.sessions, f.content, f.clock, logger, 3000)
	f.sessionSvc = NewSessionService(f.sessions, f.content, f.progressSvc, f.clock, logger, 3000)
	f.reviewSvc = NewReviewService(f.mastery, f.content, f.clock, logger, 3000)
	f.achieveSvc = NewAchievementService(f.unlocks, f.sessions, f.mastery, f.progressSt, f.clock, logger)
	return f
}
