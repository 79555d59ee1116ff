package model

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// 会话的五个阶段。只允许向前推进，到达 StepFinished 后不再变化。
const (
	StepGrammar  = 1 // 语法识记练习
	StepTransfer = 2 // 迁移应用练习
	StepVocab    = 3 // 词汇速认
	StepSentence = 4 // 例句要点产出
	StepFinished = 5
)

// QuestionKind 标识答题记录指向的内容类型，配合目标 ID 构成结构化引用
type QuestionKind string

const (
	QuestionGrammarRecall QuestionKind = "grammar_recall"
	QuestionTransfer      QuestionKind = "transfer"
	QuestionVocab         QuestionKind = "vocab"
)

// QuestionRef 结构化题目引用：类型 + 目标 ID + 所属语法点
type QuestionRef struct {
	Kind           QuestionKind `json:"kind"`
	TargetID       uint         `json:"targetId"`
	GrammarPointID uint         `json:"grammarPointId,omitempty"`
}

// AnswerRecord 一条不可变的答题记录
type AnswerRecord struct {
	Ref        QuestionRef `json:"ref"`
	Selected   int         `json:"selected"`
	Correct    bool        `json:"correct"`
	ElapsedMs  int64       `json:"elapsedMs"`
	AnsweredAt time.Time   `json:"answeredAt"`
}

// SentenceSubmission 第四步的要点选择提交结果
type SentenceSubmission struct {
	SentenceID  uint      `json:"sentenceId"`
	Flagged     []uint    `json:"flagged"`
	HitCount    int       `json:"hitCount"`
	HitRate     float64   `json:"hitRate"`
	Passed      bool      `json:"passed"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// DrillStepState 第一、二步的阶段状态：固定题目序列 + 已答记录
type DrillStepState struct {
	Index    int            `json:"index"`
	DrillIDs []uint         `json:"drillIds"`
	Answers  []AnswerRecord `json:"answers"`
}

// VocabItem 词汇速认题：选项在会话创建时固定，Answer 为正确选项下标
type VocabItem struct {
	VocabWordID uint     `json:"vocabWordId"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
}

type VocabStepState struct {
	Index   int            `json:"index"`
	Items   []VocabItem    `json:"items"`
	Answers []AnswerRecord `json:"answers"`
}

type SentenceStepState struct {
	Index       int                  `json:"index"`
	SentenceIDs []uint               `json:"sentenceIds"`
	Submissions []SentenceSubmission `json:"submissions"`
}

// StepState 每一步都有独立的载荷形状，整体作为快照写穿到会话记录
type StepState struct {
	Current  int               `json:"current"`
	Grammar  DrillStepState    `json:"grammar"`
	Transfer DrillStepState    `json:"transfer"`
	Vocab    VocabStepState    `json:"vocab"`
	Sentence SentenceStepState `json:"sentence"`
}

// SessionResult 会话完成时写入的不可变结果；Narrative 允许事后被异步覆盖一次
type SessionResult struct {
	GrammarAccuracy  float64   `json:"grammarAccuracy"`
	VocabAccuracy    float64   `json:"vocabAccuracy"`
	SentenceHitRate  float64   `json:"sentenceHitRate"`
	SentencePassRate float64   `json:"sentencePassRate"`
	Accuracy         float64   `json:"accuracy"`
	Stars            int       `json:"stars"`
	LevelChange      string    `json:"levelChange"` // up | pause
	Narrative        string    `json:"narrative"`
	FinishedAt       time.Time `json:"finishedAt"`
}

// StudySession 每自然日至多一条 in_progress 记录（用户+日期唯一索引）
// swagger:model StudySession
type StudySession struct {
	BaseModel
	UserID         uint          `gorm:"uniqueIndex:idx_user_session_date;not null" json:"userId"`
	SessionDate    string        `gorm:"size:10;uniqueIndex:idx_user_session_date;not null" json:"sessionDate"`
	LessonID       uint          `gorm:"not null" json:"lessonId"`
	GrammarPointID uint          `gorm:"not null" json:"grammarPointId"`
	Level          int           `gorm:"not null" json:"level"`
	Status         SessionStatus `gorm:"size:20;index;not null" json:"status"`
	StepState      string        `gorm:"type:text" json:"-"`
	Result         string        `gorm:"type:text" json:"-"`
	Stars          *int          `json:"stars"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

// DecodeStepState 反序列化阶段快照
func (s *StudySession) DecodeStepState() (*StepState, error) {
	var st StepState
	if err := json.Unmarshal([]byte(s.StepState), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// EncodeStepState 序列化阶段快照
func (s *StudySession) EncodeStepState(st *StepState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	s.StepState = string(b)
	return nil
}

// DecodeResult 反序列化会话结果，未完成的会话返回 nil
func (s *StudySession) DecodeResult() (*SessionResult, error) {
	if s.Result == "" {
		return nil, nil
	}
	var r SessionResult
	if err := json.Unmarshal([]byte(s.Result), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// EncodeResult 序列化会话结果
func (s *StudySession) EncodeResult(r *SessionResult) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	s.Result = string(b)
	return nil
}
