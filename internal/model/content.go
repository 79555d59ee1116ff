package model

// Lesson 课程单元，按 Order 排序构成学习主线
// swagger:model Lesson
type Lesson struct {
	BaseModel
	Title string `gorm:"size:200;not null" json:"title"`
	Level int    `gorm:"default:1" json:"level"`
	Order int    `gorm:"index;not null" json:"order"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// GrammarPoint 语法点，归属于某个课程，Order 决定课内顺序
type GrammarPoint struct {
	BaseModel
	LessonID    uint   `gorm:"index;not null" json:"lessonId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Pattern     string `gorm:"size:200" json:"pattern"`
	Explanation string `gorm:"type:text" json:"explanation"`
	Order       int    `gorm:"not null" json:"order"`
}

func (GrammarPoint) TableName() string {
	return "grammar_points"
}

// DrillKind 练习题类型：识记题用于第一步，迁移题用于第二步
type DrillKind string

const (
	DrillRecall   DrillKind = "recall"
	DrillTransfer DrillKind = "transfer"
)

// GrammarDrill 语法练习题，Options 为 JSON 数组，CorrectOption 是正确选项下标
type GrammarDrill struct {
	BaseModel
	GrammarPointID uint      `gorm:"index;not null" json:"grammarPointId"`
	Kind           DrillKind `gorm:"size:20;index;not null" json:"kind"`
	Prompt         string    `gorm:"type:text;not null" json:"prompt"`
	Options        string    `gorm:"type:text;not null" json:"options"`
	CorrectOption  int       `gorm:"not null" json:"-"`
	Explanation    string    `gorm:"type:text" json:"explanation"`
}

func (GrammarDrill) TableName() string {
	return "grammar_drills"
}

// VocabWord 词汇条目
type VocabWord struct {
	BaseModel
	LessonID uint   `gorm:"index;not null" json:"lessonId"`
	Word     string `gorm:"size:100;not null" json:"word"`
	Reading  string `gorm:"size:100" json:"reading"`
	Meaning  string `gorm:"size:200;not null" json:"meaning"`
}

func (VocabWord) TableName() string {
	return "vocab_words"
}

// Sentence 例句，归属于某个语法点，用于第四步的要点产出练习
type Sentence struct {
	BaseModel
	LessonID       uint   `gorm:"index;not null" json:"lessonId"`
	GrammarPointID uint   `gorm:"index;not null" json:"grammarPointId"`
	Text           string `gorm:"size:500;not null" json:"text"`
	Translation    string `gorm:"size:500" json:"translation"`
}

func (Sentence) TableName() string {
	return "sentences"
}

// SentenceKeyPoint 例句应覆盖的原子语法要点，句子评分即要点覆盖率
type SentenceKeyPoint struct {
	BaseModel
	SentenceID uint   `gorm:"index;not null" json:"sentenceId"`
	Label      string `gorm:"size:200;not null" json:"label"`
}

func (SentenceKeyPoint) TableName() string {
	return "sentence_key_points"
}
