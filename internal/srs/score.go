package srs

// 固定的评分策略常量。来源实现即如此取值，保留为策略而非配置。
const (
	MasteryGainCorrect   = 10
	MasteryLossIncorrect = 4
	SentencePassBonus    = 3

	StrengthGainCorrect   = 2
	StrengthLossIncorrect = 2
	StrengthFastBonus     = 1

	// DefaultFastAnswerMs 词汇速答加分的默认反应时间阈值
	DefaultFastAnswerMs = 3000

	// BlockingWrongCount 词汇七日错误数达到该值后进入阻塞状态
	BlockingWrongCount = 3

	// 句子要点评分的通过条件：命中数或命中率任一达标
	SentencePassHits    = 3
	SentencePassMinRate = 0.7

	// MasteredThreshold 语法点视为已掌握的掌握度下限
	MasteredThreshold = 80

	// 课程完成门槛：近期会话的词汇正确率与句子通过率
	LessonVocabGate    = 0.85
	LessonSentenceGate = 0.70

	// PauseAccuracy 连续低于该正确率时等级转为暂停
	PauseAccuracy = 0.6
)

const (
	LevelUp    = "up"
	LevelPause = "pause"
)

// Clamp 把 v 钳制到 [lo, hi]
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GrammarState 语法掌握度更新所需的最小状态
type GrammarState struct {
	Mastery       int
	CorrectStreak int
	WrongCount    int
}

// GrammarUpdate 一组同语法点答题产生的新状态与调度结果
type GrammarUpdate struct {
	State        GrammarState
	AllCorrect   bool
	IntervalDays int
}

// UpdateGrammar 按答题顺序应用掌握度增减：+10/答对、-4/答错；
// 连对数逐题递增、组内任何错误即清零；错误数累加。
// 最终掌握度钳制到 [0,100]，下次复习用新掌握度计算。
func UpdateGrammar(st GrammarState, correct []bool) GrammarUpdate {
	m := st.Mastery
	streak := st.CorrectStreak
	wrong := st.WrongCount
	allCorrect := true

	for _, c := range correct {
		if c {
			m += MasteryGainCorrect
			streak++
		} else {
			m -= MasteryLossIncorrect
			streak = 0
			wrong++
			allCorrect = false
		}
	}
	m = Clamp(m, 0, 100)

	return GrammarUpdate{
		State:        GrammarState{Mastery: m, CorrectStreak: streak, WrongCount: wrong},
		AllCorrect:   allCorrect,
		IntervalDays: GradeInterval(m, streak, allCorrect),
	}
}

// VocabState 词汇强度更新所需的最小状态
type VocabState struct {
	Strength   int
	WrongCount int
	Blocking   bool
}

// VocabAnswer 单次词汇作答
type VocabAnswer struct {
	Correct   bool
	ElapsedMs int64
}

// VocabUpdate 单次作答产生的新状态与调度结果
type VocabUpdate struct {
	State        VocabState
	IntervalDays int
}

// UpdateVocab 应用 ±2 强度增减，反应时间低于 fastMs 时答对额外 +1；
// 累计错误数达到阈值后置为阻塞（粘性）。fastMs <= 0 时使用默认阈值。
func UpdateVocab(st VocabState, ans VocabAnswer, fastMs int64) VocabUpdate {
	if fastMs <= 0 {
		fastMs = DefaultFastAnswerMs
	}
	s := st.Strength
	wrong := st.WrongCount

	if ans.Correct {
		s += StrengthGainCorrect
		if ans.ElapsedMs > 0 && ans.ElapsedMs < fastMs {
			s += StrengthFastBonus
		}
	} else {
		s -= StrengthLossIncorrect
		wrong++
	}
	s = Clamp(s, 0, 100)

	return VocabUpdate{
		State: VocabState{
			Strength:   s,
			WrongCount: wrong,
			Blocking:   st.Blocking || wrong >= BlockingWrongCount,
		},
		IntervalDays: VocabInterval(s, ans.Correct),
	}
}

// SentenceScore 一次要点选择的评分结果
type SentenceScore struct {
	HitCount int
	HitRate  float64
	Passed   bool
}

// ScoreSentence 计算学习者勾选的要点对例句期望要点集的覆盖。
// 命中数 ≥3 或命中率 ≥0.7 即通过。没有期望要点的句子视为无可考点、直接通过。
func ScoreSentence(flagged, expected []uint) SentenceScore {
	if len(expected) == 0 {
		return SentenceScore{HitCount: 0, HitRate: 1, Passed: true}
	}
	want := make(map[uint]struct{}, len(expected))
	for _, id := range expected {
		want[id] = struct{}{}
	}
	seen := make(map[uint]struct{}, len(flagged))
	hits := 0
	for _, id := range flagged {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := want[id]; ok {
			hits++
		}
	}
	rate := float64(hits) / float64(len(expected))
	return SentenceScore{
		HitCount: hits,
		HitRate:  rate,
		Passed:   hits >= SentencePassHits || rate >= SentencePassMinRate,
	}
}

// SessionAccuracy 三项子正确率的等权平均
func SessionAccuracy(grammarAcc, vocabAcc, sentenceHitRate float64) float64 {
	return (grammarAcc + vocabAcc + sentenceHitRate) / 3
}

// Stars 把综合正确率映射到 0-5 星，边界值落入高档
func Stars(accuracy float64) int {
	switch {
	case accuracy >= 0.95:
		return 5
	case accuracy >= 0.85:
		return 4
	case accuracy >= 0.70:
		return 3
	case accuracy >= 0.50:
		return 2
	case accuracy >= 0.30:
		return 1
	default:
		return 0
	}
}

// DecideLevelChange 等级只升不降：仅当最近两次会话的日正确率
// 与本次正确率全部低于 0.6 时返回暂停。prevDaily 按时间倒序给出。
func DecideLevelChange(prevDaily []float64, current float64) string {
	if current < PauseAccuracy && len(prevDaily) >= 2 &&
		prevDaily[0] < PauseAccuracy && prevDaily[1] < PauseAccuracy {
		return LevelPause
	}
	return LevelUp
}
