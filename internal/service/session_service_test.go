package service

import (
	"errors"
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/util"
	"testing"
)

const testUser = uint(1)

// runSession 走完一整个会话。correct 控制全部作答的对错，
// elapsed 是每次作答的反应时间（毫秒）。
func runSession(t *testing.T, f *engineFixture, correct bool, elapsed int64) (*model.StudySession, *model.SessionResult) {
	t.Helper()

	session, st, err := f.sessionSvc.StartOrResume(testUser)
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}

	for _, drillID := range st.Grammar.DrillIDs {
		selected := 1
		if !correct {
			selected = 0
		}
		if _, err := f.sessionSvc.AnswerDrill(testUser, session.ID, drillID, selected, elapsed); err != nil {
			t.Fatalf("AnswerDrill(%d): %v", drillID, err)
		}
	}
	if _, err := f.sessionSvc.NextStep(testUser, session.ID); err != nil {
		t.Fatalf("NextStep to transfer: %v", err)
	}

	for _, drillID := range st.Transfer.DrillIDs {
		selected := 1
		if !correct {
			selected = 0
		}
		if _, err := f.sessionSvc.AnswerDrill(testUser, session.ID, drillID, selected, elapsed); err != nil {
			t.Fatalf("AnswerDrill(%d): %v", drillID, err)
		}
	}
	if _, err := f.sessionSvc.NextStep(testUser, session.ID); err != nil {
		t.Fatalf("NextStep to vocab: %v", err)
	}

	for _, item := range st.Vocab.Items {
		selected := item.Answer
		if !correct {
			selected = (item.Answer + 1) % len(item.Options)
		}
		if _, err := f.sessionSvc.AnswerVocab(testUser, session.ID, item.VocabWordID, selected, elapsed); err != nil {
			t.Fatalf("AnswerVocab(%d): %v", item.VocabWordID, err)
		}
	}
	if _, err := f.sessionSvc.NextStep(testUser, session.ID); err != nil {
		t.Fatalf("NextStep to sentence: %v", err)
	}

	for _, sentenceID := range st.Sentence.SentenceIDs {
		var flagged []uint
		if correct {
			for _, kp := range f.content.keyPoints[sentenceID] {
				flagged = append(flagged, kp.ID)
			}
		}
		if _, err := f.sessionSvc.SubmitSentence(testUser, session.ID, sentenceID, flagged); err != nil {
			t.Fatalf("SubmitSentence(%d): %v", sentenceID, err)
		}
	}

	done, result, err := f.sessionSvc.Finish(testUser, session.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return done, result
}

func TestStartBuildsPlanFromFirstLesson(t *testing.T) {
	f := newEngineFixture("2026-08-23")

	session, st, err := f.sessionSvc.StartOrResume(testUser)
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	if session.LessonID != 1 || session.GrammarPointID != 10 {
		t.Errorf("plan targets lesson %d gp %d, want lesson 1 gp 10", session.LessonID, session.GrammarPointID)
	}
	if session.SessionDate != "2026-08-23" {
		t.Errorf("session date = %q", session.SessionDate)
	}
	if st.Current != model.StepGrammar {
		t.Errorf("initial step = %d, want %d", st.Current, model.StepGrammar)
	}
	if got := len(st.Grammar.DrillIDs); got != 2 {
		t.Errorf("grammar drills = %d, want 2", got)
	}
	if got := len(st.Transfer.DrillIDs); got != 2 {
		t.Errorf("transfer drills = %d, want 2", got)
	}
	if got := len(st.Vocab.Items); got != 4 {
		t.Errorf("vocab items = %d, want 4", got)
	}
	if got := len(st.Sentence.SentenceIDs); got != 1 {
		t.Errorf("sentences = %d, want 1", got)
	}
	for _, item := range st.Vocab.Items {
		if item.Answer < 0 || item.Answer >= len(item.Options) {
			t.Errorf("vocab item %d answer %d out of range", item.VocabWordID, item.Answer)
		}
	}
}

func TestStartResumesSameDaySession(t *testing.T) {
	f := newEngineFixture("2026-08-23")

	first, st, err := f.sessionSvc.StartOrResume(testUser)
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	if _, err := f.sessionSvc.AnswerDrill(testUser, first.ID, st.Grammar.DrillIDs[0], 1, 1000); err != nil {
		t.Fatalf("AnswerDrill: %v", err)
	}

	again, st2, err := f.sessionSvc.StartOrResume(testUser)
	if err != nil {
		t.Fatalf("StartOrResume again: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("resumed session %d, want %d", again.ID, first.ID)
	}
	if st2.Grammar.Index != 1 || len(st2.Grammar.Answers) != 1 {
		t.Errorf("resumed state lost progress: index=%d answers=%d", st2.Grammar.Index, len(st2.Grammar.Answers))
	}
}

func TestAnswerRejectsWrongStep(t *testing.T) {
	f := newEngineFixture("2026-08-23")
	session, st, _ := f.sessionSvc.StartOrResume(testUser)

	if _, err := f.sessionSvc.AnswerVocab(testUser, session.ID, st.Vocab.Items[0].VocabWordID, 0, 1000); !errors.Is(err, util.ErrInvalidState) {
		t.Errorf("AnswerVocab at grammar step: err = %v, want ErrInvalidState", err)
	}
	if _, err := f.sessionSvc.SubmitSentence(testUser, session.ID, st.Sentence.SentenceIDs[0], nil); !errors.Is(err, util.ErrInvalidState) {
		t.Errorf("SubmitSentence at grammar step: err = %v, want ErrInvalidState", err)
	}
}

func TestAnswerRejectsOutOfOrderQuestion(t *testing.T) {
	f := newEngineFixture("2026-08-23")
	session, st, _ := f.sessionSvc.StartOrResume(testUser)

	// 第二题还没轮到
	if _, err := f.sessionSvc.AnswerDrill(testUser, session.ID, st.Grammar.DrillIDs[1], 1, 1000); !errors.Is(err, util.ErrInvalidState) {
		t.Errorf("out of order answer: err = %v, want ErrInvalidState", err)
	}
}

func TestAnswerRejectsExhaustedStep(t *testing.T) {
	f := newEngineFixture("2026-08-23")
	session, st, _ := f.sessionSvc.StartOrResume(testUser)

	for _, drillID := range st.Grammar.DrillIDs {
		if _, err := f.sessionSvc.AnswerDrill(testUser, session.ID, drillID, 1, 1000); err != nil {
			t.Fatalf("AnswerDrill: %v", err)
		}
	}
	if _, err := f.sessionSvc.AnswerDrill(testUser, session.ID, st.Grammar.DrillIDs[0], 1, 1000); !errors.Is(err, util.ErrStepExhausted) {
		t.Errorf("exhausted step: err = %v, want ErrStepExhausted", err)
	}
}

func TestNextStepIsForwardOnly(t *testing.T) {
	f := newEngineFixture("2026-08-23")
	session, _, _ := f.sessionSvc.StartOrResume(testUser)

	for i := 0; i < 3; i++ {
		if _, err := f.sessionSvc.NextStep(testUser, session.ID); err != nil {
			t.Fatalf("NextStep #%d: %v", i+1, err)
		}
	}
	// 已在最后一步，继续推进必须走 Finish
	if _, err := f.sessionSvc.NextStep(testUser, session.ID); !errors.Is(err, util.ErrInvalidState) {
		t.Errorf("NextStep past final step: err = %v, want ErrInvalidState", err)
	}
}

func TestFinishRequiresFinalStep(t *testing.T) {
	f := newEngineFixture("2026-08-23")
	session, _, _ := f.sessionSvc.StartOrResume(testUser)

	if _, _, err := f.sessionSvc.Finish(testUser, session.ID); !errors.Is(err, util.ErrInvalidState) {
		t.Errorf("Finish at step 1: err = %v, want ErrInvalidState", err)
	}
}

func TestStartAfterFinishReturnsSameDaySession(t *testing.T) {
	f := newEngineFixture("2026-08-23")
	done, _ := runSession(t, f, true, 1500)

	// 当日会话已完成：原样返回，不得再建第二个会话
	again, st, err := f.sessionSvc.StartOrResume(testUser)
	if err != nil {
		t.Fatalf("StartOrResume after finish: %v", err)
	}
	if again.ID != done.ID {
		t.Errorf("session id = %d, want %d", again.ID, done.ID)
	}
	if again.Status != model.SessionCompleted {
		t.Errorf("status = %q, want completed", again.Status)
	}
	if st.Current != model.StepFinished {
		t.Errorf("step = %d, want %d", st.Current, model.StepFinished)
	}

	f.clock.advanceDays(1)
	next, _, err := f.sessionSvc.StartOrResume(testUser)
	if err != nil {
		t.Fatalf("StartOrResume next day: %v", err)
	}
	if next.ID == done.ID {
		t.Error("next day should create a new session")
	}
}

func TestFinishComputesPerfectResult(t *testing.T) {
	f := newEngineFixture("2026-08-23")

	session, result := runSession(t, f, true, 1500)

	if result.GrammarAccuracy != 1 || result.VocabAccuracy != 1 || result.SentenceHitRate != 1 {
		t.Errorf("accuracies = %v/%v/%v, want all 1",
			result.GrammarAccuracy, result.VocabAccuracy, result.SentenceHitRate)
	}
	if result.Stars != 5 {
		t.Errorf("stars = %d, want 5", result.Stars)
	}
	if result.LevelChange != "up" {
		t.Errorf("level change = %q, want up", result.LevelChange)
	}
	if result.Narrative == "" {
		t.Error("narrative is empty")
	}
	if session.Status != model.SessionCompleted {
		t.Errorf("status = %q, want completed", session.Status)
	}
	if session.Stars == nil || *session.Stars != 5 {
		t.Errorf("persisted stars = %v, want 5", session.Stars)
	}

	// 4 次全对 +40，例句通过 +3
	row, _ := f.mastery.GetGrammar(testUser, 10)
	if row == nil {
		t.Fatal("grammar mastery row was not created")
	}
	if row.Mastery != 43 {
		t.Errorf("mastery = %d, want 43", row.Mastery)
	}
	if row.CorrectStreak != 4 {
		t.Errorf("streak = %d, want 4", row.CorrectStreak)
	}
	if row.NextReviewAt == nil || !row.NextReviewAt.After(f.clock.Now()) {
		t.Errorf("next review = %v, want in the future", row.NextReviewAt)
	}

	// 速答全对：+2 基础 +1 速度
	vrow, _ := f.mastery.GetVocab(testUser, 200)
	if vrow == nil || vrow.Strength != 3 {
		t.Fatalf("vocab strength = %v, want 3", vrow)
	}

	progress, _ := f.progressSt.Get(testUser)
	if progress == nil {
		t.Fatal("progress row was not created")
	}
	if progress.StreakDays != 1 {
		t.Errorf("streak days = %d, want 1", progress.StreakDays)
	}
	if progress.CurrentLevel != 2 {
		t.Errorf("level = %d, want 2", progress.CurrentLevel)
	}
	// 掌握度 43 < 80，课内不前进
	if progress.CurrentGrammarIndex != 0 {
		t.Errorf("grammar index = %d, want 0", progress.CurrentGrammarIndex)
	}
}

func TestFinishAppliesSentencePenaltyOnFail(t *testing.T) {
	f := newEngineFixture("2026-08-23")

	session, st, _ := f.sessionSvc.StartOrResume(testUser)
	for _, drillID := range st.Grammar.DrillIDs {
		if _, err := f.sessionSvc.AnswerDrill(testUser, session.ID, drillID, 1, 1000); err != nil {
			t.Fatalf("AnswerDrill: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := f.sessionSvc.NextStep(testUser, session.ID); err != nil {
			t.Fatalf("NextStep: %v", err)
		}
	}
	// 只命中 1/3 个要点：未通过
	sentenceID := st.Sentence.SentenceIDs[0]
	flagged := []uint{f.content.keyPoints[sentenceID][0].ID}
	fb, err := f.sessionSvc.SubmitSentence(testUser, session.ID, sentenceID, flagged)
	if err != nil {
		t.Fatalf("SubmitSentence: %v", err)
	}
	if fb.Passed {
		t.Fatal("1/3 hit rate passed, want fail")
	}

	if _, _, err := f.sessionSvc.Finish(testUser, session.ID); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// 未通过例句：复习提前到明天，掌握度无 +3 奖励
	row, _ := f.mastery.GetGrammar(testUser, 10)
	if row == nil {
		t.Fatal("grammar mastery row was not created")
	}
	if row.Mastery != 20 {
		t.Errorf("mastery = %d, want 20 (2 correct, no bonus)", row.Mastery)
	}
	tomorrow := f.clock.Now().AddDate(0, 0, 1)
	if row.NextReviewAt == nil || !row.NextReviewAt.Equal(tomorrow) {
		t.Errorf("next review = %v, want %v", row.NextReviewAt, tomorrow)
	}
}

func TestOperationsRejectCompletedSession(t *testing.T) {
	f := newEngineFixture("2026-08-23")
	session, _ := runSession(t, f, true, 1500)

	if _, err := f.sessionSvc.NextStep(testUser, session.ID); !errors.Is(err, util.ErrSessionCompleted) {
		t.Errorf("NextStep on completed: err = %v, want ErrSessionCompleted", err)
	}
	if _, _, err := f.sessionSvc.Finish(testUser, session.ID); !errors.Is(err, util.ErrSessionCompleted) {
		t.Errorf("Finish on completed: err = %v, want ErrSessionCompleted", err)
	}
	if _, err := f.sessionSvc.AnswerDrill(testUser, session.ID, 100, 1, 1000); !errors.Is(err, util.ErrSessionCompleted) {
		t.Errorf("AnswerDrill on completed: err = %v, want ErrSessionCompleted", err)
	}
}

func TestSessionHiddenFromOtherUsers(t *testing.T) {
	f := newEngineFixture("2026-08-23")
	session, _, _ := f.sessionSvc.StartOrResume(testUser)

	if _, err := f.sessionSvc.NextStep(uint(99), session.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("foreign session access: err = %v, want ErrNotFound", err)
	}
}

func TestLevelPausesAfterThreeLowAccuracyDays(t *testing.T) {
	f := newEngineFixture("2026-08-20")

	_, r1 := runSession(t, f, false, 1500)
	if r1.LevelChange != "up" {
		t.Errorf("day 1 level change = %q, want up (no history yet)", r1.LevelChange)
	}
	f.clock.advanceDays(1)
	_, r2 := runSession(t, f, false, 1500)
	if r2.LevelChange != "up" {
		t.Errorf("day 2 level change = %q, want up", r2.LevelChange)
	}
	f.clock.advanceDays(1)
	_, r3 := runSession(t, f, false, 1500)
	if r3.LevelChange != "pause" {
		t.Errorf("day 3 level change = %q, want pause", r3.LevelChange)
	}

	progress, _ := f.progressSt.Get(testUser)
	if progress.CurrentLevel != 3 {
		t.Errorf("level = %d, want 3 (two ups, then pause)", progress.CurrentLevel)
	}
	if progress.StreakDays != 3 {
		t.Errorf("streak = %d, want 3", progress.StreakDays)
	}
}
