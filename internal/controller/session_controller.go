package controller

import (
	"encoding/json"
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/service"
	"lingua_coach_backend/internal/util"
	"lingua_coach_backend/pkg/logger"
	"lingua_coach_backend/pkg/monitoring"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionController struct {
	SessionService     *service.SessionService
	ContentService     service.ContentProvider
	AchievementService *service.AchievementService
	SummaryService     *service.SummaryService
}

func NewSessionController(sessionService *service.SessionService, content service.ContentProvider,
	achievementService *service.AchievementService, summaryService *service.SummaryService) *SessionController {
	return &SessionController{
		SessionService:     sessionService,
		ContentService:     content,
		AchievementService: achievementService,
		SummaryService:     summaryService,
	}
}

// StepProgress 单步的作答进度
type StepProgress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// SessionView 会话快照。只暴露当前题目，不泄露任何正确答案。
// swagger:model SessionView
type SessionView struct {
	SessionID   uint                    `json:"sessionId"`
	SessionDate string                  `json:"sessionDate"`
	LessonID    uint                    `json:"lessonId"`
	Level       int                     `json:"level"`
	Status      model.SessionStatus     `json:"status"`
	CurrentStep int                     `json:"currentStep"`
	Steps       map[string]StepProgress `json:"steps"`
	Question    interface{}             `json:"question,omitempty"`
}

type drillQuestion struct {
	Kind    string          `json:"kind"`
	DrillID uint            `json:"drillId"`
	Prompt  string          `json:"prompt"`
	Options json.RawMessage `json:"options"`
}

type vocabQuestion struct {
	Kind        string   `json:"kind"`
	VocabWordID uint     `json:"vocabWordId"`
	Word        string   `json:"word"`
	Reading     string   `json:"reading,omitempty"`
	Options     []string `json:"options"`
}

type keyPointOption struct {
	ID    uint   `json:"id"`
	Label string `json:"label"`
}

type sentenceQuestion struct {
	Kind        string           `json:"kind"`
	SentenceID  uint             `json:"sentenceId"`
	Text        string           `json:"text"`
	Translation string           `json:"translation,omitempty"`
	KeyPoints   []keyPointOption `json:"keyPoints"`
}

func (c *SessionController) buildView(session *model.StudySession, st *model.StepState) *SessionView {
	view := &SessionView{
		SessionID:   session.ID,
		SessionDate: session.SessionDate,
		LessonID:    session.LessonID,
		Level:       session.Level,
		Status:      session.Status,
		CurrentStep: st.Current,
		Steps: map[string]StepProgress{
			"grammar":  {Answered: st.Grammar.Index, Total: len(st.Grammar.DrillIDs)},
			"transfer": {Answered: st.Transfer.Index, Total: len(st.Transfer.DrillIDs)},
			"vocab":    {Answered: st.Vocab.Index, Total: len(st.Vocab.Items)},
			"sentence": {Answered: st.Sentence.Index, Total: len(st.Sentence.SentenceIDs)},
		},
	}
	view.Question = c.currentQuestion(st)
	return view
}

// currentQuestion 当前待答题目的展示载荷；步骤已答完或会话已结束时为空
func (c *SessionController) currentQuestion(st *model.StepState) interface{} {
	switch st.Current {
	case model.StepGrammar, model.StepTransfer:
		step := &st.Grammar
		kind := "grammar_recall"
		if st.Current == model.StepTransfer {
			step = &st.Transfer
			kind = "transfer"
		}
		if step.Index >= len(step.DrillIDs) {
			return nil
		}
		drill, err := c.ContentService.Drill(step.DrillIDs[step.Index])
		if err != nil {
			logger.Log.Warn("题目内容加载失败", zap.Error(err))
			return nil
		}
		return drillQuestion{
			Kind:    kind,
			DrillID: drill.ID,
			Prompt:  drill.Prompt,
			Options: json.RawMessage(drill.Options),
		}
	case model.StepVocab:
		if st.Vocab.Index >= len(st.Vocab.Items) {
			return nil
		}
		item := st.Vocab.Items[st.Vocab.Index]
		word, err := c.ContentService.Vocab(item.VocabWordID)
		if err != nil {
			logger.Log.Warn("词汇内容加载失败", zap.Error(err))
			return nil
		}
		return vocabQuestion{
			Kind:        "vocab",
			VocabWordID: word.ID,
			Word:        word.Word,
			Reading:     word.Reading,
			Options:     item.Options,
		}
	case model.StepSentence:
		if st.Sentence.Index >= len(st.Sentence.SentenceIDs) {
			return nil
		}
		sentenceID := st.Sentence.SentenceIDs[st.Sentence.Index]
		sentence, err := c.ContentService.Sentence(sentenceID)
		if err != nil {
			logger.Log.Warn("例句内容加载失败", zap.Error(err))
			return nil
		}
		keyPoints, err := c.ContentService.KeyPoints(sentenceID)
		if err != nil {
			logger.Log.Warn("例句要点加载失败", zap.Error(err))
			return nil
		}
		options := make([]keyPointOption, len(keyPoints))
		for i, kp := range keyPoints {
			options[i] = keyPointOption{ID: kp.ID, Label: kp.Label}
		}
		return sentenceQuestion{
			Kind:        "sentence",
			SentenceID:  sentence.ID,
			Text:        sentence.Text,
			Translation: sentence.Translation,
			KeyPoints:   options,
		}
	}
	return nil
}

// Start godoc
// @Summary 开始或恢复今日会话
// @Description 已有进行中的会话时原样恢复，否则按当前进度创建新会话
// @Tags 会话
// @Produce json
// @Success 200 {object} util.Response{data=SessionView}
// @Failure 404 {object} util.Response "课程内容不存在"
// @Failure 409 {object} util.Response "课程没有可学内容"
// @Router /api/sessions/today [post]
func (c *SessionController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	session, st, err := c.SessionService.StartOrResume(claims.UserID)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, c.buildView(session, st))
}

// AnswerRequest 练习/词汇作答请求
type AnswerRequest struct {
	TargetID  uint  `json:"targetId" binding:"required"`
	Selected  *int  `json:"selected" binding:"required"`
	ElapsedMs int64 `json:"elapsedMs"`
}

// AnswerDrill godoc
// @Summary 提交语法练习作答
// @Description 第一、二步的识记/迁移题作答，题目必须按顺序提交
// @Tags 会话
// @Accept json
// @Produce json
// @Param id path int true "会话 ID"
// @Param body body AnswerRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.DrillFeedback}
// @Failure 409 {object} util.Response "步骤不符或题目顺序错误"
// @Router /api/sessions/{id}/drill-answers [post]
func (c *SessionController) AnswerDrill(ctx *gin.Context) {
	sessionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	fb, err := c.SessionService.AnswerDrill(claims.UserID, sessionID, req.TargetID, *req.Selected, req.ElapsedMs)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, fb)
}

// AnswerVocab godoc
// @Summary 提交词汇速认作答
// @Tags 会话
// @Accept json
// @Produce json
// @Param id path int true "会话 ID"
// @Param body body AnswerRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.DrillFeedback}
// @Failure 409 {object} util.Response "步骤不符或题目顺序错误"
// @Router /api/sessions/{id}/vocab-answers [post]
func (c *SessionController) AnswerVocab(ctx *gin.Context) {
	sessionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	fb, err := c.SessionService.AnswerVocab(claims.UserID, sessionID, req.TargetID, *req.Selected, req.ElapsedMs)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, fb)
}

// SentenceRequest 例句要点提交请求
type SentenceRequest struct {
	SentenceID uint   `json:"sentenceId" binding:"required"`
	Flagged    []uint `json:"flagged"`
}

// SubmitSentence godoc
// @Summary 提交例句要点选择
// @Description 第四步：勾选例句中体现的语法要点，按覆盖率评分
// @Tags 会话
// @Accept json
// @Produce json
// @Param id path int true "会话 ID"
// @Param body body SentenceRequest true "勾选的要点 ID"
// @Success 200 {object} util.Response{data=service.SentenceFeedback}
// @Failure 409 {object} util.Response "步骤不符或题目顺序错误"
// @Router /api/sessions/{id}/sentence-submissions [post]
func (c *SessionController) SubmitSentence(ctx *gin.Context) {
	sessionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req SentenceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	fb, err := c.SessionService.SubmitSentence(claims.UserID, sessionID, req.SentenceID, req.Flagged)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, fb)
}

// NextStep godoc
// @Summary 推进到下一步骤
// @Description 会话只能向前推进；最后一步之后需要调用结算接口
// @Tags 会话
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response{data=SessionView}
// @Failure 409 {object} util.Response "已在最后一步或会话已完成"
// @Router /api/sessions/{id}/next-step [post]
func (c *SessionController) NextStep(ctx *gin.Context) {
	sessionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	st, err := c.SessionService.NextStep(claims.UserID, sessionID)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	session, _, err := c.SessionService.StartOrResume(claims.UserID)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, c.buildView(session, st))
}

// FinishResponse 结算结果
type FinishResponse struct {
	Result          *model.SessionResult      `json:"result"`
	NewAchievements []model.AchievementUnlock `json:"newAchievements"`
}

// Finish godoc
// @Summary 结算今日会话
// @Description 计算正确率、星级与等级走向，落账进度并评估成就解锁
// @Tags 会话
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response{data=FinishResponse}
// @Failure 409 {object} util.Response "尚未到达最后一步或会话已完成"
// @Router /api/sessions/{id}/finish [post]
func (c *SessionController) Finish(ctx *gin.Context) {
	sessionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	session, result, err := c.SessionService.Finish(claims.UserID, sessionID)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	monitoring.SessionsCompleted.Inc()

	// 成就判定失败不影响结算结果
	unlocked, err := c.AchievementService.Evaluate(claims.UserID)
	if err != nil {
		logger.Log.Error("成就判定失败", zap.Uint("userId", claims.UserID), zap.Error(err))
		unlocked = nil
	}
	monitoring.AchievementsUnlocked.Add(float64(len(unlocked)))

	// 异步生成更自然的叙述小结
	c.SummaryService.RefreshAsync(session.ID)

	util.Success(ctx, FinishResponse{Result: result, NewAchievements: unlocked})
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
