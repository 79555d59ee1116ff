package controller

import (
	"lingua_coach_backend/internal/service"
	"lingua_coach_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// Overview godoc
// @Summary 学习进度总览
// @Description 当前课程、等级、连续学习天数与各项累计统计
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.ProgressOverview}
// @Router /api/progress [get]
func (c *ProgressController) Overview(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	overview, err := c.ProgressService.Overview(claims.UserID)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}

// LessonProgressResponse 课内掌握情况与结课门槛进度
type LessonProgressResponse struct {
	Points []service.GrammarPointProgress `json:"points"`
	Gates  *service.LessonGateStatus      `json:"gates"`
}

// LessonProgress godoc
// @Summary 课内语法点掌握情况
// @Description 逐语法点的掌握度，以及距离结课门槛（全部掌握、词汇/例句均值）的实时进度
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Param lessonId path int true "课程 ID"
// @Success 200 {object} util.Response{data=LessonProgressResponse}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/progress/lessons/{lessonId} [get]
func (c *ProgressController) LessonProgress(ctx *gin.Context) {
	lessonID, ok := pathID(ctx, "lessonId")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	items, err := c.ProgressService.LessonProgress(claims.UserID, lessonID)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	gates, err := c.ProgressService.LessonGates(claims.UserID, lessonID)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, LessonProgressResponse{Points: items, Gates: gates})
}

// JumpRequest 课程切换请求
type JumpRequest struct {
	LessonID uint `json:"lessonId" binding:"required"`
}

// JumpToLesson godoc
// @Summary 切换到指定课程
// @Description 进度定位到目标课程中第一个未掌握的语法点
// @Tags 进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body JumpRequest true "目标课程"
// @Success 200 {object} util.Response{data=model.UserProgress}
// @Failure 404 {object} util.Response "课程不存在"
// @Failure 409 {object} util.Response "课程没有可学内容"
// @Router /api/progress/jump [post]
func (c *ProgressController) JumpToLesson(ctx *gin.Context) {
	var req JumpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	progress, err := c.ProgressService.JumpToLesson(claims.UserID, req.LessonID)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// AccuracyHistory godoc
// @Summary 正确率历史
// @Description 最近已完成会话的综合正确率与星级，按日期倒序
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Param limit query int false "条数上限（默认 30，最大 90）"
// @Success 200 {object} util.Response{data=[]service.DailyAccuracy}
// @Router /api/progress/history [get]
func (c *ProgressController) AccuracyHistory(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "30"))
	claims := util.GetUserFromContext(ctx)
	history, err := c.ProgressService.AccuracyHistory(claims.UserID, limit)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, history)
}
