package controller

import (
	"lingua_coach_backend/internal/service"
	"lingua_coach_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

// Queue godoc
// @Summary 到期复习队列
// @Description 当前到期的语法点与词汇，弱项排在前面
// @Tags 复习
// @Produce json
// @Security BearerAuth
// @Param limit query int false "每类条数上限（默认 20，最大 100）"
// @Success 200 {object} util.Response{data=service.ReviewQueue}
// @Router /api/review/queue [get]
func (c *ReviewController) Queue(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	claims := util.GetUserFromContext(ctx)
	queue, err := c.ReviewService.DueQueue(claims.UserID, limit)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, queue)
}

// RateRequest 复习自评请求
type RateRequest struct {
	Rating string `json:"rating" binding:"required,oneof=again good easy"`
}

// RateGrammar godoc
// @Summary 语法点复习自评
// @Description again 重置排期，good 正常延长，easy 延长更多
// @Tags 复习
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param grammarPointId path int true "语法点 ID"
// @Param body body RateRequest true "自评档位"
// @Success 200 {object} util.Response{data=service.RateResult}
// @Failure 404 {object} util.Response "语法点不存在"
// @Router /api/review/grammar/{grammarPointId} [post]
func (c *ReviewController) RateGrammar(ctx *gin.Context) {
	grammarPointID, ok := pathID(ctx, "grammarPointId")
	if !ok {
		return
	}
	var req RateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	result, err := c.ReviewService.RateGrammar(claims.UserID, grammarPointID, req.Rating)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// RateVocab godoc
// @Summary 词汇复习自评
// @Tags 复习
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param vocabWordId path int true "词汇 ID"
// @Param body body RateRequest true "自评档位"
// @Success 200 {object} util.Response{data=service.RateResult}
// @Failure 404 {object} util.Response "词汇不存在"
// @Router /api/review/vocab/{vocabWordId} [post]
func (c *ReviewController) RateVocab(ctx *gin.Context) {
	vocabWordID, ok := pathID(ctx, "vocabWordId")
	if !ok {
		return
	}
	var req RateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	result, err := c.ReviewService.RateVocab(claims.UserID, vocabWordID, req.Rating)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
