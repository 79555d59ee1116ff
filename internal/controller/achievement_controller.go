package controller

import (
	"lingua_coach_backend/internal/service"
	"lingua_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AchievementController struct {
	AchievementService *service.AchievementService
}

func NewAchievementController(achievementService *service.AchievementService) *AchievementController {
	return &AchievementController{AchievementService: achievementService}
}

// List godoc
// @Summary 成就目录与解锁状态
// @Tags 成就
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.AchievementView}
// @Router /api/achievements [get]
func (c *AchievementController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	views, err := c.AchievementService.ListAll(claims.UserID)
	if err != nil {
		util.EngineError(ctx, err)
		return
	}
	util.Success(ctx, views)
}
