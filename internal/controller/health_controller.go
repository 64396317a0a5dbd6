package controller

import (
	"english_bot_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	DB *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{DB: db}
}

// @Summary 存活探针
// @Tags 运维
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (c *HealthController) Root(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"message": "English Bot Server está ativo!"})
}

// @Summary 健康检查（含数据库连通性）
// @Tags 运维
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if err := sqlDB.Ping(); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"status": "ok"})
}
