package controller

import (
	"errors"

	"english_bot_backend/internal/service"
	"english_bot_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// @Summary 管理员登录
// @Tags 管理
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "管理员口令"
// @Success 200 {object} util.Response
// @Router /api/admin/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, err := c.AuthService.Login(req.Password)
	if err != nil {
		if errors.Is(err, util.ErrInvalidPassword) {
			util.Unauthorized(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"token": token})
}
