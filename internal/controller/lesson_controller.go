package controller

import (
	"errors"
	"strconv"

	"english_bot_backend/internal/model"
	"english_bot_backend/internal/service"
	"english_bot_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

type lessonRequest struct {
	Tema     string `json:"tema"`
	Topico   string `json:"topico" binding:"required"`
	Pergunta string `json:"pergunta" binding:"required"`
	OpcaoA   string `json:"opcaoA" binding:"required"`
	OpcaoB   string `json:"opcaoB" binding:"required"`
	OpcaoC   string `json:"opcaoC" binding:"required"`
	OpcaoD   string `json:"opcaoD" binding:"required"`
	Correta  string `json:"correta" binding:"required,oneof=A B C D"`
}

// @Summary 列出课程
// @Tags 课程管理
// @Security BearerAuth
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/admin/lessons [get]
func (c *LessonController) ListLessons(ctx *gin.Context) {
	lessons, err := c.LessonService.List()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// @Summary 获取课程详情
// @Tags 课程管理
// @Security BearerAuth
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/admin/lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		util.BadRequest(ctx, "invalid id")
		return
	}

	lesson, err := c.LessonService.FindByID(uint(id))
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// @Summary 创建课程
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lesson body lessonRequest true "课程内容"
// @Success 201 {object} util.Response
// @Router /api/admin/lessons [post]
func (c *LessonController) CreateLesson(ctx *gin.Context) {
	var req lessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson := model.Lesson{
		Tema:     req.Tema,
		Topico:   req.Topico,
		Pergunta: req.Pergunta,
		OpcaoA:   req.OpcaoA,
		OpcaoB:   req.OpcaoB,
		OpcaoC:   req.OpcaoC,
		OpcaoD:   req.OpcaoD,
		Correta:  req.Correta,
	}
	if err := c.LessonService.Create(&lesson); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// @Summary 更新课程
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param lesson body lessonRequest true "课程内容"
// @Success 200 {object} util.Response
// @Router /api/admin/lessons/{id} [put]
func (c *LessonController) UpdateLesson(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		util.BadRequest(ctx, "invalid id")
		return
	}

	var req lessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson := model.Lesson{
		ID:       uint(id),
		Tema:     req.Tema,
		Topico:   req.Topico,
		Pergunta: req.Pergunta,
		OpcaoA:   req.OpcaoA,
		OpcaoB:   req.OpcaoB,
		OpcaoC:   req.OpcaoC,
		OpcaoD:   req.OpcaoD,
		Correta:  req.Correta,
	}
	if err := c.LessonService.Update(&lesson); err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// @Summary 删除课程
// @Tags 课程管理
// @Security BearerAuth
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/admin/lessons/{id} [delete]
func (c *LessonController) DeleteLesson(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		util.BadRequest(ctx, "invalid id")
		return
	}

	if err := c.LessonService.Delete(uint(id)); err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": id})
}

// @Summary 分页查看用户会话
// @Tags 课程管理
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response
// @Router /api/admin/sessions [get]
func (c *LessonController) ListSessions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	sessions, total, err := c.LessonService.ListSessions(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  sessions,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
