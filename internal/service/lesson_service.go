package service

import (
	"errors"

	"english_bot_backend/internal/model"
	"english_bot_backend/internal/repository"
	"english_bot_backend/internal/util"

	"gorm.io/gorm"
)

// LessonService 课程与会话的管理面服务。同时向引擎提供 LessonStore：
// 把 gorm 的 ErrRecordNotFound 翻译成领域错误，引擎不感知存储实现。
type LessonService struct {
	lessons  *repository.LessonRepository
	sessions *repository.SessionRepository
}

func NewLessonService(lessons *repository.LessonRepository, sessions *repository.SessionRepository) *LessonService {
	return &LessonService{lessons: lessons, sessions: sessions}
}

func (s *LessonService) FindByID(id uint) (*model.Lesson, error) {
	lesson, err := s.lessons.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) List() ([]model.Lesson, error) {
	return s.lessons.List()
}

// Create id 为 0 时接在课程序列末尾
func (s *LessonService) Create(lesson *model.Lesson) error {
	if lesson.ID == 0 {
		next, err := s.lessons.NextID()
		if err != nil {
			return err
		}
		lesson.ID = next
	}
	return s.lessons.Create(lesson)
}

func (s *LessonService) Update(lesson *model.Lesson) error {
	if _, err := s.FindByID(lesson.ID); err != nil {
		return err
	}
	return s.lessons.Update(lesson)
}

func (s *LessonService) Delete(id uint) error {
	if _, err := s.FindByID(id); err != nil {
		return err
	}
	return s.lessons.Delete(id)
}

// ListSessions 管理端分页查看用户会话
func (s *LessonService) ListSessions(page, limit int) ([]model.UserSession, int64, error) {
	return s.sessions.List(page, limit)
}
