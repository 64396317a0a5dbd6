package repository

import (
	"english_bot_backend/internal/model"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) FindByID(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.First(&lesson, id).Error
	return &lesson, err
}

func (r *LessonRepository) List() ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Order("id ASC").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) Create(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *LessonRepository) Update(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

func (r *LessonRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Lesson{}, id).Error
}

// NextID 当前最大课程 id，新课程接在课程序列末尾
func (r *LessonRepository) NextID() (uint, error) {
	var maxID uint
	err := r.DB.Model(&model.Lesson{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error
	return maxID + 1, err
}
