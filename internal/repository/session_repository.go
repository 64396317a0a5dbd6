package repository

import (
	"english_bot_backend/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// FindOrCreate 按 JID 读取会话，不存在时创建默认会话（等级未定义，等待选择）
func (r *SessionRepository) FindOrCreate(waJID, name string) (*model.UserSession, error) {
	var session model.UserSession
	err := r.DB.Where("wa_jid = ?", waJID).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if name == "" {
		name = model.DefaultUserName
	}
	session = model.UserSession{
		WaJID:           waJID,
		Name:            name,
		EnglishLevel:    model.LevelUndefined,
		State:           model.StateLevelSelection,
		LastInteraction: time.Now(),
	}
	if err := r.DB.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Save(session *model.UserSession) error {
	return r.DB.Save(session).Error
}

func (r *SessionRepository) FindByJID(waJID string) (*model.UserSession, error) {
	var session model.UserSession
	err := r.DB.Where("wa_jid = ?", waJID).First(&session).Error
	return &session, err
}

// List 管理端分页查看会话，按最近互动排序
func (r *SessionRepository) List(page, limit int) ([]model.UserSession, int64, error) {
	var sessions []model.UserSession
	var total int64

	if err := r.DB.Model(&model.UserSession{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.DB.Order("last_interaction DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}
