package model

import (
	"time"

	"gorm.io/datatypes"
)

// SessionState 会话状态机的封闭枚举。值沿用网关侧已落库的葡语标识，
// 引擎对所有状态做穷举 switch，不允许兜底分支。
type SessionState string

const (
	StateStart             SessionState = "inicio"
	StateMainMenu          SessionState = "menu_principal"
	StateLevelSelection    SessionState = "escolha_nivel"
	StateAwaitingLevel     SessionState = "aguardando_nivel_digitado"
	StateInitialAssessment SessionState = "avaliacao_inicial"
	StateStudyingLesson    SessionState = "estudando_licao"
	StateAwaitingExercise  SessionState = "aguardando_resposta_exercicio"
	StateChattingWithAI    SessionState = "conversando_ia"
	StateFinished          SessionState = "finalizado"
)

// LevelUndefined 用户尚未选择英语等级时的占位值
const LevelUndefined = "Não definido"

// DefaultUserName 事件里没有 senderName 时使用的占位昵称
const DefaultUserName = "Usuário Novo"

// UserSession 每个 WhatsApp 用户一条，主键是渠道下发的 JID。
// Exercise* 三个字段要么同时存在要么同时为空，
// 且仅在 State == StateAwaitingExercise 时有意义。
type UserSession struct {
	WaJID        string       `gorm:"column:wa_jid;primaryKey;size:100" json:"waJid"`
	Name         string       `gorm:"size:100;default:''" json:"name"`
	EnglishLevel string       `gorm:"size:50;default:'Não definido'" json:"englishLevel"`
	State        SessionState `gorm:"size:50;default:'escolha_nivel'" json:"state"`

	Score           int  `gorm:"default:0" json:"score"`
	CurrentLessonID uint `gorm:"default:0" json:"currentLessonId"`

	ExerciseKind     string         `gorm:"size:10;default:''" json:"exerciseKind"`
	ExerciseAnswer   string         `gorm:"size:255;default:''" json:"-"`
	ExercisePayload  datatypes.JSON `json:"-"`
	ExerciseHits     int            `gorm:"default:0" json:"exerciseHits"`
	ExerciseAttempts int            `gorm:"default:0" json:"exerciseAttempts"`

	LastInteraction time.Time `json:"lastInteraction"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

// HasLevel 用户是否已经定义了英语等级
func (s *UserSession) HasLevel() bool {
	return s.EnglishLevel != "" && s.EnglishLevel != LevelUndefined
}

// SetExercise 进入动态练习状态时填充练习上下文
func (s *UserSession) SetExercise(kind, answer string, payload []byte) {
	s.ExerciseKind = kind
	s.ExerciseAnswer = answer
	s.ExercisePayload = datatypes.JSON(payload)
}

// ClearExercise 离开动态练习状态时必须调用，维持字段与状态的不变量
func (s *UserSession) ClearExercise() {
	s.ExerciseKind = ""
	s.ExerciseAnswer = ""
	s.ExercisePayload = nil
}
