package util

import (
	"errors"
	"fmt"
)

var (
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrAINotConfigured = errors.New("AI provider not configured")
)

// ExerciseContentError AI 返回的练习内容违反契约（JSON 解析失败、选项数
// 不是 4、正确答案不在选项里、选项文本重复）。这是内容错误而不是基础设施
// 错误，用户侧提示重试即可。
type ExerciseContentError struct {
	Reason string
}

func (e *ExerciseContentError) Error() string {
	return fmt.Sprintf("invalid exercise content: %s", e.Reason)
}

// IsExerciseContentError 判断是否为练习内容错误
func IsExerciseContentError(err error) bool {
	var ce *ExerciseContentError
	return errors.As(err, &ce)
}
