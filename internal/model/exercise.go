package model

// 动态练习的两种题型
const (
	ExerciseChoice = "choice"
	ExerciseOpen   = "open"
)

// DynamicExercise AI 网关返回的结构化练习，JSON 键名是与模型约定的
// 葡语契约，不做本地化转换。只在会话里以原始 payload 形式保留。
type DynamicExercise struct {
	ID         string   `json:"id"`
	Tipo       string   `json:"tipo"`
	Pergunta   string   `json:"pergunta"`
	Opcoes     []string `json:"opcoes,omitempty"`
	Correta    string   `json:"correta"`
	Explicacao string   `json:"explicacao,omitempty"`
}
