package model

// Lesson 预置的固定词汇课程，运行期只读（管理接口可增删）。
// id 从 1 开始连续递增，"下一课" = 当前 id + 1。
// 选项文本不带 "A." 前缀，字母在发送按钮菜单时拼接。
type Lesson struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Tema     string `gorm:"size:100;index;default:'introducao'" json:"tema"`
	Topico   string `gorm:"size:255" json:"topico"`
	Pergunta string `gorm:"size:500" json:"pergunta"`
	OpcaoA   string `gorm:"size:255" json:"opcaoA"`
	OpcaoB   string `gorm:"size:255" json:"opcaoB"`
	OpcaoC   string `gorm:"size:255" json:"opcaoC"`
	OpcaoD   string `gorm:"size:255" json:"opcaoD"`
	Correta  string `gorm:"size:1" json:"correta"`
}

func (Lesson) TableName() string {
	return "licoes"
}

// Options 按 A-D 顺序返回选项文本
func (l *Lesson) Options() []string {
	return []string{l.OpcaoA, l.OpcaoB, l.OpcaoC, l.OpcaoD}
}
